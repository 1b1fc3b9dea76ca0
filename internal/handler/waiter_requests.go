package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/middleware"
	"github.com/sajikan-pos/api/internal/ws"
)

// WaiterRequestServicer defines the service methods needed by the
// service bell handlers. Satisfied by *service.WaiterRequestService.
type WaiterRequestServicer interface {
	Create(ctx context.Context, branchID, tableID uuid.UUID) (*database.WaiterRequest, error)
	Respond(ctx context.Context, id, branchID uuid.UUID, status string) (*database.WaiterRequest, error)
	Cancel(ctx context.Context, id, branchID uuid.UUID) (*database.WaiterRequest, error)
	List(ctx context.Context, branchID uuid.UUID, status string, limit, offset int32) ([]database.WaiterRequest, error)
}

// WaiterRequestHandler handles the table-side service bell.
type WaiterRequestHandler struct {
	svc WaiterRequestServicer
	hub *ws.Hub
}

func NewWaiterRequestHandler(svc WaiterRequestServicer, hub *ws.Hub) *WaiterRequestHandler {
	return &WaiterRequestHandler{svc: svc, hub: hub}
}

func (h *WaiterRequestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Patch("/{id}", h.Respond)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createWaiterRequestRequest struct {
	TableID string `json:"table_id"`
}

type respondWaiterRequestRequest struct {
	Status string `json:"status"`
}

type waiterRequestResponse struct {
	ID        uuid.UUID `json:"id"`
	TableID   uuid.UUID `json:"table_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Handlers ---

// Create handles POST /waiter-requests.
func (h *WaiterRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createWaiterRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	created, err := h.svc.Create(r.Context(), claims.BranchID, tableID)
	if err != nil {
		writeServiceError(w, "create waiter request", err)
		return
	}

	resp := dbWaiterRequestToResponse(*created)
	publish(h.hub, claims.BranchID, "waiter_request.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /waiter-requests with an optional status filter.
func (h *WaiterRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	limit, offset := parsePagination(r)

	requests, err := h.svc.List(r.Context(), claims.BranchID, r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		writeServiceError(w, "list waiter requests", err)
		return
	}

	resp := make([]waiterRequestResponse, len(requests))
	for i, req := range requests {
		resp[i] = dbWaiterRequestToResponse(req)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Respond handles PATCH /waiter-requests/{id}.
func (h *WaiterRequestHandler) Respond(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}

	var req respondWaiterRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeFieldErrors(w, http.StatusBadRequest, "status is required",
			map[string]string{"status": "status is required"})
		return
	}

	updated, err := h.svc.Respond(r.Context(), id, claims.BranchID, req.Status)
	if err != nil {
		writeServiceError(w, "respond to waiter request", err)
		return
	}

	resp := dbWaiterRequestToResponse(*updated)
	publish(h.hub, claims.BranchID, "waiter_request.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /waiter-requests/{id}.
func (h *WaiterRequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request ID")
		return
	}

	cancelled, err := h.svc.Cancel(r.Context(), id, claims.BranchID)
	if err != nil {
		writeServiceError(w, "cancel waiter request", err)
		return
	}

	resp := dbWaiterRequestToResponse(*cancelled)
	publish(h.hub, claims.BranchID, "waiter_request.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

func dbWaiterRequestToResponse(req database.WaiterRequest) waiterRequestResponse {
	return waiterRequestResponse{
		ID:        req.ID,
		TableID:   req.TableID,
		Status:    req.Status,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
}
