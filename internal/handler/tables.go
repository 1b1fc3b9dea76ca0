package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/middleware"
	"github.com/sajikan-pos/api/internal/service"
	"github.com/sajikan-pos/api/internal/ws"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableLockManager; narrow interface for testability.
type TableServicer interface {
	Acquire(ctx context.Context, req service.AcquireLockRequest) (*service.LockResult, error)
	Release(ctx context.Context, req service.ReleaseLockRequest) (*database.Table, error)
	GetTable(ctx context.Context, tableID, branchID uuid.UUID) (*service.TableStatus, error)
	ActiveOrder(ctx context.Context, tableID, branchID uuid.UUID) (*database.Order, error)
	ListTables(ctx context.Context, branchID uuid.UUID, areaID pgtype.UUID) ([]database.Table, error)
	ListAreas(ctx context.Context, branchID uuid.UUID) ([]database.Area, error)
}

// TableHandler handles the floor plan: tables, areas and the lock
// endpoints.
type TableHandler struct {
	svc TableServicer
	hub *ws.Hub
}

func NewTableHandler(svc TableServicer, hub *ws.Hub) *TableHandler {
	return &TableHandler{svc: svc, hub: hub}
}

func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/order", h.ActiveOrder)
	r.Post("/{id}/lock", h.Lock)
	r.Post("/{id}/unlock", h.Unlock)
}

// --- Request / Response types ---

type lockRequest struct {
	Token string `json:"token"`
}

type unlockRequest struct {
	Token string `json:"token"`
	Force bool   `json:"force"`
}

type tableResponse struct {
	ID        uuid.UUID  `json:"id"`
	AreaID    *string    `json:"area_id"`
	TableCode string     `json:"table_code"`
	Capacity  int32      `json:"capacity"`
	LockedBy  *string    `json:"locked_by"`
	LockedAt  *time.Time `json:"locked_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type tableStatusResponse struct {
	tableResponse
	ActiveOrder *orderResponse `json:"active_order"`
}

type lockResponse struct {
	Table     tableResponse `json:"table"`
	LockToken string        `json:"lock_token"`
}

// lockConflictResponse names the device holding the table when an
// acquire is denied.
type lockConflictResponse struct {
	LockedBy string     `json:"locked_by"`
	LockedAt *time.Time `json:"locked_at"`
}

type areaResponse struct {
	ID       uuid.UUID `json:"id"`
	AreaName string    `json:"area_name"`
}

// --- Handlers ---

// List handles GET /tables. Optional area_id filter.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	areaID := pgtype.UUID{}
	if s := r.URL.Query().Get("area_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid area_id")
			return
		}
		areaID = pgtype.UUID{Bytes: id, Valid: true}
	}

	tables, err := h.svc.ListTables(r.Context(), claims.BranchID, areaID)
	if err != nil {
		writeServiceError(w, "list tables", err)
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = dbTableToResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /tables/{id}: the table with its occupancy.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	status, err := h.svc.GetTable(r.Context(), tableID, claims.BranchID)
	if err != nil {
		writeServiceError(w, "get table", err)
		return
	}

	resp := tableStatusResponse{tableResponse: dbTableToResponse(status.Table)}
	if status.ActiveOrder != nil {
		o := dbOrderToResponse(*status.ActiveOrder)
		resp.ActiveOrder = &o
	}
	writeJSON(w, http.StatusOK, resp)
}

// ActiveOrder handles GET /tables/{id}/order.
func (h *TableHandler) ActiveOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	order, err := h.svc.ActiveOrder(r.Context(), tableID, claims.BranchID)
	if err != nil {
		writeServiceError(w, "get active order", err)
		return
	}
	writeJSON(w, http.StatusOK, dbOrderToResponse(*order))
}

// Lock handles POST /tables/{id}/lock.
func (h *TableHandler) Lock(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req lockRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.svc.Acquire(r.Context(), service.AcquireLockRequest{
		TableID:  tableID,
		BranchID: claims.BranchID,
		HolderID: claims.UserID,
		Token:    req.Token,
	})
	if err != nil {
		var lockConflict *service.LockConflictError
		if errors.As(err, &lockConflict) {
			conflict := lockConflictResponse{LockedBy: lockConflict.HolderID.String()}
			if !lockConflict.LockedAt.IsZero() {
				t := lockConflict.LockedAt
				conflict.LockedAt = &t
			}
			writeErrorData(w, http.StatusConflict, err.Error(), conflict)
			return
		}
		writeServiceError(w, "acquire table lock", err)
		return
	}

	resp := lockResponse{
		Table:     dbTableToResponse(result.Table),
		LockToken: result.Token.String(),
	}
	publish(h.hub, claims.BranchID, "table.locked", resp.Table)
	writeJSON(w, http.StatusOK, resp)
}

// Unlock handles POST /tables/{id}/unlock. Force skips the token check
// and needs the manager role.
func (h *TableHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Force && claims.Role != "manager" {
		writeError(w, http.StatusForbidden, "force unlock requires manager role")
		return
	}
	if !req.Force && req.Token == "" {
		writeFieldErrors(w, http.StatusBadRequest, "token is required",
			map[string]string{"token": "token is required unless force is set"})
		return
	}

	table, err := h.svc.Release(r.Context(), service.ReleaseLockRequest{
		TableID:  tableID,
		BranchID: claims.BranchID,
		HolderID: claims.UserID,
		Token:    req.Token,
		Force:    req.Force,
	})
	if err != nil {
		writeServiceError(w, "release table lock", err)
		return
	}

	resp := dbTableToResponse(*table)
	publish(h.hub, claims.BranchID, "table.unlocked", resp)
	writeJSON(w, http.StatusOK, resp)
}

// ListAreas handles GET /areas.
func (h *TableHandler) ListAreas(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	areas, err := h.svc.ListAreas(r.Context(), claims.BranchID)
	if err != nil {
		writeServiceError(w, "list areas", err)
		return
	}
	resp := make([]areaResponse, len(areas))
	for i, a := range areas {
		resp[i] = areaResponse{ID: a.ID, AreaName: a.AreaName}
	}
	writeJSON(w, http.StatusOK, resp)
}

func dbTableToResponse(t database.Table) tableResponse {
	return tableResponse{
		ID:        t.ID,
		AreaID:    uuidPtr(t.AreaID),
		TableCode: t.TableCode,
		Capacity:  t.Capacity,
		LockedBy:  uuidPtr(t.LockedBy),
		LockedAt:  timePtr(t.LockedAt),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
