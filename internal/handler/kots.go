package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/middleware"
	"github.com/sajikan-pos/api/internal/service"
	"github.com/sajikan-pos/api/internal/ws"
)

// KotServicer defines the service methods needed by KOT handlers.
// Satisfied by *service.KotLifecycle.
type KotServicer interface {
	Confirm(ctx context.Context, kotID, branchID uuid.UUID) (*database.Kot, error)
	MarkReady(ctx context.Context, kotID, branchID uuid.UUID) (*database.Kot, error)
	UpdateItemStatus(ctx context.Context, req service.UpdateKotItemRequest) (*service.UpdateKotItemResult, error)
	Cancel(ctx context.Context, req service.CancelKotRequest) (*database.Kot, error)
	CancelItem(ctx context.Context, req service.CancelKotItemRequest) (*service.UpdateKotItemResult, error)
}

// KotStore defines the database methods needed by the KOT read
// endpoints. Satisfied by *database.Queries.
type KotStore interface {
	GetKot(ctx context.Context, arg database.GetKotParams) (database.Kot, error)
	ListKots(ctx context.Context, arg database.ListKotsParams) ([]database.Kot, error)
	ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]database.KotItem, error)
	ListKotCancelReasons(ctx context.Context) ([]database.KotCancelReason, error)
}

// KotHandler handles kitchen ticket endpoints.
type KotHandler struct {
	svc   KotServicer
	store KotStore
	hub   *ws.Hub
}

func NewKotHandler(svc KotServicer, store KotStore, hub *ws.Hub) *KotHandler {
	return &KotHandler{svc: svc, store: store, hub: hub}
}

func (h *KotHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/confirm", h.Confirm)
	r.Post("/{id}/ready", h.MarkReady)
	r.Post("/{id}/cancel", h.Cancel)
	r.Patch("/{id}/items/{itemID}/status", h.UpdateItemStatus)
	r.Post("/{id}/items/{itemID}/cancel", h.CancelItem)
}

// --- Request / Response types ---

type kotResponse struct {
	ID             uuid.UUID         `json:"id"`
	OrderID        uuid.UUID         `json:"order_id"`
	StationID      *string           `json:"station_id"`
	KotNumber      int64             `json:"kot_number"`
	TokenNumber    int64             `json:"token_number"`
	Status         string            `json:"status"`
	CancelReasonID *string           `json:"cancel_reason_id,omitempty"`
	CancelNote     *string           `json:"cancel_note,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Items          []kotItemResponse `json:"items,omitempty"`
}

type kotItemResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderItemID    uuid.UUID `json:"order_item_id"`
	Quantity       int32     `json:"quantity"`
	Status         string    `json:"status"`
	CancelReasonID *string   `json:"cancel_reason_id,omitempty"`
	CancelNote     *string   `json:"cancel_note,omitempty"`
}

type kotItemStatusRequest struct {
	Status string `json:"status"`
}

type cancelKotRequest struct {
	CancelReasonID string `json:"cancel_reason_id"`
	Note           string `json:"note"`
}

type kotListResponse struct {
	Kots   []kotResponse `json:"kots"`
	Limit  int32         `json:"limit"`
	Offset int32         `json:"offset"`
}

type cancelReasonResponse struct {
	ID        uuid.UUID `json:"id"`
	Reason    string    `json:"reason"`
	CancelKot bool      `json:"cancel_kot"`
}

type kotItemStatusResponse struct {
	Kot  kotResponse     `json:"kot"`
	Item kotItemResponse `json:"item"`
}

// --- Handlers ---

// List handles GET /kots with order/station/status filters.
func (h *KotHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	limit, offset := parsePagination(r)

	params := database.ListKotsParams{
		BranchID: claims.BranchID,
		Limit:    limit,
		Offset:   offset,
	}
	if s := r.URL.Query().Get("order_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order_id")
			return
		}
		params.OrderID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("station_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid station_id")
			return
		}
		params.StationID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	kots, err := h.store.ListKots(r.Context(), params)
	if err != nil {
		writeServiceError(w, "list kots", err)
		return
	}

	resp := make([]kotResponse, len(kots))
	for i, k := range kots {
		resp[i] = dbKotToResponse(k)
	}
	writeJSON(w, http.StatusOK, kotListResponse{Kots: resp, Limit: limit, Offset: offset})
}

// Get handles GET /kots/{id}: the ticket with its lines.
func (h *KotHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	kotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kot ID")
		return
	}

	kot, err := h.store.GetKot(r.Context(), database.GetKotParams{ID: kotID, BranchID: claims.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "kot not found")
			return
		}
		writeServiceError(w, "get kot", err)
		return
	}
	items, err := h.store.ListKotItemsByKot(r.Context(), kotID)
	if err != nil {
		writeServiceError(w, "list kot items", err)
		return
	}

	resp := dbKotToResponse(kot)
	resp.Items = make([]kotItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbKotItemToResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Confirm handles POST /kots/{id}/confirm.
func (h *KotHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "confirm kot", "kot.confirmed", h.svc.Confirm)
}

// MarkReady handles POST /kots/{id}/ready.
func (h *KotHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "mark kot ready", "kot.ready", h.svc.MarkReady)
}

func (h *KotHandler) transition(w http.ResponseWriter, r *http.Request, action, eventType string,
	fn func(ctx context.Context, kotID, branchID uuid.UUID) (*database.Kot, error)) {
	claims := middleware.ClaimsFromContext(r.Context())

	kotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kot ID")
		return
	}

	kot, err := fn(r.Context(), kotID, claims.BranchID)
	if err != nil {
		writeServiceError(w, action, err)
		return
	}

	resp := dbKotToResponse(*kot)
	publish(h.hub, claims.BranchID, eventType, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles POST /kots/{id}/cancel.
func (h *KotHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	kotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kot ID")
		return
	}

	var req cancelKotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kot, err := h.svc.Cancel(r.Context(), service.CancelKotRequest{
		KotID:          kotID,
		BranchID:       claims.BranchID,
		CancelReasonID: req.CancelReasonID,
		Note:           req.Note,
	})
	if err != nil {
		writeServiceError(w, "cancel kot", err)
		return
	}

	resp := dbKotToResponse(*kot)
	publish(h.hub, claims.BranchID, "kot.cancelled", resp)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateItemStatus handles PATCH /kots/{id}/items/{itemID}/status.
func (h *KotHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	kotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kot ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req kotItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeFieldErrors(w, http.StatusBadRequest, "status is required",
			map[string]string{"status": "status is required"})
		return
	}

	result, err := h.svc.UpdateItemStatus(r.Context(), service.UpdateKotItemRequest{
		KotID:    kotID,
		BranchID: claims.BranchID,
		ItemID:   itemID,
		Status:   req.Status,
	})
	if err != nil {
		writeServiceError(w, "update kot item status", err)
		return
	}

	resp := kotItemStatusResponse{
		Kot:  dbKotToResponse(result.Kot),
		Item: dbKotItemToResponse(result.Item),
	}
	publish(h.hub, claims.BranchID, "kot.item_updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// CancelItem handles POST /kots/{id}/items/{itemID}/cancel.
func (h *KotHandler) CancelItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	kotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid kot ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req cancelKotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CancelItem(r.Context(), service.CancelKotItemRequest{
		KotID:          kotID,
		BranchID:       claims.BranchID,
		ItemID:         itemID,
		CancelReasonID: req.CancelReasonID,
		Note:           req.Note,
	})
	if err != nil {
		writeServiceError(w, "cancel kot item", err)
		return
	}

	resp := kotItemStatusResponse{
		Kot:  dbKotToResponse(result.Kot),
		Item: dbKotItemToResponse(result.Item),
	}
	publish(h.hub, claims.BranchID, "kot.item_updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// ListCancelReasons handles GET /kot-cancel-reasons.
func (h *KotHandler) ListCancelReasons(w http.ResponseWriter, r *http.Request) {
	reasons, err := h.store.ListKotCancelReasons(r.Context())
	if err != nil {
		writeServiceError(w, "list cancel reasons", err)
		return
	}
	resp := make([]cancelReasonResponse, len(reasons))
	for i, reason := range reasons {
		resp[i] = cancelReasonResponse{ID: reason.ID, Reason: reason.Reason, CancelKot: reason.CancelKot}
	}
	writeJSON(w, http.StatusOK, resp)
}

func dbKotToResponse(k database.Kot) kotResponse {
	return kotResponse{
		ID:             k.ID,
		OrderID:        k.OrderID,
		StationID:      uuidPtr(k.StationID),
		KotNumber:      k.KotNumber,
		TokenNumber:    k.TokenNumber,
		Status:         k.Status,
		CancelReasonID: uuidPtr(k.CancelReasonID),
		CancelNote:     textPtr(k.CancelNote),
		CreatedAt:      k.CreatedAt,
		UpdatedAt:      k.UpdatedAt,
	}
}

func dbKotItemToResponse(item database.KotItem) kotItemResponse {
	return kotItemResponse{
		ID:             item.ID,
		OrderItemID:    item.OrderItemID,
		Quantity:       item.Quantity,
		Status:         item.Status,
		CancelReasonID: uuidPtr(item.CancelReasonID),
		CancelNote:     textPtr(item.CancelNote),
	}
}
