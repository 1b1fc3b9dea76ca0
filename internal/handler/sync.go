package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sajikan-pos/api/internal/middleware"
	"github.com/sajikan-pos/api/internal/service"
)

// SyncServicer defines the service methods needed by sync handlers.
// Satisfied by *service.SyncCoordinator.
type SyncServicer interface {
	Pull(ctx context.Context, req service.PullRequest) (*service.PullResult, error)
	Push(ctx context.Context, req service.PushRequest) (*service.PushResult, error)
	Poll(ctx context.Context, branchID uuid.UUID, types []string) (*service.PullResult, error)
	Status(ctx context.Context, branchID uuid.UUID) (*service.SyncStatus, error)
}

// SyncHandler handles the offline sync endpoints.
type SyncHandler struct {
	svc SyncServicer
}

func NewSyncHandler(svc SyncServicer) *SyncHandler {
	return &SyncHandler{svc: svc}
}

func (h *SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/pull", h.Pull)
	r.Post("/push", h.Push)
	r.Post("/poll", h.Poll)
	r.Get("/status", h.Status)
}

// --- Request / Response types ---

type pullRequest struct {
	Types  []string `json:"types"`
	Cursor string   `json:"cursor"`
}

type pollRequest struct {
	Types []string `json:"types"`
}

type pullResponse struct {
	Tables        []tableResponse   `json:"tables"`
	Orders        []orderResponse   `json:"orders"`
	Kots          []kotResponse     `json:"kots"`
	Payments      []paymentResponse `json:"payments"`
	SyncTimestamp time.Time         `json:"sync_timestamp"`
}

type pushRequest struct {
	Orders   []pushOrderRequest   `json:"orders"`
	Kots     []pushKotRequest     `json:"kots"`
	Payments []pushPaymentRequest `json:"payments"`
}

type pushOrderRequest struct {
	TempID string             `json:"temp_id"`
	Order  createOrderRequest `json:"order"`
}

type pushKotRequest struct {
	TempID  string `json:"temp_id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type pushPaymentRequest struct {
	TempID  string               `json:"temp_id"`
	OrderID string               `json:"order_id"`
	Payment recordPaymentRequest `json:"payment"`
}

type pushEntryResponse struct {
	TempID   string `json:"temp_id"`
	ServerID string `json:"server_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

type pushResponse struct {
	Orders   []pushEntryResponse `json:"orders"`
	Kots     []pushEntryResponse `json:"kots"`
	Payments []pushEntryResponse `json:"payments"`
}

type syncStatusResponse struct {
	ServerTime         time.Time  `json:"server_time"`
	LastOrderUpdated   *time.Time `json:"last_order_updated"`
	LastKotUpdated     *time.Time `json:"last_kot_updated"`
	LastPaymentUpdated *time.Time `json:"last_payment_updated"`
}

// --- Handlers ---

// Pull handles POST /sync/pull.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req pullRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	cursor := time.Time{}
	if req.Cursor != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Cursor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor, use RFC 3339")
			return
		}
		cursor = parsed
	}

	result, err := h.svc.Pull(r.Context(), service.PullRequest{
		BranchID: claims.BranchID,
		Types:    req.Types,
		Cursor:   cursor,
	})
	if err != nil {
		writeServiceError(w, "sync pull", err)
		return
	}
	writeJSON(w, http.StatusOK, toPullResponse(result))
}

// Push handles POST /sync/push.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcReq := service.PushRequest{
		BranchID: claims.BranchID,
		WaiterID: claims.UserID,
	}
	for _, po := range req.Orders {
		svcReq.Orders = append(svcReq.Orders, service.PushOrder{
			TempID: po.TempID,
			Order: service.CreateOrderRequest{
				OrderType:     po.Order.OrderType,
				TableID:       po.Order.TableID,
				LockToken:     po.Order.LockToken,
				NumberOfPax:   po.Order.NumberOfPax,
				DiscountType:  po.Order.DiscountType,
				DiscountValue: po.Order.DiscountValue,
				TaxAmount:     po.Order.TaxAmount,
				TipAmount:     po.Order.TipAmount,
				DeliveryFee:   po.Order.DeliveryFee,
				OrderNote:     po.Order.OrderNote,
				Items:         toServiceItems(po.Order.Items),
			},
		})
	}
	for _, pk := range req.Kots {
		svcReq.Kots = append(svcReq.Kots, service.PushKot{
			TempID:  pk.TempID,
			OrderID: pk.OrderID,
			Status:  pk.Status,
		})
	}
	for _, pp := range req.Payments {
		splits := make([]service.SplitComponent, len(pp.Payment.Splits))
		for i, leg := range pp.Payment.Splits {
			splits[i] = service.SplitComponent{Method: leg.Method, Amount: leg.Amount}
		}
		svcReq.Payments = append(svcReq.Payments, service.PushPayment{
			TempID:  pp.TempID,
			OrderID: pp.OrderID,
			Payment: service.RecordPaymentRequest{
				Method:    pp.Payment.Method,
				Amount:    pp.Payment.Amount,
				TipAmount: pp.Payment.TipAmount,
				Note:      pp.Payment.Note,
				Splits:    splits,
			},
		})
	}

	result, err := h.svc.Push(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, "sync push", err)
		return
	}

	resp := pushResponse{
		Orders:   toPushEntries(result.Orders),
		Kots:     toPushEntries(result.Kots),
		Payments: toPushEntries(result.Payments),
	}
	writeJSON(w, http.StatusOK, resp)
}

// Poll handles POST /sync/poll: a pull over the configured lookback.
func (h *SyncHandler) Poll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req pollRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.svc.Poll(r.Context(), claims.BranchID, req.Types)
	if err != nil {
		writeServiceError(w, "sync poll", err)
		return
	}
	writeJSON(w, http.StatusOK, toPullResponse(result))
}

// Status handles GET /sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	status, err := h.svc.Status(r.Context(), claims.BranchID)
	if err != nil {
		writeServiceError(w, "sync status", err)
		return
	}
	writeJSON(w, http.StatusOK, syncStatusResponse{
		ServerTime:         status.ServerTime,
		LastOrderUpdated:   status.LastOrderUpdated,
		LastKotUpdated:     status.LastKotUpdated,
		LastPaymentUpdated: status.LastPaymentUpdated,
	})
}

// --- Helpers ---

func toPullResponse(result *service.PullResult) pullResponse {
	resp := pullResponse{
		Tables:        make([]tableResponse, len(result.Tables)),
		Orders:        make([]orderResponse, len(result.Orders)),
		Kots:          make([]kotResponse, len(result.Kots)),
		Payments:      make([]paymentResponse, len(result.Payments)),
		SyncTimestamp: result.SyncTimestamp,
	}
	for i, t := range result.Tables {
		resp.Tables[i] = dbTableToResponse(t)
	}
	for i, o := range result.Orders {
		resp.Orders[i] = dbOrderToResponse(o)
	}
	for i, k := range result.Kots {
		resp.Kots[i] = dbKotToResponse(k)
	}
	for i, p := range result.Payments {
		resp.Payments[i] = dbPaymentToResponse(p)
	}
	return resp
}

func toPushEntries(entries []service.PushEntryResult) []pushEntryResponse {
	out := make([]pushEntryResponse, len(entries))
	for i, e := range entries {
		resp := pushEntryResponse{
			TempID: e.TempID,
			Status: e.Status,
			Error:  e.Error,
		}
		if e.ServerID != uuid.Nil {
			resp.ServerID = e.ServerID.String()
		}
		out[i] = resp
	}
	return out
}
