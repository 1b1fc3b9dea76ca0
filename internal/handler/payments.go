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

// PaymentServicer defines the service methods needed by payment
// handlers. Satisfied by *service.PaymentLedger.
type PaymentServicer interface {
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.RecordPaymentResult, error)
}

// PaymentStore defines the database methods needed by the payment read
// endpoints. Satisfied by *database.Queries.
type PaymentStore interface {
	GetPayment(ctx context.Context, arg database.GetPaymentParams) (database.Payment, error)
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
	hub   *ws.Hub
}

func NewPaymentHandler(svc PaymentServicer, store PaymentStore, hub *ws.Hub) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store, hub: hub}
}

func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Record)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type recordPaymentRequest struct {
	OrderID   string                `json:"order_id"`
	Method    string                `json:"method"`
	Amount    string                `json:"amount"`
	TipAmount string                `json:"tip_amount"`
	Note      string                `json:"note"`
	Splits    []splitPaymentRequest `json:"splits"`
}

type splitPaymentRequest struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	TipAmount string    `json:"tip_amount"`
	Note      *string   `json:"note"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type recordPaymentResponse struct {
	Order     orderResponse     `json:"order"`
	Payments  []paymentResponse `json:"payments"`
	Paid      string            `json:"paid"`
	Remaining string            `json:"remaining"`
	Settled   bool              `json:"settled"`
}

type paymentListResponse struct {
	Payments []paymentResponse `json:"payments"`
	Limit    int32             `json:"limit"`
	Offset   int32             `json:"offset"`
}

// --- Handlers ---

// Record handles POST /payments.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}

	splits := make([]service.SplitComponent, len(req.Splits))
	for i, leg := range req.Splits {
		splits[i] = service.SplitComponent{Method: leg.Method, Amount: leg.Amount}
	}

	result, err := h.svc.RecordPayment(r.Context(), service.RecordPaymentRequest{
		OrderID:   orderID,
		BranchID:  claims.BranchID,
		CreatedBy: claims.UserID,
		Method:    req.Method,
		Amount:    req.Amount,
		TipAmount: req.TipAmount,
		Note:      req.Note,
		Splits:    splits,
	})
	if err != nil {
		writeServiceError(w, "record payment", err)
		return
	}

	paymentResps := make([]paymentResponse, len(result.Payments))
	for i, p := range result.Payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}
	resp := recordPaymentResponse{
		Order:     dbOrderToResponse(result.Order),
		Payments:  paymentResps,
		Paid:      result.Paid.StringFixed(2),
		Remaining: result.Remaining.StringFixed(2),
		Settled:   result.Settled,
	}
	publish(h.hub, claims.BranchID, "payment.recorded", resp)
	if result.Settled {
		publish(h.hub, claims.BranchID, "order.status_changed", resp.Order)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /payments with order/method filters.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	limit, offset := parsePagination(r)

	params := database.ListPaymentsParams{
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
	if s := r.URL.Query().Get("method"); s != "" {
		params.Method = pgtype.Text{String: s, Valid: true}
	}

	payments, err := h.store.ListPayments(r.Context(), params)
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dbPaymentToResponse(p)
	}
	writeJSON(w, http.StatusOK, paymentListResponse{Payments: resp, Limit: limit, Offset: offset})
}

// Get handles GET /payments/{id}.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	paymentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payment ID")
		return
	}

	payment, err := h.store.GetPayment(r.Context(), database.GetPaymentParams{ID: paymentID, BranchID: claims.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		writeServiceError(w, "get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, dbPaymentToResponse(payment))
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Method:    p.Method,
		Amount:    numericToString(p.Amount),
		TipAmount: numericToString(p.TipAmount),
		Note:      textPtr(p.Note),
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}
