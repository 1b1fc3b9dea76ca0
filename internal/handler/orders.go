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

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AddItem(ctx context.Context, req service.AddItemRequest) (*service.AddItemResult, error)
	UpdateItem(ctx context.Context, req service.UpdateItemRequest) (*database.Order, error)
	DeleteItem(ctx context.Context, req service.DeleteItemRequest) (*database.Order, error)
	UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*database.Order, error)
	CancelOrder(ctx context.Context, req service.CancelOrderRequest) (*database.Order, error)
	UpdateOrderStatus(ctx context.Context, req service.UpdateStatusRequest) (*database.Order, error)
}

// OrderStore defines the database methods needed by the order read
// endpoints. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemModifier, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// BalanceReader is the payment position read used by the receipt
// endpoint. Satisfied by *service.PaymentLedger.
type BalanceReader interface {
	OutstandingBalance(ctx context.Context, orderID, branchID uuid.UUID) (*service.Balance, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc     OrderServicer
	store   OrderStore
	balance BalanceReader
	hub     *ws.Hub
}

func NewOrderHandler(svc OrderServicer, store OrderStore, balance BalanceReader, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, balance: balance, hub: hub}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/items", h.AddItem)
	r.Put("/{id}/items/{itemID}", h.UpdateItem)
	r.Delete("/{id}/items/{itemID}", h.DeleteItem)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
	r.Get("/{id}/receipt", h.Receipt)
	r.Get("/{id}/payments", h.Payments)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType     string                   `json:"order_type"`
	TableID       string                   `json:"table_id"`
	LockToken     string                   `json:"lock_token"`
	NumberOfPax   int32                    `json:"number_of_pax"`
	DiscountType  string                   `json:"discount_type"`
	DiscountValue string                   `json:"discount_value"`
	TaxAmount     string                   `json:"tax_amount"`
	TipAmount     string                   `json:"tip_amount"`
	DeliveryFee   string                   `json:"delivery_fee"`
	OrderNote     string                   `json:"order_note"`
	Items         []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID        string   `json:"menu_item_id"`
	VariationID       string   `json:"variation_id"`
	Quantity          int32    `json:"quantity"`
	Note              string   `json:"note"`
	ModifierOptionIDs []string `json:"modifier_option_ids"`
}

type updateOrderRequest struct {
	NumberOfPax   int32  `json:"number_of_pax"`
	DiscountType  string `json:"discount_type"`
	DiscountValue string `json:"discount_value"`
	TipAmount     string `json:"tip_amount"`
	DeliveryFee   string `json:"delivery_fee"`
	OrderNote     string `json:"order_note"`
}

type updateOrderItemRequest struct {
	Quantity          int32     `json:"quantity"`
	Note              string    `json:"note"`
	ModifierOptionIDs *[]string `json:"modifier_option_ids"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type cancelOrderRequest struct {
	Note string `json:"note"`
}

type orderResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderNumber    string    `json:"order_number"`
	TableID        *string   `json:"table_id"`
	OrderType      string    `json:"order_type"`
	WaiterID       uuid.UUID `json:"waiter_id"`
	NumberOfPax    int32     `json:"number_of_pax"`
	Status         string    `json:"status"`
	DiscountType   *string   `json:"discount_type"`
	DiscountValue  *string   `json:"discount_value"`
	DiscountAmount string    `json:"discount_amount"`
	TipAmount      string    `json:"tip_amount"`
	DeliveryFee    string    `json:"delivery_fee"`
	TaxAmount      string    `json:"tax_amount"`
	Subtotal       string    `json:"subtotal"`
	Total          string    `json:"total"`
	OrderNote      *string   `json:"order_note"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ID          uuid.UUID               `json:"id"`
	MenuItemID  uuid.UUID               `json:"menu_item_id"`
	VariationID *string                 `json:"variation_id"`
	Quantity    int32                   `json:"quantity"`
	UnitPrice   string                  `json:"unit_price"`
	Amount      string                  `json:"amount"`
	Note        *string                 `json:"note"`
	Modifiers   []orderModifierResponse `json:"modifiers"`
}

type orderModifierResponse struct {
	ID               uuid.UUID `json:"id"`
	ModifierOptionID uuid.UUID `json:"modifier_option_id"`
	Price            string    `json:"price"`
}

type orderDetailResponse struct {
	orderResponse
	Items    []orderItemResponse `json:"items"`
	Payments []paymentResponse   `json:"payments"`
}

type createOrderResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
	Kots  []kotResponse       `json:"kots"`
}

type addItemResponse struct {
	Order orderResponse     `json:"order"`
	Item  orderItemResponse `json:"item"`
	Kot   kotResponse       `json:"kot"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

type receiptResponse struct {
	Order     orderResponse       `json:"order"`
	Items     []orderItemResponse `json:"items"`
	Payments  []paymentResponse   `json:"payments"`
	Paid      string              `json:"paid"`
	Remaining string              `json:"remaining"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:      claims.BranchID,
		WaiterID:      claims.UserID,
		OrderType:     req.OrderType,
		TableID:       req.TableID,
		LockToken:     req.LockToken,
		NumberOfPax:   req.NumberOfPax,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		TaxAmount:     req.TaxAmount,
		TipAmount:     req.TipAmount,
		DeliveryFee:   req.DeliveryFee,
		OrderNote:     req.OrderNote,
		Items:         toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	resp := toCreateOrderResponse(result)
	publish(h.hub, claims.BranchID, "order.created", resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders with status/table/waiter/date filters.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		BranchID: claims.BranchID,
		Limit:    limit,
		Offset:   offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid table_id")
			return
		}
		params.TableID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("waiter_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid waiter_id")
			return
		}
		params.WaiterID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}: the order with items and payments.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, BranchID: claims.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeServiceError(w, "get order", err)
		return
	}

	items, err := h.loadItems(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list order items", err)
		return
	}
	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list payments", err)
		return
	}
	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: dbOrderToResponse(order),
		Items:         items,
		Payments:      paymentResps,
	})
}

// Update handles PUT /orders/{id}: order-level fields plus recompute.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), service.UpdateOrderRequest{
		OrderID:       orderID,
		BranchID:      claims.BranchID,
		WaiterID:      claims.UserID,
		NumberOfPax:   req.NumberOfPax,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		TipAmount:     req.TipAmount,
		DeliveryFee:   req.DeliveryFee,
		OrderNote:     req.OrderNote,
	})
	if err != nil {
		writeServiceError(w, "update order", err)
		return
	}

	resp := dbOrderToResponse(*order)
	publish(h.hub, claims.BranchID, "order.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// AddItem handles POST /orders/{id}/items.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req createOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.AddItem(r.Context(), service.AddItemRequest{
		OrderID:  orderID,
		BranchID: claims.BranchID,
		Item: service.CreateOrderItemRequest{
			MenuItemID:        req.MenuItemID,
			VariationID:       req.VariationID,
			Quantity:          req.Quantity,
			Note:              req.Note,
			ModifierOptionIDs: req.ModifierOptionIDs,
		},
	})
	if err != nil {
		writeServiceError(w, "add order item", err)
		return
	}

	resp := addItemResponse{
		Order: dbOrderToResponse(result.Order),
		Item:  toOrderItemResponse(result.Item),
		Kot:   dbKotToResponse(result.Kot),
	}
	publish(h.hub, claims.BranchID, "order.updated", resp.Order)
	writeJSON(w, http.StatusCreated, resp)
}

// UpdateItem handles PUT /orders/{id}/items/{itemID}.
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req updateOrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.UpdateItem(r.Context(), service.UpdateItemRequest{
		OrderID:           orderID,
		BranchID:          claims.BranchID,
		ItemID:            itemID,
		Quantity:          req.Quantity,
		Note:              req.Note,
		ModifierOptionIDs: req.ModifierOptionIDs,
	})
	if err != nil {
		writeServiceError(w, "update order item", err)
		return
	}

	resp := dbOrderToResponse(*order)
	publish(h.hub, claims.BranchID, "order.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// DeleteItem handles DELETE /orders/{id}/items/{itemID}.
func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	order, err := h.svc.DeleteItem(r.Context(), service.DeleteItemRequest{
		OrderID:  orderID,
		BranchID: claims.BranchID,
		ItemID:   itemID,
	})
	if err != nil {
		writeServiceError(w, "delete order item", err)
		return
	}

	resp := dbOrderToResponse(*order)
	publish(h.hub, claims.BranchID, "order.updated", resp)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeFieldErrors(w, http.StatusBadRequest, "status is required",
			map[string]string{"status": "status is required"})
		return
	}

	order, err := h.svc.UpdateOrderStatus(r.Context(), service.UpdateStatusRequest{
		OrderID:  orderID,
		BranchID: claims.BranchID,
		Status:   req.Status,
	})
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}

	resp := dbOrderToResponse(*order)
	publish(h.hub, claims.BranchID, "order.status_changed", resp)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req cancelOrderRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	order, err := h.svc.CancelOrder(r.Context(), service.CancelOrderRequest{
		OrderID:  orderID,
		BranchID: claims.BranchID,
		Note:     req.Note,
	})
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	resp := dbOrderToResponse(*order)
	publish(h.hub, claims.BranchID, "order.cancelled", resp)
	writeJSON(w, http.StatusOK, resp)
}

// Receipt handles GET /orders/{id}/receipt: order, items and payment
// position in one read.
func (h *OrderHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	balance, err := h.balance.OutstandingBalance(r.Context(), orderID, claims.BranchID)
	if err != nil {
		writeServiceError(w, "get receipt", err)
		return
	}
	items, err := h.loadItems(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list order items", err)
		return
	}

	paymentResps := make([]paymentResponse, len(balance.Payments))
	for i, p := range balance.Payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Order:     dbOrderToResponse(balance.Order),
		Items:     items,
		Payments:  paymentResps,
		Paid:      balance.Paid.StringFixed(2),
		Remaining: balance.Remaining.StringFixed(2),
	})
}

// Payments handles GET /orders/{id}/payments.
func (h *OrderHandler) Payments(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	balance, err := h.balance.OutstandingBalance(r.Context(), orderID, claims.BranchID)
	if err != nil {
		writeServiceError(w, "list order payments", err)
		return
	}

	paymentResps := make([]paymentResponse, len(balance.Payments))
	for i, p := range balance.Payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}
	writeJSON(w, http.StatusOK, orderPaymentsResponse{
		Payments:  paymentResps,
		Paid:      balance.Paid.StringFixed(2),
		Remaining: balance.Remaining.StringFixed(2),
	})
}

type orderPaymentsResponse struct {
	Payments  []paymentResponse `json:"payments"`
	Paid      string            `json:"paid"`
	Remaining string            `json:"remaining"`
}

// --- Helpers ---

func (h *OrderHandler) loadItems(ctx context.Context, orderID uuid.UUID) ([]orderItemResponse, error) {
	items, err := h.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resps := make([]orderItemResponse, len(items))
	for i, item := range items {
		mods, err := h.store.ListOrderItemModifiersByOrderItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		resps[i] = toOrderItemResponse(service.OrderItemResult{Item: item, Modifiers: mods})
	}
	return resps, nil
}

func toServiceItems(items []createOrderItemRequest) []service.CreateOrderItemRequest {
	out := make([]service.CreateOrderItemRequest, len(items))
	for i, item := range items {
		out[i] = service.CreateOrderItemRequest{
			MenuItemID:        item.MenuItemID,
			VariationID:       item.VariationID,
			Quantity:          item.Quantity,
			Note:              item.Note,
			ModifierOptionIDs: item.ModifierOptionIDs,
		}
	}
	return out
}

func toCreateOrderResponse(result *service.CreateOrderResult) createOrderResponse {
	resp := createOrderResponse{orderResponse: dbOrderToResponse(result.Order)}
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, ir := range result.Items {
		resp.Items[i] = toOrderItemResponse(ir)
	}
	resp.Kots = make([]kotResponse, len(result.Kots))
	for i, kr := range result.Kots {
		k := dbKotToResponse(kr.Kot)
		k.Items = make([]kotItemResponse, len(kr.Items))
		for j, ki := range kr.Items {
			k.Items[j] = dbKotItemToResponse(ki)
		}
		resp.Kots[i] = k
	}
	return resp
}

func toOrderItemResponse(ir service.OrderItemResult) orderItemResponse {
	item := ir.Item
	resp := orderItemResponse{
		ID:          item.ID,
		MenuItemID:  item.MenuItemID,
		VariationID: uuidPtr(item.VariationID),
		Quantity:    item.Quantity,
		UnitPrice:   numericToString(item.UnitPrice),
		Amount:      numericToString(item.Amount),
		Note:        textPtr(item.Note),
	}
	resp.Modifiers = make([]orderModifierResponse, len(ir.Modifiers))
	for j, mod := range ir.Modifiers {
		resp.Modifiers[j] = orderModifierResponse{
			ID:               mod.ID,
			ModifierOptionID: mod.ModifierOptionID,
			Price:            numericToString(mod.Price),
		}
	}
	return resp
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		OrderNumber:    o.FormattedOrderNumber,
		TableID:        uuidPtr(o.TableID),
		OrderType:      o.OrderType,
		WaiterID:       o.WaiterID,
		NumberOfPax:    o.NumberOfPax,
		Status:         o.Status,
		DiscountType:   textPtr(o.DiscountType),
		DiscountValue:  numericPtr(o.DiscountValue),
		DiscountAmount: numericToString(o.DiscountAmount),
		TipAmount:      numericToString(o.TipAmount),
		DeliveryFee:    numericToString(o.DeliveryFee),
		TaxAmount:      numericToString(o.TaxAmount),
		Subtotal:       numericToString(o.Subtotal),
		Total:          numericToString(o.Total),
		OrderNote:      textPtr(o.OrderNote),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func numericPtr(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericToString(n)
	return &s
}
