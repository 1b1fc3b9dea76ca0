package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// OrderStore defines the DB methods needed for order mutations.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int64, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error)

	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error
	SumOrderItemAmounts(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error)
	ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemModifier, error)
	DeleteOrderItemModifiers(ctx context.Context, orderItemID uuid.UUID) error

	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	GetMenuItemVariation(ctx context.Context, id uuid.UUID) (database.MenuItemVariation, error)
	GetModifierOption(ctx context.Context, id uuid.UUID) (database.ModifierOption, error)

	AcquireTableLock(ctx context.Context, arg database.AcquireTableLockParams) (database.Table, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)

	GetNextKotNumber(ctx context.Context, branchID uuid.UUID) (int64, error)
	GetNextKotTokenNumber(ctx context.Context, branchID uuid.UUID) (int64, error)
	CreateKot(ctx context.Context, arg database.CreateKotParams) (database.Kot, error)
	CreateKotItem(ctx context.Context, arg database.CreateKotItemParams) (database.KotItem, error)
	FindOpenKot(ctx context.Context, arg database.FindOpenKotParams) (database.Kot, error)
	CancelKotsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService handles the order write path. Every mutation that touches
// money runs in one transaction with the order row locked, so the stored
// subtotal, discount and total always agree with the item rows.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrderRequest is the validated input for creating an order.
// Money fields arrive as strings and are parsed with decimal.
type CreateOrderRequest struct {
	BranchID      uuid.UUID
	WaiterID      uuid.UUID
	OrderType     string
	TableID       string
	LockToken     string
	NumberOfPax   int32
	DiscountType  string
	DiscountValue string
	TaxAmount     string
	TipAmount     string
	DeliveryFee   string
	OrderNote     string
	Items         []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	MenuItemID        string
	VariationID       string
	Quantity          int32
	Note              string
	ModifierOptionIDs []string
}

// CreateOrderResult is the created order with its items and the kitchen
// tickets fanned out from them.
type CreateOrderResult struct {
	Order database.Order
	Items []OrderItemResult
	Kots  []KotResult
}

// OrderItemResult is an item with its modifier snapshots.
type OrderItemResult struct {
	Item      database.OrderItem
	Modifiers []database.OrderItemModifier
}

// KotResult is a kitchen ticket with its items.
type KotResult struct {
	Kot   database.Kot
	Items []database.KotItem
}

// resolvedItem is a priced, reference-checked line ready for insert.
type resolvedItem struct {
	menuItemID  uuid.UUID
	variationID pgtype.UUID
	stationID   pgtype.UUID
	quantity    int32
	note        string
	line        LinePrice
	modifiers   []resolvedModifier
}

type resolvedModifier struct {
	optionID uuid.UUID
	price    decimal.Decimal
}

// CreateOrder validates, prices and persists an order atomically,
// including the table lock grab for dine-in and the per-station KOT
// fan-out. Retries on the order_number unique race where concurrent
// transactions read the same MAX.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.NumberOfPax <= 0 {
		return nil, ErrInvalidPax
	}
	if req.OrderType == enum.OrderTypeDineIn && req.TableID == "" {
		return nil, ErrTableRequired
	}
	if req.DiscountType != "" && !isValidDiscountType(req.DiscountType) {
		return nil, ErrInvalidDiscount
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks for a unique violation (23505) on the
// per-branch order number.
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_branch_id_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Table: lock + occupancy, inside the tx ---
	tableID := pgtype.UUID{}
	if req.TableID != "" {
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, validation("invalid table_id")
		}
		if err := s.claimTable(ctx, store, req, tid); err != nil {
			return nil, err
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	// --- Order number ---
	nextNum, err := store.GetNextOrderNumber(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}
	formatted := fmt.Sprintf("SJK-%04d", nextNum)

	// --- Resolve and price items ---
	subtotal := decimal.Zero
	var resolved []resolvedItem
	for i, item := range req.Items {
		ri, err := s.resolveItem(ctx, store, req.BranchID, item)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
		subtotal = subtotal.Add(ri.line.Amount)
		resolved = append(resolved, *ri)
	}

	// --- Order-level amounts ---
	discountValue := decimal.Zero
	if req.DiscountType != "" {
		discountValue, err = decimal.NewFromString(req.DiscountValue)
		if err != nil {
			return nil, ErrInvalidDiscountValue
		}
	}
	discount, err := discountAmount(req.DiscountType, discountValue, subtotal)
	if err != nil {
		return nil, err
	}
	tax, err := parseAmount(req.TaxAmount)
	if err != nil {
		return nil, validation("invalid tax_amount")
	}
	tip, err := parseAmount(req.TipAmount)
	if err != nil {
		return nil, validation("invalid tip_amount")
	}
	fee, err := parseAmount(req.DeliveryFee)
	if err != nil {
		return nil, validation("invalid delivery_fee")
	}
	total := orderTotal(subtotal, discount, tax, tip, fee)

	discountType := pgtype.Text{}
	discountValueNum := pgtype.Numeric{}
	if req.DiscountType != "" {
		discountType = pgtype.Text{String: req.DiscountType, Valid: true}
		discountValueNum = decimalToNumeric(discountValue)
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BranchID:             req.BranchID,
		OrderNumber:          nextNum,
		FormattedOrderNumber: formatted,
		TableID:              tableID,
		OrderType:            req.OrderType,
		WaiterID:             req.WaiterID,
		NumberOfPax:          req.NumberOfPax,
		Status:               enum.OrderStatusPlaced,
		DiscountType:         discountType,
		DiscountValue:        discountValueNum,
		DiscountAmount:       decimalToNumeric(discount),
		TipAmount:            decimalToNumeric(tip),
		DeliveryFee:          decimalToNumeric(fee),
		TaxAmount:            decimalToNumeric(tax),
		Subtotal:             decimalToNumeric(subtotal),
		Total:                decimalToNumeric(total),
		OrderNote:            textOrNull(req.OrderNote),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Items + modifier snapshots ---
	var itemResults []OrderItemResult
	type stationItem struct {
		orderItemID uuid.UUID
		quantity    int32
	}
	stationItems := map[pgtype.UUID][]stationItem{}
	var stationOrder []pgtype.UUID

	for _, ri := range resolved {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     order.ID,
			MenuItemID:  ri.menuItemID,
			VariationID: ri.variationID,
			Quantity:    ri.quantity,
			UnitPrice:   decimalToNumeric(ri.line.UnitPrice),
			Amount:      decimalToNumeric(ri.line.Amount),
			Note:        textOrNull(ri.note),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var mods []database.OrderItemModifier
		for _, m := range ri.modifiers {
			oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
				OrderItemID:      item.ID,
				ModifierOptionID: m.optionID,
				Price:            decimalToNumeric(m.price),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item modifier: %w", err)
			}
			mods = append(mods, oim)
		}
		itemResults = append(itemResults, OrderItemResult{Item: item, Modifiers: mods})

		if _, seen := stationItems[ri.stationID]; !seen {
			stationOrder = append(stationOrder, ri.stationID)
		}
		stationItems[ri.stationID] = append(stationItems[ri.stationID], stationItem{
			orderItemID: item.ID,
			quantity:    ri.quantity,
		})
	}

	// --- KOT fan-out: one ticket per station ---
	var kotResults []KotResult
	for _, station := range stationOrder {
		kotNum, err := store.GetNextKotNumber(ctx, req.BranchID)
		if err != nil {
			return nil, fmt.Errorf("get next kot number: %w", err)
		}
		tokenNum, err := store.GetNextKotTokenNumber(ctx, req.BranchID)
		if err != nil {
			return nil, fmt.Errorf("get next kot token number: %w", err)
		}
		kot, err := store.CreateKot(ctx, database.CreateKotParams{
			BranchID:    req.BranchID,
			OrderID:     order.ID,
			StationID:   station,
			KotNumber:   kotNum,
			TokenNumber: tokenNum,
			Status:      enum.KotStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("create kot: %w", err)
		}
		var kotItems []database.KotItem
		for _, si := range stationItems[station] {
			ki, err := store.CreateKotItem(ctx, database.CreateKotItemParams{
				KotID:       kot.ID,
				OrderItemID: si.orderItemID,
				Quantity:    si.quantity,
				Status:      enum.KotItemStatusPending,
			})
			if err != nil {
				return nil, fmt.Errorf("create kot item: %w", err)
			}
			kotItems = append(kotItems, ki)
		}
		kotResults = append(kotResults, KotResult{Kot: kot, Items: kotItems})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CreateOrderResult{Order: order, Items: itemResults, Kots: kotResults}, nil
}

// claimTable takes the table lock for the waiter inside the create tx
// and rejects tables that already have an active order.
func (s *OrderService) claimTable(ctx context.Context, store OrderStore, req CreateOrderRequest, tableID uuid.UUID) error {
	token := uuid.New()
	if req.LockToken != "" {
		parsed, err := uuid.Parse(req.LockToken)
		if err != nil {
			return ErrInvalidLockToken
		}
		token = parsed
	}
	_, err := store.AcquireTableLock(ctx, database.AcquireTableLockParams{
		ID:       tableID,
		BranchID: req.BranchID,
		HolderID: req.WaiterID,
		Token:    token,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("acquire table lock: %w", err)
		}
		if _, gerr := store.GetTable(ctx, database.GetTableParams{ID: tableID, BranchID: req.BranchID}); gerr != nil {
			if errors.Is(gerr, pgx.ErrNoRows) {
				return ErrTableNotFound
			}
			return fmt.Errorf("get table: %w", gerr)
		}
		return ErrTableLocked
	}

	if _, err := store.GetActiveOrderByTable(ctx, tableID); err == nil {
		return ErrTableOccupied
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get active order: %w", err)
	}
	return nil
}

// resolveItem validates the catalog references and prices the line.
func (s *OrderService) resolveItem(ctx context.Context, store OrderStore, branchID uuid.UUID, item CreateOrderItemRequest) (*resolvedItem, error) {
	if item.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	menuItemID, err := uuid.Parse(item.MenuItemID)
	if err != nil {
		return nil, validation("invalid menu_item_id")
	}

	menuItem, err := store.GetMenuItem(ctx, database.GetMenuItemParams{ID: menuItemID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	if !menuItem.IsAvailable {
		return nil, ErrMenuItemUnavailable
	}

	variationID := pgtype.UUID{}
	variationPrice := decimal.Zero
	hasVariation := false
	if item.VariationID != "" {
		vid, err := uuid.Parse(item.VariationID)
		if err != nil {
			return nil, validation("invalid variation_id")
		}
		variation, err := store.GetMenuItemVariation(ctx, vid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrVariationNotFound
			}
			return nil, fmt.Errorf("get variation: %w", err)
		}
		if variation.MenuItemID != menuItemID {
			return nil, ErrVariationMismatch
		}
		variationID = pgtype.UUID{Bytes: vid, Valid: true}
		variationPrice = numericToDecimal(variation.Price)
		hasVariation = true
	}

	var modifiers []resolvedModifier
	var modifierPrices []decimal.Decimal
	for _, modID := range item.ModifierOptionIDs {
		mid, err := uuid.Parse(modID)
		if err != nil {
			return nil, validation("invalid modifier_option_id")
		}
		option, err := store.GetModifierOption(ctx, mid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrModifierNotFound
			}
			return nil, fmt.Errorf("get modifier option: %w", err)
		}
		price := numericToDecimal(option.Price)
		modifiers = append(modifiers, resolvedModifier{optionID: mid, price: price})
		modifierPrices = append(modifierPrices, price)
	}

	line := priceLine(numericToDecimal(menuItem.Price), variationPrice, hasVariation, modifierPrices, item.Quantity)
	return &resolvedItem{
		menuItemID:  menuItemID,
		variationID: variationID,
		stationID:   menuItem.StationID,
		quantity:    item.Quantity,
		note:        item.Note,
		line:        line,
		modifiers:   modifiers,
	}, nil
}

// AddItemRequest appends one line to an existing order.
type AddItemRequest struct {
	OrderID  uuid.UUID
	BranchID uuid.UUID
	Item     CreateOrderItemRequest
}

// AddItemResult is the new line plus the order with recomputed totals
// and the kitchen ticket the line landed on.
type AddItemResult struct {
	Order database.Order
	Item  OrderItemResult
	Kot   database.Kot
}

// AddItem appends a line and recomputes the order totals in one
// transaction. The line joins the station's open KOT, or a new ticket
// is cut when none is open.
func (s *OrderService) AddItem(ctx context.Context, req AddItemRequest) (*AddItemResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.OrderID, req.BranchID)
	if err != nil {
		return nil, err
	}

	ri, err := s.resolveItem(ctx, store, req.BranchID, req.Item)
	if err != nil {
		return nil, err
	}

	item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
		OrderID:     order.ID,
		MenuItemID:  ri.menuItemID,
		VariationID: ri.variationID,
		Quantity:    ri.quantity,
		UnitPrice:   decimalToNumeric(ri.line.UnitPrice),
		Amount:      decimalToNumeric(ri.line.Amount),
		Note:        textOrNull(ri.note),
	})
	if err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}
	var mods []database.OrderItemModifier
	for _, m := range ri.modifiers {
		oim, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
			OrderItemID:      item.ID,
			ModifierOptionID: m.optionID,
			Price:            decimalToNumeric(m.price),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item modifier: %w", err)
		}
		mods = append(mods, oim)
	}

	kot, err := s.appendToKot(ctx, store, order, ri.stationID, item.ID, ri.quantity)
	if err != nil {
		return nil, err
	}

	updated, err := s.recomputeTotals(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &AddItemResult{
		Order: *updated,
		Item:  OrderItemResult{Item: item, Modifiers: mods},
		Kot:   kot,
	}, nil
}

// appendToKot places an order item on the station's open ticket, cutting
// a new one when the station has none.
func (s *OrderService) appendToKot(ctx context.Context, store OrderStore, order database.Order, stationID pgtype.UUID, orderItemID uuid.UUID, quantity int32) (database.Kot, error) {
	kot, err := store.FindOpenKot(ctx, database.FindOpenKotParams{OrderID: order.ID, StationID: stationID})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Kot{}, fmt.Errorf("find open kot: %w", err)
		}
		kotNum, err := store.GetNextKotNumber(ctx, order.BranchID)
		if err != nil {
			return database.Kot{}, fmt.Errorf("get next kot number: %w", err)
		}
		tokenNum, err := store.GetNextKotTokenNumber(ctx, order.BranchID)
		if err != nil {
			return database.Kot{}, fmt.Errorf("get next kot token number: %w", err)
		}
		kot, err = store.CreateKot(ctx, database.CreateKotParams{
			BranchID:    order.BranchID,
			OrderID:     order.ID,
			StationID:   stationID,
			KotNumber:   kotNum,
			TokenNumber: tokenNum,
			Status:      enum.KotStatusPending,
		})
		if err != nil {
			return database.Kot{}, fmt.Errorf("create kot: %w", err)
		}
	}
	if _, err := store.CreateKotItem(ctx, database.CreateKotItemParams{
		KotID:       kot.ID,
		OrderItemID: orderItemID,
		Quantity:    quantity,
		Status:      enum.KotItemStatusPending,
	}); err != nil {
		return database.Kot{}, fmt.Errorf("create kot item: %w", err)
	}
	return kot, nil
}

// UpdateItemRequest changes the quantity, note or modifier set of a
// line. A nil ModifierOptionIDs leaves the modifier snapshot untouched;
// an empty slice clears it.
type UpdateItemRequest struct {
	OrderID           uuid.UUID
	BranchID          uuid.UUID
	ItemID            uuid.UUID
	Quantity          int32
	Note              string
	ModifierOptionIDs *[]string
}

// UpdateItem rewrites one line and recomputes the order totals. The base
// price is the intake snapshot; a new modifier set is re-priced from the
// catalog and folded back into the unit price.
func (s *OrderService) UpdateItem(ctx context.Context, req UpdateItemRequest) (*database.Order, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.OrderID, req.BranchID)
	if err != nil {
		return nil, err
	}

	item, err := store.GetOrderItem(ctx, database.GetOrderItemParams{ID: req.ItemID, OrderID: order.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("get order item: %w", err)
	}

	unit := numericToDecimal(item.UnitPrice)
	if req.ModifierOptionIDs != nil {
		unit, err = s.replaceModifiers(ctx, store, item, *req.ModifierOptionIDs)
		if err != nil {
			return nil, err
		}
	}

	amount := unit.Mul(decimal.NewFromInt32(req.Quantity))
	if _, err := store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
		ID:        item.ID,
		OrderID:   order.ID,
		Quantity:  req.Quantity,
		UnitPrice: decimalToNumeric(unit),
		Amount:    decimalToNumeric(amount),
		Note:      textOrNull(req.Note),
	}); err != nil {
		return nil, fmt.Errorf("update order item: %w", err)
	}

	updated, err := s.recomputeTotals(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// replaceModifiers swaps the line's modifier snapshots for a new set and
// returns the new unit price. The stored unit price already folds in the
// old modifier sum, so the base is recovered by subtracting it first.
func (s *OrderService) replaceModifiers(ctx context.Context, store OrderStore, item database.OrderItem, optionIDs []string) (decimal.Decimal, error) {
	existing, err := store.ListOrderItemModifiersByOrderItem(ctx, item.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list order item modifiers: %w", err)
	}
	base := numericToDecimal(item.UnitPrice)
	for _, m := range existing {
		base = base.Sub(numericToDecimal(m.Price))
	}

	// Resolve the whole new set before touching the old snapshots so a
	// bad reference leaves the line unchanged.
	var replacements []resolvedModifier
	for _, id := range optionIDs {
		mid, err := uuid.Parse(id)
		if err != nil {
			return decimal.Zero, validation("invalid modifier_option_id")
		}
		option, err := store.GetModifierOption(ctx, mid)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return decimal.Zero, ErrModifierNotFound
			}
			return decimal.Zero, fmt.Errorf("get modifier option: %w", err)
		}
		replacements = append(replacements, resolvedModifier{optionID: mid, price: numericToDecimal(option.Price)})
	}

	if err := store.DeleteOrderItemModifiers(ctx, item.ID); err != nil {
		return decimal.Zero, fmt.Errorf("delete order item modifiers: %w", err)
	}
	unit := base
	for _, m := range replacements {
		if _, err := store.CreateOrderItemModifier(ctx, database.CreateOrderItemModifierParams{
			OrderItemID:      item.ID,
			ModifierOptionID: m.optionID,
			Price:            decimalToNumeric(m.price),
		}); err != nil {
			return decimal.Zero, fmt.Errorf("create order item modifier: %w", err)
		}
		unit = unit.Add(m.price)
	}
	return unit, nil
}

// DeleteItemRequest removes a line from an order.
type DeleteItemRequest struct {
	OrderID  uuid.UUID
	BranchID uuid.UUID
	ItemID   uuid.UUID
}

// DeleteItem removes a line (and its modifier snapshots) and recomputes
// the totals in the same transaction.
func (s *OrderService) DeleteItem(ctx context.Context, req DeleteItemRequest) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.OrderID, req.BranchID)
	if err != nil {
		return nil, err
	}

	if err := store.DeleteOrderItemModifiers(ctx, req.ItemID); err != nil {
		return nil, fmt.Errorf("delete order item modifiers: %w", err)
	}
	if err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: req.ItemID, OrderID: order.ID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderItemNotFound
		}
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	updated, err := s.recomputeTotals(ctx, store, order)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return updated, nil
}

// UpdateOrderRequest changes order-level fields. Discount, tip and fee
// all trigger a recompute.
type UpdateOrderRequest struct {
	OrderID       uuid.UUID
	BranchID      uuid.UUID
	WaiterID      uuid.UUID
	NumberOfPax   int32
	DiscountType  string
	DiscountValue string
	TipAmount     string
	DeliveryFee   string
	OrderNote     string
}

// UpdateOrder rewrites the order-level fields and recomputes the totals.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*database.Order, error) {
	if req.NumberOfPax <= 0 {
		return nil, ErrInvalidPax
	}
	if req.DiscountType != "" && !isValidDiscountType(req.DiscountType) {
		return nil, ErrInvalidDiscount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := s.lockEditableOrder(ctx, store, req.OrderID, req.BranchID)
	if err != nil {
		return nil, err
	}

	subtotalNum, err := store.SumOrderItemAmounts(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum order item amounts: %w", err)
	}
	subtotal := numericToDecimal(subtotalNum)

	discountValue := decimal.Zero
	if req.DiscountType != "" {
		discountValue, err = decimal.NewFromString(req.DiscountValue)
		if err != nil {
			return nil, ErrInvalidDiscountValue
		}
	}
	discount, err := discountAmount(req.DiscountType, discountValue, subtotal)
	if err != nil {
		return nil, err
	}
	tip, err := parseAmount(req.TipAmount)
	if err != nil {
		return nil, validation("invalid tip_amount")
	}
	fee, err := parseAmount(req.DeliveryFee)
	if err != nil {
		return nil, validation("invalid delivery_fee")
	}
	total := orderTotal(subtotal, discount, numericToDecimal(order.TaxAmount), tip, fee)

	discountType := pgtype.Text{}
	discountValueNum := pgtype.Numeric{}
	if req.DiscountType != "" {
		discountType = pgtype.Text{String: req.DiscountType, Valid: true}
		discountValueNum = decimalToNumeric(discountValue)
	}

	updated, err := store.UpdateOrderDetails(ctx, database.UpdateOrderDetailsParams{
		ID:             order.ID,
		WaiterID:       req.WaiterID,
		NumberOfPax:    req.NumberOfPax,
		DiscountType:   discountType,
		DiscountValue:  discountValueNum,
		DiscountAmount: decimalToNumeric(discount),
		TipAmount:      decimalToNumeric(tip),
		DeliveryFee:    decimalToNumeric(fee),
		Subtotal:       decimalToNumeric(subtotal),
		Total:          decimalToNumeric(total),
		OrderNote:      textOrNull(req.OrderNote),
	})
	if err != nil {
		return nil, fmt.Errorf("update order details: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// CancelOrderRequest voids an order.
type CancelOrderRequest struct {
	OrderID  uuid.UUID
	BranchID uuid.UUID
	Note     string
}

// CancelOrder cancels the order and cascades the cancellation to every
// not-yet-cancelled kitchen ticket. Served and already-cancelled orders
// are rejected.
func (s *OrderService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusServed || order.Status == enum.OrderStatusCancelled {
		return nil, ErrOrderNotCancellable
	}

	note := order.OrderNote
	if req.Note != "" {
		note = pgtype.Text{String: req.Note, Valid: true}
	}
	cancelled, err := store.CancelOrder(ctx, database.CancelOrderParams{
		ID:        order.ID,
		BranchID:  req.BranchID,
		OrderNote: note,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotCancellable
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if _, err := store.CancelKotsByOrder(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("cancel kots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &cancelled, nil
}

// orderTransitions is the forward path of the order state machine.
// Cancellation is handled separately and allowed from any non-served,
// non-cancelled state.
var orderTransitions = map[string]string{
	enum.OrderStatusPlaced:         enum.OrderStatusConfirmed,
	enum.OrderStatusConfirmed:      enum.OrderStatusPreparing,
	enum.OrderStatusPreparing:      enum.OrderStatusReadyForPickup,
	enum.OrderStatusReadyForPickup: enum.OrderStatusServed,
}

// UpdateStatusRequest advances the order state machine.
type UpdateStatusRequest struct {
	OrderID  uuid.UUID
	BranchID uuid.UUID
	Status   string
}

// UpdateOrderStatus advances the order one step along the forward path,
// or cancels it. The store-level compare-and-swap rejects a concurrent
// transition that slips in between read and write.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req UpdateStatusRequest) (*database.Order, error) {
	if !isValidOrderStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.Status == enum.OrderStatusCancelled {
		return s.CancelOrder(ctx, CancelOrderRequest{OrderID: req.OrderID, BranchID: req.BranchID})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if orderTransitions[order.Status] != req.Status {
		return nil, ErrInvalidTransition
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         order.ID,
		BranchID:   req.BranchID,
		Status:     req.Status,
		FromStatus: order.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &updated, nil
}

// lockEditableOrder loads the order with a row lock and rejects orders
// that can no longer be modified.
func (s *OrderService) lockEditableOrder(ctx context.Context, store OrderStore, orderID, branchID uuid.UUID) (database.Order, error) {
	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusServed || order.Status == enum.OrderStatusCancelled {
		return database.Order{}, ErrOrderNotEditable
	}
	return order, nil
}

// recomputeTotals re-derives subtotal, discount and total from the item
// rows and persists them. The status guard in the UPDATE turns a
// concurrent settle or cancel into ErrOrderNotEditable.
func (s *OrderService) recomputeTotals(ctx context.Context, store OrderStore, order database.Order) (*database.Order, error) {
	subtotalNum, err := store.SumOrderItemAmounts(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum order item amounts: %w", err)
	}
	subtotal := numericToDecimal(subtotalNum)

	discountType := ""
	if order.DiscountType.Valid {
		discountType = order.DiscountType.String
	}
	discount, err := discountAmount(discountType, numericToDecimal(order.DiscountValue), subtotal)
	if err != nil {
		return nil, err
	}
	total := orderTotal(subtotal, discount,
		numericToDecimal(order.TaxAmount),
		numericToDecimal(order.TipAmount),
		numericToDecimal(order.DeliveryFee),
	)

	updated, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:             order.ID,
		Subtotal:       decimalToNumeric(subtotal),
		DiscountAmount: decimalToNumeric(discount),
		Total:          decimalToNumeric(total),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotEditable
		}
		return nil, fmt.Errorf("update order totals: %w", err)
	}
	return &updated, nil
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeout, enum.OrderTypeDelivery:
		return nil
	}
	return ErrInvalidOrderType
}

func isValidDiscountType(s string) bool {
	switch s {
	case enum.DiscountTypePercent, enum.DiscountTypeFixed:
		return true
	}
	return false
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPlaced, enum.OrderStatusConfirmed, enum.OrderStatusPreparing,
		enum.OrderStatusReadyForPickup, enum.OrderStatusServed, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// parseAmount parses an optional non-negative money string; empty means
// zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative amount")
	}
	return d, nil
}
