package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// mockTx implements pgx.Tx with only the methods the services touch.
// The unused methods panic so accidental calls surface in tests.
type mockTx struct {
	commitErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// memStore is an in-memory stand-in for *database.Queries. It mirrors
// the SQL semantics the services depend on (conditional updates return
// pgx.ErrNoRows, sums aggregate, cursors compare strictly greater) so
// the service tests exercise real flows without a database.
type memStore struct {
	mu sync.Mutex

	branchID uuid.UUID

	menuItems     map[uuid.UUID]database.MenuItem
	variations    map[uuid.UUID]database.MenuItemVariation
	modifiers     map[uuid.UUID]database.ModifierOption
	cancelReasons map[uuid.UUID]database.KotCancelReason
	tables        map[uuid.UUID]database.Table
	orders        map[uuid.UUID]database.Order
	orderItems    map[uuid.UUID]database.OrderItem
	itemModifiers map[uuid.UUID][]database.OrderItemModifier
	kots          map[uuid.UUID]database.Kot
	kotItems      map[uuid.UUID]database.KotItem
	payments      map[uuid.UUID]database.Payment
	waiterReqs    map[uuid.UUID]database.WaiterRequest
	syncMappings  map[string]database.SyncMapping

	// failNextCreateOrder is consumed by the next CreateOrder call.
	failNextCreateOrder error
}

func newMemStore(branchID uuid.UUID) *memStore {
	return &memStore{
		branchID:      branchID,
		menuItems:     map[uuid.UUID]database.MenuItem{},
		variations:    map[uuid.UUID]database.MenuItemVariation{},
		modifiers:     map[uuid.UUID]database.ModifierOption{},
		cancelReasons: map[uuid.UUID]database.KotCancelReason{},
		tables:        map[uuid.UUID]database.Table{},
		orders:        map[uuid.UUID]database.Order{},
		orderItems:    map[uuid.UUID]database.OrderItem{},
		itemModifiers: map[uuid.UUID][]database.OrderItemModifier{},
		kots:          map[uuid.UUID]database.Kot{},
		kotItems:      map[uuid.UUID]database.KotItem{},
		payments:      map[uuid.UUID]database.Payment{},
		waiterReqs:    map[uuid.UUID]database.WaiterRequest{},
		syncMappings:  map[string]database.SyncMapping{},
	}
}

func (m *memStore) addMenuItem(price string, stationID pgtype.UUID) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.menuItems[id] = database.MenuItem{
		ID:          id,
		BranchID:    m.branchID,
		ItemName:    "item-" + id.String()[:8],
		Price:       makeNumeric(price),
		StationID:   stationID,
		IsAvailable: true,
	}
	return id
}

func (m *memStore) addVariation(menuItemID uuid.UUID, price string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.variations[id] = database.MenuItemVariation{
		ID:         id,
		MenuItemID: menuItemID,
		Name:       "large",
		Price:      makeNumeric(price),
	}
	return id
}

func (m *memStore) addModifier(price string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.modifiers[id] = database.ModifierOption{ID: id, Name: "extra", Price: makeNumeric(price)}
	return id
}

func (m *memStore) addCancelReason(reason string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.cancelReasons[id] = database.KotCancelReason{ID: id, Reason: reason}
	return id
}

func (m *memStore) addTable() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.tables[id] = database.Table{ID: id, BranchID: m.branchID, TableCode: "T1", Capacity: 4}
	return id
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(t *testing.T, n pgtype.Numeric, expected string) {
	t.Helper()
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	if !d.Equal(exp) {
		t.Fatalf("amount = %s, want %s", d, exp)
	}
}

// --- Tables ---

func (m *memStore) GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[arg.ID]
	if !ok || table.BranchID != arg.BranchID {
		return database.Table{}, pgx.ErrNoRows
	}
	return table, nil
}

func (m *memStore) ListTables(ctx context.Context, arg database.ListTablesParams) ([]database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Table
	for _, t := range m.tables {
		if t.BranchID == arg.BranchID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListAreas(ctx context.Context, branchID uuid.UUID) ([]database.Area, error) {
	return nil, nil
}

func (m *memStore) AcquireTableLock(ctx context.Context, arg database.AcquireTableLockParams) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[arg.ID]
	if !ok || table.BranchID != arg.BranchID {
		return database.Table{}, pgx.ErrNoRows
	}
	free := !table.LockedBy.Valid
	sameHolder := table.LockedBy.Valid && table.LockedBy.Bytes == arg.HolderID
	expired := arg.ExpiredBefore.Valid && table.LockedAt.Valid && table.LockedAt.Time.Before(arg.ExpiredBefore.Time)
	if !free && !sameHolder && !expired {
		return database.Table{}, pgx.ErrNoRows
	}
	table.LockedBy = pgtype.UUID{Bytes: arg.HolderID, Valid: true}
	table.LockToken = pgtype.UUID{Bytes: arg.Token, Valid: true}
	table.LockedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	table.UpdatedAt = time.Now()
	m.tables[arg.ID] = table
	return table, nil
}

func (m *memStore) ReleaseTableLock(ctx context.Context, arg database.ReleaseTableLockParams) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[arg.ID]
	if !ok || !table.LockedBy.Valid || table.LockedBy.Bytes != arg.HolderID || table.LockToken.Bytes != arg.Token {
		return database.Table{}, pgx.ErrNoRows
	}
	table.LockedBy = pgtype.UUID{}
	table.LockToken = pgtype.UUID{}
	table.LockedAt = pgtype.Timestamptz{}
	table.UpdatedAt = time.Now()
	m.tables[arg.ID] = table
	return table, nil
}

func (m *memStore) ForceReleaseTableLock(ctx context.Context, arg database.ForceReleaseTableLockParams) (database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[arg.ID]
	if !ok {
		return database.Table{}, pgx.ErrNoRows
	}
	table.LockedBy = pgtype.UUID{}
	table.LockToken = pgtype.UUID{}
	table.LockedAt = pgtype.Timestamptz{}
	m.tables[arg.ID] = table
	return table, nil
}

// --- Menu ---

func (m *memStore) GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.menuItems[arg.ID]
	if !ok || item.BranchID != arg.BranchID {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) GetMenuItemVariation(ctx context.Context, id uuid.UUID) (database.MenuItemVariation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variations[id]
	if !ok {
		return database.MenuItemVariation{}, pgx.ErrNoRows
	}
	return v, nil
}

func (m *memStore) GetModifierOption(ctx context.Context, id uuid.UUID) (database.ModifierOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod, ok := m.modifiers[id]
	if !ok {
		return database.ModifierOption{}, pgx.ErrNoRows
	}
	return mod, nil
}

func (m *memStore) GetKotCancelReason(ctx context.Context, id uuid.UUID) (database.KotCancelReason, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.cancelReasons[id]
	if !ok {
		return database.KotCancelReason{}, pgx.ErrNoRows
	}
	return r, nil
}

// --- Orders ---

func (m *memStore) GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, o := range m.orders {
		if o.BranchID == branchID && o.OrderNumber > max {
			max = o.OrderNumber
		}
	}
	return max + 1, nil
}

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextCreateOrder; err != nil {
		m.failNextCreateOrder = nil
		return database.Order{}, err
	}
	order := database.Order{
		ID:                   uuid.New(),
		BranchID:             arg.BranchID,
		OrderNumber:          arg.OrderNumber,
		FormattedOrderNumber: arg.FormattedOrderNumber,
		TableID:              arg.TableID,
		OrderType:            arg.OrderType,
		WaiterID:             arg.WaiterID,
		NumberOfPax:          arg.NumberOfPax,
		Status:               arg.Status,
		DiscountType:         arg.DiscountType,
		DiscountValue:        arg.DiscountValue,
		DiscountAmount:       arg.DiscountAmount,
		TipAmount:            arg.TipAmount,
		DeliveryFee:          arg.DeliveryFee,
		TaxAmount:            arg.TaxAmount,
		Subtotal:             arg.Subtotal,
		Total:                arg.Total,
		OrderNote:            arg.OrderNote,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
	m.orders[order.ID] = order
	return order, nil
}

func (m *memStore) GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[arg.ID]
	if !ok || order.BranchID != arg.BranchID {
		return database.Order{}, pgx.ErrNoRows
	}
	return order, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error) {
	return m.GetOrder(ctx, arg)
}

func (m *memStore) GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.TableID.Valid && o.TableID.Bytes == tableID &&
			o.Status != enum.OrderStatusServed && o.Status != enum.OrderStatusCancelled {
			return o, nil
		}
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *memStore) UpdateOrderDetails(ctx context.Context, arg database.UpdateOrderDetailsParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	order.WaiterID = arg.WaiterID
	order.NumberOfPax = arg.NumberOfPax
	order.DiscountType = arg.DiscountType
	order.DiscountValue = arg.DiscountValue
	order.DiscountAmount = arg.DiscountAmount
	order.TipAmount = arg.TipAmount
	order.DeliveryFee = arg.DeliveryFee
	order.Subtotal = arg.Subtotal
	order.Total = arg.Total
	order.OrderNote = arg.OrderNote
	order.UpdatedAt = time.Now()
	m.orders[arg.ID] = order
	return order, nil
}

func (m *memStore) UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[arg.ID]
	if !ok || order.Status == enum.OrderStatusServed || order.Status == enum.OrderStatusCancelled {
		return database.Order{}, pgx.ErrNoRows
	}
	order.Subtotal = arg.Subtotal
	order.DiscountAmount = arg.DiscountAmount
	order.Total = arg.Total
	order.UpdatedAt = time.Now()
	m.orders[arg.ID] = order
	return order, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[arg.ID]
	if !ok || order.BranchID != arg.BranchID || order.Status != arg.FromStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	order.Status = arg.Status
	order.UpdatedAt = time.Now()
	m.orders[arg.ID] = order
	return order, nil
}

func (m *memStore) CancelOrder(ctx context.Context, arg database.CancelOrderParams) (database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[arg.ID]
	if !ok || order.BranchID != arg.BranchID ||
		order.Status == enum.OrderStatusServed || order.Status == enum.OrderStatusCancelled {
		return database.Order{}, pgx.ErrNoRows
	}
	order.Status = enum.OrderStatusCancelled
	order.OrderNote = arg.OrderNote
	order.UpdatedAt = time.Now()
	m.orders[arg.ID] = order
	return order, nil
}

// --- Order items ---

func (m *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := database.OrderItem{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		MenuItemID:  arg.MenuItemID,
		VariationID: arg.VariationID,
		Quantity:    arg.Quantity,
		UnitPrice:   arg.UnitPrice,
		Amount:      arg.Amount,
		Note:        arg.Note,
		CreatedAt:   time.Now(),
	}
	m.orderItems[item.ID] = item
	return item, nil
}

func (m *memStore) GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.orderItems[arg.ID]
	if !ok || item.OrderID != arg.OrderID {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.orderItems[arg.ID]
	if !ok || item.OrderID != arg.OrderID {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	item.Quantity = arg.Quantity
	item.UnitPrice = arg.UnitPrice
	item.Amount = arg.Amount
	item.Note = arg.Note
	m.orderItems[arg.ID] = item
	return item, nil
}

func (m *memStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.orderItems[arg.ID]
	if !ok || item.OrderID != arg.OrderID {
		return pgx.ErrNoRows
	}
	delete(m.orderItems, arg.ID)
	return nil
}

func (m *memStore) SumOrderItemAmounts(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, item := range m.orderItems {
		if item.OrderID == orderID {
			sum = sum.Add(numericToDecimal(item.Amount))
		}
	}
	return decimalToNumeric(sum), nil
}

func (m *memStore) CreateOrderItemModifier(ctx context.Context, arg database.CreateOrderItemModifierParams) (database.OrderItemModifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mod := database.OrderItemModifier{
		ID:               uuid.New(),
		OrderItemID:      arg.OrderItemID,
		ModifierOptionID: arg.ModifierOptionID,
		Price:            arg.Price,
	}
	m.itemModifiers[arg.OrderItemID] = append(m.itemModifiers[arg.OrderItemID], mod)
	return mod, nil
}

func (m *memStore) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemModifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.OrderItemModifier(nil), m.itemModifiers[orderItemID]...), nil
}

func (m *memStore) DeleteOrderItemModifiers(ctx context.Context, orderItemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.itemModifiers, orderItemID)
	return nil
}

// --- KOTs ---

func (m *memStore) GetNextKotNumber(ctx context.Context, branchID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, k := range m.kots {
		if k.BranchID == branchID && k.KotNumber > max {
			max = k.KotNumber
		}
	}
	return max + 1, nil
}

func (m *memStore) GetNextKotTokenNumber(ctx context.Context, branchID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, k := range m.kots {
		if k.BranchID == branchID && k.TokenNumber > max {
			max = k.TokenNumber
		}
	}
	return max + 1, nil
}

func (m *memStore) CreateKot(ctx context.Context, arg database.CreateKotParams) (database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kot := database.Kot{
		ID:          uuid.New(),
		BranchID:    arg.BranchID,
		OrderID:     arg.OrderID,
		StationID:   arg.StationID,
		KotNumber:   arg.KotNumber,
		TokenNumber: arg.TokenNumber,
		Status:      arg.Status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.kots[kot.ID] = kot
	return kot, nil
}

func (m *memStore) GetKot(ctx context.Context, arg database.GetKotParams) (database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kot, ok := m.kots[arg.ID]
	if !ok || kot.BranchID != arg.BranchID {
		return database.Kot{}, pgx.ErrNoRows
	}
	return kot, nil
}

func (m *memStore) GetKotForUpdate(ctx context.Context, arg database.GetKotParams) (database.Kot, error) {
	return m.GetKot(ctx, arg)
}

func (m *memStore) ListKotsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Kot
	for _, k := range m.kots {
		if k.OrderID == orderID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) FindOpenKot(ctx context.Context, arg database.FindOpenKotParams) (database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.kots {
		if k.OrderID == arg.OrderID && k.StationID == arg.StationID &&
			(k.Status == enum.KotStatusPending || k.Status == enum.KotStatusInKitchen) {
			return k, nil
		}
	}
	return database.Kot{}, pgx.ErrNoRows
}

func (m *memStore) UpdateKotStatus(ctx context.Context, arg database.UpdateKotStatusParams) (database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kot, ok := m.kots[arg.ID]
	if !ok || kot.BranchID != arg.BranchID {
		return database.Kot{}, pgx.ErrNoRows
	}
	allowed := false
	for _, from := range arg.FromStatuses {
		if kot.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return database.Kot{}, pgx.ErrNoRows
	}
	kot.Status = arg.Status
	kot.UpdatedAt = time.Now()
	m.kots[arg.ID] = kot
	return kot, nil
}

func (m *memStore) CancelKot(ctx context.Context, arg database.CancelKotParams) (database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kot, ok := m.kots[arg.ID]
	if !ok || kot.BranchID != arg.BranchID || kot.Status == enum.KotStatusCancelled {
		return database.Kot{}, pgx.ErrNoRows
	}
	kot.Status = enum.KotStatusCancelled
	kot.CancelReasonID = arg.CancelReasonID
	kot.CancelNote = arg.CancelNote
	kot.UpdatedAt = time.Now()
	m.kots[arg.ID] = kot
	return kot, nil
}

func (m *memStore) CancelKotsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, k := range m.kots {
		if k.OrderID == orderID && k.Status != enum.KotStatusCancelled {
			k.Status = enum.KotStatusCancelled
			k.UpdatedAt = time.Now()
			m.kots[id] = k
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateKotItem(ctx context.Context, arg database.CreateKotItemParams) (database.KotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := database.KotItem{
		ID:          uuid.New(),
		KotID:       arg.KotID,
		OrderItemID: arg.OrderItemID,
		Quantity:    arg.Quantity,
		Status:      arg.Status,
		CreatedAt:   time.Now(),
	}
	m.kotItems[item.ID] = item
	return item, nil
}

func (m *memStore) GetKotItem(ctx context.Context, arg database.GetKotItemParams) (database.KotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.kotItems[arg.ID]
	if !ok || item.KotID != arg.KotID {
		return database.KotItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *memStore) ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]database.KotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.KotItem
	for _, item := range m.kotItems {
		if item.KotID == kotID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memStore) UpdateKotItemStatus(ctx context.Context, arg database.UpdateKotItemStatusParams) (database.KotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.kotItems[arg.ID]
	if !ok || item.KotID != arg.KotID {
		return database.KotItem{}, pgx.ErrNoRows
	}
	item.Status = arg.Status
	m.kotItems[arg.ID] = item
	return item, nil
}

func (m *memStore) CancelKotItem(ctx context.Context, arg database.CancelKotItemParams) (database.KotItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.kotItems[arg.ID]
	if !ok || item.KotID != arg.KotID ||
		item.Status == enum.KotItemStatusReady || item.Status == enum.KotItemStatusCancelled {
		return database.KotItem{}, pgx.ErrNoRows
	}
	item.Status = enum.KotItemStatusCancelled
	item.CancelReasonID = arg.CancelReasonID
	item.CancelNote = arg.CancelNote
	m.kotItems[arg.ID] = item
	return item, nil
}

func (m *memStore) CountUnfinishedKotItems(ctx context.Context, kotID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.kotItems {
		if item.KotID == kotID &&
			item.Status != enum.KotItemStatusReady && item.Status != enum.KotItemStatusCancelled {
			n++
		}
	}
	return n, nil
}

// --- Payments ---

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment := database.Payment{
		ID:        uuid.New(),
		BranchID:  arg.BranchID,
		OrderID:   arg.OrderID,
		Method:    arg.Method,
		Amount:    arg.Amount,
		TipAmount: arg.TipAmount,
		Note:      arg.Note,
		CreatedBy: arg.CreatedBy,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.payments[payment.ID] = payment
	return payment, nil
}

func (m *memStore) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, p := range m.payments {
		if p.OrderID == orderID {
			sum = sum.Add(numericToDecimal(p.Amount))
		}
	}
	return decimalToNumeric(sum), nil
}

// --- Waiter requests ---

func (m *memStore) CreateWaiterRequest(ctx context.Context, arg database.CreateWaiterRequestParams) (database.WaiterRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.waiterReqs {
		if r.TableID == arg.TableID && r.Status == enum.WaiterRequestPending {
			return database.WaiterRequest{}, pgx.ErrNoRows
		}
	}
	req := database.WaiterRequest{
		ID:        uuid.New(),
		BranchID:  arg.BranchID,
		TableID:   arg.TableID,
		Status:    enum.WaiterRequestPending,
		CreatedAt: time.Now(),
	}
	m.waiterReqs[req.ID] = req
	return req, nil
}

func (m *memStore) GetWaiterRequest(ctx context.Context, arg database.GetWaiterRequestParams) (database.WaiterRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.waiterReqs[arg.ID]
	if !ok || req.BranchID != arg.BranchID {
		return database.WaiterRequest{}, pgx.ErrNoRows
	}
	return req, nil
}

func (m *memStore) ListWaiterRequests(ctx context.Context, arg database.ListWaiterRequestsParams) ([]database.WaiterRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.WaiterRequest
	for _, r := range m.waiterReqs {
		if r.BranchID != arg.BranchID {
			continue
		}
		if arg.Status.Valid && r.Status != arg.Status.String {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) UpdateWaiterRequestStatus(ctx context.Context, arg database.UpdateWaiterRequestStatusParams) (database.WaiterRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.waiterReqs[arg.ID]
	if !ok || req.BranchID != arg.BranchID {
		return database.WaiterRequest{}, pgx.ErrNoRows
	}
	req.Status = arg.Status
	m.waiterReqs[arg.ID] = req
	return req, nil
}

// --- Sync ---

func (m *memStore) ListTablesUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Table
	for _, t := range m.tables {
		if t.BranchID == arg.BranchID && t.UpdatedAt.After(arg.Since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListOrdersUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Order
	for _, o := range m.orders {
		if o.BranchID == arg.BranchID && o.UpdatedAt.After(arg.Since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListKotsUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Kot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Kot
	for _, k := range m.kots {
		if k.BranchID == arg.BranchID && k.UpdatedAt.After(arg.Since) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) ListPaymentsUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Payment
	for _, p := range m.payments {
		if p.BranchID == arg.BranchID && p.UpdatedAt.After(arg.Since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetLatestUpdates(ctx context.Context, branchID uuid.UUID) (database.LatestUpdateRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var row database.LatestUpdateRow
	for _, o := range m.orders {
		if o.BranchID == branchID && (!row.LastOrderUpdated.Valid || o.UpdatedAt.After(row.LastOrderUpdated.Time)) {
			row.LastOrderUpdated = pgtype.Timestamptz{Time: o.UpdatedAt, Valid: true}
		}
	}
	for _, k := range m.kots {
		if k.BranchID == branchID && (!row.LastKotUpdated.Valid || k.UpdatedAt.After(row.LastKotUpdated.Time)) {
			row.LastKotUpdated = pgtype.Timestamptz{Time: k.UpdatedAt, Valid: true}
		}
	}
	for _, p := range m.payments {
		if p.BranchID == branchID && (!row.LastPaymentUpdated.Valid || p.UpdatedAt.After(row.LastPaymentUpdated.Time)) {
			row.LastPaymentUpdated = pgtype.Timestamptz{Time: p.UpdatedAt, Valid: true}
		}
	}
	return row, nil
}

func (m *memStore) GetSyncMapping(ctx context.Context, arg database.GetSyncMappingParams) (database.SyncMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping, ok := m.syncMappings[arg.EntityType+"/"+arg.TempID]
	if !ok || mapping.BranchID != arg.BranchID {
		return database.SyncMapping{}, pgx.ErrNoRows
	}
	return mapping, nil
}

func (m *memStore) CreateSyncMapping(ctx context.Context, arg database.CreateSyncMappingParams) (database.SyncMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := arg.EntityType + "/" + arg.TempID
	if _, exists := m.syncMappings[key]; exists {
		return database.SyncMapping{}, &pgconn.PgError{Code: "23505"}
	}
	mapping := database.SyncMapping{
		ID:         uuid.New(),
		BranchID:   arg.BranchID,
		EntityType: arg.EntityType,
		TempID:     arg.TempID,
		ServerID:   arg.ServerID,
		CreatedAt:  time.Now(),
	}
	m.syncMappings[key] = mapping
	return mapping, nil
}
