package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, branch_id, order_number, formatted_order_number, table_id, order_type,
	waiter_id, number_of_pax, status, discount_type, discount_value, discount_amount,
	tip_amount, delivery_fee, tax_amount, subtotal, total, order_note, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.BranchID, &o.OrderNumber, &o.FormattedOrderNumber, &o.TableID, &o.OrderType,
		&o.WaiterID, &o.NumberOfPax, &o.Status, &o.DiscountType, &o.DiscountValue, &o.DiscountAmount,
		&o.TipAmount, &o.DeliveryFee, &o.TaxAmount, &o.Subtotal, &o.Total, &o.OrderNote,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// GetNextOrderNumber returns MAX+1 for the branch. Concurrent transactions
// can read the same number; callers must retry on the unique violation.
func (q *Queries) GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_number), 0) + 1 FROM orders WHERE branch_id = $1`,
		branchID,
	).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	BranchID             uuid.UUID
	OrderNumber          int64
	FormattedOrderNumber string
	TableID              pgtype.UUID
	OrderType            string
	WaiterID             uuid.UUID
	NumberOfPax          int32
	Status               string
	DiscountType         pgtype.Text
	DiscountValue        pgtype.Numeric
	DiscountAmount       pgtype.Numeric
	TipAmount            pgtype.Numeric
	DeliveryFee          pgtype.Numeric
	TaxAmount            pgtype.Numeric
	Subtotal             pgtype.Numeric
	Total                pgtype.Numeric
	OrderNote            pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO orders (branch_id, order_number, formatted_order_number, table_id, order_type,
			waiter_id, number_of_pax, status, discount_type, discount_value, discount_amount,
			tip_amount, delivery_fee, tax_amount, subtotal, total, order_note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 RETURNING `+orderColumns,
		arg.BranchID, arg.OrderNumber, arg.FormattedOrderNumber, arg.TableID, arg.OrderType,
		arg.WaiterID, arg.NumberOfPax, arg.Status, arg.DiscountType, arg.DiscountValue, arg.DiscountAmount,
		arg.TipAmount, arg.DeliveryFee, arg.TaxAmount, arg.Subtotal, arg.Total, arg.OrderNote,
	)
	return scanOrder(row)
}

type GetOrderParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row so financial mutations in the same
// transaction are serialized per order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND branch_id = $2 FOR NO KEY UPDATE`,
		arg.ID, arg.BranchID,
	)
	return scanOrder(row)
}

type ListOrdersParams struct {
	BranchID  uuid.UUID
	Status    pgtype.Text
	TableID   pgtype.UUID
	WaiterID  pgtype.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE branch_id = $1
		   AND ($2::text IS NULL OR status = $2)
		   AND ($3::uuid IS NULL OR table_id = $3)
		   AND ($4::uuid IS NULL OR waiter_id = $4)
		   AND ($5::timestamptz IS NULL OR created_at >= $5)
		   AND ($6::timestamptz IS NULL OR created_at <= $6)
		 ORDER BY created_at DESC
		 LIMIT $7 OFFSET $8`,
		arg.BranchID, arg.Status, arg.TableID, arg.WaiterID, arg.StartDate, arg.EndDate,
		arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// GetActiveOrderByTable returns the table's non-terminal order, if any.
func (q *Queries) GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE table_id = $1 AND status NOT IN ('served', 'cancelled')
		 ORDER BY created_at DESC LIMIT 1`,
		tableID,
	)
	return scanOrder(row)
}

type UpdateOrderDetailsParams struct {
	ID             uuid.UUID
	WaiterID       uuid.UUID
	NumberOfPax    int32
	DiscountType   pgtype.Text
	DiscountValue  pgtype.Numeric
	DiscountAmount pgtype.Numeric
	TipAmount      pgtype.Numeric
	DeliveryFee    pgtype.Numeric
	Subtotal       pgtype.Numeric
	Total          pgtype.Numeric
	OrderNote      pgtype.Text
}

func (q *Queries) UpdateOrderDetails(ctx context.Context, arg UpdateOrderDetailsParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders
		 SET waiter_id = $2, number_of_pax = $3, discount_type = $4, discount_value = $5,
		     discount_amount = $6, tip_amount = $7, delivery_fee = $8, subtotal = $9,
		     total = $10, order_note = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		arg.ID, arg.WaiterID, arg.NumberOfPax, arg.DiscountType, arg.DiscountValue,
		arg.DiscountAmount, arg.TipAmount, arg.DeliveryFee, arg.Subtotal,
		arg.Total, arg.OrderNote,
	)
	return scanOrder(row)
}

type UpdateOrderTotalsParams struct {
	ID             uuid.UUID
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	Total          pgtype.Numeric
}

// UpdateOrderTotals persists recomputed financial fields. The status guard
// closes the check-then-act race: a concurrently served or cancelled order
// makes this return pgx.ErrNoRows and the caller rolls back.
func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders
		 SET subtotal = $2, discount_amount = $3, total = $4, updated_at = now()
		 WHERE id = $1 AND status NOT IN ('served', 'cancelled')
		 RETURNING `+orderColumns,
		arg.ID, arg.Subtotal, arg.DiscountAmount, arg.Total,
	)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	BranchID   uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus is a compare-and-swap: it only applies when the order
// is still in FromStatus, so a concurrent transition loses cleanly.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET status = $3, updated_at = now()
		 WHERE id = $1 AND branch_id = $2 AND status = $4
		 RETURNING `+orderColumns,
		arg.ID, arg.BranchID, arg.Status, arg.FromStatus,
	)
	return scanOrder(row)
}

type CancelOrderParams struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	OrderNote pgtype.Text
}

// CancelOrder transitions to cancelled unless the order is already
// terminal; the WHERE clause enforces the precondition atomically.
func (q *Queries) CancelOrder(ctx context.Context, arg CancelOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE orders SET status = 'cancelled', order_note = $3, updated_at = now()
		 WHERE id = $1 AND branch_id = $2 AND status NOT IN ('served', 'cancelled')
		 RETURNING `+orderColumns,
		arg.ID, arg.BranchID, arg.OrderNote,
	)
	return scanOrder(row)
}

// --- Order items ---

const orderItemColumns = `id, order_id, menu_item_id, variation_id, quantity, unit_price, amount, note, created_at, updated_at`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID, &i.OrderID, &i.MenuItemID, &i.VariationID, &i.Quantity,
		&i.UnitPrice, &i.Amount, &i.Note, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	MenuItemID  uuid.UUID
	VariationID pgtype.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Amount      pgtype.Numeric
	Note        pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO order_items (order_id, menu_item_id, variation_id, quantity, unit_price, amount, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+orderItemColumns,
		arg.OrderID, arg.MenuItemID, arg.VariationID, arg.Quantity, arg.UnitPrice, arg.Amount, arg.Note,
	)
	return scanOrderItem(row)
}

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE id = $1 AND order_id = $2`,
		arg.ID, arg.OrderID,
	)
	return scanOrderItem(row)
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateOrderItemParams struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Amount    pgtype.Numeric
	Note      pgtype.Text
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE order_items SET quantity = $3, unit_price = $4, amount = $5, note = $6, updated_at = now()
		 WHERE id = $1 AND order_id = $2
		 RETURNING `+orderItemColumns,
		arg.ID, arg.OrderID, arg.Quantity, arg.UnitPrice, arg.Amount, arg.Note,
	)
	return scanOrderItem(row)
}

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) error {
	tag, err := q.db.Exec(ctx,
		`DELETE FROM order_items WHERE id = $1 AND order_id = $2`,
		arg.ID, arg.OrderID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) SumOrderItemAmounts(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM order_items WHERE order_id = $1`,
		orderID,
	).Scan(&n)
	return n, err
}

// --- Order item modifiers ---

type CreateOrderItemModifierParams struct {
	OrderItemID      uuid.UUID
	ModifierOptionID uuid.UUID
	Price            pgtype.Numeric
}

func (q *Queries) CreateOrderItemModifier(ctx context.Context, arg CreateOrderItemModifierParams) (OrderItemModifier, error) {
	var m OrderItemModifier
	err := q.db.QueryRow(ctx,
		`INSERT INTO order_item_modifiers (order_item_id, modifier_option_id, price)
		 VALUES ($1, $2, $3)
		 RETURNING id, order_item_id, modifier_option_id, price, created_at`,
		arg.OrderItemID, arg.ModifierOptionID, arg.Price,
	).Scan(&m.ID, &m.OrderItemID, &m.ModifierOptionID, &m.Price, &m.CreatedAt)
	return m, err
}

func (q *Queries) ListOrderItemModifiersByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]OrderItemModifier, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_item_id, modifier_option_id, price, created_at
		 FROM order_item_modifiers WHERE order_item_id = $1 ORDER BY created_at`,
		orderItemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItemModifier
	for rows.Next() {
		var m OrderItemModifier
		if err := rows.Scan(&m.ID, &m.OrderItemID, &m.ModifierOptionID, &m.Price, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (q *Queries) DeleteOrderItemModifiers(ctx context.Context, orderItemID uuid.UUID) error {
	_, err := q.db.Exec(ctx,
		`DELETE FROM order_item_modifiers WHERE order_item_id = $1`,
		orderItemID,
	)
	return err
}
