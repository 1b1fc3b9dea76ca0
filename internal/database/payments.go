package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, branch_id, order_id, method, amount, tip_amount, note, created_by, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.BranchID, &p.OrderID, &p.Method, &p.Amount, &p.TipAmount,
		&p.Note, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

type CreatePaymentParams struct {
	BranchID  uuid.UUID
	OrderID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	TipAmount pgtype.Numeric
	Note      pgtype.Text
	CreatedBy uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO payments (branch_id, order_id, method, amount, tip_amount, note, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+paymentColumns,
		arg.BranchID, arg.OrderID, arg.Method, arg.Amount, arg.TipAmount, arg.Note, arg.CreatedBy,
	)
	return scanPayment(row)
}

type GetPaymentParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetPayment(ctx context.Context, arg GetPaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	)
	return scanPayment(row)
}

type ListPaymentsParams struct {
	BranchID uuid.UUID
	OrderID  pgtype.UUID
	Method   pgtype.Text
	Limit    int32
	Offset   int32
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE branch_id = $1
		   AND ($2::uuid IS NULL OR order_id = $2)
		   AND ($3::text IS NULL OR method = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		arg.BranchID, arg.OrderID, arg.Method, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (q *Queries) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`,
		orderID,
	).Scan(&n)
	return n, err
}
