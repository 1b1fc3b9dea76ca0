package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const kotColumns = `id, branch_id, order_id, station_id, kot_number, token_number, status,
	cancel_reason_id, cancel_note, created_at, updated_at`

func scanKot(row pgx.Row) (Kot, error) {
	var k Kot
	err := row.Scan(
		&k.ID, &k.BranchID, &k.OrderID, &k.StationID, &k.KotNumber, &k.TokenNumber,
		&k.Status, &k.CancelReasonID, &k.CancelNote, &k.CreatedAt, &k.UpdatedAt,
	)
	return k, err
}

func (q *Queries) GetNextKotNumber(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(kot_number), 0) + 1 FROM kots WHERE branch_id = $1`,
		branchID,
	).Scan(&n)
	return n, err
}

// GetNextKotTokenNumber resets per day: tokens are what the pass shouts.
func (q *Queries) GetNextKotTokenNumber(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(token_number), 0) + 1 FROM kots
		 WHERE branch_id = $1 AND created_at::date = now()::date`,
		branchID,
	).Scan(&n)
	return n, err
}

type CreateKotParams struct {
	BranchID    uuid.UUID
	OrderID     uuid.UUID
	StationID   pgtype.UUID
	KotNumber   int64
	TokenNumber int64
	Status      string
}

func (q *Queries) CreateKot(ctx context.Context, arg CreateKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO kots (branch_id, order_id, station_id, kot_number, token_number, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+kotColumns,
		arg.BranchID, arg.OrderID, arg.StationID, arg.KotNumber, arg.TokenNumber, arg.Status,
	)
	return scanKot(row)
}

type GetKotParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetKot(ctx context.Context, arg GetKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+kotColumns+` FROM kots WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	)
	return scanKot(row)
}

// GetKotForUpdate locks the KOT row so per-KOT status evaluation (the
// all-items-ready scan) is serialized.
func (q *Queries) GetKotForUpdate(ctx context.Context, arg GetKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+kotColumns+` FROM kots WHERE id = $1 AND branch_id = $2 FOR NO KEY UPDATE`,
		arg.ID, arg.BranchID,
	)
	return scanKot(row)
}

type ListKotsParams struct {
	BranchID  uuid.UUID
	OrderID   pgtype.UUID
	StationID pgtype.UUID
	Status    pgtype.Text
	Limit     int32
	Offset    int32
}

func (q *Queries) ListKots(ctx context.Context, arg ListKotsParams) ([]Kot, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+kotColumns+` FROM kots
		 WHERE branch_id = $1
		   AND ($2::uuid IS NULL OR order_id = $2)
		   AND ($3::uuid IS NULL OR station_id = $3)
		   AND ($4::text IS NULL OR status = $4)
		 ORDER BY created_at DESC
		 LIMIT $5 OFFSET $6`,
		arg.BranchID, arg.OrderID, arg.StationID, arg.Status, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Kot
	for rows.Next() {
		k, err := scanKot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, k)
	}
	return items, rows.Err()
}

func (q *Queries) ListKotsByOrder(ctx context.Context, orderID uuid.UUID) ([]Kot, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+kotColumns+` FROM kots WHERE order_id = $1 ORDER BY created_at`,
		orderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Kot
	for rows.Next() {
		k, err := scanKot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, k)
	}
	return items, rows.Err()
}

type FindOpenKotParams struct {
	OrderID   uuid.UUID
	StationID pgtype.UUID
}

// FindOpenKot returns the order's pending or in-kitchen KOT for a station
// (NULL station matches the default ticket).
func (q *Queries) FindOpenKot(ctx context.Context, arg FindOpenKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+kotColumns+` FROM kots
		 WHERE order_id = $1 AND station_id IS NOT DISTINCT FROM $2
		   AND status IN ('pending', 'in_kitchen')
		 ORDER BY created_at DESC LIMIT 1`,
		arg.OrderID, arg.StationID,
	)
	return scanKot(row)
}

type UpdateKotStatusParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Status   string
	// FromStatuses restricts the transition; the guard runs inside the
	// UPDATE so concurrent writers cannot interleave.
	FromStatuses []string
}

func (q *Queries) UpdateKotStatus(ctx context.Context, arg UpdateKotStatusParams) (Kot, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE kots SET status = $3, updated_at = now()
		 WHERE id = $1 AND branch_id = $2 AND status = ANY($4)
		 RETURNING `+kotColumns,
		arg.ID, arg.BranchID, arg.Status, arg.FromStatuses,
	)
	return scanKot(row)
}

type CancelKotParams struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	CancelReasonID pgtype.UUID
	CancelNote     pgtype.Text
}

func (q *Queries) CancelKot(ctx context.Context, arg CancelKotParams) (Kot, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE kots SET status = 'cancelled', cancel_reason_id = $3, cancel_note = $4, updated_at = now()
		 WHERE id = $1 AND branch_id = $2 AND status <> 'cancelled'
		 RETURNING `+kotColumns,
		arg.ID, arg.BranchID, arg.CancelReasonID, arg.CancelNote,
	)
	return scanKot(row)
}

// CancelKotsByOrder cancels every not-yet-cancelled KOT of the order,
// including ready ones: an order cancellation voids its whole kitchen
// trail.
func (q *Queries) CancelKotsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE kots SET status = 'cancelled', updated_at = now()
		 WHERE order_id = $1 AND status <> 'cancelled'`,
		orderID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- KOT items ---

const kotItemColumns = `id, kot_id, order_item_id, quantity, status, cancel_reason_id, cancel_note, created_at, updated_at`

func scanKotItem(row pgx.Row) (KotItem, error) {
	var i KotItem
	err := row.Scan(
		&i.ID, &i.KotID, &i.OrderItemID, &i.Quantity, &i.Status,
		&i.CancelReasonID, &i.CancelNote, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

type CreateKotItemParams struct {
	KotID       uuid.UUID
	OrderItemID uuid.UUID
	Quantity    int32
	Status      string
}

func (q *Queries) CreateKotItem(ctx context.Context, arg CreateKotItemParams) (KotItem, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO kot_items (kot_id, order_item_id, quantity, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+kotItemColumns,
		arg.KotID, arg.OrderItemID, arg.Quantity, arg.Status,
	)
	return scanKotItem(row)
}

type GetKotItemParams struct {
	ID    uuid.UUID
	KotID uuid.UUID
}

func (q *Queries) GetKotItem(ctx context.Context, arg GetKotItemParams) (KotItem, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+kotItemColumns+` FROM kot_items WHERE id = $1 AND kot_id = $2`,
		arg.ID, arg.KotID,
	)
	return scanKotItem(row)
}

func (q *Queries) ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]KotItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+kotItemColumns+` FROM kot_items WHERE kot_id = $1 ORDER BY created_at`,
		kotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []KotItem
	for rows.Next() {
		i, err := scanKotItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateKotItemStatusParams struct {
	ID     uuid.UUID
	KotID  uuid.UUID
	Status string
}

func (q *Queries) UpdateKotItemStatus(ctx context.Context, arg UpdateKotItemStatusParams) (KotItem, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE kot_items SET status = $3, updated_at = now()
		 WHERE id = $1 AND kot_id = $2
		 RETURNING `+kotItemColumns,
		arg.ID, arg.KotID, arg.Status,
	)
	return scanKotItem(row)
}

type CancelKotItemParams struct {
	ID             uuid.UUID
	KotID          uuid.UUID
	CancelReasonID pgtype.UUID
	CancelNote     pgtype.Text
}

func (q *Queries) CancelKotItem(ctx context.Context, arg CancelKotItemParams) (KotItem, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE kot_items SET status = 'cancelled', cancel_reason_id = $3, cancel_note = $4, updated_at = now()
		 WHERE id = $1 AND kot_id = $2 AND status NOT IN ('ready', 'cancelled')
		 RETURNING `+kotItemColumns,
		arg.ID, arg.KotID, arg.CancelReasonID, arg.CancelNote,
	)
	return scanKotItem(row)
}

// CountUnfinishedKotItems counts items still blocking the auto-ready
// transition (anything not ready and not cancelled).
func (q *Queries) CountUnfinishedKotItems(ctx context.Context, kotID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM kot_items
		 WHERE kot_id = $1 AND status NOT IN ('ready', 'cancelled')`,
		kotID,
	).Scan(&n)
	return n, err
}
