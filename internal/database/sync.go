package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type UpdatedSinceParams struct {
	BranchID uuid.UUID
	Since    time.Time
}

// The "updated since" family feeds sync pull/poll: strictly-greater
// comparison so the cursor itself is never re-sent.

func (q *Queries) ListTablesUpdatedSince(ctx context.Context, arg UpdatedSinceParams) ([]Table, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tableColumns+` FROM tables
		 WHERE branch_id = $1 AND updated_at > $2 ORDER BY updated_at`,
		arg.BranchID, arg.Since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (q *Queries) ListOrdersUpdatedSince(ctx context.Context, arg UpdatedSinceParams) ([]Order, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE branch_id = $1 AND updated_at > $2 ORDER BY updated_at`,
		arg.BranchID, arg.Since,
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

func (q *Queries) ListKotsUpdatedSince(ctx context.Context, arg UpdatedSinceParams) ([]Kot, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+kotColumns+` FROM kots
		 WHERE branch_id = $1 AND updated_at > $2 ORDER BY updated_at`,
		arg.BranchID, arg.Since,
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

func (q *Queries) ListPaymentsUpdatedSince(ctx context.Context, arg UpdatedSinceParams) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE branch_id = $1 AND updated_at > $2 ORDER BY updated_at`,
		arg.BranchID, arg.Since,
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

type LatestUpdateRow struct {
	LastOrderUpdated   pgtype.Timestamptz
	LastKotUpdated     pgtype.Timestamptz
	LastPaymentUpdated pgtype.Timestamptz
}

func (q *Queries) GetLatestUpdates(ctx context.Context, branchID uuid.UUID) (LatestUpdateRow, error) {
	var r LatestUpdateRow
	err := q.db.QueryRow(ctx,
		`SELECT
			(SELECT MAX(updated_at) FROM orders WHERE branch_id = $1),
			(SELECT MAX(updated_at) FROM kots WHERE branch_id = $1),
			(SELECT MAX(updated_at) FROM payments WHERE branch_id = $1)`,
		branchID,
	).Scan(&r.LastOrderUpdated, &r.LastKotUpdated, &r.LastPaymentUpdated)
	return r, err
}

// --- Sync mappings (offline push idempotency) ---

type GetSyncMappingParams struct {
	BranchID   uuid.UUID
	EntityType string
	TempID     string
}

func (q *Queries) GetSyncMapping(ctx context.Context, arg GetSyncMappingParams) (SyncMapping, error) {
	var m SyncMapping
	err := q.db.QueryRow(ctx,
		`SELECT id, branch_id, entity_type, temp_id, server_id, created_at
		 FROM sync_mappings WHERE branch_id = $1 AND entity_type = $2 AND temp_id = $3`,
		arg.BranchID, arg.EntityType, arg.TempID,
	).Scan(&m.ID, &m.BranchID, &m.EntityType, &m.TempID, &m.ServerID, &m.CreatedAt)
	return m, err
}

type CreateSyncMappingParams struct {
	BranchID   uuid.UUID
	EntityType string
	TempID     string
	ServerID   uuid.UUID
}

func (q *Queries) CreateSyncMapping(ctx context.Context, arg CreateSyncMappingParams) (SyncMapping, error) {
	var m SyncMapping
	err := q.db.QueryRow(ctx,
		`INSERT INTO sync_mappings (branch_id, entity_type, temp_id, server_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, branch_id, entity_type, temp_id, server_id, created_at`,
		arg.BranchID, arg.EntityType, arg.TempID, arg.ServerID,
	).Scan(&m.ID, &m.BranchID, &m.EntityType, &m.TempID, &m.ServerID, &m.CreatedAt)
	return m, err
}
