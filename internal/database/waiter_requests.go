package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const waiterRequestColumns = `id, branch_id, table_id, status, created_at, updated_at`

func scanWaiterRequest(row pgx.Row) (WaiterRequest, error) {
	var w WaiterRequest
	err := row.Scan(&w.ID, &w.BranchID, &w.TableID, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

type CreateWaiterRequestParams struct {
	BranchID uuid.UUID
	TableID  uuid.UUID
}

// CreateWaiterRequest inserts a pending request unless the table already
// has one; the NOT EXISTS guard makes the at-most-one-pending rule hold
// under concurrent rings. pgx.ErrNoRows signals the duplicate.
func (q *Queries) CreateWaiterRequest(ctx context.Context, arg CreateWaiterRequestParams) (WaiterRequest, error) {
	row := q.db.QueryRow(ctx,
		`INSERT INTO waiter_requests (branch_id, table_id, status)
		 SELECT $1, $2, 'pending'
		 WHERE NOT EXISTS (
			SELECT 1 FROM waiter_requests WHERE table_id = $2 AND status = 'pending'
		 )
		 RETURNING `+waiterRequestColumns,
		arg.BranchID, arg.TableID,
	)
	return scanWaiterRequest(row)
}

type GetWaiterRequestParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetWaiterRequest(ctx context.Context, arg GetWaiterRequestParams) (WaiterRequest, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+waiterRequestColumns+` FROM waiter_requests WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	)
	return scanWaiterRequest(row)
}

type ListWaiterRequestsParams struct {
	BranchID uuid.UUID
	Status   pgtype.Text
	Limit    int32
	Offset   int32
}

func (q *Queries) ListWaiterRequests(ctx context.Context, arg ListWaiterRequestsParams) ([]WaiterRequest, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+waiterRequestColumns+` FROM waiter_requests
		 WHERE branch_id = $1 AND ($2::text IS NULL OR status = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		arg.BranchID, arg.Status, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []WaiterRequest
	for rows.Next() {
		w, err := scanWaiterRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

type UpdateWaiterRequestStatusParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	Status   string
}

func (q *Queries) UpdateWaiterRequestStatus(ctx context.Context, arg UpdateWaiterRequestStatusParams) (WaiterRequest, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE waiter_requests SET status = $3, updated_at = now()
		 WHERE id = $1 AND branch_id = $2
		 RETURNING `+waiterRequestColumns,
		arg.ID, arg.BranchID, arg.Status,
	)
	return scanWaiterRequest(row)
}
