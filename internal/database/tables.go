package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, branch_id, area_id, table_code, capacity, locked_by, lock_token, locked_at, created_at, updated_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(
		&t.ID, &t.BranchID, &t.AreaID, &t.TableCode, &t.Capacity,
		&t.LockedBy, &t.LockToken, &t.LockedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

type GetTableParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (q *Queries) GetTable(ctx context.Context, arg GetTableParams) (Table, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE id = $1 AND branch_id = $2`,
		arg.ID, arg.BranchID,
	)
	return scanTable(row)
}

type ListTablesParams struct {
	BranchID uuid.UUID
	AreaID   pgtype.UUID
}

func (q *Queries) ListTables(ctx context.Context, arg ListTablesParams) ([]Table, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tableColumns+` FROM tables
		 WHERE branch_id = $1 AND ($2::uuid IS NULL OR area_id = $2)
		 ORDER BY table_code`,
		arg.BranchID, arg.AreaID,
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

type AcquireTableLockParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	HolderID uuid.UUID
	Token    uuid.UUID
	// ExpiredBefore enables the optional lease: a lock whose locked_at is
	// older than this instant is treated as free. Leave invalid for the
	// default no-expiry behavior.
	ExpiredBefore pgtype.Timestamptz
}

// AcquireTableLock grants the lock iff the table is free, already held by
// the same holder (re-issue), or held by an expired lease. The conditional
// UPDATE serializes concurrent acquires; pgx.ErrNoRows means another
// holder won.
func (q *Queries) AcquireTableLock(ctx context.Context, arg AcquireTableLockParams) (Table, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE tables
		 SET locked_by = $3, lock_token = $4, locked_at = now(), updated_at = now()
		 WHERE id = $1 AND branch_id = $2
		   AND (locked_by IS NULL
		        OR locked_by = $3
		        OR ($5::timestamptz IS NOT NULL AND locked_at < $5))
		 RETURNING `+tableColumns,
		arg.ID, arg.BranchID, arg.HolderID, arg.Token, arg.ExpiredBefore,
	)
	return scanTable(row)
}

type ReleaseTableLockParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
	HolderID uuid.UUID
	Token    uuid.UUID
}

// ReleaseTableLock clears the lock only when the caller presents the
// holder and token that acquired it.
func (q *Queries) ReleaseTableLock(ctx context.Context, arg ReleaseTableLockParams) (Table, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE tables
		 SET locked_by = NULL, lock_token = NULL, locked_at = NULL, updated_at = now()
		 WHERE id = $1 AND branch_id = $2 AND locked_by = $3 AND lock_token = $4
		 RETURNING `+tableColumns,
		arg.ID, arg.BranchID, arg.HolderID, arg.Token,
	)
	return scanTable(row)
}

type ForceReleaseTableLockParams struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

// ForceReleaseTableLock clears the lock unconditionally. Callers must have
// verified supervisory privilege first.
func (q *Queries) ForceReleaseTableLock(ctx context.Context, arg ForceReleaseTableLockParams) (Table, error) {
	row := q.db.QueryRow(ctx,
		`UPDATE tables
		 SET locked_by = NULL, lock_token = NULL, locked_at = NULL, updated_at = now()
		 WHERE id = $1 AND branch_id = $2
		 RETURNING `+tableColumns,
		arg.ID, arg.BranchID,
	)
	return scanTable(row)
}

func (q *Queries) ListAreas(ctx context.Context, branchID uuid.UUID) ([]Area, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, branch_id, area_name, created_at, updated_at
		 FROM areas WHERE branch_id = $1 ORDER BY area_name`,
		branchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Area
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.BranchID, &a.AreaName, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
