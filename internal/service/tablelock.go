package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajikan-pos/api/internal/database"
)

// TableLockStore defines the DB methods needed for table locking.
// Satisfied by *database.Queries.
type TableLockStore interface {
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	ListTables(ctx context.Context, arg database.ListTablesParams) ([]database.Table, error)
	ListAreas(ctx context.Context, branchID uuid.UUID) ([]database.Area, error)
	GetActiveOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	AcquireTableLock(ctx context.Context, arg database.AcquireTableLockParams) (database.Table, error)
	ReleaseTableLock(ctx context.Context, arg database.ReleaseTableLockParams) (database.Table, error)
	ForceReleaseTableLock(ctx context.Context, arg database.ForceReleaseTableLockParams) (database.Table, error)
}

// TableLockManager owns the single-holder table lock contract. All lock
// state lives in the tables row; the conditional UPDATEs in the store
// serialize racing acquires without any in-process state.
type TableLockManager struct {
	store TableLockStore
	ttl   time.Duration // 0 means locks never expire
}

func NewTableLockManager(store TableLockStore, ttl time.Duration) *TableLockManager {
	return &TableLockManager{store: store, ttl: ttl}
}

// AcquireLockRequest identifies the table and the device claiming it.
// Token is optional: when empty a fresh token is issued.
type AcquireLockRequest struct {
	TableID  uuid.UUID
	BranchID uuid.UUID
	HolderID uuid.UUID
	Token    string
}

// LockResult is the granted lock: the table row plus the token the
// holder must present on release.
type LockResult struct {
	Table database.Table
	Token uuid.UUID
}

// LockConflictError is a denied acquire. It carries the winning holder
// and when the lock was taken so the client can show who has the table.
// Unwraps to ErrTableLocked.
type LockConflictError struct {
	HolderID uuid.UUID
	LockedAt time.Time
}

func (e *LockConflictError) Error() string { return ErrTableLocked.Error() }
func (e *LockConflictError) Unwrap() error { return ErrTableLocked }

// Acquire grants the table lock to the holder. Re-acquiring a table the
// holder already locks succeeds and re-issues the token. A lock held by
// another device fails with a LockConflictError naming the holder; when
// a TTL is configured a stale lock is silently taken over instead.
func (m *TableLockManager) Acquire(ctx context.Context, req AcquireLockRequest) (*LockResult, error) {
	token := uuid.New()
	if req.Token != "" {
		parsed, err := uuid.Parse(req.Token)
		if err != nil {
			return nil, ErrInvalidLockToken
		}
		token = parsed
	}

	expiredBefore := pgtype.Timestamptz{}
	if m.ttl > 0 {
		expiredBefore = pgtype.Timestamptz{Time: time.Now().Add(-m.ttl), Valid: true}
	}

	table, err := m.store.AcquireTableLock(ctx, database.AcquireTableLockParams{
		ID:            req.TableID,
		BranchID:      req.BranchID,
		HolderID:      req.HolderID,
		Token:         token,
		ExpiredBefore: expiredBefore,
	})
	if err == nil {
		return &LockResult{Table: table, Token: token}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("acquire table lock: %w", err)
	}

	// No row updated: either the table does not exist or someone else
	// holds the lock. Disambiguate with a plain read.
	current, err := m.store.GetTable(ctx, database.GetTableParams{ID: req.TableID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	if current.LockedBy.Valid {
		lc := &LockConflictError{HolderID: current.LockedBy.Bytes}
		if current.LockedAt.Valid {
			lc.LockedAt = current.LockedAt.Time
		}
		return nil, lc
	}
	// The holder released between the acquire attempt and the read;
	// the client retries.
	return nil, ErrTableLocked
}

// ReleaseLockRequest identifies the lock being released. Force skips the
// holder and token check; callers must have verified supervisory role.
type ReleaseLockRequest struct {
	TableID  uuid.UUID
	BranchID uuid.UUID
	HolderID uuid.UUID
	Token    string
	Force    bool
}

// Release clears the lock. Without force the caller must present the
// holder ID and token that acquired it; a mismatch is ErrLockNotHeld.
// Releasing an unlocked table with force is a no-op success.
func (m *TableLockManager) Release(ctx context.Context, req ReleaseLockRequest) (*database.Table, error) {
	if req.Force {
		table, err := m.store.ForceReleaseTableLock(ctx, database.ForceReleaseTableLockParams{
			ID:       req.TableID,
			BranchID: req.BranchID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("force release table lock: %w", err)
		}
		return &table, nil
	}

	token, err := uuid.Parse(req.Token)
	if err != nil {
		return nil, ErrInvalidLockToken
	}

	table, err := m.store.ReleaseTableLock(ctx, database.ReleaseTableLockParams{
		ID:       req.TableID,
		BranchID: req.BranchID,
		HolderID: req.HolderID,
		Token:    token,
	})
	if err == nil {
		return &table, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("release table lock: %w", err)
	}

	if _, err := m.store.GetTable(ctx, database.GetTableParams{ID: req.TableID, BranchID: req.BranchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	return nil, ErrLockNotHeld
}

// TableStatus is a table row decorated with its occupancy: the active
// order, if one exists.
type TableStatus struct {
	Table       database.Table
	ActiveOrder *database.Order
}

// GetTable returns one table with its occupancy.
func (m *TableLockManager) GetTable(ctx context.Context, tableID, branchID uuid.UUID) (*TableStatus, error) {
	table, err := m.store.GetTable(ctx, database.GetTableParams{ID: tableID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	status := TableStatus{Table: table}
	order, err := m.store.GetActiveOrderByTable(ctx, tableID)
	if err == nil {
		status.ActiveOrder = &order
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get active order: %w", err)
	}
	return &status, nil
}

// ActiveOrder returns the table's current non-terminal order.
func (m *TableLockManager) ActiveOrder(ctx context.Context, tableID, branchID uuid.UUID) (*database.Order, error) {
	if _, err := m.store.GetTable(ctx, database.GetTableParams{ID: tableID, BranchID: branchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	order, err := m.store.GetActiveOrderByTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get active order: %w", err)
	}
	return &order, nil
}

// ListTables returns the branch's tables, optionally filtered by area.
func (m *TableLockManager) ListTables(ctx context.Context, branchID uuid.UUID, areaID pgtype.UUID) ([]database.Table, error) {
	tables, err := m.store.ListTables(ctx, database.ListTablesParams{BranchID: branchID, AreaID: areaID})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// ListAreas returns the branch's seating areas.
func (m *TableLockManager) ListAreas(ctx context.Context, branchID uuid.UUID) ([]database.Area, error) {
	areas, err := m.store.ListAreas(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	return areas, nil
}
