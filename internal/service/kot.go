package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/enum"
)

// KotStore defines the DB methods needed for kitchen ticket mutations.
// Satisfied by *database.Queries (and its WithTx variant).
type KotStore interface {
	GetKot(ctx context.Context, arg database.GetKotParams) (database.Kot, error)
	GetKotForUpdate(ctx context.Context, arg database.GetKotParams) (database.Kot, error)
	UpdateKotStatus(ctx context.Context, arg database.UpdateKotStatusParams) (database.Kot, error)
	CancelKot(ctx context.Context, arg database.CancelKotParams) (database.Kot, error)

	GetKotItem(ctx context.Context, arg database.GetKotItemParams) (database.KotItem, error)
	ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]database.KotItem, error)
	UpdateKotItemStatus(ctx context.Context, arg database.UpdateKotItemStatusParams) (database.KotItem, error)
	CancelKotItem(ctx context.Context, arg database.CancelKotItemParams) (database.KotItem, error)
	CountUnfinishedKotItems(ctx context.Context, kotID uuid.UUID) (int64, error)

	GetKotCancelReason(ctx context.Context, id uuid.UUID) (database.KotCancelReason, error)
}

// NewKotStore creates a KotStore from a DBTX (pool or tx).
type NewKotStore func(db database.DBTX) KotStore

// KotLifecycle drives the kitchen ticket state machine. Item status
// changes and the derived ticket status are evaluated under a row lock
// on the ticket so two stations cannot race the all-ready check.
type KotLifecycle struct {
	pool     TxBeginner
	store    KotStore // pool-backed, for single-statement operations
	newStore NewKotStore
}

func NewKotLifecycle(pool TxBeginner, store KotStore, newStore NewKotStore) *KotLifecycle {
	return &KotLifecycle{pool: pool, store: store, newStore: newStore}
}

// Confirm acknowledges the ticket in the kitchen (pending to
// in_kitchen).
func (l *KotLifecycle) Confirm(ctx context.Context, kotID, branchID uuid.UUID) (*database.Kot, error) {
	return l.transition(ctx, kotID, branchID, enum.KotStatusInKitchen, []string{enum.KotStatusPending})
}

// MarkReady sets the whole ticket ready regardless of per-item states,
// for kitchens that work ticket-at-a-time.
func (l *KotLifecycle) MarkReady(ctx context.Context, kotID, branchID uuid.UUID) (*database.Kot, error) {
	return l.transition(ctx, kotID, branchID, enum.KotStatusReady,
		[]string{enum.KotStatusPending, enum.KotStatusInKitchen})
}

// ApplyStatus brings the ticket to the given status for the sync replay
// path. A ticket already at the target passes through unchanged, so a
// replayed queue can be delivered more than once.
func (l *KotLifecycle) ApplyStatus(ctx context.Context, kotID, branchID uuid.UUID, status string) (*database.Kot, error) {
	switch status {
	case enum.KotStatusPending, enum.KotStatusInKitchen, enum.KotStatusReady:
	default:
		return nil, ErrInvalidStatus
	}

	kot, err := l.store.GetKot(ctx, database.GetKotParams{ID: kotID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKotNotFound
		}
		return nil, fmt.Errorf("get kot: %w", err)
	}
	if kot.Status == status {
		return &kot, nil
	}

	switch status {
	case enum.KotStatusInKitchen:
		return l.Confirm(ctx, kotID, branchID)
	case enum.KotStatusReady:
		return l.MarkReady(ctx, kotID, branchID)
	default:
		// A stale pending replay against a ticket that has moved on.
		return nil, ErrKotNotOpen
	}
}

func (l *KotLifecycle) transition(ctx context.Context, kotID, branchID uuid.UUID, to string, from []string) (*database.Kot, error) {
	kot, err := l.store.UpdateKotStatus(ctx, database.UpdateKotStatusParams{
		ID:           kotID,
		BranchID:     branchID,
		Status:       to,
		FromStatuses: from,
	})
	if err == nil {
		return &kot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update kot status: %w", err)
	}
	if _, gerr := l.store.GetKot(ctx, database.GetKotParams{ID: kotID, BranchID: branchID}); gerr != nil {
		if errors.Is(gerr, pgx.ErrNoRows) {
			return nil, ErrKotNotFound
		}
		return nil, fmt.Errorf("get kot: %w", gerr)
	}
	return nil, ErrKotNotOpen
}

// UpdateKotItemRequest moves one line of a ticket.
type UpdateKotItemRequest struct {
	KotID    uuid.UUID
	BranchID uuid.UUID
	ItemID   uuid.UUID
	Status   string
}

// UpdateKotItemResult carries the item and the ticket, which may have
// auto-transitioned to ready.
type UpdateKotItemResult struct {
	Kot  database.Kot
	Item database.KotItem
}

// UpdateItemStatus moves a ticket line between pending, preparing and
// ready. When the change leaves no line outside ready or cancelled the
// ticket itself becomes ready; re-applying the same status is a no-op
// success.
func (l *KotLifecycle) UpdateItemStatus(ctx context.Context, req UpdateKotItemRequest) (*UpdateKotItemResult, error) {
	switch req.Status {
	case enum.KotItemStatusPending, enum.KotItemStatusPreparing, enum.KotItemStatusReady:
	default:
		return nil, ErrInvalidStatus
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := l.newStore(tx)

	kot, err := store.GetKotForUpdate(ctx, database.GetKotParams{ID: req.KotID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKotNotFound
		}
		return nil, fmt.Errorf("get kot: %w", err)
	}
	if kot.Status == enum.KotStatusCancelled {
		return nil, ErrKotNotOpen
	}

	current, err := store.GetKotItem(ctx, database.GetKotItemParams{ID: req.ItemID, KotID: kot.ID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKotItemNotFound
		}
		return nil, fmt.Errorf("get kot item: %w", err)
	}
	if current.Status == enum.KotItemStatusCancelled {
		return nil, ErrKotItemFinal
	}

	item, err := store.UpdateKotItemStatus(ctx, database.UpdateKotItemStatusParams{
		ID:     req.ItemID,
		KotID:  kot.ID,
		Status: req.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("update kot item status: %w", err)
	}

	kot, err = l.maybeAutoReady(ctx, store, kot)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &UpdateKotItemResult{Kot: kot, Item: item}, nil
}

// maybeAutoReady promotes the ticket to ready once every line is ready
// or cancelled. Idempotent: an already-ready ticket passes through.
func (l *KotLifecycle) maybeAutoReady(ctx context.Context, store KotStore, kot database.Kot) (database.Kot, error) {
	unfinished, err := store.CountUnfinishedKotItems(ctx, kot.ID)
	if err != nil {
		return kot, fmt.Errorf("count unfinished kot items: %w", err)
	}
	if unfinished > 0 || kot.Status == enum.KotStatusReady {
		return kot, nil
	}
	ready, err := store.UpdateKotStatus(ctx, database.UpdateKotStatusParams{
		ID:           kot.ID,
		BranchID:     kot.BranchID,
		Status:       enum.KotStatusReady,
		FromStatuses: []string{enum.KotStatusPending, enum.KotStatusInKitchen},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kot, nil
		}
		return kot, fmt.Errorf("auto-ready kot: %w", err)
	}
	return ready, nil
}

// CancelKotRequest voids a whole ticket. A reason from the catalog is
// mandatory.
type CancelKotRequest struct {
	KotID          uuid.UUID
	BranchID       uuid.UUID
	CancelReasonID string
	Note           string
}

// Cancel voids the ticket and every line on it that is not already
// final.
func (l *KotLifecycle) Cancel(ctx context.Context, req CancelKotRequest) (*database.Kot, error) {
	reasonID, err := l.resolveReason(ctx, req.CancelReasonID)
	if err != nil {
		return nil, err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := l.newStore(tx)

	kot, err := store.GetKotForUpdate(ctx, database.GetKotParams{ID: req.KotID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKotNotFound
		}
		return nil, fmt.Errorf("get kot: %w", err)
	}
	if kot.Status == enum.KotStatusCancelled {
		return nil, conflict("kot is already cancelled")
	}

	cancelled, err := store.CancelKot(ctx, database.CancelKotParams{
		ID:             kot.ID,
		BranchID:       req.BranchID,
		CancelReasonID: pgtype.UUID{Bytes: reasonID, Valid: true},
		CancelNote:     textOrNull(req.Note),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, conflict("kot is already cancelled")
		}
		return nil, fmt.Errorf("cancel kot: %w", err)
	}

	items, err := store.ListKotItemsByKot(ctx, kot.ID)
	if err != nil {
		return nil, fmt.Errorf("list kot items: %w", err)
	}
	for _, item := range items {
		if item.Status == enum.KotItemStatusReady || item.Status == enum.KotItemStatusCancelled {
			continue
		}
		if _, err := store.CancelKotItem(ctx, database.CancelKotItemParams{
			ID:             item.ID,
			KotID:          kot.ID,
			CancelReasonID: pgtype.UUID{Bytes: reasonID, Valid: true},
			CancelNote:     textOrNull(req.Note),
		}); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cancel kot item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &cancelled, nil
}

// CancelKotItemRequest voids one line of a ticket.
type CancelKotItemRequest struct {
	KotID          uuid.UUID
	BranchID       uuid.UUID
	ItemID         uuid.UUID
	CancelReasonID string
	Note           string
}

// CancelItem voids one line. Lines already ready or cancelled are
// final. Removing the last unfinished line promotes the ticket to
// ready, matching the all-lines-accounted-for rule.
func (l *KotLifecycle) CancelItem(ctx context.Context, req CancelKotItemRequest) (*UpdateKotItemResult, error) {
	reasonID, err := l.resolveReason(ctx, req.CancelReasonID)
	if err != nil {
		return nil, err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := l.newStore(tx)

	kot, err := store.GetKotForUpdate(ctx, database.GetKotParams{ID: req.KotID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKotNotFound
		}
		return nil, fmt.Errorf("get kot: %w", err)
	}
	if kot.Status == enum.KotStatusCancelled {
		return nil, ErrKotNotOpen
	}

	item, err := store.CancelKotItem(ctx, database.CancelKotItemParams{
		ID:             req.ItemID,
		KotID:          kot.ID,
		CancelReasonID: pgtype.UUID{Bytes: reasonID, Valid: true},
		CancelNote:     textOrNull(req.Note),
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cancel kot item: %w", err)
		}
		if _, gerr := store.GetKotItem(ctx, database.GetKotItemParams{ID: req.ItemID, KotID: kot.ID}); gerr != nil {
			if errors.Is(gerr, pgx.ErrNoRows) {
				return nil, ErrKotItemNotFound
			}
			return nil, fmt.Errorf("get kot item: %w", gerr)
		}
		return nil, ErrKotItemFinal
	}

	kot, err = l.maybeAutoReady(ctx, store, kot)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &UpdateKotItemResult{Kot: kot, Item: item}, nil
}

func (l *KotLifecycle) resolveReason(ctx context.Context, id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, ErrCancelReasonRequired
	}
	reasonID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, validation("invalid cancel_reason_id")
	}
	if _, err := l.store.GetKotCancelReason(ctx, reasonID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrCancelReasonNotFound
		}
		return uuid.Nil, fmt.Errorf("get cancel reason: %w", err)
	}
	return reasonID, nil
}
