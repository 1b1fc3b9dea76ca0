package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/enum"
)

// WaiterRequestStore defines the DB methods for the service bell.
// Satisfied by *database.Queries.
type WaiterRequestStore interface {
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	CreateWaiterRequest(ctx context.Context, arg database.CreateWaiterRequestParams) (database.WaiterRequest, error)
	GetWaiterRequest(ctx context.Context, arg database.GetWaiterRequestParams) (database.WaiterRequest, error)
	ListWaiterRequests(ctx context.Context, arg database.ListWaiterRequestsParams) ([]database.WaiterRequest, error)
	UpdateWaiterRequestStatus(ctx context.Context, arg database.UpdateWaiterRequestStatusParams) (database.WaiterRequest, error)
}

// WaiterRequestService is the table-side service bell: guests ring,
// staff accept and complete. A table holds at most one pending ring.
type WaiterRequestService struct {
	store WaiterRequestStore
}

func NewWaiterRequestService(store WaiterRequestStore) *WaiterRequestService {
	return &WaiterRequestService{store: store}
}

// Create rings the bell for a table.
func (w *WaiterRequestService) Create(ctx context.Context, branchID, tableID uuid.UUID) (*database.WaiterRequest, error) {
	if _, err := w.store.GetTable(ctx, database.GetTableParams{ID: tableID, BranchID: branchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("get table: %w", err)
	}
	req, err := w.store.CreateWaiterRequest(ctx, database.CreateWaiterRequestParams{
		BranchID: branchID,
		TableID:  tableID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestAlreadyPending
		}
		return nil, fmt.Errorf("create waiter request: %w", err)
	}
	return &req, nil
}

// waiterRequestTransitions lists the allowed moves per current status.
var waiterRequestTransitions = map[string][]string{
	enum.WaiterRequestPending:  {enum.WaiterRequestAccepted, enum.WaiterRequestCompleted, enum.WaiterRequestCancelled},
	enum.WaiterRequestAccepted: {enum.WaiterRequestCompleted, enum.WaiterRequestCancelled},
}

// Respond moves a request to accepted, completed or cancelled.
func (w *WaiterRequestService) Respond(ctx context.Context, id, branchID uuid.UUID, status string) (*database.WaiterRequest, error) {
	switch status {
	case enum.WaiterRequestAccepted, enum.WaiterRequestCompleted, enum.WaiterRequestCancelled:
	default:
		return nil, ErrInvalidStatus
	}

	current, err := w.store.GetWaiterRequest(ctx, database.GetWaiterRequestParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWaiterRequestNotFound
		}
		return nil, fmt.Errorf("get waiter request: %w", err)
	}

	allowed := false
	for _, next := range waiterRequestTransitions[current.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, conflict("waiter request is already " + current.Status)
	}

	updated, err := w.store.UpdateWaiterRequestStatus(ctx, database.UpdateWaiterRequestStatusParams{
		ID:       id,
		BranchID: branchID,
		Status:   status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWaiterRequestNotFound
		}
		return nil, fmt.Errorf("update waiter request: %w", err)
	}
	return &updated, nil
}

// Cancel dismisses a ring without service.
func (w *WaiterRequestService) Cancel(ctx context.Context, id, branchID uuid.UUID) (*database.WaiterRequest, error) {
	return w.Respond(ctx, id, branchID, enum.WaiterRequestCancelled)
}

// List returns the branch's requests, optionally filtered by status.
func (w *WaiterRequestService) List(ctx context.Context, branchID uuid.UUID, status string, limit, offset int32) ([]database.WaiterRequest, error) {
	requests, err := w.store.ListWaiterRequests(ctx, database.ListWaiterRequestsParams{
		BranchID: branchID,
		Status:   textOrNull(status),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list waiter requests: %w", err)
	}
	return requests, nil
}
