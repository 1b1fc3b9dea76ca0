package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/enum"
)

// SyncStore defines the DB methods needed for offline sync.
// Satisfied by *database.Queries.
type SyncStore interface {
	ListTablesUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Table, error)
	ListOrdersUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Order, error)
	ListKotsUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Kot, error)
	ListPaymentsUpdatedSince(ctx context.Context, arg database.UpdatedSinceParams) ([]database.Payment, error)
	ListKotsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error)
	GetLatestUpdates(ctx context.Context, branchID uuid.UUID) (database.LatestUpdateRow, error)
	GetSyncMapping(ctx context.Context, arg database.GetSyncMappingParams) (database.SyncMapping, error)
	CreateSyncMapping(ctx context.Context, arg database.CreateSyncMappingParams) (database.SyncMapping, error)
}

// SyncCoordinator serves the offline clients: pull hands out rows
// changed since a cursor, push replays queued local writes, poll is a
// pull with a fixed short lookback.
type SyncCoordinator struct {
	store        SyncStore
	orders       *OrderService
	kots         *KotLifecycle
	payments     *PaymentLedger
	pollLookback time.Duration
	now          func() time.Time
}

func NewSyncCoordinator(store SyncStore, orders *OrderService, kots *KotLifecycle, payments *PaymentLedger, pollLookback time.Duration) *SyncCoordinator {
	return &SyncCoordinator{
		store:        store,
		orders:       orders,
		kots:         kots,
		payments:     payments,
		pollLookback: pollLookback,
		now:          time.Now,
	}
}

// PullRequest asks for everything changed since Cursor. An empty Types
// slice means all entity types; a zero Cursor means from the beginning.
type PullRequest struct {
	BranchID uuid.UUID
	Types    []string
	Cursor   time.Time
}

// PullResult carries the changed rows and the cursor for the next pull.
// The cursor is the request start time, so a row committed while the
// pull ran may be sent again next time; re-sending is safe because rows
// replace by ID on the client.
type PullResult struct {
	Tables        []database.Table
	Orders        []database.Order
	Kots          []database.Kot
	Payments      []database.Payment
	SyncTimestamp time.Time
}

// Pull returns rows with updated_at strictly after the cursor.
func (s *SyncCoordinator) Pull(ctx context.Context, req PullRequest) (*PullResult, error) {
	types, err := normalizeSyncTypes(req.Types)
	if err != nil {
		return nil, err
	}

	result := &PullResult{SyncTimestamp: s.now()}
	arg := database.UpdatedSinceParams{BranchID: req.BranchID, Since: req.Cursor}

	for _, t := range types {
		switch t {
		case enum.SyncTypeTables:
			result.Tables, err = s.store.ListTablesUpdatedSince(ctx, arg)
		case enum.SyncTypeOrders:
			result.Orders, err = s.store.ListOrdersUpdatedSince(ctx, arg)
		case enum.SyncTypeKots:
			result.Kots, err = s.store.ListKotsUpdatedSince(ctx, arg)
		case enum.SyncTypePayments:
			result.Payments, err = s.store.ListPaymentsUpdatedSince(ctx, arg)
		}
		if err != nil {
			return nil, fmt.Errorf("pull %s: %w", t, err)
		}
	}
	return result, nil
}

// Poll is a pull over a short fixed window, for clients that lost their
// cursor or just want a cheap freshness check.
func (s *SyncCoordinator) Poll(ctx context.Context, branchID uuid.UUID, types []string) (*PullResult, error) {
	return s.Pull(ctx, PullRequest{
		BranchID: branchID,
		Types:    types,
		Cursor:   s.now().Add(-s.pollLookback),
	})
}

// SyncStatus reports per-entity freshness plus the server clock, so
// clients can judge their cursor skew.
type SyncStatus struct {
	ServerTime         time.Time
	LastOrderUpdated   *time.Time
	LastKotUpdated     *time.Time
	LastPaymentUpdated *time.Time
}

// Status returns the branch's latest per-entity update timestamps.
func (s *SyncCoordinator) Status(ctx context.Context, branchID uuid.UUID) (*SyncStatus, error) {
	row, err := s.store.GetLatestUpdates(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("get latest updates: %w", err)
	}
	status := &SyncStatus{ServerTime: s.now()}
	if row.LastOrderUpdated.Valid {
		t := row.LastOrderUpdated.Time
		status.LastOrderUpdated = &t
	}
	if row.LastKotUpdated.Valid {
		t := row.LastKotUpdated.Time
		status.LastKotUpdated = &t
	}
	if row.LastPaymentUpdated.Valid {
		t := row.LastPaymentUpdated.Time
		status.LastPaymentUpdated = &t
	}
	return status, nil
}

// PushOrder is an order created offline, identified by the client's
// temporary ID.
type PushOrder struct {
	TempID string
	Order  CreateOrderRequest
}

// PushKot is a kitchen ticket status change queued offline. OrderID may
// be a server UUID or the temp ID of an order pushed in the same or an
// earlier batch; the status is applied to every open ticket of the
// order.
type PushKot struct {
	TempID  string
	OrderID string
	Status  string
}

// PushPayment is a payment recorded offline. OrderID may be a server
// UUID or the temp ID of an order pushed in the same or an earlier
// batch.
type PushPayment struct {
	TempID  string
	OrderID string
	Payment RecordPaymentRequest
}

// PushRequest replays a client's offline queue.
type PushRequest struct {
	BranchID uuid.UUID
	WaiterID uuid.UUID
	Orders   []PushOrder
	Kots     []PushKot
	Payments []PushPayment
}

// Push entry statuses.
const (
	PushStatusCreated   = "created"
	PushStatusDuplicate = "duplicate"
	PushStatusError     = "error"
)

// PushEntryResult reports one replayed entity.
type PushEntryResult struct {
	TempID   string
	ServerID uuid.UUID
	Status   string
	Error    string
}

// PushResult is the per-entity outcome of a push. Entries fail
// individually; one bad order does not sink the batch.
type PushResult struct {
	Orders   []PushEntryResult
	Kots     []PushEntryResult
	Payments []PushEntryResult
}

// Push replays offline orders, kitchen ticket statuses and payments.
// Each temp ID maps to a server ID exactly once; a retry of an
// already-applied entry reports duplicate with the original server ID.
func (s *SyncCoordinator) Push(ctx context.Context, req PushRequest) (*PushResult, error) {
	result := &PushResult{}

	for _, po := range req.Orders {
		entry := PushEntryResult{TempID: po.TempID}
		if po.TempID == "" {
			entry.Status = PushStatusError
			entry.Error = "temp_id is required"
			result.Orders = append(result.Orders, entry)
			continue
		}
		if serverID, ok, err := s.lookupMapping(ctx, req.BranchID, "order", po.TempID); err != nil {
			return nil, err
		} else if ok {
			entry.ServerID = serverID
			entry.Status = PushStatusDuplicate
			result.Orders = append(result.Orders, entry)
			continue
		}

		orderReq := po.Order
		orderReq.BranchID = req.BranchID
		orderReq.WaiterID = req.WaiterID
		created, err := s.orders.CreateOrder(ctx, orderReq)
		if err != nil {
			entry.Status = PushStatusError
			entry.Error = err.Error()
			result.Orders = append(result.Orders, entry)
			continue
		}
		serverID, status, err := s.recordMapping(ctx, req.BranchID, "order", po.TempID, created.Order.ID)
		if err != nil {
			return nil, err
		}
		entry.ServerID = serverID
		entry.Status = status
		result.Orders = append(result.Orders, entry)
	}

	for _, pk := range req.Kots {
		entry := PushEntryResult{TempID: pk.TempID}
		if pk.TempID == "" {
			entry.Status = PushStatusError
			entry.Error = "temp_id is required"
			result.Kots = append(result.Kots, entry)
			continue
		}
		if serverID, ok, err := s.lookupMapping(ctx, req.BranchID, "kot", pk.TempID); err != nil {
			return nil, err
		} else if ok {
			entry.ServerID = serverID
			entry.Status = PushStatusDuplicate
			result.Kots = append(result.Kots, entry)
			continue
		}

		applied, err := s.applyKotPush(ctx, req.BranchID, pk)
		if err != nil {
			entry.Status = PushStatusError
			entry.Error = err.Error()
			result.Kots = append(result.Kots, entry)
			continue
		}
		serverID, status, err := s.recordMapping(ctx, req.BranchID, "kot", pk.TempID, applied)
		if err != nil {
			return nil, err
		}
		entry.ServerID = serverID
		entry.Status = status
		result.Kots = append(result.Kots, entry)
	}

	for _, pp := range req.Payments {
		entry := PushEntryResult{TempID: pp.TempID}
		if pp.TempID == "" {
			entry.Status = PushStatusError
			entry.Error = "temp_id is required"
			result.Payments = append(result.Payments, entry)
			continue
		}
		if serverID, ok, err := s.lookupMapping(ctx, req.BranchID, "payment", pp.TempID); err != nil {
			return nil, err
		} else if ok {
			entry.ServerID = serverID
			entry.Status = PushStatusDuplicate
			result.Payments = append(result.Payments, entry)
			continue
		}

		orderID, err := s.resolveOrderRef(ctx, req.BranchID, pp.OrderID)
		if err != nil {
			entry.Status = PushStatusError
			entry.Error = err.Error()
			result.Payments = append(result.Payments, entry)
			continue
		}
		payReq := pp.Payment
		payReq.OrderID = orderID
		payReq.BranchID = req.BranchID
		payReq.CreatedBy = req.WaiterID
		recorded, err := s.payments.RecordPayment(ctx, payReq)
		if err != nil {
			entry.Status = PushStatusError
			entry.Error = err.Error()
			result.Payments = append(result.Payments, entry)
			continue
		}
		serverID, status, err := s.recordMapping(ctx, req.BranchID, "payment", pp.TempID, recorded.Payments[0].ID)
		if err != nil {
			return nil, err
		}
		entry.ServerID = serverID
		entry.Status = status
		result.Payments = append(result.Payments, entry)
	}

	return result, nil
}

// applyKotPush brings every non-cancelled ticket of the referenced
// order to the pushed status and returns the first applied ticket's ID.
func (s *SyncCoordinator) applyKotPush(ctx context.Context, branchID uuid.UUID, pk PushKot) (uuid.UUID, error) {
	switch pk.Status {
	case enum.KotStatusPending, enum.KotStatusInKitchen, enum.KotStatusReady:
	default:
		return uuid.Nil, ErrInvalidStatus
	}

	orderID, err := s.resolveOrderRef(ctx, branchID, pk.OrderID)
	if err != nil {
		return uuid.Nil, err
	}
	kots, err := s.store.ListKotsByOrder(ctx, orderID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list kots: %w", err)
	}
	if len(kots) == 0 {
		return uuid.Nil, errors.New("order has no kitchen tickets")
	}

	applied := uuid.Nil
	for _, kot := range kots {
		if kot.Status == enum.KotStatusCancelled {
			continue
		}
		if _, err := s.kots.ApplyStatus(ctx, kot.ID, branchID, pk.Status); err != nil {
			return uuid.Nil, err
		}
		if applied == uuid.Nil {
			applied = kot.ID
		}
	}
	if applied == uuid.Nil {
		return uuid.Nil, errors.New("order has no open kitchen tickets")
	}
	return applied, nil
}

// resolveOrderRef turns a pushed order reference into a server ID,
// translating temp IDs through the mapping table.
func (s *SyncCoordinator) resolveOrderRef(ctx context.Context, branchID uuid.UUID, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	serverID, ok, err := s.lookupMapping(ctx, branchID, "order", ref)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, errors.New("unknown order reference")
	}
	return serverID, nil
}

func (s *SyncCoordinator) lookupMapping(ctx context.Context, branchID uuid.UUID, entityType, tempID string) (uuid.UUID, bool, error) {
	m, err := s.store.GetSyncMapping(ctx, database.GetSyncMappingParams{
		BranchID:   branchID,
		EntityType: entityType,
		TempID:     tempID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("get sync mapping: %w", err)
	}
	return m.ServerID, true, nil
}

// recordMapping persists temp to server. A unique violation means a
// concurrent push of the same temp ID won; report that one as the
// duplicate.
func (s *SyncCoordinator) recordMapping(ctx context.Context, branchID uuid.UUID, entityType, tempID string, serverID uuid.UUID) (uuid.UUID, string, error) {
	_, err := s.store.CreateSyncMapping(ctx, database.CreateSyncMappingParams{
		BranchID:   branchID,
		EntityType: entityType,
		TempID:     tempID,
		ServerID:   serverID,
	})
	if err == nil {
		return serverID, PushStatusCreated, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		existing, ok, lerr := s.lookupMapping(ctx, branchID, entityType, tempID)
		if lerr != nil {
			return uuid.Nil, "", lerr
		}
		if ok {
			return existing, PushStatusDuplicate, nil
		}
	}
	return uuid.Nil, "", fmt.Errorf("create sync mapping: %w", err)
}

func normalizeSyncTypes(types []string) ([]string, error) {
	if len(types) == 0 {
		return []string{enum.SyncTypeTables, enum.SyncTypeOrders, enum.SyncTypeKots, enum.SyncTypePayments}, nil
	}
	for _, t := range types {
		switch t {
		case enum.SyncTypeTables, enum.SyncTypeOrders, enum.SyncTypeKots, enum.SyncTypePayments:
		default:
			return nil, ErrInvalidSyncType
		}
	}
	return types, nil
}
