package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Area struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	AreaName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Table is a physical seating unit. The lock fields implement the
// single-holder mutual exclusion contract; only the table-lock queries
// write them.
type Table struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	AreaID    pgtype.UUID
	TableCode string
	Capacity  int32
	LockedBy  pgtype.UUID
	LockToken pgtype.UUID
	LockedAt  pgtype.Timestamptz
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Station struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	BranchID    uuid.UUID
	ItemName    string
	Price       pgtype.Numeric
	StationID   pgtype.UUID
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type MenuItemVariation struct {
	ID         uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Price      pgtype.Numeric
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ModifierOption struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	CreatedAt time.Time
	UpdatedAt time.Time
}

type KotCancelReason struct {
	ID        uuid.UUID
	Reason    string
	CancelKot bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID                   uuid.UUID
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
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	MenuItemID  uuid.UUID
	VariationID pgtype.UUID
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Amount      pgtype.Numeric
	Note        pgtype.Text
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderItemModifier snapshots the modifier price at selection time so
// later catalog price changes never alter an existing line amount.
type OrderItemModifier struct {
	ID               uuid.UUID
	OrderItemID      uuid.UUID
	ModifierOptionID uuid.UUID
	Price            pgtype.Numeric
	CreatedAt        time.Time
}

type Kot struct {
	ID             uuid.UUID
	BranchID       uuid.UUID
	OrderID        uuid.UUID
	StationID      pgtype.UUID
	KotNumber      int64
	TokenNumber    int64
	Status         string
	CancelReasonID pgtype.UUID
	CancelNote     pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type KotItem struct {
	ID             uuid.UUID
	KotID          uuid.UUID
	OrderItemID    uuid.UUID
	Quantity       int32
	Status         string
	CancelReasonID pgtype.UUID
	CancelNote     pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Payment struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	OrderID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	TipAmount pgtype.Numeric
	Note      pgtype.Text
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WaiterRequest struct {
	ID        uuid.UUID
	BranchID  uuid.UUID
	TableID   uuid.UUID
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncMapping records a client temp ID to server ID translation so a
// retried offline push resolves to the entity it already created.
type SyncMapping struct {
	ID         uuid.UUID
	BranchID   uuid.UUID
	EntityType string
	TempID     string
	ServerID   uuid.UUID
	CreatedAt  time.Time
}
