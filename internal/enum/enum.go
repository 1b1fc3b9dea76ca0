package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPlaced         = "placed"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPreparing      = "preparing"
	OrderStatusReadyForPickup = "ready_for_pickup"
	OrderStatusServed         = "served"
	OrderStatusCancelled      = "cancelled"
)

const (
	KotStatusPending   = "pending"
	KotStatusInKitchen = "in_kitchen"
	KotStatusReady     = "ready"
	KotStatusCancelled = "cancelled"
)

const (
	KotItemStatusPending   = "pending"
	KotItemStatusPreparing = "preparing"
	KotItemStatusReady     = "ready"
	KotItemStatusCancelled = "cancelled"
)

const (
	WaiterRequestPending   = "pending"
	WaiterRequestAccepted  = "accepted"
	WaiterRequestCompleted = "completed"
	WaiterRequestCancelled = "cancelled"
)

// ── Borderline (CHECK constrained in DB) ──

const (
	UserRoleManager = "manager"
	UserRoleWaiter  = "waiter"
	UserRoleCashier = "cashier"
	UserRoleKitchen = "kitchen"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeout  = "takeout"
	OrderTypeDelivery = "delivery"
)

// ── Configurable labels (no DB constraint) ──

const (
	PaymentMethodCash  = "cash"
	PaymentMethodCard  = "card"
	PaymentMethodSplit = "split"
)

const (
	DiscountTypePercent = "percent"
	DiscountTypeFixed   = "fixed"
)

const (
	SyncTypeTables   = "tables"
	SyncTypeOrders   = "orders"
	SyncTypeKots     = "kots"
	SyncTypePayments = "payments"
)
