package service

import "errors"

// Category sentinels. Handlers map these to HTTP statuses with a single
// errors.Is check: validation 422, not found 404, conflict 409.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// kindError pairs a human-readable message with a category sentinel so
// specific errors stay comparable via errors.Is on both themselves and
// their category.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func validation(msg string) error { return &kindError{msg: msg, kind: ErrValidation} }
func notFound(msg string) error   { return &kindError{msg: msg, kind: ErrNotFound} }
func conflict(msg string) error   { return &kindError{msg: msg, kind: ErrConflict} }

var (
	// Tables and locks.
	ErrTableNotFound    = notFound("table not found")
	ErrTableLocked      = conflict("table is locked by another device")
	ErrLockNotHeld      = conflict("lock is not held by this device")
	ErrTableOccupied    = conflict("table already has an active order")
	ErrInvalidLockToken = validation("invalid lock token")

	// Orders.
	ErrOrderNotFound        = notFound("order not found")
	ErrOrderItemNotFound    = notFound("order item not found")
	ErrOrderNotEditable     = conflict("order can no longer be modified")
	ErrOrderNotCancellable  = conflict("order can no longer be cancelled")
	ErrInvalidTransition    = conflict("invalid order status transition")
	ErrEmptyItems           = validation("items are required")
	ErrInvalidOrderType     = validation("invalid order_type")
	ErrInvalidQuantity      = validation("quantity must be greater than zero")
	ErrInvalidPax           = validation("number_of_pax must be greater than zero")
	ErrTableRequired        = validation("table_id is required for dine_in orders")
	ErrMenuItemNotFound     = notFound("menu item not found")
	ErrMenuItemUnavailable  = validation("menu item is not available")
	ErrVariationNotFound    = notFound("variation not found")
	ErrVariationMismatch    = validation("variation does not belong to menu item")
	ErrModifierNotFound     = notFound("modifier not found")
	ErrInvalidDiscount      = validation("invalid discount_type")
	ErrInvalidDiscountValue = validation("invalid discount_value")
	ErrInvalidStatus        = validation("invalid status")

	// KOTs.
	ErrKotNotFound          = notFound("kot not found")
	ErrKotItemNotFound      = notFound("kot item not found")
	ErrKotNotOpen           = conflict("kot is not open")
	ErrKotItemFinal         = conflict("kot item is already ready or cancelled")
	ErrCancelReasonNotFound = notFound("cancel reason not found")
	ErrCancelReasonRequired = validation("cancel_reason_id is required")

	// Payments.
	ErrPaymentNotFound     = notFound("payment not found")
	ErrOrderCancelled      = conflict("order is cancelled")
	ErrOrderSettled        = conflict("order is already fully paid")
	ErrInvalidAmount       = validation("amount must be greater than zero")
	ErrInvalidMethod       = validation("invalid payment method")
	ErrSplitExceedsBalance = conflict("split payments exceed the remaining balance")
	ErrEmptySplit          = validation("split payments require at least one component")

	// Sync.
	ErrInvalidSyncType = validation("invalid sync entity type")
	ErrInvalidCursor   = validation("invalid sync cursor")

	// Waiter requests.
	ErrWaiterRequestNotFound = notFound("waiter request not found")
	ErrRequestAlreadyPending = conflict("table already has a pending waiter request")
)
