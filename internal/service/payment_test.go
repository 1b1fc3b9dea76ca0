package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/enum"
)

func newTestPaymentLedger(store *memStore) *PaymentLedger {
	pool := &mockTxBeginner{tx: &mockTx{}}
	return NewPaymentLedger(pool, store, func(db database.DBTX) PaymentStore { return store })
}

// seedOrder inserts an order with the given total, status placed.
func seedOrder(store *memStore, total string) database.Order {
	order, _ := store.CreateOrder(context.Background(), database.CreateOrderParams{
		BranchID:    store.branchID,
		OrderNumber: 1,
		OrderType:   enum.OrderTypeDineIn,
		WaiterID:    uuid.New(),
		NumberOfPax: 2,
		Status:      enum.OrderStatusPlaced,
		Subtotal:    makeNumeric(total),
		Total:       makeNumeric(total),
	})
	return order
}

func TestRecordPayment_PartialLeavesBalance(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "24.30")
	ledger := newTestPaymentLedger(store)

	result, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodCash,
		Amount:    "10.00",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if result.Settled {
		t.Fatal("partial payment must not settle the order")
	}
	if !result.Remaining.Equal(dec("14.30")) {
		t.Fatalf("remaining = %s, want 14.30", result.Remaining)
	}
	if result.Order.Status != enum.OrderStatusPlaced {
		t.Fatalf("status = %s, want unchanged", result.Order.Status)
	}
}

func TestRecordPayment_OverpaymentClamped(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "24.30")
	ledger := newTestPaymentLedger(store)

	result, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodCash,
		Amount:    "30.00",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	numericEquals(t, result.Payments[0].Amount, "24.30")
	if !result.Settled {
		t.Fatal("full payment must settle the order")
	}
	if result.Order.Status != enum.OrderStatusServed {
		t.Fatalf("status = %s, want served", result.Order.Status)
	}
	if !result.Remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", result.Remaining)
	}
}

func TestRecordPayment_SplitOvershootRejected(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "12.00")
	ledger := newTestPaymentLedger(store)

	_, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodSplit,
		Splits: []SplitComponent{
			{Method: enum.PaymentMethodCash, Amount: "10.00"},
			{Method: enum.PaymentMethodCard, Amount: "5.00"},
		},
	})
	if !errors.Is(err, ErrSplitExceedsBalance) {
		t.Fatalf("expected ErrSplitExceedsBalance, got: %v", err)
	}
	// Another device may have recorded a payment in between, so this is
	// a conflict, not a malformed request.
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict category, got: %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("overpaying split must not classify as validation")
	}
	// All-or-nothing: no leg may have been persisted.
	if len(store.payments) != 0 {
		t.Fatalf("payments persisted = %d, want 0", len(store.payments))
	}
}

func TestRecordPayment_SplitExactSettles(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "12.00")
	ledger := newTestPaymentLedger(store)

	result, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodSplit,
		Splits: []SplitComponent{
			{Method: enum.PaymentMethodCash, Amount: "7.00"},
			{Method: enum.PaymentMethodCard, Amount: "5.00"},
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(result.Payments) != 2 {
		t.Fatalf("payments = %d, want one per leg", len(result.Payments))
	}
	if !result.Settled || result.Order.Status != enum.OrderStatusServed {
		t.Fatal("exact split must settle the order")
	}
}

func TestRecordPayment_SplitNeedsLegs(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "12.00")
	ledger := newTestPaymentLedger(store)

	_, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodSplit,
	})
	if !errors.Is(err, ErrEmptySplit) {
		t.Fatalf("expected ErrEmptySplit, got: %v", err)
	}
}

func TestRecordPayment_CancelledOrderRejected(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "12.00")
	stored := store.orders[order.ID]
	stored.Status = enum.OrderStatusCancelled
	store.orders[order.ID] = stored
	ledger := newTestPaymentLedger(store)

	_, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodCash,
		Amount:    "5.00",
	})
	if !errors.Is(err, ErrOrderCancelled) {
		t.Fatalf("expected ErrOrderCancelled, got: %v", err)
	}
}

func TestRecordPayment_SettledOrderRejected(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "12.00")
	ledger := newTestPaymentLedger(store)

	if _, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodCash,
		Amount:    "12.00",
	}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	_, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodCash,
		Amount:    "1.00",
	})
	if !errors.Is(err, ErrOrderSettled) {
		t.Fatalf("expected ErrOrderSettled, got: %v", err)
	}
}

func TestRecordPayment_InvalidAmount(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "12.00")
	ledger := newTestPaymentLedger(store)

	for _, amount := range []string{"", "0", "-5", "abc"} {
		_, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
			OrderID:   order.ID,
			BranchID:  store.branchID,
			CreatedBy: uuid.New(),
			Method:    enum.PaymentMethodCash,
			Amount:    amount,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %q: expected ErrInvalidAmount, got: %v", amount, err)
		}
	}
}

func TestOutstandingBalance(t *testing.T) {
	store := newMemStore(uuid.New())
	order := seedOrder(store, "24.30")
	ledger := newTestPaymentLedger(store)

	if _, err := ledger.RecordPayment(context.Background(), RecordPaymentRequest{
		OrderID:   order.ID,
		BranchID:  store.branchID,
		CreatedBy: uuid.New(),
		Method:    enum.PaymentMethodCard,
		Amount:    "10.00",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	balance, err := ledger.OutstandingBalance(context.Background(), order.ID, store.branchID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Paid.Equal(dec("10.00")) {
		t.Fatalf("paid = %s, want 10.00", balance.Paid)
	}
	if !balance.Remaining.Equal(dec("14.30")) {
		t.Fatalf("remaining = %s, want 14.30", balance.Remaining)
	}
	if len(balance.Payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(balance.Payments))
	}
}
