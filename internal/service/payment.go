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
	"github.com/shopspring/decimal"
)

// PaymentStore defines the DB methods needed for payment recording.
// Satisfied by *database.Queries (and its WithTx variant).
type PaymentStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentLedger records payments against orders. All writes run with
// the order row locked so the remaining-balance check and the inserts
// are one atomic step.
type PaymentLedger struct {
	pool     TxBeginner
	store    PaymentStore // pool-backed, for reads
	newStore NewPaymentStore
}

func NewPaymentLedger(pool TxBeginner, store PaymentStore, newStore NewPaymentStore) *PaymentLedger {
	return &PaymentLedger{pool: pool, store: store, newStore: newStore}
}

// SplitComponent is one leg of a split payment.
type SplitComponent struct {
	Method string
	Amount string
}

// RecordPaymentRequest records money against an order. For method
// "split" the Splits legs are used; otherwise Amount is a single
// payment.
type RecordPaymentRequest struct {
	OrderID   uuid.UUID
	BranchID  uuid.UUID
	CreatedBy uuid.UUID
	Method    string
	Amount    string
	TipAmount string
	Note      string
	Splits    []SplitComponent
}

// RecordPaymentResult is the accepted payments plus the order after any
// settlement side effect.
type RecordPaymentResult struct {
	Order     database.Order
	Payments  []database.Payment
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Settled   bool
}

// RecordPayment applies a payment. A single payment larger than the
// remaining balance is clamped to it; split legs must fit the balance
// exactly or under, or the whole split is rejected. Reaching the total
// marks the order served.
func (p *PaymentLedger) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	if !isValidPaymentMethod(req.Method) {
		return nil, ErrInvalidMethod
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := p.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, database.GetOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusCancelled {
		return nil, ErrOrderCancelled
	}

	total := numericToDecimal(order.Total)
	paidNum, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}
	paid := numericToDecimal(paidNum)
	remaining := total.Sub(paid)
	if remaining.LessThanOrEqual(decimal.Zero) {
		return nil, ErrOrderSettled
	}

	var payments []database.Payment
	applied := decimal.Zero

	if req.Method == enum.PaymentMethodSplit {
		if len(req.Splits) == 0 {
			return nil, ErrEmptySplit
		}
		splitSum := decimal.Zero
		legs := make([]decimal.Decimal, len(req.Splits))
		for i, leg := range req.Splits {
			if !isValidPaymentMethod(leg.Method) || leg.Method == enum.PaymentMethodSplit {
				return nil, ErrInvalidMethod
			}
			amount, err := decimal.NewFromString(leg.Amount)
			if err != nil || amount.LessThanOrEqual(decimal.Zero) {
				return nil, ErrInvalidAmount
			}
			legs[i] = amount
			splitSum = splitSum.Add(amount)
		}
		// All-or-nothing: a split that overshoots is rejected outright
		// rather than clamped leg by leg.
		if splitSum.GreaterThan(remaining) {
			return nil, ErrSplitExceedsBalance
		}
		for i, leg := range req.Splits {
			payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
				BranchID:  req.BranchID,
				OrderID:   order.ID,
				Method:    leg.Method,
				Amount:    decimalToNumeric(legs[i]),
				TipAmount: decimalToNumeric(decimal.Zero),
				Note:      textOrNull(req.Note),
				CreatedBy: req.CreatedBy,
			})
			if err != nil {
				return nil, fmt.Errorf("create payment: %w", err)
			}
			payments = append(payments, payment)
		}
		applied = splitSum
	} else {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidAmount
		}
		tip, err := parseAmount(req.TipAmount)
		if err != nil {
			return nil, validation("invalid tip_amount")
		}
		// Overpayment collapses to the remaining balance; the surplus is
		// change handed back, not revenue.
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			BranchID:  req.BranchID,
			OrderID:   order.ID,
			Method:    req.Method,
			Amount:    decimalToNumeric(amount),
			TipAmount: decimalToNumeric(tip),
			Note:      textOrNull(req.Note),
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		payments = append(payments, payment)
		applied = amount
	}

	newPaid := paid.Add(applied)
	settled := false
	if newPaid.GreaterThanOrEqual(total) && order.Status != enum.OrderStatusServed {
		order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			BranchID:   req.BranchID,
			Status:     enum.OrderStatusServed,
			FromStatus: order.Status,
		})
		if err != nil {
			return nil, fmt.Errorf("settle order: %w", err)
		}
		settled = true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &RecordPaymentResult{
		Order:     order,
		Payments:  payments,
		Paid:      newPaid,
		Remaining: total.Sub(newPaid),
		Settled:   settled,
	}, nil
}

// Balance is an order's payment position.
type Balance struct {
	Order     database.Order
	Payments  []database.Payment
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// OutstandingBalance reads the order's payment position. Remaining
// never goes negative even when historical rows overpaid.
func (p *PaymentLedger) OutstandingBalance(ctx context.Context, orderID, branchID uuid.UUID) (*Balance, error) {
	order, err := p.store.GetOrder(ctx, database.GetOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	payments, err := p.store.ListPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	paid := decimal.Zero
	for _, pay := range payments {
		paid = paid.Add(numericToDecimal(pay.Amount))
	}
	remaining := numericToDecimal(order.Total).Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &Balance{Order: order, Payments: payments, Paid: paid, Remaining: remaining}, nil
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodSplit:
		return true
	}
	return false
}
