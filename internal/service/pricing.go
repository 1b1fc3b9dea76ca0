package service

import (
	"github.com/sajikan-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// LinePrice is the structured breakdown of a single order line. The unit
// price already folds in the variation override and modifier additions so
// Amount is always UnitPrice * Quantity.
type LinePrice struct {
	Base      decimal.Decimal
	Variation decimal.Decimal // replaces Base when set
	Modifiers decimal.Decimal // sum of selected modifier prices
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// priceLine computes a line from catalog prices snapshotted at intake.
// hasVariation distinguishes "no variation" from a zero-priced one.
func priceLine(base decimal.Decimal, variation decimal.Decimal, hasVariation bool, modifiers []decimal.Decimal, quantity int32) LinePrice {
	lp := LinePrice{Base: base}
	unit := base
	if hasVariation {
		lp.Variation = variation
		unit = variation
	}
	for _, m := range modifiers {
		lp.Modifiers = lp.Modifiers.Add(m)
	}
	lp.UnitPrice = unit.Add(lp.Modifiers)
	lp.Amount = lp.UnitPrice.Mul(decimal.NewFromInt32(quantity))
	return lp
}

// discountAmount resolves a discount into a concrete deduction.
// Percent discounts scale with the subtotal; fixed discounts are clamped
// to it so the total never goes negative.
func discountAmount(discountType string, value, subtotal decimal.Decimal) (decimal.Decimal, error) {
	switch discountType {
	case "":
		return decimal.Zero, nil
	case enum.DiscountTypePercent:
		if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, ErrInvalidDiscountValue
		}
		return subtotal.Mul(value).Div(decimal.NewFromInt(100)), nil
	case enum.DiscountTypeFixed:
		if value.IsNegative() {
			return decimal.Zero, ErrInvalidDiscountValue
		}
		if value.GreaterThan(subtotal) {
			return subtotal, nil
		}
		return value, nil
	}
	return decimal.Zero, ErrInvalidDiscount
}

// orderTotal assembles the grand total from its parts.
func orderTotal(subtotal, discount, tax, tip, deliveryFee decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(tax).Add(tip).Add(deliveryFee)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
