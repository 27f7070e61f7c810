// Package pricing computes line-item and order totals from the catalog
// snapshot. Missing references (item, option, or modifier not found) resolve
// to a zero contribution rather than an error: the register must keep showing
// a usable total even when the catalog snapshot is stale. Callers that need
// strict validation (order persistence) do it at their own layer.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/enum"
)

// LineOption is an option attached to an order line with its own count.
// The count multiplies the option's per-unit price delta.
type LineOption struct {
	OptionID uuid.UUID
	Count    int32
}

// Line is one order line: an item, a quantity, and attached options.
type Line struct {
	ItemID  uuid.UUID
	Count   int32
	Options []LineOption
}

var oneHundred = decimal.NewFromInt(100)

// ResolveDelta returns the signed price delta a modifier applies to base.
// Discount-typed modifiers always reduce the price, regardless of the sign
// the value was entered with; every other type adds. A nil modifier has no
// effect.
func ResolveDelta(m *catalog.PriceModifier, base decimal.Decimal) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	magnitude := m.Value
	if m.IsPercentage {
		magnitude = base.Mul(m.Value).Div(oneHundred)
	}
	if m.ModifierType == enum.ModifierTypeDiscount {
		return magnitude.Abs().Neg()
	}
	return magnitude
}

// UnitPriceForOption returns the per-unit signed contribution of an item
// option, resolved against the item's base price. Unknown options and
// dangling modifier references contribute zero.
func UnitPriceForOption(snap *catalog.Snapshot, optionID uuid.UUID, itemBasePrice decimal.Decimal) decimal.Decimal {
	opt, ok := snap.Option(optionID)
	if !ok || !opt.PriceModifierID.Valid {
		return decimal.Zero
	}
	mod, ok := snap.Modifier(opt.PriceModifierID.UUID)
	if !ok {
		return decimal.Zero
	}
	return ResolveDelta(&mod, itemBasePrice)
}

// LineTotal computes base price x quantity plus the option contributions for
// one line. Each option's per-unit delta multiplies by that option's own
// count, not by the item quantity. A line referencing an unknown item prices
// at zero.
func LineTotal(snap *catalog.Snapshot, line Line) decimal.Decimal {
	basePrice := decimal.Zero
	if item, ok := snap.Item(line.ItemID); ok {
		basePrice = item.Price
	}

	total := basePrice.Mul(decimal.NewFromInt32(line.Count))
	for _, opt := range line.Options {
		unit := UnitPriceForOption(snap, opt.OptionID, basePrice)
		total = total.Add(unit.Mul(decimal.NewFromInt32(opt.Count)))
	}
	return total
}

// OrderTotal sums LineTotal over all lines. Order-level discounts, service
// charge, and tip are layered on by the order and bill layers, not here.
func OrderTotal(snap *catalog.Snapshot, lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineTotal(snap, line))
	}
	return total
}
