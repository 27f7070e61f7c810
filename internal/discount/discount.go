// Package discount maintains the order-level discount ledger. Applying a
// discount captures its amount against the subtotal at application time; the
// captured amount never recomputes when the order changes afterwards. This
// keeps the order total from drifting retroactively when items are added
// after a percentage discount was applied.
package discount

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/enum"
	"github.com/tillfront/checkout/internal/pricing"
)

var (
	ErrModifierNotFound = errors.New("price modifier not found")
	ErrNotDiscount      = errors.New("modifier is not a discount")
	ErrAlreadyApplied   = errors.New("discount already applied")
)

// Applied is one discount captured on the order.
type Applied struct {
	ModifierID uuid.UUID
	Name       string
	Amount     decimal.Decimal
}

// Ledger tracks the discounts applied to a single order. Not safe for
// concurrent use.
type Ledger struct {
	applied []Applied
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) isApplied(modifierID uuid.UUID) bool {
	for _, a := range l.applied {
		if a.ModifierID == modifierID {
			return true
		}
	}
	return false
}

// Apply captures the discount against the given order subtotal. Only
// discount-typed modifiers are eligible, and a modifier can be applied to an
// order at most once.
func (l *Ledger) Apply(snap *catalog.Snapshot, modifierID uuid.UUID, orderSubtotal decimal.Decimal) error {
	mod, ok := snap.Modifier(modifierID)
	if !ok {
		return ErrModifierNotFound
	}
	if mod.ModifierType != enum.ModifierTypeDiscount {
		return ErrNotDiscount
	}
	if l.isApplied(modifierID) {
		return ErrAlreadyApplied
	}

	amount := pricing.ResolveDelta(&mod, orderSubtotal).Abs()
	l.applied = append(l.applied, Applied{
		ModifierID: modifierID,
		Name:       mod.Name,
		Amount:     amount,
	})
	return nil
}

// Remove deletes the discount from the ledger. Other captured amounts are
// left untouched.
func (l *Ledger) Remove(modifierID uuid.UUID) {
	for i, a := range l.applied {
		if a.ModifierID == modifierID {
			l.applied = append(l.applied[:i], l.applied[i+1:]...)
			return
		}
	}
}

// Applied returns the captured discounts in application order.
func (l *Ledger) Applied() []Applied {
	return append([]Applied(nil), l.applied...)
}

// Total returns the sum of all captured discount amounts.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.applied {
		total = total.Add(a.Amount)
	}
	return total
}

// Available returns the discount catalog minus the already-applied entries,
// sorted by name for a stable display order. This is how double application
// is prevented structurally: an applied discount is simply not offered again.
func (l *Ledger) Available(snap *catalog.Snapshot) []catalog.PriceModifier {
	var out []catalog.PriceModifier
	for _, m := range snap.Modifiers(enum.ModifierTypeDiscount) {
		if !l.isApplied(m.ID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears the ledger.
func (l *Ledger) Reset() {
	l.applied = nil
}
