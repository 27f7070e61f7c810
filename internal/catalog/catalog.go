// Package catalog holds the read-only snapshot of items, item options, and
// price modifiers that the pricing engine consumes. The snapshot is loaded
// once per checkout session and never mutated by the engine.
package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a sellable catalog entry.
type Item struct {
	ID              uuid.UUID
	Name            string
	Price           decimal.Decimal
	TrackInventory  bool
	QuantityInStock int32
}

// ItemOption is a selectable variant or add-on belonging to exactly one item.
// Its price contribution comes from the linked price modifier; an option
// without a modifier contributes nothing.
type ItemOption struct {
	ID              uuid.UUID
	ItemID          uuid.UUID
	Name            string
	PriceModifierID uuid.NullUUID
	TrackInventory  bool
}

// PriceModifier is a flat or percentage price delta typed as discount,
// surcharge, tax, or tip.
type PriceModifier struct {
	ID           uuid.UUID
	Name         string
	ModifierType string
	Value        decimal.Decimal
	IsPercentage bool
}

// Snapshot is an immutable view of the catalog keyed for lookup.
type Snapshot struct {
	items     map[uuid.UUID]Item
	options   map[uuid.UUID]ItemOption
	modifiers map[uuid.UUID]PriceModifier
}

// NewSnapshot builds a snapshot from catalog rows. Later duplicates by ID win;
// the loader is expected not to produce any.
func NewSnapshot(items []Item, options []ItemOption, modifiers []PriceModifier) *Snapshot {
	s := &Snapshot{
		items:     make(map[uuid.UUID]Item, len(items)),
		options:   make(map[uuid.UUID]ItemOption, len(options)),
		modifiers: make(map[uuid.UUID]PriceModifier, len(modifiers)),
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	for _, op := range options {
		s.options[op.ID] = op
	}
	for _, m := range modifiers {
		s.modifiers[m.ID] = m
	}
	return s
}

// Item looks up an item by ID.
func (s *Snapshot) Item(id uuid.UUID) (Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Option looks up an item option by ID.
func (s *Snapshot) Option(id uuid.UUID) (ItemOption, bool) {
	op, ok := s.options[id]
	return op, ok
}

// Modifier looks up a price modifier by ID.
func (s *Snapshot) Modifier(id uuid.UUID) (PriceModifier, bool) {
	m, ok := s.modifiers[id]
	return m, ok
}

// Modifiers returns all price modifiers of the given type, in unspecified order.
func (s *Snapshot) Modifiers(modifierType string) []PriceModifier {
	var out []PriceModifier
	for _, m := range s.modifiers {
		if m.ModifierType == modifierType {
			out = append(out, m)
		}
	}
	return out
}

// OptionsForItem returns all options belonging to the given item.
func (s *Snapshot) OptionsForItem(itemID uuid.UUID) []ItemOption {
	var out []ItemOption
	for _, op := range s.options {
		if op.ItemID == itemID {
			out = append(out, op)
		}
	}
	return out
}
