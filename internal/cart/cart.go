// Package cart is the in-memory draft state for order entry: item selections,
// quantities, and per-item option counts accumulated before an order is
// submitted. The builder lives for the duration of one order-entry session
// and is discarded on submit or reset.
package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/pricing"
)

var (
	ErrItemNotInCart = errors.New("item not in cart")
	ErrNotEditing    = errors.New("no item is being edited")
)

// optionDraft is the editable snapshot of one item's option counts while the
// options editor is open. Changes only land on SaveOptions.
type optionDraft struct {
	itemID uuid.UUID
	counts map[uuid.UUID]int32
}

// Builder accumulates an order draft. It is not safe for concurrent use; one
// builder belongs to exactly one order-entry session.
type Builder struct {
	snap    *catalog.Snapshot
	lines   []pricing.Line
	editing *optionDraft
}

// NewBuilder creates an empty draft against the given catalog snapshot.
func NewBuilder(snap *catalog.Snapshot) *Builder {
	return &Builder{snap: snap}
}

func (b *Builder) lineIndex(itemID uuid.UUID) int {
	for i := range b.lines {
		if b.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// AddItem adds one unit of the item, or bumps the count if it is already in
// the draft.
func (b *Builder) AddItem(itemID uuid.UUID) {
	if i := b.lineIndex(itemID); i >= 0 {
		b.lines[i].Count++
		return
	}
	b.lines = append(b.lines, pricing.Line{ItemID: itemID, Count: 1})
}

// SetQuantity sets the item's count. A value of zero or less removes the item
// entirely; that is a deletion request, not an error.
func (b *Builder) SetQuantity(itemID uuid.UUID, count int32) {
	i := b.lineIndex(itemID)
	if i < 0 {
		return
	}
	if count <= 0 {
		b.removeAt(i, itemID)
		return
	}
	b.lines[i].Count = count
}

// RemoveItem removes the item unconditionally.
func (b *Builder) RemoveItem(itemID uuid.UUID) {
	if i := b.lineIndex(itemID); i >= 0 {
		b.removeAt(i, itemID)
	}
}

func (b *Builder) removeAt(i int, itemID uuid.UUID) {
	b.lines = append(b.lines[:i], b.lines[i+1:]...)
	if b.editing != nil && b.editing.itemID == itemID {
		b.editing = nil
	}
}

// ItemExists reports whether the item is currently in the draft.
func (b *Builder) ItemExists(itemID uuid.UUID) bool {
	return b.lineIndex(itemID) >= 0
}

// Quantity returns the item's current count, zero if absent.
func (b *Builder) Quantity(itemID uuid.UUID) int32 {
	if i := b.lineIndex(itemID); i >= 0 {
		return b.lines[i].Count
	}
	return 0
}

// OpenOptionsEditor snapshots the item's current option counts into an
// editable draft and enters the editing sub-state.
func (b *Builder) OpenOptionsEditor(itemID uuid.UUID) error {
	i := b.lineIndex(itemID)
	if i < 0 {
		return ErrItemNotInCart
	}
	counts := make(map[uuid.UUID]int32, len(b.lines[i].Options))
	for _, opt := range b.lines[i].Options {
		counts[opt.OptionID] = opt.Count
	}
	b.editing = &optionDraft{itemID: itemID, counts: counts}
	return nil
}

// Editing reports whether an options editor is open, and for which item.
func (b *Builder) Editing() (uuid.UUID, bool) {
	if b.editing == nil {
		return uuid.Nil, false
	}
	return b.editing.itemID, true
}

// SetOptionCount updates the draft option count. Zero or absent means the
// option is not selected.
func (b *Builder) SetOptionCount(optionID uuid.UUID, count int32) error {
	if b.editing == nil {
		return ErrNotEditing
	}
	if count <= 0 {
		delete(b.editing.counts, optionID)
		return nil
	}
	b.editing.counts[optionID] = count
	return nil
}

// SaveOptions commits the draft option counts to the edited item, keeping
// only counts greater than zero, and closes the editor. No-op when no item is
// being edited.
func (b *Builder) SaveOptions() {
	if b.editing == nil {
		return
	}
	i := b.lineIndex(b.editing.itemID)
	if i >= 0 {
		opts := make([]pricing.LineOption, 0, len(b.editing.counts))
		for id, count := range b.editing.counts {
			if count > 0 {
				opts = append(opts, pricing.LineOption{OptionID: id, Count: count})
			}
		}
		b.lines[i].Options = opts
	}
	b.editing = nil
}

// CloseOptionsEditor discards the draft changes and closes the editor.
func (b *Builder) CloseOptionsEditor() {
	b.editing = nil
}

// Lines returns a copy of the current draft lines in insertion order.
func (b *Builder) Lines() []pricing.Line {
	out := make([]pricing.Line, len(b.lines))
	for i, line := range b.lines {
		out[i] = line
		out[i].Options = append([]pricing.LineOption(nil), line.Options...)
	}
	return out
}

// Total returns the live draft total via the order total calculator.
func (b *Builder) Total() decimal.Decimal {
	return pricing.OrderTotal(b.snap, b.lines)
}

// Reset clears the draft back to empty.
func (b *Builder) Reset() {
	b.lines = nil
	b.editing = nil
}
