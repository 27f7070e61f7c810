package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tillfront/checkout/internal/database"
)

// Store defines the DB methods needed to load a catalog snapshot.
// Satisfied by *database.Queries.
type Store interface {
	ListItems(ctx context.Context) ([]database.Item, error)
	ListItemOptions(ctx context.Context) ([]database.ItemOption, error)
	ListPriceModifiers(ctx context.Context) ([]database.PriceModifier, error)
}

// NewStore creates a catalog Store from a DBTX (pool or tx).
type NewStore func(db database.DBTX) Store

// Load reads the full catalog and builds a snapshot. Decoding is strict: a
// row whose money column is NULL or unparsable fails the whole load rather
// than pricing the entry at zero.
func Load(ctx context.Context, store Store) (*Snapshot, error) {
	itemRows, err := store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]Item, 0, len(itemRows))
	for _, row := range itemRows {
		price, err := database.NumericToDecimal(row.Price)
		if err != nil {
			return nil, fmt.Errorf("item %s (%s) price: %w", row.Name, row.ID, err)
		}
		qty := int32(0)
		if row.QuantityInStock.Valid {
			qty = row.QuantityInStock.Int32
		}
		items = append(items, Item{
			ID:              row.ID,
			Name:            row.Name,
			Price:           price,
			TrackInventory:  row.TrackInventory,
			QuantityInStock: qty,
		})
	}

	optionRows, err := store.ListItemOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list item options: %w", err)
	}
	options := make([]ItemOption, 0, len(optionRows))
	for _, row := range optionRows {
		modifierID := uuid.NullUUID{}
		if row.PriceModifierID.Valid {
			modifierID = uuid.NullUUID{UUID: row.PriceModifierID.Bytes, Valid: true}
		}
		options = append(options, ItemOption{
			ID:              row.ID,
			ItemID:          row.ItemID,
			Name:            row.Name,
			PriceModifierID: modifierID,
			TrackInventory:  row.TrackInventory,
		})
	}

	modifierRows, err := store.ListPriceModifiers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list price modifiers: %w", err)
	}
	modifiers := make([]PriceModifier, 0, len(modifierRows))
	for _, row := range modifierRows {
		value, err := database.NumericToDecimal(row.Value)
		if err != nil {
			return nil, fmt.Errorf("price modifier %s (%s) value: %w", row.Name, row.ID, err)
		}
		modifiers = append(modifiers, PriceModifier{
			ID:           row.ID,
			Name:         row.Name,
			ModifierType: row.ModifierType,
			Value:        value,
			IsPercentage: row.IsPercentage,
		})
	}

	return NewSnapshot(items, options, modifiers), nil
}
