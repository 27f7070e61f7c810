package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const listItems = `
SELECT id, name, price, track_inventory, quantity_in_stock, created_at, updated_at
FROM items
ORDER BY name
`

// ListItems returns the full item catalog.
func (q *Queries) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := q.db.Query(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var i Item
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.TrackInventory, &i.QuantityInStock, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getItem = `
SELECT id, name, price, track_inventory, quantity_in_stock, created_at, updated_at
FROM items
WHERE id = $1
`

// GetItem returns one item by id.
func (q *Queries) GetItem(ctx context.Context, id uuid.UUID) (Item, error) {
	var i Item
	err := q.db.QueryRow(ctx, getItem, id).
		Scan(&i.ID, &i.Name, &i.Price, &i.TrackInventory, &i.QuantityInStock, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listItemOptions = `
SELECT id, item_id, name, price_modifier_id, track_inventory, created_at, updated_at
FROM item_options
ORDER BY name
`

// ListItemOptions returns all item options across the catalog.
func (q *Queries) ListItemOptions(ctx context.Context) ([]ItemOption, error) {
	rows, err := q.db.Query(ctx, listItemOptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []ItemOption
	for rows.Next() {
		var o ItemOption
		if err := rows.Scan(&o.ID, &o.ItemID, &o.Name, &o.PriceModifierID, &o.TrackInventory, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan item option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

const getItemOption = `
SELECT id, item_id, name, price_modifier_id, track_inventory, created_at, updated_at
FROM item_options
WHERE id = $1
`

// GetItemOption returns one item option by id.
func (q *Queries) GetItemOption(ctx context.Context, id uuid.UUID) (ItemOption, error) {
	var o ItemOption
	err := q.db.QueryRow(ctx, getItemOption, id).
		Scan(&o.ID, &o.ItemID, &o.Name, &o.PriceModifierID, &o.TrackInventory, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listPriceModifiers = `
SELECT id, name, modifier_type, value, is_percentage, created_at, updated_at
FROM price_modifiers
ORDER BY name
`

// ListPriceModifiers returns all price modifiers.
func (q *Queries) ListPriceModifiers(ctx context.Context) ([]PriceModifier, error) {
	rows, err := q.db.Query(ctx, listPriceModifiers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mods []PriceModifier
	for rows.Next() {
		var m PriceModifier
		if err := rows.Scan(&m.ID, &m.Name, &m.ModifierType, &m.Value, &m.IsPercentage, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan price modifier: %w", err)
		}
		mods = append(mods, m)
	}
	return mods, rows.Err()
}

const getPriceModifier = `
SELECT id, name, modifier_type, value, is_percentage, created_at, updated_at
FROM price_modifiers
WHERE id = $1
`

// GetPriceModifier returns one price modifier by id.
func (q *Queries) GetPriceModifier(ctx context.Context, id uuid.UUID) (PriceModifier, error) {
	var m PriceModifier
	err := q.db.QueryRow(ctx, getPriceModifier, id).
		Scan(&m.ID, &m.Name, &m.ModifierType, &m.Value, &m.IsPercentage, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
