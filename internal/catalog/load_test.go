package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/enum"
)

// mockStore lets each test override only the queries it cares about.
type mockStore struct {
	listItemsFn          func(ctx context.Context) ([]database.Item, error)
	listItemOptionsFn    func(ctx context.Context) ([]database.ItemOption, error)
	listPriceModifiersFn func(ctx context.Context) ([]database.PriceModifier, error)
}

func (m *mockStore) ListItems(ctx context.Context) ([]database.Item, error) {
	if m.listItemsFn != nil {
		return m.listItemsFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) ListItemOptions(ctx context.Context) ([]database.ItemOption, error) {
	if m.listItemOptionsFn != nil {
		return m.listItemOptionsFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) ListPriceModifiers(ctx context.Context) ([]database.PriceModifier, error) {
	if m.listPriceModifiersFn != nil {
		return m.listPriceModifiersFn(ctx)
	}
	return nil, nil
}

func TestLoadBuildsSnapshot(t *testing.T) {
	itemID := uuid.New()
	optionID := uuid.New()
	modifierID := uuid.New()

	store := &mockStore{
		listItemsFn: func(ctx context.Context) ([]database.Item, error) {
			return []database.Item{{
				ID:              itemID,
				Name:            "Latte",
				Price:           database.DecimalToNumeric(decimal.RequireFromString("4.50")),
				TrackInventory:  true,
				QuantityInStock: pgtype.Int4{Int32: 12, Valid: true},
			}}, nil
		},
		listItemOptionsFn: func(ctx context.Context) ([]database.ItemOption, error) {
			return []database.ItemOption{{
				ID:              optionID,
				ItemID:          itemID,
				Name:            "Oat milk",
				PriceModifierID: pgtype.UUID{Bytes: modifierID, Valid: true},
			}}, nil
		},
		listPriceModifiersFn: func(ctx context.Context) ([]database.PriceModifier, error) {
			return []database.PriceModifier{{
				ID:           modifierID,
				Name:         "Oat milk surcharge",
				ModifierType: enum.ModifierTypeSurcharge,
				Value:        database.DecimalToNumeric(decimal.RequireFromString("0.50")),
			}}, nil
		},
	}

	snap, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	item, ok := snap.Item(itemID)
	if !ok {
		t.Fatal("item not in snapshot")
	}
	if !item.Price.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("item price: got %v, want 4.50", item.Price)
	}
	if item.QuantityInStock != 12 {
		t.Errorf("quantity in stock: got %d, want 12", item.QuantityInStock)
	}

	option, ok := snap.Option(optionID)
	if !ok {
		t.Fatal("option not in snapshot")
	}
	if !option.PriceModifierID.Valid || option.PriceModifierID.UUID != modifierID {
		t.Errorf("option modifier link: got %v, want %v", option.PriceModifierID, modifierID)
	}

	mod, ok := snap.Modifier(modifierID)
	if !ok {
		t.Fatal("modifier not in snapshot")
	}
	if !mod.Value.Equal(decimal.RequireFromString("0.50")) {
		t.Errorf("modifier value: got %v, want 0.50", mod.Value)
	}
}

func TestLoadOptionWithoutModifier(t *testing.T) {
	itemID := uuid.New()
	optionID := uuid.New()

	store := &mockStore{
		listItemOptionsFn: func(ctx context.Context) ([]database.ItemOption, error) {
			return []database.ItemOption{{
				ID:     optionID,
				ItemID: itemID,
				Name:   "No ice",
			}}, nil
		},
	}

	snap, err := Load(context.Background(), store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	option, ok := snap.Option(optionID)
	if !ok {
		t.Fatal("option not in snapshot")
	}
	if option.PriceModifierID.Valid {
		t.Errorf("modifier link should be null, got %v", option.PriceModifierID)
	}
}

func TestLoadNullItemPriceFails(t *testing.T) {
	store := &mockStore{
		listItemsFn: func(ctx context.Context) ([]database.Item, error) {
			return []database.Item{{
				ID:    uuid.New(),
				Name:  "Broken",
				Price: pgtype.Numeric{},
			}}, nil
		},
	}

	_, err := Load(context.Background(), store)
	if err == nil {
		t.Fatal("expected error for null price")
	}
	if !strings.Contains(err.Error(), "Broken") {
		t.Errorf("error should name the item: %v", err)
	}
}

func TestLoadNullModifierValueFails(t *testing.T) {
	store := &mockStore{
		listPriceModifiersFn: func(ctx context.Context) ([]database.PriceModifier, error) {
			return []database.PriceModifier{{
				ID:           uuid.New(),
				Name:         "Mystery discount",
				ModifierType: enum.ModifierTypeDiscount,
				Value:        pgtype.Numeric{},
			}}, nil
		},
	}

	_, err := Load(context.Background(), store)
	if err == nil {
		t.Fatal("expected error for null modifier value")
	}
	if !strings.Contains(err.Error(), "Mystery discount") {
		t.Errorf("error should name the modifier: %v", err)
	}
}

func TestLoadStoreErrorPropagates(t *testing.T) {
	dbErr := errors.New("connection refused")
	store := &mockStore{
		listItemsFn: func(ctx context.Context) ([]database.Item, error) {
			return nil, dbErr
		},
	}

	_, err := Load(context.Background(), store)
	if !errors.Is(err, dbErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
