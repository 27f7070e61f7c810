package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/enum"
)

// CatalogStore defines the database methods needed by catalog handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListItems(ctx context.Context) ([]database.Item, error)
	ListItemOptions(ctx context.Context) ([]database.ItemOption, error)
	ListPriceModifiers(ctx context.Context) ([]database.PriceModifier, error)
}

// CatalogHandler serves the item catalog the register renders its grid from.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/items", h.ListItems)
	r.Get("/modifiers", h.ListModifiers)
}

// --- Response types ---

type itemResponse struct {
	ID              uuid.UUID            `json:"id"`
	Name            string               `json:"name"`
	Price           string               `json:"price"`
	TrackInventory  bool                 `json:"track_inventory"`
	QuantityInStock *int32               `json:"quantity_in_stock"`
	Options         []itemOptionResponse `json:"options"`
}

type itemOptionResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PriceModifierID *string   `json:"price_modifier_id"`
	TrackInventory  bool      `json:"track_inventory"`
}

type modifierResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	ModifierType string    `json:"modifier_type"`
	Value        string    `json:"value"`
	IsPercentage bool      `json:"is_percentage"`
}

// --- Handlers ---

// ListItems handles GET /catalog/items. Each item carries its options so the
// register can render the options editor without a second round trip.
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListItems(r.Context())
	if err != nil {
		slog.Error("list items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	options, err := h.store.ListItemOptions(r.Context())
	if err != nil {
		slog.Error("list item options", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	optionsByItem := make(map[uuid.UUID][]itemOptionResponse)
	for _, o := range options {
		resp := itemOptionResponse{
			ID:             o.ID,
			Name:           o.Name,
			TrackInventory: o.TrackInventory,
		}
		if o.PriceModifierID.Valid {
			s := uuid.UUID(o.PriceModifierID.Bytes).String()
			resp.PriceModifierID = &s
		}
		optionsByItem[o.ItemID] = append(optionsByItem[o.ItemID], resp)
	}

	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		resp := itemResponse{
			ID:             it.ID,
			Name:           it.Name,
			Price:          numericToString(it.Price),
			TrackInventory: it.TrackInventory,
			Options:        optionsByItem[it.ID],
		}
		if it.QuantityInStock.Valid {
			resp.QuantityInStock = &it.QuantityInStock.Int32
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListModifiers handles GET /catalog/modifiers. The optional type filter lets
// the register fetch just the discounts for its discount picker.
func (h *CatalogHandler) ListModifiers(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("type")
	if filter != "" && !modifierTypeKnown(filter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifier type"})
		return
	}

	mods, err := h.store.ListPriceModifiers(r.Context())
	if err != nil {
		slog.Error("list price modifiers", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]modifierResponse, 0, len(mods))
	for _, m := range mods {
		if filter != "" && m.ModifierType != filter {
			continue
		}
		out = append(out, modifierResponse{
			ID:           m.ID,
			Name:         m.Name,
			ModifierType: m.ModifierType,
			Value:        numericToString(m.Value),
			IsPercentage: m.IsPercentage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func modifierTypeKnown(t string) bool {
	switch t {
	case enum.ModifierTypeDiscount, enum.ModifierTypeSurcharge,
		enum.ModifierTypeTax, enum.ModifierTypeTip:
		return true
	}
	return false
}
