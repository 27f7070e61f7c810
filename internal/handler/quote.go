package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/cart"
	"github.com/tillfront/checkout/internal/discount"
)

// QuoteHandler prices a draft order without persisting anything. The register
// calls it while the cashier is still building the cart, so pricing is
// lenient the way the live display is: unknown references price at zero.
// Discount eligibility is still enforced.
type QuoteHandler struct {
	loadSnap SnapshotLoader
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(loadSnap SnapshotLoader) *QuoteHandler {
	return &QuoteHandler{loadSnap: loadSnap}
}

// RegisterRoutes registers the quote endpoint on the given Chi router.
func (h *QuoteHandler) RegisterRoutes(r chi.Router) {
	r.Post("/quote", h.Quote)
}

type quoteDiscountResponse struct {
	PriceModifierID uuid.UUID `json:"price_modifier_id"`
	Name            string    `json:"name"`
	Amount          string    `json:"amount"`
}

type quoteResponse struct {
	Subtotal       string                  `json:"subtotal"`
	DiscountAmount string                  `json:"discount_amount"`
	Total          string                  `json:"total"`
	Discounts      []quoteDiscountResponse `json:"discounts"`
}

// Quote handles POST /orders/quote. It rebuilds the draft through the cart
// builder, snapshots the requested discounts against the draft subtotal, and
// returns the running totals.
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lines are required"})
		return
	}

	snap, err := h.loadSnap(r.Context())
	if err != nil {
		slog.Error("load catalog snapshot", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	builder := cart.NewBuilder(snap)
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be > 0"})
			return
		}
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item_id"})
			return
		}
		builder.AddItem(itemID)
		builder.SetQuantity(itemID, line.Quantity)

		if len(line.Options) == 0 {
			continue
		}
		if err := builder.OpenOptionsEditor(itemID); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		for _, opt := range line.Options {
			optionID, err := uuid.Parse(opt.OptionID)
			if err != nil {
				builder.CloseOptionsEditor()
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid option_id"})
				return
			}
			if err := builder.SetOptionCount(optionID, opt.Quantity); err != nil {
				builder.CloseOptionsEditor()
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}
		builder.SaveOptions()
	}

	subtotal := builder.Total()

	ledger := discount.NewLedger()
	for _, raw := range req.Discounts {
		modifierID, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid modifier_id"})
			return
		}
		if err := ledger.Apply(snap, modifierID, subtotal); err != nil {
			if errors.Is(err, discount.ErrModifierNotFound) ||
				errors.Is(err, discount.ErrNotDiscount) ||
				errors.Is(err, discount.ErrAlreadyApplied) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			slog.Error("apply discount", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	discountTotal := ledger.Total()
	total := subtotal.Sub(discountTotal)
	if total.IsNegative() {
		total = decimal.Zero
	}

	applied := ledger.Applied()
	discounts := make([]quoteDiscountResponse, 0, len(applied))
	for _, a := range applied {
		discounts = append(discounts, quoteDiscountResponse{
			PriceModifierID: a.ModifierID,
			Name:            a.Name,
			Amount:          a.Amount.StringFixed(2),
		})
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Subtotal:       subtotal.StringFixed(2),
		DiscountAmount: discountTotal.StringFixed(2),
		Total:          total.StringFixed(2),
		Discounts:      discounts,
	})
}
