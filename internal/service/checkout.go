// Package service holds the checkout business logic: validating carts,
// recomputing prices server-side, and persisting orders atomically.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/enum"
	"github.com/tillfront/checkout/internal/pricing"
)

// Errors returned by the checkout service.
var (
	ErrEmptyLines        = errors.New("lines are required")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrItemNotFound      = errors.New("item not found")
	ErrOptionNotFound    = errors.New("item option not found")
	ErrOptionMismatch    = errors.New("option does not belong to item")
	ErrDiscountNotFound  = errors.New("discount not found")
	ErrNotDiscount       = errors.New("modifier is not a discount")
	ErrDuplicateDiscount = errors.New("discount applied more than once")
	ErrInvalidItemID     = errors.New("invalid item_id")
	ErrInvalidOptionID   = errors.New("invalid option_id")
	ErrInvalidModifierID = errors.New("invalid modifier_id")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CheckoutStore defines the DB methods needed to persist orders.
// Satisfied by *database.Queries (and its WithTx variant).
type CheckoutStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (database.Item, error)
	GetItemOption(ctx context.Context, id uuid.UUID) (database.ItemOption, error)
	GetPriceModifier(ctx context.Context, id uuid.UUID) (database.PriceModifier, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemOption(ctx context.Context, arg database.CreateOrderItemOptionParams) (database.OrderItemOption, error)
	CreateOrderDiscount(ctx context.Context, arg database.CreateOrderDiscountParams) (database.OrderDiscount, error)
}

// NewCheckoutStore creates a CheckoutStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewCheckoutStore func(db database.DBTX) CheckoutStore

// CreateOrderRequest is the validated input for creating an order.
// All prices are recomputed server-side from the catalog; nothing the
// register sends is trusted for money.
type CreateOrderRequest struct {
	CustomerName  string
	CustomerPhone string
	Lines         []CreateOrderLineRequest
	Discounts     []string // price modifier ids
}

// CreateOrderLineRequest is a single line in the order.
type CreateOrderLineRequest struct {
	ItemID   string
	Quantity int32
	Options  []CreateOrderOptionRequest
}

// CreateOrderOptionRequest is an option on an order line with its own count.
type CreateOrderOptionRequest struct {
	OptionID string
	Quantity int32
}

// CreateOrderResult is the full created order with lines and discounts.
type CreateOrderResult struct {
	Order     database.Order
	Items     []OrderItemResult
	Discounts []database.OrderDiscount
}

// OrderItemResult is a line with its options.
type OrderItemResult struct {
	Item    database.OrderItem
	Options []database.OrderItemOption
}

// CheckoutService handles order creation.
type CheckoutService struct {
	pool     TxBeginner
	newStore NewCheckoutStore
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(pool TxBeginner, newStore NewCheckoutStore) *CheckoutService {
	return &CheckoutService{pool: pool, newStore: newStore}
}

// optionInfo holds data about a line option to insert.
type optionInfo struct {
	optionID  uuid.UUID
	quantity  int32
	unitPrice decimal.Decimal
}

// processedLine holds a prepared order line and its options.
type processedLine struct {
	params  database.CreateOrderItemParams
	options []optionInfo
}

// discountInfo holds an order-level discount with its amount captured at
// apply time.
type discountInfo struct {
	modifierID uuid.UUID
	name       string
	amount     decimal.Decimal
}

// CreateOrder validates, recomputes prices, and creates an order atomically.
func (s *CheckoutService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	// --- Validate lines non-empty ---
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Process lines: validate + recompute prices ---
	orderSubtotal := decimal.Zero
	var lines []processedLine

	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidQuantity)
		}

		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: %w", i, ErrInvalidItemID)
		}

		item, err := store.GetItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("lines[%d]: %w", i, ErrItemNotFound)
			}
			return nil, fmt.Errorf("lines[%d]: get item: %w", i, err)
		}
		basePrice, err := database.NumericToDecimal(item.Price)
		if err != nil {
			return nil, fmt.Errorf("lines[%d]: item price: %w", i, err)
		}

		// Each option's per-unit delta multiplies by that option's own
		// count, not by the line quantity.
		optionsTotal := decimal.Zero
		var lineOptions []optionInfo
		for j, opt := range line.Options {
			if opt.Quantity <= 0 {
				return nil, fmt.Errorf("lines[%d].options[%d]: %w", i, j, ErrInvalidQuantity)
			}
			optionID, err := uuid.Parse(opt.OptionID)
			if err != nil {
				return nil, fmt.Errorf("lines[%d].options[%d]: %w", i, j, ErrInvalidOptionID)
			}
			option, err := store.GetItemOption(ctx, optionID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("lines[%d].options[%d]: %w", i, j, ErrOptionNotFound)
				}
				return nil, fmt.Errorf("lines[%d].options[%d]: get option: %w", i, j, err)
			}
			if option.ItemID != itemID {
				return nil, fmt.Errorf("lines[%d].options[%d]: %w", i, j, ErrOptionMismatch)
			}

			unitPrice, err := s.optionUnitPrice(ctx, store, option, basePrice)
			if err != nil {
				return nil, fmt.Errorf("lines[%d].options[%d]: %w", i, j, err)
			}
			optionsTotal = optionsTotal.Add(unitPrice.Mul(decimal.NewFromInt32(opt.Quantity)))
			lineOptions = append(lineOptions, optionInfo{
				optionID:  optionID,
				quantity:  opt.Quantity,
				unitPrice: unitPrice,
			})
		}

		lineTotal := basePrice.Mul(decimal.NewFromInt32(line.Quantity)).Add(optionsTotal)
		orderSubtotal = orderSubtotal.Add(lineTotal)

		lines = append(lines, processedLine{
			params: database.CreateOrderItemParams{
				ItemID:    itemID,
				Quantity:  line.Quantity,
				UnitPrice: database.DecimalToNumeric(basePrice),
				LineTotal: database.DecimalToNumeric(lineTotal),
			},
			options: lineOptions,
		})
	}

	// --- Resolve order-level discounts ---
	// The amount is captured against the subtotal at apply time and stored;
	// it is never recomputed later.
	discountTotal := decimal.Zero
	seen := make(map[uuid.UUID]bool)
	var discounts []discountInfo
	for i, raw := range req.Discounts {
		modifierID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("discounts[%d]: %w", i, ErrInvalidModifierID)
		}
		if seen[modifierID] {
			return nil, fmt.Errorf("discounts[%d]: %w", i, ErrDuplicateDiscount)
		}
		seen[modifierID] = true

		row, err := store.GetPriceModifier(ctx, modifierID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("discounts[%d]: %w", i, ErrDiscountNotFound)
			}
			return nil, fmt.Errorf("discounts[%d]: get modifier: %w", i, err)
		}
		if row.ModifierType != enum.ModifierTypeDiscount {
			return nil, fmt.Errorf("discounts[%d]: %w", i, ErrNotDiscount)
		}
		value, err := database.NumericToDecimal(row.Value)
		if err != nil {
			return nil, fmt.Errorf("discounts[%d]: modifier value: %w", i, err)
		}

		mod := catalog.PriceModifier{
			ID:           row.ID,
			Name:         row.Name,
			ModifierType: row.ModifierType,
			Value:        value,
			IsPercentage: row.IsPercentage,
		}
		amount := pricing.ResolveDelta(&mod, orderSubtotal).Abs()
		discountTotal = discountTotal.Add(amount)
		discounts = append(discounts, discountInfo{
			modifierID: modifierID,
			name:       row.Name,
			amount:     amount,
		})
	}

	// --- Calculate total ---
	totalAmount := orderSubtotal.Sub(discountTotal)
	if totalAmount.IsNegative() {
		totalAmount = decimal.Zero
	}

	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}
	customerPhone := pgtype.Text{}
	if req.CustomerPhone != "" {
		customerPhone = pgtype.Text{String: req.CustomerPhone, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		CustomerName:   customerName,
		CustomerPhone:  customerPhone,
		Status:         enum.OrderStatusPending,
		Subtotal:       database.DecimalToNumeric(orderSubtotal),
		DiscountAmount: database.DecimalToNumeric(discountTotal),
		ServiceCharge:  database.DecimalToNumeric(decimal.Zero),
		TipAmount:      database.DecimalToNumeric(decimal.Zero),
		TotalAmount:    database.DecimalToNumeric(totalAmount),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert lines ---
	var itemResults []OrderItemResult
	for _, pl := range lines {
		pl.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pl.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var optResults []database.OrderItemOption
		for _, opt := range pl.options {
			oio, err := store.CreateOrderItemOption(ctx, database.CreateOrderItemOptionParams{
				OrderItemID:  item.ID,
				ItemOptionID: opt.optionID,
				Quantity:     opt.quantity,
				UnitPrice:    database.DecimalToNumeric(opt.unitPrice),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item option: %w", err)
			}
			optResults = append(optResults, oio)
		}

		itemResults = append(itemResults, OrderItemResult{
			Item:    item,
			Options: optResults,
		})
	}

	// --- Insert discounts ---
	var discountResults []database.OrderDiscount
	for _, d := range discounts {
		od, err := store.CreateOrderDiscount(ctx, database.CreateOrderDiscountParams{
			OrderID:         order.ID,
			PriceModifierID: d.modifierID,
			Name:            d.name,
			Amount:          database.DecimalToNumeric(d.amount),
		})
		if err != nil {
			return nil, fmt.Errorf("create order discount: %w", err)
		}
		discountResults = append(discountResults, od)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{
		Order:     order,
		Items:     itemResults,
		Discounts: discountResults,
	}, nil
}

// optionUnitPrice resolves an option's per-unit delta against the item's base
// price. An option without a modifier, or whose modifier row has gone away,
// contributes zero.
func (s *CheckoutService) optionUnitPrice(ctx context.Context, store CheckoutStore, option database.ItemOption, basePrice decimal.Decimal) (decimal.Decimal, error) {
	if !option.PriceModifierID.Valid {
		return decimal.Zero, nil
	}
	row, err := store.GetPriceModifier(ctx, uuid.UUID(option.PriceModifierID.Bytes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, fmt.Errorf("get option modifier: %w", err)
	}
	value, err := database.NumericToDecimal(row.Value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("option modifier value: %w", err)
	}
	mod := catalog.PriceModifier{
		ID:           row.ID,
		Name:         row.Name,
		ModifierType: row.ModifierType,
		Value:        value,
		IsPercentage: row.IsPercentage,
	}
	return pricing.ResolveDelta(&mod, basePrice), nil
}
