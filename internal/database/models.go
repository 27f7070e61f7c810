package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Item is a sellable catalog entry row.
type Item struct {
	ID              uuid.UUID
	Name            string
	Price           pgtype.Numeric
	TrackInventory  bool
	QuantityInStock pgtype.Int4
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ItemOption is a selectable variant/add-on row belonging to one item.
type ItemOption struct {
	ID              uuid.UUID
	ItemID          uuid.UUID
	Name            string
	PriceModifierID pgtype.UUID
	TrackInventory  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PriceModifier is a discount/surcharge/tax/tip definition row.
type PriceModifier struct {
	ID           uuid.UUID
	Name         string
	ModifierType string
	Value        pgtype.Numeric
	IsPercentage bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Order is a persisted order row.
type Order struct {
	ID             uuid.UUID
	CustomerName   pgtype.Text
	CustomerPhone  pgtype.Text
	Status         string
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	ServiceCharge  pgtype.Numeric
	TipAmount      pgtype.Numeric
	TotalAmount    pgtype.Numeric
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderItem is a persisted order line row.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	LineTotal pgtype.Numeric
	CreatedAt time.Time
}

// OrderItemOption is an option attached to a persisted order line.
type OrderItemOption struct {
	ID           uuid.UUID
	OrderItemID  uuid.UUID
	ItemOptionID uuid.UUID
	Quantity     int32
	UnitPrice    pgtype.Numeric
}

// OrderDiscount is an order-level discount captured at application time.
type OrderDiscount struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	PriceModifierID uuid.UUID
	Name            string
	Amount          pgtype.Numeric
}

// Payment is a settlement record for one bill of an order.
type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	BillNumber  int32
	PaymentType string
	Status      string
	Amount      pgtype.Numeric
	TipAmount   pgtype.Numeric
	CreatedAt   time.Time
}

// GiftCard is a stored-value card row.
type GiftCard struct {
	ID        uuid.UUID
	Code      string
	Balance   pgtype.Numeric
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
