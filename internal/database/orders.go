package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (customer_name, customer_phone, status, subtotal, discount_amount, service_charge, tip_amount, total_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, customer_name, customer_phone, status, subtotal, discount_amount, service_charge, tip_amount, total_amount, created_at, updated_at
`

// CreateOrderParams are the columns for a new order row.
type CreateOrderParams struct {
	CustomerName   pgtype.Text
	CustomerPhone  pgtype.Text
	Status         string
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	ServiceCharge  pgtype.Numeric
	TipAmount      pgtype.Numeric
	TotalAmount    pgtype.Numeric
}

// CreateOrder inserts a new order and returns the created row.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.Status,
		arg.Subtotal,
		arg.DiscountAmount,
		arg.ServiceCharge,
		arg.TipAmount,
		arg.TotalAmount,
	).Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.Status, &o.Subtotal, &o.DiscountAmount, &o.ServiceCharge, &o.TipAmount, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, item_id, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, item_id, quantity, unit_price, line_total, created_at
`

// CreateOrderItemParams are the columns for a new order line row.
type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	LineTotal pgtype.Numeric
}

// CreateOrderItem inserts an order line and returns the created row.
func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ItemID,
		arg.Quantity,
		arg.UnitPrice,
		arg.LineTotal,
	).Scan(&i.ID, &i.OrderID, &i.ItemID, &i.Quantity, &i.UnitPrice, &i.LineTotal, &i.CreatedAt)
	return i, err
}

const createOrderItemOption = `
INSERT INTO order_item_options (order_item_id, item_option_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, item_option_id, quantity, unit_price
`

// CreateOrderItemOptionParams are the columns for an option on an order line.
type CreateOrderItemOptionParams struct {
	OrderItemID  uuid.UUID
	ItemOptionID uuid.UUID
	Quantity     int32
	UnitPrice    pgtype.Numeric
}

// CreateOrderItemOption attaches an option to an order line.
func (q *Queries) CreateOrderItemOption(ctx context.Context, arg CreateOrderItemOptionParams) (OrderItemOption, error) {
	var o OrderItemOption
	err := q.db.QueryRow(ctx, createOrderItemOption,
		arg.OrderItemID,
		arg.ItemOptionID,
		arg.Quantity,
		arg.UnitPrice,
	).Scan(&o.ID, &o.OrderItemID, &o.ItemOptionID, &o.Quantity, &o.UnitPrice)
	return o, err
}

const createOrderDiscount = `
INSERT INTO order_discounts (order_id, price_modifier_id, name, amount)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, price_modifier_id, name, amount
`

// CreateOrderDiscountParams capture an applied discount at its applied amount.
type CreateOrderDiscountParams struct {
	OrderID         uuid.UUID
	PriceModifierID uuid.UUID
	Name            string
	Amount          pgtype.Numeric
}

// CreateOrderDiscount records an order-level discount.
func (q *Queries) CreateOrderDiscount(ctx context.Context, arg CreateOrderDiscountParams) (OrderDiscount, error) {
	var d OrderDiscount
	err := q.db.QueryRow(ctx, createOrderDiscount,
		arg.OrderID,
		arg.PriceModifierID,
		arg.Name,
		arg.Amount,
	).Scan(&d.ID, &d.OrderID, &d.PriceModifierID, &d.Name, &d.Amount)
	return d, err
}

const getOrder = `
SELECT id, customer_name, customer_phone, status, subtotal, discount_amount, service_charge, tip_amount, total_amount, created_at, updated_at
FROM orders
WHERE id = $1
`

// GetOrder returns one order by id.
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).
		Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.Status, &o.Subtotal, &o.DiscountAmount, &o.ServiceCharge, &o.TipAmount, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, item_id, quantity, unit_price, line_total, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

// ListOrderItemsByOrder returns the order's lines in insertion order.
func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ItemID, &i.Quantity, &i.UnitPrice, &i.LineTotal, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemOptionsByOrderItem = `
SELECT id, order_item_id, item_option_id, quantity, unit_price
FROM order_item_options
WHERE order_item_id = $1
`

// ListOrderItemOptionsByOrderItem returns the options attached to one line.
func (q *Queries) ListOrderItemOptionsByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]OrderItemOption, error) {
	rows, err := q.db.Query(ctx, listOrderItemOptionsByOrderItem, orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opts []OrderItemOption
	for rows.Next() {
		var o OrderItemOption
		if err := rows.Scan(&o.ID, &o.OrderItemID, &o.ItemOptionID, &o.Quantity, &o.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item option: %w", err)
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

const listOrderDiscountsByOrder = `
SELECT id, order_id, price_modifier_id, name, amount
FROM order_discounts
WHERE order_id = $1
`

// ListOrderDiscountsByOrder returns the discounts recorded against an order.
func (q *Queries) ListOrderDiscountsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderDiscount, error) {
	rows, err := q.db.Query(ctx, listOrderDiscountsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discounts []OrderDiscount
	for rows.Next() {
		var d OrderDiscount
		if err := rows.Scan(&d.ID, &d.OrderID, &d.PriceModifierID, &d.Name, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan order discount: %w", err)
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING id, customer_name, customer_phone, status, subtotal, discount_amount, service_charge, tip_amount, total_amount, created_at, updated_at
`

// UpdateOrderStatus sets the order's status and returns the updated row.
func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatus, id, status).
		Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.Status, &o.Subtotal, &o.DiscountAmount, &o.ServiceCharge, &o.TipAmount, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}
