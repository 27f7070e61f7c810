package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, bill_number, payment_type, status, amount, tip_amount)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, bill_number, payment_type, status, amount, tip_amount, created_at
`

// CreatePaymentParams are the columns for a settlement record.
type CreatePaymentParams struct {
	OrderID     uuid.UUID
	BillNumber  int32
	PaymentType string
	Status      string
	Amount      pgtype.Numeric
	TipAmount   pgtype.Numeric
}

// CreatePayment records a settlement against one bill of an order.
func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.BillNumber,
		arg.PaymentType,
		arg.Status,
		arg.Amount,
		arg.TipAmount,
	).Scan(&p.ID, &p.OrderID, &p.BillNumber, &p.PaymentType, &p.Status, &p.Amount, &p.TipAmount, &p.CreatedAt)
	return p, err
}

const listPaymentsByOrder = `
SELECT id, order_id, bill_number, payment_type, status, amount, tip_amount, created_at
FROM payments
WHERE order_id = $1
ORDER BY created_at
`

// ListPaymentsByOrder returns the order's payments oldest-first.
func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.BillNumber, &p.PaymentType, &p.Status, &p.Amount, &p.TipAmount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
