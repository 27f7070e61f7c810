package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/payment"
)

const getGiftCardByCode = `
SELECT id, code, balance, is_active, created_at, updated_at
FROM gift_cards
WHERE code = $1
`

// GetGiftCardByCode returns one gift card row by its code.
func (q *Queries) GetGiftCardByCode(ctx context.Context, code string) (GiftCard, error) {
	var g GiftCard
	err := q.db.QueryRow(ctx, getGiftCardByCode, code).
		Scan(&g.ID, &g.Code, &g.Balance, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

const debitGiftCard = `
UPDATE gift_cards
SET balance = balance - $2, updated_at = now()
WHERE id = $1 AND balance >= $2
RETURNING id, code, balance, is_active, created_at, updated_at
`

// DebitGiftCard atomically subtracts amount from the card's balance. The
// balance guard in the WHERE clause makes concurrent over-debits impossible;
// a raced debit returns pgx.ErrNoRows.
func (q *Queries) DebitGiftCard(ctx context.Context, id uuid.UUID, amount pgtype.Numeric) (GiftCard, error) {
	var g GiftCard
	err := q.db.QueryRow(ctx, debitGiftCard, id, amount).
		Scan(&g.ID, &g.Code, &g.Balance, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// GiftCards adapts Queries to the payment gift card store, translating rows
// into strict decimal values.
type GiftCards struct {
	q *Queries
}

// NewGiftCardStore creates a gift card store over the given pool or tx.
func NewGiftCardStore(db DBTX) *GiftCards {
	return &GiftCards{q: New(db)}
}

func (s *GiftCards) GetGiftCardByCode(ctx context.Context, code string) (payment.GiftCard, error) {
	row, err := s.q.GetGiftCardByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.GiftCard{}, payment.ErrGiftCardNotFound
		}
		return payment.GiftCard{}, fmt.Errorf("get gift card: %w", err)
	}
	balance, err := NumericToDecimal(row.Balance)
	if err != nil {
		return payment.GiftCard{}, fmt.Errorf("gift card %s balance: %w", row.Code, err)
	}
	return payment.GiftCard{
		ID:       row.ID,
		Code:     row.Code,
		Balance:  balance,
		IsActive: row.IsActive,
	}, nil
}

func (s *GiftCards) DebitGiftCard(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (payment.GiftCard, error) {
	row, err := s.q.DebitGiftCard(ctx, id, DecimalToNumeric(amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.GiftCard{}, payment.ErrGiftCardEmpty
		}
		return payment.GiftCard{}, fmt.Errorf("debit gift card: %w", err)
	}
	balance, err := NumericToDecimal(row.Balance)
	if err != nil {
		return payment.GiftCard{}, fmt.Errorf("gift card %s balance: %w", row.Code, err)
	}
	return payment.GiftCard{
		ID:       row.ID,
		Code:     row.Code,
		Balance:  balance,
		IsActive: row.IsActive,
	}, nil
}
