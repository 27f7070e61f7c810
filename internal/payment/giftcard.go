package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Errors returned by the gift card processor. A failed balance check blocks
// the settlement attempt entirely; no partial state is created.
var (
	ErrGiftCardNotFound = errors.New("gift card not found")
	ErrGiftCardInactive = errors.New("gift card is deactivated")
	ErrGiftCardEmpty    = errors.New("gift card has no balance")
)

// GiftCard is the strict internal view of a stored-value card.
type GiftCard struct {
	ID       uuid.UUID
	Code     string
	Balance  decimal.Decimal
	IsActive bool
}

// GiftCardStore reads and debits gift card balances. Satisfied by the
// database gift card store.
type GiftCardStore interface {
	GetGiftCardByCode(ctx context.Context, code string) (GiftCard, error)
	DebitGiftCard(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (GiftCard, error)
}

// GiftCardProcessor settles payments against stored-value cards. When the
// card's balance is less than the amount due, the charge is capped at the
// balance and the result reports the remainder as a partial payment.
type GiftCardProcessor struct {
	store GiftCardStore
}

// NewGiftCardProcessor creates a gift card processor over the given store.
func NewGiftCardProcessor(store GiftCardStore) *GiftCardProcessor {
	return &GiftCardProcessor{store: store}
}

func (p *GiftCardProcessor) Charge(ctx context.Context, req Request) (Result, error) {
	if req.GiftCardCode == "" {
		return Result{}, ErrGiftCardRequired
	}

	card, err := p.store.GetGiftCardByCode(ctx, req.GiftCardCode)
	if err != nil {
		return Result{}, err
	}
	if !card.IsActive {
		return Result{}, ErrGiftCardInactive
	}
	if !card.Balance.IsPositive() {
		return Result{}, ErrGiftCardEmpty
	}

	amountDue := req.AmountDue()
	charge := amountDue
	if card.Balance.LessThan(amountDue) {
		charge = card.Balance
	}

	if _, err := p.store.DebitGiftCard(ctx, card.ID, charge); err != nil {
		return Result{}, fmt.Errorf("debit gift card: %w", err)
	}

	if charge.LessThan(amountDue) {
		return Result{
			AmountUsed:       charge,
			RemainingAmount:  amountDue.Sub(charge),
			IsPartialPayment: true,
		}, nil
	}
	return Result{AmountUsed: charge}, nil
}
