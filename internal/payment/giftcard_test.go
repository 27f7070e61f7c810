package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/enum"
)

// --- Mock implementations ---

// mockGiftCardStore implements GiftCardStore with configurable behavior.
type mockGiftCardStore struct {
	getByCodeFn func(ctx context.Context, code string) (GiftCard, error)
	debitFn     func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (GiftCard, error)
}

func (m *mockGiftCardStore) GetGiftCardByCode(ctx context.Context, code string) (GiftCard, error) {
	return m.getByCodeFn(ctx, code)
}

func (m *mockGiftCardStore) DebitGiftCard(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (GiftCard, error) {
	return m.debitFn(ctx, id, amount)
}

// --- Test helpers ---

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// cardStore returns a store holding one active card; debits reduce its
// balance and are recorded in debited.
func cardStore(code, balance string, debited *decimal.Decimal) *mockGiftCardStore {
	card := GiftCard{ID: uuid.New(), Code: code, Balance: dec(balance), IsActive: true}
	return &mockGiftCardStore{
		getByCodeFn: func(ctx context.Context, c string) (GiftCard, error) {
			if c == card.Code {
				return card, nil
			}
			return GiftCard{}, ErrGiftCardNotFound
		},
		debitFn: func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (GiftCard, error) {
			if debited != nil {
				*debited = amount
			}
			card.Balance = card.Balance.Sub(amount)
			return card, nil
		},
	}
}

func giftReq(amount, tip, code string) Request {
	return Request{
		Amount:       dec(amount),
		TipAmount:    dec(tip),
		PaymentType:  enum.PaymentTypeGiftCard,
		GiftCardCode: code,
	}
}

// =====================
// Full and partial charges
// =====================

func TestGiftCardCharge_FullBalanceCovers(t *testing.T) {
	var debited decimal.Decimal
	p := NewGiftCardProcessor(cardStore("GC-1", "75.00", &debited))

	res, err := p.Charge(context.Background(), giftReq("50.00", "0", "GC-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsPartialPayment {
		t.Fatal("expected full payment")
	}
	if !res.AmountUsed.Equal(dec("50.00")) {
		t.Errorf("amount used: got %v, want 50.00", res.AmountUsed)
	}
	if !res.RemainingAmount.IsZero() {
		t.Errorf("remaining: got %v, want 0", res.RemainingAmount)
	}
	if !debited.Equal(dec("50.00")) {
		t.Errorf("debited: got %v, want 50.00", debited)
	}
}

func TestGiftCardCharge_PartialWhenBalanceShort(t *testing.T) {
	// $50 due, $30 on the card: charge caps at 30 and 20 remains.
	var debited decimal.Decimal
	p := NewGiftCardProcessor(cardStore("GC-1", "30.00", &debited))

	res, err := p.Charge(context.Background(), giftReq("50.00", "0", "GC-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsPartialPayment {
		t.Fatal("expected partial payment")
	}
	if !res.AmountUsed.Equal(dec("30.00")) {
		t.Errorf("amount used: got %v, want 30.00", res.AmountUsed)
	}
	if !res.RemainingAmount.Equal(dec("20.00")) {
		t.Errorf("remaining: got %v, want 20.00", res.RemainingAmount)
	}
	if !debited.Equal(dec("30.00")) {
		t.Errorf("debited: got %v, want 30.00 (card drained to zero)", debited)
	}
}

func TestGiftCardCharge_TipIncludedInAmountDue(t *testing.T) {
	p := NewGiftCardProcessor(cardStore("GC-1", "100.00", nil))

	res, err := p.Charge(context.Background(), giftReq("40.00", "6.00", "GC-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AmountUsed.Equal(dec("46.00")) {
		t.Errorf("amount used: got %v, want 46.00", res.AmountUsed)
	}
}

// =====================
// Blocking failures (no partial state)
// =====================

func TestGiftCardCharge_MissingCode(t *testing.T) {
	p := NewGiftCardProcessor(cardStore("GC-1", "30.00", nil))
	_, err := p.Charge(context.Background(), giftReq("50.00", "0", ""))
	if !errors.Is(err, ErrGiftCardRequired) {
		t.Fatalf("expected ErrGiftCardRequired, got: %v", err)
	}
}

func TestGiftCardCharge_CardNotFound(t *testing.T) {
	p := NewGiftCardProcessor(cardStore("GC-1", "30.00", nil))
	_, err := p.Charge(context.Background(), giftReq("50.00", "0", "GC-UNKNOWN"))
	if !errors.Is(err, ErrGiftCardNotFound) {
		t.Fatalf("expected ErrGiftCardNotFound, got: %v", err)
	}
}

func TestGiftCardCharge_InactiveCard(t *testing.T) {
	card := GiftCard{ID: uuid.New(), Code: "GC-1", Balance: dec("30.00"), IsActive: false}
	store := &mockGiftCardStore{
		getByCodeFn: func(ctx context.Context, c string) (GiftCard, error) { return card, nil },
		debitFn: func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (GiftCard, error) {
			t.Fatal("debit must not be called for an inactive card")
			return GiftCard{}, nil
		},
	}
	p := NewGiftCardProcessor(store)
	_, err := p.Charge(context.Background(), giftReq("50.00", "0", "GC-1"))
	if !errors.Is(err, ErrGiftCardInactive) {
		t.Fatalf("expected ErrGiftCardInactive, got: %v", err)
	}
}

func TestGiftCardCharge_ZeroBalance(t *testing.T) {
	p := NewGiftCardProcessor(cardStore("GC-1", "0.00", nil))
	_, err := p.Charge(context.Background(), giftReq("50.00", "0", "GC-1"))
	if !errors.Is(err, ErrGiftCardEmpty) {
		t.Fatalf("expected ErrGiftCardEmpty, got: %v", err)
	}
}

func TestGiftCardCharge_DebitFailurePropagates(t *testing.T) {
	dbErr := errors.New("connection reset")
	card := GiftCard{ID: uuid.New(), Code: "GC-1", Balance: dec("30.00"), IsActive: true}
	store := &mockGiftCardStore{
		getByCodeFn: func(ctx context.Context, c string) (GiftCard, error) { return card, nil },
		debitFn: func(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (GiftCard, error) {
			return GiftCard{}, dbErr
		},
	}
	p := NewGiftCardProcessor(store)
	_, err := p.Charge(context.Background(), giftReq("50.00", "0", "GC-1"))
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped debit error, got: %v", err)
	}
}

// =====================
// Other processors / registry
// =====================

func TestCashProcessor_CoversFullAmount(t *testing.T) {
	res, err := CashProcessor{}.Charge(context.Background(), Request{
		Amount:      dec("12.50"),
		TipAmount:   dec("2.00"),
		PaymentType: enum.PaymentTypeCash,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsPartialPayment || !res.AmountUsed.Equal(dec("14.50")) {
		t.Errorf("cash result: %+v", res)
	}
}

type stubTerminal struct{ err error }

func (s stubTerminal) Authorize(ctx context.Context, amount decimal.Decimal) error { return s.err }

func TestCardProcessor_TerminalFailurePropagates(t *testing.T) {
	declined := errors.New("card declined")
	p := NewCardProcessor(stubTerminal{err: declined})
	_, err := p.Charge(context.Background(), Request{Amount: dec("20.00"), PaymentType: enum.PaymentTypeCard})
	if !errors.Is(err, declined) {
		t.Fatalf("expected terminal error, got: %v", err)
	}
}

func TestRegistry_RoutesByType(t *testing.T) {
	r := NewRegistry()
	r.Register(enum.PaymentTypeCash, CashProcessor{})

	if _, err := r.Processor(enum.PaymentTypeCash); err != nil {
		t.Fatalf("cash processor lookup: %v", err)
	}
	if _, err := r.Processor(enum.PaymentTypeCard); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got: %v", err)
	}
}
