// Package payment defines the settlement collaborator boundary: the split
// engine computes what is due and hands it to a Processor; the processor
// either covers the full amount, covers part of it (gift cards), or fails
// without touching any state.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/enum"
)

// Errors returned by payment processors.
var (
	ErrUnsupportedType  = errors.New("unsupported payment type")
	ErrGiftCardRequired = errors.New("gift_card_code is required for gift card payments")
)

// Request is a single settlement attempt for one bill.
type Request struct {
	Amount       decimal.Decimal
	TipAmount    decimal.Decimal
	PaymentType  string
	ItemIndices  []int
	GiftCardCode string
}

// AmountDue is the total this request asks the processor to cover.
func (r Request) AmountDue() decimal.Decimal {
	return r.Amount.Add(r.TipAmount)
}

// Result is the processor's answer. When IsPartialPayment is set, AmountUsed
// covers only part of the request and RemainingAmount is still owed by
// another method.
type Result struct {
	AmountUsed       decimal.Decimal
	RemainingAmount  decimal.Decimal
	IsPartialPayment bool
}

// Processor settles payment requests. An error means nothing was charged and
// the caller's state must stay unchanged; retry is the only recovery path.
type Processor interface {
	Charge(ctx context.Context, req Request) (Result, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, req Request) (Result, error)

func (f ProcessorFunc) Charge(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Registry routes payment requests to the processor registered for their
// payment type.
type Registry struct {
	processors map[string]Processor
}

// NewRegistry creates a registry with the given processors by payment type.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register binds a processor to a payment type, replacing any previous one.
func (r *Registry) Register(paymentType string, p Processor) {
	r.processors[paymentType] = p
}

// Processor returns the processor for the payment type.
func (r *Registry) Processor(paymentType string) (Processor, error) {
	p, ok := r.processors[paymentType]
	if !ok {
		return nil, ErrUnsupportedType
	}
	return p, nil
}

// CashProcessor settles cash in full; the drawer always has change.
type CashProcessor struct{}

func (CashProcessor) Charge(ctx context.Context, req Request) (Result, error) {
	return Result{AmountUsed: req.AmountDue()}, nil
}

// CardTerminal is the external card processor integration point.
type CardTerminal interface {
	Authorize(ctx context.Context, amount decimal.Decimal) error
}

// CardProcessor settles card payments through an external terminal. A
// terminal error propagates unchanged; no partial card payments exist.
type CardProcessor struct {
	terminal CardTerminal
}

// NewCardProcessor creates a card processor over the given terminal.
func NewCardProcessor(terminal CardTerminal) *CardProcessor {
	return &CardProcessor{terminal: terminal}
}

func (p *CardProcessor) Charge(ctx context.Context, req Request) (Result, error) {
	if err := p.terminal.Authorize(ctx, req.AmountDue()); err != nil {
		return Result{}, err
	}
	return Result{AmountUsed: req.AmountDue()}, nil
}

var _ Processor = CashProcessor{}
var _ Processor = (*CardProcessor)(nil)
var _ Processor = (*GiftCardProcessor)(nil)

// TypeKnown reports whether the payment type label is one we accept at the
// API boundary.
func TypeKnown(paymentType string) bool {
	switch paymentType {
	case enum.PaymentTypeCash, enum.PaymentTypeCard, enum.PaymentTypeGiftCard:
		return true
	}
	return false
}
