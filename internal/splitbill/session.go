// Package splitbill drives split payment for one order: partitioning order
// items across bills, per-bill tips, and the multi-method payment flow
// including partial gift card payments. A session is scoped to one register's
// split-bill screen and is thrown away when that screen closes.
package splitbill

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/payment"
	"github.com/tillfront/checkout/internal/pricing"
)

// Errors returned by session transitions.
var (
	ErrBillNotFound     = errors.New("bill not found")
	ErrNoBillSelected   = errors.New("no bill selected")
	ErrBillAlreadyPaid  = errors.New("bill is already paid")
	ErrBillLocked       = errors.New("bill has received a payment")
	ErrInvalidItemIndex = errors.New("invalid item index")
	ErrPaymentInFlight  = errors.New("a payment for this bill is already in progress")
)

var oneHundred = decimal.NewFromInt(100)

// Bill is one partition of the order's items.
type Bill struct {
	ID          int
	IsPaid      bool
	PaymentType string
}

// Tip is the tip state attached to one bill.
type Tip struct {
	Amount    decimal.Decimal
	PresetPct int32
	IsCustom  bool
}

// PayResult reports the outcome of one settlement attempt. AmountDue zero
// means there was nothing to pay and the attempt was a no-op.
type PayResult struct {
	BillID     int
	AmountDue  decimal.Decimal
	AmountPaid decimal.Decimal
	TipAmount  decimal.Decimal
	Remainder  decimal.Decimal
	Partial    bool
	Paid       bool
}

// Session is the split-bill state machine for one order. All mutations come
// from serialized register interactions; the mutex exists because payments
// resolve asynchronously while the UI keeps rendering state.
type Session struct {
	mu          sync.Mutex
	snap        *catalog.Snapshot
	lines       []pricing.Line
	bills       []Bill
	selected    int         // bill id, 0 when nothing selected
	assignments map[int]int // item index -> bill id
	tips        map[int]Tip
	remainders  map[int]decimal.Decimal
	paying      map[int]bool
}

// NewSession opens a split session over the order's lines. It starts with a
// single unpaid bill, id 1, selected.
func NewSession(snap *catalog.Snapshot, lines []pricing.Line) *Session {
	s := &Session{snap: snap}
	s.reset(lines)
	return s
}

func (s *Session) reset(lines []pricing.Line) {
	s.lines = append([]pricing.Line(nil), lines...)
	s.bills = []Bill{{ID: 1}}
	s.selected = 1
	s.assignments = make(map[int]int)
	s.tips = make(map[int]Tip)
	s.remainders = make(map[int]decimal.Decimal)
	s.paying = make(map[int]bool)
}

// Reset returns the session to its initial single-unpaid-bill state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(s.lines)
}

func (s *Session) billAt(id int) *Bill {
	for i := range s.bills {
		if s.bills[i].ID == id {
			return &s.bills[i]
		}
	}
	return nil
}

// billLocked reports whether the bill has received any payment: fully paid,
// or partially paid with an outstanding remainder. Locked bills keep their
// item assignments and tip state frozen.
func (s *Session) billLocked(id int) bool {
	b := s.billAt(id)
	if b == nil {
		return false
	}
	if b.IsPaid {
		return true
	}
	r, ok := s.remainders[id]
	return ok && r.IsPositive()
}

// AddBill appends a new bill and selects it. The new id is one past the
// highest existing id, so ids never recycle within a session.
func (s *Session) AddBill() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxID := 0
	for _, b := range s.bills {
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	id := maxID + 1
	s.bills = append(s.bills, Bill{ID: id})
	s.selected = id
	return id
}

// SelectBill toggles selection: selecting the already-selected bill
// deselects it.
func (s *Session) SelectBill(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.billAt(id) == nil {
		return ErrBillNotFound
	}
	if s.selected == id {
		s.selected = 0
	} else {
		s.selected = id
	}
	return nil
}

// SelectedBill returns the selected bill id, zero when nothing is selected.
func (s *Session) SelectedBill() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// AssignItem assigns the item at the given index to the selected bill.
// Clicking an item already on the selected bill unassigns it; clicking an
// item on a different unpaid bill moves it over. Items on a bill that has
// received a payment cannot move, and a bill whose charge is in flight is
// frozen: the amount handed to the processor must still equal the bill's
// items when the charge resolves.
func (s *Session) AssignItem(itemIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if itemIndex < 0 || itemIndex >= len(s.lines) {
		return ErrInvalidItemIndex
	}
	if s.selected == 0 {
		return ErrNoBillSelected
	}
	if s.paying[s.selected] {
		return ErrPaymentInFlight
	}
	if s.billLocked(s.selected) {
		return ErrBillAlreadyPaid
	}
	if current, ok := s.assignments[itemIndex]; ok {
		if s.paying[current] {
			return ErrPaymentInFlight
		}
		if s.billLocked(current) {
			return ErrBillLocked
		}
		if current == s.selected {
			delete(s.assignments, itemIndex)
			return nil
		}
	}
	s.assignments[itemIndex] = s.selected
	return nil
}

// Assignments returns a copy of the item index -> bill id map.
func (s *Session) Assignments() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int]int, len(s.assignments))
	for k, v := range s.assignments {
		out[k] = v
	}
	return out
}

// Bills returns the bills in creation order.
func (s *Session) Bills() []Bill {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Bill(nil), s.bills...)
}

// Lines returns the order lines this session was opened with.
func (s *Session) Lines() []pricing.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pricing.Line(nil), s.lines...)
}

func (s *Session) billTotal(id int) decimal.Decimal {
	total := decimal.Zero
	for idx, billID := range s.assignments {
		if billID == id {
			total = total.Add(pricing.LineTotal(s.snap, s.lines[idx]))
		}
	}
	return total
}

// BillTotal returns the sum of line totals for items currently assigned to
// the bill.
func (s *Session) BillTotal(id int) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billTotal(id)
}

// OrderSubtotal returns the total of all order lines, assigned or not.
func (s *Session) OrderSubtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.OrderTotal(s.snap, s.lines)
}

// SetTipPreset computes the tip as a percentage of the bill's current item
// subtotal, rounded to cents, and records the preset.
func (s *Session) SetTipPreset(billID int, percent int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tipGuard(billID); err != nil {
		return err
	}
	amount := s.billTotal(billID).Mul(decimal.NewFromInt32(percent)).Div(oneHundred).Round(2)
	s.tips[billID] = Tip{Amount: amount, PresetPct: percent}
	return nil
}

// SetTipCustom records an explicit tip amount, clearing any preset.
func (s *Session) SetTipCustom(billID int, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tipGuard(billID); err != nil {
		return err
	}
	s.tips[billID] = Tip{Amount: amount, IsCustom: true}
	return nil
}

// ClearTip removes the bill's tip and preset marker.
func (s *Session) ClearTip(billID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tipGuard(billID); err != nil {
		return err
	}
	delete(s.tips, billID)
	return nil
}

// tipGuard rejects tip changes on unknown bills, on bills that already
// received a payment, and on bills with a charge in flight; remainder
// payments never add tip on top.
func (s *Session) tipGuard(billID int) error {
	if s.billAt(billID) == nil {
		return ErrBillNotFound
	}
	if s.paying[billID] {
		return ErrPaymentInFlight
	}
	if s.billLocked(billID) {
		return ErrBillLocked
	}
	return nil
}

// Tip returns the bill's current tip state.
func (s *Session) Tip(billID int) Tip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tips[billID]
}

// Remainder returns the outstanding partial-payment remainder for the bill,
// zero if none.
func (s *Session) Remainder(billID int) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.remainders[billID]; ok {
		return r
	}
	return decimal.Zero
}

// PayBill runs one settlement attempt for the bill through the given
// processor. When a partial remainder is outstanding, only the remainder is
// charged and no tip is added on top. Processor failures leave all session
// state unchanged.
func (s *Session) PayBill(ctx context.Context, billID int, paymentType, giftCardCode string, proc payment.Processor) (PayResult, error) {
	s.mu.Lock()

	bill := s.billAt(billID)
	if bill == nil {
		s.mu.Unlock()
		return PayResult{}, ErrBillNotFound
	}
	if bill.IsPaid {
		s.mu.Unlock()
		return PayResult{}, ErrBillAlreadyPaid
	}
	if s.paying[billID] {
		s.mu.Unlock()
		return PayResult{}, ErrPaymentInFlight
	}

	effectiveAmount := s.billTotal(billID)
	effectiveTip := s.tips[billID].Amount
	if r, ok := s.remainders[billID]; ok && r.IsPositive() {
		effectiveAmount = r
		effectiveTip = decimal.Zero
	}
	amountDue := effectiveAmount.Add(effectiveTip)

	if amountDue.IsZero() {
		// Nothing to pay; not an error.
		s.mu.Unlock()
		return PayResult{BillID: billID}, nil
	}

	var itemIndices []int
	for idx, id := range s.assignments {
		if id == billID {
			itemIndices = append(itemIndices, idx)
		}
	}
	sort.Ints(itemIndices)

	// Debounce: one in-flight settlement per bill. The flag drops on any
	// outcome so the register can retry after a failure.
	s.paying[billID] = true
	s.mu.Unlock()

	res, err := proc.Charge(ctx, payment.Request{
		Amount:       effectiveAmount,
		TipAmount:    effectiveTip,
		PaymentType:  paymentType,
		ItemIndices:  itemIndices,
		GiftCardCode: giftCardCode,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.paying, billID)

	if err != nil {
		return PayResult{}, err
	}

	if res.IsPartialPayment {
		s.remainders[billID] = res.RemainingAmount
		return PayResult{
			BillID:     billID,
			AmountDue:  amountDue,
			AmountPaid: res.AmountUsed,
			TipAmount:  effectiveTip,
			Remainder:  res.RemainingAmount,
			Partial:    true,
		}, nil
	}

	bill = s.billAt(billID) // re-resolve; the slice may have grown during the charge
	bill.IsPaid = true
	bill.PaymentType = paymentType
	delete(s.tips, billID)
	delete(s.remainders, billID)

	return PayResult{
		BillID:     billID,
		AmountDue:  amountDue,
		AmountPaid: res.AmountUsed,
		TipAmount:  effectiveTip,
		Paid:       true,
	}, nil
}
