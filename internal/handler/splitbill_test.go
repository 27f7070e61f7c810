package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/enum"
	"github.com/tillfront/checkout/internal/handler"
	"github.com/tillfront/checkout/internal/payment"
	"github.com/tillfront/checkout/internal/splitbill"
	"github.com/tillfront/checkout/internal/ws"
)

// --- Mock SplitStore ---

type mockSplitStore struct {
	orders           map[uuid.UUID]database.Order
	items            map[uuid.UUID][]database.OrderItem
	payments         []database.CreatePaymentParams
	createPaymentErr error
}

func newMockSplitStore() *mockSplitStore {
	return &mockSplitStore{
		orders: make(map[uuid.UUID]database.Order),
		items:  make(map[uuid.UUID][]database.OrderItem),
	}
}

func (m *mockSplitStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockSplitStore) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return m.items[orderID], nil
}

func (m *mockSplitStore) ListOrderItemOptionsByOrderItem(_ context.Context, orderItemID uuid.UUID) ([]database.OrderItemOption, error) {
	return nil, nil
}

func (m *mockSplitStore) CreatePayment(_ context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	if m.createPaymentErr != nil {
		return database.Payment{}, m.createPaymentErr
	}
	m.payments = append(m.payments, arg)
	return database.Payment{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		BillNumber:  arg.BillNumber,
		PaymentType: arg.PaymentType,
		Status:      arg.Status,
		Amount:      arg.Amount,
		TipAmount:   arg.TipAmount,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *mockSplitStore) UpdateOrderStatus(_ context.Context, id uuid.UUID, status string) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = status
	m.orders[id] = o
	return o, nil
}

// --- Mock gift card store ---

type memGiftCardStore struct {
	card payment.GiftCard
}

func (m *memGiftCardStore) GetGiftCardByCode(_ context.Context, code string) (payment.GiftCard, error) {
	if m.card.Code != code {
		return payment.GiftCard{}, payment.ErrGiftCardNotFound
	}
	return m.card, nil
}

func (m *memGiftCardStore) DebitGiftCard(_ context.Context, id uuid.UUID, amount decimal.Decimal) (payment.GiftCard, error) {
	m.card.Balance = m.card.Balance.Sub(amount)
	return m.card, nil
}

// --- Test fixture ---

type splitFixture struct {
	router  *chi.Mux
	store   *mockSplitStore
	orderID uuid.UUID
}

// newSplitFixture builds a router over an order with two items: a $10.00
// coffee and a $15.00 sandwich.
func newSplitFixture(t *testing.T, giftCardBalance string) *splitFixture {
	t.Helper()

	coffeeID := uuid.New()
	sandwichID := uuid.New()
	snap := catalog.NewSnapshot(
		[]catalog.Item{
			{ID: coffeeID, Name: "Coffee", Price: decimal.RequireFromString("10.00")},
			{ID: sandwichID, Name: "Sandwich", Price: decimal.RequireFromString("15.00")},
		},
		nil, nil,
	)

	store := newMockSplitStore()
	orderID := uuid.New()
	store.orders[orderID] = database.Order{ID: orderID, Status: enum.OrderStatusPending}
	store.items[orderID] = []database.OrderItem{
		{ID: uuid.New(), OrderID: orderID, ItemID: coffeeID, Quantity: 1},
		{ID: uuid.New(), OrderID: orderID, ItemID: sandwichID, Quantity: 1},
	}

	payments := payment.NewRegistry()
	payments.Register(enum.PaymentTypeCash, payment.CashProcessor{})
	cards := &memGiftCardStore{card: payment.GiftCard{
		ID:       uuid.New(),
		Code:     "GC-100",
		Balance:  decimal.RequireFromString(giftCardBalance),
		IsActive: true,
	}}
	payments.Register(enum.PaymentTypeGiftCard, payment.NewGiftCardProcessor(cards))

	hub := ws.NewHub()
	go hub.Run()

	loadSnap := func(ctx context.Context) (*catalog.Snapshot, error) { return snap, nil }
	h := handler.NewSplitHandler(splitbill.NewRegistry(), store, loadSnap, payments, hub)

	r := chi.NewRouter()
	r.Route("/orders/{id}/split", h.RegisterRoutes)

	return &splitFixture{router: r, store: store, orderID: orderID}
}

func (f *splitFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *splitFixture) must(t *testing.T, method, path, body string, wantStatus int) map[string]any {
	t.Helper()
	rec := f.do(t, method, path, body)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: got status %d, want %d (body: %s)", method, path, rec.Code, wantStatus, rec.Body.String())
	}
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return out
}

func (f *splitFixture) split(path string) string {
	return "/orders/" + f.orderID.String() + "/split" + path
}

// --- Tests ---

func TestOpenUnknownOrder(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	rec := f.do(t, http.MethodPost, "/orders/"+uuid.NewString()+"/split/", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestOpenSettledOrderConflicts(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	o := f.store.orders[f.orderID]
	o.Status = enum.OrderStatusCompleted
	f.store.orders[f.orderID] = o

	rec := f.do(t, http.MethodPost, f.split("/"), "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
}

func TestOpenStartsWithOneSelectedBill(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	state := f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)

	if state["subtotal"] != "25.00" {
		t.Errorf("subtotal: got %v, want 25.00", state["subtotal"])
	}
	if state["selected_bill"] != float64(1) {
		t.Errorf("selected_bill: got %v, want 1", state["selected_bill"])
	}
	bills := state["bills"].([]any)
	if len(bills) != 1 {
		t.Fatalf("bills: got %d, want 1", len(bills))
	}
}

func TestFullSplitSettlement(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)

	// Item 0 (coffee) onto bill 1.
	f.must(t, http.MethodPost, f.split("/items/0"), "", http.StatusOK)
	// New bill 2 becomes selected; item 1 (sandwich) onto it.
	f.must(t, http.MethodPost, f.split("/bills"), "", http.StatusCreated)
	f.must(t, http.MethodPost, f.split("/items/1"), "", http.StatusOK)

	// 10% tip on bill 1: 1.00 on a 10.00 bill.
	f.must(t, http.MethodPut, f.split("/bills/1/tip"), `{"preset_pct":10}`, http.StatusOK)

	pay1 := f.must(t, http.MethodPost, f.split("/bills/1/pay"), `{"payment_type":"CASH"}`, http.StatusOK)
	if pay1["paid"] != true {
		t.Fatalf("bill 1 not paid: %v", pay1)
	}
	if pay1["amount_paid"] != "11.00" {
		t.Errorf("bill 1 amount_paid: got %v, want 11.00", pay1["amount_paid"])
	}

	pay2 := f.must(t, http.MethodPost, f.split("/bills/2/pay"), `{"payment_type":"CASH"}`, http.StatusOK)
	if pay2["paid"] != true {
		t.Fatalf("bill 2 not paid: %v", pay2)
	}

	// Both bills settled: order completes and the session closes.
	if got := f.store.orders[f.orderID].Status; got != enum.OrderStatusCompleted {
		t.Errorf("order status: got %q, want COMPLETED", got)
	}
	rec := f.do(t, http.MethodGet, f.split("/"), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("session should be closed after settlement, got %d", rec.Code)
	}

	if len(f.store.payments) != 2 {
		t.Fatalf("payments recorded: got %d, want 2", len(f.store.payments))
	}
	first := f.store.payments[0]
	if first.Status != enum.PaymentStatusCompleted {
		t.Errorf("payment status: got %q, want COMPLETED", first.Status)
	}
	if first.BillNumber != 1 {
		t.Errorf("payment bill number: got %d, want 1", first.BillNumber)
	}
	amount, err := database.NumericToDecimal(first.Amount)
	if err != nil {
		t.Fatalf("decode amount: %v", err)
	}
	if !amount.Equal(decimal.RequireFromString("11.00")) {
		t.Errorf("payment amount: got %v, want 11.00", amount)
	}
	tip, err := database.NumericToDecimal(first.TipAmount)
	if err != nil {
		t.Fatalf("decode tip: %v", err)
	}
	if !tip.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("payment tip: got %v, want 1.00", tip)
	}
}

func TestPartialGiftCardThenCashRemainder(t *testing.T) {
	// Card covers 6.00 of the 10.00 coffee bill.
	f := newSplitFixture(t, "6.00")
	f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)
	f.must(t, http.MethodPost, f.split("/items/0"), "", http.StatusOK)

	pay := f.must(t, http.MethodPost, f.split("/bills/1/pay"),
		`{"payment_type":"GIFT_CARD","gift_card_code":"GC-100"}`, http.StatusOK)
	if pay["partial"] != true {
		t.Fatalf("expected partial payment: %v", pay)
	}
	if pay["remainder"] != "4.00" {
		t.Errorf("remainder: got %v, want 4.00", pay["remainder"])
	}
	if len(f.store.payments) != 1 || f.store.payments[0].Status != enum.PaymentStatusPartial {
		t.Fatalf("expected one PARTIAL payment row, got %+v", f.store.payments)
	}

	// Tip changes are frozen while the remainder is outstanding.
	rec := f.do(t, http.MethodPut, f.split("/bills/1/tip"), `{"preset_pct":10}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("tip on locked bill: got %d, want 409", rec.Code)
	}

	pay2 := f.must(t, http.MethodPost, f.split("/bills/1/pay"), `{"payment_type":"CASH"}`, http.StatusOK)
	if pay2["paid"] != true {
		t.Fatalf("remainder payment should settle bill: %v", pay2)
	}
	if pay2["amount_paid"] != "4.00" {
		t.Errorf("remainder amount_paid: got %v, want 4.00", pay2["amount_paid"])
	}
	if len(f.store.payments) != 2 || f.store.payments[1].Status != enum.PaymentStatusCompleted {
		t.Fatalf("expected COMPLETED remainder row, got %+v", f.store.payments)
	}
}

func TestPayUnknownPaymentType(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)

	rec := f.do(t, http.MethodPost, f.split("/bills/1/pay"), `{"payment_type":"CHECK"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestPayAlreadyPaidBill(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)
	f.must(t, http.MethodPost, f.split("/items/0"), "", http.StatusOK)
	f.must(t, http.MethodPost, f.split("/bills/1/pay"), `{"payment_type":"CASH"}`, http.StatusOK)

	rec := f.do(t, http.MethodPost, f.split("/bills/1/pay"), `{"payment_type":"CASH"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
}

func TestPaymentRecordFailureDoesNotFailSettlement(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)
	f.must(t, http.MethodPost, f.split("/items/0"), "", http.StatusOK)
	f.must(t, http.MethodPost, f.split("/items/1"), "", http.StatusOK)

	// The payment row insert is down, but the charge already went through:
	// the bill still settles and the order still completes.
	f.store.createPaymentErr = errors.New("connection refused")

	pay := f.must(t, http.MethodPost, f.split("/bills/1/pay"), `{"payment_type":"CASH"}`, http.StatusOK)
	if pay["paid"] != true {
		t.Fatalf("bill should settle despite the record failure: %v", pay)
	}
	if got := f.store.orders[f.orderID].Status; got != enum.OrderStatusCompleted {
		t.Errorf("order status: got %q, want COMPLETED", got)
	}
	if len(f.store.payments) != 0 {
		t.Errorf("no payment row should have landed, got %d", len(f.store.payments))
	}
}

func TestAssignWithoutSelectionFails(t *testing.T) {
	f := newSplitFixture(t, "100.00")
	f.must(t, http.MethodPost, f.split("/"), "", http.StatusOK)
	// Toggle bill 1 off.
	f.must(t, http.MethodPost, f.split("/bills/1/select"), "", http.StatusOK)

	rec := f.do(t, http.MethodPost, f.split("/items/0"), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}
