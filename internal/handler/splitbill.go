package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/enum"
	"github.com/tillfront/checkout/internal/payment"
	"github.com/tillfront/checkout/internal/pricing"
	"github.com/tillfront/checkout/internal/splitbill"
	"github.com/tillfront/checkout/internal/ws"
)

// SplitStore defines the database methods needed by the split-bill handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SplitStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemOptionsByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemOption, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (database.Order, error)
}

// SnapshotLoader loads a catalog snapshot for pricing split bills.
// Satisfied by a closure over catalog.Load.
type SnapshotLoader func(ctx context.Context) (*catalog.Snapshot, error)

// SplitHandler drives the split-bill settlement flow for one order. Split
// state lives in memory per register session; only the resulting payments
// are persisted.
type SplitHandler struct {
	registry *splitbill.Registry
	store    SplitStore
	loadSnap SnapshotLoader
	payments *payment.Registry
	hub      *ws.Hub
}

// NewSplitHandler creates a new SplitHandler.
func NewSplitHandler(registry *splitbill.Registry, store SplitStore, loadSnap SnapshotLoader, payments *payment.Registry, hub *ws.Hub) *SplitHandler {
	return &SplitHandler{
		registry: registry,
		store:    store,
		loadSnap: loadSnap,
		payments: payments,
		hub:      hub,
	}
}

// RegisterRoutes registers split-bill endpoints on the given Chi router.
// Expected to be mounted under /orders/{id}/split.
func (h *SplitHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/", h.State)
	r.Delete("/", h.Close)
	r.Post("/bills", h.AddBill)
	r.Post("/bills/{bill}/select", h.SelectBill)
	r.Put("/bills/{bill}/tip", h.SetTip)
	r.Delete("/bills/{bill}/tip", h.ClearTip)
	r.Post("/bills/{bill}/pay", h.Pay)
	r.Post("/items/{index}", h.AssignItem)
}

// --- Request / Response types ---

type tipRequest struct {
	PresetPct int32  `json:"preset_pct"`
	Amount    string `json:"amount"`
}

type payRequest struct {
	PaymentType  string `json:"payment_type"`
	GiftCardCode string `json:"gift_card_code"`
}

type billResponse struct {
	ID          int    `json:"id"`
	IsPaid      bool   `json:"is_paid"`
	PaymentType string `json:"payment_type,omitempty"`
	Total       string `json:"total"`
	Tip         string `json:"tip"`
	TipPreset   int32  `json:"tip_preset_pct,omitempty"`
	TipCustom   bool   `json:"tip_custom,omitempty"`
	Remainder   string `json:"remainder"`
}

type sessionResponse struct {
	OrderID      uuid.UUID      `json:"order_id"`
	Subtotal     string         `json:"subtotal"`
	SelectedBill int            `json:"selected_bill"`
	Bills        []billResponse `json:"bills"`
	Assignments  map[int]int    `json:"assignments"`
}

type payResponse struct {
	BillID     int    `json:"bill_id"`
	AmountDue  string `json:"amount_due"`
	AmountPaid string `json:"amount_paid"`
	TipAmount  string `json:"tip_amount"`
	Remainder  string `json:"remainder"`
	Partial    bool   `json:"partial"`
	Paid       bool   `json:"paid"`
}

// --- Handlers ---

// Open handles POST /orders/{id}/split. It loads the order's lines and the
// current catalog snapshot and opens (or returns) the in-memory session.
func (h *SplitHandler) Open(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		slog.Error("get order", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if order.Status == enum.OrderStatusCompleted || order.Status == enum.OrderStatusCancelled || order.Status == enum.OrderStatusRefunded {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already settled"})
		return
	}

	lines, err := h.orderLines(r.Context(), orderID)
	if err != nil {
		slog.Error("load order lines", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	snap, err := h.loadSnap(r.Context())
	if err != nil {
		slog.Error("load catalog snapshot", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	session := h.registry.Open(orderID, snap, lines)
	writeJSON(w, http.StatusOK, h.sessionState(orderID, session))
}

// State handles GET /orders/{id}/split.
func (h *SplitHandler) State(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(orderID, session))
}

// Close handles DELETE /orders/{id}/split. Split state is never persisted;
// closing the screen throws it away.
func (h *SplitHandler) Close(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	h.registry.Close(orderID)
	w.WriteHeader(http.StatusNoContent)
}

// AddBill handles POST /orders/{id}/split/bills.
func (h *SplitHandler) AddBill(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	session.AddBill()
	writeJSON(w, http.StatusCreated, h.sessionState(orderID, session))
}

// SelectBill handles POST /orders/{id}/split/bills/{bill}/select. Selecting
// the already-selected bill deselects it.
func (h *SplitHandler) SelectBill(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	billID, ok := h.billID(w, r)
	if !ok {
		return
	}
	if err := session.SelectBill(billID); err != nil {
		h.writeSplitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(orderID, session))
}

// AssignItem handles POST /orders/{id}/split/items/{index}. Items toggle on
// and off the selected bill.
func (h *SplitHandler) AssignItem(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item index"})
		return
	}
	if err := session.AssignItem(index); err != nil {
		h.writeSplitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(orderID, session))
}

// SetTip handles PUT /orders/{id}/split/bills/{bill}/tip. A request with an
// amount sets a custom tip; otherwise preset_pct is applied to the bill's
// current item subtotal.
func (h *SplitHandler) SetTip(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	billID, ok := h.billID(w, r)
	if !ok {
		return
	}

	var req tipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tip amount"})
			return
		}
		if err := session.SetTipCustom(billID, amount); err != nil {
			h.writeSplitError(w, err)
			return
		}
	} else {
		if req.PresetPct <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preset_pct or amount is required"})
			return
		}
		if err := session.SetTipPreset(billID, req.PresetPct); err != nil {
			h.writeSplitError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.sessionState(orderID, session))
}

// ClearTip handles DELETE /orders/{id}/split/bills/{bill}/tip.
func (h *SplitHandler) ClearTip(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	billID, ok := h.billID(w, r)
	if !ok {
		return
	}
	if err := session.ClearTip(billID); err != nil {
		h.writeSplitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessionState(orderID, session))
}

// Pay handles POST /orders/{id}/split/bills/{bill}/pay. A successful
// settlement is recorded as a payment row and broadcast to every register
// watching the order; a fully settled order flips to COMPLETED.
func (h *SplitHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, session, ok := h.session(w, r)
	if !ok {
		return
	}
	billID, ok := h.billID(w, r)
	if !ok {
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !payment.TypeKnown(req.PaymentType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_type"})
		return
	}

	proc, err := h.payments.Processor(req.PaymentType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := session.PayBill(r.Context(), billID, req.PaymentType, req.GiftCardCode, proc)
	if err != nil {
		h.writeSplitError(w, err)
		return
	}

	if result.Paid || result.Partial {
		h.recordPayment(r.Context(), orderID, req.PaymentType, result)
		h.broadcast(orderID, req.PaymentType, result)
		if result.Paid && h.orderSettled(session) {
			h.settleOrder(r.Context(), orderID)
		}
	}

	writeJSON(w, http.StatusOK, payResponse{
		BillID:     result.BillID,
		AmountDue:  result.AmountDue.StringFixed(2),
		AmountPaid: result.AmountPaid.StringFixed(2),
		TipAmount:  result.TipAmount.StringFixed(2),
		Remainder:  result.Remainder.StringFixed(2),
		Partial:    result.Partial,
		Paid:       result.Paid,
	})
}

// --- Helpers ---

func (h *SplitHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return uuid.Nil, false
	}
	return orderID, true
}

func (h *SplitHandler) billID(w http.ResponseWriter, r *http.Request) (int, bool) {
	billID, err := strconv.Atoi(chi.URLParam(r, "bill"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return 0, false
	}
	return billID, true
}

func (h *SplitHandler) session(w http.ResponseWriter, r *http.Request) (uuid.UUID, *splitbill.Session, bool) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return uuid.Nil, nil, false
	}
	session, ok := h.registry.Get(orderID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no split session open for order"})
		return uuid.Nil, nil, false
	}
	return orderID, session, true
}

// orderLines rebuilds pricing lines from the persisted order items.
func (h *SplitHandler) orderLines(ctx context.Context, orderID uuid.UUID) ([]pricing.Line, error) {
	items, err := h.store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		opts, err := h.store.ListOrderItemOptionsByOrderItem(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		lineOpts := make([]pricing.LineOption, 0, len(opts))
		for _, o := range opts {
			lineOpts = append(lineOpts, pricing.LineOption{
				OptionID: o.ItemOptionID,
				Count:    o.Quantity,
			})
		}
		lines = append(lines, pricing.Line{
			ItemID:  item.ItemID,
			Count:   item.Quantity,
			Options: lineOpts,
		})
	}
	return lines, nil
}

func (h *SplitHandler) sessionState(orderID uuid.UUID, session *splitbill.Session) sessionResponse {
	bills := session.Bills()
	resp := sessionResponse{
		OrderID:      orderID,
		Subtotal:     session.OrderSubtotal().StringFixed(2),
		SelectedBill: session.SelectedBill(),
		Bills:        make([]billResponse, 0, len(bills)),
		Assignments:  session.Assignments(),
	}
	for _, b := range bills {
		tip := session.Tip(b.ID)
		resp.Bills = append(resp.Bills, billResponse{
			ID:          b.ID,
			IsPaid:      b.IsPaid,
			PaymentType: b.PaymentType,
			Total:       session.BillTotal(b.ID).StringFixed(2),
			Tip:         tip.Amount.StringFixed(2),
			TipPreset:   tip.PresetPct,
			TipCustom:   tip.IsCustom,
			Remainder:   session.Remainder(b.ID).StringFixed(2),
		})
	}
	return resp
}

// recordPayment persists the settlement. Recording is best-effort: the money
// already moved, so a storage failure never fails the payment — it is logged
// and pushed to every register watching the order so someone can reconcile
// the missing row.
func (h *SplitHandler) recordPayment(ctx context.Context, orderID uuid.UUID, paymentType string, result splitbill.PayResult) {
	status := enum.PaymentStatusCompleted
	if result.Partial {
		status = enum.PaymentStatusPartial
	}
	_, err := h.store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:     orderID,
		BillNumber:  int32(result.BillID),
		PaymentType: paymentType,
		Status:      status,
		Amount:      database.DecimalToNumeric(result.AmountPaid),
		TipAmount:   database.DecimalToNumeric(result.TipAmount),
	})
	if err != nil {
		slog.Error("record payment", "order_id", orderID, "bill", result.BillID, "error", err)
		h.hub.BroadcastToOrder(orderID, ws.NewEvent(ws.EventPaymentRecordFailed, map[string]any{
			"bill_id":      result.BillID,
			"amount_paid":  result.AmountPaid.StringFixed(2),
			"payment_type": paymentType,
		}))
	}
}

func (h *SplitHandler) broadcast(orderID uuid.UUID, paymentType string, result splitbill.PayResult) {
	if result.Partial {
		h.hub.BroadcastToOrder(orderID, ws.NewEvent(ws.EventPaymentPartial, map[string]any{
			"bill_id":     result.BillID,
			"amount_paid": result.AmountPaid.StringFixed(2),
			"remainder":   result.Remainder.StringFixed(2),
		}))
		return
	}
	h.hub.BroadcastToOrder(orderID, ws.NewEvent(ws.EventBillPaid, map[string]any{
		"bill_id":      result.BillID,
		"amount_paid":  result.AmountPaid.StringFixed(2),
		"payment_type": paymentType,
	}))
}

// orderSettled reports whether every order item sits on a paid bill. Bills
// with no items don't block settlement; unassigned items do.
func (h *SplitHandler) orderSettled(session *splitbill.Session) bool {
	assignments := session.Assignments()
	if len(assignments) != len(session.Lines()) {
		return false
	}
	paid := make(map[int]bool)
	for _, b := range session.Bills() {
		paid[b.ID] = b.IsPaid
	}
	for _, billID := range assignments {
		if !paid[billID] {
			return false
		}
	}
	return true
}

func (h *SplitHandler) settleOrder(ctx context.Context, orderID uuid.UUID) {
	if _, err := h.store.UpdateOrderStatus(ctx, orderID, enum.OrderStatusCompleted); err != nil {
		slog.Error("complete order", "order_id", orderID, "error", err)
		return
	}
	h.hub.BroadcastToOrder(orderID, ws.NewEvent(ws.EventOrderSettled, map[string]any{
		"order_id": orderID,
	}))
	h.registry.Close(orderID)
}

// writeSplitError maps session errors to HTTP statuses.
func (h *SplitHandler) writeSplitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, splitbill.ErrBillNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, splitbill.ErrBillAlreadyPaid),
		errors.Is(err, splitbill.ErrBillLocked),
		errors.Is(err, splitbill.ErrPaymentInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, splitbill.ErrNoBillSelected),
		errors.Is(err, splitbill.ErrInvalidItemIndex),
		errors.Is(err, payment.ErrGiftCardRequired),
		errors.Is(err, payment.ErrGiftCardNotFound),
		errors.Is(err, payment.ErrGiftCardInactive),
		errors.Is(err, payment.ErrGiftCardEmpty):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("split bill operation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
