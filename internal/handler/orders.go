package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.CheckoutService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemOptionsByOrderItem(ctx context.Context, orderItemID uuid.UUID) ([]database.OrderItemOption, error)
	ListOrderDiscountsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderDiscount, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone"`
	Lines         []createOrderLineRequest `json:"lines"`
	Discounts     []string                 `json:"discounts"`
}

type createOrderLineRequest struct {
	ItemID   string                     `json:"item_id"`
	Quantity int32                      `json:"quantity"`
	Options  []createOrderOptionRequest `json:"options"`
}

type createOrderOptionRequest struct {
	OptionID string `json:"option_id"`
	Quantity int32  `json:"quantity"`
}

type orderResponse struct {
	ID             uuid.UUID               `json:"id"`
	CustomerName   *string                 `json:"customer_name"`
	CustomerPhone  *string                 `json:"customer_phone"`
	Status         string                  `json:"status"`
	Subtotal       string                  `json:"subtotal"`
	DiscountAmount string                  `json:"discount_amount"`
	TipAmount      string                  `json:"tip_amount"`
	TotalAmount    string                  `json:"total_amount"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	Lines          []orderLineResponse     `json:"lines"`
	Discounts      []orderDiscountResponse `json:"discounts"`
}

type orderLineResponse struct {
	ID        uuid.UUID                 `json:"id"`
	ItemID    uuid.UUID                 `json:"item_id"`
	Quantity  int32                     `json:"quantity"`
	UnitPrice string                    `json:"unit_price"`
	LineTotal string                    `json:"line_total"`
	Options   []orderLineOptionResponse `json:"options"`
}

type orderLineOptionResponse struct {
	ID           uuid.UUID `json:"id"`
	ItemOptionID uuid.UUID `json:"item_option_id"`
	Quantity     int32     `json:"quantity"`
	UnitPrice    string    `json:"unit_price"`
}

type orderDiscountResponse struct {
	ID              uuid.UUID `json:"id"`
	PriceModifierID uuid.UUID `json:"price_modifier_id"`
	Name            string    `json:"name"`
	Amount          string    `json:"amount"`
}

type orderPaymentResponse struct {
	ID          uuid.UUID `json:"id"`
	BillNumber  int32     `json:"bill_number"`
	PaymentType string    `json:"payment_type"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	TipAmount   string    `json:"tip_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse with payments for GET.
type orderDetailResponse struct {
	orderResponse
	Payments []orderPaymentResponse `json:"payments"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Lines) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lines are required"})
		return
	}

	svcLines := make([]service.CreateOrderLineRequest, len(req.Lines))
	for i, line := range req.Lines {
		opts := make([]service.CreateOrderOptionRequest, len(line.Options))
		for j, opt := range line.Options {
			opts[j] = service.CreateOrderOptionRequest{
				OptionID: opt.OptionID,
				Quantity: opt.Quantity,
			}
		}
		svcLines[i] = service.CreateOrderLineRequest{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Options:  opts,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Lines:         svcLines,
		Discounts:     req.Discounts,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("create order", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
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

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		slog.Error("list order items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines := make([]orderLineResponse, 0, len(items))
	for _, item := range items {
		opts, err := h.store.ListOrderItemOptionsByOrderItem(r.Context(), item.ID)
		if err != nil {
			slog.Error("list order item options", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		lineOpts := make([]orderLineOptionResponse, 0, len(opts))
		for _, o := range opts {
			lineOpts = append(lineOpts, orderLineOptionResponse{
				ID:           o.ID,
				ItemOptionID: o.ItemOptionID,
				Quantity:     o.Quantity,
				UnitPrice:    numericToString(o.UnitPrice),
			})
		}
		lines = append(lines, orderLineResponse{
			ID:        item.ID,
			ItemID:    item.ItemID,
			Quantity:  item.Quantity,
			UnitPrice: numericToString(item.UnitPrice),
			LineTotal: numericToString(item.LineTotal),
			Options:   lineOpts,
		})
	}

	discounts, err := h.store.ListOrderDiscountsByOrder(r.Context(), orderID)
	if err != nil {
		slog.Error("list order discounts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	discountResps := make([]orderDiscountResponse, 0, len(discounts))
	for _, d := range discounts {
		discountResps = append(discountResps, orderDiscountResponse{
			ID:              d.ID,
			PriceModifierID: d.PriceModifierID,
			Name:            d.Name,
			Amount:          numericToString(d.Amount),
		})
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		slog.Error("list payments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	paymentResps := make([]orderPaymentResponse, 0, len(payments))
	for _, p := range payments {
		paymentResps = append(paymentResps, orderPaymentResponse{
			ID:          p.ID,
			BillNumber:  p.BillNumber,
			PaymentType: p.PaymentType,
			Status:      p.Status,
			Amount:      numericToString(p.Amount),
			TipAmount:   numericToString(p.TipAmount),
			CreatedAt:   p.CreatedAt,
		})
	}

	resp := orderDetailResponse{
		orderResponse: dbOrderToResponse(order),
		Payments:      paymentResps,
	}
	resp.Lines = lines
	resp.Discounts = discountResps
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyLines) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrItemNotFound) ||
		errors.Is(err, service.ErrOptionNotFound) ||
		errors.Is(err, service.ErrOptionMismatch) ||
		errors.Is(err, service.ErrDiscountNotFound) ||
		errors.Is(err, service.ErrNotDiscount) ||
		errors.Is(err, service.ErrDuplicateDiscount) ||
		errors.Is(err, service.ErrInvalidItemID) ||
		errors.Is(err, service.ErrInvalidOptionID) ||
		errors.Is(err, service.ErrInvalidModifierID)
}

func toOrderResponse(result *service.CreateOrderResult) orderResponse {
	resp := dbOrderToResponse(result.Order)

	for _, ir := range result.Items {
		lineOpts := make([]orderLineOptionResponse, 0, len(ir.Options))
		for _, o := range ir.Options {
			lineOpts = append(lineOpts, orderLineOptionResponse{
				ID:           o.ID,
				ItemOptionID: o.ItemOptionID,
				Quantity:     o.Quantity,
				UnitPrice:    numericToString(o.UnitPrice),
			})
		}
		resp.Lines = append(resp.Lines, orderLineResponse{
			ID:        ir.Item.ID,
			ItemID:    ir.Item.ItemID,
			Quantity:  ir.Item.Quantity,
			UnitPrice: numericToString(ir.Item.UnitPrice),
			LineTotal: numericToString(ir.Item.LineTotal),
			Options:   lineOpts,
		})
	}
	for _, d := range result.Discounts {
		resp.Discounts = append(resp.Discounts, orderDiscountResponse{
			ID:              d.ID,
			PriceModifierID: d.PriceModifierID,
			Name:            d.Name,
			Amount:          numericToString(d.Amount),
		})
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		Status:         o.Status,
		Subtotal:       numericToString(o.Subtotal),
		DiscountAmount: numericToString(o.DiscountAmount),
		TipAmount:      numericToString(o.TipAmount),
		TotalAmount:    numericToString(o.TotalAmount),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.CustomerPhone.Valid {
		resp.CustomerPhone = &o.CustomerPhone.String
	}
	return resp
}
