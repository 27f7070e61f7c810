package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tillfront/checkout/internal/catalog"
	"github.com/tillfront/checkout/internal/database"
	"github.com/tillfront/checkout/internal/enum"
	"github.com/tillfront/checkout/internal/handler"
	"github.com/tillfront/checkout/internal/payment"
	"github.com/tillfront/checkout/internal/service"
	"github.com/tillfront/checkout/internal/splitbill"
	"github.com/tillfront/checkout/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration: registers are browser front ends served from the
	// in-store network.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route: settlement events per order
	r.Get("/ws/orders/{id}/settlement", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	// Catalog
	catalogHandler := handler.NewCatalogHandler(queries)
	r.Route("/catalog", catalogHandler.RegisterRoutes)

	// Payment processors. The card terminal is a stub until a real terminal
	// integration lands; it approves everything.
	payments := payment.NewRegistry()
	payments.Register(enum.PaymentTypeCash, payment.CashProcessor{})
	payments.Register(enum.PaymentTypeCard, payment.NewCardProcessor(approveAllTerminal{}))
	payments.Register(enum.PaymentTypeGiftCard, payment.NewGiftCardProcessor(database.NewGiftCardStore(pool)))

	// Orders and split-bill settlement
	newStore := func(db database.DBTX) service.CheckoutStore {
		return database.New(db)
	}
	checkoutService := service.NewCheckoutService(pool, newStore)
	orderHandler := handler.NewOrderHandler(checkoutService, queries)

	loadSnap := func(ctx context.Context) (*catalog.Snapshot, error) {
		return catalog.Load(ctx, queries)
	}
	quoteHandler := handler.NewQuoteHandler(loadSnap)
	splitHandler := handler.NewSplitHandler(splitbill.NewRegistry(), queries, loadSnap, payments, hub)

	r.Route("/orders", func(r chi.Router) {
		orderHandler.RegisterRoutes(r)
		quoteHandler.RegisterRoutes(r)
		r.Route("/{id}/split", splitHandler.RegisterRoutes)
	})

	return r
}

// approveAllTerminal stands in for a card terminal integration.
// TODO: replace with the store's terminal vendor API once selected.
type approveAllTerminal struct{}

func (approveAllTerminal) Authorize(ctx context.Context, amount decimal.Decimal) error {
	return nil
}
