package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sajikan-pos/api/internal/config"
	"github.com/sajikan-pos/api/internal/database"
	"github.com/sajikan-pos/api/internal/handler"
	mw "github.com/sajikan-pos/api/internal/middleware"
	"github.com/sajikan-pos/api/internal/service"
	"github.com/sajikan-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up. All
// business routes sit behind JWT authentication; the branch scope comes
// from the token claims, never from the URL.
func New(cfg *config.Config, queries *database.Queries, pool service.TxBeginner, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	locks := service.NewTableLockManager(queries, cfg.TableLockTTL)
	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	kots := service.NewKotLifecycle(pool, queries, func(db database.DBTX) service.KotStore {
		return database.New(db)
	})
	payments := service.NewPaymentLedger(pool, queries, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})
	syncer := service.NewSyncCoordinator(queries, orders, kots, payments, cfg.PollLookback)
	waiterRequests := service.NewWaiterRequestService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		tableHandler := handler.NewTableHandler(locks, hub)
		r.Route("/tables", tableHandler.RegisterRoutes)
		r.Get("/areas", tableHandler.ListAreas)

		orderHandler := handler.NewOrderHandler(orders, queries, payments, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		kotHandler := handler.NewKotHandler(kots, queries, hub)
		r.Route("/kots", kotHandler.RegisterRoutes)
		r.Get("/kot-cancel-reasons", kotHandler.ListCancelReasons)

		paymentHandler := handler.NewPaymentHandler(payments, queries, hub)
		r.Route("/payments", paymentHandler.RegisterRoutes)

		syncHandler := handler.NewSyncHandler(syncer)
		r.Route("/sync", syncHandler.RegisterRoutes)

		waiterRequestHandler := handler.NewWaiterRequestHandler(waiterRequests, hub)
		r.Route("/waiter-requests", waiterRequestHandler.RegisterRoutes)
	})

	return r
}
