package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/harborstay/loyalty/internal/handler"
	"github.com/harborstay/loyalty/internal/loyalty"
	"github.com/harborstay/loyalty/internal/middleware"
	"github.com/harborstay/loyalty/internal/model"
	"github.com/harborstay/loyalty/internal/store"
	ws "github.com/harborstay/loyalty/internal/websocket"
)

type Server struct {
	db          *sql.DB
	engine      *loyalty.Engine
	hub         *ws.Hub
	loyaltyH    *handler.LoyaltyHandler
	apiKeyH     *handler.APIKeyHandler
	keyStore    *store.APIKeyStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, schedule loyalty.Schedule, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	accountStore := store.NewAccountStore(db)
	txStore := store.NewTransactionStore(db)
	keyStore := store.NewAPIKeyStore(db)

	engine := loyalty.NewEngine(accountStore, txStore, schedule, logger.With("component", "engine"))
	engine.TierUpgraded = func(memberID string, tier model.Tier) {
		hub.Broadcast(ws.NewEvent("tier", "upgraded", memberID, map[string]any{"tier": tier}))
	}

	return &Server{
		db:          db,
		engine:      engine,
		hub:         hub,
		loyaltyH:    handler.NewLoyaltyHandler(engine, hub, logger.With("component", "loyalty")),
		apiKeyH:     handler.NewAPIKeyHandler(keyStore, logger.With("component", "api_key")),
		keyStore:    keyStore,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Engine exposes the ledger engine for the sweep scheduler.
func (s *Server) Engine() *loyalty.Engine {
	return s.engine
}

// Hub exposes the event hub for broadcast callers outside the handlers.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)

	authMiddleware := middleware.RequireAPIKey(s.keyStore)
	rateLimit := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 120, time.Minute)
	outerMux.Handle("/api/", rateLimit(authMiddleware(apiMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Account + ledger operations
	mux.HandleFunc("POST /api/accounts", s.loyaltyH.CreateAccount)
	mux.HandleFunc("GET /api/members/{member_id}/balance", s.loyaltyH.GetBalance)
	mux.HandleFunc("GET /api/members/{member_id}/transactions", s.loyaltyH.GetTransactions)
	mux.HandleFunc("POST /api/members/{member_id}/earn", s.loyaltyH.Earn)
	mux.HandleFunc("POST /api/members/{member_id}/redeem", s.loyaltyH.Redeem)
	mux.HandleFunc("POST /api/members/{member_id}/bonus", s.loyaltyH.Bonus)
	mux.HandleFunc("POST /api/members/{member_id}/adjust", s.loyaltyH.Adjust)
	mux.HandleFunc("POST /api/members/{member_id}/expire", s.loyaltyH.Expire)

	// Static tables + reporting
	mux.HandleFunc("GET /api/tiers", s.loyaltyH.GetTiers)
	mux.HandleFunc("GET /api/stats", s.loyaltyH.GetStats)

	// Service credentials
	mux.HandleFunc("POST /api/keys", s.apiKeyH.Create)
	mux.HandleFunc("DELETE /api/keys/{id}", s.apiKeyH.Delete)
}
