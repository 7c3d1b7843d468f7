package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harborstay/loyalty/internal/database"
	"github.com/harborstay/loyalty/internal/logging"
	"github.com/harborstay/loyalty/internal/loyalty"
	"github.com/harborstay/loyalty/internal/server"
	"github.com/harborstay/loyalty/internal/sweep"
	ws "github.com/harborstay/loyalty/internal/websocket"
)

func main() {
	logger := logging.Setup(os.Getenv("LOYALTY_LOG_LEVEL"))

	port := os.Getenv("LOYALTY_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("LOYALTY_DB_PATH")
	if dbPath == "" {
		dbPath = "loyalty.db"
	}

	sweepInterval := time.Hour
	if raw := os.Getenv("LOYALTY_SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			slog.Error("invalid LOYALTY_SWEEP_INTERVAL", "value", raw, "error", err)
			os.Exit(1)
		}
		sweepInterval = d
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, loyalty.DefaultSchedule(), logger)

	sweeper := sweep.NewScheduler(srv.Engine(), sweepInterval, logger.With("component", "sweep"))
	sweeper.Expired = func(memberID string, points int64) {
		srv.Hub().Broadcast(ws.NewEvent("points", "expired", memberID, map[string]any{"points": points}))
	}
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go srv.RateLimiter().CleanupLoop(cleanupCtx, time.Hour)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("loyalty service listening", "port", port, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
