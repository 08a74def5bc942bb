package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"brokerage-sim-go/internal/api"
	"brokerage-sim-go/internal/auth"
	"brokerage-sim-go/internal/config"
	"brokerage-sim-go/internal/database"
	"brokerage-sim-go/internal/ledger"
	"brokerage-sim-go/internal/logger"
	"brokerage-sim-go/internal/portfolio"
	"brokerage-sim-go/internal/quote"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	initialCash, err := decimal.NewFromString(cfg.Ledger.InitialCash)
	if err != nil || initialCash.IsNegative() {
		log.Fatal("Invalid initial cash", zap.String("initial_cash", cfg.Ledger.InitialCash))
	}

	// Initialize database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")
	store := ledger.NewStore(db, log)

	// Initialize quote provider
	quotes, err := quote.New(&cfg.Quotes, log)
	if err != nil {
		log.Fatal("Failed to create quote provider", zap.Error(err))
	}

	// Sessions
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.Redis.URL != "" {
		redisRevoker, err := auth.NewRedisRevoker(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisRevoker.Close()
		revoker = redisRevoker
		log.Info("Session revocations stored in Redis")
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("No JWT secret configured, sessions will not survive a restart")
	}
	tokens, err := auth.NewTokenManager([]byte(secret), cfg.Auth.TokenTTL, revoker)
	if err != nil {
		log.Fatal("Failed to create token manager", zap.Error(err))
	}
	accounts := auth.NewService(store, tokens, initialCash, log)

	broker := portfolio.NewBroker(log, store, quotes)

	server := api.NewAPIServer(&cfg.Server, broker, accounts, log)
	server.Start()

	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
