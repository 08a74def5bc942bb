// Package api exposes the broker over JSON and HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"brokerage-sim-go/internal/auth"
	"brokerage-sim-go/internal/config"
	"brokerage-sim-go/internal/errs"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the broker.
type APIServer struct {
	server  *http.Server
	handler *APIHandler
	logger  *zap.Logger
}

// NewAPIServer creates a new APIServer.
func NewAPIServer(cfg *config.Server, broker Broker, accounts *auth.Service, logger *zap.Logger) *APIServer {
	logger = logger.Named("api-server")
	handler := NewAPIHandler(logger, broker, accounts)

	return &APIServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler.Routes(cfg.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: handler,
		logger:  logger,
	}
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Routes builds the router. CORS and no-cache headers apply to every response.
func (h *APIHandler) Routes(corsOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", h.RegisterHandler).Methods(http.MethodPost)
	api.HandleFunc("/login", h.LoginHandler).Methods(http.MethodPost)

	api.Handle("/logout", h.requireSession(h.LogoutHandler)).Methods(http.MethodPost)
	api.Handle("/portfolio", h.requireSession(h.PortfolioHandler)).Methods(http.MethodGet)
	api.Handle("/buy", h.requireSession(h.BuyHandler)).Methods(http.MethodPost)
	api.Handle("/sell", h.requireSession(h.SellHandler)).Methods(http.MethodPost)
	api.Handle("/deposit", h.requireSession(h.DepositHandler)).Methods(http.MethodPost)
	api.Handle("/history", h.requireSession(h.HistoryHandler)).Methods(http.MethodGet)
	api.Handle("/holdings", h.requireSession(h.HoldingsHandler)).Methods(http.MethodGet)
	api.Handle("/quote/{symbol}", h.requireSession(h.QuoteHandler)).Methods(http.MethodGet)
	api.Handle("/statistics", h.requireSession(h.StatisticsHandler)).Methods(http.MethodGet)

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(noCache(r))
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Expires", "0")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// requireSession verifies the bearer token and stores the session in the request context.
func (h *APIHandler) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			h.writeError(w, errs.New(errs.AuthFailure, "must be logged in"))
			return
		}

		claims, err := h.accounts.Tokens().Verify(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), claims)))
	})
}
