package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"brokerage-sim-go/internal/auth"
	"brokerage-sim-go/internal/errs"
	"brokerage-sim-go/internal/models"
	"brokerage-sim-go/internal/portfolio"
	"brokerage-sim-go/internal/quote"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Broker is the portfolio engine the handlers drive.
type Broker interface {
	Buy(ctx context.Context, userID uint, symbol, shares string) (*portfolio.Execution, error)
	Sell(ctx context.Context, userID uint, symbol, shares string) (*portfolio.Execution, error)
	Deposit(ctx context.Context, userID uint, amount string) (decimal.Decimal, error)
	Portfolio(ctx context.Context, userID uint) (*portfolio.Valuation, error)
	Holdings(ctx context.Context, userID uint) (portfolio.Holdings, error)
	History(ctx context.Context, userID uint) ([]models.Transaction, error)
	Quote(ctx context.Context, symbol string) (quote.Quote, error)
	Statistics(ctx context.Context, userID uint, now time.Time) (*portfolio.Statistics, error)
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log      *zap.Logger
	broker   Broker
	accounts *auth.Service
	now      func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, broker Broker, accounts *auth.Service) *APIHandler {
	return &APIHandler{log: log, broker: broker, accounts: accounts, now: time.Now}
}

// numberOrString accepts a JSON number or a JSON string and keeps its text,
// so "2.5" and 2.5 reach the share parser the same way.
type numberOrString string

func (n *numberOrString) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = numberOrString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = numberOrString(num)
	return nil
}

type credentialsRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

type orderRequest struct {
	Symbol string         `json:"symbol"`
	Shares numberOrString `json:"shares"`
}

type depositRequest struct {
	Amount numberOrString `json:"amount"`
}

// HealthHandler reports that the server is up.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RegisterHandler creates an account.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.Confirmation)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"cash":     usd(user.Cash),
	})
}

// LoginHandler exchanges credentials for a session token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// LogoutHandler revokes the current session.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PortfolioHandler returns the user's holdings valued at current prices.
func (h *APIHandler) PortfolioHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	valuation, err := h.broker.Portfolio(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newValuationView(valuation))
}

// BuyHandler purchases shares at the current price.
func (h *APIHandler) BuyHandler(w http.ResponseWriter, r *http.Request) {
	h.order(w, r, h.broker.Buy)
}

// SellHandler sells shares at the current price.
func (h *APIHandler) SellHandler(w http.ResponseWriter, r *http.Request) {
	h.order(w, r, h.broker.Sell)
}

type orderFunc func(ctx context.Context, userID uint, symbol, shares string) (*portfolio.Execution, error)

func (h *APIHandler) order(w http.ResponseWriter, r *http.Request, execute orderFunc) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if !h.decode(w, r, &req) {
		return
	}

	execution, err := execute(r.Context(), userID, req.Symbol, string(req.Shares))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"transaction": newTransactionView(*execution.Transaction),
		"cash":        usd(execution.Cash),
	})
}

// DepositHandler adds cash to the account.
func (h *APIHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req depositRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.broker.Deposit(r.Context(), userID, string(req.Amount))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"cash": usd(balance)})
}

// HistoryHandler returns every transaction of the user, oldest first.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	txs, err := h.broker.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]transactionView, len(txs))
	for i, tx := range txs {
		views[i] = newTransactionView(tx)
	}
	h.writeJSON(w, http.StatusOK, views)
}

// HoldingsHandler returns the symbols the user can sell and how many shares of each.
func (h *APIHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	holdings, err := h.broker.Holdings(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"symbols":  holdings.Symbols(),
		"holdings": holdings,
	})
}

// QuoteHandler looks up the current price of a symbol.
func (h *APIHandler) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	q, err := h.broker.Quote(r.Context(), symbol)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"symbol": q.Symbol,
		"name":   q.Name,
		"price":  usd(q.Price),
	})
}

// StatisticsHandler returns trading activity for the last 24 hours and all time.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	stats, err := h.broker.Statistics(r.Context(), userID, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]statsView{
		"since_24h": newStatsView(stats.Since24h),
		"all_time":  newStatsView(stats.AllTime),
	})
}

func (h *APIHandler) userID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	userID, err := auth.UserIDFrom(r.Context())
	if err != nil {
		h.writeError(w, err)
		return 0, false
	}
	return userID, true
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		h.writeError(w, errs.Wrap(errs.InvalidInput, err, "malformed request body"))
		return false
	}
	return true
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

type errorResponse struct {
	Error   errs.Kind `json:"error"`
	Message string    `json:"message"`
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}

	kind := errs.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	h.writeJSON(w, status, errorResponse{Error: kind, Message: errs.MessageOf(err)})
}

func statusOf(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.InvalidInput, errs.NonIntegerShares, errs.NonPositiveShares,
		errs.UnknownSymbol, errs.InsufficientShares, errs.DuplicateUsername:
		return http.StatusBadRequest
	case errs.InsufficientFunds, errs.NoPosition:
		return http.StatusForbidden
	case errs.AuthFailure:
		return http.StatusUnauthorized
	case errs.QuoteUnavailable:
		return http.StatusBadGateway
	case errs.StorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
