package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"trade-terminal-go/internal/actions"
	"trade-terminal-go/internal/history"
	"trade-terminal-go/internal/platform"
	"trade-terminal-go/internal/wallet"
	"go.uber.org/zap"
)

// APIServer serves the terminal projection and action endpoints over a
// local HTTP interface.
type APIServer struct {
	server  *http.Server
	view    *View
	gateway *actions.Gateway
	wallet  *wallet.Service
	archive *history.Archive // may be nil
	logger  *zap.Logger
}

// apiResponse mirrors the platform's own envelope so the terminal frontend
// deals with one shape everywhere.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// NewAPIServer creates the terminal HTTP server. archive may be nil when
// local history is disabled.
func NewAPIServer(port int, view *View, gateway *actions.Gateway, walletSvc *wallet.Service, archive *history.Archive, logger *zap.Logger) *APIServer {
	s := &APIServer{
		view:    view,
		gateway: gateway,
		wallet:  walletSvc,
		archive: archive,
		logger:  logger.Named("api-server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions", s.positionsHandler)
	mux.HandleFunc("GET /api/pending", s.pendingHandler)
	mux.HandleFunc("GET /api/history", s.historyHandler)
	mux.HandleFunc("GET /api/summary", s.summaryHandler)
	mux.HandleFunc("GET /api/statistics", s.statisticsHandler)
	mux.HandleFunc("PUT /api/trades/{id}/close", s.closeHandler)
	mux.HandleFunc("PUT /api/trades/{id}/cancel", s.cancelHandler)
	mux.HandleFunc("PUT /api/trades/{id}/modify", s.modifyHandler)
	mux.HandleFunc("GET /api/wallet/balance", s.balanceHandler)
	mux.HandleFunc("GET /api/wallet/transactions", s.transactionsHandler)
	mux.HandleFunc("POST /api/wallet/deposit", s.depositHandler)
	mux.HandleFunc("POST /api/wallet/withdraw", s.withdrawHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: data})
}

// writeCommandError maps a failed command to the user-facing message: the
// server's message for rejected commands, the guard condition for local
// ones.
func (s *APIServer) writeCommandError(w http.ResponseWriter, err error) {
	var cmdErr *platform.CommandError
	switch {
	case errors.As(err, &cmdErr):
		s.writeJSON(w, http.StatusBadGateway, apiResponse{Success: false, Message: actions.UserMessage(err)})
	case errors.Is(err, actions.ErrBusy) || errors.Is(err, wallet.ErrBusy):
		s.writeJSON(w, http.StatusConflict, apiResponse{Success: false, Message: err.Error()})
	default:
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: err.Error()})
	}
}

func (s *APIServer) positionsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	s.writeData(w, snap.Open)
}

func (s *APIServer) pendingHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	s.writeData(w, snap.Pending)
}

func (s *APIServer) historyHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	s.writeData(w, snap.History)
}

// summaryHandler returns the aggregate header: floating P/L over the open
// partition plus tab counts, all from one snapshot.
func (s *APIServer) summaryHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	s.writeData(w, map[string]interface{}{
		"floatingPnl":        snap.FloatingPnL,
		"floatingPnlDisplay": FormatPnL(snap.FloatingPnL),
		"openCount":          len(snap.Open),
		"pendingCount":       len(snap.Pending),
		"historyCount":       len(snap.History),
	})
}

func (s *APIServer) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "history archive disabled"})
		return
	}
	stats, err := s.archive.Statistics()
	if err != nil {
		s.logger.Error("Failed to compute statistics", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "failed to compute statistics"})
		return
	}
	s.writeData(w, stats)
}

func (s *APIServer) closeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.Close(r.Context(), r.PathValue("id")); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (s *APIServer) cancelHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.CancelPending(r.Context(), r.PathValue("id")); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

// modifyBody has no omitempty semantics on decode: an absent or null field
// arrives as nil and is forwarded as an explicit clear.
type modifyBody struct {
	StopLoss   *float64 `json:"stopLoss"`
	TakeProfit *float64 `json:"takeProfit"`
}

func (s *APIServer) modifyHandler(w http.ResponseWriter, r *http.Request) {
	var body modifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid request body"})
		return
	}
	if err := s.gateway.Modify(r.Context(), r.PathValue("id"), body.StopLoss, body.TakeProfit); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (s *APIServer) balanceHandler(w http.ResponseWriter, r *http.Request) {
	balance, err := s.wallet.Balance(r.Context())
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeData(w, map[string]float64{"balance": balance})
}

func (s *APIServer) transactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := s.wallet.Transactions(r.Context(), 20)
	if err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeData(w, txs)
}

type depositBody struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"paymentMethod"`
	UTRNumber     string  `json:"utrNumber"`
	TransactionID string  `json:"transactionId"`
}

func (s *APIServer) depositHandler(w http.ResponseWriter, r *http.Request) {
	var body depositBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid request body"})
		return
	}
	if err := s.wallet.SubmitDeposit(r.Context(), body.Amount, body.Currency, body.PaymentMethod, body.UTRNumber, body.TransactionID); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

type withdrawBody struct {
	Amount        float64 `json:"amount"`
	BankAccountID string  `json:"bankAccountId"`
}

func (s *APIServer) withdrawHandler(w http.ResponseWriter, r *http.Request) {
	var body withdrawBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid request body"})
		return
	}
	if err := s.wallet.SubmitWithdrawal(r.Context(), body.Amount, body.BankAccountID); err != nil {
		s.writeCommandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, apiResponse{Success: true})
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
