// Package wallet fronts the platform's deposit/withdrawal surface. Reads
// follow the poll taxonomy (errors bubble to the caller, nothing cached);
// submissions carry the same busy-guard and error-surfacing semantics as
// trade actions.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trade-terminal-go/internal/platform"
	"go.uber.org/zap"
)

// ErrBusy means a submission is still in flight; re-entry is rejected
// until it resolves.
var ErrBusy = errors.New("submission already in flight")

// ExchangeRates converts supported deposit currencies to USD.
var ExchangeRates = map[string]float64{
	"USD": 1, "INR": 83.50, "EUR": 0.92, "GBP": 0.79, "AUD": 1.53,
	"CAD": 1.36, "JPY": 149.50, "SGD": 1.34, "AED": 3.67, "CNY": 7.24,
}

// USDAmount converts an amount in the given currency to USD. Unknown
// currencies pass through unchanged.
func USDAmount(amount float64, currency string) float64 {
	rate, ok := ExchangeRates[currency]
	if !ok || rate == 0 {
		return amount
	}
	return amount / rate
}

// Service wraps the wallet endpoints of the platform client.
type Service struct {
	client platform.WalletClientInterface
	logger *zap.Logger

	mu         sync.Mutex
	submitting bool
}

// NewService creates a wallet service.
func NewService(client platform.WalletClientInterface, logger *zap.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Balance fetches the current wallet balance.
func (s *Service) Balance(ctx context.Context) (float64, error) {
	return s.client.GetBalance(ctx)
}

// Transactions fetches recent ledger entries.
func (s *Service) Transactions(ctx context.Context, limit int) ([]platform.Transaction, error) {
	return s.client.GetTransactions(ctx, limit)
}

func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return false
	}
	s.submitting = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// SubmitDeposit converts the amount to USD and submits a deposit request.
func (s *Service) SubmitDeposit(ctx context.Context, amount float64, currency, paymentMethod, utrNumber, transactionID string) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	req := platform.DepositRequest{
		Amount:           USDAmount(amount, currency),
		OriginalAmount:   amount,
		OriginalCurrency: currency,
		ExchangeRate:     ExchangeRates[currency],
		PaymentMethod:    paymentMethod,
		UTRNumber:        utrNumber,
		TransactionID:    transactionID,
	}

	if err := s.client.Deposit(ctx, req); err != nil {
		s.logger.Error("Deposit submission failed", zap.Error(err))
		return err
	}

	s.logger.Info("Deposit submitted",
		zap.Float64("amount_usd", req.Amount),
		zap.String("currency", currency),
	)
	return nil
}

// SubmitWithdrawal submits a withdrawal to the given bank account.
func (s *Service) SubmitWithdrawal(ctx context.Context, amount float64, bankAccountID string) error {
	if amount <= 0 {
		return fmt.Errorf("withdrawal amount must be positive")
	}
	if bankAccountID == "" {
		return fmt.Errorf("bank account is required")
	}
	if !s.begin() {
		return ErrBusy
	}
	defer s.end()

	req := platform.WithdrawRequest{
		Amount:           amount,
		WithdrawalMethod: "bank",
		BankAccountID:    bankAccountID,
	}

	if err := s.client.Withdraw(ctx, req); err != nil {
		s.logger.Error("Withdrawal submission failed", zap.Error(err))
		return err
	}

	s.logger.Info("Withdrawal submitted", zap.Float64("amount", amount))
	return nil
}
