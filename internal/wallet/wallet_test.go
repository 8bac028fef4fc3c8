package wallet

import (
	"context"
	"sync"
	"testing"
	"time"

	"trade-terminal-go/internal/platform"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeWalletClient struct {
	mu        sync.Mutex
	balance   float64
	txs       []platform.Transaction
	deposits  []platform.DepositRequest
	withdraws []platform.WithdrawRequest
	block     chan struct{} // when set, Deposit waits on it
}

func (f *fakeWalletClient) GetBalance(ctx context.Context) (float64, error) {
	return f.balance, nil
}

func (f *fakeWalletClient) GetTransactions(ctx context.Context, limit int) ([]platform.Transaction, error) {
	return f.txs, nil
}

func (f *fakeWalletClient) Deposit(ctx context.Context, req platform.DepositRequest) error {
	f.mu.Lock()
	f.deposits = append(f.deposits, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return nil
}

func (f *fakeWalletClient) Withdraw(ctx context.Context, req platform.WithdrawRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdraws = append(f.withdraws, req)
	return nil
}

func TestUSDAmount(t *testing.T) {
	assert.InDelta(t, 100, USDAmount(100, "USD"), 1e-9)
	assert.InDelta(t, 100, USDAmount(8350, "INR"), 1e-9)
	// Unknown currencies pass through unchanged.
	assert.InDelta(t, 42, USDAmount(42, "XYZ"), 1e-9)
}

func TestSubmitDepositConvertsToUSD(t *testing.T) {
	client := &fakeWalletClient{}
	s := NewService(client, zap.NewNop())

	err := s.SubmitDeposit(context.Background(), 8350, "INR", "bank", "UTR123", "")

	assert.NoError(t, err)
	assert.Len(t, client.deposits, 1)
	req := client.deposits[0]
	assert.InDelta(t, 100, req.Amount, 1e-9)
	assert.Equal(t, 8350.0, req.OriginalAmount)
	assert.Equal(t, "INR", req.OriginalCurrency)
	assert.Equal(t, 83.50, req.ExchangeRate)
}

func TestSubmitDepositRejectsNonPositiveAmounts(t *testing.T) {
	client := &fakeWalletClient{}
	s := NewService(client, zap.NewNop())

	assert.Error(t, s.SubmitDeposit(context.Background(), 0, "USD", "bank", "", ""))
	assert.Error(t, s.SubmitDeposit(context.Background(), -5, "USD", "bank", "", ""))
	assert.Empty(t, client.deposits)
}

func TestSubmitWithdrawalValidation(t *testing.T) {
	client := &fakeWalletClient{}
	s := NewService(client, zap.NewNop())

	assert.Error(t, s.SubmitWithdrawal(context.Background(), 100, ""))
	assert.Error(t, s.SubmitWithdrawal(context.Background(), 0, "acct1"))

	assert.NoError(t, s.SubmitWithdrawal(context.Background(), 100, "acct1"))
	assert.Len(t, client.withdraws, 1)
	assert.Equal(t, "bank", client.withdraws[0].WithdrawalMethod)
}

func TestSubmissionBusyGuard(t *testing.T) {
	block := make(chan struct{})
	client := &fakeWalletClient{block: block}
	s := NewService(client, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- s.SubmitDeposit(context.Background(), 100, "USD", "bank", "", "") }()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.submitting
	}, time.Second, 5*time.Millisecond)

	// Re-entry while the first submission is in flight is rejected.
	assert.ErrorIs(t, s.SubmitDeposit(context.Background(), 50, "USD", "bank", "", ""), ErrBusy)
	assert.ErrorIs(t, s.SubmitWithdrawal(context.Background(), 50, "acct1"), ErrBusy)

	close(block)
	assert.NoError(t, <-done)
	assert.Len(t, client.deposits, 1)
}
