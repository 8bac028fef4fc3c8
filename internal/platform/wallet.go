package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// WalletClientInterface defines the wallet endpoints of the platform API.
type WalletClientInterface interface {
	GetBalance(ctx context.Context) (float64, error)
	GetTransactions(ctx context.Context, limit int) ([]Transaction, error)
	Deposit(ctx context.Context, req DepositRequest) error
	Withdraw(ctx context.Context, req WithdrawRequest) error
}

var _ WalletClientInterface = (*Client)(nil)

// Transaction is a single wallet ledger entry.
type Transaction struct {
	ID        string    `json:"_id"`
	Type      string    `json:"type"` // "deposit" or "withdrawal"
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// DepositRequest is the body of a deposit submission. Amount is the USD
// equivalent; the original figure and its conversion rate ride along for
// the back office.
type DepositRequest struct {
	Amount           float64 `json:"amount"`
	OriginalAmount   float64 `json:"originalAmount"`
	OriginalCurrency string  `json:"originalCurrency"`
	ExchangeRate     float64 `json:"exchangeRate"`
	PaymentMethod    string  `json:"paymentMethod"`
	UTRNumber        string  `json:"utrNumber,omitempty"`
	TransactionID    string  `json:"transactionId,omitempty"`
}

// WithdrawRequest is the body of a withdrawal submission.
type WithdrawRequest struct {
	Amount           float64 `json:"amount"`
	WithdrawalMethod string  `json:"withdrawalMethod"`
	BankAccountID    string  `json:"bankAccountId"`
}

// GetBalance fetches the current wallet balance.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	resp, err := c.doRequest(ctx, "GET", "/wallet/balance", c.client.R())
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	var data struct {
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, fmt.Errorf("unexpected balance shape: %w", err)
	}
	return data.Balance, nil
}

// GetTransactions fetches recent wallet transactions, newest first.
func (c *Client) GetTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	req := c.client.R().SetQueryParam("limit", fmt.Sprintf("%d", limit))

	resp, err := c.doRequest(ctx, "GET", "/wallet/transactions", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	var txs []Transaction
	if err := json.Unmarshal(env.Data, &txs); err != nil {
		return nil, fmt.Errorf("unexpected transaction list shape: %w", err)
	}
	return txs, nil
}

// Deposit submits a deposit request for back-office approval.
func (c *Client) Deposit(ctx context.Context, body DepositRequest) error {
	return c.postCommand(ctx, "/wallet/deposit", body)
}

// Withdraw submits a withdrawal request for back-office approval.
func (c *Client) Withdraw(ctx context.Context, body WithdrawRequest) error {
	return c.postCommand(ctx, "/wallet/withdraw", body)
}

func (c *Client) postCommand(ctx context.Context, url string, body interface{}) error {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(body)

	resp, err := c.doRequest(ctx, "POST", url, req)
	if err != nil {
		return err
	}

	if _, err := decodeEnvelope(resp); err != nil {
		return err
	}
	return nil
}
