package view

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"trade-terminal-go/internal/actions"
	"trade-terminal-go/internal/models"
	"trade-terminal-go/internal/platform"
	"trade-terminal-go/internal/signal"
	"trade-terminal-go/internal/wallet"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// apiFakeClient implements both the trade and wallet sides of the platform
// client for end-to-end handler tests.
type apiFakeClient struct {
	mu          sync.Mutex
	closeCalls  int
	cancelCalls int
	lastSL      *float64
	lastTP      *float64
	closeErr    error
}

func (f *apiFakeClient) GetTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	return nil, nil
}
func (f *apiFakeClient) GetPrices(ctx context.Context) (map[string]models.Quote, error) {
	return nil, nil
}
func (f *apiFakeClient) CloseTrade(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return f.closeErr
}
func (f *apiFakeClient) CancelTrade(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return nil
}
func (f *apiFakeClient) ModifyTrade(ctx context.Context, id string, stopLoss, takeProfit *float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSL = stopLoss
	f.lastTP = takeProfit
	return nil
}
func (f *apiFakeClient) GetBalance(ctx context.Context) (float64, error) { return 500, nil }
func (f *apiFakeClient) GetTransactions(ctx context.Context, limit int) ([]platform.Transaction, error) {
	return []platform.Transaction{{ID: "tx1", Type: "deposit", Amount: 100}}, nil
}
func (f *apiFakeClient) Deposit(ctx context.Context, req platform.DepositRequest) error { return nil }
func (f *apiFakeClient) Withdraw(ctx context.Context, req platform.WithdrawRequest) error {
	return nil
}

type apiFakeStore struct{ trades []models.Trade }

func (s *apiFakeStore) Current() []models.Trade        { return s.trades }
func (s *apiFakeStore) RefreshNow(ctx context.Context) {}

func setupAPI(t *testing.T, client *apiFakeClient) *httptest.Server {
	t.Helper()
	log := zap.NewNop()

	store := &apiFakeStore{trades: []models.Trade{
		{ID: "o1", Symbol: "EURUSD", Direction: models.DirectionBuy, Status: models.StatusOpen, Amount: 1, EntryPrice: 1.1000},
		{ID: "p1", Symbol: "XAUUSD", Direction: models.DirectionSell, Status: models.StatusPending, Amount: 0.5, EntryPrice: 1950},
	}}
	feed := stubFeed{quotes: map[string]models.Quote{
		"EURUSD": {Bid: 1.1010, Ask: 1.1012},
	}}

	bus := signal.NewBus()
	gateway := actions.NewGateway(client, store, bus, actions.ConfirmAlways, log)
	positionView := New(store, feed, gateway)
	walletSvc := wallet.NewService(client, log)

	api := NewAPIServer(0, positionView, gateway, walletSvc, nil, log)
	server := httptest.NewServer(api.server.Handler)
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, url string) (int, apiResponse) {
	t.Helper()
	resp, err := http.Get(url)
	assert.NoError(t, err)
	defer resp.Body.Close()
	var body apiResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func doJSON(t *testing.T, method, url string, payload []byte) (int, apiResponse) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	var body apiResponse
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestSummaryEndpoint(t *testing.T) {
	server := setupAPI(t, &apiFakeClient{})

	status, body := getJSON(t, server.URL+"/api/summary")

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	data := body.Data.(map[string]interface{})
	assert.InDelta(t, 100.00, data["floatingPnl"].(float64), 1e-9)
	assert.Equal(t, "+$100.00", data["floatingPnlDisplay"])
	assert.Equal(t, 1.0, data["openCount"])
	assert.Equal(t, 1.0, data["pendingCount"])
}

func TestPositionsEndpoint(t *testing.T) {
	server := setupAPI(t, &apiFakeClient{})

	status, body := getJSON(t, server.URL+"/api/positions")

	assert.Equal(t, http.StatusOK, status)
	rows := body.Data.([]interface{})
	assert.Len(t, rows, 1)
}

func TestCloseEndpoint(t *testing.T) {
	client := &apiFakeClient{}
	server := setupAPI(t, client)

	status, body := doJSON(t, http.MethodPut, server.URL+"/api/trades/o1/close", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Equal(t, 1, client.closeCalls)
}

func TestCloseEndpointRejectsPending(t *testing.T) {
	client := &apiFakeClient{}
	server := setupAPI(t, client)

	status, body := doJSON(t, http.MethodPut, server.URL+"/api/trades/p1/close", nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Message)
	assert.Equal(t, 0, client.closeCalls)
}

func TestCloseEndpointSurfacesServerMessage(t *testing.T) {
	client := &apiFakeClient{closeErr: &platform.CommandError{Message: "Market closed"}}
	server := setupAPI(t, client)

	status, body := doJSON(t, http.MethodPut, server.URL+"/api/trades/o1/close", nil)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "Market closed", body.Message)
}

func TestModifyEndpointForwardsNull(t *testing.T) {
	client := &apiFakeClient{}
	server := setupAPI(t, client)

	status, body := doJSON(t, http.MethodPut, server.URL+"/api/trades/o1/modify",
		[]byte(`{"stopLoss": null, "takeProfit": 1.2}`))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)
	assert.Nil(t, client.lastSL)
	assert.Equal(t, 1.2, *client.lastTP)
}

func TestWalletEndpoints(t *testing.T) {
	server := setupAPI(t, &apiFakeClient{})

	status, body := getJSON(t, server.URL+"/api/wallet/balance")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 500.0, body.Data.(map[string]interface{})["balance"])

	status, body = doJSON(t, http.MethodPost, server.URL+"/api/wallet/withdraw",
		[]byte(`{"amount": 0, "bankAccountId": "acct1"}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
}

func TestStatisticsDisabledWithoutArchive(t *testing.T) {
	server := setupAPI(t, &apiFakeClient{})

	status, body := getJSON(t, server.URL+"/api/statistics")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, body.Success)
}

func TestHealthEndpoint(t *testing.T) {
	server := setupAPI(t, &apiFakeClient{})

	resp, err := http.Get(server.URL + "/health")
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
