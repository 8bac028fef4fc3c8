package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"trade-terminal-go/internal/config"
	"trade-terminal-go/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// genericFailure is shown when the server rejects a command without a message.
const genericFailure = "Request failed. Please try again."

// ClientInterface defines the interface for the trading platform REST API client.
type ClientInterface interface {
	GetTrades(ctx context.Context, limit int) ([]models.Trade, error)
	GetPrices(ctx context.Context) (map[string]models.Quote, error)
	CloseTrade(ctx context.Context, id string) error
	CancelTrade(ctx context.Context, id string) error
	ModifyTrade(ctx context.Context, id string, stopLoss, takeProfit *float64) error
}

// Client is a bearer-token client for the trading platform REST API.
// It implements the ClientInterface.
//
// Requests are throttled client-side but never retried: for read polls the
// next scheduled tick is the recovery path, and write commands are retried
// only by the user.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// CommandError carries the server-provided message for a rejected write
// command. The message is user-facing and must be surfaced unchanged.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// envelope is the common response wrapper used by every platform endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates a new platform API client.
func NewClient(cfg *config.Platform, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// doRequest executes a single request after waiting for the rate limiter.
// There is deliberately no retry loop here.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// decodeEnvelope unwraps the {success, message, data} wrapper, converting a
// failed response into an error carrying the server message when present.
func decodeEnvelope(resp *resty.Response) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %s): %w", resp.Status(), err)
	}
	if !env.Success || resp.IsError() {
		msg := env.Message
		if msg == "" {
			msg = genericFailure
		}
		return nil, &CommandError{Message: msg}
	}
	return &env, nil
}

// tradesData covers both shapes the trade-list endpoint is known to return:
// {data: {trades: [...]}} and {data: [...]}. The rest of the client only
// ever sees the normalized slice.
type tradesData struct {
	Trades []models.Trade `json:"trades"`
}

// GetTrades fetches the user's trade list, newest first.
func (c *Client) GetTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	req := c.client.R().SetQueryParam("limit", fmt.Sprintf("%d", limit))

	resp, err := c.doRequest(ctx, "GET", "/trades", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}

	var wrapped tradesData
	if err := json.Unmarshal(env.Data, &wrapped); err == nil && wrapped.Trades != nil {
		return wrapped.Trades, nil
	}

	var trades []models.Trade
	if err := json.Unmarshal(env.Data, &trades); err != nil {
		return nil, fmt.Errorf("unexpected trade list shape: %w", err)
	}
	return trades, nil
}

// GetPrices fetches the latest bid/ask for every quoted symbol.
func (c *Client) GetPrices(ctx context.Context) (map[string]models.Quote, error) {
	resp, err := c.doRequest(ctx, "GET", "/trades/prices", c.client.R())
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}

	quotes := make(map[string]models.Quote)
	if err := json.Unmarshal(env.Data, &quotes); err != nil {
		return nil, fmt.Errorf("unexpected price map shape: %w", err)
	}
	return quotes, nil
}

// CloseTrade requests closure of an open trade.
func (c *Client) CloseTrade(ctx context.Context, id string) error {
	return c.putCommand(ctx, fmt.Sprintf("/trades/%s/close", id), nil)
}

// CancelTrade requests cancellation of a pending order.
func (c *Client) CancelTrade(ctx context.Context, id string) error {
	return c.putCommand(ctx, fmt.Sprintf("/trades/%s/cancel", id), nil)
}

// modifyRequest intentionally has no omitempty: a cleared field must go out
// as an explicit JSON null, never be silently dropped.
type modifyRequest struct {
	StopLoss   *float64 `json:"stopLoss"`
	TakeProfit *float64 `json:"takeProfit"`
}

// ModifyTrade updates the stop-loss/take-profit of a pending or open trade.
// A nil pointer clears the corresponding field on the server.
func (c *Client) ModifyTrade(ctx context.Context, id string, stopLoss, takeProfit *float64) error {
	body := modifyRequest{StopLoss: stopLoss, TakeProfit: takeProfit}
	return c.putCommand(ctx, fmt.Sprintf("/trades/%s/modify", id), body)
}

// putCommand runs a single mutating round-trip and unwraps the envelope.
func (c *Client) putCommand(ctx context.Context, url string, body interface{}) error {
	req := c.client.R().SetHeader("Content-Type", "application/json")
	if body != nil {
		req = req.SetBody(body)
	}

	resp, err := c.doRequest(ctx, "PUT", url, req)
	if err != nil {
		return err
	}

	if _, err := decodeEnvelope(resp); err != nil {
		return err
	}
	return nil
}
