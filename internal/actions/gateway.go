// Package actions issues close/cancel/modify commands against the platform,
// guarding each trade against duplicate in-flight submissions.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trade-terminal-go/internal/models"
	"trade-terminal-go/internal/platform"
	"trade-terminal-go/internal/signal"
	"go.uber.org/zap"
)

var (
	// ErrBusy means a command for the same trade is still in flight. The
	// guard is cooperative: the underlying request is never aborted, so a
	// hung transport keeps the guard engaged until it resolves.
	ErrBusy = errors.New("action already in flight for this trade")

	// ErrDeclined means the user did not confirm the command; nothing was
	// sent.
	ErrDeclined = errors.New("action not confirmed")
)

// genericFailure is shown when an error carries no server message.
const genericFailure = "Request failed. Please try again."

// Confirmer asks the user to confirm a destructive command before it is
// sent. The composing surface supplies the implementation.
type Confirmer func(prompt string) bool

// ConfirmAlways is for surfaces that run their own confirmation dialog
// before ever reaching the gateway.
func ConfirmAlways(string) bool { return true }

// TradeSource is the slice of the position store the gateway needs: the
// current snapshot for status validation, and the out-of-band refresh to
// run after a successful mutation.
type TradeSource interface {
	Current() []models.Trade
	RefreshNow(ctx context.Context)
}

// Gateway issues trade commands. State is never mutated locally on
// success or failure; the UI only reflects truth after the next
// successful fetch.
type Gateway struct {
	client  platform.ClientInterface
	store   TradeSource
	bus     *signal.Bus
	confirm Confirmer
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewGateway creates a trade action gateway.
func NewGateway(client platform.ClientInterface, store TradeSource, bus *signal.Bus, confirm Confirmer, logger *zap.Logger) *Gateway {
	return &Gateway{
		client:   client,
		store:    store,
		bus:      bus,
		confirm:  confirm,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Busy reports whether a command for the trade is currently in flight, so
// a view can suspend that trade's action affordances.
func (g *Gateway) Busy(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[id]
	return busy
}

func (g *Gateway) begin(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[id]; busy {
		return false
	}
	g.inFlight[id] = struct{}{}
	return true
}

func (g *Gateway) end(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, id)
}

// find looks the trade up in the current store snapshot.
func (g *Gateway) find(id string) (models.Trade, error) {
	for _, t := range g.store.Current() {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Trade{}, fmt.Errorf("unknown trade %s", id)
}

// Close requests closure of an open trade. On success it broadcasts
// tradeClosed and refreshes the store ahead of its next tick.
func (g *Gateway) Close(ctx context.Context, id string) error {
	trade, err := g.find(id)
	if err != nil {
		return err
	}
	if !trade.IsOpen() {
		return fmt.Errorf("trade %s is not open", id)
	}
	if !g.confirm("Close this trade?") {
		return ErrDeclined
	}
	if !g.begin(id) {
		return ErrBusy
	}
	defer g.end(id)

	if err := g.client.CloseTrade(ctx, id); err != nil {
		g.logger.Error("Close failed", zap.String("trade_id", id), zap.Error(err))
		return err
	}

	g.logger.Info("Trade closed", zap.String("trade_id", id), zap.String("symbol", trade.Symbol))
	g.bus.Emit(signal.TradeClosed)
	g.store.RefreshNow(ctx)
	return nil
}

// CancelPending requests cancellation of a pending order. Same
// confirmation and refresh behavior as Close.
func (g *Gateway) CancelPending(ctx context.Context, id string) error {
	trade, err := g.find(id)
	if err != nil {
		return err
	}
	if !trade.IsPending() {
		return fmt.Errorf("trade %s is not pending", id)
	}
	if !g.confirm("Cancel this order?") {
		return ErrDeclined
	}
	if !g.begin(id) {
		return ErrBusy
	}
	defer g.end(id)

	if err := g.client.CancelTrade(ctx, id); err != nil {
		g.logger.Error("Cancel failed", zap.String("trade_id", id), zap.Error(err))
		return err
	}

	g.logger.Info("Order cancelled", zap.String("trade_id", id), zap.String("symbol", trade.Symbol))
	g.bus.Emit(signal.TradeClosed)
	g.store.RefreshNow(ctx)
	return nil
}

// Modify updates the stop-loss/take-profit of a pending or open trade. A
// nil pointer is an explicit clear and goes out as JSON null; it never
// silently keeps the prior value.
func (g *Gateway) Modify(ctx context.Context, id string, stopLoss, takeProfit *float64) error {
	trade, err := g.find(id)
	if err != nil {
		return err
	}
	if trade.IsClosed() {
		return fmt.Errorf("trade %s is closed", id)
	}
	if !g.begin(id) {
		return ErrBusy
	}
	defer g.end(id)

	if err := g.client.ModifyTrade(ctx, id, stopLoss, takeProfit); err != nil {
		g.logger.Error("Modify failed", zap.String("trade_id", id), zap.Error(err))
		return err
	}

	g.logger.Info("Trade modified", zap.String("trade_id", id))
	g.store.RefreshNow(ctx)
	return nil
}

// UserMessage converts a command error into the string shown to the user:
// the server-provided message when present, else a generic fallback.
func UserMessage(err error) string {
	var cmdErr *platform.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Message
	}
	return genericFailure
}
