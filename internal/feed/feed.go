// Package feed maintains the latest bid/ask per symbol by polling the
// platform price endpoint on a fixed cadence.
package feed

import (
	"context"
	"sync"
	"time"

	"trade-terminal-go/internal/models"
	"trade-terminal-go/internal/platform"
	"trade-terminal-go/internal/signal"
	"go.uber.org/zap"
)

// Feed polls the quote endpoint and holds the most recent snapshot. A failed
// poll keeps the previous snapshot unchanged and is invisible to readers;
// the next tick is the implicit retry. There is no backoff.
type Feed struct {
	client   platform.ClientInterface
	logger   *zap.Logger
	bus      *signal.Bus
	interval time.Duration

	// newTicker is swapped in tests to drive polls without wall-clock waits.
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu     sync.RWMutex
	quotes map[string]models.Quote
}

// New creates a price feed polling at the given interval.
func New(client platform.ClientInterface, bus *signal.Bus, interval time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		client:    client,
		logger:    logger,
		bus:       bus,
		interval:  interval,
		newTicker: realTicker,
		quotes:    make(map[string]models.Quote),
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Latest returns a copy of the current quote snapshot. Staleness is not
// signalled at this layer; consumers must tolerate it.
func (f *Feed) Latest() map[string]models.Quote {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snapshot := make(map[string]models.Quote, len(f.quotes))
	for symbol, quote := range f.quotes {
		snapshot[symbol] = quote
	}
	return snapshot
}

// Run polls until the context is cancelled. Trade events on the bus trigger
// an out-of-band poll ahead of the next scheduled tick. All tickers and
// subscriptions are released on every exit path.
func (f *Feed) Run(ctx context.Context) {
	ticks, stop := f.newTicker(f.interval)
	defer stop()

	created, unsubCreated := f.bus.Subscribe(signal.TradeCreated)
	defer unsubCreated()
	closed, unsubClosed := f.bus.Subscribe(signal.TradeClosed)
	defer unsubClosed()

	f.logger.Info("Starting price feed", zap.Duration("interval", f.interval))
	f.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Stopping price feed")
			return
		case <-ticks:
			f.poll(ctx)
		case <-created:
			f.poll(ctx)
		case <-closed:
			f.poll(ctx)
		}
	}
}

func (f *Feed) poll(ctx context.Context) {
	quotes, err := f.client.GetPrices(ctx)
	if err != nil {
		// Stale-but-available: keep the previous map, tell no one.
		f.logger.Warn("Price poll failed, keeping previous quotes", zap.Error(err))
		return
	}

	f.mu.Lock()
	f.quotes = quotes
	f.mu.Unlock()

	f.logger.Debug("Quotes updated", zap.Int("symbols", len(quotes)))
}
