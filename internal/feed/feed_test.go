package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trade-terminal-go/internal/models"
	"trade-terminal-go/internal/signal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeClient serves canned quote snapshots and fails on demand.
type fakeClient struct {
	mu     sync.Mutex
	quotes map[string]models.Quote
	err    error
	calls  int
}

func (f *fakeClient) GetPrices(ctx context.Context) (map[string]models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snapshot := make(map[string]models.Quote, len(f.quotes))
	for k, v := range f.quotes {
		snapshot[k] = v
	}
	return snapshot, nil
}

func (f *fakeClient) set(quotes map[string]models.Quote, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes = quotes
	f.err = err
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) GetTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	return nil, nil
}
func (f *fakeClient) CloseTrade(ctx context.Context, id string) error  { return nil }
func (f *fakeClient) CancelTrade(ctx context.Context, id string) error { return nil }
func (f *fakeClient) ModifyTrade(ctx context.Context, id string, stopLoss, takeProfit *float64) error {
	return nil
}

func newTestFeed(client *fakeClient, bus *signal.Bus) *Feed {
	return New(client, bus, 2*time.Second, zap.NewNop())
}

func TestPollReplacesSnapshot(t *testing.T) {
	client := &fakeClient{quotes: map[string]models.Quote{"EURUSD": {Bid: 1.1, Ask: 1.2}}}
	f := newTestFeed(client, signal.NewBus())

	f.poll(context.Background())

	quotes := f.Latest()
	assert.Equal(t, 1.1, quotes["EURUSD"].Bid)

	// The next poll overwrites wholesale; the old symbol is gone.
	client.set(map[string]models.Quote{"XAUUSD": {Bid: 1949, Ask: 1951}}, nil)
	f.poll(context.Background())

	quotes = f.Latest()
	assert.NotContains(t, quotes, "EURUSD")
	assert.Equal(t, 1951.0, quotes["XAUUSD"].Ask)
}

func TestFailedPollRetainsPreviousQuotes(t *testing.T) {
	client := &fakeClient{quotes: map[string]models.Quote{"EURUSD": {Bid: 1.1, Ask: 1.2}}}
	f := newTestFeed(client, signal.NewBus())

	f.poll(context.Background())
	client.set(nil, errors.New("connection refused"))
	f.poll(context.Background())

	// Stale-but-available: callers still see the last good snapshot.
	quotes := f.Latest()
	assert.Equal(t, 1.1, quotes["EURUSD"].Bid)
}

func TestLatestReturnsACopy(t *testing.T) {
	client := &fakeClient{quotes: map[string]models.Quote{"EURUSD": {Bid: 1.1, Ask: 1.2}}}
	f := newTestFeed(client, signal.NewBus())
	f.poll(context.Background())

	quotes := f.Latest()
	quotes["EURUSD"] = models.Quote{Bid: 9, Ask: 9}

	assert.Equal(t, 1.1, f.Latest()["EURUSD"].Bid)
}

func TestRunPollsOnTickAndTradeEvents(t *testing.T) {
	client := &fakeClient{quotes: map[string]models.Quote{}}
	bus := signal.NewBus()
	f := newTestFeed(client, bus)

	ticks := make(chan time.Time)
	stopped := false
	f.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticks, func() { stopped = true }
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	// Initial prime.
	assert.Eventually(t, func() bool { return client.callCount() >= 1 }, time.Second, 5*time.Millisecond)

	ticks <- time.Now()
	assert.Eventually(t, func() bool { return client.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	// A trade event forces an out-of-band poll ahead of the next tick.
	bus.Emit(signal.TradeClosed)
	assert.Eventually(t, func() bool { return client.callCount() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.True(t, stopped, "ticker must be released on exit")
}
