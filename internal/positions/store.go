// Package positions mirrors the user's trade list by polling the platform
// on a fixed cadence, partitioning it by status.
package positions

import (
	"context"
	"sync"
	"time"

	"trade-terminal-go/internal/models"
	"trade-terminal-go/internal/platform"
	"trade-terminal-go/internal/signal"
	"go.uber.org/zap"
)

// Archiver receives the closed trades of every successful refresh, so a
// local archive can outlive the server's list window. Implementations must
// tolerate seeing the same trade repeatedly.
type Archiver interface {
	ArchiveClosed(trades []models.Trade) error
}

// Partitions is the trade list split by status.
type Partitions struct {
	Open    []models.Trade
	Pending []models.Trade
	Closed  []models.Trade
}

// Store polls the trade-list endpoint and holds the latest list. Each
// successful response replaces the held list wholesale; there is no
// incremental merge, so entries absent from a response are simply gone.
type Store struct {
	client   platform.ClientInterface
	logger   *zap.Logger
	bus      *signal.Bus
	interval time.Duration
	limit    int
	archive  Archiver // may be nil

	// newTicker is swapped in tests to drive polls without wall-clock waits.
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu     sync.RWMutex
	trades []models.Trade
}

// New creates a position store polling at the given interval. archive may
// be nil to disable local history.
func New(client platform.ClientInterface, bus *signal.Bus, interval time.Duration, limit int, archive Archiver, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		bus:       bus,
		interval:  interval,
		limit:     limit,
		archive:   archive,
		newTicker: realTicker,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Current returns a copy of the latest trade list.
func (s *Store) Current() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]models.Trade, len(s.trades))
	copy(snapshot, s.trades)
	return snapshot
}

// Partition splits a trade list by status. It is exported so views can
// partition the exact snapshot they already hold.
func Partition(trades []models.Trade) Partitions {
	var p Partitions
	for _, t := range trades {
		switch t.Status {
		case models.StatusOpen:
			p.Open = append(p.Open, t)
		case models.StatusPending:
			p.Pending = append(p.Pending, t)
		case models.StatusClosed:
			p.Closed = append(p.Closed, t)
		}
	}
	return p
}

// Partitions returns the current list split by status.
func (s *Store) Partitions() Partitions {
	return Partition(s.Current())
}

// RefreshNow performs an out-of-band fetch immediately instead of waiting
// for the next scheduled tick. Used after a successful mutating action.
func (s *Store) RefreshNow(ctx context.Context) {
	s.poll(ctx)
}

// Run polls until the context is cancelled. Trade events on the bus trigger
// the same out-of-band refresh as RefreshNow. All tickers and subscriptions
// are released on every exit path.
func (s *Store) Run(ctx context.Context) {
	ticks, stop := s.newTicker(s.interval)
	defer stop()

	created, unsubCreated := s.bus.Subscribe(signal.TradeCreated)
	defer unsubCreated()
	closed, unsubClosed := s.bus.Subscribe(signal.TradeClosed)
	defer unsubClosed()

	s.logger.Info("Starting position store", zap.Duration("interval", s.interval), zap.Int("limit", s.limit))
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping position store")
			return
		case <-ticks:
			s.poll(ctx)
		case <-created:
			s.poll(ctx)
		case <-closed:
			s.poll(ctx)
		}
	}
}

func (s *Store) poll(ctx context.Context) {
	trades, err := s.client.GetTrades(ctx, s.limit)
	if err != nil {
		// Read errors are swallowed; the previous snapshot stays visible.
		s.logger.Warn("Trade poll failed, keeping previous list", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.trades = trades
	s.mu.Unlock()

	s.logger.Debug("Trade list replaced", zap.Int("count", len(trades)))

	if s.archive != nil {
		closed := Partition(trades).Closed
		if len(closed) > 0 {
			if err := s.archive.ArchiveClosed(closed); err != nil {
				s.logger.Warn("Failed to archive closed trades", zap.Error(err))
			}
		}
	}
}
