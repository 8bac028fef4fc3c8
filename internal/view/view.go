// Package view projects the position store and price feed into the three
// terminal tabs (positions, pending, history) with an aggregate header.
package view

import (
	"fmt"
	"math"

	"trade-terminal-go/internal/models"
	"trade-terminal-go/internal/pnl"
	"trade-terminal-go/internal/positions"
)

// TradeSnapshotter is the read side of the position store.
type TradeSnapshotter interface {
	Current() []models.Trade
}

// QuoteSnapshotter is the read side of the price feed.
type QuoteSnapshotter interface {
	Latest() map[string]models.Quote
}

// BusyChecker reports in-flight actions so a row's affordances can be
// suspended while a command is pending.
type BusyChecker interface {
	Busy(id string) bool
}

// Row is one displayable trade with its live P/L.
type Row struct {
	Trade   models.Trade `json:"trade"`
	PnL     float64      `json:"pnl"`
	Display string       `json:"display"` // signed, two decimals, e.g. "+$100.00"
	Busy    bool         `json:"busy"`
}

// Snapshot is one coherent projection: all three partitions and the
// aggregate, derived from a single store snapshot and a single quote
// snapshot. The aggregate is computed from the same trades shown in the
// rows; it is never fetched or cached independently.
type Snapshot struct {
	Open        []Row   `json:"open"`
	Pending     []Row   `json:"pending"`
	History     []Row   `json:"history"`
	FloatingPnL float64 `json:"floatingPnl"`
}

// View combines the snapshots on demand; it holds no state of its own.
type View struct {
	store TradeSnapshotter
	feed  QuoteSnapshotter
	busy  BusyChecker
}

// New creates a view over the given sources.
func New(store TradeSnapshotter, feed QuoteSnapshotter, busy BusyChecker) *View {
	return &View{store: store, feed: feed, busy: busy}
}

// Snapshot derives the current projection. Both underlying snapshots are
// read exactly once so rows and aggregate cannot disagree.
func (v *View) Snapshot() Snapshot {
	trades := v.store.Current()
	quotes := v.feed.Latest()

	parts := positions.Partition(trades)
	return Snapshot{
		Open:        v.rows(parts.Open, quotes),
		Pending:     v.rows(parts.Pending, quotes),
		History:     v.rows(parts.Closed, quotes),
		FloatingPnL: pnl.Aggregate(trades, quotes),
	}
}

func (v *View) rows(trades []models.Trade, quotes map[string]models.Quote) []Row {
	rows := make([]Row, 0, len(trades))
	for _, t := range trades {
		profit := pnl.LivePnL(t, quotes)
		rows = append(rows, Row{
			Trade:   t,
			PnL:     profit,
			Display: FormatPnL(profit),
			Busy:    v.busy.Busy(t.ID),
		})
	}
	return rows
}

// FormatPnL renders a profit figure the way the terminal displays it:
// explicit sign, dollar prefix, two decimals.
func FormatPnL(profit float64) string {
	if profit < 0 {
		return fmt.Sprintf("-$%.2f", math.Abs(profit))
	}
	return fmt.Sprintf("+$%.2f", profit)
}
