// Package pnl computes live profit-and-loss figures for trades against the
// latest quote snapshot. Everything here is pure: no I/O, no shared state.
package pnl

import (
	"strings"

	"trade-terminal-go/internal/models"
)

// defaultContractSize is the notional units per lot for standard FX pairs.
const defaultContractSize = 100000

// ContractSize returns the notional contract size for a symbol. The match
// is by substring, case-sensitive as received from the platform.
func ContractSize(symbol string) float64 {
	switch {
	case strings.Contains(symbol, "XAU"):
		return 100
	case strings.Contains(symbol, "XAG"):
		return 5000
	case strings.Contains(symbol, "BTC"), strings.Contains(symbol, "ETH"):
		return 1
	default:
		return defaultContractSize
	}
}

// LivePnL returns the floating profit of a trade against the given quotes.
//
// A closed trade returns its realized profit verbatim; quotes are
// irrelevant and the figure is never recomputed. An open or pending trade
// with no quote for its symbol degrades to the realized field rather than
// erroring. Buys are valued at the bid, sells at the ask.
func LivePnL(trade models.Trade, quotes map[string]models.Quote) float64 {
	if trade.IsClosed() {
		return trade.Profit
	}

	quote, ok := quotes[trade.Symbol]
	if !ok {
		return trade.Profit
	}

	var priceDiff float64
	if trade.Direction == models.DirectionBuy {
		priceDiff = quote.Bid - trade.EntryPrice
	} else {
		priceDiff = trade.EntryPrice - quote.Ask
	}

	return priceDiff * trade.Amount * ContractSize(trade.Symbol)
}

// Aggregate sums LivePnL over exactly the open trades of the snapshot. It
// must be fed the same snapshot used for row display so the header figure
// can never drift from the rows.
func Aggregate(trades []models.Trade, quotes map[string]models.Quote) float64 {
	var total float64
	for _, t := range trades {
		if t.IsOpen() {
			total += LivePnL(t, quotes)
		}
	}
	return total
}
