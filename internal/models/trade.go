package models

import "time"

// Trade direction, as received from the platform API.
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// Trade status values. A trade is in exactly one of these states; "closed"
// is terminal.
const (
	StatusPending = "pending"
	StatusOpen    = "open"
	StatusClosed  = "closed"
)

// Trade mirrors a single trade as held by the platform server. The client
// never creates or deletes trades, it only reads server state and requests
// transitions (close, cancel, modify).
type Trade struct {
	ID         string    `json:"_id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"type"` // "buy" or "sell"
	Status     string    `json:"status"`
	Amount     float64   `json:"amount"` // lots
	EntryPrice float64   `json:"price"`
	StopLoss   *float64  `json:"stopLoss,omitempty"`
	TakeProfit *float64  `json:"takeProfit,omitempty"`
	Profit     float64   `json:"profit"` // realized; authoritative once closed
	CreatedAt  time.Time `json:"createdAt"`
}

// IsOpen reports whether the trade is an open position.
func (t *Trade) IsOpen() bool { return t.Status == StatusOpen }

// IsPending reports whether the trade is a pending order.
func (t *Trade) IsPending() bool { return t.Status == StatusPending }

// IsClosed reports whether the trade has reached its terminal state.
func (t *Trade) IsClosed() bool { return t.Status == StatusClosed }
