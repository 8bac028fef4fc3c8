package models

// Quote is the latest bid/ask for a symbol. No history is kept; each price
// poll overwrites the previous value wholesale.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}
