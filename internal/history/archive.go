// Package history keeps a local archive of closed trades, so the history
// tab can reach further back than the server's trade-list window.
package history

import (
	"fmt"
	"time"

	"trade-terminal-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Record is one archived closed trade. TradeID is the server's id; a trade
// is archived once and its realized profit is never rewritten.
type Record struct {
	gorm.Model
	TradeID    string `gorm:"uniqueIndex"`
	Symbol     string
	Direction  string
	Amount     float64
	EntryPrice float64
	Profit     float64
	OpenedAt   time.Time
	ArchivedAt time.Time
}

// Archive is the gorm-backed store. It satisfies positions.Archiver.
type Archive struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewArchive opens the database and migrates the schema.
func NewArchive(dsn string, logger *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &Archive{db: db, logger: logger}, nil
}

// ArchiveClosed upserts the given closed trades by server id. Trades seen
// on every poll are skipped once recorded.
func (a *Archive) ArchiveClosed(trades []models.Trade) error {
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		record := Record{
			TradeID:    t.ID,
			Symbol:     t.Symbol,
			Direction:  t.Direction,
			Amount:     t.Amount,
			EntryPrice: t.EntryPrice,
			Profit:     t.Profit,
			OpenedAt:   t.CreatedAt,
			ArchivedAt: time.Now(),
		}
		if err := a.db.Where(Record{TradeID: t.ID}).FirstOrCreate(&record).Error; err != nil {
			return fmt.Errorf("failed to archive trade %s: %w", t.ID, err)
		}
	}
	return nil
}

// Recent returns the most recently archived records, newest first.
func (a *Archive) Recent(limit int) ([]Record, error) {
	var records []Record
	if err := a.db.Order("archived_at desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

// StatsDetail holds realized-profit statistics for a period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// Statistics is the realized-profit summary: last 24 hours and all time.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// Statistics computes win rate and total realized profit over the archive.
func (a *Archive) Statistics() (Statistics, error) {
	var records []Record
	if err := a.db.Find(&records).Error; err != nil {
		return Statistics{}, fmt.Errorf("failed to load records for statistics: %w", err)
	}

	since24h := time.Now().Add(-24 * time.Hour)

	var stats Statistics
	for _, r := range records {
		stats.AllTime.TotalTrades++
		if r.Profit > 0 {
			stats.AllTime.ProfitableTrades++
		}
		stats.AllTime.TotalProfit += r.Profit

		if r.ArchivedAt.After(since24h) {
			stats.Since24h.TotalTrades++
			if r.Profit > 0 {
				stats.Since24h.ProfitableTrades++
			}
			stats.Since24h.TotalProfit += r.Profit
		}
	}

	if stats.AllTime.TotalTrades > 0 {
		stats.AllTime.WinRate = float64(stats.AllTime.ProfitableTrades) / float64(stats.AllTime.TotalTrades)
	}
	if stats.Since24h.TotalTrades > 0 {
		stats.Since24h.WinRate = float64(stats.Since24h.ProfitableTrades) / float64(stats.Since24h.TotalTrades)
	}

	return stats, nil
}
