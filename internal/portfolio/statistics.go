package portfolio

import (
	"context"
	"time"

	"brokerage-sim-go/internal/models"

	"github.com/shopspring/decimal"
)

// StatsDetail holds trading activity for a given period.
type StatsDetail struct {
	TotalTrades int64           `json:"total_trades"`
	Buys        int64           `json:"buys"`
	Sells       int64           `json:"sells"`
	Bought      decimal.Decimal `json:"bought"` // cash spent on buys
	Sold        decimal.Decimal `json:"sold"`   // cash received from sells
}

// Statistics summarizes a user's activity over the last day and all time.
type Statistics struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// Statistics replays the user's ledger into activity counters relative to now.
func (b *Broker) Statistics(ctx context.Context, userID uint, now time.Time) (*Statistics, error) {
	txs, err := b.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summarize(txs, now), nil
}

func summarize(txs []models.Transaction, now time.Time) *Statistics {
	since24h := now.Add(-24 * time.Hour)

	stats := &Statistics{
		Since24h: StatsDetail{Bought: decimal.Zero, Sold: decimal.Zero},
		AllTime:  StatsDetail{Bought: decimal.Zero, Sold: decimal.Zero},
	}

	for _, tx := range txs {
		stats.AllTime.add(tx)
		if tx.Date.After(since24h) {
			stats.Since24h.add(tx)
		}
	}
	return stats
}

func (d *StatsDetail) add(tx models.Transaction) {
	d.TotalTrades++
	switch tx.Type {
	case models.Buy:
		d.Buys++
		d.Bought = d.Bought.Add(tx.Amount())
	case models.Sell:
		d.Sells++
		d.Sold = d.Sold.Add(tx.Amount())
	}
}
