package api

import (
	"time"

	"brokerage-sim-go/internal/models"
	"brokerage-sim-go/internal/portfolio"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// usd formats an amount as "$1,234.56", rounding half away from zero to cents.
func usd(d decimal.Decimal) string {
	return money.New(d.Round(2).Shift(2).IntPart(), money.USD).Display()
}

type positionView struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Shares int64  `json:"shares"`
	Price  string `json:"price"`
	Total  string `json:"total"`
}

type valuationView struct {
	Holdings []positionView `json:"holdings"`
	Cash     string         `json:"cash"`
	Total    string         `json:"total"`
}

func newValuationView(v *portfolio.Valuation) valuationView {
	view := valuationView{
		Holdings: make([]positionView, len(v.Holdings)),
		Cash:     usd(v.Cash),
		Total:    usd(v.Total),
	}
	for i, p := range v.Holdings {
		view.Holdings[i] = positionView{
			Symbol: p.Symbol,
			Name:   p.Name,
			Shares: p.Shares,
			Price:  usd(p.Price),
			Total:  usd(p.Subtotal),
		}
	}
	return view
}

type transactionView struct {
	ID     uint   `json:"id"`
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

func newTransactionView(tx models.Transaction) transactionView {
	return transactionView{
		ID:     tx.ID,
		Type:   string(tx.Type),
		Symbol: tx.Symbol,
		Shares: tx.Shares,
		Price:  usd(tx.Price),
		Amount: usd(tx.Amount()),
		Date:   tx.Date.UTC().Format(time.DateTime),
	}
}

type statsView struct {
	TotalTrades int64  `json:"total_trades"`
	Buys        int64  `json:"buys"`
	Sells       int64  `json:"sells"`
	Bought      string `json:"bought"`
	Sold        string `json:"sold"`
}

func newStatsView(d portfolio.StatsDetail) statsView {
	return statsView{
		TotalTrades: d.TotalTrades,
		Buys:        d.Buys,
		Sells:       d.Sells,
		Bought:      usd(d.Bought),
		Sold:        usd(d.Sold),
	}
}
