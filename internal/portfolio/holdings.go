package portfolio

import (
	"sort"

	"brokerage-sim-go/internal/ledger"
	"brokerage-sim-go/internal/models"
)

// Holdings maps a symbol to the net number of shares owned.
// Only strictly positive positions are present.
type Holdings map[string]int64

// Symbols returns the held symbols in ascending order.
func (h Holdings) Symbols() []string {
	symbols := make([]string, 0, len(h))
	for s := range h {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// ComputeHoldings replays a user's ledger into net positions.
func ComputeHoldings(l ledger.Ledger, userID uint) (Holdings, error) {
	txs, err := l.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	return Reduce(txs), nil
}

// Reduce derives net positions from a transaction log.
// Buys and sells are totalled separately before subtracting; a symbol that was
// only ever sold counts as zero bought. Fully sold or negative positions are omitted.
func Reduce(txs []models.Transaction) Holdings {
	bought := make(map[string]int64)
	sold := make(map[string]int64)
	for _, tx := range txs {
		switch tx.Type {
		case models.Buy:
			bought[tx.Symbol] += tx.Shares
		case models.Sell:
			sold[tx.Symbol] += tx.Shares
		}
	}

	holdings := make(Holdings, len(bought))
	for symbol, buys := range bought {
		if net := buys - sold[symbol]; net > 0 {
			holdings[symbol] = net
		}
	}
	return holdings
}
