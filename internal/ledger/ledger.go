package ledger

import "github.com/shopspring/decimal"

// HistoryLimit is the number of transactions kept on record.
const HistoryLimit = 10

// Transaction is a fulfilled order as shown in the history.
type Transaction struct {
	ID    string          `json:"id"`
	Drink string          `json:"drink"`
	Cost  decimal.Decimal `json:"cost"`
	Time  string          `json:"time"`
}

// Ledger is the running profit plus the most recent transactions, newest
// first.
type Ledger struct {
	Profit  decimal.Decimal `json:"profit"`
	History []Transaction   `json:"transactions"`
}

// Record returns a ledger with tx prepended and profit set to the given
// settled total. The receiver is left untouched.
func (l Ledger) Record(tx Transaction, profit decimal.Decimal) Ledger {
	n := len(l.History) + 1
	if n > HistoryLimit {
		n = HistoryLimit
	}
	history := make([]Transaction, 0, n)
	history = append(history, tx)
	history = append(history, l.History[:n-1]...)

	return Ledger{Profit: profit, History: history}
}

// Orders returns the number of transactions on record.
func (l Ledger) Orders() int {
	return len(l.History)
}
