package payment

import "github.com/shopspring/decimal"

// ChangePlaces is the number of decimal places change is rounded to.
// Rounding is half away from zero, which for non-negative amounts is the
// usual round-half-up.
const ChangePlaces = 2

// Settlement is the outcome of a single payment.
type Settlement struct {
	Accepted bool
	Change   decimal.Decimal
}

// Processor settles cash payments and keeps the running profit.
type Processor struct {
	profit decimal.Decimal
}

// NewProcessor returns a processor whose profit starts at the given amount.
func NewProcessor(profit decimal.Decimal) *Processor {
	return &Processor{profit: profit}
}

// Settle accepts the payment when tendered covers cost. Only the cost is kept
// as profit; the excess is returned as change. A short payment is refunded in
// full and leaves the profit untouched.
func (p *Processor) Settle(cost, tendered decimal.Decimal) Settlement {
	if tendered.LessThan(cost) {
		return Settlement{Accepted: false, Change: decimal.Zero}
	}
	p.profit = p.profit.Add(cost)
	return Settlement{
		Accepted: true,
		Change:   tendered.Sub(cost).Round(ChangePlaces),
	}
}

// Profit returns the accumulated profit.
func (p *Processor) Profit() decimal.Decimal {
	return p.profit
}
