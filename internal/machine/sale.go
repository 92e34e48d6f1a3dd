package machine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a fulfilled order as reported to the operator's sinks.
type Sale struct {
	ID        string
	SessionID string
	Drink     string
	Cost      decimal.Decimal
	Change    decimal.Decimal
	SoldAt    time.Time
}

// NewSale describes the order behind r, sold in session sessionID.
func NewSale(sessionID string, r Receipt, soldAt time.Time) Sale {
	return Sale{
		ID:        r.Transaction.ID,
		SessionID: sessionID,
		Drink:     r.Transaction.Drink,
		Cost:      r.Transaction.Cost,
		Change:    r.Change,
		SoldAt:    soldAt.UTC(),
	}
}

// SaleRecorder receives fulfilled orders, such as a metrics store or an
// event publisher.
type SaleRecorder interface {
	RecordSale(ctx context.Context, sale Sale) error
}
