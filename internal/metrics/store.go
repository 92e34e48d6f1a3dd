package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coffee-machine/internal/machine"
	"coffee-machine/internal/metrics/metrics_db"

	"github.com/shopspring/decimal"
)

// Store handles persistence of sales to SQLite.
type Store struct {
	queries *metricsdb.Queries
	now     func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: metricsdb.New(db),
		now:     time.Now,
	}
}

// RecordSale saves a fulfilled order.
func (s *Store) RecordSale(ctx context.Context, sale machine.Sale) error {
	soldAt := sale.SoldAt
	if soldAt.IsZero() {
		soldAt = s.now().UTC()
	}

	err := s.queries.InsertSale(ctx, metricsdb.InsertSaleParams{
		ID:          sale.ID,
		SessionID:   sale.SessionID,
		Drink:       sale.Drink,
		CostCents:   toCents(sale.Cost),
		ChangeCents: toCents(sale.Change),
		SoldAt:      soldAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	return nil
}

// DailySales represents sales totals for a single day.
type DailySales struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// GetDailySales retrieves totals for the last N days, newest first.
func (s *Store) GetDailySales(ctx context.Context, days int) ([]DailySales, error) {
	since := s.now().AddDate(0, 0, -days)
	rows, err := s.queries.GetDailySales(ctx, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily sales: %w", err)
	}

	results := make([]DailySales, 0, len(rows))
	for _, r := range rows {
		results = append(results, DailySales{
			Date:    r.Day,
			Orders:  int(r.Orders),
			Revenue: fromCents(r.RevenueCents),
		})
	}
	return results, nil
}

// DrinkSales is the number of orders of one drink.
type DrinkSales struct {
	Drink  string `json:"drink"`
	Orders int    `json:"orders"`
}

// GetSalesByDrink ranks drinks by orders across all recorded sales.
func (s *Store) GetSalesByDrink(ctx context.Context) ([]DrinkSales, error) {
	rows, err := s.queries.GetSalesByDrink(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales by drink: %w", err)
	}

	results := make([]DrinkSales, 0, len(rows))
	for _, r := range rows {
		results = append(results, DrinkSales{Drink: r.Drink, Orders: int(r.Orders)})
	}
	return results, nil
}

// Cleanup removes sales older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := s.now().AddDate(0, 0, -olderThanDays)
	n, err := s.queries.CleanupSales(ctx, threshold.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sales: %w", err)
	}
	return n, nil
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
