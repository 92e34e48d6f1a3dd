package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coffee-machine/internal/machine"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleEvent is the message published for every fulfilled order.
type SaleEvent struct {
	SaleID    string          `json:"sale_id"`
	SessionID string          `json:"session_id"`
	Drink     string          `json:"drink"`
	Cost      decimal.Decimal `json:"cost"`
	Change    decimal.Decimal `json:"change"`
	SoldAt    time.Time       `json:"sold_at"`
}

// Publisher turns sales into Kafka messages keyed by session, so one
// machine's sales stay ordered within a partition.
type Publisher struct {
	producer Producer
	logger   *zap.Logger
}

// NewPublisher wraps producer.
func NewPublisher(producer Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

// RecordSale publishes sale.
func (p *Publisher) RecordSale(ctx context.Context, sale machine.Sale) error {
	payload, err := json.Marshal(SaleEvent{
		SaleID:    sale.ID,
		SessionID: sale.SessionID,
		Drink:     sale.Drink,
		Cost:      sale.Cost,
		Change:    sale.Change,
		SoldAt:    sale.SoldAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sale event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(sale.SessionID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte("sale.completed")},
		},
	}
	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish sale event: %w", err)
	}

	p.logger.Debug("sale event published", zap.String("sale_id", sale.ID), zap.String("drink", sale.Drink))
	return nil
}

// Close flushes and closes the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
