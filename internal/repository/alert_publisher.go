// Package repository provides outbound adapters for domain interfaces.
package repository

import (
	"context"
	"fmt"
	"time"

	"CandleScope/internal/domain/models"
	pkgkafka "CandleScope/pkg/kafka"
)

// KafkaAlertPublisher ships anomaly findings to a Kafka topic so external
// consumers (pagers, archival jobs) can react to bad market data.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertPublisher wraps a producer for one alert topic.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer, topic: topic}
}

// alertEvent is the wire envelope for one day's findings.
type alertEvent struct {
	Symbol    string           `json:"symbol"`
	Date      string           `json:"date"`
	Findings  []models.Finding `json:"findings"`
	EmittedAt time.Time        `json:"emittedAt"`
}

// PublishFindings emits one event per (symbol, day). The key keeps all
// events for a symbol on one partition, preserving per-symbol ordering.
func (p *KafkaAlertPublisher) PublishFindings(ctx context.Context, symbol, dateKey string, findings []models.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	event := alertEvent{
		Symbol:    symbol,
		Date:      dateKey,
		Findings:  findings,
		EmittedAt: time.Now().UTC(),
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(symbol), event); err != nil {
		return fmt.Errorf("publish findings %s/%s: %w", symbol, dateKey, err)
	}
	return nil
}

// Close flushes and closes the underlying producer.
func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}

// NopAlertPublisher satisfies the interface when alerting is disabled.
type NopAlertPublisher struct{}

func (NopAlertPublisher) PublishFindings(context.Context, string, string, []models.Finding) error {
	return nil
}

func (NopAlertPublisher) Close() error { return nil }
