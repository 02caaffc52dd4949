// Package kafka publishes the audit trail to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/quantsim/tradesim/pkg/sink"
)

// AuditSink implements sink.AuditSink using Kafka
type AuditSink struct {
	writer *kafka.Writer
	topic  string
}

// NewAuditSink creates a Kafka-backed audit sink
func NewAuditSink(brokerAddr, topic string) (*AuditSink, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &AuditSink{
		writer: writer,
		topic:  topic,
	}, nil
}

func (k *AuditSink) send(key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send audit record to Kafka: %w", err)
	}

	return nil
}

// PublishFill sends a fill record, keyed by order id
func (k *AuditSink) PublishFill(rec sink.FillRecord) error {
	return k.send(strconv.FormatInt(rec.OrderID, 10), rec)
}

// PublishPriceChange sends a price-change record, keyed by symbol
func (k *AuditSink) PublishPriceChange(rec sink.PriceRecord) error {
	return k.send(rec.Symbol, rec)
}

// Close closes the Kafka writer
func (k *AuditSink) Close() error {
	return k.writer.Close()
}

var _ sink.AuditSink = (*AuditSink)(nil)
