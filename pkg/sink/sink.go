// Package sink defines the outbound interfaces the pipeline publishes to:
// an append-only audit trail of fills and price changes, and a periodic
// price-history store. The pipeline never blocks on a sink; publishing is
// decoupled through a buffered asynchronous writer.
package sink

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/quantsim/tradesim/pkg/core"
)

// FillRecord is one executed order in the audit trail
type FillRecord struct {
	OrderID      int64     `json:"orderId"`
	TraderID     int32     `json:"traderId"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Price        float64   `json:"price"`
	Quantity     int64     `json:"quantity"`
	ExecutedAt   time.Time `json:"executedAt"`
}

// PriceRecord is one accepted price change in the audit trail
type PriceRecord struct {
	Symbol    string    `json:"symbol"`
	PrevPrice float64   `json:"prevPrice"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	At        time.Time `json:"at"`
}

// AuditSink receives append-only fill and price-change records
type AuditSink interface {
	PublishFill(rec FillRecord) error
	PublishPriceChange(rec PriceRecord) error
	Close() error
}

// HistorySink receives periodic read-only market snapshots
type HistorySink interface {
	AppendSnapshot(views []core.InstrumentView) error
	Close() error
}

// NopAuditSink discards everything, for tests and sink-less runs
type NopAuditSink struct{}

// PublishFill does nothing
func (NopAuditSink) PublishFill(FillRecord) error { return nil }

// PublishPriceChange does nothing
func (NopAuditSink) PublishPriceChange(PriceRecord) error { return nil }

// Close does nothing
func (NopAuditSink) Close() error { return nil }

// NopHistorySink discards everything
type NopHistorySink struct{}

// AppendSnapshot does nothing
func (NopHistorySink) AppendSnapshot([]core.InstrumentView) error { return nil }

// Close does nothing
func (NopHistorySink) Close() error { return nil }

var (
	_ AuditSink   = NopAuditSink{}
	_ HistorySink = NopHistorySink{}
)

type auditEvent struct {
	fill  *FillRecord
	price *PriceRecord
}

// AsyncAuditSink decouples the pipeline from a slow downstream sink. Events
// are buffered and written by a single goroutine; when the buffer is full
// the event is dropped and counted rather than blocking the publisher.
type AsyncAuditSink struct {
	next   AuditSink
	events chan auditEvent
	done   chan struct{}
	logger zerolog.Logger
}

// NewAsyncAuditSink wraps next with a buffer of the given size
func NewAsyncAuditSink(next AuditSink, buffer int, logger zerolog.Logger) *AsyncAuditSink {
	if buffer <= 0 {
		buffer = 256
	}

	s := &AsyncAuditSink{
		next:   next,
		events: make(chan auditEvent, buffer),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "audit-sink").Logger(),
	}
	go s.run()
	return s
}

func (s *AsyncAuditSink) run() {
	defer close(s.done)

	for ev := range s.events {
		var err error
		switch {
		case ev.fill != nil:
			err = s.next.PublishFill(*ev.fill)
		case ev.price != nil:
			err = s.next.PublishPriceChange(*ev.price)
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to publish audit record")
		}
	}
}

func (s *AsyncAuditSink) publish(ev auditEvent) error {
	select {
	case s.events <- ev:
	default:
		s.logger.Warn().Msg("Audit buffer full, dropping record")
	}
	return nil
}

// PublishFill implements AuditSink without blocking
func (s *AsyncAuditSink) PublishFill(rec FillRecord) error {
	return s.publish(auditEvent{fill: &rec})
}

// PublishPriceChange implements AuditSink without blocking
func (s *AsyncAuditSink) PublishPriceChange(rec PriceRecord) error {
	return s.publish(auditEvent{price: &rec})
}

// Close drains buffered events, closes the downstream sink and returns
func (s *AsyncAuditSink) Close() error {
	close(s.events)
	<-s.done
	return s.next.Close()
}

var _ AuditSink = (*AsyncAuditSink)(nil)
