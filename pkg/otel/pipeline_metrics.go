package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// pipelineMetrics holds the singleton instance
	pipelineMetrics     *PipelineMetrics
	pipelineMetricsOnce sync.Once
	// meter is the global meter for pipeline metrics
	meter = otel.GetMeterProvider().Meter(instrumentationName)
)

// PipelineMetrics holds metrics for pipeline operations
type PipelineMetrics struct {
	// Tracks the total number of executed orders by side (buy, sell)
	executedOrdersTotal metric.Int64Counter
	// Tracks the total number of rejected orders by reason
	rejectedOrdersTotal metric.Int64Counter
	// Tracks the total number of price updates applied
	priceUpdatesTotal metric.Int64Counter
	// Tracks the total number of arbitrage opportunities detected
	opportunitiesTotal metric.Int64Counter
}

// GetPipelineMetrics returns the PipelineMetrics singleton. Every stage
// worker calls this on its first event, so initialization runs under a
// sync.Once; counters that fail to build stay nil and their record methods
// are no-ops.
func GetPipelineMetrics() *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = &PipelineMetrics{}

		executedOrdersTotal, err := meter.Int64Counter(
			"pipeline.executed_orders.total",
			metric.WithDescription("Total number of orders executed"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return
		}

		rejectedOrdersTotal, err := meter.Int64Counter(
			"pipeline.rejected_orders.total",
			metric.WithDescription("Total number of orders rejected"),
			metric.WithUnit("{order}"),
		)
		if err != nil {
			return
		}

		priceUpdatesTotal, err := meter.Int64Counter(
			"pipeline.price_updates.total",
			metric.WithDescription("Total number of price updates applied"),
			metric.WithUnit("{update}"),
		)
		if err != nil {
			return
		}

		opportunitiesTotal, err := meter.Int64Counter(
			"pipeline.arbitrage_opportunities.total",
			metric.WithDescription("Total number of arbitrage opportunities detected"),
			metric.WithUnit("{opportunity}"),
		)
		if err != nil {
			return
		}

		pipelineMetrics.executedOrdersTotal = executedOrdersTotal
		pipelineMetrics.rejectedOrdersTotal = rejectedOrdersTotal
		pipelineMetrics.priceUpdatesTotal = priceUpdatesTotal
		pipelineMetrics.opportunitiesTotal = opportunitiesTotal
	})

	return pipelineMetrics
}

// RecordExecutedOrder increments the executed orders counter
func (m *PipelineMetrics) RecordExecutedOrder(ctx context.Context, side string) {
	if m.executedOrdersTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("order.side", side),
	}
	m.executedOrdersTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRejectedOrder increments the rejected orders counter
func (m *PipelineMetrics) RecordRejectedOrder(ctx context.Context, reason string) {
	if m.rejectedOrdersTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("order.reject_reason", reason),
	}
	m.rejectedOrdersTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPriceUpdate increments the price updates counter
func (m *PipelineMetrics) RecordPriceUpdate(ctx context.Context, symbol string) {
	if m.priceUpdatesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("instrument.symbol", symbol),
	}
	m.priceUpdatesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOpportunity increments the arbitrage opportunities counter
func (m *PipelineMetrics) RecordOpportunity(ctx context.Context, sector string) {
	if m.opportunitiesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("instrument.sector", sector),
	}
	m.opportunitiesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
