package metrics

import "sync/atomic"

// SessionCounters accumulates monotonically over one simulation run. All
// counters are updated atomically and safe for concurrent use.
type SessionCounters struct {
	ordersSubmitted int64
	ordersProcessed int64
	ordersAccepted  int64
	ordersRejected  int64
	recvTimeouts    int64
	priceUpdates    int64
	priceRejections int64
}

// CountersSnapshot is a point-in-time copy of the session counters
type CountersSnapshot struct {
	OrdersSubmitted int64
	OrdersProcessed int64
	OrdersAccepted  int64
	OrdersRejected  int64
	RecvTimeouts    int64
	PriceUpdates    int64
	PriceRejections int64
}

// AcceptanceRate returns accepted/processed, or 0 when nothing was processed
func (s CountersSnapshot) AcceptanceRate() float64 {
	if s.OrdersProcessed == 0 {
		return 0
	}
	return float64(s.OrdersAccepted) / float64(s.OrdersProcessed)
}

// OrderSubmitted counts one order entering the pipeline
func (c *SessionCounters) OrderSubmitted() { atomic.AddInt64(&c.ordersSubmitted, 1) }

// OrderAccepted counts one executed order
func (c *SessionCounters) OrderAccepted() {
	atomic.AddInt64(&c.ordersProcessed, 1)
	atomic.AddInt64(&c.ordersAccepted, 1)
}

// OrderRejected counts one cancelled order
func (c *SessionCounters) OrderRejected() {
	atomic.AddInt64(&c.ordersProcessed, 1)
	atomic.AddInt64(&c.ordersRejected, 1)
}

// RecvTimeout counts one idle poll interval
func (c *SessionCounters) RecvTimeout() { atomic.AddInt64(&c.recvTimeouts, 1) }

// PriceUpdated counts one accepted price change
func (c *SessionCounters) PriceUpdated() { atomic.AddInt64(&c.priceUpdates, 1) }

// PriceRejected counts one discarded price candidate
func (c *SessionCounters) PriceRejected() { atomic.AddInt64(&c.priceRejections, 1) }

// Snapshot returns a consistent-enough copy for reporting
func (c *SessionCounters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		OrdersSubmitted: atomic.LoadInt64(&c.ordersSubmitted),
		OrdersProcessed: atomic.LoadInt64(&c.ordersProcessed),
		OrdersAccepted:  atomic.LoadInt64(&c.ordersAccepted),
		OrdersRejected:  atomic.LoadInt64(&c.ordersRejected),
		RecvTimeouts:    atomic.LoadInt64(&c.recvTimeouts),
		PriceUpdates:    atomic.LoadInt64(&c.priceUpdates),
		PriceRejections: atomic.LoadInt64(&c.priceRejections),
	}
}
