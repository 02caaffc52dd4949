// Package pipeline implements the staged order-processing pipeline: the
// execution stage validating and settling orders, the price-update stage
// folding fills into instrument prices, and the supervisor that runs the
// stages and sequences shutdown. Stage logic is substrate-agnostic; the
// same stages run over the shared queue or the envelope transport.
package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/logging"
	"github.com/quantsim/tradesim/pkg/metrics"
	"github.com/quantsim/tradesim/pkg/otel"
	"github.com/quantsim/tradesim/pkg/sink"
	"github.com/quantsim/tradesim/pkg/transport"
)

// ExecutorConfig tunes the execution stage's validation chain
type ExecutorConfig struct {
	// MinQuantity and MaxQuantity bound accepted order sizes
	MinQuantity int64
	MaxQuantity int64
	// MaxPriceDrift is the largest relative distance between the order's
	// limit price and the current market price
	MaxPriceDrift float64
	// MaxVolatility rejects orders on instruments whose volatility score
	// exceeds this bound
	MaxVolatility float64
	// DeskRejectionRate is the probability of a random desk rejection
	DeskRejectionRate float64
	// MinLatency and MaxLatency bound the simulated execution delay.
	// Both zero disables the delay.
	MinLatency time.Duration
	MaxLatency time.Duration
}

// DefaultExecutorConfig returns the standard validation parameters
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MinQuantity:       10,
		MaxQuantity:       10000,
		MaxPriceDrift:     0.05,
		MaxVolatility:     0.15,
		DeskRejectionRate: 0.05,
		MinLatency:        50 * time.Millisecond,
		MaxLatency:        200 * time.Millisecond,
	}
}

// Executor is the execution stage. It validates each pending order against
// market state, settles accepted ones against the ledger and forwards the
// resulting fills downstream. Validation reads snapshots only; locks are
// taken solely inside the settlement commit and never held across the
// simulated latency.
type Executor struct {
	cfg      ExecutorConfig
	market   *core.Market
	source   OrderSource
	tr       transport.Transport
	audit    sink.AuditSink
	counters *metrics.SessionCounters
	latency  *metrics.LatencyRecorder
	rng      *rand.Rand
	results  func(core.Order)
	logger   zerolog.Logger
}

// NewExecutor creates an execution stage worker
func NewExecutor(cfg ExecutorConfig, market *core.Market, source OrderSource, tr transport.Transport, audit sink.AuditSink, counters *metrics.SessionCounters, latency *metrics.LatencyRecorder, rng *rand.Rand) *Executor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if audit == nil {
		audit = sink.NopAuditSink{}
	}

	return &Executor{
		cfg:      cfg,
		market:   market,
		source:   source,
		tr:       tr,
		audit:    audit,
		counters: counters,
		latency:  latency,
		rng:      rng,
		logger:   logging.ForWorker("executor", 0),
	}
}

// OnResult registers a callback invoked with every order after it reaches a
// terminal status, used by trading agents to observe outcomes.
func (e *Executor) OnResult(fn func(core.Order)) {
	e.results = fn
}

// Run consumes orders until the source closes, then propagates shutdown to
// the price-update stage.
func (e *Executor) Run(ctx context.Context) error {
	defer e.sendDownstream(transport.NewShutdown(transport.StageExecutor))

	for {
		o, err := e.source.Next(ctx)
		if errors.Is(err, ErrSourceClosed) {
			e.logger.Info().Msg("Order source closed, executor stopping")
			return nil
		}
		if err != nil {
			return err
		}

		start := time.Now()
		fill, ok := e.Process(&o)
		if e.latency != nil {
			e.latency.Record("executor", time.Since(start))
		}

		if ok {
			e.forwardFill(fill)
		}

		if e.results != nil {
			e.results(o)
		}
	}
}

// Process runs the validation chain and settlement for one order, leaving it
// in a terminal status. On success the resulting fill is returned.
func (e *Executor) Process(o *core.Order) (core.Fill, bool) {
	if e.counters != nil {
		e.counters.OrderSubmitted()
	}

	if reason, ok := e.validate(o); !ok {
		e.reject(o, reason)
		return core.Fill{}, false
	}

	e.simulateLatency()

	fill := core.Fill{
		OrderID:      o.ID(),
		TraderID:     o.TraderID(),
		InstrumentID: o.InstrumentID(),
		Side:         o.Side(),
		Price:        o.Price(),
		Quantity:     o.Quantity(),
		ExecutedAt:   time.Now(),
	}

	// Funds and holdings are re-verified under the account lock here; the
	// snapshot checks above are advisory only.
	if err := e.market.CommitFill(fill); err != nil {
		e.reject(o, settleReason(err))
		return core.Fill{}, false
	}

	if err := o.Execute(); err != nil {
		e.logger.Error().Err(err).Int64("order", o.ID()).Msg("Failed to mark order executed")
		return core.Fill{}, false
	}

	if e.counters != nil {
		e.counters.OrderAccepted()
	}
	otel.GetPipelineMetrics().RecordExecutedOrder(context.Background(), o.Side().String())

	e.logger.Debug().
		Int64("order", o.ID()).
		Int32("trader", o.TraderID()).
		Int32("instrument", o.InstrumentID()).
		Str("side", o.Side().String()).
		Float64("price", o.Price()).
		Int64("quantity", o.Quantity()).
		Msg("Order executed")

	return fill, true
}

// validate applies every pre-settlement check in order and returns the first
// failing reason.
func (e *Executor) validate(o *core.Order) (string, bool) {
	if o.Side() != core.Buy && o.Side() != core.Sell {
		return core.ReasonInvalidSide, false
	}
	if !e.market.Ledger.Has(o.TraderID()) {
		return core.ReasonUnknownTrader, false
	}

	view, err := e.market.Registry.View(o.InstrumentID())
	if err != nil {
		return core.ReasonUnknownInstrument, false
	}

	if drift := math.Abs(o.Price()-view.Price) / view.Price; drift > e.cfg.MaxPriceDrift {
		return core.ReasonStalePrice, false
	}

	if view.VolatilityScore() > e.cfg.MaxVolatility {
		return core.ReasonVolatility, false
	}

	if o.Quantity() < e.cfg.MinQuantity {
		return core.ReasonQuantityBelowMin, false
	}
	if o.Quantity() > e.cfg.MaxQuantity {
		return core.ReasonQuantityAboveMax, false
	}

	acct, err := e.market.Ledger.View(o.TraderID())
	if err != nil {
		return core.ReasonUnknownTrader, false
	}

	switch o.Side() {
	case core.Buy:
		if acct.Balance.LessThan(core.Cost(o.Price(), o.Quantity())) {
			return core.ReasonInsufficientFunds, false
		}
	case core.Sell:
		if acct.Holdings[o.InstrumentID()] < o.Quantity() {
			return core.ReasonInsufficientHoldings, false
		}
	}

	if e.cfg.DeskRejectionRate > 0 && e.rng.Float64() < e.cfg.DeskRejectionRate {
		return core.ReasonDeskRejection, false
	}

	return "", true
}

func (e *Executor) reject(o *core.Order, reason string) {
	if err := o.Cancel(reason); err != nil {
		e.logger.Error().Err(err).Int64("order", o.ID()).Msg("Failed to cancel order")
		return
	}

	if e.counters != nil {
		e.counters.OrderRejected()
	}
	otel.GetPipelineMetrics().RecordRejectedOrder(context.Background(), reason)

	e.logger.Debug().
		Int64("order", o.ID()).
		Int32("trader", o.TraderID()).
		Str("reason", reason).
		Msg("Order rejected")
}

func (e *Executor) simulateLatency() {
	if e.cfg.MaxLatency <= 0 {
		return
	}

	d := e.cfg.MinLatency
	if span := e.cfg.MaxLatency - e.cfg.MinLatency; span > 0 {
		d += time.Duration(e.rng.Int63n(int64(span)))
	}
	time.Sleep(d)
}

// forwardFill sends the fill to the price-update stage and publishes it to
// the audit trail. A persistently full fills edge backpressures the executor.
func (e *Executor) forwardFill(f core.Fill) {
	e.sendDownstream(transport.EncodeFill(f))

	view, err := e.market.Registry.View(f.InstrumentID)
	if err != nil {
		return
	}

	if err := e.audit.PublishFill(sink.FillRecord{
		OrderID:    f.OrderID,
		TraderID:   f.TraderID,
		Symbol:     view.Symbol,
		Side:       f.Side.String(),
		Price:      f.Price,
		Quantity:   f.Quantity,
		ExecutedAt: f.ExecutedAt,
	}); err != nil {
		e.logger.Error().Err(err).Msg("Failed to publish fill record")
	}
}

func (e *Executor) sendDownstream(m transport.Message) {
	for {
		switch st := e.tr.Send(transport.EdgeFills, m); st {
		case transport.OK:
			return
		case transport.WouldBlock:
			time.Sleep(5 * time.Millisecond)
		default:
			e.logger.Warn().Str("status", st.String()).Msg("Fills edge unavailable")
			return
		}
	}
}

func settleReason(err error) string {
	switch {
	case errors.Is(err, core.ErrInsufficientFunds):
		return core.ReasonInsufficientFunds
	case errors.Is(err, core.ErrInsufficientHoldings):
		return core.ReasonInsufficientHoldings
	case errors.Is(err, core.ErrUnknownTrader):
		return core.ReasonUnknownTrader
	case errors.Is(err, core.ErrUnknownInstrument):
		return core.ReasonUnknownInstrument
	default:
		return err.Error()
	}
}
