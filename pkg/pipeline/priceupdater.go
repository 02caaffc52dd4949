package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/logging"
	"github.com/quantsim/tradesim/pkg/marketdata"
	"github.com/quantsim/tradesim/pkg/metrics"
	"github.com/quantsim/tradesim/pkg/otel"
	"github.com/quantsim/tradesim/pkg/sink"
	"github.com/quantsim/tradesim/pkg/transport"
)

// Weighted blend of fill price into the current price. The fill's weight
// grows with its volume, the current price's weight shrinks with it.
const (
	fillWeightBase = 0.7
	curWeightBase  = 0.3
)

// PriceUpdaterConfig tunes the price-update stage
type PriceUpdaterConfig struct {
	// FloorPrice and CeilingPrice bound every accepted price
	FloorPrice   float64
	CeilingPrice float64
	// MaxStep is the largest accepted relative move in one update
	MaxStep float64
	// DriftInterval is how often idle drift is applied to every instrument.
	// Zero disables drift.
	DriftInterval time.Duration
	// SnapshotInterval is how often the full market state is appended to the
	// history sink. Zero disables snapshots.
	SnapshotInterval time.Duration
	// Poll is the receive timeout used between housekeeping passes
	Poll time.Duration
}

// DefaultPriceUpdaterConfig returns the standard price-update parameters
func DefaultPriceUpdaterConfig() PriceUpdaterConfig {
	return PriceUpdaterConfig{
		FloorPrice:       0.50,
		CeilingPrice:     1000.00,
		MaxStep:          0.20,
		DriftInterval:    time.Second,
		SnapshotInterval: 5 * time.Second,
		Poll:             50 * time.Millisecond,
	}
}

// PriceUpdater is the price-update stage. It folds each fill into its
// instrument's price through a volume-weighted blend, applies periodic
// random drift while idle, and forwards accepted changes to the arbitrage
// monitor.
type PriceUpdater struct {
	cfg      PriceUpdaterConfig
	registry *core.Registry
	tr       transport.Transport
	audit    sink.AuditSink
	history  sink.HistorySink
	counters *metrics.SessionCounters
	latency  *metrics.LatencyRecorder
	drifter  marketdata.Drifter
	logger   zerolog.Logger
}

// NewPriceUpdater creates a price-update stage worker
func NewPriceUpdater(cfg PriceUpdaterConfig, registry *core.Registry, tr transport.Transport, audit sink.AuditSink, history sink.HistorySink, counters *metrics.SessionCounters, latency *metrics.LatencyRecorder, drifter marketdata.Drifter) *PriceUpdater {
	if cfg.Poll <= 0 {
		cfg.Poll = 50 * time.Millisecond
	}
	if audit == nil {
		audit = sink.NopAuditSink{}
	}
	if history == nil {
		history = sink.NopHistorySink{}
	}

	return &PriceUpdater{
		cfg:      cfg,
		registry: registry,
		tr:       tr,
		audit:    audit,
		history:  history,
		counters: counters,
		latency:  latency,
		drifter:  drifter,
		logger:   logging.ForWorker("price-updater", 0),
	}
}

// Run consumes fills until shutdown arrives from the execution stage, then
// propagates shutdown to the arbitrage monitor.
func (u *PriceUpdater) Run(ctx context.Context) error {
	defer u.sendDownstream(transport.NewShutdown(transport.StagePriceUpdater))

	lastDrift := time.Now()
	lastSnapshot := time.Now()

	for {
		if ctx.Err() != nil {
			u.logger.Info().Msg("Context cancelled, price updater stopping")
			return nil
		}

		m, st := u.tr.Recv(transport.EdgeFills, u.cfg.Poll)
		switch st {
		case transport.OK:
			if m.Kind == transport.KindControl && m.IntPayload == transport.ControlShutdown {
				u.logger.Info().Msg("Shutdown received, price updater stopping")
				return nil
			}

			fill, err := transport.DecodeFill(m)
			if err != nil {
				u.logger.Warn().Err(err).Msg("Dropping malformed fill envelope")
				continue
			}

			start := time.Now()
			u.ApplyFill(fill)
			if u.latency != nil {
				u.latency.Record("price-updater", time.Since(start))
			}

		case transport.Timeout:
			if u.counters != nil {
				u.counters.RecvTimeout()
			}

		case transport.Closed:
			u.logger.Info().Msg("Fills edge closed, price updater stopping")
			return nil

		default:
			u.logger.Error().Str("status", st.String()).Msg("Fills edge failed")
			return nil
		}

		now := time.Now()
		if u.cfg.DriftInterval > 0 && u.drifter != nil && now.Sub(lastDrift) >= u.cfg.DriftInterval {
			u.applyDrift()
			lastDrift = now
		}
		if u.cfg.SnapshotInterval > 0 && now.Sub(lastSnapshot) >= u.cfg.SnapshotInterval {
			if err := u.history.AppendSnapshot(u.registry.Views()); err != nil {
				u.logger.Error().Err(err).Msg("Failed to append history snapshot")
			}
			lastSnapshot = now
		}
	}
}

// ApplyFill folds one fill into its instrument's price. The candidate is a
// volume-weighted blend of the fill price and the current price, validated
// against the floor, ceiling and maximum step before it is applied.
func (u *PriceUpdater) ApplyFill(f core.Fill) {
	view, accepted, err := u.registry.UpdatePrice(f.InstrumentID, func(cur core.InstrumentView) (float64, bool) {
		candidate := blendPrice(cur.Price, f.Price, f.Quantity)
		return candidate, u.valid(cur.Price, candidate)
	})
	if err != nil {
		u.logger.Warn().Err(err).Int32("instrument", f.InstrumentID).Msg("Fill for unknown instrument")
		return
	}

	if !accepted {
		if u.counters != nil {
			u.counters.PriceRejected()
		}
		u.logger.Debug().
			Str("symbol", view.Symbol).
			Float64("fillPrice", f.Price).
			Float64("price", view.Price).
			Msg("Price candidate rejected")
		return
	}

	u.accepted(view)
}

// blendPrice computes the weighted average of the fill price and the current
// price. Larger fills pull the price harder toward the traded level.
func blendPrice(current, fillPrice float64, quantity int64) float64 {
	vw := float64(quantity) / 1000.0
	if vw > 1 {
		vw = 1
	}

	fillWeight := fillWeightBase * (0.5 + 0.5*vw)
	curWeight := curWeightBase * (1 - 0.3*vw)

	return (fillWeight*fillPrice + curWeight*current) / (fillWeight + curWeight)
}

// valid applies the price sanity bounds
func (u *PriceUpdater) valid(current, candidate float64) bool {
	if candidate < u.cfg.FloorPrice || candidate > u.cfg.CeilingPrice {
		return false
	}
	if current > 0 && math.Abs(candidate-current)/current > u.cfg.MaxStep {
		return false
	}
	return true
}

// applyDrift perturbs every instrument once, simulating background market
// movement independent of order flow.
func (u *PriceUpdater) applyDrift() {
	for _, v := range u.registry.Views() {
		view, accepted, err := u.registry.UpdatePrice(v.ID, func(cur core.InstrumentView) (float64, bool) {
			candidate := u.drifter.Perturb(cur)
			return candidate, u.valid(cur.Price, candidate)
		})
		if err != nil || !accepted {
			continue
		}

		u.accepted(view)
	}
}

// accepted records an applied price change and forwards it downstream
func (u *PriceUpdater) accepted(view core.InstrumentView) {
	if u.counters != nil {
		u.counters.PriceUpdated()
	}
	otel.GetPipelineMetrics().RecordPriceUpdate(context.Background(), view.Symbol)

	if err := u.audit.PublishPriceChange(sink.PriceRecord{
		Symbol:    view.Symbol,
		PrevPrice: view.PrevPrice,
		Price:     view.Price,
		Change:    view.Change,
		At:        time.Now(),
	}); err != nil {
		u.logger.Error().Err(err).Msg("Failed to publish price record")
	}

	u.sendDownstream(transport.EncodePriceChange(transport.PriceChange{
		InstrumentID: view.ID,
		Price:        view.Price,
		At:           time.Now(),
	}))
}

func (u *PriceUpdater) sendDownstream(m transport.Message) {
	for {
		switch st := u.tr.Send(transport.EdgePrices, m); st {
		case transport.OK:
			return
		case transport.WouldBlock:
			time.Sleep(5 * time.Millisecond)
		default:
			u.logger.Warn().Str("status", st.String()).Msg("Prices edge unavailable")
			return
		}
	}
}
