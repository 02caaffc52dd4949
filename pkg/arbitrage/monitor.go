// Package arbitrage watches related instruments for price divergence. When
// the relative spread of a watched pair exceeds the threshold, the monitor
// records an opportunity, signals the trading agents and can optionally act
// on it, nudging both prices back toward each other.
package arbitrage

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/otel"
	"github.com/quantsim/tradesim/pkg/transport"
)

// Config tunes the arbitrage monitor
type Config struct {
	// SpreadThreshold is the minimum relative spread that opens an
	// opportunity
	SpreadThreshold float64
	// Expiry is how long an open opportunity stays actionable
	Expiry time.Duration
	// ExecutionEnabled lets the monitor act on opportunities instead of
	// only recording them
	ExecutionEnabled bool
	// NudgeFraction is the relative price correction applied to each leg
	// when an opportunity is executed
	NudgeFraction float64
	// TransactionCost is the relative cost charged per executed leg
	TransactionCost float64
	// Poll is the receive timeout between expiry sweeps
	Poll time.Duration
}

// DefaultConfig returns the standard monitor parameters
func DefaultConfig() Config {
	return Config{
		SpreadThreshold: 0.02,
		Expiry:          60 * time.Second,
		NudgeFraction:   0.001,
		TransactionCost: 0.001,
		Poll:            100 * time.Millisecond,
	}
}

// Pair names two instruments expected to track each other
type Pair struct {
	A string
	B string
}

// State is an opportunity's lifecycle state
type State int

// Opportunity states
const (
	StateOpen State = iota
	StateExecuted
	StateExpired
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateExecuted:
		return "EXECUTED"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Opportunity is one detected price divergence. Buy names the cheaper leg,
// Sell the dearer one.
type Opportunity struct {
	ID               int64
	BuyInstrumentID  int32
	SellInstrumentID int32
	BuyPrice         float64
	SellPrice        float64
	Spread           float64
	DetectedAt       time.Time
	State            State
}

// Stats aggregates the monitor's session counters. Profit figures are per
// unit of the traded pair; potential is gross spread, realized nets out the
// transaction cost on both legs.
type Stats struct {
	Detected        int64
	Executed        int64
	Expired         int64
	LargestSpread   float64
	PotentialProfit float64
	RealizedProfit  float64
}

// maxHistory bounds the retained record of resolved opportunities
const maxHistory = 256

type watchedPair struct {
	aID    int32
	bID    int32
	sector string
}

// Monitor is the arbitrage stage. All opportunity and stats state is guarded
// by a single mutex; the registry is only ever read through snapshots or the
// atomic update path.
type Monitor struct {
	cfg      Config
	registry *core.Registry
	tr       transport.Transport
	pairs    []watchedPair

	mu      sync.Mutex
	open    map[[2]int32]*Opportunity
	history []Opportunity
	stats   Stats
	nextID  int64

	logger zerolog.Logger
}

// NewMonitor creates a Monitor watching the given pairs. Pairs naming
// unknown symbols are skipped. A nil or empty pair list watches every
// same-sector combination in the registry.
func NewMonitor(cfg Config, registry *core.Registry, tr transport.Transport, pairs []Pair) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		registry: registry,
		tr:       tr,
		open:     make(map[[2]int32]*Opportunity),
		logger:   log.With().Str("component", "arbitrage").Logger(),
	}

	if len(pairs) == 0 {
		m.pairs = sectorPairs(registry)
		return m
	}

	for _, p := range pairs {
		aID, okA := registry.Lookup(p.A)
		bID, okB := registry.Lookup(p.B)
		if !okA || !okB || aID == bID {
			m.logger.Warn().Str("a", p.A).Str("b", p.B).Msg("Skipping unknown pair")
			continue
		}

		view, _ := registry.View(aID)
		m.pairs = append(m.pairs, watchedPair{aID: aID, bID: bID, sector: view.Sector})
	}

	return m
}

// sectorPairs derives the default watch list: every pair of instruments
// sharing a sector.
func sectorPairs(registry *core.Registry) []watchedPair {
	views := registry.Views()

	var pairs []watchedPair
	for i := 0; i < len(views); i++ {
		for j := i + 1; j < len(views); j++ {
			if views[i].Sector != views[j].Sector {
				continue
			}
			pairs = append(pairs, watchedPair{
				aID:    views[i].ID,
				bID:    views[j].ID,
				sector: views[i].Sector,
			})
		}
	}
	return pairs
}

// Run consumes price changes until shutdown arrives from the price-update
// stage, expiring stale opportunities between messages.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.sendSignalEdge(transport.NewShutdown(transport.StageArbitrage))

	for {
		if ctx.Err() != nil {
			m.logger.Info().Msg("Context cancelled, arbitrage monitor stopping")
			return nil
		}

		msg, st := m.tr.Recv(transport.EdgePrices, m.cfg.Poll)
		switch st {
		case transport.OK:
			if msg.Kind == transport.KindControl && msg.IntPayload == transport.ControlShutdown {
				m.logger.Info().Msg("Shutdown received, arbitrage monitor stopping")
				return nil
			}

			pc, err := transport.DecodePriceChange(msg)
			if err != nil {
				m.logger.Warn().Err(err).Msg("Dropping malformed price envelope")
				continue
			}
			m.Scan(pc.InstrumentID)

		case transport.Timeout:

		case transport.Closed:
			m.logger.Info().Msg("Prices edge closed, arbitrage monitor stopping")
			return nil

		default:
			m.logger.Error().Str("status", st.String()).Msg("Prices edge failed")
			return nil
		}

		m.ExpireStale(time.Now())
	}
}

// Spread returns the relative spread between two prices: their absolute
// difference over their mean. Symmetric in its arguments.
func Spread(a, b float64) float64 {
	mean := (a + b) / 2
	if mean <= 0 {
		return 0
	}
	return math.Abs(a-b) / mean
}

// Scan re-evaluates every watched pair involving the given instrument and
// opens an opportunity where the spread exceeds the threshold. At most one
// opportunity per pair is open at a time.
func (m *Monitor) Scan(instrumentID int32) {
	for _, p := range m.pairs {
		if p.aID != instrumentID && p.bID != instrumentID {
			continue
		}
		m.evaluate(p)
	}
}

// ScanAll re-evaluates every watched pair
func (m *Monitor) ScanAll() {
	for _, p := range m.pairs {
		m.evaluate(p)
	}
}

func (m *Monitor) evaluate(p watchedPair) {
	va, errA := m.registry.View(p.aID)
	vb, errB := m.registry.View(p.bID)
	if errA != nil || errB != nil {
		return
	}

	spread := Spread(va.Price, vb.Price)
	key := pairKey(p.aID, p.bID)

	m.mu.Lock()

	if spread < m.cfg.SpreadThreshold {
		// Converged before anyone acted
		if opp, ok := m.open[key]; ok {
			m.retireLocked(key, opp, StateExpired)
			m.stats.Expired++
		}
		m.mu.Unlock()
		return
	}

	if _, ok := m.open[key]; ok {
		m.mu.Unlock()
		return
	}

	buy, sell := va, vb
	if vb.Price < va.Price {
		buy, sell = vb, va
	}

	m.nextID++
	opp := &Opportunity{
		ID:               m.nextID,
		BuyInstrumentID:  buy.ID,
		SellInstrumentID: sell.ID,
		BuyPrice:         buy.Price,
		SellPrice:        sell.Price,
		Spread:           spread,
		DetectedAt:       time.Now(),
		State:            StateOpen,
	}
	m.open[key] = opp

	m.stats.Detected++
	if spread > m.stats.LargestSpread {
		m.stats.LargestSpread = spread
	}
	m.stats.PotentialProfit += sell.Price - buy.Price

	m.mu.Unlock()

	otel.GetPipelineMetrics().RecordOpportunity(context.Background(), p.sector)

	m.logger.Info().
		Str("buy", buy.Symbol).
		Str("sell", sell.Symbol).
		Float64("spread", spread).
		Msg("Arbitrage opportunity detected")

	m.sendSignalEdge(transport.EncodeSignal(transport.Signal{
		BuyInstrumentID:  buy.ID,
		SellInstrumentID: sell.ID,
		Spread:           spread,
		At:               opp.DetectedAt,
	}))

	if m.cfg.ExecutionEnabled {
		m.execute(key, opp)
	}
}

// execute acts on an open opportunity: the cheap leg is nudged up and the
// dear leg down, modelling the monitor's own trades moving the market. The
// realized profit nets the transaction cost on both legs.
func (m *Monitor) execute(key [2]int32, opp *Opportunity) {
	_, _, errBuy := m.registry.UpdatePrice(opp.BuyInstrumentID, func(cur core.InstrumentView) (float64, bool) {
		return cur.Price * (1 + m.cfg.NudgeFraction), true
	})
	_, _, errSell := m.registry.UpdatePrice(opp.SellInstrumentID, func(cur core.InstrumentView) (float64, bool) {
		return cur.Price * (1 - m.cfg.NudgeFraction), true
	})
	if errBuy != nil || errSell != nil {
		return
	}

	gross := opp.SellPrice - opp.BuyPrice
	cost := m.cfg.TransactionCost * (opp.SellPrice + opp.BuyPrice)

	m.mu.Lock()
	m.retireLocked(key, opp, StateExecuted)
	m.stats.Executed++
	m.stats.RealizedProfit += gross - cost
	m.mu.Unlock()

	m.logger.Info().
		Int64("opportunity", opp.ID).
		Float64("profit", gross-cost).
		Msg("Arbitrage opportunity executed")
}

// ExpireStale marks open opportunities older than the expiry window as
// expired and moves them into the history.
func (m *Monitor) ExpireStale(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, opp := range m.open {
		if now.Sub(opp.DetectedAt) < m.cfg.Expiry {
			continue
		}
		m.retireLocked(key, opp, StateExpired)
		m.stats.Expired++
	}
}

// retireLocked moves a resolved opportunity out of the open set into the
// bounded history. Caller holds m.mu.
func (m *Monitor) retireLocked(key [2]int32, opp *Opportunity, state State) {
	opp.State = state
	m.history = append(m.history, *opp)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	delete(m.open, key)
}

// OpenOpportunities returns copies of the currently open opportunities
func (m *Monitor) OpenOpportunities() []Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Opportunity, 0, len(m.open))
	for _, opp := range m.open {
		out = append(out, *opp)
	}
	return out
}

// History returns copies of resolved opportunities, oldest first. Records
// past the retention bound are dropped oldest-first.
func (m *Monitor) History() []Opportunity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Opportunity, len(m.history))
	copy(out, m.history)
	return out
}

// StatsSnapshot returns a copy of the session stats
func (m *Monitor) StatsSnapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Monitor) sendSignalEdge(msg transport.Message) {
	switch st := m.tr.Send(transport.EdgeSignals, msg); st {
	case transport.OK, transport.WouldBlock:
		// Signals are advisory; a full edge drops them
	default:
		m.logger.Debug().Str("status", st.String()).Msg("Signals edge unavailable")
	}
}

func pairKey(a, b int32) [2]int32 {
	if a > b {
		a, b = b, a
	}
	return [2]int32{a, b}
}
