package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/transport"
)

func pairRegistry(priceA, priceB float64) *core.Registry {
	return core.NewRegistry([]core.InstrumentSpec{
		{Symbol: "ITUB4", Sector: "Banking", Price: priceA, Volatility: 0.020},
		{Symbol: "BBAS3", Sector: "Banking", Price: priceB, Volatility: 0.022},
	})
}

func TestSpreadSymmetry(t *testing.T) {
	assert.Equal(t, Spread(25.50, 26.50), Spread(26.50, 25.50))
	assert.InDelta(t, 0.0384615, Spread(25.50, 26.50), 1e-6)
	assert.Zero(t, Spread(0, 0))
}

func TestScanOpensOneOpportunity(t *testing.T) {
	registry := pairRegistry(25.50, 26.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	m := NewMonitor(DefaultConfig(), registry, tr, []Pair{{A: "ITUB4", B: "BBAS3"}})
	m.ScanAll()

	open := m.OpenOpportunities()
	require.Len(t, open, 1)

	opp := open[0]
	buyView, _ := registry.View(opp.BuyInstrumentID)
	sellView, _ := registry.View(opp.SellInstrumentID)
	assert.Equal(t, "ITUB4", buyView.Symbol, "cheaper leg is the buy")
	assert.Equal(t, "BBAS3", sellView.Symbol)
	assert.InDelta(t, 0.0384615, opp.Spread, 1e-6)
	assert.Equal(t, StateOpen, opp.State)

	// Re-scanning while the opportunity is open must not duplicate it
	m.ScanAll()
	m.Scan(opp.BuyInstrumentID)
	assert.Len(t, m.OpenOpportunities(), 1)

	stats := m.StatsSnapshot()
	assert.Equal(t, int64(1), stats.Detected)
	assert.InDelta(t, 0.0384615, stats.LargestSpread, 1e-6)
	assert.InDelta(t, 1.00, stats.PotentialProfit, 1e-9)

	// Signal published for the traders
	msg, st := tr.Recv(transport.EdgeSignals, time.Second)
	require.Equal(t, transport.OK, st)
	sig, err := transport.DecodeSignal(msg)
	require.NoError(t, err)
	assert.Equal(t, opp.BuyInstrumentID, sig.BuyInstrumentID)
	assert.Equal(t, opp.SellInstrumentID, sig.SellInstrumentID)
}

func TestScanIgnoresNarrowSpread(t *testing.T) {
	registry := pairRegistry(25.50, 25.80) // ~1.2%
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	m := NewMonitor(DefaultConfig(), registry, tr, []Pair{{A: "ITUB4", B: "BBAS3"}})
	m.ScanAll()

	assert.Empty(t, m.OpenOpportunities())
	assert.Equal(t, int64(0), m.StatsSnapshot().Detected)
}

func TestExecutionNudgesPricesAndBooksProfit(t *testing.T) {
	registry := pairRegistry(25.50, 26.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	cfg := DefaultConfig()
	cfg.ExecutionEnabled = true
	m := NewMonitor(cfg, registry, tr, []Pair{{A: "ITUB4", B: "BBAS3"}})
	m.ScanAll()

	// Executed immediately, nothing left open
	assert.Empty(t, m.OpenOpportunities())

	stats := m.StatsSnapshot()
	assert.Equal(t, int64(1), stats.Detected)
	assert.Equal(t, int64(1), stats.Executed)

	// 1.00 gross minus 0.1% cost on both legs
	wantProfit := 1.00 - 0.001*(25.50+26.50)
	assert.InDelta(t, wantProfit, stats.RealizedProfit, 1e-9)

	// Cheap leg nudged up, dear leg nudged down
	cheap, _ := registry.View(0)
	dear, _ := registry.View(1)
	assert.InDelta(t, 25.50*1.001, cheap.Price, 1e-9)
	assert.InDelta(t, 26.50*0.999, dear.Price, 1e-9)

	// The executed record survives in the history
	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, StateExecuted, history[0].State)
	assert.Equal(t, int64(1), history[0].ID)
}

func TestExpireStale(t *testing.T) {
	registry := pairRegistry(25.50, 26.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	m := NewMonitor(DefaultConfig(), registry, tr, []Pair{{A: "ITUB4", B: "BBAS3"}})
	m.ScanAll()
	require.Len(t, m.OpenOpportunities(), 1)

	// Not yet stale
	m.ExpireStale(time.Now().Add(30 * time.Second))
	assert.Len(t, m.OpenOpportunities(), 1)

	m.ExpireStale(time.Now().Add(61 * time.Second))
	assert.Empty(t, m.OpenOpportunities())
	assert.Equal(t, int64(1), m.StatsSnapshot().Expired)

	// The expired record survives in the history
	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, StateExpired, history[0].State)
	assert.InDelta(t, 0.0384615, history[0].Spread, 1e-6)

	// The pair can trigger again after expiry
	m.ScanAll()
	assert.Len(t, m.OpenOpportunities(), 1)
	assert.Equal(t, int64(2), m.StatsSnapshot().Detected)
	assert.Len(t, m.History(), 1)
}

func TestHistoryBounded(t *testing.T) {
	registry := pairRegistry(25.50, 26.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	m := NewMonitor(DefaultConfig(), registry, tr, []Pair{{A: "ITUB4", B: "BBAS3"}})

	// The spread never narrows, so every scan reopens the pair
	for i := 0; i < maxHistory+10; i++ {
		m.ScanAll()
		m.ExpireStale(time.Now().Add(61 * time.Second))
	}

	history := m.History()
	require.Len(t, history, maxHistory)

	// Oldest records dropped first
	assert.Equal(t, int64(11), history[0].ID)
	assert.Equal(t, int64(maxHistory+10), history[len(history)-1].ID)
}

func TestConvergenceClosesOpportunity(t *testing.T) {
	registry := pairRegistry(25.50, 26.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	m := NewMonitor(DefaultConfig(), registry, tr, []Pair{{A: "ITUB4", B: "BBAS3"}})
	m.ScanAll()
	require.Len(t, m.OpenOpportunities(), 1)

	// Prices converge below the threshold
	_, _, err := registry.UpdatePrice(1, func(cur core.InstrumentView) (float64, bool) {
		return 25.60, true
	})
	require.NoError(t, err)

	m.Scan(1)
	assert.Empty(t, m.OpenOpportunities())
	assert.Equal(t, int64(1), m.StatsSnapshot().Expired)

	history := m.History()
	require.Len(t, history, 1)
	assert.Equal(t, StateExpired, history[0].State)
}

func TestSectorPairsDefault(t *testing.T) {
	registry := core.NewRegistry([]core.InstrumentSpec{
		{Symbol: "ITUB4", Sector: "Banking", Price: 32.15, Volatility: 0.020},
		{Symbol: "BBAS3", Sector: "Banking", Price: 45.80, Volatility: 0.022},
		{Symbol: "BBDC4", Sector: "Banking", Price: 15.80, Volatility: 0.028},
		{Symbol: "PETR4", Sector: "Oil", Price: 25.50, Volatility: 0.025},
	})
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	m := NewMonitor(DefaultConfig(), registry, tr, nil)

	// Three banking combinations, the lone oil name pairs with nothing
	assert.Len(t, m.pairs, 3)
	for _, p := range m.pairs {
		assert.Equal(t, "Banking", p.sector)
	}
}
