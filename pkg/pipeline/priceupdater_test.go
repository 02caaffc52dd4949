package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/metrics"
	"github.com/quantsim/tradesim/pkg/transport"
)

func testRegistry(price float64) *core.Registry {
	return core.NewRegistry([]core.InstrumentSpec{
		{Symbol: "PETR4", Sector: "Oil", Price: price, Volatility: 0.025},
	})
}

func newTestUpdater(registry *core.Registry, tr transport.Transport) (*PriceUpdater, *metrics.SessionCounters) {
	cfg := DefaultPriceUpdaterConfig()
	cfg.DriftInterval = 0
	cfg.SnapshotInterval = 0
	counters := &metrics.SessionCounters{}
	return NewPriceUpdater(cfg, registry, tr, nil, nil, counters, nil, nil), counters
}

func TestApplyFillBlendsTowardFillPrice(t *testing.T) {
	registry := testRegistry(25.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()
	updater, counters := newTestUpdater(registry, tr)

	updater.ApplyFill(core.Fill{
		OrderID: 1, InstrumentID: 0, Side: core.Buy,
		Price: 30.00, Quantity: 500, ExecutedAt: time.Now(),
	})

	view, err := registry.View(0)
	require.NoError(t, err)

	// A large fill pulls the price well toward the traded level but never
	// past it
	assert.Greater(t, view.Price, 25.50)
	assert.Less(t, view.Price, 30.00)
	assert.Equal(t, 25.50, view.PrevPrice)

	snap := counters.Snapshot()
	assert.Equal(t, int64(1), snap.PriceUpdates)
	assert.Equal(t, int64(0), snap.PriceRejections)

	// Accepted change notifies the arbitrage monitor
	m, st := tr.Recv(transport.EdgePrices, time.Second)
	require.Equal(t, transport.OK, st)
	pc, err := transport.DecodePriceChange(m)
	require.NoError(t, err)
	assert.Equal(t, view.Price, pc.Price)
}

func TestApplyFillRejectsExcessiveStep(t *testing.T) {
	registry := testRegistry(20.00)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()
	updater, counters := newTestUpdater(registry, tr)

	// Blended candidate lands more than 20% above a 20.00 market
	updater.ApplyFill(core.Fill{
		OrderID: 1, InstrumentID: 0, Side: core.Buy,
		Price: 30.00, Quantity: 500, ExecutedAt: time.Now(),
	})

	view, err := registry.View(0)
	require.NoError(t, err)
	assert.Equal(t, 20.00, view.Price, "rejected candidate must not move the price")

	snap := counters.Snapshot()
	assert.Equal(t, int64(0), snap.PriceUpdates)
	assert.Equal(t, int64(1), snap.PriceRejections)

	// Nothing forwarded
	_, st := tr.Recv(transport.EdgePrices, 10*time.Millisecond)
	assert.Equal(t, transport.Timeout, st)
}

func TestApplyFillRespectsFloorAndCeiling(t *testing.T) {
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()

	// Tiny fill against a price already at the floor
	registry := core.NewRegistry([]core.InstrumentSpec{
		{Symbol: "MGLU3", Sector: "Retail", Price: 0.55, Volatility: 0.05},
	})
	updater, counters := newTestUpdater(registry, tr)

	updater.ApplyFill(core.Fill{
		OrderID: 1, InstrumentID: 0, Side: core.Sell,
		Price: 0.20, Quantity: 1000, ExecutedAt: time.Now(),
	})

	view, err := registry.View(0)
	require.NoError(t, err)
	assert.Equal(t, 0.55, view.Price)
	assert.Equal(t, int64(1), counters.Snapshot().PriceRejections)
}

func TestBlendPriceWeighting(t *testing.T) {
	// A 1000-share fill at full volume weight dominates the blend
	heavy := blendPrice(25.50, 30.00, 1000)
	light := blendPrice(25.50, 30.00, 10)

	assert.Greater(t, heavy, light, "larger fills must pull the price harder")
	assert.Greater(t, light, 25.50)
	assert.Less(t, heavy, 30.00)

	// Weights normalize: a fill at the current price never moves it
	assert.InDelta(t, 25.50, blendPrice(25.50, 25.50, 500), 1e-9)
}

func TestRunStopsOnShutdown(t *testing.T) {
	registry := testRegistry(25.50)
	tr := transport.NewMemoryTransport(16)
	defer tr.Close()
	updater, _ := newTestUpdater(registry, tr)

	st := tr.Send(transport.EdgeFills, transport.NewShutdown(transport.StageExecutor))
	require.Equal(t, transport.OK, st)

	done := make(chan error, 1)
	go func() { done <- updater.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("price updater did not stop on shutdown")
	}

	// Shutdown propagated to the arbitrage monitor
	m, st := tr.Recv(transport.EdgePrices, time.Second)
	require.Equal(t, transport.OK, st)
	assert.Equal(t, transport.KindControl, m.Kind)
}
