package pipeline

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/metrics"
	"github.com/quantsim/tradesim/pkg/queue"
	"github.com/quantsim/tradesim/pkg/transport"
)

// End-to-end over the in-process substrate: orders enter the queue, the
// executor settles them, the price updater folds the fills in, and shutdown
// propagates stage by stage when the supervisor stops.
func TestSupervisorPipelineMemorySubstrate(t *testing.T) {
	runPipeline(t, func(capacity int) (transport.Transport, error) {
		return transport.NewMemoryTransport(capacity), nil
	})
}

// Same pipeline, same stages, fixed-size envelopes over kernel pipes.
func TestSupervisorPipelinePipeSubstrate(t *testing.T) {
	runPipeline(t, func(int) (transport.Transport, error) {
		return transport.NewPipeTransport()
	})
}

func runPipeline(t *testing.T, makeTransport func(capacity int) (transport.Transport, error)) {
	t.Helper()

	market := core.NewMarket(
		[]core.InstrumentSpec{
			{Symbol: "PETR4", Sector: "Oil", Price: 25.50, Volatility: 0.025},
		},
		[]core.AccountSpec{
			{Name: "Alice", Balance: fpdecimal.FromFloat(10000.00)},
		},
	)

	tr, err := makeTransport(16)
	require.NoError(t, err)

	q := queue.New(8)
	counters := &metrics.SessionCounters{}

	exec := NewExecutor(quietConfig(), market, NewQueueSource(q), tr, nil, counters, nil, rand.New(rand.NewSource(1)))

	updaterCfg := DefaultPriceUpdaterConfig()
	updaterCfg.DriftInterval = 0
	updaterCfg.SnapshotInterval = 0
	updaterCfg.Poll = 10 * time.Millisecond
	updater := NewPriceUpdater(updaterCfg, market.Registry, tr, nil, nil, counters, nil, nil)

	sup := NewSupervisor(tr, q)
	sup.Add("executor", exec.Run)
	sup.Add("price-updater", updater.Run)
	sup.Start(context.Background())

	o, err := core.NewOrder(1, 0, 0, core.Buy, 25.50, 100)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(o))

	// Wait until the fill has settled and moved the price
	require.Eventually(t, func() bool {
		snap := counters.Snapshot()
		return snap.OrdersAccepted == 1 && snap.PriceUpdates >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Stop drains the queue, the executor forwards shutdown and both
	// stages exit
	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	acct, err := market.Ledger.View(0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acct.Holdings[0])
	assert.True(t, acct.Balance.Equal(fpdecimal.FromFloat(7450.00)),
		"balance = %s", acct.Balance.String())
}
