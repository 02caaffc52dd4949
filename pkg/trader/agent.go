package trader

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/logging"
	"github.com/quantsim/tradesim/pkg/pipeline"
	"github.com/quantsim/tradesim/pkg/transport"
)

// orderIDs hands out globally unique order ids across all agents
var orderIDs atomic.Int64

func nextOrderID() int64 {
	return orderIDs.Add(1)
}

// Agent is one simulated trader. It paces itself with a rate limiter,
// consults its strategy each round and submits the resulting orders. Agents
// also watch the arbitrage feedback edge and act on signals when aggressive
// enough.
type Agent struct {
	id        int32
	profile   Profile
	strategy  Strategy
	market    *core.Market
	submitter pipeline.OrderSubmitter
	tr        transport.Transport
	limiter   *rate.Limiter
	rng       *rand.Rand
	logger    zerolog.Logger
}

// NewAgent creates an agent for the trader account with the given id. tr may
// be nil when no feedback edge is wired.
func NewAgent(id int32, profile Profile, market *core.Market, submitter pipeline.OrderSubmitter, tr transport.Transport, rng *rand.Rand) *Agent {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	}

	return &Agent{
		id:        id,
		profile:   profile,
		strategy:  NewContrarian(profile, rng),
		market:    market,
		submitter: submitter,
		tr:        tr,
		limiter:   rate.NewLimiter(rate.Every(profile.Interval), 1),
		rng:       rng,
		logger:    logging.ForWorker("trader-"+profile.Name, int(id)),
	}
}

// Run trades until the context is cancelled, the order path closes or the
// profile's session cap is reached.
func (a *Agent) Run(ctx context.Context) error {
	placed := 0

	for {
		if err := a.limiter.Wait(ctx); err != nil {
			a.logger.Info().Int("placed", placed).Msg("Agent stopping")
			return nil
		}

		intent := a.nextIntent()
		if intent == nil {
			continue
		}

		if err := a.place(*intent); err != nil {
			if errors.Is(err, pipeline.ErrSourceClosed) {
				a.logger.Info().Int("placed", placed).Msg("Order path closed, agent stopping")
				return nil
			}
			a.logger.Warn().Err(err).Msg("Failed to submit order")
			continue
		}

		placed++
		if a.profile.MaxOrders > 0 && placed >= a.profile.MaxOrders {
			a.logger.Info().Int("placed", placed).Msg("Session order cap reached")
			return nil
		}
	}
}

// nextIntent checks the arbitrage feedback edge first, then falls back to
// the strategy.
func (a *Agent) nextIntent() *OrderIntent {
	if intent := a.fromSignal(); intent != nil {
		return intent
	}

	acct, err := a.market.Ledger.View(a.id)
	if err != nil {
		return nil
	}

	return a.strategy.Decide(a.market.Registry.Views(), acct.Holdings)
}

// fromSignal drains one arbitrage signal if present and turns it into a buy
// of the cheap leg. Timid profiles ignore signals.
func (a *Agent) fromSignal() *OrderIntent {
	if a.tr == nil || a.profile.Aggressiveness < 0.5 {
		return nil
	}

	m, st := a.tr.Recv(transport.EdgeSignals, 0)
	if st != transport.OK || m.Kind != transport.KindArbitrageSignal {
		return nil
	}

	sig, err := transport.DecodeSignal(m)
	if err != nil {
		return nil
	}

	view, err := a.market.Registry.View(sig.BuyInstrumentID)
	if err != nil {
		return nil
	}

	a.logger.Debug().Str("symbol", view.Symbol).Float64("spread", sig.Spread).Msg("Acting on arbitrage signal")

	return &OrderIntent{
		InstrumentID: sig.BuyInstrumentID,
		Side:         core.Buy,
		Price:        view.Price * 1.002,
		Quantity:     a.profile.MeanQuantity,
	}
}

func (a *Agent) place(intent OrderIntent) error {
	o, err := core.NewOrder(nextOrderID(), a.id, intent.InstrumentID, intent.Side, intent.Price, intent.Quantity)
	if err != nil {
		return err
	}

	a.logger.Debug().
		Int64("order", o.ID()).
		Int32("instrument", o.InstrumentID()).
		Str("side", o.Side().String()).
		Float64("price", o.Price()).
		Int64("quantity", o.Quantity()).
		Msg("Submitting order")

	return a.submitter.Submit(o)
}

// NewFleet builds one agent per account in the ledger, cycling through the
// fleet composition. Each agent gets its own seeded random source so runs
// are reproducible for a fixed seed.
func NewFleet(cfg *Config, market *core.Market, submitter pipeline.OrderSubmitter, tr transport.Transport, seed int64) []*Agent {
	profiles := cfg.FleetProfiles()

	agents := make([]*Agent, 0, market.Ledger.Len())
	for id := 0; id < market.Ledger.Len(); id++ {
		profile := profiles[id%len(profiles)]
		if cfg.SessionOrderCap > 0 {
			profile.MaxOrders = cfg.SessionOrderCap
		}

		rng := rand.New(rand.NewSource(seed + int64(id)))
		agents = append(agents, NewAgent(int32(id), profile, market, submitter, tr, rng))
	}
	return agents
}
