package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantsim/tradesim/config"
	"github.com/quantsim/tradesim/pkg/arbitrage"
	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/logging"
	"github.com/quantsim/tradesim/pkg/marketdata"
	"github.com/quantsim/tradesim/pkg/metrics"
	"github.com/quantsim/tradesim/pkg/otel"
	"github.com/quantsim/tradesim/pkg/pipeline"
	"github.com/quantsim/tradesim/pkg/queue"
	"github.com/quantsim/tradesim/pkg/sink"
	kafkasink "github.com/quantsim/tradesim/pkg/sink/kafka"
	redissink "github.com/quantsim/tradesim/pkg/sink/redis"
	"github.com/quantsim/tradesim/pkg/trader"
	"github.com/quantsim/tradesim/pkg/transport"
)

const initialBalance = 10000.00

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fleetCfg, err := trader.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load trader configuration: %v", err)
	}

	// Setup logging
	logging.Setup(logging.Config{
		Level:  cfg.Simulation.LogLevel,
		Pretty: cfg.Simulation.LogFormat == "pretty",
		Output: os.Stdout,
	})
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Build the market: seed instruments, one account per agent, and a
	// starting position in a few instruments so sell orders can clear
	market := core.NewMarket(
		marketdata.Instruments(),
		marketdata.Accounts(fleetCfg.FleetSize(), initialBalance),
	)
	seedHoldings(market)

	// Initialize OpenTelemetry
	cleanup, err := otel.Init(otel.Config{
		ServiceName:      otel.ServiceSimulator,
		ServiceVersion:   "1.0.0",
		Endpoint:         cfg.Otel.Endpoint,
		CollectorEnabled: cfg.Otel.Enabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	// Build the transport substrate
	var tr transport.Transport
	switch cfg.Simulation.Transport {
	case "pipe":
		tr, err = transport.NewPipeTransport()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create pipe transport")
		}
	default:
		tr = transport.NewMemoryTransport(cfg.Simulation.QueueCapacity)
	}

	// Build the order path: the shared bounded queue in memory mode, the
	// orders edge in pipe mode
	var (
		orders    *queue.OrderQueue
		source    pipeline.OrderSource
		submitter pipeline.OrderSubmitter
	)
	if cfg.Simulation.Transport == "memory" {
		orders = queue.New(cfg.Simulation.QueueCapacity)
		source = pipeline.NewQueueSource(orders)
		submitter = pipeline.NewQueueSubmitter(orders)
	} else {
		source = pipeline.NewTransportSource(tr, 0)
		submitter = pipeline.NewTransportSubmitter(tr)
	}

	// Build the sinks
	audit := buildAuditSink(cfg, logger)
	defer audit.Close()
	history := buildHistorySink(cfg, logger)
	defer history.Close()

	counters := &metrics.SessionCounters{}
	latency := metrics.NewLatencyRecorder()

	// Build the pipeline stages
	execCfg := pipeline.DefaultExecutorConfig()
	execCfg.MinLatency = time.Duration(cfg.Execution.MinLatencyMs) * time.Millisecond
	execCfg.MaxLatency = time.Duration(cfg.Execution.MaxLatencyMs) * time.Millisecond
	executor := pipeline.NewExecutor(execCfg, market, source, tr, audit, counters, latency,
		rand.New(rand.NewSource(seed)))

	updaterCfg := pipeline.DefaultPriceUpdaterConfig()
	drifter := marketdata.NewRandomWalk(rand.New(rand.NewSource(seed+1)), 0)
	updater := pipeline.NewPriceUpdater(updaterCfg, market.Registry, tr, audit, history, counters, latency, drifter)

	arbCfg := arbitrage.DefaultConfig()
	arbCfg.SpreadThreshold = cfg.Arbitrage.SpreadThreshold
	arbCfg.ExecutionEnabled = cfg.Arbitrage.ExecutionEnabled
	monitor := arbitrage.NewMonitor(arbCfg, market.Registry, tr, nil)

	agents := trader.NewFleet(fleetCfg, market, submitter, tr, seed+100)

	// Wire everything into the supervisor
	sup := pipeline.NewSupervisor(tr, orders)
	sup.Add("executor", executor.Run)
	sup.Add("price-updater", updater.Run)
	sup.Add("arbitrage", monitor.Run)
	for i, a := range agents {
		a := a
		sup.Add(agentName(fleetCfg, i), a.Run)
	}

	logger.Info().
		Str("transport", cfg.Simulation.Transport).
		Int("traders", len(agents)).
		Int64("seed", seed).
		Dur("duration", cfg.Simulation.Duration).
		Msg("Starting simulation")

	ctx := context.Background()
	sup.Start(ctx)

	// Run for the configured duration or until interrupted
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-time.After(cfg.Simulation.Duration):
		logger.Info().Msg("Session duration elapsed")
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Interrupted")
	}

	sup.Stop()

	printReport(market, counters.Snapshot(), latency.Summaries(), monitor.StatsSnapshot(), monitor.History())
}

// seedHoldings grants every trader a starting position in a rotating subset
// of instruments.
func seedHoldings(market *core.Market) {
	n := int32(market.Registry.Len())
	for id := int32(0); id < int32(market.Ledger.Len()); id++ {
		for k := int32(0); k < 3; k++ {
			instrumentID := (id + k*2) % n
			if err := market.Ledger.Grant(id, instrumentID, 200); err != nil {
				log.Fatalf("Failed to seed holdings: %v", err)
			}
		}
	}
}

func buildAuditSink(cfg *config.Config, logger zerolog.Logger) sink.AuditSink {
	if !cfg.Kafka.Enabled {
		return sink.NopAuditSink{}
	}

	ks, err := kafkasink.NewAuditSink(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
	if err != nil {
		logger.Warn().Err(err).Msg("Kafka unavailable, auditing disabled")
		return sink.NopAuditSink{}
	}

	return sink.NewAsyncAuditSink(ks, 256, logger)
}

func buildHistorySink(cfg *config.Config, logger zerolog.Logger) sink.HistorySink {
	if !cfg.Redis.Enabled {
		return sink.NopHistorySink{}
	}

	hs, err := redissink.NewHistorySink(redissink.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, "", 0)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, history disabled")
		return sink.NopHistorySink{}
	}

	return hs
}

func agentName(cfg *trader.Config, i int) string {
	profiles := cfg.FleetProfiles()
	return "trader-" + profiles[i%len(profiles)].Name
}
