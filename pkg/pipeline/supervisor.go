package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantsim/tradesim/pkg/queue"
	"github.com/quantsim/tradesim/pkg/transport"
)

// Supervisor runs the pipeline workers and sequences shutdown. Stopping is
// staged: trading agents are cancelled through the context, the order path
// is closed so the executor drains and stops, and shutdown then propagates
// down the pipeline one stage at a time. Wait returns once every worker has
// exited.
type Supervisor struct {
	mu      sync.Mutex
	workers []worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	orders *queue.OrderQueue
	tr     transport.Transport
	logger zerolog.Logger
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

// NewSupervisor creates a Supervisor. orders may be nil when the order path
// runs over the transport instead of the shared queue.
func NewSupervisor(tr transport.Transport, orders *queue.OrderQueue) *Supervisor {
	return &Supervisor{
		orders: orders,
		tr:     tr,
		logger: log.With().Str("component", "supervisor").Logger(),
	}
}

// Add registers a named worker. All workers must be added before Start.
func (s *Supervisor) Add(name string, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		panic("supervisor already started")
	}
	s.workers = append(s.workers, worker{name: name, run: run})
}

// Start launches every registered worker in its own goroutine
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	for _, w := range s.workers {
		w := w
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			s.logger.Info().Str("worker", w.name).Msg("Worker started")
			if err := w.run(ctx); err != nil {
				s.logger.Error().Err(err).Str("worker", w.name).Msg("Worker failed")
				return
			}
			s.logger.Info().Str("worker", w.name).Msg("Worker stopped")
		}()
	}
}

// Stop begins the shutdown sequence and waits for every worker to exit.
// Trading agents stop on context cancellation; the executor stops when its
// order source drains, and forwards shutdown downstream so the remaining
// stages stop in pipeline order.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if s.orders != nil {
		s.orders.Close()
	} else if s.tr != nil {
		// Transport-fed executors need an explicit shutdown envelope
		s.tr.Send(transport.EdgeOrders, transport.NewShutdown(0))
	}

	s.wg.Wait()

	if s.tr != nil {
		if err := s.tr.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close transport")
		}
	}
}

// Wait blocks until every worker has exited without initiating shutdown
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
