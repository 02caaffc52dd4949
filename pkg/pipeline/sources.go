package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/queue"
	"github.com/quantsim/tradesim/pkg/transport"
)

// ErrSourceClosed is returned once an order source has shut down and drained
var ErrSourceClosed = errors.New("order source closed")

// OrderSource hands pending orders to the execution stage. The two
// implementations cover the two substrates: the shared bounded queue and the
// envelope transport.
type OrderSource interface {
	Next(ctx context.Context) (core.Order, error)
}

// OrderSubmitter is the trader-facing half of the order path
type OrderSubmitter interface {
	Submit(o core.Order) error
}

// QueueSource reads orders from the shared bounded queue
type QueueSource struct {
	q *queue.OrderQueue
}

// NewQueueSource wraps an order queue as an OrderSource
func NewQueueSource(q *queue.OrderQueue) *QueueSource {
	return &QueueSource{q: q}
}

// Next blocks on the queue until an order or close. Cancellation is driven
// by closing the queue, which wakes every blocked consumer.
func (s *QueueSource) Next(ctx context.Context) (core.Order, error) {
	o, err := s.q.Dequeue()
	if errors.Is(err, queue.ErrClosed) {
		return core.Order{}, ErrSourceClosed
	}
	return o, err
}

// QueueSubmitter writes orders into the shared bounded queue, blocking while
// the queue is at capacity.
type QueueSubmitter struct {
	q *queue.OrderQueue
}

// NewQueueSubmitter wraps an order queue as an OrderSubmitter
func NewQueueSubmitter(q *queue.OrderQueue) *QueueSubmitter {
	return &QueueSubmitter{q: q}
}

// Submit enqueues the order, blocking while the queue is full
func (s *QueueSubmitter) Submit(o core.Order) error {
	err := s.q.Enqueue(o)
	if errors.Is(err, queue.ErrClosed) {
		return ErrSourceClosed
	}
	return err
}

// TransportSource reads order envelopes from the transport's orders edge
type TransportSource struct {
	tr   transport.Transport
	poll time.Duration
}

// NewTransportSource wraps a transport as an OrderSource
func NewTransportSource(tr transport.Transport, poll time.Duration) *TransportSource {
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}
	return &TransportSource{tr: tr, poll: poll}
}

// Next polls the orders edge until an order envelope arrives, the context is
// cancelled or the transport shuts down. Malformed envelopes are logged and
// skipped rather than tearing the stage down.
func (s *TransportSource) Next(ctx context.Context) (core.Order, error) {
	for {
		if ctx.Err() != nil {
			return core.Order{}, ErrSourceClosed
		}

		m, st := s.tr.Recv(transport.EdgeOrders, s.poll)
		switch st {
		case transport.OK:
		case transport.Timeout:
			continue
		case transport.Closed:
			return core.Order{}, ErrSourceClosed
		default:
			return core.Order{}, errors.New("order edge failed: " + st.String())
		}

		if m.Kind == transport.KindControl && m.IntPayload == transport.ControlShutdown {
			return core.Order{}, ErrSourceClosed
		}

		o, err := transport.DecodeOrder(m)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping malformed order envelope")
			continue
		}

		return o, nil
	}
}

// TransportSubmitter writes order envelopes to the transport's orders edge
type TransportSubmitter struct {
	tr      transport.Transport
	backoff time.Duration
}

// NewTransportSubmitter wraps a transport as an OrderSubmitter
func NewTransportSubmitter(tr transport.Transport) *TransportSubmitter {
	return &TransportSubmitter{tr: tr, backoff: 5 * time.Millisecond}
}

// Submit sends the order envelope, retrying while the edge is at capacity
func (s *TransportSubmitter) Submit(o core.Order) error {
	m, err := transport.EncodeOrder(o)
	if err != nil {
		return err
	}

	for {
		switch st := s.tr.Send(transport.EdgeOrders, m); st {
		case transport.OK:
			return nil
		case transport.WouldBlock:
			time.Sleep(s.backoff)
		case transport.Closed:
			return ErrSourceClosed
		default:
			return errors.New("order edge failed: " + st.String())
		}
	}
}

var (
	_ OrderSource    = (*QueueSource)(nil)
	_ OrderSource    = (*TransportSource)(nil)
	_ OrderSubmitter = (*QueueSubmitter)(nil)
	_ OrderSubmitter = (*TransportSubmitter)(nil)
)
