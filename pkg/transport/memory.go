package transport

import (
	"sync"
	"time"
)

// MemoryTransport runs all stages in one address space. Each edge is a
// bounded in-process channel; messages are passed by value and never
// serialized.
type MemoryTransport struct {
	edges [NumEdges]chan Message

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryTransport creates a MemoryTransport whose edges buffer up to
// capacity messages each.
func NewMemoryTransport(capacity int) *MemoryTransport {
	if capacity <= 0 {
		capacity = 64
	}

	t := &MemoryTransport{done: make(chan struct{})}
	for i := range t.edges {
		t.edges[i] = make(chan Message, capacity)
	}
	return t
}

// Send implements Transport
func (t *MemoryTransport) Send(e Edge, m Message) Status {
	if e < 0 || e >= NumEdges {
		return Fatal
	}

	select {
	case <-t.done:
		return Closed
	default:
	}

	select {
	case t.edges[e] <- m:
		return OK
	default:
		return WouldBlock
	}
}

// Recv implements Transport
func (t *MemoryTransport) Recv(e Edge, timeout time.Duration) (Message, Status) {
	if e < 0 || e >= NumEdges {
		return Message{}, Fatal
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case m := <-t.edges[e]:
		return m, OK
	case <-t.done:
		// Drain anything already buffered before reporting closed
		select {
		case m := <-t.edges[e]:
			return m, OK
		default:
			return Message{}, Closed
		}
	case <-timer.C:
		return Message{}, Timeout
	}
}

// Close implements Transport
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
	})
	return nil
}

var _ Transport = (*MemoryTransport)(nil)
