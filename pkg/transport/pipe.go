package transport

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

// sendTimeout bounds how long Send waits for pipe buffer space before
// reporting WouldBlock.
const sendTimeout = 100 * time.Millisecond

// PipeTransport exchanges fixed-size binary envelopes over one kernel pipe
// per pipeline edge. Stages sharing a PipeTransport share nothing but the
// pipe descriptors, so the substrate also works across fork-style process
// isolation. Every envelope is written in a single write; pipe writes below
// PIPE_BUF are atomic, so readers never observe interleaved envelopes.
type PipeTransport struct {
	readers [NumEdges]*os.File
	writers [NumEdges]*os.File

	sendMu [NumEdges]sync.Mutex
	recvMu [NumEdges]sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewPipeTransport creates one pipe per edge
func NewPipeTransport() (*PipeTransport, error) {
	t := &PipeTransport{}

	for i := 0; i < int(NumEdges); i++ {
		r, w, err := os.Pipe()
		if err != nil {
			t.Close()
			return nil, err
		}
		t.readers[i] = r
		t.writers[i] = w
	}

	return t, nil
}

// Send implements Transport. The whole envelope is written atomically;
// a short write is a protocol error, not a retryable condition.
func (t *PipeTransport) Send(e Edge, m Message) Status {
	if e < 0 || e >= NumEdges {
		return Fatal
	}

	buf, err := m.Marshal()
	if err != nil {
		return Fatal
	}

	t.sendMu[e].Lock()
	defer t.sendMu[e].Unlock()

	w := t.writers[e]
	if err := w.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		return Fatal
	}

	n, err := w.Write(buf)
	switch {
	case err == nil && n == EnvelopeSize:
		return OK
	case errors.Is(err, os.ErrDeadlineExceeded) && n == 0:
		return WouldBlock
	case errors.Is(err, os.ErrClosed):
		return Closed
	default:
		// Partial envelope on the wire: the stream is corrupt
		return Fatal
	}
}

// Recv implements Transport. Exactly one envelope is read per call; a
// partial read is a protocol error surfaced as Fatal.
func (t *PipeTransport) Recv(e Edge, timeout time.Duration) (Message, Status) {
	if e < 0 || e >= NumEdges {
		return Message{}, Fatal
	}

	t.recvMu[e].Lock()
	defer t.recvMu[e].Unlock()

	r := t.readers[e]
	if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Message{}, Fatal
	}

	buf := make([]byte, EnvelopeSize)
	n, err := io.ReadFull(r, buf)
	switch {
	case err == nil:
		m, uerr := UnmarshalMessage(buf)
		if uerr != nil {
			return Message{}, Fatal
		}
		return m, OK
	case errors.Is(err, os.ErrDeadlineExceeded) && n == 0:
		return Message{}, Timeout
	case errors.Is(err, io.EOF) && n == 0, errors.Is(err, os.ErrClosed):
		return Message{}, Closed
	default:
		// n bytes of a torn envelope were consumed
		return Message{}, Fatal
	}
}

// Close implements Transport. Writer ends are closed first so blocked
// readers observe EOF rather than hanging.
func (t *PipeTransport) Close() error {
	t.closeOnce.Do(func() {
		for _, w := range t.writers {
			if w != nil {
				if err := w.Close(); err != nil && t.closeErr == nil {
					t.closeErr = err
				}
			}
		}
		for _, r := range t.readers {
			if r != nil {
				if err := r.Close(); err != nil && t.closeErr == nil {
					t.closeErr = err
				}
			}
		}
	})
	return t.closeErr
}

var _ Transport = (*PipeTransport)(nil)
