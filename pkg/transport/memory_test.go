package transport

import (
	"testing"
	"time"
)

func TestMemorySendRecv(t *testing.T) {
	tr := NewMemoryTransport(4)
	defer tr.Close()

	in := Message{Kind: KindOrder, SenderID: 1, FloatPayload: 25.50, Text: "1|0|1"}
	if st := tr.Send(EdgeOrders, in); st != OK {
		t.Fatalf("Send() = %v, want OK", st)
	}

	out, st := tr.Recv(EdgeOrders, time.Second)
	if st != OK {
		t.Fatalf("Recv() = %v, want OK", st)
	}
	if out != in {
		t.Errorf("message mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestMemoryEdgesAreIndependent(t *testing.T) {
	tr := NewMemoryTransport(4)
	defer tr.Close()

	tr.Send(EdgeFills, Message{Kind: KindPriceUpdate, IntPayload: 1})
	tr.Send(EdgePrices, Message{Kind: KindPriceUpdate, IntPayload: 2})

	m, st := tr.Recv(EdgePrices, time.Second)
	if st != OK || m.IntPayload != 2 {
		t.Fatalf("Recv(prices) = %+v %v", m, st)
	}
	m, st = tr.Recv(EdgeFills, time.Second)
	if st != OK || m.IntPayload != 1 {
		t.Fatalf("Recv(fills) = %+v %v", m, st)
	}
}

func TestMemoryWouldBlockWhenFull(t *testing.T) {
	tr := NewMemoryTransport(2)
	defer tr.Close()

	if st := tr.Send(EdgeOrders, Message{}); st != OK {
		t.Fatal(st)
	}
	if st := tr.Send(EdgeOrders, Message{}); st != OK {
		t.Fatal(st)
	}
	if st := tr.Send(EdgeOrders, Message{}); st != WouldBlock {
		t.Errorf("Send() on full edge = %v, want WouldBlock", st)
	}
}

func TestMemoryRecvTimeout(t *testing.T) {
	tr := NewMemoryTransport(2)
	defer tr.Close()

	start := time.Now()
	_, st := tr.Recv(EdgeSignals, 20*time.Millisecond)
	if st != Timeout {
		t.Fatalf("Recv() = %v, want Timeout", st)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("Recv() returned before the timeout elapsed")
	}
}

func TestMemoryCloseDrainsBuffered(t *testing.T) {
	tr := NewMemoryTransport(2)

	tr.Send(EdgeOrders, Message{Kind: KindOrder, IntPayload: 99})
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	// Buffered message still delivered after close
	m, st := tr.Recv(EdgeOrders, time.Second)
	if st != OK || m.IntPayload != 99 {
		t.Fatalf("Recv() after close = %+v %v", m, st)
	}

	if _, st := tr.Recv(EdgeOrders, 10*time.Millisecond); st != Closed {
		t.Errorf("Recv() on drained closed transport = %v, want Closed", st)
	}
	if st := tr.Send(EdgeOrders, Message{}); st != Closed {
		t.Errorf("Send() on closed transport = %v, want Closed", st)
	}
}

func TestMemoryInvalidEdge(t *testing.T) {
	tr := NewMemoryTransport(2)
	defer tr.Close()

	if st := tr.Send(NumEdges, Message{}); st != Fatal {
		t.Errorf("Send(bad edge) = %v, want Fatal", st)
	}
	if _, st := tr.Recv(Edge(-1), time.Millisecond); st != Fatal {
		t.Errorf("Recv(bad edge) = %v, want Fatal", st)
	}
}
