// Package transport carries orders and fill notifications between pipeline
// stages. Two substrates implement the same contract: an in-process one
// passing messages by value with no serialization, and a pipe-based one
// exchanging fixed-size binary envelopes between isolated execution
// contexts. Stage logic is written once against this contract.
package transport

import "time"

// Edge identifies one producer-to-consumer link in the pipeline
type Edge int

// Pipeline edges
const (
	EdgeOrders  Edge = iota // traders -> executor
	EdgeFills               // executor -> price updater
	EdgePrices              // price updater -> arbitrage monitor
	EdgeSignals             // arbitrage monitor -> traders (feedback)
	EdgeControl             // supervisor -> stages
	NumEdges
)

// String returns the edge name
func (e Edge) String() string {
	switch e {
	case EdgeOrders:
		return "orders"
	case EdgeFills:
		return "fills"
	case EdgePrices:
		return "prices"
	case EdgeSignals:
		return "signals"
	case EdgeControl:
		return "control"
	default:
		return "unknown"
	}
}

// Status is the outcome of a transport operation
type Status int

// Transport statuses. WouldBlock and Timeout are transient and handled by
// the caller's own polling loop; Closed and Fatal end the worker's loop.
const (
	OK Status = iota
	WouldBlock
	Timeout
	Closed
	Fatal
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case WouldBlock:
		return "would-block"
	case Timeout:
		return "timeout"
	case Closed:
		return "closed"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Kind discriminates envelope payloads
type Kind int32

// Message kinds
const (
	KindOrder           Kind = 1
	KindPriceUpdate     Kind = 2
	KindArbitrageSignal Kind = 3
	KindControl         Kind = 4
)

// Control commands carried in IntPayload of KindControl messages
const (
	ControlShutdown int32 = 1
)

// Message is the envelope exchanged between stages. On the pipe substrate
// it maps onto a fixed binary layout (see Marshal); in process it is passed
// by value as-is.
type Message struct {
	Kind         Kind
	SenderID     int32
	ReceiverID   int32
	IntPayload   int32
	FloatPayload float64
	Text         string
	Timestamp    int64
}

// Transport is the substrate contract shared by all pipeline stages
type Transport interface {
	// Send delivers a message on an edge without blocking indefinitely.
	// WouldBlock means the edge is at capacity and the caller should retry.
	Send(e Edge, m Message) Status

	// Recv waits up to timeout for the next message on an edge. Timeout is
	// not an error; stages use it to interleave periodic housekeeping.
	Recv(e Edge, timeout time.Duration) (Message, Status)

	// Close tears the substrate down and wakes blocked receivers
	Close() error
}
