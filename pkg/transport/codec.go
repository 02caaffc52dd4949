package transport

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quantsim/tradesim/pkg/core"
)

// ErrQuantityOverflow reports an order quantity too large for the envelope's
// int32 payload field.
var ErrQuantityOverflow = errors.New("order quantity exceeds envelope range")

// Typed envelope codecs. The envelope's numeric fields carry price and
// quantity losslessly; identifiers that do not fit ride in the text field.

// Stage ids used in sender/receiver envelope fields
const (
	StageExecutor     int32 = 1
	StagePriceUpdater int32 = 2
	StageArbitrage    int32 = 3
)

// EncodeOrder wraps an order in an envelope addressed to the executor. The
// quantity travels in the int32 payload field; orders it cannot hold are a
// protocol error, not a silent truncation.
func EncodeOrder(o core.Order) (Message, error) {
	if o.Quantity() > math.MaxInt32 {
		return Message{}, fmt.Errorf("encode order %d: %w: %d", o.ID(), ErrQuantityOverflow, o.Quantity())
	}

	return Message{
		Kind:         KindOrder,
		SenderID:     o.TraderID(),
		ReceiverID:   StageExecutor,
		IntPayload:   int32(o.Quantity()),
		FloatPayload: o.Price(),
		Text:         fmt.Sprintf("%d|%d|%d", o.ID(), o.InstrumentID(), o.Side()),
		Timestamp:    o.CreatedAt().UnixNano(),
	}, nil
}

// DecodeOrder rebuilds the order carried by a KindOrder envelope
func DecodeOrder(m Message) (core.Order, error) {
	if m.Kind != KindOrder {
		return core.Order{}, fmt.Errorf("decode order: unexpected kind %d", m.Kind)
	}

	var (
		orderID      int64
		instrumentID int32
		side         core.Side
	)
	if _, err := fmt.Sscanf(m.Text, "%d|%d|%d", &orderID, &instrumentID, &side); err != nil {
		return core.Order{}, fmt.Errorf("decode order text %q: %w", m.Text, err)
	}

	return core.RestoreOrder(
		orderID,
		m.SenderID,
		instrumentID,
		side,
		m.FloatPayload,
		int64(m.IntPayload),
		time.Unix(0, m.Timestamp),
	)
}

// EncodeFill wraps an executed fill in an envelope for the price updater
func EncodeFill(f core.Fill) Message {
	return Message{
		Kind:         KindPriceUpdate,
		SenderID:     StageExecutor,
		ReceiverID:   StagePriceUpdater,
		IntPayload:   f.InstrumentID,
		FloatPayload: f.Price,
		Text:         fmt.Sprintf("%d|%d|%d|%d", f.OrderID, f.TraderID, f.Quantity, f.Side),
		Timestamp:    f.ExecutedAt.UnixNano(),
	}
}

// DecodeFill rebuilds the fill carried by a KindPriceUpdate envelope
func DecodeFill(m Message) (core.Fill, error) {
	if m.Kind != KindPriceUpdate {
		return core.Fill{}, fmt.Errorf("decode fill: unexpected kind %d", m.Kind)
	}

	var f core.Fill
	if _, err := fmt.Sscanf(m.Text, "%d|%d|%d|%d", &f.OrderID, &f.TraderID, &f.Quantity, &f.Side); err != nil {
		return core.Fill{}, fmt.Errorf("decode fill text %q: %w", m.Text, err)
	}

	f.InstrumentID = m.IntPayload
	f.Price = m.FloatPayload
	f.ExecutedAt = time.Unix(0, m.Timestamp)
	return f, nil
}

// PriceChange notifies the arbitrage monitor of an accepted price update
type PriceChange struct {
	InstrumentID int32
	Price        float64
	At           time.Time
}

// EncodePriceChange wraps a price change for the arbitrage monitor
func EncodePriceChange(pc PriceChange) Message {
	return Message{
		Kind:         KindPriceUpdate,
		SenderID:     StagePriceUpdater,
		ReceiverID:   StageArbitrage,
		IntPayload:   pc.InstrumentID,
		FloatPayload: pc.Price,
		Timestamp:    pc.At.UnixNano(),
	}
}

// DecodePriceChange rebuilds a price change envelope
func DecodePriceChange(m Message) (PriceChange, error) {
	if m.Kind != KindPriceUpdate {
		return PriceChange{}, fmt.Errorf("decode price change: unexpected kind %d", m.Kind)
	}

	return PriceChange{
		InstrumentID: m.IntPayload,
		Price:        m.FloatPayload,
		At:           time.Unix(0, m.Timestamp),
	}, nil
}

// Signal is the arbitrage feedback sent to trading agents
type Signal struct {
	BuyInstrumentID  int32
	SellInstrumentID int32
	Spread           float64
	At               time.Time
}

// EncodeSignal wraps an arbitrage signal for the trader feedback edge
func EncodeSignal(s Signal) Message {
	return Message{
		Kind:         KindArbitrageSignal,
		SenderID:     StageArbitrage,
		ReceiverID:   0,
		IntPayload:   s.BuyInstrumentID,
		FloatPayload: s.Spread,
		Text:         fmt.Sprintf("%d", s.SellInstrumentID),
		Timestamp:    s.At.UnixNano(),
	}
}

// DecodeSignal rebuilds an arbitrage signal envelope
func DecodeSignal(m Message) (Signal, error) {
	if m.Kind != KindArbitrageSignal {
		return Signal{}, fmt.Errorf("decode signal: unexpected kind %d", m.Kind)
	}

	var sellID int32
	if _, err := fmt.Sscanf(m.Text, "%d", &sellID); err != nil {
		return Signal{}, fmt.Errorf("decode signal text %q: %w", m.Text, err)
	}

	return Signal{
		BuyInstrumentID:  m.IntPayload,
		SellInstrumentID: sellID,
		Spread:           m.FloatPayload,
		At:               time.Unix(0, m.Timestamp),
	}, nil
}

// NewShutdown builds the control envelope that stops a stage
func NewShutdown(senderID int32) Message {
	return Message{
		Kind:       KindControl,
		SenderID:   senderID,
		IntPayload: ControlShutdown,
		Timestamp:  time.Now().UnixNano(),
	}
}
