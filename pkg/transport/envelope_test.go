package transport

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/quantsim/tradesim/pkg/core"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	in := Message{
		Kind:         KindOrder,
		SenderID:     3,
		ReceiverID:   StageExecutor,
		IntPayload:   250,
		FloatPayload: 25.50,
		Text:         "17|4|1",
		Timestamp:    time.Now().UnixNano(),
	}

	buf, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if len(buf) != EnvelopeSize {
		t.Fatalf("len = %d, want %d", len(buf), EnvelopeSize)
	}

	out, err := UnmarshalMessage(buf)
	if err != nil {
		t.Fatalf("UnmarshalMessage() error = %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestEnvelopeNegativeValues(t *testing.T) {
	in := Message{
		Kind:         KindPriceUpdate,
		SenderID:     -1,
		IntPayload:   -42,
		FloatPayload: -0.035,
		Timestamp:    -7,
	}

	buf, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	out, err := UnmarshalMessage(buf)
	if err != nil {
		t.Fatalf("UnmarshalMessage() error = %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestEnvelopeTextTooLong(t *testing.T) {
	m := Message{Kind: KindOrder, Text: strings.Repeat("x", 101)}
	if _, err := m.Marshal(); err == nil {
		t.Fatal("Marshal() accepted oversized text")
	}
}

func TestUnmarshalRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, EnvelopeSize - 1, EnvelopeSize + 1} {
		if _, err := UnmarshalMessage(make([]byte, n)); !errors.Is(err, ErrShortEnvelope) {
			t.Errorf("UnmarshalMessage(%d bytes) error = %v, want ErrShortEnvelope", n, err)
		}
	}
}

func TestOrderCodecRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 10, 30, 0, 123456789, time.UTC)
	o, err := core.RestoreOrder(17, 3, 4, core.Buy, 25.50, 250, created)
	if err != nil {
		t.Fatalf("RestoreOrder() error = %v", err)
	}

	m, err := EncodeOrder(o)
	if err != nil {
		t.Fatalf("EncodeOrder() error = %v", err)
	}

	// Survive an actual wire crossing
	buf, err := m.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	m, err = UnmarshalMessage(buf)
	if err != nil {
		t.Fatalf("UnmarshalMessage() error = %v", err)
	}

	got, err := DecodeOrder(m)
	if err != nil {
		t.Fatalf("DecodeOrder() error = %v", err)
	}

	if got.ID() != 17 || got.TraderID() != 3 || got.InstrumentID() != 4 {
		t.Errorf("identity = %d/%d/%d, want 17/3/4", got.ID(), got.TraderID(), got.InstrumentID())
	}
	if got.Side() != core.Buy || got.Price() != 25.50 || got.Quantity() != 250 {
		t.Errorf("terms = %v/%v/%v", got.Side(), got.Price(), got.Quantity())
	}
	if !got.CreatedAt().Equal(created) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt(), created)
	}
}

func TestEncodeOrderRejectsQuantityOverflow(t *testing.T) {
	o, err := core.RestoreOrder(18, 3, 4, core.Buy, 25.50, int64(math.MaxInt32)+1, time.Now())
	if err != nil {
		t.Fatalf("RestoreOrder() error = %v", err)
	}

	if _, err := EncodeOrder(o); !errors.Is(err, ErrQuantityOverflow) {
		t.Fatalf("EncodeOrder() error = %v, want ErrQuantityOverflow", err)
	}

	// The largest representable quantity still encodes losslessly
	o, err = core.RestoreOrder(19, 3, 4, core.Buy, 25.50, math.MaxInt32, time.Now())
	if err != nil {
		t.Fatalf("RestoreOrder() error = %v", err)
	}
	m, err := EncodeOrder(o)
	if err != nil {
		t.Fatalf("EncodeOrder() error = %v", err)
	}
	got, err := DecodeOrder(m)
	if err != nil {
		t.Fatalf("DecodeOrder() error = %v", err)
	}
	if got.Quantity() != math.MaxInt32 {
		t.Errorf("quantity = %d, want %d", got.Quantity(), int64(math.MaxInt32))
	}
}

func TestFillCodecRoundTrip(t *testing.T) {
	f := core.Fill{
		OrderID: 9, TraderID: 2, InstrumentID: 5,
		Side: core.Sell, Price: 68.30, Quantity: 40,
		ExecutedAt: time.Unix(0, 1735000000000000000),
	}

	got, err := DecodeFill(EncodeFill(f))
	if err != nil {
		t.Fatalf("DecodeFill() error = %v", err)
	}
	if got != f {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, f)
	}
}

func TestSignalCodecRoundTrip(t *testing.T) {
	s := Signal{
		BuyInstrumentID:  1,
		SellInstrumentID: 6,
		Spread:           0.039,
		At:               time.Unix(0, 1735000000000000000),
	}

	got, err := DecodeSignal(EncodeSignal(s))
	if err != nil {
		t.Fatalf("DecodeSignal() error = %v", err)
	}
	if got != s {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	if _, err := DecodeOrder(Message{Kind: KindControl}); err == nil {
		t.Error("DecodeOrder() accepted control message")
	}
	if _, err := DecodeFill(Message{Kind: KindOrder}); err == nil {
		t.Error("DecodeFill() accepted order message")
	}
	if _, err := DecodeSignal(Message{Kind: KindOrder}); err == nil {
		t.Error("DecodeSignal() accepted order message")
	}
}
