package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// EnvelopeSize is the exact wire size of one marshaled message:
// four int32 fields, one float64, a 100-byte text field and an int64
// timestamp. Senders write exactly this many bytes in one write; receivers
// read exactly this many or treat the read as failed.
const EnvelopeSize = 4 + 4 + 4 + 4 + 8 + textSize + 8

const textSize = 100

// ErrShortEnvelope reports a partial envelope read or write
var ErrShortEnvelope = errors.New("short envelope")

// Marshal encodes the message into its fixed binary layout
func (m Message) Marshal() ([]byte, error) {
	if len(m.Text) > textSize {
		return nil, fmt.Errorf("envelope text exceeds %d bytes: %d", textSize, len(m.Text))
	}

	buf := make([]byte, EnvelopeSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(m.Kind))
	binary.BigEndian.PutUint32(buf[4:8], uint32(m.SenderID))
	binary.BigEndian.PutUint32(buf[8:12], uint32(m.ReceiverID))
	binary.BigEndian.PutUint32(buf[12:16], uint32(m.IntPayload))
	binary.BigEndian.PutUint64(buf[16:24], math.Float64bits(m.FloatPayload))
	copy(buf[24:24+textSize], m.Text)
	binary.BigEndian.PutUint64(buf[24+textSize:], uint64(m.Timestamp))
	return buf, nil
}

// UnmarshalMessage decodes a fixed binary envelope
func UnmarshalMessage(buf []byte) (Message, error) {
	if len(buf) != EnvelopeSize {
		return Message{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortEnvelope, len(buf), EnvelopeSize)
	}

	text := buf[24 : 24+textSize]
	n := 0
	for n < textSize && text[n] != 0 {
		n++
	}

	return Message{
		Kind:         Kind(int32(binary.BigEndian.Uint32(buf[0:4]))),
		SenderID:     int32(binary.BigEndian.Uint32(buf[4:8])),
		ReceiverID:   int32(binary.BigEndian.Uint32(buf[8:12])),
		IntPayload:   int32(binary.BigEndian.Uint32(buf[12:16])),
		FloatPayload: math.Float64frombits(binary.BigEndian.Uint64(buf[16:24])),
		Text:         string(text[:n]),
		Timestamp:    int64(binary.BigEndian.Uint64(buf[24+textSize:])),
	}, nil
}
