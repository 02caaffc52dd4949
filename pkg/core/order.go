package core

import (
	"encoding/json"
	"time"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Status represents the lifecycle state of an order. Pending is the only
// non-terminal state; once an order leaves Pending it never transitions again.
type Status int

// Order statuses
const (
	StatusPending Status = iota
	StatusExecuted
	StatusCancelled
	StatusExpired
)

// String returns status as string
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusExecuted:
		return "EXECUTED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Order stores information about a single order submitted by a trading agent.
// Orders are passed by value between pipeline stages; only the execution
// stage transitions their status.
type Order struct {
	id           int64
	traderID     int32
	instrumentID int32
	side         Side
	price        float64
	quantity     int64
	createdAt    time.Time
	status       Status
	reason       string
}

// NewOrder creates a new pending Order
func NewOrder(id int64, traderID, instrumentID int32, side Side, price float64, quantity int64) (Order, error) {
	if quantity <= 0 {
		return Order{}, ErrInvalidQuantity
	}

	if price <= 0 {
		return Order{}, ErrInvalidPrice
	}

	if side != Buy && side != Sell {
		return Order{}, ErrInvalidSide
	}

	return Order{
		id:           id,
		traderID:     traderID,
		instrumentID: instrumentID,
		side:         side,
		price:        price,
		quantity:     quantity,
		createdAt:    time.Now(),
		status:       StatusPending,
	}, nil
}

// RestoreOrder rebuilds a pending order received from another execution
// context, preserving its original creation time.
func RestoreOrder(id int64, traderID, instrumentID int32, side Side, price float64, quantity int64, createdAt time.Time) (Order, error) {
	o, err := NewOrder(id, traderID, instrumentID, side, price, quantity)
	if err != nil {
		return Order{}, err
	}
	o.createdAt = createdAt
	return o, nil
}

// ID returns the order id
func (o *Order) ID() int64 {
	return o.id
}

// TraderID returns the submitting trader's id
func (o *Order) TraderID() int32 {
	return o.traderID
}

// InstrumentID returns the target instrument's id
func (o *Order) InstrumentID() int32 {
	return o.instrumentID
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Price returns the limit price
func (o *Order) Price() float64 {
	return o.price
}

// Quantity returns the order quantity
func (o *Order) Quantity() int64 {
	return o.quantity
}

// CreatedAt returns the creation timestamp
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// Status returns the current status
func (o *Order) Status() Status {
	return o.status
}

// Reason returns the rejection reason for cancelled orders, empty otherwise
func (o *Order) Reason() string {
	return o.reason
}

// IsTerminal reports whether the order has reached a terminal status
func (o *Order) IsTerminal() bool {
	return o.status != StatusPending
}

// Execute transitions Pending -> Executed
func (o *Order) Execute() error {
	if o.status != StatusPending {
		return ErrTerminalStatus
	}
	o.status = StatusExecuted
	return nil
}

// Cancel transitions Pending -> Cancelled and records the reason
func (o *Order) Cancel(reason string) error {
	if o.status != StatusPending {
		return ErrTerminalStatus
	}
	o.status = StatusCancelled
	o.reason = reason
	return nil
}

// Expire transitions Pending -> Expired
func (o *Order) Expire() error {
	if o.status != StatusPending {
		return ErrTerminalStatus
	}
	o.status = StatusExpired
	return nil
}

// MarshalJSON implements custom JSON marshaling for Order
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID           int64     `json:"id"`
		TraderID     int32     `json:"traderId"`
		InstrumentID int32     `json:"instrumentId"`
		Side         string    `json:"side"`
		Price        float64   `json:"price"`
		Quantity     int64     `json:"quantity"`
		CreatedAt    time.Time `json:"createdAt"`
		Status       string    `json:"status"`
		Reason       string    `json:"reason,omitempty"`
	}{
		ID:           o.id,
		TraderID:     o.traderID,
		InstrumentID: o.instrumentID,
		Side:         o.side.String(),
		Price:        o.price,
		Quantity:     o.quantity,
		CreatedAt:    o.createdAt,
		Status:       o.status.String(),
		Reason:       o.reason,
	})
}

// Fill records a successfully executed order as applied to the market
type Fill struct {
	OrderID      int64
	TraderID     int32
	InstrumentID int32
	Side         Side
	Price        float64
	Quantity     int64
	ExecutedAt   time.Time
}
