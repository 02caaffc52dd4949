package core

import "errors"

// Errors
var (
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInvalidSide          = errors.New("invalid side")
	ErrUnknownTrader        = errors.New("unknown trader")
	ErrUnknownInstrument    = errors.New("unknown instrument")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrTerminalStatus       = errors.New("order already in terminal status")
)

// Rejection reasons recorded on cancelled orders. These strings are part of
// the reporting contract and must stay stable.
const (
	ReasonUnknownTrader        = "unknown trader"
	ReasonUnknownInstrument    = "unknown instrument"
	ReasonInvalidSide          = "invalid side"
	ReasonStalePrice           = "stale price"
	ReasonVolatility           = "volatility too high"
	ReasonQuantityBelowMin     = "quantity below minimum"
	ReasonQuantityAboveMax     = "quantity above maximum"
	ReasonInsufficientFunds    = "insufficient funds"
	ReasonInsufficientHoldings = "insufficient holdings"
	ReasonDeskRejection        = "desk rejection"
)
