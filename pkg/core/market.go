package core

import (
	"github.com/nikolaydubina/fpdecimal"
)

// Market bundles the two sources of truth mutated by the pipeline. It is
// constructed once and passed explicitly to every component; there is no
// package-level state.
type Market struct {
	Registry *Registry
	Ledger   *Ledger
}

// NewMarket creates a Market from instrument and account seeds
func NewMarket(instruments []InstrumentSpec, accounts []AccountSpec) *Market {
	return &Market{
		Registry: NewRegistry(instruments),
		Ledger:   NewLedger(accounts),
	}
}

// Cost returns the cash value of a fill at the given price and quantity
func Cost(price float64, quantity int64) fpdecimal.Decimal {
	return fpdecimal.FromFloat(price).Mul(fpdecimal.FromInt(int(quantity)))
}

// CommitFill applies an executed order to the ledger and registry. The
// account lock is always taken before the instrument lock; this order is
// fixed system-wide so lock cycles cannot form. Funds and holdings are
// re-verified under the account lock, so balances and positions can never
// go negative regardless of what concurrent validation observed.
func (m *Market) CommitFill(f Fill) error {
	if !m.Ledger.Has(f.TraderID) {
		return ErrUnknownTrader
	}
	if !m.Registry.Has(f.InstrumentID) {
		return ErrUnknownInstrument
	}

	cost := Cost(f.Price, f.Quantity)

	acct := m.Ledger.lock(f.TraderID)
	defer acct.mu.Unlock()

	switch f.Side {
	case Buy:
		if acct.balance.LessThan(cost) {
			return ErrInsufficientFunds
		}
	case Sell:
		if acct.holdings[f.InstrumentID] < f.Quantity {
			return ErrInsufficientHoldings
		}
	default:
		return ErrInvalidSide
	}

	in := m.Registry.lock(f.InstrumentID)
	defer in.mu.Unlock()

	if f.Side == Buy {
		acct.balance = acct.balance.Sub(cost)
		acct.holdings[f.InstrumentID] += f.Quantity
	} else {
		acct.balance = acct.balance.Add(cost)
		acct.holdings[f.InstrumentID] -= f.Quantity
	}

	in.volume += f.Quantity
	in.trades++

	return nil
}
