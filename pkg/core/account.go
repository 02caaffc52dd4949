package core

import (
	"sync"

	"github.com/nikolaydubina/fpdecimal"
)

// AccountSpec seeds one account at ledger construction
type AccountSpec struct {
	Name    string
	Balance fpdecimal.Decimal
}

// AccountView is a read-only snapshot of an account's state
type AccountView struct {
	ID       int32
	Name     string
	Balance  fpdecimal.Decimal
	Holdings map[int32]int64
}

type account struct {
	mu sync.Mutex

	id       int32
	name     string
	balance  fpdecimal.Decimal
	holdings map[int32]int64
}

func (a *account) view() AccountView {
	holdings := make(map[int32]int64, len(a.holdings))
	for k, v := range a.holdings {
		holdings[k] = v
	}

	return AccountView{
		ID:       a.id,
		Name:     a.name,
		Balance:  a.balance,
		Holdings: holdings,
	}
}

// Ledger owns per-trader balance and holdings. It is the single source of
// truth for accounts; all reads return snapshots by value.
type Ledger struct {
	accounts []*account
}

// NewLedger creates a Ledger from account seeds
func NewLedger(specs []AccountSpec) *Ledger {
	l := &Ledger{accounts: make([]*account, 0, len(specs))}

	for i, spec := range specs {
		l.accounts = append(l.accounts, &account{
			id:       int32(i),
			name:     spec.Name,
			balance:  spec.Balance,
			holdings: make(map[int32]int64),
		})
	}

	return l
}

// Len returns the number of accounts
func (l *Ledger) Len() int {
	return len(l.accounts)
}

// Has reports whether a trader id is registered
func (l *Ledger) Has(id int32) bool {
	return id >= 0 && int(id) < len(l.accounts)
}

// View returns a snapshot of one account
func (l *Ledger) View(id int32) (AccountView, error) {
	if !l.Has(id) {
		return AccountView{}, ErrUnknownTrader
	}

	a := l.accounts[id]
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view(), nil
}

// Views returns snapshots of every account
func (l *Ledger) Views() []AccountView {
	views := make([]AccountView, 0, len(l.accounts))
	for _, a := range l.accounts {
		a.mu.Lock()
		views = append(views, a.view())
		a.mu.Unlock()
	}
	return views
}

// Grant credits holdings to an account outside the fill path, used to seed
// initial positions.
func (l *Ledger) Grant(id, instrumentID int32, quantity int64) error {
	if !l.Has(id) {
		return ErrUnknownTrader
	}

	a := l.accounts[id]
	a.mu.Lock()
	defer a.mu.Unlock()
	a.holdings[instrumentID] += quantity
	return nil
}

func (l *Ledger) lock(id int32) *account {
	a := l.accounts[id]
	a.mu.Lock()
	return a
}
