package core

import (
	"math"
	"sync"
)

// InstrumentSpec seeds one instrument at registry construction
type InstrumentSpec struct {
	Symbol     string
	Sector     string
	Price      float64
	Volatility float64
}

// InstrumentView is a read-only snapshot of an instrument's state
type InstrumentView struct {
	ID        int32
	Symbol    string
	Sector    string
	Price     float64
	PrevPrice float64
	Change    float64
	DayHigh   float64
	DayLow    float64
	BaseVol   float64
	Volume    int64
	Trades    int64
}

// VolatilityScore is the execution-stage risk score: the magnitude of the
// last relative price change plus a volume component capped at 10%.
func (v InstrumentView) VolatilityScore() float64 {
	score := math.Abs(v.Change)

	volumeComponent := float64(v.Volume) / 1000.0
	if volumeComponent > 0.1 {
		volumeComponent = 0.1
	}

	return score + volumeComponent
}

type instrument struct {
	mu sync.Mutex

	id        int32
	symbol    string
	sector    string
	price     float64
	prevPrice float64
	change    float64
	dayHigh   float64
	dayLow    float64
	baseVol   float64
	volume    int64
	trades    int64
}

func (in *instrument) view() InstrumentView {
	return InstrumentView{
		ID:        in.id,
		Symbol:    in.symbol,
		Sector:    in.sector,
		Price:     in.price,
		PrevPrice: in.prevPrice,
		Change:    in.change,
		DayHigh:   in.dayHigh,
		DayLow:    in.dayLow,
		BaseVol:   in.baseVol,
		Volume:    in.volume,
		Trades:    in.trades,
	}
}

// Registry owns per-instrument price and volume state. It is the single
// source of truth for instruments; all reads return snapshots by value.
type Registry struct {
	instruments []*instrument
	bySymbol    map[string]int32
}

// NewRegistry creates a Registry from instrument seeds
func NewRegistry(specs []InstrumentSpec) *Registry {
	r := &Registry{
		instruments: make([]*instrument, 0, len(specs)),
		bySymbol:    make(map[string]int32, len(specs)),
	}

	for i, spec := range specs {
		r.instruments = append(r.instruments, &instrument{
			id:        int32(i),
			symbol:    spec.Symbol,
			sector:    spec.Sector,
			price:     spec.Price,
			prevPrice: spec.Price,
			dayHigh:   spec.Price,
			dayLow:    spec.Price,
			baseVol:   spec.Volatility,
		})
		r.bySymbol[spec.Symbol] = int32(i)
	}

	return r
}

// Len returns the number of registered instruments
func (r *Registry) Len() int {
	return len(r.instruments)
}

// Has reports whether an instrument id is registered
func (r *Registry) Has(id int32) bool {
	return id >= 0 && int(id) < len(r.instruments)
}

// Lookup returns the id for a symbol
func (r *Registry) Lookup(symbol string) (int32, bool) {
	id, ok := r.bySymbol[symbol]
	return id, ok
}

// View returns a snapshot of one instrument
func (r *Registry) View(id int32) (InstrumentView, error) {
	if !r.Has(id) {
		return InstrumentView{}, ErrUnknownInstrument
	}

	in := r.instruments[id]
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.view(), nil
}

// Views returns snapshots of every instrument
func (r *Registry) Views() []InstrumentView {
	views := make([]InstrumentView, 0, len(r.instruments))
	for _, in := range r.instruments {
		in.mu.Lock()
		views = append(views, in.view())
		in.mu.Unlock()
	}
	return views
}

// UpdatePrice atomically recomputes an instrument's price. The decide
// callback receives the current snapshot and returns the candidate price;
// returning false leaves the instrument unchanged. On acceptance the
// previous price, relative change and daily high/low are updated in the
// same critical section.
func (r *Registry) UpdatePrice(id int32, decide func(cur InstrumentView) (float64, bool)) (InstrumentView, bool, error) {
	if !r.Has(id) {
		return InstrumentView{}, false, ErrUnknownInstrument
	}

	in := r.instruments[id]
	in.mu.Lock()
	defer in.mu.Unlock()

	newPrice, ok := decide(in.view())
	if !ok || newPrice <= 0 {
		return in.view(), false, nil
	}

	in.prevPrice = in.price
	in.price = newPrice
	in.change = (newPrice - in.prevPrice) / in.prevPrice

	if newPrice > in.dayHigh {
		in.dayHigh = newPrice
	}
	if newPrice < in.dayLow {
		in.dayLow = newPrice
	}

	return in.view(), true, nil
}

// lock and unlock expose the instrument's mutex to the Market commit path,
// which must take the account lock first.
func (r *Registry) lock(id int32) *instrument {
	in := r.instruments[id]
	in.mu.Lock()
	return in
}
