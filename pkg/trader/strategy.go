package trader

import (
	"math/rand"

	"github.com/quantsim/tradesim/pkg/core"
)

// OrderIntent is a strategy's decision to trade
type OrderIntent struct {
	InstrumentID int32
	Side         core.Side
	Price        float64
	Quantity     int64
}

// Strategy decides whether and what to trade given the current market.
// Returning nil means sit this round out.
type Strategy interface {
	Decide(views []core.InstrumentView, holdings map[int32]int64) *OrderIntent
}

// Trade probability model: contrarian on short-term moves. Buying gets more
// likely the harder an instrument just fell, selling the harder it rose, and
// aggressiveness scales both. Probabilities are capped so no profile trades
// on every tick.
const (
	buyBaseProb  = 0.3
	sellBaseProb = 0.2
	buyProbCap   = 0.9
	sellProbCap  = 0.8
)

// Contrarian is the default strategy shared by all profiles, parameterized
// by the profile's aggressiveness. Not safe for concurrent use; each agent
// owns one instance with its own random source.
type Contrarian struct {
	profile Profile
	rng     *rand.Rand
}

// NewContrarian creates a strategy with an injectable random source
func NewContrarian(profile Profile, rng *rand.Rand) *Contrarian {
	return &Contrarian{profile: profile, rng: rng}
}

// Decide implements Strategy. One candidate instrument is drawn from the
// profile's preferred set, its recent move is turned into buy and sell
// probabilities and a single die roll picks the action.
func (s *Contrarian) Decide(views []core.InstrumentView, holdings map[int32]int64) *OrderIntent {
	candidates := s.filter(views)
	if len(candidates) == 0 {
		return nil
	}

	v := candidates[s.rng.Intn(len(candidates))]

	buyProb := probability(buyBaseProb, -v.Change, s.profile.Aggressiveness, buyProbCap)
	sellProb := probability(sellBaseProb, v.Change, s.profile.Aggressiveness, sellProbCap)

	// Can't sell what we don't hold
	if holdings[v.ID] <= 0 {
		sellProb = 0
	}

	roll := s.rng.Float64()
	switch {
	case roll < buyProb:
		return s.intent(v, core.Buy, holdings)
	case roll < buyProb+sellProb:
		return s.intent(v, core.Sell, holdings)
	default:
		return nil
	}
}

// probability folds a recent favorable move into the base probability.
// move is the relative change in the favorable direction.
func probability(base, move, aggressiveness, cap float64) float64 {
	p := base
	if move > 0.02 {
		p += 0.4
	} else if move > 0.01 {
		p += 0.2
	}

	p *= 1 + aggressiveness
	if p > cap {
		p = cap
	}
	return p
}

func (s *Contrarian) filter(views []core.InstrumentView) []core.InstrumentView {
	if len(s.profile.PreferredSymbols) == 0 {
		return views
	}

	preferred := make(map[string]bool, len(s.profile.PreferredSymbols))
	for _, sym := range s.profile.PreferredSymbols {
		preferred[sym] = true
	}

	out := views[:0:0]
	for _, v := range views {
		if preferred[v.Symbol] {
			out = append(out, v)
		}
	}
	return out
}

// intent prices the order near the market with an aggressiveness-scaled
// offset and sizes it around the profile's mean quantity.
func (s *Contrarian) intent(v core.InstrumentView, side core.Side, holdings map[int32]int64) *OrderIntent {
	// Buyers bid above, sellers offer below, to cross quickly
	offset := (0.005 + 0.015*s.profile.Aggressiveness) * s.rng.Float64()
	price := v.Price * (1 + offset)
	if side == core.Sell {
		price = v.Price * (1 - offset)
	}

	qty := int64(float64(s.profile.MeanQuantity) * (0.5 + s.rng.Float64()))
	if qty < 1 {
		qty = 1
	}
	if side == core.Sell && qty > holdings[v.ID] {
		qty = holdings[v.ID]
	}

	return &OrderIntent{
		InstrumentID: v.ID,
		Side:         side,
		Price:        price,
		Quantity:     qty,
	}
}

var _ Strategy = (*Contrarian)(nil)
