package marketdata

import (
	"math/rand"

	"github.com/quantsim/tradesim/pkg/core"
)

// Drifter models external market movement: small random perturbations
// applied periodically to every instrument, independent of order flow.
type Drifter interface {
	// Perturb returns a candidate price for the instrument. The caller is
	// responsible for validating it before applying.
	Perturb(cur core.InstrumentView) float64
}

// RandomWalk perturbs prices by a uniform step of up to ±maxStep,
// scaled by the instrument's base volatility relative to 2.5%.
type RandomWalk struct {
	rng     *rand.Rand
	maxStep float64
}

// NewRandomWalk creates a RandomWalk with an injectable random source.
// maxStep defaults to 1%.
func NewRandomWalk(rng *rand.Rand, maxStep float64) *RandomWalk {
	if maxStep <= 0 {
		maxStep = 0.01
	}
	return &RandomWalk{rng: rng, maxStep: maxStep}
}

// Perturb implements Drifter
func (w *RandomWalk) Perturb(cur core.InstrumentView) float64 {
	step := (w.rng.Float64()*2 - 1) * w.maxStep

	// Jumpier instruments drift harder
	if cur.BaseVol > 0 {
		step *= cur.BaseVol / 0.025
	}

	return cur.Price * (1 + step)
}

var _ Drifter = (*RandomWalk)(nil)
