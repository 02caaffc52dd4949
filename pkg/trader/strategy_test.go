package trader

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantsim/tradesim/pkg/core"
)

func marketViews(change float64) []core.InstrumentView {
	return []core.InstrumentView{
		{ID: 0, Symbol: "PETR4", Sector: "Oil", Price: 25.50, Change: change},
	}
}

func TestProbabilityModel(t *testing.T) {
	tests := []struct {
		name           string
		base           float64
		move           float64
		aggressiveness float64
		cap            float64
		want           float64
	}{
		{"flat market base buy", 0.3, 0, 0.3, 0.9, 0.39},
		{"small dip boosts buy", 0.3, 0.015, 0.3, 0.9, 0.65},
		{"big dip boosts buy harder", 0.3, 0.025, 0.3, 0.9, 0.91},
		{"cap binds", 0.3, 0.025, 0.9, 0.9, 0.9},
		{"flat market base sell", 0.2, 0, 0.8, 0.8, 0.36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := probability(tt.base, tt.move, tt.aggressiveness, tt.cap)
			if tt.want <= tt.cap {
				assert.InDelta(t, tt.want, got, 1e-9)
			} else {
				assert.InDelta(t, tt.cap, got, 1e-9)
			}
		})
	}
}

func TestDecideIsDeterministicForSeed(t *testing.T) {
	holdings := map[int32]int64{0: 500}

	a := NewContrarian(Aggressive(), rand.New(rand.NewSource(42)))
	b := NewContrarian(Aggressive(), rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		ia := a.Decide(marketViews(-0.03), holdings)
		ib := b.Decide(marketViews(-0.03), holdings)
		require.Equal(t, ia == nil, ib == nil, "round %d", i)
		if ia != nil {
			assert.Equal(t, *ia, *ib, "round %d", i)
		}
	}
}

func TestDecideNeverSellsWithoutHoldings(t *testing.T) {
	s := NewContrarian(Aggressive(), rand.New(rand.NewSource(7)))

	// A strong rally makes selling maximally attractive
	for i := 0; i < 200; i++ {
		intent := s.Decide(marketViews(0.05), map[int32]int64{})
		if intent != nil {
			assert.Equal(t, core.Buy, intent.Side, "round %d", i)
		}
	}
}

func TestDecideSellCappedByPosition(t *testing.T) {
	s := NewContrarian(Aggressive(), rand.New(rand.NewSource(7)))
	holdings := map[int32]int64{0: 42}

	for i := 0; i < 500; i++ {
		intent := s.Decide(marketViews(0.05), holdings)
		if intent == nil || intent.Side != core.Sell {
			continue
		}
		assert.LessOrEqual(t, intent.Quantity, int64(42))
		assert.Less(t, intent.Price, 25.50, "sells must offer below the market")
		return
	}
	t.Fatal("no sell intent produced in 500 rounds of a rallying market")
}

func TestDecideRespectsPreferredSymbols(t *testing.T) {
	views := []core.InstrumentView{
		{ID: 0, Symbol: "PETR4", Sector: "Oil", Price: 25.50, Change: -0.03},
		{ID: 1, Symbol: "ITUB4", Sector: "Banking", Price: 32.15, Change: -0.03},
	}
	holdings := map[int32]int64{0: 100, 1: 100}

	profile := Aggressive()
	profile.PreferredSymbols = []string{"ITUB4"}
	s := NewContrarian(profile, rand.New(rand.NewSource(3)))

	for i := 0; i < 100; i++ {
		if intent := s.Decide(views, holdings); intent != nil {
			assert.Equal(t, int32(1), intent.InstrumentID, "round %d", i)
		}
	}
}

func TestDecideNoCandidates(t *testing.T) {
	profile := Conservative()
	profile.PreferredSymbols = []string{"NOPE3"}
	s := NewContrarian(profile, rand.New(rand.NewSource(3)))

	assert.Nil(t, s.Decide(marketViews(0), nil))
}

func TestFleetProfiles(t *testing.T) {
	cfg := &Config{NumConservative: 1, NumAggressive: 2, NumDayTraders: 1}

	profiles := cfg.FleetProfiles()
	require.Len(t, profiles, 4)
	assert.Equal(t, "conservative", profiles[0].Name)
	assert.Equal(t, "aggressive", profiles[1].Name)
	assert.Equal(t, "aggressive", profiles[2].Name)
	assert.Equal(t, "day-trader", profiles[3].Name)
	assert.Equal(t, 4, cfg.FleetSize())
}

func TestConfigValidation(t *testing.T) {
	err := validateConfig(&Config{})
	assert.Error(t, err, "empty fleet must be rejected")

	err = validateConfig(&Config{NumAggressive: -1, NumConservative: 2})
	assert.Error(t, err)

	err = validateConfig(&Config{NumConservative: 1, SessionOrderCap: -5})
	assert.Error(t, err)

	err = validateConfig(&Config{NumConservative: 1})
	assert.NoError(t, err)
}
