// Package trader implements the simulated trading agents that feed the
// pipeline. Each agent runs a profile-driven strategy on its own pace and
// submits orders through the configured order path.
package trader

import "time"

// Profile describes one trading temperament
type Profile struct {
	// Name identifies the profile in logs and reports
	Name string
	// Interval is the mean pause between trading decisions
	Interval time.Duration
	// MaxOrders caps the orders one agent submits per session.
	// Zero means unlimited.
	MaxOrders int
	// Aggressiveness in [0,1] scales trade probability and limit offsets
	Aggressiveness float64
	// MeanQuantity is the typical order size
	MeanQuantity int64
	// PreferredSymbols restricts the agent to a subset of instruments.
	// Empty means the whole market.
	PreferredSymbols []string
}

// Conservative trades rarely, in small size, close to the market
func Conservative() Profile {
	return Profile{
		Name:             "conservative",
		Interval:         2 * time.Second,
		MaxOrders:        20,
		Aggressiveness:   0.3,
		MeanQuantity:     100,
		PreferredSymbols: []string{"ITUB4", "BBAS3", "WEGE3"},
	}
}

// Aggressive trades often and in size
func Aggressive() Profile {
	return Profile{
		Name:           "aggressive",
		Interval:       500 * time.Millisecond,
		MaxOrders:      100,
		Aggressiveness: 0.8,
		MeanQuantity:   500,
	}
}

// DayTrader churns mid-size positions on short-term moves
func DayTrader() Profile {
	return Profile{
		Name:             "day-trader",
		Interval:         800 * time.Millisecond,
		MaxOrders:        60,
		Aggressiveness:   0.9,
		MeanQuantity:     200,
		PreferredSymbols: []string{"PETR4", "VALE3", "MGLU3", "GGBR4"},
	}
}
