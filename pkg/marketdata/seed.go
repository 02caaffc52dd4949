// Package marketdata supplies initial instrument prices and the periodic
// external price perturbations the simulation feeds into the pipeline.
package marketdata

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/quantsim/tradesim/pkg/core"
)

// Seed instruments: B3 large caps with approximate real-world reference
// prices and historical volatilities.
var seedInstruments = []core.InstrumentSpec{
	{Symbol: "PETR4", Sector: "Oil", Price: 25.50, Volatility: 0.025},
	{Symbol: "VALE3", Sector: "Mining", Price: 68.30, Volatility: 0.035},
	{Symbol: "ITUB4", Sector: "Banking", Price: 32.15, Volatility: 0.020},
	{Symbol: "ABEV3", Sector: "Beverages", Price: 14.20, Volatility: 0.030},
	{Symbol: "BBAS3", Sector: "Banking", Price: 45.80, Volatility: 0.022},
	{Symbol: "BBDC4", Sector: "Banking", Price: 15.80, Volatility: 0.028},
	{Symbol: "WEGE3", Sector: "Industrial", Price: 45.90, Volatility: 0.018},
	{Symbol: "RENT3", Sector: "Rental", Price: 55.40, Volatility: 0.032},
	{Symbol: "LREN3", Sector: "Retail", Price: 18.75, Volatility: 0.040},
	{Symbol: "MGLU3", Sector: "Retail", Price: 3.25, Volatility: 0.050},
	{Symbol: "JBSS3", Sector: "Food", Price: 22.10, Volatility: 0.038},
	{Symbol: "SUZB3", Sector: "Pulp", Price: 35.60, Volatility: 0.042},
	{Symbol: "GGBR4", Sector: "Steel", Price: 28.45, Volatility: 0.045},
}

// Instruments returns the seed instrument table
func Instruments() []core.InstrumentSpec {
	specs := make([]core.InstrumentSpec, len(seedInstruments))
	copy(specs, seedInstruments)
	return specs
}

// Accounts returns n trader accounts, each seeded with the given cash
// balance.
func Accounts(n int, balance float64) []core.AccountSpec {
	specs := make([]core.AccountSpec, n)
	for i := range specs {
		specs[i] = core.AccountSpec{
			Name:    traderName(i),
			Balance: fpdecimal.FromFloat(balance),
		}
	}
	return specs
}

func traderName(i int) string {
	names := []string{"Alice", "Bruno", "Clara", "Diego", "Elena", "Fabio"}
	if i < len(names) {
		return names[i]
	}
	// Larger fleets reuse the base names with an index suffix so report
	// rows stay distinguishable
	return fmt.Sprintf("%s-%d", names[i%len(names)], i)
}
