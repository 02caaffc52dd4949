package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/quantsim/tradesim/pkg/arbitrage"
	"github.com/quantsim/tradesim/pkg/core"
	"github.com/quantsim/tradesim/pkg/metrics"
)

// printReport writes the end-of-session summary to stdout
func printReport(market *core.Market, counters metrics.CountersSnapshot, latencies []metrics.StageSummary, arb arbitrage.Stats, resolved []arbitrage.Opportunity) {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	yellow := color.New(color.FgYellow).SprintfFunc()

	fmt.Println()
	fmt.Println(cyan("=== Session Summary ==="))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Orders submitted:\t%d\t\n", counters.OrdersSubmitted)
	fmt.Fprintf(w, "Orders executed:\t%s\t\n", green("%d", counters.OrdersAccepted))
	fmt.Fprintf(w, "Orders rejected:\t%s\t\n", red("%d", counters.OrdersRejected))
	fmt.Fprintf(w, "Acceptance rate:\t%.1f%%\t\n", counters.AcceptanceRate()*100)
	fmt.Fprintf(w, "Price updates:\t%d\t\n", counters.PriceUpdates)
	fmt.Fprintf(w, "Price rejections:\t%d\t\n", counters.PriceRejections)
	w.Flush()

	fmt.Println()
	fmt.Println(cyan("=== Instruments ==="))
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Symbol\tPrice\tChange\tDay High\tDay Low\tVolume\tTrades\t")
	for _, v := range market.Registry.Views() {
		change := fmt.Sprintf("%+.2f%%", v.Change*100)
		if v.Change > 0 {
			change = green("%s", change)
		} else if v.Change < 0 {
			change = red("%s", change)
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%.2f\t%.2f\t%d\t%d\t\n",
			v.Symbol, v.Price, change, v.DayHigh, v.DayLow, v.Volume, v.Trades)
	}
	w.Flush()

	fmt.Println()
	fmt.Println(cyan("=== Accounts ==="))
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Trader\tBalance\tPositions\t")
	for _, a := range market.Ledger.Views() {
		positions := 0
		for _, qty := range a.Holdings {
			if qty > 0 {
				positions++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t\n", a.Name, a.Balance.String(), positions)
	}
	w.Flush()

	if len(latencies) > 0 {
		fmt.Println()
		fmt.Println(cyan("=== Stage Latencies ==="))
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "Stage\tCount\tp50\tp99\tmax\t")
		for _, s := range latencies {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t\n", s.Stage, s.Count, s.P50, s.P99, s.Max)
		}
		w.Flush()
	}

	fmt.Println()
	fmt.Println(cyan("=== Arbitrage ==="))
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Opportunities detected:\t%d\t\n", arb.Detected)
	fmt.Fprintf(w, "Executed:\t%d\t\n", arb.Executed)
	fmt.Fprintf(w, "Expired:\t%d\t\n", arb.Expired)
	fmt.Fprintf(w, "Largest spread:\t%s\t\n", yellow("%.2f%%", arb.LargestSpread*100))
	fmt.Fprintf(w, "Potential profit/unit:\t%.4f\t\n", arb.PotentialProfit)
	fmt.Fprintf(w, "Realized profit/unit:\t%.4f\t\n", arb.RealizedProfit)
	w.Flush()

	if len(resolved) > 0 {
		fmt.Println()
		fmt.Println(cyan("=== Resolved Opportunities ==="))
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "ID\tBuy\tSell\tSpread\tState\tDetected\t")
		for _, opp := range resolved {
			buy, sell := symbolFor(market, opp.BuyInstrumentID), symbolFor(market, opp.SellInstrumentID)
			state := opp.State.String()
			if opp.State == arbitrage.StateExecuted {
				state = green("%s", state)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f%%\t%s\t%s\t\n",
				opp.ID, buy, sell, opp.Spread*100, state, opp.DetectedAt.Format("15:04:05"))
		}
		w.Flush()
	}
}

func symbolFor(market *core.Market, id int32) string {
	v, err := market.Registry.View(id)
	if err != nil {
		return fmt.Sprintf("#%d", id)
	}
	return v.Symbol
}
