// Command racedemo runs the lost-update demonstration twice, once without
// synchronization and once under a mutex, and prints both reports with a
// tail of the interleaved access log.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/quantsim/tradesim/pkg/faultdemo"
)

var (
	workers  = flag.Int("workers", 4, "Number of concurrent workers")
	ops      = flag.Int("ops", 500, "Increments per worker")
	logTail  = flag.Int("log_tail", 12, "Access log entries to print")
	holdTime = flag.Duration("hold", time.Microsecond, "Read-to-write hold time")
)

func main() {
	flag.Parse()

	cfg := faultdemo.Config{
		Workers:      *workers,
		OpsPerWorker: *ops,
		HoldTime:     *holdTime,
	}

	unsync := faultdemo.Run(cfg)

	cfg.Synchronized = true
	synced := faultdemo.Run(cfg)

	printReport("Unsynchronized", unsync, *logTail)
	printReport("Mutex-protected", synced, *logTail)
}

func printReport(title string, r faultdemo.Report, tail int) {
	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()

	fmt.Println()
	fmt.Println(cyan("=== %s ===", title))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Workers:\t%d\t\n", r.Workers)
	fmt.Fprintf(w, "Increments:\t%d\t\n", r.Expected)
	fmt.Fprintf(w, "Final balance:\t%d\t\n", r.Final)

	lost := green("%d", r.LostUpdates)
	if r.LostUpdates > 0 {
		lost = red("%d", r.LostUpdates)
	}
	fmt.Fprintf(w, "Lost updates:\t%s\t\n", lost)
	fmt.Fprintf(w, "Interleaved windows:\t%d\t\n", r.Interleavings)
	fmt.Fprintf(w, "Elapsed:\t%s\t\n", r.Elapsed)
	w.Flush()

	if tail <= 0 || len(r.Accesses) == 0 {
		return
	}
	if tail > len(r.Accesses) {
		tail = len(r.Accesses)
	}

	fmt.Println()
	fmt.Println("Last accesses:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "ns\tworker\top\tvalue\t")
	for _, a := range r.Accesses[len(r.Accesses)-tail:] {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t\n", a.At, a.Worker, a.Kind, a.Value)
	}
	w.Flush()
}
