// Package faultdemo demonstrates the lost-update race that motivates the
// locking discipline used everywhere else in the system. Workers apply
// read-modify-write increments to a shared balance, either unsynchronized
// through private copies or under a mutex, and every access is timestamped
// so interleavings can be replayed from the report.
package faultdemo

import (
	"sort"
	"sync"
	"time"
)

// AccessKind distinguishes reads from writes in the access log
type AccessKind int

// Access kinds
const (
	AccessRead AccessKind = iota
	AccessWrite
)

// String returns the access kind name
func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "READ"
	case AccessWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Access is one logged balance access
type Access struct {
	Worker int
	Kind   AccessKind
	Value  int64
	At     int64 // nanoseconds
}

// Report summarizes one demo run
type Report struct {
	Workers       int
	OpsPerWorker  int
	Expected      int64
	Final         int64
	LostUpdates   int64
	Synchronized  bool
	Elapsed       time.Duration
	Accesses      []Access
	Interleavings int64
}

// Config tunes a demo run
type Config struct {
	Workers      int
	OpsPerWorker int
	// Synchronized guards the balance with a mutex, eliminating the race
	Synchronized bool
	// HoldTime widens the read-to-write window so unsynchronized runs lose
	// updates reliably even on fast machines
	HoldTime time.Duration
}

// DefaultConfig returns a run that loses updates dependably
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		OpsPerWorker: 500,
		HoldTime:     time.Microsecond,
	}
}

type accessLog struct {
	mu       sync.Mutex
	accesses []Access
}

func (l *accessLog) add(worker int, kind AccessKind, value int64) {
	l.mu.Lock()
	l.accesses = append(l.accesses, Access{
		Worker: worker,
		Kind:   kind,
		Value:  value,
		At:     time.Now().UnixNano(),
	})
	l.mu.Unlock()
}

// Run executes the demo and returns the report. Each of the increments adds
// exactly 1, so the expected final balance is Workers * OpsPerWorker; any
// shortfall is a lost update.
func Run(cfg Config) Report {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.OpsPerWorker <= 0 {
		cfg.OpsPerWorker = 500
	}

	var (
		balance int64
		mu      sync.Mutex
		log     accessLog
		wg      sync.WaitGroup
	)

	start := time.Now()

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			for i := 0; i < cfg.OpsPerWorker; i++ {
				if cfg.Synchronized {
					mu.Lock()
					local := balance
					log.add(worker, AccessRead, local)
					balance = local + 1
					log.add(worker, AccessWrite, local+1)
					mu.Unlock()
					continue
				}

				// The race: each worker increments a private copy, so two
				// workers reading the same value write the same value back
				// and one increment vanishes.
				local := balance
				log.add(worker, AccessRead, local)
				if cfg.HoldTime > 0 {
					time.Sleep(cfg.HoldTime)
				}
				balance = local + 1
				log.add(worker, AccessWrite, local+1)
			}
		}(w)
	}

	wg.Wait()
	elapsed := time.Since(start)

	expected := int64(cfg.Workers) * int64(cfg.OpsPerWorker)

	sort.Slice(log.accesses, func(i, j int) bool { return log.accesses[i].At < log.accesses[j].At })

	return Report{
		Workers:       cfg.Workers,
		OpsPerWorker:  cfg.OpsPerWorker,
		Expected:      expected,
		Final:         balance,
		LostUpdates:   expected - balance,
		Synchronized:  cfg.Synchronized,
		Elapsed:       elapsed,
		Accesses:      log.accesses,
		Interleavings: countInterleavings(log.accesses),
	}
}

// countInterleavings counts read-to-write windows that another worker's
// access landed inside, the direct cause of every lost update.
func countInterleavings(accesses []Access) int64 {
	var count int64

	pendingRead := make(map[int]int) // worker -> index of unmatched read
	for i, a := range accesses {
		if a.Kind == AccessRead {
			pendingRead[a.Worker] = i
			continue
		}

		readIdx, ok := pendingRead[a.Worker]
		if !ok {
			continue
		}
		delete(pendingRead, a.Worker)

		for j := readIdx + 1; j < i; j++ {
			if accesses[j].Worker != a.Worker {
				count++
				break
			}
		}
	}

	return count
}
