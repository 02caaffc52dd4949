package faultdemo

import (
	"testing"
)

// Only the synchronized variant runs under test; the unsynchronized one
// exists to trip the race on purpose and belongs to the racedemo command.
func TestSynchronizedRunLosesNothing(t *testing.T) {
	r := Run(Config{Workers: 4, OpsPerWorker: 200, Synchronized: true})

	if r.Final != r.Expected {
		t.Fatalf("final = %d, want %d", r.Final, r.Expected)
	}
	if r.LostUpdates != 0 {
		t.Fatalf("lost updates = %d, want 0", r.LostUpdates)
	}
	if len(r.Accesses) != 2*4*200 {
		t.Errorf("access log entries = %d, want %d", len(r.Accesses), 2*4*200)
	}
}

func TestAccessLogIsChronological(t *testing.T) {
	r := Run(Config{Workers: 2, OpsPerWorker: 50, Synchronized: true})

	for i := 1; i < len(r.Accesses); i++ {
		if r.Accesses[i].At < r.Accesses[i-1].At {
			t.Fatalf("access %d out of order: %d < %d", i, r.Accesses[i].At, r.Accesses[i-1].At)
		}
	}
}

func TestCountInterleavings(t *testing.T) {
	// w0 reads, w1 reads inside w0's window, both write
	accesses := []Access{
		{Worker: 0, Kind: AccessRead, Value: 0, At: 1},
		{Worker: 1, Kind: AccessRead, Value: 0, At: 2},
		{Worker: 0, Kind: AccessWrite, Value: 1, At: 3},
		{Worker: 1, Kind: AccessWrite, Value: 1, At: 4},
	}

	if got := countInterleavings(accesses); got != 2 {
		t.Errorf("countInterleavings() = %d, want 2", got)
	}

	// Cleanly serialized windows interleave nothing
	serial := []Access{
		{Worker: 0, Kind: AccessRead, Value: 0, At: 1},
		{Worker: 0, Kind: AccessWrite, Value: 1, At: 2},
		{Worker: 1, Kind: AccessRead, Value: 1, At: 3},
		{Worker: 1, Kind: AccessWrite, Value: 2, At: 4},
	}
	if got := countInterleavings(serial); got != 0 {
		t.Errorf("countInterleavings(serial) = %d, want 0", got)
	}
}
