package otel

import (
	"context"
	"sync"
	"testing"
)

// All pipeline stages hit the singleton concurrently on their first events,
// so the first use must be safe from any number of goroutines.
func TestGetPipelineMetricsConcurrentFirstUse(t *testing.T) {
	const goroutines = 8

	results := make([]*PipelineMetrics, goroutines)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()

			m := GetPipelineMetrics()
			m.RecordExecutedOrder(context.Background(), "BUY")
			m.RecordRejectedOrder(context.Background(), "insufficient funds")
			m.RecordPriceUpdate(context.Background(), "PETR4")
			m.RecordOpportunity(context.Background(), "Banking")
			results[i] = m
		}(i)
	}
	start.Done()
	done.Wait()

	if results[0] == nil {
		t.Fatal("GetPipelineMetrics() returned nil")
	}
	for i := 1; i < goroutines; i++ {
		if results[i] != results[0] {
			t.Errorf("goroutine %d received a different instance", i)
		}
	}
}
