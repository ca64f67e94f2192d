package quota

import (
	"sync"
	"sync/atomic"
	"testing"

	"focalai/internal/tester"
)

func TestTrackerCeiling(t *testing.T) {
	tr := New(2)
	tester.True(t, tr.HasBudget(), "fresh tracker has budget")
	tester.True(t, tr.TryConsume(), "first call")
	tester.True(t, tr.TryConsume(), "second call")
	tester.False(t, tr.TryConsume(), "ceiling reached")
	tester.Eq(t, tr.Calls(), 2)
	tester.Eq(t, tr.State(), ExhaustedByCeiling)
	tester.False(t, tr.HasBudget(), "no budget after ceiling")
}

func TestTrackerZeroCeilingStartsExhausted(t *testing.T) {
	tr := New(0)
	tester.False(t, tr.HasBudget(), "zero ceiling")
	tester.Eq(t, tr.State(), ExhaustedByCeiling)
	tester.False(t, tr.TryConsume(), "nothing to consume")
	tester.Eq(t, tr.Calls(), 0)
}

func TestTrackerLatchIsTerminal(t *testing.T) {
	tr := New(10)
	tester.True(t, tr.TryConsume(), "consume one")
	tr.Latch()
	tester.Eq(t, tr.State(), ExhaustedBySignal)
	tester.False(t, tr.HasBudget(), "latched tracker has no budget")
	tester.Eq(t, tr.Calls(), 1, "latch does not touch the counter")

	tr.Consume()
	tester.Eq(t, tr.State(), ExhaustedBySignal, "consume never un-exhausts")
	tester.Eq(t, tr.Calls(), 2)
}

func TestTrackerConcurrentTryConsumeNeverOvershoots(t *testing.T) {
	tr := New(7)
	var wg sync.WaitGroup
	var granted int64
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.TryConsume() {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()
	tester.Eq(t, granted, int64(7), "exactly ceiling calls granted")
	tester.Eq(t, tr.Calls(), 7)
}

func TestStateString(t *testing.T) {
	tester.Eq(t, Available.String(), "available")
	tester.Eq(t, ExhaustedBySignal.String(), "exhausted_by_signal")
	tester.Eq(t, State(9).String(), "state(9)")
}
