package taskrunner_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelsync/internal/taskrunner"
)

type flightTracker struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (f *flightTracker) enter() {
	n := f.current.Add(1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (f *flightTracker) leave() { f.current.Add(-1) }

func itemList(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("tt%07d", i+1)
	}
	return items
}

func TestRunNeverExceedsLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 8} {
		for _, n := range []int{0, 1, 5, 40} {
			t.Run(fmt.Sprintf("limit=%d/items=%d", limit, n), func(t *testing.T) {
				tracker := &flightTracker{}
				var attempted sync.Map
				var calls atomic.Int32

				summary := taskrunner.Run(context.Background(), itemList(n), limit, func(ctx context.Context, item string) error {
					tracker.enter()
					defer tracker.leave()
					calls.Add(1)
					if _, dup := attempted.LoadOrStore(item, true); dup {
						t.Errorf("item %s attempted twice", item)
					}
					time.Sleep(2 * time.Millisecond)
					return nil
				})

				if peak := int(tracker.peak.Load()); peak > limit {
					t.Fatalf("peak in flight %d exceeds limit %d", peak, limit)
				}
				if int(calls.Load()) != n {
					t.Fatalf("expected %d attempts, got %d", n, calls.Load())
				}
				if tracker.current.Load() != 0 {
					t.Fatal("Run returned with actions still in flight")
				}
				if summary.Total != n || summary.Succeeded != n || summary.Failed != 0 || summary.Skipped != 0 {
					t.Fatalf("unexpected summary: %+v", summary)
				}
			})
		}
	}
}

func TestRunContainsSingleFailure(t *testing.T) {
	items := itemList(5)
	failing := items[2]

	summary := taskrunner.Run(context.Background(), items, 2, func(ctx context.Context, item string) error {
		if item == failing {
			return errors.New("scrape failed")
		}
		return nil
	})

	if summary.Succeeded != 4 || summary.Failed != 1 || summary.Skipped != 0 || summary.Total != 5 {
		t.Fatalf("expected 4 succeeded and 1 failed, got %+v", summary)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	var outcomes sync.Map
	summary := taskrunner.Run(context.Background(), itemList(3), 3, func(ctx context.Context, item string) error {
		if item == "tt0000002" {
			panic("boom")
		}
		return nil
	}, taskrunner.WithObserver(func(item string, outcome taskrunner.Outcome, _ time.Duration, _ error) {
		outcomes.Store(item, outcome)
	}))

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("expected panic counted as failure, got %+v", summary)
	}
	if got, _ := outcomes.Load("tt0000002"); got != taskrunner.OutcomeFailed {
		t.Fatalf("expected failed outcome for panicking item, got %v", got)
	}
}

func TestRunSkipsItemsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var admitted atomic.Int32
	summary := taskrunner.Run(ctx, itemList(10), 1, func(ctx context.Context, item string) error {
		if admitted.Add(1) == 2 {
			cancel()
		}
		return nil
	})

	if admitted.Load() != 2 {
		t.Fatalf("expected exactly 2 admissions, got %d", admitted.Load())
	}
	if summary.Succeeded != 2 || summary.Skipped != 8 || summary.Failed != 0 {
		t.Fatalf("unexpected summary after cancellation: %+v", summary)
	}
}

func TestRunPreCancelledAdmitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	summary := taskrunner.Run(ctx, itemList(5), 2, func(context.Context, string) error {
		calls.Add(1)
		return nil
	})
	if calls.Load() != 0 {
		t.Fatalf("expected no admissions, got %d", calls.Load())
	}
	if summary.Skipped != 5 {
		t.Fatalf("expected all items skipped, got %+v", summary)
	}
}

func TestRunDefaultsLimitBelowOne(t *testing.T) {
	tracker := &flightTracker{}
	taskrunner.Run(context.Background(), itemList(10), 0, func(context.Context, string) error {
		tracker.enter()
		defer tracker.leave()
		time.Sleep(2 * time.Millisecond)
		return nil
	})
	if peak := tracker.peak.Load(); peak > taskrunner.DefaultLimit {
		t.Fatalf("peak %d exceeds default limit %d", peak, taskrunner.DefaultLimit)
	}
}

func TestRunAdmittedActionOutlivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	started := make(chan struct{})
	var finished atomic.Bool

	done := make(chan taskrunner.Summary)
	go func() {
		done <- taskrunner.Run(ctx, itemList(3), 1, func(context.Context, string) error {
			select {
			case <-started:
			default:
				close(started)
			}
			<-release
			finished.Store(true)
			return nil
		})
	}()

	<-started
	cancel()
	close(release)
	summary := <-done
	if !finished.Load() {
		t.Fatal("admitted action did not run to completion")
	}
	if summary.Succeeded != 1 || summary.Skipped != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
