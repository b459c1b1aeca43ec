package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRunnerExecutesJobs(t *testing.T) {
	runner := NewRunner(2, 16, nil)

	var mu sync.Mutex
	seen := make([]string, 0, 3)

	runner.Register("record", func(_ context.Context, payload any) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, payload.(string))
		return nil
	})
	runner.Start()

	for _, v := range []string{"a", "b", "c"} {
		if err := runner.Enqueue(context.Background(), "record", v); err != nil {
			t.Fatalf("Enqueue(%q) returned error: %v", v, err)
		}
	}
	runner.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("expected 3 executed jobs, got %d", len(seen))
	}

	stats := runner.GetStats()
	if stats.Processed != 3 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRunnerUnknownJob(t *testing.T) {
	runner := NewRunner(1, 4, nil)
	runner.Start()
	defer runner.Stop()

	if err := runner.Enqueue(context.Background(), "missing", nil); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("expected ErrUnknownJob, got %v", err)
	}
}

func TestRunnerQueueFull(t *testing.T) {
	runner := NewRunner(1, 1, nil)

	block := make(chan struct{})
	runner.Register("block", func(_ context.Context, _ any) error {
		<-block
		return nil
	})
	runner.Start()

	// First job occupies the worker, second fills the buffer.
	_ = runner.Enqueue(context.Background(), "block", nil)
	time.Sleep(20 * time.Millisecond)
	_ = runner.Enqueue(context.Background(), "block", nil)

	err := runner.Enqueue(context.Background(), "block", nil)
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
	runner.Stop()
}

func TestRunnerCountsFailures(t *testing.T) {
	runner := NewRunner(1, 4, nil)
	runner.Register("fail", func(_ context.Context, _ any) error {
		return errors.New("boom")
	})
	runner.Start()

	if err := runner.Enqueue(context.Background(), "fail", nil); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	runner.Stop()

	stats := runner.GetStats()
	if stats.Failed != 1 {
		t.Errorf("expected 1 failed job, got %d", stats.Failed)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	runner := NewRunner(1, 4, nil)
	runner.Register("noop", func(_ context.Context, _ any) error { return nil })
	runner.Start()
	runner.Stop()

	if err := runner.Enqueue(context.Background(), "noop", nil); !errors.Is(err, ErrRunnerStopped) {
		t.Errorf("expected ErrRunnerStopped, got %v", err)
	}
}

func TestEnqueueDuringStopDoesNotPanic(t *testing.T) {
	runner := NewRunner(2, 8, nil)
	runner.Register("noop", func(_ context.Context, _ any) error { return nil })
	runner.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Errors are expected once Stop lands; panics are not.
			for j := 0; j < 100; j++ {
				_ = runner.Enqueue(context.Background(), "noop", nil)
			}
		}()
	}

	runner.Stop()
	wg.Wait()
}

func TestSyncQueueRunsInline(t *testing.T) {
	q := NewSyncQueue()

	ran := false
	q.Register("inline", func(_ context.Context, _ any) error {
		ran = true
		return nil
	})

	if err := q.Enqueue(context.Background(), "inline", nil); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if !ran {
		t.Error("handler did not run inline")
	}
}
