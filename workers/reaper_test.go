package workers

import (
	"testing"
	"time"

	"techline/models"
)

type fakeExpirable struct {
	dropped int
	calls   int
}

func (f *fakeExpirable) ExpireStale(now time.Time) int {
	f.calls++
	return f.dropped
}

func TestReaperSweepVisitsAllTargets(t *testing.T) {
	a := &fakeExpirable{dropped: 2}
	b := &fakeExpirable{dropped: 0}

	logged := 0
	w := NewReaperWorker(a, b)
	w.SetLogger(func(level models.LogLevel, message string) { logged++ })

	w.sweep()

	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("expected one sweep per target, got %d and %d", a.calls, b.calls)
	}
	if logged != 1 {
		t.Fatalf("expected one log line for a non-empty sweep, got %d", logged)
	}

	// Nothing expired, nothing logged.
	a.dropped, b.dropped = 0, 0
	w.sweep()
	if logged != 1 {
		t.Fatalf("empty sweep must not log, got %d", logged)
	}
}

func TestReaperTriggerDoesNotBlock(t *testing.T) {
	w := NewReaperWorker()

	// Repeated triggers without a running loop must never block.
	w.Trigger()
	w.Trigger()
	w.Trigger()
}
