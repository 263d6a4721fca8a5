package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"techline/models"
)

// Expirable holds time-bounded pending state that must be swept.
type Expirable interface {
	ExpireStale(now time.Time) int
}

// ReaperWorker periodically drops expired previews from the services that
// hold them. A preview that outlives its TTL must never be committable, and
// the sweep is what enforces that for users who simply walk away.
type ReaperWorker struct {
	targets   []Expirable
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewReaperWorker(targets ...Expirable) *ReaperWorker {
	return &ReaperWorker{
		targets:   targets,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *ReaperWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes an immediate sweep.
func (w *ReaperWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the reaper loop.
func (w *ReaperWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reaper worker stopping")
			return
		case <-ticker.C:
			w.sweep()
		case <-w.triggerCh:
			log.Println("Reaper worker triggered manually")
			w.sweep()
		}
	}
}

func (w *ReaperWorker) sweep() {
	now := time.Now()
	total := 0
	for _, target := range w.targets {
		total += target.ExpireStale(now)
	}
	if total > 0 {
		log.Printf("Reaper: dropped %d expired preview(s)", total)
		w.logFunc(models.LogLevelInfo, fmt.Sprintf("Dropped %d expired preview(s)", total))
	}
}
