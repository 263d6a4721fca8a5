package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"techline/config"
	"techline/models"
	"techline/services"
	"techline/storage"
)

const opsLogRetention = 7 * 24 * time.Hour

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Scheduler owns the daemon's periodic work: the cron-driven city-URL
// healthcheck sweep, a nightly ops-log prune, and the operator command poll
// against the operational store.
type Scheduler struct {
	cfg         *config.Config
	store       *storage.SQLiteStore
	healthcheck *services.HealthcheckService
	cron        *cron.Cron
	stopCh      chan struct{}

	mu     sync.Mutex
	paused bool

	reaperWorker Triggerable
}

func New(cfg *config.Config, store *storage.SQLiteStore, healthcheck *services.HealthcheckService) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		store:       store,
		healthcheck: healthcheck,
		cron:        cron.New(),
		stopCh:      make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(reaper Triggerable) {
	s.reaperWorker = reaper
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			s.runHealthcheck(ctx)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	} else {
		log.Println("No healthcheck cron configured, daemon will only respond to commands")
	}

	// Ops log prune, nightly at 03:10
	if _, err := s.cron.AddFunc("10 3 * * *", func() {
		pruned, err := s.store.PruneLogs(opsLogRetention)
		if err != nil {
			log.Printf("Ops log prune error: %v", err)
			return
		}
		if pruned > 0 {
			log.Printf("Pruned %d old ops log line(s)", pruned)
		}
	}); err != nil {
		return fmt.Errorf("prune cron: %w", err)
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Scheduler) runHealthcheck(ctx context.Context) {
	if s.IsPaused() {
		log.Println("Scheduler paused, skipping healthcheck sweep")
		return
	}
	if _, err := s.healthcheck.CheckCityURLs(ctx); err != nil {
		log.Printf("Healthcheck sweep error: %v", err)
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdPause:
		s.mu.Lock()
		s.paused = true
		s.mu.Unlock()
		log.Println("Scheduler paused")
	case models.CmdResume:
		s.mu.Lock()
		s.paused = false
		s.mu.Unlock()
		log.Println("Scheduler resumed")
	case models.CmdHealthcheck:
		s.runHealthcheck(ctx)
	case models.CmdReapNow:
		if s.reaperWorker != nil {
			s.reaperWorker.Trigger()
			log.Println("Reaper triggered via command")
		}
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
	return nil
}
