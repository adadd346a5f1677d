/*
scheduler.go - Daily expiration sweep scheduler

PURPOSE:
  Drives engine.Sweeper on a periodic tick. The engine owns no timer or
  goroutine of its own; this is the external scheduler the sweep contract
  assumes.

DESIGN:
  - Background goroutine with a configurable check interval (default 24h)
  - Runs once immediately on start so a restarted service catches up
  - Sweep failures are logged and the ticker keeps going; per-branch
    isolation inside the sweep means partial progress is preserved

USAGE:
  scheduler := NewSweepScheduler(sweeper, clock)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/aidlink/inventory-engine/engine"
)

// SweepScheduler runs the expiration sweep on a fixed interval.
type SweepScheduler struct {
	Sweeper       *engine.Sweeper
	Clock         engine.Clock
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSweepScheduler(sweeper *engine.Sweeper, clock engine.Clock) *SweepScheduler {
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &SweepScheduler{
		Sweeper:       sweeper,
		Clock:         clock,
		CheckInterval: 24 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *SweepScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[SweepScheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	log.Printf("[SweepScheduler] Started with check interval: %v", s.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *SweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[SweepScheduler] Stopped")
	}
}

func (s *SweepScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.sweep()

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *SweepScheduler) sweep() {
	ctx := context.Background()
	now := s.Clock.Now()

	report, err := s.Sweeper.Run(ctx, now)
	if err != nil {
		log.Printf("[SweepScheduler] Sweep failed: %v", err)
		return
	}
	if report.Warned > 0 || report.Retired > 0 || len(report.FailedBranches) > 0 {
		log.Printf("[SweepScheduler] Completed: %d branches, %d warned, %d retired, %d failed",
			report.Branches, report.Warned, report.Retired, len(report.FailedBranches))
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (s *SweepScheduler) RunNow() {
	s.sweep()
}
