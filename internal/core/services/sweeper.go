package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driven"
	"github.com/stocklane-labs/stocklane-core/internal/core/ports/driving"
)

// Ensure Sweeper implements the driving interface
var _ driving.Sweeper = (*Sweeper)(nil)

const sweeperLockName = "state-sweeper"

// Sweeper periodically deletes expired OAuth state tokens.
//
// Deletion is idempotent and safe to run concurrently, so the sweep is
// correct without coordination. For multi-instance deployments a
// DistributedLock can be configured to keep instances from sweeping the
// same rows in the same cycle.
type Sweeper struct {
	store  driven.OAuthStateStore
	lock   driven.DistributedLock
	logger *slog.Logger

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval     time.Duration
	lockTTL      time.Duration
	lockRequired bool

	// now is swapped in tests
	now func() time.Time
}

// SweeperConfig holds configuration for the sweeper.
type SweeperConfig struct {
	Store        driven.OAuthStateStore
	Lock         driven.DistributedLock // Optional: multi-instance coordination
	Logger       *slog.Logger
	Interval     time.Duration // How often to sweep (default: 5m)
	LockTTL      time.Duration // TTL for the distributed lock (default: 2x interval)
	LockRequired bool          // If true, skip the cycle when the lock cannot be acquired
}

// NewSweeper creates a new sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * interval
	}

	return &Sweeper{
		store:        cfg.Store,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
		now:          time.Now,
	}
}

// SweepOnce deletes every state token whose expiry has passed and reports
// the count. Consumed rows that have not yet expired are retained so
// replay attempts stay observable for their remaining TTL.
func (s *Sweeper) SweepOnce(ctx context.Context) (*driving.SweepResult, error) {
	at := s.now()
	removed, err := s.store.DeleteExpired(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("delete expired states: %w", err)
	}

	if removed > 0 {
		s.logger.Info("swept expired oauth states", "removed", removed)
	}

	return &driving.SweepResult{Removed: removed, At: at}, nil
}

// Start begins the background sweep loop.
// It runs until Stop is called or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("sweeper starting", "interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the sweep loop.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("sweeper stopped")
}

// run is the main sweep loop.
func (s *Sweeper) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	s.sweepCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepCycle(ctx)
		}
	}
}

// sweepCycle runs one scheduled sweep, holding the distributed lock when
// one is configured. A lock failure never interrupts the connect flow;
// at worst the cycle is skipped and retried next tick.
func (s *Sweeper) sweepCycle(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, sweeperLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire sweeper lock", "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("sweeper lock held by another instance, skipping cycle")
			return
		} else {
			defer func() {
				if err := s.lock.Release(ctx, sweeperLockName); err != nil {
					s.logger.Warn("failed to release sweeper lock", "error", err)
				}
			}()
		}
	}

	if _, err := s.SweepOnce(ctx); err != nil {
		s.logger.Error("sweep cycle failed", "error", err)
	}
}
