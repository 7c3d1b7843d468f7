// Package sweep runs the points-expiration sweep on an interval so stale
// earn/bonus points are converted into expire entries without any caller
// having to ask per member.
package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harborstay/loyalty/internal/model"
)

// Ledger is the slice of the engine the sweeper needs.
type Ledger interface {
	ListAccounts() ([]model.Account, error)
	ExpireOldPoints(memberID string) (int64, error)
}

// Scheduler periodically expires stale points for every account.
type Scheduler struct {
	mu       sync.RWMutex
	ledger   Ledger
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}

	// Expired, when set, is called after a sweep expires points for a
	// member.
	Expired func(memberID string, points int64)
}

// NewScheduler creates an expiration sweep scheduler.
func NewScheduler(ledger Ledger, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		ledger:   ledger,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	accounts, err := s.ledger.ListAccounts()
	if err != nil {
		s.logger.Error("list accounts for sweep", "error", err)
		return
	}

	var total int64
	var swept int
	for _, a := range accounts {
		expired, err := s.ledger.ExpireOldPoints(a.MemberID)
		if err != nil {
			s.logger.Error("expire points", "member_id", a.MemberID, "error", err)
			continue
		}
		if expired > 0 {
			total += expired
			swept++
			if s.Expired != nil {
				s.Expired(a.MemberID, expired)
			}
		}
	}

	if total > 0 {
		s.logger.Info("expiration sweep complete", "accounts_swept", swept, "points_expired", total)
	}
}
