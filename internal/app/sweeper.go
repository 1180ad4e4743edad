package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically expires overdue holds so capacity is reclaimed even
// when no client ever calls release.
type Sweeper struct {
	holds    *HoldService
	logger   *logrus.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(holds *HoldService, logger *logrus.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		holds:    holds,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			expired, err := s.holds.ExpireDue(ctx)
			if err != nil {
				s.logger.WithError(err).Error("hold expiry sweep failed")
				continue
			}
			if expired > 0 {
				s.logger.WithField("expired", expired).Info("expired overdue holds")
			}
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
