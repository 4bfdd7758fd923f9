package version

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically re-applies the retention policy across all
// prompts. The synchronous path already bounds history after every
// append; the sweeper covers prompts whose bound was raised and then
// lowered again by a config change, and prompts skipped because their
// guard was busy.
type Sweeper struct {
	ctx      context.Context
	cancel   context.CancelFunc
	manager  *Manager
	interval time.Duration
	logger   *logrus.Entry
}

// SweeperConfig holds the configuration for the retention sweeper
type SweeperConfig struct {
	Manager     *Manager
	IntervalSec int
	Logger      *logrus.Entry
}

// NewSweeper creates a retention sweeper
func NewSweeper(cfg *SweeperConfig) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		ctx:      ctx,
		cancel:   cancel,
		manager:  cfg.Manager,
		interval: time.Duration(cfg.IntervalSec) * time.Second,
		logger:   cfg.Logger.WithField("component", "retention-sweeper"),
	}
}

// Start launches the sweep loop
func (s *Sweeper) Start() {
	s.logger.WithField("interval", s.interval).Info("retention sweeper started")
	go s.run()
}

// Stop terminates the sweep loop
func (s *Sweeper) Stop() {
	s.cancel()
	s.logger.Info("retention sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.manager.SweepOnce(s.ctx); err != nil {
				s.logger.WithError(err).Error("retention sweep failed")
			}
		}
	}
}
