package refresher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"instrupro-backend/config"
)

// Target is a screen whose cached snapshot the refresher keeps warm.
type Target interface {
	Refresh(ctx context.Context) error
}

// Service periodically refreshes its targets so readers keep hitting a
// fresh cache.
type Service struct {
	cfg     config.RefresherConfig
	targets map[string]Target
	log     *zap.Logger
}

// NewService creates a refresher for the named targets.
func NewService(cfg config.RefresherConfig, targets map[string]Target, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, targets: targets, log: log.Named("refresher")}
}

// Run refreshes every target once and then on every interval until ctx is
// done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("Refresher is disabled. Not starting.")
		return
	}
	s.log.Info("Starting refresher", zap.Duration("interval", s.cfg.Interval))

	s.RefreshOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Refresher shutting down.")
			return
		case <-timer.C:
			s.RefreshOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RefreshOnce refreshes every target and logs failures. It returns the
// number of targets that failed.
func (s *Service) RefreshOnce(ctx context.Context) int {
	failed := 0
	for name, t := range s.targets {
		start := time.Now()
		if err := t.Refresh(ctx); err != nil {
			failed++
			s.log.Warn("Refresh failed", zap.String("target", name), zap.Error(err))
			continue
		}
		s.log.Debug("Refreshed", zap.String("target", name), zap.Duration("took", time.Since(start)))
	}
	return failed
}
