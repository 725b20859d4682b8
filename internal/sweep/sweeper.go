// Package sweep drives the periodic status refresh for all medications.
package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/medtrack-cli/internal/metrics"
	"github.com/gmsas95/medtrack-cli/internal/registry"
)

// Sweeper runs registry sweeps on a cron schedule. Each sweep re-evaluates
// every medication against the wall clock; the registry itself decides what
// changed and who gets notified.
type Sweeper struct {
	registry *registry.Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger
	spec     string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a sweeper with a cron spec such as "@every 1m".
func New(reg *registry.Registry, m *metrics.Metrics, spec string, logger *zap.Logger) *Sweeper {
	if spec == "" {
		spec = "@every 1m"
	}
	return &Sweeper{
		registry: reg,
		metrics:  m,
		logger:   logger,
		spec:     spec,
	}
}

// Start schedules the periodic sweep and runs one immediately so statuses
// are fresh the moment the service is up.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("invalid sweep interval %q: %w", s.spec, err)
	}
	s.cron = c
	s.running = true
	s.mu.Unlock()

	s.RunOnce(ctx)
	c.Start()

	s.logger.Info("Sweeper started", zap.String("interval", s.spec))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	<-s.cron.Stop().Done()
	s.logger.Info("Sweeper stopped")
}

// RunOnce executes a single sweep against the current time.
func (s *Sweeper) RunOnce(ctx context.Context) registry.SweepResult {
	start := time.Now()
	result := s.registry.Sweep(ctx, start)

	s.metrics.SweepsTotal.Inc()
	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if len(result.Transitions) > 0 || len(result.LowSupply) > 0 {
		s.logger.Info("Sweep completed",
			zap.Int("evaluated", result.Evaluated),
			zap.Int("transitions", len(result.Transitions)),
			zap.Int("low_supply", len(result.LowSupply)),
			zap.Duration("took", time.Since(start)))
	} else {
		s.logger.Debug("Sweep completed",
			zap.Int("evaluated", result.Evaluated),
			zap.Duration("took", time.Since(start)))
	}
	return result
}
