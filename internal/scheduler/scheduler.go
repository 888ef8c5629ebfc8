// Package scheduler drives the background jobs: alert checks, the
// morning briefing, scheduled reports and metric pre-computation.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/alerts"
	"github.com/askerp/askerp-server/internal/briefing"
	"github.com/askerp/askerp-server/internal/config"
	"github.com/askerp/askerp-server/internal/metrics"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/reports"
)

// jobTimeout bounds one background run so a stuck query cannot pile up
// overlapping executions.
const jobTimeout = 5 * time.Minute

type Scheduler struct {
	cron     *cron.Cron
	cfg      config.SchedulerConfig
	alerts   *alerts.Engine
	briefing *briefing.Generator
	reports  *reports.Generator
	metrics  *metrics.Engine
}

func New(cfg config.SchedulerConfig, alertEngine *alerts.Engine, briefingGen *briefing.Generator,
	reportGen *reports.Generator, metricEngine *metrics.Engine) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		alerts:   alertEngine,
		briefing: briefingGen,
		reports:  reportGen,
		metrics:  metricEngine,
	}
}

// Start registers the jobs and starts the cron loop. A no-op when the
// scheduler is disabled in config.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		logger.Info("scheduler disabled")
		return nil
	}

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context)
	}{
		{"hourly-alerts", s.cfg.HourlyAlerts, func(ctx context.Context) {
			evaluated, triggered := s.alerts.CheckAlerts(ctx, "hourly")
			logger.Info("hourly alerts checked",
				zap.Int("evaluated", evaluated), zap.Int("triggered", triggered))
		}},
		{"daily-alerts", s.cfg.DailyAlerts, func(ctx context.Context) {
			evaluated, triggered := s.alerts.CheckAlerts(ctx, "daily")
			logger.Info("daily alerts checked",
				zap.Int("evaluated", evaluated), zap.Int("triggered", triggered))
		}},
		{"weekly-alerts", s.cfg.WeeklyAlerts, func(ctx context.Context) {
			evaluated, triggered := s.alerts.CheckAlerts(ctx, "weekly")
			logger.Info("weekly alerts checked",
				zap.Int("evaluated", evaluated), zap.Int("triggered", triggered))
		}},
		{"briefing", s.cfg.Briefing, func(ctx context.Context) {
			generated := s.briefing.Run(ctx)
			logger.Info("morning briefings delivered", zap.Int("generated", generated))
		}},
		{"reports", s.cfg.Reports, func(ctx context.Context) {
			generated := s.reports.RunDue(ctx)
			if generated > 0 {
				logger.Info("scheduled reports generated", zap.Int("generated", generated))
			}
		}},
		{"metric-refresh", s.cfg.MetricRefresh, func(ctx context.Context) {
			computed, errored := s.metrics.RefreshAll(ctx)
			logger.Info("metrics refreshed",
				zap.Int("computed", computed), zap.Int("errored", errored))
		}},
	}

	for _, job := range jobs {
		job := job
		_, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			job.run(ctx)
		})
		if err != nil {
			return err
		}
		logger.Info("scheduled job registered",
			zap.String("job", job.name), zap.String("spec", job.spec))
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}
