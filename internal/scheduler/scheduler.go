// Package scheduler runs periodic housekeeping next to the API.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	calcrunservice "github.com/railzwaylabs/landedcost/internal/calcrun/service"
	"github.com/railzwaylabs/landedcost/internal/clock"
	"github.com/railzwaylabs/landedcost/internal/config"
	"github.com/railzwaylabs/landedcost/internal/tariff"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Start),
)

type Job struct {
	Name string
	Run  func(ctx context.Context) (processed int, err error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
	Runs   *calcrunservice.Service
	Tariff *tariff.Service
}

type Scheduler struct {
	log    *zap.Logger
	cfg    config.SchedulerConfig
	clock  clock.Clock
	runs   *calcrunservice.Service
	tariff *tariff.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:    p.Log.Named("scheduler"),
		cfg:    p.Config.Scheduler,
		clock:  p.Clock,
		runs:   p.Runs,
		tariff: p.Tariff,
	}
}

func (s *Scheduler) Jobs() []Job {
	return []Job{
		{Name: "purge_calc_runs", Run: s.PurgeCalcRunsJob},
		{Name: "audit_tariff_versions", Run: s.AuditTariffVersionsJob},
	}
}

// RunOnce runs every job in order. A failing job does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.Jobs() {
		start := time.Now()
		processed, err := job.Run(ctx)
		if err != nil {
			s.log.Error("scheduler job failed", zap.String("job", job.Name), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		s.log.Info("scheduler job finished",
			zap.String("job", job.Name),
			zap.Int("processed", processed),
			zap.Duration("took", time.Since(start)),
		)
	}
	return errors.Join(errs...)
}

func (s *Scheduler) PurgeCalcRunsJob(ctx context.Context) (int, error) {
	days := s.cfg.CalcRunRetentionDays
	if days <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now(ctx).AddDate(0, 0, -days)
	deleted, err := s.runs.Purge(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

func (s *Scheduler) AuditTariffVersionsJob(ctx context.Context) (int, error) {
	versions, err := s.tariff.AuditActiveVersions(ctx)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		s.log.Warn("no active tariff version; calculations will fail")
	}
	return len(versions), nil
}

// Start ticks RunOnce between fx start and stop.
func Start(lc fx.Lifecycle, s *Scheduler) {
	if !s.cfg.Enabled {
		return
	}
	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						_ = s.RunOnce(ctx)
					}
				}
			}()
			s.log.Info("scheduler started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}
