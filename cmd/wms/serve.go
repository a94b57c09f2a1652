package main

import (
	"context"
	"time"

	"github.com/casa/wms/internal/infrastructure/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background consistency sweep until interrupted",
		Long: `Keeps the service graph up and runs the backfill sweep on a fixed
interval through the job scheduler. The first sweep runs immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval > 0 {
				c.cfg.Scheduler.BackfillInterval = interval
				c.cfg.Scheduler.Enabled = true
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				return runServe(ctx, a)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "backfill-interval", 0, "Override scheduler.backfill_interval and enable the scheduler")
	return cmd
}

// runServe blocks until ctx is cancelled, then drains the scheduler
func runServe(ctx context.Context, a *app) error {
	log := a.log
	log.Info("Starting WMS",
		zap.String("app", a.cfg.App.Name),
		zap.String("env", a.cfg.App.Env),
		zap.String("database", a.cfg.Database.Driver),
		zap.Bool("scheduler", a.cfg.Scheduler.Enabled),
	)

	var (
		jobs    *scheduler.Scheduler
		trigger *scheduler.IntervalTrigger
	)
	if a.cfg.Scheduler.Enabled {
		schedCfg := scheduler.SchedulerConfigFrom(a.cfg.Scheduler)
		if err := schedCfg.Validate(); err != nil {
			return err
		}
		jobs = scheduler.NewScheduler(schedCfg, scheduler.NewBackfillExecutor(a.backfill, log), log)
		jobs.OnJobFinished(func(job *scheduler.Job) {
			if job.Status == scheduler.JobStatusFailed {
				log.Warn("Backfill job gave up", zap.String("job_id", job.ID.String()), zap.String("error", job.Error))
			}
		})
		if err := jobs.Start(ctx); err != nil {
			return err
		}

		trigger = scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
			Kind:       scheduler.JobKindBackfill,
			Interval:   a.cfg.Scheduler.BackfillInterval,
			RunOnStart: true,
		}, jobs, log)
		if err := trigger.Start(ctx); err != nil {
			_ = jobs.Stop(context.WithoutCancel(ctx))
			return err
		}
	}

	<-ctx.Done()
	log.Info("Shutting down WMS")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			log.Error("Interval trigger stop failed", zap.Error(err))
		}
	}
	if jobs != nil {
		if err := jobs.Stop(shutdownCtx); err != nil {
			log.Error("Scheduler stop failed", zap.Error(err))
			return err
		}
	}

	log.Info("WMS stopped")
	return nil
}
