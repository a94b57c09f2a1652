package main

import (
	"context"
	"errors"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type healthReport struct {
	Status      string                      `json:"status"`
	Time        string                      `json:"time"`
	Database    string                      `json:"database"`
	Pool        persistence.ConnectionStats `json:"pool"`
	Idempotency string                      `json:"idempotency"`
}

var errUnhealthy = errors.New("wms is unhealthy")

func (c *cli) newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database and idempotency store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				report := checkHealth(ctx, a)
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if report.Status != "healthy" {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

func checkHealth(ctx context.Context, a *app) healthReport {
	report := healthReport{
		Status:      "healthy",
		Time:        time.Now().Format(time.RFC3339),
		Database:    "ok",
		Idempotency: "disabled",
	}

	if err := a.db.Ping(); err != nil {
		a.log.Warn("Health check failed", zap.String("component", "database"), zap.Error(err))
		report.Status, report.Database = "unhealthy", "error"
	} else if stats, err := a.db.Stats(); err == nil {
		report.Pool = stats
	}

	if a.dedup != nil {
		report.Idempotency = "ok"
		if _, err := a.dedup.IsProcessed(ctx, shared.IdempotencyKey("health", "check")); err != nil {
			a.log.Warn("Health check failed", zap.String("component", "idempotency"), zap.Error(err))
			report.Status, report.Idempotency = "unhealthy", "error"
		}
	}
	return report
}
