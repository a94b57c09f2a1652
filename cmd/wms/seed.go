package main

import (
	"context"
	"fmt"
	"time"

	"github.com/casa/wms/internal/domain/wms"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) newSeedCmd() *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the zone catalog",
		Long: `Upserts the active zones and the inactive legacy zones. Safe to repeat.

With --demo, a few completed workflow records and catalog entries are added
so scans and forward sync can be tried on a local sqlite database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				locations := wms.DefaultLocations()
				if err := a.locations.Seed(ctx, locations); err != nil {
					return err
				}
				a.log.Info("Zone catalog seeded", zap.Int("locations", len(locations)))

				if demo {
					if a.cfg.App.Env == "production" {
						return fmt.Errorf("--demo is not allowed in production")
					}
					if err := seedDemo(ctx, a); err != nil {
						return err
					}
				}

				active, err := a.locations.ListActive(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), active)
			})
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "Add sample workflow records and catalog entries")
	return cmd
}

// demoRecords are completed trades whose items have not arrived yet
var demoRecords = []struct {
	workflowID string
	scanned    string
	identifier string
	title      string
	owner      string
	auction    string
	request    wms.RequestType
}{
	{"DEMO-1001", "4901234567894", "LOT-1001", "(12-345) Gold ring", "Lee", "1", wms.RequestTypeRepair},
	{"DEMO-1002", "4901234567900", "LOT-1002", "Leather handbag", "Park", "2", wms.RequestTypeAppraisal},
	{"DEMO-1003", "4901234567917", "LOT-1003", "Silver watch", "Choi", "4", wms.RequestTypeBoth},
}

func seedDemo(ctx context.Context, a *app) error {
	now := time.Now()
	for _, r := range demoRecords {
		scheduled := now.AddDate(0, 0, 7)
		record := &wms.WorkflowRecord{
			WorkflowType:   wms.DefaultWorkflowType,
			WorkflowID:     r.workflowID,
			Status:         wms.WorkflowStatusCompleted,
			Stage:          wms.StageNone,
			ItemIdentifier: r.identifier,
			ItemTitle:      r.title,
			OwnerName:      r.owner,
			AuctionCode:    r.auction,
			RequestType:    r.request,
			ScheduledAt:    &scheduled,
		}
		if err := a.workflows.Save(ctx, record); err != nil {
			return fmt.Errorf("seed workflow %s: %w", r.workflowID, err)
		}
		if err := a.catalog.Put(ctx, r.scanned, &wms.CatalogEntry{
			ItemIdentifier: r.identifier,
			AuctionCode:    r.auction,
			ItemTitle:      r.title,
			OwnerName:      r.owner,
		}); err != nil {
			return fmt.Errorf("seed catalog %s: %w", r.scanned, err)
		}
	}
	a.log.Info("Demo records seeded", zap.Int("records", len(demoRecords)))
	return nil
}
