package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/casa/wms/internal/infrastructure/config"
	"github.com/casa/wms/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli carries state shared by every subcommand of one invocation
type cli struct {
	configFile string
	staff      string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "wms",
		Short: "Warehouse custody tracking for consigned items",
		Long: `wms tracks where every consigned item physically is, keeps its status
derived from its zone, and keeps the trading workflow in step with the floor.

Configuration is read from ./config.toml or /etc/wms/config.toml and can be
overridden with WMS_* environment variables (e.g. WMS_DATABASE_DRIVER=sqlite).`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = logger.Sync(c.log)
			}
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Path to a config file (default: ./config.toml)")
	root.PersistentFlags().StringVar(&c.staff, "staff", "", "Operator name recorded on scan events")

	root.AddCommand(
		c.newServeCmd(),
		c.newScanCmd(),
		c.newRegisterCmd(),
		c.newItemCmd(),
		c.newBoardCmd(),
		c.newBackfillCmd(),
		c.newLabelsCmd(),
		c.newRepairCmd(),
		c.newSyncCmd(),
		c.newSeedCmd(),
		c.newMigrateCmd(),
		c.newHealthCmd(),
	)
	return root
}

func (c *cli) setup(*cobra.Command, []string) error {
	var err error
	if c.configFile != "" {
		c.cfg, err = config.LoadFile(c.configFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	c.log, err = logger.New(logger.FromAppConfig(c.cfg.App, c.cfg.Log))
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	return nil
}

// withApp wires the services for one command and tears them down afterwards.
// The context carries an operation id and the operator name for log correlation.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, log := logger.WithOperationID(cmd.Context(), c.log, uuid.NewString())
	if c.staff != "" {
		ctx, log = logger.WithStaffName(ctx, log, c.staff)
	}
	log = log.With(zap.String("command", cmd.CommandPath()))

	a, err := newApp(ctx, c.cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn("shutdown incomplete", zap.Error(cerr))
		}
	}()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
