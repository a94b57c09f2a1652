package main

import (
	"fmt"

	"github.com/casa/wms/internal/infrastructure/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Bring the database schema up to date",
		Long: `Postgres schemas are versioned with the migrations embedded in the binary
(or read from --path). Sqlite databases are created from the models.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			db, err := openDatabase(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer db.Close()

			if c.cfg.Database.IsSQLite() {
				// openDatabase already ran AutoMigrate
				c.log.Info("Sqlite schema is created from the models", zap.String("path", c.cfg.Database.SQLitePath))
				return printJSON(cmd.OutOrStdout(), map[string]any{"driver": "sqlite", "schema": "auto"})
			}

			src := migration.EmbeddedSource()
			if path != "" {
				src = migration.DirSource(path)
			}
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			m, err := migration.New(sqlDB, src, c.log)
			if err != nil {
				return err
			}
			defer m.Close()

			switch action {
			case "up":
				err = m.Up()
			case "down":
				err = m.Down()
			case "status":
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
			if err != nil {
				return err
			}

			st, err := m.Status()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Read migrations from this directory instead of the embedded set")
	return cmd
}

