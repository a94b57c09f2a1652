// Command migrate applies the versioned postgres schema.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/casa/wms/internal/infrastructure/config"
	"github.com/casa/wms/internal/infrastructure/logger"
	"github.com/casa/wms/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// command is one migrate subcommand. Offline commands work on the
// migration source alone and never open a database.
type command struct {
	minArgs int
	usage   string
	offline func(e *env, args []string) error
	run     func(e *env, m *migration.Migrator, args []string) error
}

type env struct {
	src         migration.Source
	log         *zap.Logger
	databaseURL string
}

var commands = map[string]command{
	"up":   {run: func(_ *env, m *migration.Migrator, _ []string) error { return m.Up() }},
	"down": {run: func(_ *env, m *migration.Migrator, _ []string) error { return m.Down() }},
	"step": {minArgs: 1, usage: "migrate step <n>", run: func(_ *env, m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {minArgs: 1, usage: "migrate goto <version>", run: func(_ *env, m *migration.Migrator, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"force": {minArgs: 1, usage: "migrate force <version>", run: func(_ *env, m *migration.Migrator, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"drop":    {run: drop},
	"status":  {run: status},
	"version": {run: status},
	"create":  {minArgs: 1, usage: "migrate -path <dir> create <name> [description]", offline: create},
	"list":    {offline: list},
}

func main() {
	migrationsPath := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	databaseURL := flag.String("database-url", "", "Postgres URL to migrate instead of the configured database")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	err = execute(name, cmd, args, *migrationsPath, *databaseURL, log)
	if err != nil {
		log.Error("migrate failed", zap.String("command", name), zap.Error(err))
	}
	_ = logger.Sync(log)
	if err != nil {
		os.Exit(1)
	}
}

func execute(name string, cmd command, args []string, path, databaseURL string, log *zap.Logger) error {
	if len(args) < cmd.minArgs {
		return fmt.Errorf("missing argument, usage: %s", cmd.usage)
	}

	src := migration.EmbeddedSource()
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve migrations path: %w", err)
		}
		src = migration.DirSource(abs)
	}
	log.Info("Migration CLI started", zap.String("command", name), zap.String("source", src.String()))

	e := &env{src: src, log: log, databaseURL: databaseURL}
	if cmd.offline != nil {
		return cmd.offline(e, args)
	}

	m, closeDB, err := openMigrator(e)
	if err != nil {
		return err
	}
	defer closeDB()

	return cmd.run(e, m, args)
}

// openMigrator connects to -database-url when given, otherwise to the
// configured postgres database.
func openMigrator(e *env) (*migration.Migrator, func(), error) {
	if e.databaseURL != "" {
		m, err := migration.NewFromURL(e.databaseURL, e.src, e.log)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.IsSQLite() {
		return nil, nil, errors.New("versioned migrations target postgres; sqlite databases get their schema from 'wms migrate'")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	m, err := migration.New(db, e.src, e.log)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, func() {
		_ = m.Close()
		_ = db.Close()
	}, nil
}

func status(e *env, m *migration.Migrator, _ []string) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	e.log.Info("Schema status",
		zap.Uint("version", st.Version),
		zap.Uint("latest", st.Latest),
		zap.Bool("dirty", st.Dirty),
		zap.Int("pending", len(st.Pending)),
	)
	return nil
}

func drop(_ *env, m *migration.Migrator, args []string) error {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return m.Drop()
		}
	}
	return errors.New("drop cancelled, rerun with -confirm")
}

func create(e *env, args []string) error {
	if e.src.IsEmbedded() {
		return errors.New("create needs -path pointing at the migrations directory")
	}
	description := ""
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(e.src.Dir, args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(e *env, _ []string) error {
	versions, err := migration.ListVersions(e.src)
	if err != nil {
		return err
	}
	e.log.Info("Available migrations", zap.Int("count", len(versions)))
	for _, v := range versions {
		fmt.Printf("  - %06d\n", v)
	}
	return nil
}

func printUsage() {
	fmt.Println(`WMS Schema Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  goto <version>        Migrate to a specific version
  status                Show applied and pending versions (alias: version)
  force <version>       Force set migration version (use with caution)
  drop -confirm         Drop all database objects (DANGEROUS)
  create <name> [desc]  Create a new migration file pair (requires -path)
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the set embedded in the binary)
  -log-level string     Log level: debug, info, warn, error (default: info)
  -database-url string  Postgres URL to migrate instead of the configured database

Environment Variables:
  WMS_DATABASE_HOST, WMS_DATABASE_PORT, WMS_DATABASE_USER,
  WMS_DATABASE_PASSWORD, WMS_DATABASE_DBNAME, WMS_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate -path ./migrations create add_scan_note_index "Index scan notes"
  migrate status`)
}
