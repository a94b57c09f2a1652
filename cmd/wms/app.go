package main

import (
	"context"
	"errors"
	"fmt"

	appwms "github.com/casa/wms/internal/application/wms"
	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/infrastructure/cache"
	"github.com/casa/wms/internal/infrastructure/config"
	"github.com/casa/wms/internal/infrastructure/event"
	"github.com/casa/wms/internal/infrastructure/logger"
	"github.com/casa/wms/internal/infrastructure/persistence"
	"github.com/casa/wms/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// app is the fully wired service graph
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *persistence.Database
	telemetry *telemetry.Providers
	dbMetrics *telemetry.DBMetrics
	bus       *event.InMemoryEventBus
	dedup     shared.IdempotencyStore

	scans     *appwms.ScanService
	bridge    *appwms.Bridge
	repairs   *appwms.RepairService
	backfill  *appwms.BackfillService
	board     *appwms.BoardService
	labels    *appwms.LabelService
	locations *persistence.GormLocationRepository
	workflows *persistence.GormWorkflowStore
	catalog   *persistence.GormItemCatalog
}

func newApp(ctx context.Context, cfg *config.Config, baseLog *zap.Logger) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.wire(ctx, baseLog); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, baseLog *zap.Logger) error {
	cfg := a.cfg
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.telemetry = providers
	log := telemetry.BridgeLogger(baseLog, providers.Logs, cfg.Telemetry.ServiceName)
	a.log = log

	a.db, err = openDatabase(cfg, log)
	if err != nil {
		return err
	}

	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem: telemetry.DBSystemForDriver(cfg.Database.Driver),
	}, log)
	if err = tracing.RegisterOtelGorm(a.db.DB); err != nil {
		return fmt.Errorf("database tracing: %w", err)
	}

	meter := providers.Meter.Meter(telemetry.TracerName)
	if providers.Meter.IsEnabled() {
		a.dbMetrics, err = telemetry.NewDBMetrics(meter, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			return fmt.Errorf("database metrics: %w", err)
		}
		if err = a.dbMetrics.Register(a.db.DB); err != nil {
			return fmt.Errorf("database metrics: %w", err)
		}
	}
	metrics, err := telemetry.NewWMSMetrics(meter)
	if err != nil {
		return fmt.Errorf("wms metrics: %w", err)
	}

	factory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	a.dedup, err = factory.CreateStore(ctx, cfg.WMS.IdempotencyBackend)
	if err != nil {
		return err
	}

	a.bus = event.NewInMemoryEventBus(log)
	var activity shared.EventHandler = appwms.NewItemActivityHandler(log)
	if a.dedup != nil {
		activity = event.NewIdempotentHandler(activity, a.dedup, shared.DefaultIdempotencyConfig(), log)
	}
	a.bus.Subscribe(activity)
	if err = a.bus.Start(ctx); err != nil {
		return err
	}

	txScope := persistence.NewGormTransactionScope(a.db.DB)
	generator := appwms.NewBarcodeGenerator(cfg.WMS.BarcodePrefix, cfg.WMS.BarcodeMaxAttempts, metrics, log)

	a.locations = persistence.NewGormLocationRepository(a.db.DB)
	a.workflows = persistence.NewGormWorkflowStore(a.db.DB)
	a.catalog = persistence.NewGormItemCatalog(a.db.DB)

	a.bridge = appwms.NewBridge(txScope, generator, metrics, log)
	a.bridge.SetIdempotencyStore(a.dedup, cfg.WMS.ForwardSyncDedupTTL)
	a.bridge.SetEventPublisher(a.bus)

	a.scans = appwms.NewScanService(txScope, a.catalog, a.bridge, generator, metrics, log)
	a.scans.SetEventPublisher(a.bus)

	a.repairs = appwms.NewRepairService(txScope, a.bridge, log)
	a.repairs.SetEventPublisher(a.bus)

	a.labels = appwms.NewLabelService(txScope, a.bridge, generator, log)
	a.labels.SetEventPublisher(a.bus)

	a.backfill = appwms.NewBackfillService(txScope, generator, cfg.WMS.BackfillBarcodeLimit, metrics, log)
	a.board = appwms.NewBoardService(txScope, a.backfill, cfg.WMS.BoardRecentLimit, log)

	return nil
}

// openDatabase connects with the zap-backed gorm logger. Sqlite files get the
// schema from the models; postgres schemas come from 'wms migrate'.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	if cfg.Database.IsSQLite() {
		if err := persistence.AutoMigrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Close releases everything newApp acquired, in reverse order
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Stop(ctx))
	}
	if a.dedup != nil {
		errs = append(errs, a.dedup.Close())
	}
	if a.dbMetrics != nil {
		a.dbMetrics.Stop()
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
