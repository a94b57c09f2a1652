package telemetry

import (
	"cmp"
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DBMetricsConfig struct {
	// SlowQueryThreshold defaults to 200ms.
	SlowQueryThreshold time.Duration
}

func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{SlowQueryThreshold: 200 * time.Millisecond}
}

// DBMetrics counts and times gorm statements and reports connection pool
// usage. Pool gauges are observed on each collection cycle of the reader,
// so there is no sampling loop.
type DBMetrics struct {
	meter          metric.Meter
	queries        *Counter
	latency        *Histogram
	slow           *Counter
	poolOpen       metric.Int64ObservableGauge
	poolMax        metric.Int64ObservableGauge
	slowThreshold  time.Duration
	logger         *zap.Logger
	poolCallback   metric.Registration
	unregisterOnce sync.Once
}

func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultDBMetricsConfig().SlowQueryThreshold
	}

	m := &DBMetrics{meter: meter, slowThreshold: cfg.SlowQueryThreshold, logger: logger}
	var err error
	if m.queries, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slow, err = NewCounter(meter, "db_slow_query_total", "Database queries above the slow threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.latency, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency in seconds",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.poolOpen, err = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	if m.poolMax, err = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum open connections"), metric.WithUnit("{connection}")); err != nil {
		return nil, err
	}
	return m, nil
}

// Register installs the statement callbacks on db and starts observing its
// connection pool.
func (m *DBMetrics) Register(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := registerAround(db, "db_metrics", markQueryStart, m.afterQuery); err != nil {
		return err
	}
	m.poolCallback, err = m.meter.RegisterCallback(m.observePool(sqlDB), m.poolOpen, m.poolMax)
	return err
}

func (m *DBMetrics) observePool(sqlDB *sql.DB) metric.Callback {
	return func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(m.poolMax, int64(stats.MaxOpenConnections))
		for state, n := range map[string]int{
			"idle":   stats.Idle,
			"in_use": stats.InUse,
			"open":   stats.OpenConnections,
		} {
			o.ObserveInt64(m.poolOpen, int64(n), metric.WithAttributes(AttrDBState.String(state)))
		}
		return nil
	}
}

// Stop stops observing the pool. It may be called more than once.
func (m *DBMetrics) Stop() {
	m.unregisterOnce.Do(func() {
		if m.poolCallback == nil {
			return
		}
		if err := m.poolCallback.Unregister(); err != nil {
			m.logger.Warn("Failed to unregister pool metrics", zap.Error(err))
		}
	})
}

// RecordQuery records one finished statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	op := AttrDBOperation.String(strings.ToUpper(cmp.Or(operation, "unknown")))
	m.queries.Inc(ctx, op)
	m.latency.RecordDuration(ctx, duration, op)
	if duration > m.slowThreshold {
		m.slow.Inc(ctx, AttrDBTable.String(cmp.Or(table, "unknown")))
	}
}

func (m *DBMetrics) afterQuery(db *gorm.DB) {
	ctx := statementContext(db)
	elapsed, _ := queryElapsed(ctx)
	m.RecordQuery(ctx, detectOperationType(db.Statement.SQL.String()), db.Statement.Table, elapsed)
}

// detectOperationType reads the statement verb.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	return "OTHER"
}
