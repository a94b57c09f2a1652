// Package config loads wms settings from config.toml and WMS_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	WMS       WMSConfig       `mapstructure:"wms"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	LogLevel        string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type SchedulerConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BackfillInterval  time.Duration `mapstructure:"backfill_interval" validate:"gt=0"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
	RetryAttempts     int           `mapstructure:"retry_attempts" validate:"gte=0"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

// TelemetryConfig configures the OTLP exporters. Everything is off unless
// Enabled is set.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // gRPC host:port
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"` // plaintext gRPC, development only
	SamplingRatio     float64       `mapstructure:"sampling_ratio" validate:"gte=0,lte=1"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	ExportLogs        bool          `mapstructure:"export_logs"` // ship zap records to the collector too
}

type WMSConfig struct {
	BarcodePrefix        string        `mapstructure:"barcode_prefix" validate:"required"`
	BarcodeMaxAttempts   int           `mapstructure:"barcode_max_attempts" validate:"gte=1"`
	BoardRecentLimit     int           `mapstructure:"board_recent_limit" validate:"gte=1"`
	BackfillBarcodeLimit int           `mapstructure:"backfill_barcode_limit" validate:"gte=1"`
	ForwardSyncDedupTTL  time.Duration `mapstructure:"forward_sync_dedup_ttl"`
	IdempotencyBackend   string        `mapstructure:"idempotency_backend" validate:"oneof=memory redis none"`
}

var defaults = map[string]any{
	"app.name": "wms",
	"app.env":  "development",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "wms",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "wms.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.log_level":          "warn",

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"scheduler.enabled":             false,
	"scheduler.backfill_interval":   10 * time.Minute,
	"scheduler.max_concurrent_jobs": 2,
	"scheduler.job_timeout":         5 * time.Minute,
	"scheduler.retry_attempts":      3,
	"scheduler.retry_delay":         30 * time.Second,

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.service_name":       "wms",
	"telemetry.insecure":           false,
	"telemetry.sampling_ratio":     1.0,
	"telemetry.metrics_interval":   30 * time.Second,
	"telemetry.db_trace_enabled":   false,
	"telemetry.export_logs":        false,

	"wms.barcode_prefix":         "CB",
	"wms.barcode_max_attempts":   5,
	"wms.board_recent_limit":     200,
	"wms.backfill_barcode_limit": 2000,
	"wms.forward_sync_dedup_ttl": 24 * time.Hour,
	"wms.idempotency_backend":    "memory",
}

// Load reads ./config.toml or /etc/wms/config.toml if present. WMS_*
// environment variables override the file (WMS_DATABASE_PASSWORD sets
// database.password), and built-in defaults fill the rest.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/wms")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFile is Load with an explicit file, which must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

// newViper registers every key with a default so that AutomaticEnv can
// override keys that the file does not mention.
func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("WMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// keyValidator reports fields by their config key, e.g. database.driver.
func keyValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("mapstructure")
		})
	})
	return validate
}

func (c *Config) validate() error {
	if err := keyValidator().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		fe := fieldErrs[0]
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Tag() == "oneof" {
			return fmt.Errorf("%s must be one of %s, got %q", key, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
		}
		return fmt.Errorf("%s must satisfy %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env != "production" {
		return nil
	}
	switch {
	case c.Database.Driver != "postgres":
		return errors.New("database.driver must be postgres in production")
	case c.Database.Password == "":
		return errors.New("database.password is required in production")
	case c.Database.SSLMode == "disable":
		return errors.New("database.sslmode cannot be 'disable' in production")
	case c.WMS.IdempotencyBackend == "memory":
		return errors.New("wms.idempotency_backend=memory is not shared between instances; use redis in production")
	}
	return nil
}

// DSN is the postgres connection URL with user and password escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (d *DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}
