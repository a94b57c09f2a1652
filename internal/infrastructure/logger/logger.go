// Package logger builds the zap loggers used across wms and carries
// per-invocation fields on the context.
package logger

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/casa/wms/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

// preset is console output for floor terminals, JSON for production log
// shipping.
func preset(env string) *Config {
	format := "console"
	if env == "production" {
		format = "json"
	}
	return &Config{Level: "info", Format: format, Output: "stdout", TimeFormat: defaultTimeFormat}
}

// FromAppConfig overlays the [log] section on the environment preset.
func FromAppConfig(app config.AppConfig, lc config.LogConfig) *Config {
	cfg := preset(app.Env)
	for dst, src := range map[*string]string{
		&cfg.Level:  lc.Level,
		&cfg.Format: lc.Format,
		&cfg.Output: lc.Output,
	} {
		if src != "" {
			*dst = src
		}
	}
	return cfg
}

func New(cfg *Config) (*zap.Logger, error) {
	output := strings.TrimSpace(cfg.Output)
	switch strings.ToLower(output) {
	case "", "stdout":
		output = "stdout"
	case "stderr":
		output = "stderr"
	}
	sink, _, err := zap.Open(output)
	if err != nil {
		return nil, fmt.Errorf("open log output %q: %w", cfg.Output, err)
	}

	core := zapcore.NewCore(newEncoder(cfg), sink, parseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// parseLevel accepts zap's level names plus "warning". Unknown names log
// at info.
func parseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func newEncoder(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeFormat
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

// Sync flushes buffered entries. Syncing a terminal returns EINVAL or
// ENOTTY on some platforms; those are not reported.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err != nil && (errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY)) {
		return nil
	}
	return err
}
