package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvLocal       = "local"
)

// New builds a JSON logger. An empty level falls back to debug for
// development and local, info otherwise.
func New(env, level string) (*zap.Logger, zap.AtomicLevel, error) {
	var cfg zap.Config
	switch env {
	case EnvDevelopment, EnvLocal:
		cfg = zap.NewDevelopmentConfig()
	case EnvProduction, "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("invalid log environment %q", env)
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	atomic, err := resolveLevel(env, level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	cfg.Level = atomic

	logger, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("service", "funds-transfer-engine")), atomic, nil
}

func resolveLevel(env, level string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(level) != "" {
		var parsed zapcore.Level
		if err := parsed.Set(level); err != nil {
			return zap.AtomicLevel{}, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		return zap.NewAtomicLevelAt(parsed), nil
	}
	if env == EnvDevelopment || env == EnvLocal {
		return zap.NewAtomicLevelAt(zapcore.DebugLevel), nil
	}
	return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
}
