// Package logger wraps zap with the package-level Init/Get accessor pattern
// used throughout the teacher's cmd entrypoints (the teacher's own
// pkg/logger source was not part of the retrieval pack; this reconstructs
// its observed call shape: logger.Init(cfg), defer logger.Sync(),
// appLog := logger.Get()).
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Config controls the process-wide logger.
type Config struct {
	Level       string
	ServiceName string
	Development bool
}

var (
	mu     sync.Mutex
	global *zap.SugaredLogger
)

// Init builds the process-wide logger from cfg.
func Init(cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()

	var zapCfg zap.Config
	if cfg != nil && cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg != nil && cfg.Level != "" {
		if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
			zapCfg.Level = lvl
		}
	}

	l, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg != nil && cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	global = l.Sugar()
	return nil
}

// Get returns the process-wide logger, initializing a no-op development
// logger if Init was never called (keeps unit tests from needing Init).
func Get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		l, _ := zap.NewDevelopment()
		global = l.Sugar()
	}
	return global
}

// Sync flushes any buffered log entries. Call via defer from main().
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
}
