// pkg/logger/logger.go

package logger

import (
	"os"
	"path/filepath"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var log *zap.Logger

// EnsureLogPermissions ensures the log directory exists and the file is owner-only.
func EnsureLogPermissions(logFilePath string) error {
	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	return os.Chmod(logFilePath, 0600)
}

// InitializeWithConfig builds the global logger from cfg and installs it into
// zap and otelzap globals.
func InitializeWithConfig(cfg zap.Config) {
	for _, path := range cfg.OutputPaths {
		if path != "stdout" && path != "stderr" {
			if err := EnsureLogPermissions(path); err != nil {
				println("Log permission error:", err.Error())
				cfg.OutputPaths = []string{"stderr"}
				break
			}
		}
	}

	built, err := cfg.Build()
	if err != nil {
		// Fallback to console-only logging if file logging fails
		cfg.OutputPaths = []string{"stderr"}
		built, err = cfg.Build()
		if err != nil {
			built = NewFallbackLogger()
		}
	}

	SetLogger(built)
}

// Initialize initializes the logger with the default configuration.
func Initialize() {
	InitializeWithConfig(DefaultConfig())
}

// SetLogger replaces the package, zap and otelzap global loggers.
func SetLogger(l *zap.Logger) {
	log = l
	zap.ReplaceGlobals(l)
	otelzap.ReplaceGlobals(otelzap.New(l))
}

// L returns the global logger, initializing it on first use.
func L() *zap.Logger {
	if log == nil {
		Initialize()
	}
	return log
}

// Sync flushes any buffered log entries. Should be called before the application exits.
// Errors are ignored: syncing a terminal stderr fails on most platforms.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
