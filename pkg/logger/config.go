/* pkg/logger/config.go */

package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Environment variables read by DefaultConfig.
const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvLogFile   = "HARVEST_LOG_FILE"
)

// DefaultConfig returns the zap config used by harvest. Diagnostics always go to
// stderr; stdout is never written so the output file stays the only data channel.
func DefaultConfig() zap.Config {
	outputs := []string{"stderr"}
	if path := os.Getenv(EnvLogFile); path != "" {
		outputs = append(outputs, path)
	}

	encoding := "console"
	encoderCfg := DefaultConsoleEncoderConfig()
	if len(outputs) == 1 && stderrIsTerminal() {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if strings.EqualFold(os.Getenv(EnvLogFormat), "json") {
		encoding = "json"
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLogLevel(os.Getenv(EnvLogLevel))),
		Development:      os.Getenv("ENV") == "development",
		Encoding:         encoding,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoderCfg,
	}
}

// ParseLogLevel maps LOG_LEVEL values onto zap levels, defaulting to info.
func ParseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	case "DPANIC":
		return zapcore.DPanicLevel
	default:
		return zapcore.InfoLevel
	}
}

// stderrIsTerminal reports whether colour escapes will reach a terminal.
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func DefaultConsoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "T"
	cfg.LevelKey = "L"
	cfg.NameKey = "N"
	cfg.CallerKey = "C"
	cfg.MessageKey = "M"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
