// Package logger holds the process-wide zap logger used by every studio component.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It discards everything until Init is called,
// so library code and tests can log without setup.
var Log = zap.NewNop()

// Sugar is the sugared form of Log.
var Sugar = Log.Sugar()

// Options controls where log output goes.
type Options struct {
	Level   string
	Console bool
	JSON    bool // file output as JSON lines instead of console text
	File    FileConfig
}

// FileConfig holds rotation settings for the log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns default file logging settings.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// Init configures console logging at level, plus a rotated file when logFile is set.
func Init(level, logFile string) error {
	opts := Options{Level: level, Console: true}
	if logFile != "" {
		opts.File = DefaultFileConfig(logFile)
	}
	return InitWithOptions(opts)
}

// InitWithOptions replaces Log and Sugar according to opts.
func InitWithOptions(opts Options) error {
	lvl := ParseLevel(opts.Level)

	var cores []zapcore.Core

	if opts.Console {
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			NameKey:          "component",
			MessageKey:       "msg",
			CallerKey:        "caller",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05.000"),
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			EncodeCaller:     zapcore.ShortCallerEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl))
	}

	if opts.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File.Path), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		w := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
			LocalTime:  true,
		}

		encCfg := zapcore.EncoderConfig{
			TimeKey:          "ts",
			LevelKey:         "level",
			NameKey:          "component",
			MessageKey:       "msg",
			CallerKey:        "caller",
			EncodeTime:       zapcore.ISO8601TimeEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeCaller:     zapcore.ShortCallerEncoder,
			EncodeDuration:   zapcore.MillisDurationEncoder,
			ConsoleSeparator: " ",
		}
		var enc zapcore.Encoder
		if opts.JSON {
			enc = zapcore.NewJSONEncoder(encCfg)
		} else {
			enc = zapcore.NewConsoleEncoder(encCfg)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), lvl))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Sugar = Log.Sugar()
	return nil
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Named returns a child of the global logger tagged with a component name.
// Callers should fetch it when they need it rather than caching it at package
// init, otherwise they keep the no-op logger.
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}
