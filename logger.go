package main

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig is the [log] section of the config file.
type LoggerConfig struct {
	Level       string
	Format      string // "console" or "json"
	LogFile     string
	ServiceName string
}

var (
	globalLogger atomic.Pointer[zap.Logger]
	loggerOnce   sync.Once
)

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorBlue   = "\x1b[34m"
	colorReset  = "\x1b[0m"
)

// InitializeLogger builds the global logger once. Console output goes to w.
// When cfg.LogFile is set a rotated JSON file sink is added.
func InitializeLogger(cfg LoggerConfig, w io.Writer) {
	loggerOnce.Do(func() {
		globalLogger.Store(newLogger(cfg, zapcore.AddSync(w)))
	})
}

func newLogger(cfg LoggerConfig, console zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	cores := []zapcore.Core{zapcore.NewCore(newEncoder(cfg.Format), console, level)}
	if cfg.LogFile != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
		cores = append(cores, zapcore.NewCore(newEncoder("json"), file, level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger
}

func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if format == "console" {
		ec.EncodeLevel = colorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

func colorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := colorReset
	switch l {
	case zapcore.DebugLevel:
		color = colorBlue
	case zapcore.InfoLevel:
		color = colorCyan
	case zapcore.WarnLevel:
		color = colorYellow
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = colorRed
	}
	enc.AppendString(color + strings.ToUpper(l.String()) + colorReset)
}

// GetLogger returns the global logger. Before InitializeLogger runs it
// installs a stderr fallback at info level, built once and replaced by the
// configured logger later.
func GetLogger() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	fallback := newLogger(LoggerConfig{Level: "info", Format: "console"}, zapcore.Lock(os.Stderr))
	if globalLogger.CompareAndSwap(nil, fallback) {
		return fallback
	}
	return globalLogger.Load()
}

// SetLogger replaces the global logger. Used by tests to observe output.
func SetLogger(l *zap.Logger) {
	globalLogger.Store(l)
}

// SyncLogger flushes buffered log entries.
func SyncLogger() {
	if l := globalLogger.Load(); l != nil {
		_ = l.Sync()
	}
}
