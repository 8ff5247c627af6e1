package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = newDefault()
)

func newDefault() *zap.Logger {
	l, err := build("info", "console")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func build(levelStr, format string) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build(zap.AddCallerSkip(2))
}

// Init replaces the process logger. Format is "json" or "console".
func Init(level, format string) error {
	l, err := build(level, format)
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// Use installs an existing zap logger, e.g. zaptest.NewLogger(t) in tests.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	old := base
	base = l
	mu.Unlock()
	_ = old.Sync()
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func log(level zapcore.Level, component, msg string, fields map[string]interface{}) {
	l := current()
	if ce := l.Check(level, msg); ce != nil {
		zf := make([]zap.Field, 0, len(fields)+1)
		if component != "" {
			zf = append(zf, zap.String("component", component))
		}
		for k, v := range fields {
			zf = append(zf, zap.Any(k, v))
		}
		ce.Write(zf...)
	}
}

func DebugC(component, msg string) { log(zapcore.DebugLevel, component, msg, nil) }
func InfoC(component, msg string)  { log(zapcore.InfoLevel, component, msg, nil) }
func WarnC(component, msg string)  { log(zapcore.WarnLevel, component, msg, nil) }
func ErrorC(component, msg string) { log(zapcore.ErrorLevel, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.DebugLevel, component, msg, fields)
}

func InfoCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.InfoLevel, component, msg, fields)
}

func WarnCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.WarnLevel, component, msg, fields)
}

func ErrorCF(component, msg string, fields map[string]interface{}) {
	log(zapcore.ErrorLevel, component, msg, fields)
}
