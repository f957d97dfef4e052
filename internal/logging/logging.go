// Package logging configures the application's slog loggers: a JSON logger on
// stdout, a human-readable text logger on stderr and optional rotating file
// loggers per service.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Rotation strategies understood by NewFileLogger.
const (
	RotationDaily  = "daily"
	RotationWeekly = "weekly"
	RotationSize   = "size"
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

var (
	mu                  sync.RWMutex
	level               = new(slog.LevelVar)
	structuredLogger    *slog.Logger
	humanReadableLogger *slog.Logger
)

// RotationConfig controls how file loggers rotate.
type RotationConfig struct {
	Rotation string // daily, weekly or size
	MaxSize  int64  // bytes, used for size rotation
}

func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		lvl, ok := a.Value.Any().(slog.Level)
		if !ok {
			return a
		}
		label, exists := levelNames[lvl]
		if !exists {
			label = lvl.String()
		}
		a.Value = slog.StringValue(label)
	}
	return a
}

// Init initializes the logging system with structured and human-readable loggers.
func Init() {
	SetOutput(os.Stdout, os.Stderr)
}

// SetLevel sets the minimum logging level for both loggers.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetOutput redirects both loggers, keeping the current level.
func SetOutput(structuredOutput, humanReadableOutput io.Writer) {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}

	mu.Lock()
	structuredLogger = slog.New(slog.NewJSONHandler(structuredOutput, opts))
	humanReadableLogger = slog.New(slog.NewTextHandler(humanReadableOutput, opts))
	mu.Unlock()

	slog.SetDefault(structuredLogger)
}

// Structured returns the structured (JSON) logger, or nil before Init.
func Structured() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return structuredLogger
}

// HumanReadable returns the human-readable (text) logger, or nil before Init.
func HumanReadable() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return humanReadableLogger
}

// ForService returns a logger carrying the 'service' attribute. Before Init
// it falls back to slog.Default so callers never receive nil.
func ForService(serviceName string) *slog.Logger {
	base := Structured()
	if base == nil {
		base = slog.Default()
	}
	return base.With("service", serviceName)
}

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs at FATAL level and exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs at TRACE level.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// NewFileLogger creates a JSON logger writing to filePath through lumberjack.
// It returns the logger and a function closing the underlying writer.
func NewFileLogger(filePath, serviceName string, lvl slog.Level, rc RotationConfig) (*slog.Logger, func() error, error) {
	logWriter, err := rotatingWriter(filePath, rc)
	if err != nil {
		return nil, nil, err
	}

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: replaceLevel,
	})

	return slog.New(fileHandler).With("service", serviceName), logWriter.Close, nil
}

func rotatingWriter(filePath string, rc RotationConfig) (*lumberjack.Logger, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	maxSizeMB, maxBackups, maxAge := rotationLimits(rc)
	return &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
	}, nil
}

// rotationLimits maps a rotation config onto lumberjack's size (MB), backup
// count and age (days).
func rotationLimits(rc RotationConfig) (maxSizeMB, maxBackups, maxAge int) {
	maxSizeMB, maxBackups, maxAge = 100, 3, 28

	if configured := int(rc.MaxSize / (1024 * 1024)); configured > 0 {
		maxSizeMB = configured
	}

	switch rc.Rotation {
	case RotationDaily:
		maxAge, maxBackups = 1, 30
	case RotationWeekly:
		maxAge, maxBackups = 7, 4
	case RotationSize, "":
	default:
		slog.Warn("Unknown log rotation type in config, using size-based defaults", "configuredType", rc.Rotation)
	}
	return maxSizeMB, maxBackups, maxAge
}

// Tee returns a logger that writes every record to both loggers.
func Tee(primary, secondary *slog.Logger) *slog.Logger {
	return slog.New(teeHandler{primary.Handler(), secondary.Handler()})
}

type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

// AddFileOutput tees the structured logger into a rotating JSON file. Call it
// after Init; the returned function closes the file.
func AddFileOutput(filePath string, rc RotationConfig) (func() error, error) {
	logWriter, err := rotatingWriter(filePath, rc)
	if err != nil {
		return nil, err
	}
	// The shared level var keeps SetLevel governing the file too.
	fileLogger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}))

	mu.Lock()
	base := structuredLogger
	if base == nil {
		base = slog.Default()
	}
	structuredLogger = Tee(base, fileLogger)
	current := structuredLogger
	mu.Unlock()

	slog.SetDefault(current)
	return logWriter.Close, nil
}
