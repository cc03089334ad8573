// Package logging provides config-driven categorized logging for llmtools.
// Each category is a named child of one zap logger; categories can be
// switched off individually in the logging section of the config file.
// Until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"llmtools/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config loading
	CategoryGateway   Category = "gateway"   // Database operation dispatch
	CategoryPool      Category = "pool"      // Connection pool lifecycle
	CategoryTools     Category = "tools"     // Tool registry and execution
	CategoryAudit     Category = "audit"     // Audit trail persistence
	CategoryTransport Category = "transport" // NATS request handling
	CategoryMetrics   Category = "metrics"   // Metrics endpoint
)

// Logger is a category-scoped sugared zap logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
	closeSink  func()
)

// Initialize builds the process logger from config. Safe to call again;
// the previous sink is closed.
func Initialize(cfg config.LoggingConfig) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = lvl
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch cfg.Format {
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	sink := zapcore.Lock(os.Stderr)
	closer := func() {}
	if cfg.File != "" {
		ws, c, err := zap.Open(cfg.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink, closer = ws, c
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))
	install(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), cfg.Categories, closer)

	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s", level, cfg.Format)
	return nil
}

// Replace swaps in l (typically a zaptest/observer logger) and returns a
// function that restores the previous state.
func Replace(l *zap.Logger, cats map[string]bool) (restore func()) {
	mu.Lock()
	prevBase, prevCats, prevClose := base, categories, closeSink
	base, categories, closeSink = l, cats, nil
	loggers = make(map[Category]*Logger)
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		base, categories, closeSink = prevBase, prevCats, prevClose
		loggers = make(map[Category]*Logger)
	}
}

func install(l *zap.Logger, cats map[string]bool, closer func()) {
	mu.Lock()
	defer mu.Unlock()
	if closeSink != nil {
		_ = base.Sync()
		closeSink()
	}
	base = l
	categories = cats
	closeSink = closer
	loggers = make(map[Category]*Logger)
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	z := zap.NewNop()
	if categoryEnabledLocked(category) {
		z = base.Named(string(category))
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Zap returns the underlying process logger.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries and closes a file sink.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	if closeSink != nil {
		closeSink()
		closeSink = nil
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a copy of the logger carrying the given key-value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// BootError logs error to the boot category
func BootError(format string, args ...interface{}) {
	Get(CategoryBoot).Error(format, args...)
}

// GatewayDebug logs debug to the gateway category
func GatewayDebug(format string, args ...interface{}) {
	Get(CategoryGateway).Debug(format, args...)
}

// GatewayWarn logs warning to the gateway category
func GatewayWarn(format string, args ...interface{}) {
	Get(CategoryGateway).Warn(format, args...)
}

// GatewayError logs error to the gateway category
func GatewayError(format string, args ...interface{}) {
	Get(CategoryGateway).Error(format, args...)
}

// Pool logs to the pool category
func Pool(format string, args ...interface{}) {
	Get(CategoryPool).Info(format, args...)
}

// PoolDebug logs debug to the pool category
func PoolDebug(format string, args ...interface{}) {
	Get(CategoryPool).Debug(format, args...)
}

// PoolError logs error to the pool category
func PoolError(format string, args ...interface{}) {
	Get(CategoryPool).Error(format, args...)
}

// ToolsDebug logs debug to the tools category
func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debug(format, args...)
}

// ToolsWarn logs warning to the tools category
func ToolsWarn(format string, args ...interface{}) {
	Get(CategoryTools).Warn(format, args...)
}

// Audit logs to the audit category
func Audit(format string, args ...interface{}) {
	Get(CategoryAudit).Info(format, args...)
}

// AuditError logs error to the audit category
func AuditError(format string, args ...interface{}) {
	Get(CategoryAudit).Error(format, args...)
}

// Transport logs to the transport category
func Transport(format string, args ...interface{}) {
	Get(CategoryTransport).Info(format, args...)
}

// TransportDebug logs debug to the transport category
func TransportDebug(format string, args ...interface{}) {
	Get(CategoryTransport).Debug(format, args...)
}

// TransportWarn logs warning to the transport category
func TransportWarn(format string, args ...interface{}) {
	Get(CategoryTransport).Warn(format, args...)
}

// TransportError logs error to the transport category
func TransportError(format string, args ...interface{}) {
	Get(CategoryTransport).Error(format, args...)
}

// Metrics logs to the metrics category
func Metrics(format string, args ...interface{}) {
	Get(CategoryMetrics).Info(format, args...)
}

// MetricsError logs error to the metrics category
func MetricsError(format string, args ...interface{}) {
	Get(CategoryMetrics).Error(format, args...)
}

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// WithRequestID returns a category logger tagged with a correlation ID.
func WithRequestID(category Category, requestID string) *Logger {
	return Get(category).With("req", requestID)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
