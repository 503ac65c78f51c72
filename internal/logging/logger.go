// Package logging provides categorized file-based logging for solace.
// Each category writes to its own file under the configured log directory.
// Before Initialize is called (or when a category is disabled) every logger
// is a no-op, so library code can log unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot         Category = "boot"         // Startup and configuration
	CategoryDetection    Category = "detection"    // Method detection scoring
	CategoryEmotion      Category = "emotion"      // Emotion service calls, fallbacks
	CategoryScreening    Category = "screening"    // Clinical screening verdicts
	CategorySession      Category = "session"      // Session state machine
	CategorySafety       Category = "safety"       // Safety monitoring, alerts
	CategoryTransition   Category = "transition"   // Method transition evaluation
	CategoryGeneration   Category = "generation"   // Provider calls, fallbacks
	CategoryOrchestrator Category = "orchestrator" // Turn pipeline
	CategoryProtocol     Category = "protocol"     // Protocol catalog load/reload
	CategoryStore        Category = "store"        // Persistence operations
	CategoryAudit        Category = "audit"        // Clinical audit trail
)

type settings struct {
	dir        string
	level      zapcore.Level
	categories map[string]bool // nil means all enabled
}

var (
	mu      sync.RWMutex
	cfg     settings
	active  bool
	loggers = make(map[Category]*zap.SugaredLogger)
	files   []*os.File
	nop     = zap.NewNop().Sugar()
)

// Options controls Initialize.
type Options struct {
	Dir        string          // log directory, created if missing
	Level      string          // debug/info/warn/error, default info
	Categories map[string]bool // per-category enable; nil enables all
}

// Initialize sets up the log directory. Call once at startup.
// Until then all loggers are no-ops.
func Initialize(opts Options) error {
	if opts.Dir == "" {
		return fmt.Errorf("log directory required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	level := zapcore.InfoLevel
	switch opts.Level {
	case "", "info":
	case "debug":
		level = zapcore.DebugLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		return fmt.Errorf("unknown log level %q", opts.Level)
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = settings{dir: opts.Dir, level: level, categories: opts.Categories}
	active = true

	boot := getLocked(CategoryBoot)
	boot.Infof("logging initialized dir=%s level=%s", opts.Dir, level)
	return nil
}

// IsCategoryEnabled reports whether a category currently logs anywhere.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabledLocked(category)
}

func enabledLocked(category Category) bool {
	if !active {
		return false
	}
	if cfg.categories == nil {
		return true
	}
	enabled, ok := cfg.categories[string(category)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns (or creates) the logger for a category.
// Disabled or uninitialized categories get a shared no-op logger.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	return getLocked(category)
}

func getLocked(category Category) *zap.SugaredLogger {
	if l, ok := loggers[category]; ok {
		return l
	}
	if !enabledLocked(category) {
		return nop
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(cfg.dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return nop
	}
	files = append(files, file)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(file), cfg.level)
	l := zap.New(core).Named(string(category)).Sugar()
	loggers[category] = l
	return l
}

// CloseAll flushes and closes all open log files. Call at shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
	for _, f := range files {
		_ = f.Close()
	}
	loggers = make(map[Category]*zap.SugaredLogger)
	files = nil
	active = false
}

// Convenience functions. No-ops when the category is disabled.

func Detection(format string, args ...interface{}) {
	Get(CategoryDetection).Infof(format, args...)
}

func DetectionDebug(format string, args ...interface{}) {
	Get(CategoryDetection).Debugf(format, args...)
}

func EmotionWarn(format string, args ...interface{}) {
	Get(CategoryEmotion).Warnf(format, args...)
}

func Screening(format string, args ...interface{}) {
	Get(CategoryScreening).Infof(format, args...)
}

func ScreeningWarn(format string, args ...interface{}) {
	Get(CategoryScreening).Warnf(format, args...)
}

func Session(format string, args ...interface{}) {
	Get(CategorySession).Infof(format, args...)
}

func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debugf(format, args...)
}

func Safety(format string, args ...interface{}) {
	Get(CategorySafety).Infof(format, args...)
}

func SafetyWarn(format string, args ...interface{}) {
	Get(CategorySafety).Warnf(format, args...)
}

func Transition(format string, args ...interface{}) {
	Get(CategoryTransition).Infof(format, args...)
}

func Generation(format string, args ...interface{}) {
	Get(CategoryGeneration).Infof(format, args...)
}

func GenerationWarn(format string, args ...interface{}) {
	Get(CategoryGeneration).Warnf(format, args...)
}

func Orchestrator(format string, args ...interface{}) {
	Get(CategoryOrchestrator).Infof(format, args...)
}

func OrchestratorDebug(format string, args ...interface{}) {
	Get(CategoryOrchestrator).Debugf(format, args...)
}

func Protocol(format string, args ...interface{}) {
	Get(CategoryProtocol).Infof(format, args...)
}

func ProtocolWarn(format string, args ...interface{}) {
	Get(CategoryProtocol).Warnf(format, args...)
}

func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Errorf(format, args...)
}

// Audit writes a structured clinical-audit entry. Screening refusals,
// safety alerts and generation fallbacks all go through here so the
// audit file stands alone.
func Audit(event string, keysAndValues ...interface{}) {
	Get(CategoryAudit).Infow(event, keysAndValues...)
}
