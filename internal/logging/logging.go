// Package logging provides categorized logging for protoforge on top of
// zap. Each subsystem logs through a named category so sessions can be
// debugged per concern (orchestrator, tools, model, ...).
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one logging subsystem.
type Category string

const (
	CategoryOrchestrator Category = "orchestrator" // loop, iterations, persistence
	CategoryTools        Category = "tools"        // tool dispatch and execution
	CategoryModel        Category = "model"        // model API calls, retries
	CategoryBoard        Category = "board"        // auto-selection, packing
	CategoryValidation   Category = "validation"   // cross-stage checks
	CategoryStore        Category = "store"        // project store operations
)

var (
	mu      sync.RWMutex
	root    *zap.SugaredLogger
	loggers = make(map[Category]*zap.SugaredLogger)
)

func init() {
	// Nop until Init is called; packages can log unconditionally.
	root = zap.NewNop().Sugar()
}

// Init installs the process-wide logger. debug selects development encoding
// and debug level; a non-empty file path adds a log file alongside stderr.
func Init(debug bool, file string) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if file != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, file)
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	root = logger.Sugar()
	loggers = make(map[Category]*zap.SugaredLogger)
	return nil
}

// Get returns the logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := root.Named(string(cat))
	loggers[cat] = l
	return l
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// Per-category helpers, matching call sites like
// logging.Orchestrator("iteration %d complete", n).

func Orchestrator(format string, args ...any)      { Get(CategoryOrchestrator).Infof(format, args...) }
func OrchestratorDebug(format string, args ...any) { Get(CategoryOrchestrator).Debugf(format, args...) }
func Tools(format string, args ...any)             { Get(CategoryTools).Infof(format, args...) }
func ToolsDebug(format string, args ...any)        { Get(CategoryTools).Debugf(format, args...) }
func Model(format string, args ...any)             { Get(CategoryModel).Infof(format, args...) }
func ModelDebug(format string, args ...any)        { Get(CategoryModel).Debugf(format, args...) }
func Board(format string, args ...any)             { Get(CategoryBoard).Infof(format, args...) }
func BoardDebug(format string, args ...any)        { Get(CategoryBoard).Debugf(format, args...) }
func Validation(format string, args ...any)        { Get(CategoryValidation).Infof(format, args...) }
func ValidationDebug(format string, args ...any)   { Get(CategoryValidation).Debugf(format, args...) }
func Store(format string, args ...any)             { Get(CategoryStore).Infof(format, args...) }
func StoreDebug(format string, args ...any)        { Get(CategoryStore).Debugf(format, args...) }
