// Package logging provides component loggers for picsweep backed by
// charmbracelet/log, writing to a rotating file and optionally to stderr.
//
//	if err := logging.Init(logging.DefaultConfig()); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("catalog").Info("folder loaded", "path", dir)
//
// Loggers obtained before Init discard their output. In TUI mode console
// output is suppressed and recent entries are kept in a ring buffer for the
// log panel.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// String returns the lowercase level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when a level name is not recognized.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name, ignoring case. "warning" is accepted.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return LevelWarn, nil
	}
	for level, n := range levelNames {
		if n == name {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default level for every component.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components overrides the level per component name.
	Components map[string]string

	// ConsoleLevel mirrors entries at or above this level to stderr.
	// Empty disables console output.
	ConsoleLevel string

	// TUIMode suppresses console output and keeps recent entries in
	// memory for the log panel.
	TUIMode bool
}

// DefaultLogPath returns $XDG_STATE_HOME/picsweep/picsweep.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "picsweep", "picsweep.log")
}

// DefaultConfig returns info-level file logging with default rotation.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

// Entry is a log record delivered to the TUI.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Logger is a component logger.
type Logger struct {
	component string
	file      *log.Logger
	console   *log.Logger
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.emit(LevelDebug, msg, keyvals) }

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) { l.emit(LevelInfo, msg, keyvals) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) { l.emit(LevelWarn, msg, keyvals) }

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.emit(LevelError, msg, keyvals) }

// With returns a logger that adds keyvals to every entry.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	child := &Logger{component: l.component, file: l.file.With(keyvals...)}
	if l.console != nil {
		child.console = l.console.With(keyvals...)
	}
	return child
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) emit(level Level, msg string, keyvals []interface{}) {
	write(l.file, level, msg, keyvals)
	if l.console != nil {
		write(l.console, level, msg, keyvals)
	}

	// Entries below the component's level stay out of the panel too.
	if l.file.GetLevel() > level.charm() {
		return
	}
	reg.publish(Entry{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Message:   msg,
	})
}

func write(logger *log.Logger, level Level, msg string, keyvals []interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, keyvals...)
	case LevelInfo:
		logger.Info(msg, keyvals...)
	case LevelWarn:
		logger.Warn(msg, keyvals...)
	case LevelError:
		logger.Error(msg, keyvals...)
	}
}

// registry is the process-wide logging state.
type registry struct {
	mu          sync.RWMutex
	ready       bool
	writer      *RotatingWriter
	level       Level
	overrides   map[string]Level
	console     bool
	consoleLvl  Level
	loggers     map[string]*Logger
	buffer      *Buffer
	subscribers map[chan Entry]struct{}
}

var reg = &registry{
	level:       LevelInfo,
	loggers:     make(map[string]*Logger),
	overrides:   make(map[string]Level),
	subscribers: make(map[chan Entry]struct{}),
}

// Init configures logging. Loggers handed out earlier are rebuilt so they
// pick up the new destination.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	overrides := make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		overrides[comp] = lvl
	}

	console := false
	consoleLvl := LevelInfo
	if cfg.ConsoleLevel != "" && !cfg.TUIMode {
		consoleLvl, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.writer != nil {
		_ = reg.writer.Close()
	}

	reg.writer = writer
	reg.level = level
	reg.overrides = overrides
	reg.console = console
	reg.consoleLvl = consoleLvl
	reg.buffer = nil
	if cfg.TUIMode {
		reg.buffer = NewBuffer(DefaultBufferSize)
	}
	reg.ready = true

	for comp, logger := range reg.loggers {
		*logger = *reg.build(comp)
	}

	return nil
}

// Get returns the logger for component, creating it on first use. The same
// pointer is returned for the lifetime of the process and is updated in
// place by Init and Close.
func Get(component string) *Logger {
	reg.mu.RLock()
	logger, ok := reg.loggers[component]
	reg.mu.RUnlock()
	if ok {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if logger, ok := reg.loggers[component]; ok {
		return logger
	}
	logger = reg.build(component)
	reg.loggers[component] = logger
	return logger
}

// build creates a logger for component. Callers hold reg.mu.
func (r *registry) build(component string) *Logger {
	level := r.level
	if lvl, ok := r.overrides[component]; ok {
		level = lvl
	}

	var out io.Writer = io.Discard
	if r.ready {
		out = r.writer
	}

	logger := &Logger{
		component: component,
		file: log.NewWithOptions(out, log.Options{
			Level:           level.charm(),
			ReportTimestamp: r.ready,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}

	if r.ready && r.console {
		logger.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:           r.consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes the log file and returns every logger to discard mode.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if !reg.ready {
		return nil
	}

	for ch := range reg.subscribers {
		close(ch)
		delete(reg.subscribers, ch)
	}

	var err error
	if reg.writer != nil {
		err = reg.writer.Close()
		reg.writer = nil
	}

	reg.ready = false
	reg.buffer = nil
	reg.level = LevelInfo
	reg.overrides = make(map[string]Level)
	for comp, logger := range reg.loggers {
		*logger = *reg.build(comp)
	}

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// Subscribe returns a channel of new entries. Entries are dropped when the
// channel is full.
func Subscribe() <-chan Entry {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ch := make(chan Entry, 100)
	reg.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch. The channel is not closed.
func Unsubscribe(ch <-chan Entry) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for sub := range reg.subscribers {
		if sub == ch {
			delete(reg.subscribers, sub)
			return
		}
	}
}

// LogBuffer returns the TUI ring buffer, or nil outside TUI mode.
func LogBuffer() *Buffer {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.buffer
}

func (r *registry) publish(e Entry) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.buffer != nil {
		r.buffer.Add(e)
	}
	for ch := range r.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
