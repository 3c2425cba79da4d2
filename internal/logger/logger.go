// Package logger wraps zerolog with category-based debug logging, matching
// the category/config/singleton shape used across the stream core.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the logging verbosity level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// DebugCategory represents a specific debug category for targeted debugging.
type DebugCategory string

const (
	DebugPipe     DebugCategory = "pipe"
	DebugNAL      DebugCategory = "nal"
	DebugSegment  DebugCategory = "segment"
	DebugHLS      DebugCategory = "hls"
	DebugWebRTC   DebugCategory = "webrtc"
	DebugPTZ      DebugCategory = "ptz"
	DebugAll      DebugCategory = "all"
)

// OutputFormat determines the log output format.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// Config holds logger configuration.
type Config struct {
	Level             LogLevel
	Format            OutputFormat
	OutputFile        string
	EnabledCategories map[DebugCategory]bool
	mu                sync.RWMutex
}

// NewConfig creates a new logger configuration with defaults.
func NewConfig() *Config {
	return &Config{
		Level:             LevelInfo,
		Format:            FormatText,
		OutputFile:        "",
		EnabledCategories: make(map[DebugCategory]bool),
	}
}

// ParseLevel converts a string to LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch level {
	case "debug", "DEBUG":
		return LevelDebug, nil
	case "info", "INFO":
		return LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return LevelWarn, nil
	case "error", "ERROR":
		return LevelError, nil
	default:
		return "", fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}

// ParseFormat converts a string to OutputFormat.
func ParseFormat(format string) (OutputFormat, error) {
	switch format {
	case "json", "JSON":
		return FormatJSON, nil
	case "text", "TEXT":
		return FormatText, nil
	default:
		return "", fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
}

// ToZerologLevel converts LogLevel to a zerolog.Level.
func (l LogLevel) ToZerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// EnableCategory enables a specific debug category.
func (c *Config) EnableCategory(category DebugCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if category == DebugAll {
		c.EnabledCategories[DebugPipe] = true
		c.EnabledCategories[DebugNAL] = true
		c.EnabledCategories[DebugSegment] = true
		c.EnabledCategories[DebugHLS] = true
		c.EnabledCategories[DebugWebRTC] = true
		c.EnabledCategories[DebugPTZ] = true
	} else {
		c.EnabledCategories[category] = true
	}
}

// IsCategoryEnabled reports whether a debug category is enabled.
func (c *Config) IsCategoryEnabled(category DebugCategory) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.EnabledCategories[category]
}

// IsDebugEnabled reports whether any debug category is enabled.
func (c *Config) IsDebugEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.EnabledCategories) > 0
}

// Logger wraps zerolog.Logger with category-based debugging.
type Logger struct {
	zl     zerolog.Logger
	config *Config
	file   *os.File
}

// New creates a new Logger instance with the given configuration.
func New(cfg *Config) (*Logger, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.OutputFile, err)
		}
		writer = f
		file = f
	}

	if cfg.Format == FormatText {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(writer).With().Timestamp().Logger().Level(cfg.Level.ToZerologLevel())

	return &Logger{zl: zl, config: cfg, file: file}, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func applyFields(evt *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		evt = evt.Interface(key, args[i+1])
	}
	return evt
}

func (l *Logger) Debug(msg string, args ...any) { applyFields(l.zl.Debug(), args).Msg(msg) }
func (l *Logger) Info(msg string, args ...any)  { applyFields(l.zl.Info(), args).Msg(msg) }
func (l *Logger) Warn(msg string, args ...any)  { applyFields(l.zl.Warn(), args).Msg(msg) }
func (l *Logger) Error(msg string, args ...any) { applyFields(l.zl.Error(), args).Msg(msg) }

// With returns a new Logger carrying the given key/value pairs on every entry.
func (l *Logger) With(args ...any) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		ctx = ctx.Interface(key, args[i+1])
	}
	return &Logger{zl: ctx.Logger(), config: l.config, file: l.file}
}

// Category-specific logging methods, gated on the enabled-category set.

func (l *Logger) DebugPipe(msg string, args ...any) {
	if l.config.IsCategoryEnabled(DebugPipe) {
		l.Debug(msg, append([]any{"category", "pipe"}, args...)...)
	}
}

func (l *Logger) DebugNAL(msg string, args ...any) {
	if l.config.IsCategoryEnabled(DebugNAL) {
		l.Debug(msg, append([]any{"category", "nal"}, args...)...)
	}
}

func (l *Logger) DebugSegment(msg string, args ...any) {
	if l.config.IsCategoryEnabled(DebugSegment) {
		l.Debug(msg, append([]any{"category", "segment"}, args...)...)
	}
}

func (l *Logger) DebugHLS(msg string, args ...any) {
	if l.config.IsCategoryEnabled(DebugHLS) {
		l.Debug(msg, append([]any{"category", "hls"}, args...)...)
	}
}

func (l *Logger) DebugWebRTC(msg string, args ...any) {
	if l.config.IsCategoryEnabled(DebugWebRTC) {
		l.Debug(msg, append([]any{"category", "webrtc"}, args...)...)
	}
}

func (l *Logger) DebugPTZ(msg string, args ...any) {
	if l.config.IsCategoryEnabled(DebugPTZ) {
		l.Debug(msg, append([]any{"category", "ptz"}, args...)...)
	}
}

// NALTypeName returns a short name for a known H.264 NAL unit type.
func NALTypeName(naluType uint8) string {
	switch naluType {
	case 1:
		return "P-frame"
	case 5:
		return "IDR"
	case 6:
		return "SEI"
	case 7:
		return "SPS"
	case 8:
		return "PPS"
	case 9:
		return "AUD"
	case 28:
		return "FU-A"
	default:
		return fmt.Sprintf("unknown(%d)", naluType)
	}
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// SetDefault sets the global default logger.
func SetDefault(l *Logger) {
	defaultLogger = l
}

// Default returns the default logger, creating one if necessary.
func Default() *Logger {
	once.Do(func() {
		cfg := NewConfig()
		l, err := New(cfg)
		if err != nil {
			l = &Logger{zl: zerolog.New(os.Stderr), config: cfg}
		}
		defaultLogger = l
	})
	return defaultLogger
}

// Package-level convenience functions using the default logger.

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
