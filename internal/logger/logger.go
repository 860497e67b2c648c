// Package logger wraps logrus with the field conventions used across the
// scanner: every entry carries a component, sources add a source field.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias-compatible map for structured fields.
type Fields map[string]any

// Config controls logger construction.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Output is "stdout", "stderr" or a file path.
	Output string `yaml:"output"`
	// MaxAgeDays enables rotation through lumberjack for file outputs.
	MaxAgeDays int `yaml:"max_age_days"`
	MaxSizeMB  int `yaml:"max_size_mb"`
}

// Log wraps logrus.Logger.
type Log struct {
	*logrus.Logger
}

// Entry wraps logrus.Entry.
type Entry struct {
	*logrus.Entry
}

// New builds a logger from cfg.
func New(cfg Config) (*Log, error) {
	l := &Log{Logger: logrus.New()}
	if err := l.Configure(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// Nop returns a logger that discards everything. Used in tests and as the
// default when callers pass nil.
func Nop() *Log {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Log{Logger: l}
}

// Configure applies level, format and output.
func (l *Log) Configure(cfg Config) error {
	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	l.SetLevel(lvl)

	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	switch cfg.Format {
	case "json", "":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
			CallerPrettyfier: callerPrettyfier,
		})
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		return fmt.Errorf("invalid log format %q", cfg.Format)
	}

	switch cfg.Output {
	case "stdout", "":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		if cfg.MaxAgeDays > 0 {
			maxSize := cfg.MaxSizeMB
			if maxSize <= 0 {
				maxSize = 100
			}
			l.SetOutput(&lumberjack.Logger{
				Filename: cfg.Output,
				MaxAge:   cfg.MaxAgeDays,
				MaxSize:  maxSize,
				Compress: true,
			})
		} else {
			file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file %q: %w", cfg.Output, err)
			}
			l.SetOutput(file)
		}
	}
	return nil
}

// WithComponent returns an entry tagged with the component name.
func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.Logger.WithField("component", component)}
}

// WithFields returns an entry carrying fields.
func (l *Log) WithFields(fields Fields) *Entry {
	return &Entry{Entry: l.Logger.WithFields(logrus.Fields(fields))}
}

// WithError returns an entry carrying err.
func (l *Log) WithError(err error) *Entry {
	return &Entry{Entry: l.Logger.WithError(err)}
}

// WithComponent tags the entry with a component name.
func (e *Entry) WithComponent(component string) *Entry {
	return &Entry{Entry: e.Entry.WithField("component", component)}
}

// WithSource tags the entry with a market source name.
func (e *Entry) WithSource(source string) *Entry {
	return &Entry{Entry: e.Entry.WithField("source", source)}
}

// WithField adds a single field.
func (e *Entry) WithField(key string, value any) *Entry {
	return &Entry{Entry: e.Entry.WithField(key, value)}
}

// WithFields adds fields.
func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields))}
}

// WithError adds err under the error key.
func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}
