package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel is the operator-facing verbosity knob. It is coarser than the
// logrus levels on purpose; levelToLogrus does the mapping.
type LogLevel string

// The four levels, from least to most output.
const (
	LogLevelQuiet   LogLevel = "quiet"   // critical errors only
	LogLevelNormal  LogLevel = "normal"  // standard operational messages
	LogLevelVerbose LogLevel = "verbose" // detailed progress
	LogLevelDebug   LogLevel = "debug"   // everything, including trace output
)

// Logger wraps a logrus logger and remembers which LogLevel it was
// configured with, since the mapping to logrus levels is lossy.
type Logger struct {
	log   *logrus.Logger
	level LogLevel
}

// Config controls where log lines go and how much gets written.
type Config struct {
	Level  LogLevel
	Format string // "text" or "json"

	Output  io.Writer // defaults to os.Stdout
	LogFile string    // when set, output is mirrored to this file

	ShowCaller bool
}

// levelToLogrus maps the four operator-facing levels onto logrus levels.
// Anything unrecognized lands on the normal level.
func levelToLogrus(level LogLevel) logrus.Level {
	switch level {
	case LogLevelQuiet:
		return logrus.ErrorLevel
	case LogLevelVerbose:
		return logrus.DebugLevel
	case LogLevelDebug:
		return logrus.TraceLevel
	default:
		return logrus.InfoLevel
	}
}

// buildFormatter picks the output format. Caller reporting forces the text
// formatter so the frame columns stay readable.
func buildFormatter(format string, showCaller bool) logrus.Formatter {
	if showCaller {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return fmt.Sprintf("%s()", f.Function), fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
			},
		}
	}

	if format == "json" {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	}

	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// NewLogger builds a Logger from the given Config.
func NewLogger(config Config) (*Logger, error) {
	core := logrus.New()
	core.SetFormatter(buildFormatter(config.Format, config.ShowCaller))
	core.SetLevel(levelToLogrus(config.Level))
	core.SetReportCaller(config.ShowCaller)

	output := config.Output
	if output == nil {
		output = os.Stdout
	}
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}
		output = io.MultiWriter(output, file)
	}
	core.SetOutput(output)

	return &Logger{log: core, level: config.Level}, nil
}

// NewDefaultLogger returns a text logger on stdout at the normal level.
func NewDefaultLogger() *Logger {
	logger, _ := NewLogger(Config{Level: LogLevelNormal, Output: os.Stdout, Format: "text"})
	return logger
}

// WithFields returns an entry carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.log.WithFields(fields)
}

// WithField returns an entry carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.log.WithField(key, value)
}

// Plain leveled logging, delegated straight to logrus.

func (l *Logger) Info(msg string)                           { l.log.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log.Infof(format, args...) }
func (l *Logger) Debug(msg string)                          { l.log.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log.Debugf(format, args...) }
func (l *Logger) Warn(msg string)                           { l.log.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log.Warnf(format, args...) }
func (l *Logger) Error(msg string)                          { l.log.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log.Errorf(format, args...) }
func (l *Logger) Fatal(msg string)                          { l.log.Fatal(msg) }
func (l *Logger) Fatalf(format string, args ...interface{}) { l.log.Fatalf(format, args...) }

// GetLevel reports the configured level.
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// SetLevel changes the level at runtime.
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.log.SetLevel(levelToLogrus(level))
}

// IsLevelEnabled reports whether lines at the given level would be written.
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	return l.log.IsLevelEnabled(levelToLogrus(level))
}

// LogOperationStart writes a debug line marking the start of an operation
// and returns a function that logs its completion with the measured
// duration. Pass the eventual error (or nil) to that function.
func (l *Logger) LogOperationStart(operation string, extra map[string]interface{}) func(error) {
	started := time.Now()

	fields := logrus.Fields{"operation": operation, "status": "started"}
	for k, v := range extra {
		fields[k] = v
	}
	l.log.WithFields(fields).Debug("Operation started")

	return func(err error) {
		fields["status"] = "completed"
		fields["duration"] = time.Since(started).String()
		fields["success"] = err == nil
		if err != nil {
			fields["error"] = err.Error()
			l.log.WithFields(fields).Error("Operation failed")
			return
		}
		l.log.WithFields(fields).Info("Operation completed")
	}
}
