package storefront

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus entry to Logger.
type LogrusLogger struct {
	entry *logrus.Entry
}

var _ Logger = (*LogrusLogger)(nil)

// NewLogrusLogger creates a logger writing to stdout. format is "json" or
// "text", level any logrus level name. Unknown levels fall back to info.
func NewLogrusLogger(level, format string) *LogrusLogger {
	return NewLogrusLoggerWithOutput(level, format, os.Stdout)
}

// NewLogrusLoggerWithOutput is NewLogrusLogger with an explicit writer.
func NewLogrusLoggerWithOutput(level, format string, out io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(out)

	switch strings.ToLower(format) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// With returns a child logger carrying the given fields.
func (l *LogrusLogger) With(fields map[string]any) *LogrusLogger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}

func (l *LogrusLogger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *LogrusLogger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *LogrusLogger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}
