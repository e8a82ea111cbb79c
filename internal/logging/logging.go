// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures logrus.StandardLogger from a level name ("debug", "info",
// ...) and a format ("text" or "json") and returns it. An unknown level falls
// back to info and is reported through the returned logger.
func Setup(level, format string) *logrus.Logger {
	return Configure(logrus.StandardLogger(), level, format, os.Stderr)
}

// Configure applies level, format and output to l.
func Configure(l *logrus.Logger, level, format string, out io.Writer) *logrus.Logger {
	l.SetOutput(out)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.WithField("level", level).Warn("logging: unknown level, using info")
		return l
	}
	l.SetLevel(lvl)
	return l
}
