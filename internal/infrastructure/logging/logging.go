// Package logging configures the logrus logger shared by flowboard commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format selects the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New builds a logger writing to out at the given level. DEBUG=true in the
// environment forces debug level.
func New(out io.Writer, level string, format Format) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)

	switch format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	case FormatText, "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// ToFile points the logger at path, for full-screen views that own the
// terminal. The returned closer must be called on exit.
func ToFile(logger *logrus.Logger, path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return f, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
