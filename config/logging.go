package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatText = "text"
	FormatJSON = "json"
)

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelInfo, "":
		return slog.LevelInfo, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Newf("log level %q is not one of: debug, info, warn, error", s)
	}
}

// NewLogger builds the process logger writing to w. Result rows go to
// stdout, so w is normally stderr.
func (self *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(self.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if self.LogFormat == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}
