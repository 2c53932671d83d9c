package logging

import (
	"io"
	log "log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

var levels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// ParseLevel maps a level name to its slog level. Unknown names yield info.
func ParseLevel(name string) (log.Level, bool) {
	l, ok := levels[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return log.LevelInfo, false
	}
	return l, true
}

func New(w io.Writer, level string) *log.Logger {
	l, _ := ParseLevel(level)
	return log.New(tint.NewHandler(w, &tint.Options{
		Level:      l,
		TimeFormat: time.TimeOnly,
	}))
}

// Setup installs a tint logger as the process default and returns it.
func Setup(w io.Writer, level string) *log.Logger {
	logger := New(w, level)
	log.SetDefault(logger)
	if _, ok := ParseLevel(level); !ok {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}
