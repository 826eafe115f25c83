// Package logger configures the global zerolog logger for both binaries.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or a file path
	Level  string // "debug", "info", "warn", "error"
}

// Init installs the global logger. Console output is colored and
// human readable, file output is JSON lines.
func Init(cfg Config) error {
	level := ParseLevel(cfg.Level)

	writer, console, err := openOutput(cfg.Output)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.CallerMarshalFunc = shortCaller

	var ctx zerolog.Context
	if console {
		cw := zerolog.ConsoleWriter{
			Out:        writer,
			TimeFormat: time.TimeOnly,
		}
		if level == zerolog.DebugLevel {
			cw.PartsOrder = []string{"time", "level", "message", "caller"}
			cw.FormatCaller = func(i interface{}) string {
				s, _ := i.(string)
				return "(" + s + ")"
			}
		}
		ctx = zerolog.New(cw).With().Timestamp()
	} else {
		ctx = zerolog.New(writer).With().Timestamp()
	}

	// Caller lookup is only worth its cost while debugging.
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}

	logger := ctx.Logger()
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return nil
}

func openOutput(output string) (io.Writer, bool, error) {
	switch strings.ToLower(output) {
	case "stdout", "":
		return os.Stdout, true, nil
	case "stderr":
		return os.Stderr, true, nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, false, errors.Wrap(err, "failed to create log directory")
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to open log file %s", output)
	}
	return f, false, nil
}

// shortCaller keeps the last directory and the file name.
func shortCaller(pc uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
