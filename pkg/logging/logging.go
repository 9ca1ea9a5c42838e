// Package logging создает zerolog логгеры для бинарников нормализатора
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options - параметры логгера
type Options struct {
	Level  string    // trace, debug, info, warn, error (по умолчанию info)
	Format string    // json (по умолчанию) или console
	Out    io.Writer // по умолчанию os.Stderr
}

// New создает логгер. Формат console пишет человекочитаемые строки с
// временем в RFC3339, json - одну JSON запись на строку.
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level '%s': %w", opts.Level, err)
		}
		level = parsed
	}

	switch opts.Format {
	case "", "json":
	case "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format '%s', must be one of: json, console", opts.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
