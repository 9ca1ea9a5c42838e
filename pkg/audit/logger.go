package audit

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/etl"
)

// LoggerConfig - конфигурация логгера
type LoggerConfig struct {
	// DefaultUser - пользователь по умолчанию (если не указан в entry)
	DefaultUser string

	// NormalizedContainer - используется для поля Target
	NormalizedContainer string

	// Logger - куда писать ошибки appenders
	Logger zerolog.Logger
}

// Logger - audit логгер запусков нормализатора. Реализует etl.Observer.
type Logger struct {
	mu        sync.Mutex
	appenders *MultiAppender
	config    LoggerConfig
	closed    bool
}

// NewLogger - создать новый audit logger
func NewLogger(config LoggerConfig, appenders ...Appender) *Logger {
	return &Logger{
		appenders: NewMultiAppender(appenders...),
		config:    config,
	}
}

// NewFileLogger - audit в JSON lines файл из настроек. Output "-" пишет в stderr.
func NewFileLogger(settings etl.AuditConfig, normalized string, logger zerolog.Logger) (*Logger, error) {
	level, err := ParseLevel(settings.Level)
	if err != nil {
		return nil, err
	}

	var appender Appender
	if settings.Output == "-" {
		appender = NewWriterAppender(os.Stderr, level)
	} else {
		appender, err = NewFileAppender(FileAppenderConfig{
			FilePath: settings.Output,
			Level:    level,
		})
		if err != nil {
			return nil, err
		}
	}
	return NewLogger(LoggerConfig{
		DefaultUser:         "normalizer",
		NormalizedContainer: normalized,
		Logger:              logger,
	}, appender), nil
}

// Log - записать audit entry
func (l *Logger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("audit logger is closed")
	}
	if entry.User == "" {
		entry.User = l.config.DefaultUser
	}
	return l.appenders.Append(ctx, entry)
}

// Observe пишет запись о завершенном запуске; ошибки записи только логируются
func (l *Logger) Observe(ctx context.Context, report *etl.Report) {
	entry := FromReport(report, l.config.NormalizedContainer)
	if err := l.Log(ctx, entry); err != nil {
		l.config.Logger.Warn().Err(err).
			Str("run_id", report.RunID).
			Msg("failed to write audit entry")
	}
}

// AddAppender - добавить appender
func (l *Logger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders.Add(appender)
}

// Close - закрыть все appenders
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.appenders.Close()
}
