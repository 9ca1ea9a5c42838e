package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Appender - получатель audit записей
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// encodeLine сериализует запись одной JSON строкой с учетом уровня детализации
func encodeLine(entry *Entry, level Level) ([]byte, error) {
	data, err := entry.FilterByLevel(level).ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit entry %s: %w", entry.ID, err)
	}
	return append(data, '\n'), nil
}

// WriterAppender пишет JSON lines в произвольный io.Writer (stderr, буфер).
// Writer не закрывается.
type WriterAppender struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
}

// NewWriterAppender - appender поверх w
func NewWriterAppender(w io.Writer, level Level) *WriterAppender {
	return &WriterAppender{w: w, level: level}
}

func (a *WriterAppender) Append(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := encodeLine(entry, a.level)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = a.w.Write(line)
	return err
}

func (a *WriterAppender) Close() error { return nil }

// MultiAppender отдает запись каждому appender'у. Сбой одного не мешает
// остальным, ошибки объединяются.
type MultiAppender struct {
	appenders []Appender
}

func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

func (m *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var errs []error
	for _, a := range m.appenders {
		if err := a.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiAppender) Close() error {
	var errs []error
	for _, a := range m.appenders {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}

func (m *MultiAppender) Add(a Appender) {
	m.appenders = append(m.appenders, a)
}

func (m *MultiAppender) Len() int { return len(m.appenders) }
