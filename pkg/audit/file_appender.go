package audit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

const (
	defaultMaxSize    = 100 << 20
	defaultMaxBackups = 5
)

// ErrAppenderClosed - запись в закрытый appender
var ErrAppenderClosed = errors.New("audit appender is closed")

// FileAppenderConfig - параметры файла audit
type FileAppenderConfig struct {
	FilePath   string
	MaxSize    int64 // байты, 0 = 100 MB
	MaxBackups int   // 0 = 5
	Level      Level
}

// FileAppender дописывает JSON lines в файл. При превышении MaxSize файл
// сдвигается в <path>.1, старые копии в <path>.2 ... <path>.MaxBackups.
type FileAppender struct {
	config FileAppenderConfig

	mu   sync.Mutex
	file *os.File
	size int64
}

func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	if config.MaxSize <= 0 {
		config.MaxSize = defaultMaxSize
	}
	if config.MaxBackups <= 0 {
		config.MaxBackups = defaultMaxBackups
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	fa := &FileAppender{config: config}
	if err := fa.open(); err != nil {
		return nil, err
	}
	return fa, nil
}

func (fa *FileAppender) open() error {
	file, err := os.OpenFile(fa.config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat audit file: %w", err)
	}
	fa.file, fa.size = file, info.Size()
	return nil
}

func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := encodeLine(entry, fa.config.Level)
	if err != nil {
		return err
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return fmt.Errorf("%w: %s", ErrAppenderClosed, fa.config.FilePath)
	}
	if fa.size > 0 && fa.size+int64(len(line)) > fa.config.MaxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate audit file: %w", err)
		}
	}

	n, err := fa.file.Write(line)
	fa.size += int64(n)
	return err
}

func (fa *FileAppender) backup(i int) string {
	return fa.config.FilePath + "." + strconv.Itoa(i)
}

func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}
	fa.file = nil

	if err := os.Remove(fa.backup(fa.config.MaxBackups)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for i := fa.config.MaxBackups - 1; i >= 1; i-- {
		if err := os.Rename(fa.backup(i), fa.backup(i+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.Rename(fa.config.FilePath, fa.backup(1)); err != nil {
		return err
	}
	return fa.open()
}

// Close идемпотентен
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return nil
	}
	err := fa.file.Close()
	fa.file = nil
	return err
}

// Flush - fsync текущего файла
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.file == nil {
		return nil
	}
	return fa.file.Sync()
}

func (fa *FileAppender) CurrentSize() int64 {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.size
}

func (fa *FileAppender) FilePath() string { return fa.config.FilePath }
