// Package storage реализует работу с контейнерами объектов: transient, raw
// и normalized. Gateway выполняет операции нормализатора (прочитать JSON,
// записать таблицу, скопировать, удалить) поверх ObjectStore.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// Классы ошибок хранилища
var (
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("access denied")
)

// Storage - контракт хранилища, который использует оркестратор
type Storage interface {
	// ReadJSON читает объект и разбирает его как JSON.
	// Возвращает разобранный документ и исходные байты.
	ReadJSON(ctx context.Context, container, key string) (any, []byte, error)

	// WriteTable сериализует таблицу в CSV и записывает объект
	WriteTable(ctx context.Context, tbl *table.Table, container, key string) (*WriteResult, error)

	// Copy копирует объект на стороне хранилища, источник сохраняется
	Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error

	// Delete удаляет объект
	Delete(ctx context.Context, container, key string) error
}

// Object - содержимое и атрибуты объекта
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// ObjectStore - низкоуровневое хранилище байтовых объектов (S3, файловая система, память)
type ObjectStore interface {
	Get(ctx context.Context, container, key string) ([]byte, error)
	Put(ctx context.Context, container, key string, obj Object) error
	Copy(ctx context.Context, srcContainer, srcKey, dstContainer, dstKey string) error
	Delete(ctx context.Context, container, key string) error
}

// WriteResult описывает записанный объект
type WriteResult struct {
	Container string
	Key       string
	Bytes     int
	Checksum  string // xxh3 записанных байт (после сжатия)
}

// ReadError - ошибка чтения входного объекта
type ReadError struct {
	Container string
	Key       string
	Err       error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("storage read %s/%s: %v", e.Container, e.Key, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// WriteError - ошибка записи, копирования или удаления
type WriteError struct {
	Op        string // put, copy, delete
	Container string
	Key       string
	Err       error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Container, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
