package etl

import (
	"context"

	"github.com/ruslano69/match-normalizer/pkg/events"
	"github.com/ruslano69/match-normalizer/pkg/storage"
	"github.com/ruslano69/match-normalizer/pkg/table"
)

// Exporter выполняет побочные эффекты запуска: запись нормализованного
// файла, архивирование исходника в raw и удаление его из transient
type Exporter struct {
	storage    storage.Storage
	normalized string
	raw        string
}

// NewExporter создает экспортер для пары контейнеров normalized/raw
func NewExporter(st storage.Storage, normalizedContainer, rawContainer string) *Exporter {
	return &Exporter{
		storage:    st,
		normalized: normalizedContainer,
		raw:        rawContainer,
	}
}

// WriteNormalized записывает таблицу в normalized контейнер
func (e *Exporter) WriteNormalized(ctx context.Context, tbl *table.Table, key string) (*storage.WriteResult, error) {
	return e.storage.WriteTable(ctx, tbl, e.normalized, key)
}

// Archive копирует исходный объект в raw контейнер
func (e *Exporter) Archive(ctx context.Context, src events.ObjectRef, key string) error {
	return e.storage.Copy(ctx, src.Container, src.Key, e.raw, key)
}

// Cleanup удаляет исходный объект из transient контейнера
func (e *Exporter) Cleanup(ctx context.Context, src events.ObjectRef) error {
	return e.storage.Delete(ctx, src.Container, src.Key)
}

// NormalizedContainer возвращает имя контейнера нормализованных файлов
func (e *Exporter) NormalizedContainer() string {
	return e.normalized
}

// RawContainer возвращает имя архивного контейнера
func (e *Exporter) RawContainer() string {
	return e.raw
}
