package etl

import (
	"context"

	"github.com/ruslano69/match-normalizer/pkg/events"
	"github.com/ruslano69/match-normalizer/pkg/processors"
	"github.com/ruslano69/match-normalizer/pkg/storage"
)

// SourceData - прочитанный входной объект
type SourceData struct {
	Ref      events.ObjectRef
	Document any
	Bytes    int
	Checksum string // xxh3 исходных байт
}

// Loader читает входной JSON из transient контейнера
type Loader struct {
	storage storage.Storage
}

// NewLoader создает загрузчик
func NewLoader(st storage.Storage) *Loader {
	return &Loader{storage: st}
}

// Load читает и разбирает объект. Ошибка - *storage.ReadError.
func (l *Loader) Load(ctx context.Context, ref events.ObjectRef) (*SourceData, error) {
	doc, raw, err := l.storage.ReadJSON(ctx, ref.Container, ref.Key)
	if err != nil {
		return nil, err
	}

	return &SourceData{
		Ref:      ref,
		Document: doc,
		Bytes:    len(raw),
		Checksum: processors.ComputeChecksum(raw),
	}, nil
}
