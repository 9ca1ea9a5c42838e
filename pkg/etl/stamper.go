package etl

import (
	"time"

	"github.com/google/uuid"

	"github.com/ruslano69/match-normalizer/pkg/processors"
	"github.com/ruslano69/match-normalizer/pkg/table"
)

// PartitionLayout - формат каталога даты в ключах хранилища
const PartitionLayout = "20060102"

// RunIDLength - длина идентификатора запуска
const RunIDLength = 8

// Keys - ключи объектов, производные от метки времени и идентификатора запуска
type Keys struct {
	Normalized string // YYYYMMDD/<id>.csv[.zst]
	Raw        string // YYYYMMDD/<id>.json
}

// Stamp - метаданные одного запуска
type Stamp struct {
	Division string
	Time     time.Time
	RunID    string
	Keys     Keys
}

// MetadataStamper добавляет колонки division, normalization_datetime и
// normalization_uuid с одинаковыми значениями во всех строках и вычисляет
// ключи хранилища. Ввода-вывода не выполняет.
type MetadataStamper struct {
	now         func() time.Time
	newID       func() string
	compression string
}

// StamperOption настраивает MetadataStamper
type StamperOption func(*MetadataStamper)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) StamperOption {
	return func(s *MetadataStamper) { s.now = now }
}

// WithIDGenerator подменяет генератор идентификатора запуска
func WithIDGenerator(newID func() string) StamperOption {
	return func(s *MetadataStamper) { s.newID = newID }
}

// WithCompression добавляет к ключу нормализованного файла расширение сжатия
func WithCompression(algorithm string) StamperOption {
	return func(s *MetadataStamper) { s.compression = algorithm }
}

// NewMetadataStamper создает stamper с системными часами и uuid v4
func NewMetadataStamper(opts ...StamperOption) *MetadataStamper {
	s := &MetadataStamper{
		now:   time.Now,
		newID: NewRunID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRunID возвращает первые 8 символов случайного UUID
func NewRunID() string {
	return uuid.NewString()[:RunIDLength]
}

// Stamp вычисляет метаданные запуска и добавляет их колонками к таблице
func (s *MetadataStamper) Stamp(tbl *table.Table, division string) (Stamp, error) {
	stamp := Stamp{
		Division: division,
		Time:     s.now().UTC(),
		RunID:    s.newID(),
	}

	partition := stamp.Time.Format(PartitionLayout)
	stamp.Keys = Keys{
		Normalized: partition + "/" + stamp.RunID + ".csv" + processors.CompressionExtension(s.compression),
		Raw:        partition + "/" + stamp.RunID + ".json",
	}

	values := []any{stamp.Division, stamp.Time, stamp.RunID}
	for i, col := range MetadataColumns() {
		if err := tbl.AddColumn(col, values[i]); err != nil {
			return Stamp{}, &table.SchemaError{Columns: []string{col}, Err: err}
		}
	}

	return stamp, nil
}
