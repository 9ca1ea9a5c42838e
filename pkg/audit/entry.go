package audit

import (
	"fmt"
	"maps"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/ruslano69/match-normalizer/pkg/etl"
)

// Level - уровень детализации записи
type Level int

const (
	// LevelMinimal - только основная информация
	LevelMinimal Level = iota

	// LevelStandard - плюс метаданные запуска (ключи, checksum'ы, трасса)
	LevelStandard
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel разбирает уровень из конфигурации. Пустая строка = standard.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "", "standard":
		return LevelStandard, nil
	case "minimal":
		return LevelMinimal, nil
	default:
		return 0, fmt.Errorf("unknown audit level %q", s)
	}
}

// Operation - тип операции
type Operation string

const OpNormalize Operation = "normalize"

// Status - статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry - запись в audit логе
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`

	// User - система, выполнившая операцию
	User string `json:"user,omitempty"`

	// Source - исходный объект (container/key)
	Source string `json:"source,omitempty"`

	// Target - нормализованный объект (container/key)
	Target string `json:"target,omitempty"`

	// Resource - division
	Resource string `json:"resource,omitempty"`

	RecordsAffected int64         `json:"records_affected,omitempty"`
	Duration        time.Duration `json:"duration,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewEntry - создать новую audit запись
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Status:    status,
		Metadata:  make(map[string]any),
	}
}

// FromReport собирает запись из отчета запуска нормализатора.
// normalized - контейнер нормализованных таблиц (для поля Target).
func FromReport(report *etl.Report, normalized string) *Entry {
	status := StatusSuccess
	if !report.Succeeded() {
		status = StatusFailure
	}

	e := NewEntry(OpNormalize, status)
	if !report.EndTime.IsZero() {
		e.Timestamp = report.EndTime.UTC()
	}
	e.Source = report.Source.String()
	e.Resource = report.Division
	e.RecordsAffected = int64(report.Rows)
	e.Duration = report.Duration
	e.ErrorMessage = report.ErrorMessage()

	if report.Keys.Normalized != "" && report.Succeeded() {
		e.Target = normalized + "/" + report.Keys.Normalized
	}

	trace := make([]string, len(report.Trace))
	for i, s := range report.Trace {
		trace[i] = string(s)
	}
	e.WithMetadata("trace", trace)
	if report.RunID != "" {
		e.WithMetadata("run_id", report.RunID)
	}
	if report.Keys.Raw != "" {
		e.WithMetadata("raw_key", report.Keys.Raw)
	}
	if report.FailedState != "" {
		e.WithMetadata("failed_state", string(report.FailedState))
	}
	if report.InputChecksum != "" {
		e.WithMetadata("input_checksum", report.InputChecksum)
	}
	if report.OutputChecksum != "" {
		e.WithMetadata("output_checksum", report.OutputChecksum)
	}
	return e
}

// WithMetadata - добавить метаданные
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// ToJSON - преобразовать в JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Clone - создать копию записи
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = maps.Clone(e.Metadata)
	}
	return &clone
}

// FilterByLevel - фильтрация данных по уровню
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()
	if level == LevelMinimal {
		filtered.Metadata = nil
	}
	return filtered
}
