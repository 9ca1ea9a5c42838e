package table

import (
	"errors"
	"fmt"
)

// Ошибки трансформации
var (
	ErrNotARecord       = errors.New("record is not a JSON object")
	ErrUnsupportedRoot  = errors.New("document root must be an object or a list of objects")
	ErrRecordPath       = errors.New("record_path does not resolve to a list")
	ErrMissingColumn    = errors.New("required column is missing")
	ErrNotAnInteger     = errors.New("value is not a whole number")
	ErrDuplicateColumn  = errors.New("duplicate column after rename")
	ErrEmptyFinalSchema = errors.New("final schema is empty")
)

// TransformError описывает ошибку одного из шагов нормализации.
// Row = -1 означает, что ошибка не относится к конкретной строке.
type TransformError struct {
	Stage  string // flatten, rename, winner, coerce, normalize
	Column string
	Row    int
	Value  any
	Err    error
}

func (e *TransformError) Error() string {
	msg := fmt.Sprintf("transform %s", e.Stage)
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" value %v", e.Value)
	}
	return msg + ": " + e.Err.Error()
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// SchemaError описывает ошибку проекции на итоговую схему
type SchemaError struct {
	Columns []string
	Err     error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema projection %v: %v", e.Columns, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
