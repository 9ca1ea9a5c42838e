package etl

import (
	"errors"
	"fmt"
)

// Причины ошибок конфигурации
var (
	ErrMissingDivision        = errors.New("division is required")
	ErrMissingRelevantColumns = errors.New("relevant_columns is required")
	ErrMissingFinalSchema     = errors.New("final_schema is required")
	ErrDuplicateSchemaColumn  = errors.New("duplicate column in final_schema")
	ErrReservedColumn         = errors.New("column name is reserved for metadata")
	ErrInvalidWinnerPolicy    = errors.New("invalid winner_policy")
	ErrInvalidCompression     = errors.New("invalid output compression")
	ErrInvalidNormalizeRule   = errors.New("invalid normalize rule")
)

// ConfigError - конфигурация не прочитана, не разобрана или невалидна
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
