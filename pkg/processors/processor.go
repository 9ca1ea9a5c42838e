package processors

import (
	"context"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// Имена шагов. Совпадают с типами в блоке processors[] конфигурации.
const (
	columnRenamerName   = "column_renamer"
	winnerRewriterName  = "winner_rewriter"
	fieldNormalizerName = "field_normalizer"
	fieldValidatorName  = "field_validator"
	integerCoercerName  = "integer_coercer"
	schemaProjectorName = "schema_projector"
)

// Processor - один шаг нормализации таблицы матчей.
// Шаг может менять переданную таблицу на месте и вернуть ее же.
// Ошибки данных возвращаются как *table.TransformError или *table.SchemaError.
type Processor interface {
	Name() string
	Process(ctx context.Context, tbl *table.Table) (*table.Table, error)
}

// Config - элемент блока processors[] конфигурации дивизиона
type Config struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}
