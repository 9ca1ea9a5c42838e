package processors

import (
	"context"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// SchemaProjector приводит таблицу к итоговой схеме: ровно эти колонки
// в этом порядке, отсутствующие заполняются NULL
type SchemaProjector struct {
	schema []string
}

// NewSchemaProjector создает процессор проекции
func NewSchemaProjector(schema []string) *SchemaProjector {
	s := make([]string, len(schema))
	copy(s, schema)
	return &SchemaProjector{schema: s}
}

// Name возвращает имя процессора
func (p *SchemaProjector) Name() string {
	return schemaProjectorName
}

// Process реализует интерфейс Processor
func (p *SchemaProjector) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	if len(p.schema) == 0 {
		return nil, &table.SchemaError{Err: table.ErrEmptyFinalSchema}
	}

	out, err := tbl.Reindex(p.schema)
	if err != nil {
		return nil, &table.SchemaError{Columns: p.schema, Err: err}
	}
	return out, nil
}
