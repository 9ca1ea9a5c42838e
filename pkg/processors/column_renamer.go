package processors

import (
	"context"
	"fmt"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// ColumnRenamer переименовывает колонки: путь в исходном JSON -> имя целевой колонки.
// Колонки без правила сохраняют имя и отбрасываются позже проекцией на схему.
type ColumnRenamer struct {
	mapping map[string]string
}

// NewColumnRenamer создает процессор переименования
func NewColumnRenamer(mapping map[string]string) *ColumnRenamer {
	m := make(map[string]string, len(mapping))
	for k, v := range mapping {
		m[k] = v
	}
	return &ColumnRenamer{mapping: m}
}

// Name возвращает имя процессора
func (r *ColumnRenamer) Name() string {
	return columnRenamerName
}

// Process реализует интерфейс Processor
func (r *ColumnRenamer) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	if err := tbl.Rename(r.mapping); err != nil {
		return nil, &table.TransformError{
			Stage: "rename",
			Row:   -1,
			Err:   fmt.Errorf("%w: %v", table.ErrDuplicateColumn, err),
		}
	}
	return tbl, nil
}

// NewColumnRenamerFromConfig создает ColumnRenamer из конфигурации
func NewColumnRenamerFromConfig(params map[string]any) (*ColumnRenamer, error) {
	columns, ok := params["columns"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'columns' parameter")
	}

	mapping := make(map[string]string, len(columns))
	for source, target := range columns {
		name, ok := target.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid target name for column '%s'", source)
		}
		mapping[source] = name
	}

	return NewColumnRenamer(mapping), nil
}
