package processors

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// IntegerCoercer приводит значения указанных колонок к int64.
// NULL заменяется нулём, нечисловое значение - ошибка трансформации.
type IntegerCoercer struct {
	columns []string
}

// NewIntegerCoercer создает процессор приведения к целому
func NewIntegerCoercer(columns []string) *IntegerCoercer {
	c := make([]string, len(columns))
	copy(c, columns)
	return &IntegerCoercer{columns: c}
}

// Name возвращает имя процессора
func (c *IntegerCoercer) Name() string {
	return integerCoercerName
}

// Process реализует интерфейс Processor.
// Таблица не изменяется, если хотя бы одно значение не приводится.
// Таблица без строк возвращается как есть: проекция добавит колонки.
func (c *IntegerCoercer) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	if tbl.Len() == 0 {
		return tbl, nil
	}

	converted := make(map[string][]int64, len(c.columns))

	for _, col := range c.columns {
		values, ok := tbl.Column(col)
		if !ok {
			return nil, &table.TransformError{Stage: "coerce", Column: col, Row: -1, Err: table.ErrMissingColumn}
		}

		ints := make([]int64, len(values))
		for i, v := range values {
			n, err := ToInt64(v)
			if err != nil {
				return nil, &table.TransformError{Stage: "coerce", Column: col, Row: i, Value: v, Err: err}
			}
			ints[i] = n
		}
		converted[col] = ints
	}

	for col, ints := range converted {
		for i, n := range ints {
			if err := tbl.Set(i, col, n); err != nil {
				return nil, err
			}
		}
	}

	return tbl, nil
}

// ToInt64 приводит значение ячейки к целому числу.
//
// Правила:
//   - nil → 0
//   - целые числа без изменений
//   - дробные числа отбрасывают дробную часть (2.9 → 2, -2.9 → -2)
//   - строки с целым числом, допускаются пробелы по краям (" 3 " → 3)
//   - true/false → 1/0
//
// Все остальное (пустые строки, "2.5", "abc", массивы) - table.ErrNotAnInteger.
func ToInt64(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		if n, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", table.ErrNotAnInteger, err)
		}
		return truncateFloat(f)
	case float64:
		return truncateFloat(val)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", table.ErrNotAnInteger, val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", table.ErrNotAnInteger, v)
	}
}

func truncateFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", table.ErrNotAnInteger, f)
	}
	return int64(math.Trunc(f)), nil
}

// NewIntegerCoercerFromConfig создает IntegerCoercer из конфигурации
func NewIntegerCoercerFromConfig(params map[string]any) (*IntegerCoercer, error) {
	raw, ok := params["columns"].([]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'columns' parameter")
	}

	columns := make([]string, 0, len(raw))
	for _, c := range raw {
		name, ok := c.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid column name: %v", c)
		}
		columns = append(columns, name)
	}

	return NewIntegerCoercer(columns), nil
}
