// Package table содержит плоскую табличную модель, в которую нормализуется
// входной JSON: упорядоченный набор колонок и строки ячеек.
package table

import (
	"fmt"
)

// Table представляет плоскую таблицу с упорядоченными уникальными колонками.
// Ячейка может содержать nil (NULL), string, json.Number, int64, bool,
// time.Time или []any (массив остаётся одной ячейкой).
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New создает пустую таблицу с указанными колонками
func New(columns ...string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, name := range columns {
		if err := t.addColumnName(name); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) addColumnName(name string) error {
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("duplicate column %q", name)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	return nil
}

// Columns возвращает копию списка колонок в текущем порядке
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len возвращает количество строк
func (t *Table) Len() int {
	return len(t.rows)
}

// NumColumns возвращает количество колонок
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// HasColumn проверяет наличие колонки
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex возвращает позицию колонки
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// AppendRow добавляет строку. Длина строки должна совпадать с числом колонок.
func (t *Table) AppendRow(values []any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	row := make([]any, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Row возвращает строку по индексу (без копирования)
func (t *Table) Row(i int) []any {
	return t.rows[i]
}

// Value возвращает значение ячейки
func (t *Table) Value(row int, column string) (any, bool) {
	col, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil, false
	}
	return t.rows[row][col], true
}

// Set изменяет значение ячейки
func (t *Table) Set(row int, column string, value any) error {
	col, ok := t.index[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("row %d out of range [0, %d)", row, len(t.rows))
	}
	t.rows[row][col] = value
	return nil
}

// Column возвращает копию значений колонки
func (t *Table) Column(name string) ([]any, bool) {
	col, ok := t.index[name]
	if !ok {
		return nil, false
	}
	values := make([]any, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[col]
	}
	return values, true
}

// AddColumn добавляет колонку в конец таблицы и заполняет её значением fill
// во всех строках
func (t *Table) AddColumn(name string, fill any) error {
	if err := t.addColumnName(name); err != nil {
		return err
	}
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
	return nil
}

// Rename переименовывает колонки по карте old -> new.
// Колонки, отсутствующие в карте, сохраняют имя. Если после переименования
// имена совпадают, возвращается ошибка, таблица не изменяется.
func (t *Table) Rename(mapping map[string]string) error {
	renamed := make([]string, len(t.columns))
	index := make(map[string]int, len(t.columns))
	for i, name := range t.columns {
		if target, ok := mapping[name]; ok {
			name = target
		}
		if prev, exists := index[name]; exists {
			return fmt.Errorf("columns %q and %q both map to %q", t.columns[prev], t.columns[i], name)
		}
		index[name] = i
		renamed[i] = name
	}
	t.columns = renamed
	t.index = index
	return nil
}

// Reindex возвращает новую таблицу ровно с указанными колонками в указанном
// порядке. Отсутствующие колонки заполняются nil, лишние отбрасываются.
func (t *Table) Reindex(columns []string) (*Table, error) {
	out, err := New(columns...)
	if err != nil {
		return nil, err
	}

	source := make([]int, len(columns))
	for i, name := range columns {
		if col, ok := t.index[name]; ok {
			source[i] = col
		} else {
			source[i] = -1
		}
	}

	out.rows = make([][]any, len(t.rows))
	for r, row := range t.rows {
		newRow := make([]any, len(columns))
		for i, col := range source {
			if col >= 0 {
				newRow[i] = row[col]
			}
		}
		out.rows[r] = newRow
	}
	return out, nil
}
