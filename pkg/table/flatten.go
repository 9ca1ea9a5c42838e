package table

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// DefaultSeparator разделитель сегментов пути во вложенных ключах
const DefaultSeparator = "."

// FlattenOptions управляет разворачиванием вложенного JSON
type FlattenOptions struct {
	// Separator между сегментами пути (по умолчанию ".")
	Separator string

	// RecordPath путь (через Separator) до списка записей внутри корневого объекта.
	// Пустой путь: корневой список - это записи, корневой объект - одна запись.
	RecordPath string
}

// DecodeJSON разбирает JSON документ. Числа сохраняются как json.Number,
// чтобы не терять точность до приведения типов.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return doc, nil
}

// Flatten превращает JSON документ в плоскую таблицу: одна строка на запись,
// одна колонка на путь до листового значения.
//
// Правила:
//   - вложенные объекты разворачиваются в колонки вида "a.b.c"
//   - пустые объекты не порождают колонок
//   - массивы остаются одной ячейкой
//   - ключи внутри объекта обходятся в отсортированном порядке, колонки
//     упорядочены по первому появлению среди записей
//   - отсутствующие в записи колонки заполняются nil
func Flatten(doc any, opts FlattenOptions) (*Table, error) {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}

	records, err := selectRecords(doc, opts)
	if err != nil {
		return nil, err
	}

	t, _ := New()
	flat := make([]map[string]any, len(records))
	for i, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			return nil, &TransformError{Stage: "flatten", Row: i, Err: fmt.Errorf("%w: got %s", ErrNotARecord, kindOf(rec))}
		}

		row := make(map[string]any)
		var order []string
		flattenObject(obj, "", opts.Separator, row, &order)
		for _, name := range order {
			if !t.HasColumn(name) {
				// Имена уникальны по построению
				_ = t.addColumnName(name)
			}
		}
		flat[i] = row
	}

	t.rows = make([][]any, len(flat))
	for i, row := range flat {
		values := make([]any, len(t.columns))
		for name, v := range row {
			values[t.index[name]] = v
		}
		t.rows[i] = values
	}

	return t, nil
}

// selectRecords находит список записей в документе
func selectRecords(doc any, opts FlattenOptions) ([]any, error) {
	if opts.RecordPath != "" {
		current := doc
		for _, segment := range strings.Split(opts.RecordPath, opts.Separator) {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, &TransformError{Stage: "flatten", Row: -1, Err: fmt.Errorf("%w: %q is not an object at %q", ErrRecordPath, opts.RecordPath, segment)}
			}
			current, ok = obj[segment]
			if !ok {
				return nil, &TransformError{Stage: "flatten", Row: -1, Err: fmt.Errorf("%w: %q has no key %q", ErrRecordPath, opts.RecordPath, segment)}
			}
		}
		list, ok := current.([]any)
		if !ok {
			return nil, &TransformError{Stage: "flatten", Row: -1, Err: fmt.Errorf("%w: %q points to %s", ErrRecordPath, opts.RecordPath, kindOf(current))}
		}
		return list, nil
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		return []any{v}, nil
	default:
		return nil, &TransformError{Stage: "flatten", Row: -1, Err: fmt.Errorf("%w: got %s", ErrUnsupportedRoot, kindOf(doc))}
	}
}

func flattenObject(obj map[string]any, prefix, sep string, out map[string]any, order *[]string) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + sep + k
		}
		if nested, ok := obj[k].(map[string]any); ok {
			flattenObject(nested, name, sep, out, order)
			continue
		}
		if _, seen := out[name]; !seen {
			*order = append(*order, name)
		}
		out[name] = obj[k]
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
