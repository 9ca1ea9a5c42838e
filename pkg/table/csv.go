package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// TimestampLayout формат меток времени в CSV: микросекунды и смещение "+00:00"
const TimestampLayout = "2006-01-02 15:04:05.000000-07:00"

// WriteCSV записывает таблицу в CSV. Первая колонка - безымянный индекс строки
// (0..N-1), далее колонки таблицы в текущем порядке.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.columns)+1)
	header = append(header, "")
	header = append(header, t.columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(t.columns)+1)
	for i, row := range t.rows {
		record[0] = strconv.Itoa(i)
		for j, v := range row {
			s, err := FormatValue(v)
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, t.columns[j], err)
			}
			record[j+1] = s
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue приводит значение ячейки к текстовому виду для CSV
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		if val {
			return "True", nil
		}
		return "False", nil
	case time.Time:
		return val.Format(TimestampLayout), nil
	case []any, map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("failed to encode nested value: %w", err)
		}
		return string(data), nil
	default:
		return fmt.Sprintf("%v", val), nil
	}
}
