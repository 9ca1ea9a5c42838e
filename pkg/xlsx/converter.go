package xlsx

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

const (
	DefaultSheet = "Sheet1"

	styleInteger  = 1
	styleFloat    = 2
	styleDateTime = 22
	styleText     = 49
)

// ToXLSX - сохранить нормализованную таблицу в XLSX для просмотра
//
// Первая строка - заголовки колонок, далее строки таблицы. Числа и время
// пишутся как типизированные ячейки, вложенные значения - JSON-текстом.
//
// Example:
//
//	err := xlsx.ToXLSX(tbl, "preview.xlsx", "ligue1")
func ToXLSX(tbl *table.Table, filePath string, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = DefaultSheet
	}
	if sheetName != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheetName); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	columns := tbl.Columns()
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("failed to write header %s: %w", name, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx := 0; rowIdx < tbl.Len(); rowIdx++ {
		for col, v := range tbl.Row(rowIdx) {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			value, style, err := cellValue(v)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", rowIdx, columns[col], err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("row %d column %s: %w", rowIdx, columns[col], err)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if len(columns) > 0 {
		last, err := excelize.ColumnNumberToName(len(columns))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheetName, "A", last, 18); err != nil {
			return err
		}
	}

	return f.SaveAs(filePath)
}

// cellValue - значение ячейки и встроенный числовой формат Excel
func cellValue(v any) (any, int, error) {
	switch val := v.(type) {
	case nil:
		return "", styleText, nil
	case int64, int:
		return val, styleInteger, nil
	case float64:
		return val, styleFloat, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, styleInteger, nil
		}
		if fl, err := val.Float64(); err == nil {
			return fl, styleFloat, nil
		}
		return val.String(), styleText, nil
	case bool:
		if val {
			return "TRUE", styleText, nil
		}
		return "FALSE", styleText, nil
	case time.Time:
		return val.UTC(), styleDateTime, nil
	default:
		s, err := table.FormatValue(val)
		if err != nil {
			return nil, 0, err
		}
		return s, styleText, nil
	}
}
