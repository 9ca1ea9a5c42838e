package processors

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// NormalizeRule определяет правило нормализации
type NormalizeRule string

const (
	// NormalizeWhitespace убирает лишние пробелы
	NormalizeWhitespace NormalizeRule = "whitespace"
	// NormalizeTrim убирает пробелы по краям
	NormalizeTrim NormalizeRule = "trim"
	// NormalizeUpperCase приводит к верхнему регистру
	NormalizeUpperCase NormalizeRule = "uppercase"
	// NormalizeLowerCase приводит к нижнему регистру
	NormalizeLowerCase NormalizeRule = "lowercase"
	// NormalizeDate приводит дату к формату YYYY-MM-DD
	NormalizeDate NormalizeRule = "date"
)

// Valid проверяет, что правило известно
func (r NormalizeRule) Valid() bool {
	switch r {
	case NormalizeWhitespace, NormalizeTrim, NormalizeUpperCase, NormalizeLowerCase, NormalizeDate:
		return true
	}
	return false
}

// FieldNormalizer нормализует строковые значения в указанных колонках.
// Используется для приведения данных разных источников к единому виду
// (названия команд, даты в формате DD/MM/YYYY).
type FieldNormalizer struct {
	name              string
	fieldsToNormalize map[string]NormalizeRule // column -> rule

	// Предкомпилированные регулярные выражения
	whitespaceRegex *regexp.Regexp
	dateRegex       *regexp.Regexp
}

// NewFieldNormalizer создает новый нормализатор полей
func NewFieldNormalizer(fieldsToNormalize map[string]NormalizeRule) *FieldNormalizer {
	return &FieldNormalizer{
		name:              fieldNormalizerName,
		fieldsToNormalize: fieldsToNormalize,
		whitespaceRegex:   regexp.MustCompile(`\s+`),
		dateRegex:         regexp.MustCompile(`^(\d{1,2})[./\-](\d{1,2})[./\-](\d{2,4})$`), // DD.MM.YYYY или DD/MM/YY
	}
}

// Name возвращает имя процессора
func (n *FieldNormalizer) Name() string {
	return n.name
}

// Process реализует интерфейс Processor.
// Колонки, которых нет в таблице, пропускаются: набор полей источника
// не проверяется. Нестроковые значения не изменяются.
func (n *FieldNormalizer) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	for column, rule := range n.fieldsToNormalize {
		col, ok := tbl.ColumnIndex(column)
		if !ok {
			continue
		}

		for i := 0; i < tbl.Len(); i++ {
			row := tbl.Row(i)
			s, ok := row[col].(string)
			if !ok || s == "" {
				continue
			}
			row[col] = n.normalizeValue(s, rule)
		}
	}

	return tbl, nil
}

// normalizeValue применяет правило нормализации к значению.
// Значение, не подходящее под правило (например, нераспознанная дата),
// возвращается без изменений.
func (n *FieldNormalizer) normalizeValue(value string, rule NormalizeRule) string {
	switch rule {
	case NormalizeWhitespace:
		return n.whitespaceRegex.ReplaceAllString(strings.TrimSpace(value), " ")
	case NormalizeTrim:
		return strings.TrimSpace(value)
	case NormalizeUpperCase:
		return strings.ToUpper(value)
	case NormalizeLowerCase:
		return strings.ToLower(value)
	case NormalizeDate:
		return n.normalizeDate(value)
	default:
		return value
	}
}

// normalizeDate приводит дату к формату YYYY-MM-DD
// Примеры:
//   - "01.12.2024" → "2024-12-01"
//   - "15/03/24" → "2024-03-15"
//   - "2024-03-15" → "2024-03-15"
func (n *FieldNormalizer) normalizeDate(value string) string {
	matches := n.dateRegex.FindStringSubmatch(strings.TrimSpace(value))
	if len(matches) != 4 {
		return value
	}

	day, month, year := matches[1], matches[2], matches[3]

	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}
	// Двузначный год относится к текущему веку
	if len(year) == 2 {
		year = "20" + year
	}
	if len(year) != 4 {
		return value
	}

	return fmt.Sprintf("%s-%s-%s", year, month, day)
}

// NewFieldNormalizerFromConfig создает FieldNormalizer из конфигурации
func NewFieldNormalizerFromConfig(params map[string]any) (*FieldNormalizer, error) {
	fields, ok := params["fields"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'fields' parameter")
	}

	rules := make(map[string]string, len(fields))
	for fieldName, ruleStr := range fields {
		rules[fieldName] = fmt.Sprintf("%v", ruleStr)
	}

	return NewFieldNormalizerFromRules(rules)
}

// NewFieldNormalizerFromRules создает FieldNormalizer из карты column -> rule
func NewFieldNormalizerFromRules(rules map[string]string) (*FieldNormalizer, error) {
	fieldsToNormalize := make(map[string]NormalizeRule, len(rules))
	for fieldName, ruleStr := range rules {
		rule := NormalizeRule(ruleStr)
		if !rule.Valid() {
			return nil, fmt.Errorf("invalid normalize rule '%s' for field '%s'", rule, fieldName)
		}
		fieldsToNormalize[fieldName] = rule
	}

	return NewFieldNormalizer(fieldsToNormalize), nil
}
