package processors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// ErrValidation - значение не прошло проверку field_validator
var ErrValidation = errors.New("validation failed")

// ValidationRule определяет тип правила валидации
type ValidationRule string

const (
	// ValidateRegex - проверка по регулярному выражению
	ValidateRegex ValidationRule = "regex"
	// ValidateRange - числовой диапазон (min-max)
	ValidateRange ValidationRule = "range"
	// ValidateEnum - список допустимых значений
	ValidateEnum ValidationRule = "enum"
	// ValidateRequired - значение не пустое
	ValidateRequired ValidationRule = "required"
	// ValidateLength - длина строки в символах (min-max)
	ValidateLength ValidationRule = "length"
	// ValidateDate - календарная дата YYYY-MM-DD
	ValidateDate ValidationRule = "date"
)

var validationRules = []ValidationRule{
	ValidateRegex, ValidateRange, ValidateEnum, ValidateRequired, ValidateLength, ValidateDate,
}

// FieldValidationRule содержит правило валидации для колонки
type FieldValidationRule struct {
	Type   ValidationRule
	Param  string // regex, "min-max", "H,A,D"
	ErrMsg string // Сообщение вместо стандартного (опционально)
}

type fieldCheck struct {
	column string
	rules  []FieldValidationRule
}

// FieldValidator проверяет значения колонок после нормализации.
// Ошибка указывает на первое нарушение (по строкам, затем по колонкам в
// алфавитном порядке) и общее число нарушений.
type FieldValidator struct {
	checks  []fieldCheck
	regexes map[string]*regexp.Regexp
}

// NewFieldValidator создает валидатор колонок
func NewFieldValidator(fields map[string][]FieldValidationRule) (*FieldValidator, error) {
	v := &FieldValidator{regexes: make(map[string]*regexp.Regexp)}

	columns := make([]string, 0, len(fields))
	for col := range fields {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	for _, col := range columns {
		rules := fields[col]
		for _, rule := range rules {
			if !slices.Contains(validationRules, rule.Type) {
				return nil, fmt.Errorf("unknown validation rule type: %s", rule.Type)
			}
			if rule.Type == ValidateRegex {
				re, err := regexp.Compile(rule.Param)
				if err != nil {
					return nil, fmt.Errorf("invalid regex pattern '%s': %w", rule.Param, err)
				}
				v.regexes[rule.Param] = re
			}
			if rule.Type == ValidateRange || rule.Type == ValidateLength {
				if _, _, err := parseBounds(rule.Param); err != nil {
					return nil, fmt.Errorf("column '%s': %w", col, err)
				}
			}
		}
		v.checks = append(v.checks, fieldCheck{column: col, rules: rules})
	}

	return v, nil
}

// Name возвращает имя процессора
func (v *FieldValidator) Name() string {
	return fieldValidatorName
}

// Process реализует интерфейс Processor. Таблица не изменяется.
func (v *FieldValidator) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	if tbl.Len() == 0 {
		return tbl, nil
	}

	columns := make([][]any, len(v.checks))
	for i, check := range v.checks {
		values, ok := tbl.Column(check.column)
		if !ok {
			return nil, &table.TransformError{Stage: "validate", Column: check.column, Row: -1, Err: table.ErrMissingColumn}
		}
		columns[i] = values
	}

	var first *table.TransformError
	violations := 0

	for row := 0; row < tbl.Len(); row++ {
		for i, check := range v.checks {
			raw := columns[i][row]
			value, err := table.FormatValue(raw)
			if err != nil {
				return nil, &table.TransformError{Stage: "validate", Column: check.column, Row: row, Value: raw, Err: err}
			}
			for _, rule := range check.rules {
				err := v.validateValue(value, rule)
				if err == nil {
					continue
				}
				violations++
				if first == nil {
					if rule.ErrMsg != "" {
						err = errors.New(rule.ErrMsg)
					}
					first = &table.TransformError{Stage: "validate", Column: check.column, Row: row, Value: raw, Err: err}
				}
			}
		}
	}

	if first == nil {
		return tbl, nil
	}
	if violations > 1 {
		first.Err = fmt.Errorf("%w: %v (%d violations in total)", ErrValidation, first.Err, violations)
	} else {
		first.Err = fmt.Errorf("%w: %v", ErrValidation, first.Err)
	}
	return nil, first
}

// validateValue применяет правило к текстовому представлению значения
func (v *FieldValidator) validateValue(value string, rule FieldValidationRule) error {
	switch rule.Type {
	case ValidateRegex:
		if !v.regexes[rule.Param].MatchString(value) {
			return fmt.Errorf("value '%s' does not match pattern '%s'", value, rule.Param)
		}
	case ValidateRange:
		lo, hi, _ := parseBounds(rule.Param)
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("value '%s' is not a valid number", value)
		}
		if n < lo || n > hi {
			return fmt.Errorf("value %g is out of range [%g, %g]", n, lo, hi)
		}
	case ValidateEnum:
		for _, allowed := range strings.Split(rule.Param, ",") {
			if strings.TrimSpace(allowed) == value {
				return nil
			}
		}
		return fmt.Errorf("value '%s' is not in allowed list [%s]", value, rule.Param)
	case ValidateRequired:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("field is required but empty")
		}
	case ValidateLength:
		lo, hi, _ := parseBounds(rule.Param)
		n := float64(len([]rune(value)))
		if n < lo || n > hi {
			return fmt.Errorf("length %g is out of range [%g, %g]", n, lo, hi)
		}
	case ValidateDate:
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return fmt.Errorf("invalid date '%s' (expected YYYY-MM-DD)", value)
		}
	}
	return nil
}

// parseBounds разбирает "min-max"
func parseBounds(param string) (float64, float64, error) {
	lo, hi, ok := strings.Cut(param, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid bounds '%s', expected 'min-max'", param)
	}
	lower, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid min value in '%s'", param)
	}
	upper, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid max value in '%s'", param)
	}
	if lower > upper {
		return 0, 0, fmt.Errorf("min greater than max in '%s'", param)
	}
	return lower, upper, nil
}

// NewFieldValidatorFromConfig создает FieldValidator из конфигурации:
//
//	params:
//	  rules:
//	    winner: "enum:H,A,D"
//	    home_score: ["required", "range:0-30"]
//	    date: {type: date, error: "bad match date"}
func NewFieldValidatorFromConfig(params map[string]any) (*FieldValidator, error) {
	rules, ok := params["rules"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'rules' parameter")
	}

	fields := make(map[string][]FieldValidationRule, len(rules))
	for column, ruleConfig := range rules {
		var fieldRules []FieldValidationRule

		switch rc := ruleConfig.(type) {
		case string:
			fieldRules = append(fieldRules, parseValidationRule(rc))
		case []any:
			for _, r := range rc {
				s, ok := r.(string)
				if !ok {
					return nil, fmt.Errorf("invalid rule format for column '%s'", column)
				}
				fieldRules = append(fieldRules, parseValidationRule(s))
			}
		case map[string]any:
			typeStr, ok := rc["type"].(string)
			if !ok {
				return nil, fmt.Errorf("missing 'type' in rule for column '%s'", column)
			}
			rule := parseValidationRule(typeStr)
			if msg, ok := rc["error"].(string); ok {
				rule.ErrMsg = msg
			}
			fieldRules = append(fieldRules, rule)
		default:
			return nil, fmt.Errorf("unsupported rule format for column '%s'", column)
		}

		fields[column] = fieldRules
	}

	return NewFieldValidator(fields)
}

// parseValidationRule разбирает "type:param" ("range:0-30", "enum:H,A,D", "required")
func parseValidationRule(s string) FieldValidationRule {
	ruleType, param, _ := strings.Cut(s, ":")
	return FieldValidationRule{Type: ValidationRule(ruleType), Param: param}
}
