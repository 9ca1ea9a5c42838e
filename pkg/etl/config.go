package etl

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/match-normalizer/pkg/processors"
)

// Метаданные, которые добавляются к каждой строке результата
const (
	ColumnDivision = "division"
	ColumnDateTime = "normalization_datetime"
	ColumnRunID    = "normalization_uuid"
)

// MetadataColumns возвращает колонки метаданных в порядке добавления
func MetadataColumns() []string {
	return []string{ColumnDivision, ColumnDateTime, ColumnRunID}
}

// Config - конфигурация нормализатора для одного источника данных
type Config struct {
	Division        string                  `yaml:"division"`         // Тег источника, например "ligue1"
	RelevantColumns map[string]string       `yaml:"relevant_columns"` // Путь в JSON -> имя колонки
	IntegerColumns  []string                `yaml:"integer_columns"`  // Колонки, приводимые к целому (null -> 0)
	FinalSchema     []string                `yaml:"final_schema"`     // Порядок и состав колонок результата
	WinnerPolicy    processors.WinnerPolicy `yaml:"winner_policy"`    // draw_only, team_substitution, none
	RecordPath      string                  `yaml:"record_path"`      // Путь к списку записей внутри объекта
	Normalize       map[string]string       `yaml:"normalize"`        // Колонка -> правило field_normalizer
	Processors      []processors.Config     `yaml:"processors"`       // Дополнительные процессоры
	Output          OutputConfig            `yaml:"output"`
}

// OutputConfig определяет формат нормализованного файла
type OutputConfig struct {
	Compression      string `yaml:"compression"`       // "" или zstd
	CompressionLevel int    `yaml:"compression_level"` // 1-22
}

// LoadConfig загружает конфигурацию из YAML файла
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	return config, nil
}

// ParseConfig разбирает и валидирует YAML документ конфигурации
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.SetDefaults()

	return &config, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Division) == "" {
		return ErrMissingDivision
	}

	if len(c.RelevantColumns) == 0 {
		return ErrMissingRelevantColumns
	}
	for src, dst := range c.RelevantColumns {
		if src == "" || dst == "" {
			return fmt.Errorf("relevant_columns: empty name in mapping '%s' -> '%s'", src, dst)
		}
	}

	if len(c.FinalSchema) == 0 {
		return ErrMissingFinalSchema
	}
	seen := make(map[string]bool, len(c.FinalSchema))
	for _, col := range c.FinalSchema {
		if col == "" {
			return fmt.Errorf("final_schema: empty column name")
		}
		if seen[col] {
			return fmt.Errorf("%w: %s", ErrDuplicateSchemaColumn, col)
		}
		seen[col] = true
		if isMetadataColumn(col) {
			return fmt.Errorf("%w: %s", ErrReservedColumn, col)
		}
	}

	for _, col := range c.IntegerColumns {
		if col == "" {
			return fmt.Errorf("integer_columns: empty column name")
		}
	}

	if c.WinnerPolicy != "" && !c.WinnerPolicy.Valid() {
		return fmt.Errorf("%w '%s', must be one of: draw_only, team_substitution, none", ErrInvalidWinnerPolicy, c.WinnerPolicy)
	}

	for col, rule := range c.Normalize {
		if !processors.NormalizeRule(rule).Valid() {
			return fmt.Errorf("%w '%s' for column '%s'", ErrInvalidNormalizeRule, rule, col)
		}
	}

	for i, p := range c.Processors {
		if p.Type == "" {
			return fmt.Errorf("processors[%d]: type is required", i)
		}
	}

	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}

	return nil
}

// Validate проверяет корректность OutputConfig
func (o *OutputConfig) Validate() error {
	switch o.Compression {
	case processors.CompressionNone, processors.CompressionZstd:
	default:
		return fmt.Errorf("%w '%s', must be empty or 'zstd'", ErrInvalidCompression, o.Compression)
	}
	if o.CompressionLevel < 0 || o.CompressionLevel > 22 {
		return fmt.Errorf("%w: compression_level must be between 1 and 22", ErrInvalidCompression)
	}
	return nil
}

// SetDefaults устанавливает значения по умолчанию для необязательных полей
func (c *Config) SetDefaults() {
	if c.WinnerPolicy == "" {
		c.WinnerPolicy = processors.WinnerDrawOnly
	}
	if c.Output.Compression == processors.CompressionZstd && c.Output.CompressionLevel == 0 {
		c.Output.CompressionLevel = 3
	}
}

func isMetadataColumn(name string) bool {
	return name == ColumnDivision || name == ColumnDateTime || name == ColumnRunID
}
