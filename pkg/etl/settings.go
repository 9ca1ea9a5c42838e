package etl

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/match-normalizer/pkg/brokers"
	"github.com/ruslano69/match-normalizer/pkg/resilience"
	"github.com/ruslano69/match-normalizer/pkg/retry"
	"github.com/ruslano69/match-normalizer/pkg/storage"
)

// Переменные окружения, которые читаются один раз при старте процесса
const (
	EnvRawBucket          = "S3_RAW_BUCKET_NAME"
	EnvNormalizedBucket   = "S3_NORMALIZED_BUCKET_NAME"
	EnvConfigPath         = "NORMALIZER_CONFIG_PATH"
	EnvStorageType        = "STORAGE_TYPE"
	EnvStorageRoot        = "STORAGE_ROOT"
	EnvS3Endpoint         = "S3_ENDPOINT"
	EnvS3PathStyle        = "S3_USE_PATH_STYLE"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
	EnvResultLogRedisAddr = "RESULT_LOG_REDIS_ADDR"
	EnvResultLogName      = "RESULT_LOG_NAME"
	EnvAuditOutput        = "AUDIT_OUTPUT"
)

// Settings - параметры развертывания нормализатора. Строятся один раз при
// старте и передаются вниз явно.
type Settings struct {
	ConfigPath string          `yaml:"config_path"` // Путь к конфигурации источника
	Containers ContainerConfig `yaml:"containers"`
	Storage    StorageConfig   `yaml:"storage"`
	Logging    LoggingConfig   `yaml:"logging"`
	ResultLog  ResultLogConfig `yaml:"result_log"`
	Audit      AuditConfig     `yaml:"audit"`
	Broker     brokers.Config  `yaml:"broker"`
	Worker     WorkerConfig    `yaml:"worker"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// WorkerConfig - поведение worker'а при ошибке запуска
type WorkerConfig struct {
	// DeadLetter - очередь/топик для сообщений с ошибкой; пустой type = отключено
	DeadLetter       brokers.Config `yaml:"dead_letter"`
	RequeueOnFailure bool           `yaml:"requeue_on_failure"`

	// ConnectRetry - повторы подключения к брокеру при старте
	ConnectRetry retry.Config `yaml:"connect_retry"`
}

// ContainerConfig - имена контейнеров (bucket'ов)
type ContainerConfig struct {
	Raw        string `yaml:"raw"`
	Normalized string `yaml:"normalized"`
}

// StorageConfig определяет backend хранилища
type StorageConfig struct {
	Type string           `yaml:"type"` // s3 (по умолчанию) или local
	Root string           `yaml:"root"` // Корневой каталог для local
	S3   storage.S3Config `yaml:"s3"`
}

// LoggingConfig - параметры zerolog
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// ResultLogConfig определяет параметры публикации результата запуска
// Позволяет внешнему оркестратору отслеживать состояния через Redis (GET/SUBSCRIBE)
type ResultLogConfig struct {
	Type     string `yaml:"type"`     // Тип: redis (пустое = отключено)
	Address  string `yaml:"address"`  // Адрес Redis, например "127.0.0.1:6379"
	Name     string `yaml:"name"`     // Имя результата (ключ/канал), например "ligue1"
	Password string `yaml:"password"` // Пароль Redis (опционально)
	DB       int    `yaml:"db"`       // Индекс базы данных Redis (по умолчанию 0)
	TTL      int    `yaml:"ttl"`      // TTL ключа в секундах (по умолчанию 3600)

	// Breaker отключает публикацию на время, если Redis недоступен
	Breaker resilience.Config `yaml:"breaker"`
}

// AuditConfig определяет параметры аудита
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"` // Путь к файлу JSON lines
	Level   string `yaml:"level"`  // minimal | standard (по умолчанию)
}

// MetricsConfig - HTTP endpoint Prometheus (только для worker)
type MetricsConfig struct {
	Address string `yaml:"address"` // например ":9102", пустое = отключено
	Path    string `yaml:"path"`    // по умолчанию /metrics
}

// LoadSettings читает настройки из YAML и применяет переменные окружения.
// Пустой path означает настройки только из окружения.
func LoadSettings(path string) (*Settings, error) {
	var s Settings

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read settings file: %w", err)}
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to parse YAML: %w", err)}
		}
	}

	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	s.SetDefaults()

	if err := s.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("invalid settings: %w", err)}
	}

	return &s, nil
}

// ApplyEnv переопределяет поля значениями переменных окружения
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(EnvRawBucket, &s.Containers.Raw)
	set(EnvNormalizedBucket, &s.Containers.Normalized)
	set(EnvConfigPath, &s.ConfigPath)
	set(EnvStorageType, &s.Storage.Type)
	set(EnvStorageRoot, &s.Storage.Root)
	set(EnvS3Endpoint, &s.Storage.S3.Endpoint)
	set(EnvLogLevel, &s.Logging.Level)
	set(EnvLogFormat, &s.Logging.Format)
	set(EnvResultLogName, &s.ResultLog.Name)

	if v, ok := lookup(EnvS3PathStyle); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvS3PathStyle, err)
		}
		s.Storage.S3.UsePathStyle = b
	}

	if v, ok := lookup(EnvResultLogRedisAddr); ok && v != "" {
		s.ResultLog.Type = "redis"
		s.ResultLog.Address = v
	}

	if v, ok := lookup(EnvAuditOutput); ok && v != "" {
		s.Audit.Enabled = true
		s.Audit.Output = v
	}

	return nil
}

// Validate проверяет корректность настроек
func (s *Settings) Validate() error {
	if s.ConfigPath == "" {
		return fmt.Errorf("config_path is required")
	}
	if s.Containers.Raw == "" {
		return fmt.Errorf("containers.raw is required")
	}
	if s.Containers.Normalized == "" {
		return fmt.Errorf("containers.normalized is required")
	}

	switch s.Storage.Type {
	case "s3":
	case "local":
		if s.Storage.Root == "" {
			return fmt.Errorf("storage.root is required for type 'local'")
		}
	default:
		return fmt.Errorf("unsupported storage type '%s', must be one of: s3, local", s.Storage.Type)
	}

	switch s.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported logging format '%s', must be one of: json, console", s.Logging.Format)
	}

	if err := s.ResultLog.Validate(); err != nil {
		return fmt.Errorf("result_log: %w", err)
	}

	if s.Audit.Enabled && s.Audit.Output == "" {
		return fmt.Errorf("audit.output is required when audit is enabled")
	}
	if err := s.Worker.ConnectRetry.Validate(); err != nil {
		return fmt.Errorf("worker.connect_retry: %w", err)
	}
	// Kafka не возвращает сообщение в очередь: после Nack читается следующее
	if s.Broker.Type == "kafka" && s.Worker.RequeueOnFailure && s.Worker.DeadLetter.Type == "" {
		return fmt.Errorf("worker.requeue_on_failure has no effect with kafka; configure worker.dead_letter")
	}

	switch s.Audit.Level {
	case "", "minimal", "standard":
	default:
		return fmt.Errorf("unsupported audit.level %q", s.Audit.Level)
	}

	return nil
}

// Validate проверяет корректность ResultLogConfig
func (r *ResultLogConfig) Validate() error {
	if r.Type == "" || r.Type == "none" {
		return nil
	}
	if r.Type != "redis" {
		return fmt.Errorf("unsupported type '%s', must be 'redis'", r.Type)
	}
	if r.Address == "" {
		return fmt.Errorf("address is required when type is 'redis'")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required when type is 'redis'")
	}
	if err := r.Breaker.Validate(); err != nil {
		return fmt.Errorf("breaker: %w", err)
	}
	return nil
}

// SetDefaults устанавливает значения по умолчанию для необязательных полей
func (s *Settings) SetDefaults() {
	if s.Storage.Type == "" {
		s.Storage.Type = "s3"
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "json"
	}
	if s.ResultLog.Type == "redis" && s.ResultLog.TTL == 0 {
		s.ResultLog.TTL = 3600 // 1 час по умолчанию
	}
	s.ResultLog.Breaker.SetDefaults()
	s.Worker.ConnectRetry.SetDefaults()
	if s.Metrics.Address != "" && s.Metrics.Path == "" {
		s.Metrics.Path = "/metrics"
	}
}

// OpenStorage создает Storage по настройкам backend'а и параметрам вывода
// конфигурации источника
func OpenStorage(ctx context.Context, s StorageConfig, output OutputConfig) (storage.Storage, error) {
	var store storage.ObjectStore
	switch s.Type {
	case "local":
		local, err := storage.NewLocalStore(s.Root)
		if err != nil {
			return nil, err
		}
		store = local
	case "s3", "":
		s3Store, err := storage.NewS3Store(ctx, s.S3)
		if err != nil {
			return nil, err
		}
		store = s3Store
	default:
		return nil, fmt.Errorf("unsupported storage type '%s'", s.Type)
	}

	return storage.NewGateway(store, storage.GatewayOptions{
		Compression:      output.Compression,
		CompressionLevel: output.CompressionLevel,
	})
}
