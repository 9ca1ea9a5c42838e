package resultlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/resilience"
)

// RunResult - состояние запуска нормализатора, публикуемое в Redis
// после его завершения (успешного или с ошибкой).
//
// Redis-ключи:
//
//	SET  normalizer:<name>:state  <JSON>  EX <ttl>  — для GET-запросов
//	PUB  normalizer:<name>                          — для event-driven маршрутизации
type RunResult struct {
	ResultName     string    `json:"result_name"`
	Division       string    `json:"division"`
	Status         string    `json:"status"` // "success" | "failed"
	Source         string    `json:"source"`
	RunID          string    `json:"run_id,omitempty"`
	NormalizedKey  string    `json:"normalized_key,omitempty"`
	RawKey         string    `json:"raw_key,omitempty"`
	Rows           int       `json:"rows"`
	OutputChecksum string    `json:"output_checksum,omitempty"`
	FailedState    string    `json:"failed_state,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	DurationMs     int64     `json:"duration_ms"`
	Error          *string   `json:"error,omitempty"`
}

// StateKey возвращает ключ последнего состояния
func StateKey(name string) string {
	return fmt.Sprintf("normalizer:%s:state", name)
}

// Channel возвращает канал событий
func Channel(name string) string {
	return fmt.Sprintf("normalizer:%s", name)
}

// RedisPublisher публикует результат запуска в Redis. Реализует etl.Observer.
type RedisPublisher struct {
	client  *redis.Client
	config  etl.ResultLogConfig
	logger  zerolog.Logger
	breaker *resilience.CircuitBreaker
}

// NewRedisPublisher создает новый Redis publisher на основе конфигурации
func NewRedisPublisher(config etl.ResultLogConfig, logger zerolog.Logger) (*RedisPublisher, error) {
	breakerConfig := config.Breaker
	breakerConfig.Name = "result_log:" + config.Name
	breakerConfig.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("result log circuit state changed")
	}
	breaker, err := resilience.New(breakerConfig)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config, logger: logger, breaker: breaker}, nil
}

// NewResult собирает RunResult из отчета запуска
func NewResult(name string, report *etl.Report) RunResult {
	result := RunResult{
		ResultName:     name,
		Division:       report.Division,
		Source:         report.Source.String(),
		RunID:          report.RunID,
		NormalizedKey:  report.Keys.Normalized,
		RawKey:         report.Keys.Raw,
		Rows:           report.Rows,
		OutputChecksum: report.OutputChecksum,
		StartedAt:      report.StartTime,
		FinishedAt:     report.EndTime,
		DurationMs:     report.Duration.Milliseconds(),
	}

	if report.Succeeded() {
		result.Status = "success"
	} else {
		result.Status = "failed"
		result.FailedState = string(report.FailedState)
		errStr := report.ErrorMessage()
		result.Error = &errStr
	}

	return result
}

// Publish публикует результат запуска:
//   - SET normalizer:<name>:state <JSON> EX <ttl>  → для опроса (polling)
//   - PUBLISH normalizer:<name> <JSON>              → для подписки (pub/sub)
func (p *RedisPublisher) Publish(ctx context.Context, report *etl.Report) error {
	return p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.publish(ctx, report)
	})
}

func (p *RedisPublisher) publish(ctx context.Context, report *etl.Report) error {
	payload, err := json.Marshal(NewResult(p.config.Name, report))
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second

	if err := p.client.Set(ctx, StateKey(p.config.Name), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, Channel(p.config.Name), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Observe реализует etl.Observer. Ошибка публикации не влияет на результат
// запуска и только логируется.
func (p *RedisPublisher) Observe(ctx context.Context, report *etl.Report) {
	err := p.Publish(ctx, report)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		p.logger.Debug().Str("result_name", p.config.Name).Msg("result log skipped, circuit open")
		return
	}
	if err != nil {
		p.logger.Warn().Err(err).Str("result_name", p.config.Name).Msg("failed to publish run result")
	}
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
