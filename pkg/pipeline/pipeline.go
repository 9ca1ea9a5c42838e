// Package pipeline собирает оркестратор и наблюдателей из настроек
// развертывания. Используется lambda-обработчиком и worker'ом.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/audit"
	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/metrics"
	"github.com/ruslano69/match-normalizer/pkg/resultlog"
	"github.com/ruslano69/match-normalizer/pkg/storage"
)

// Options - необязательные зависимости
type Options struct {
	// Storage подменяет backend из настроек (тесты, CLI)
	Storage storage.Storage

	// Registerer включает Prometheus метрики; nil = без метрик
	Registerer prometheus.Registerer
}

// Pipeline - готовый к работе оркестратор и ресурсы наблюдателей
type Pipeline struct {
	Settings     *etl.Settings
	Config       *etl.Config
	Storage      storage.Storage
	Orchestrator *etl.Orchestrator

	closers []io.Closer
}

// Build загружает конфигурацию источника, открывает хранилище и
// регистрирует наблюдателей, включенные в настройках
func Build(ctx context.Context, settings *etl.Settings, logger zerolog.Logger, opts Options) (*Pipeline, error) {
	config, err := etl.LoadConfig(settings.ConfigPath)
	if err != nil {
		return nil, err
	}

	st := opts.Storage
	if st == nil {
		st, err = etl.OpenStorage(ctx, settings.Storage, config.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
	}

	p := &Pipeline{Settings: settings, Config: config, Storage: st}

	var observers []etl.Observer
	if opts.Registerer != nil {
		observers = append(observers, metrics.NewCollector(opts.Registerer))
	}
	if settings.ResultLog.Type == "redis" {
		publisher, err := resultlog.NewRedisPublisher(settings.ResultLog, logger)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create result log: %w", err)
		}
		observers = append(observers, publisher)
		p.closers = append(p.closers, publisher)
	}
	if settings.Audit.Enabled {
		auditLogger, err := audit.NewFileLogger(settings.Audit, settings.Containers.Normalized, logger)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		observers = append(observers, auditLogger)
		p.closers = append(p.closers, auditLogger)
	}

	p.Orchestrator, err = etl.NewOrchestrator(config, etl.Options{
		Storage:             st,
		NormalizedContainer: settings.Containers.Normalized,
		RawContainer:        settings.Containers.Raw,
		Logger:              logger,
		Observers:           observers,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	logger.Debug().
		Str("division", config.Division).
		Int("observers", len(observers)).
		Str("storage", settings.Storage.Type).
		Msg("pipeline ready")

	return p, nil
}

// Close освобождает ресурсы наблюдателей
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
