package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	normevents "github.com/ruslano69/match-normalizer/pkg/events"
)

// Runner - один запуск нормализации
type Runner interface {
	Run(ctx context.Context, ref normevents.ObjectRef) (*etl.Report, error)
}

// Handler привязывает S3-триггер к оркестратору. Создается один раз при
// холодном старте; конфигурация источника не перечитывается между вызовами.
type Handler struct {
	runner Runner
	logger zerolog.Logger
}

func NewHandler(runner Runner, logger zerolog.Logger) *Handler {
	return &Handler{runner: runner, logger: logger}
}

// Handle обрабатывает первую запись события. Ошибка запуска возвращается
// рантайму Lambda без изменений.
func (h *Handler) Handle(ctx context.Context, evt events.S3Event) (string, error) {
	ref, err := normevents.FirstObject(evt)
	if err != nil {
		return "", err
	}

	if n := normevents.Ignored(evt); n > 0 {
		h.logger.Warn().
			Int("ignored_records", n).
			Str("source", ref.String()).
			Msg("event contains more than one record, only the first is processed")
	}

	if _, err := h.runner.Run(ctx, ref); err != nil {
		return "", err
	}
	return etl.SuccessMessage, nil
}
