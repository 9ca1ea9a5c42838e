// Package worker связывает брокер сообщений с оркестратором: получает
// уведомления о новых объектах, запускает нормализацию и подтверждает
// сообщения.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/brokers"
	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/events"
)

// Runner выполняет один запуск нормализации (etl.Orchestrator)
type Runner interface {
	Run(ctx context.Context, ref events.ObjectRef) (*etl.Report, error)
}

// Options настраивает Worker
type Options struct {
	Logger zerolog.Logger

	// DeadLetter получает исходное сообщение, если запуск завершился ошибкой.
	// После успешной отправки сообщение подтверждается.
	DeadLetter brokers.Publisher

	// RequeueOnFailure возвращает сообщение в очередь при ошибке запуска
	// (если DeadLetter не задан). Некорректные события не возвращаются никогда.
	RequeueOnFailure bool

	// IdleWait - пауза после ошибки получения сообщения (по умолчанию 1s)
	IdleWait time.Duration
}

// Stats - счетчики обработанных сообщений
type Stats struct {
	Received  int64
	Succeeded int64
	Failed    int64
	Rejected  int64 // некорректные события

	DeadLettered int64
}

// Worker обрабатывает сообщения по одному
type Worker struct {
	consumer brokers.Consumer
	runner   Runner
	opts     Options

	received  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	dead      atomic.Int64
}

// New создает worker. Consumer должен быть уже подключен.
func New(consumer brokers.Consumer, runner Runner, opts Options) *Worker {
	if opts.IdleWait <= 0 {
		opts.IdleWait = time.Second
	}
	return &Worker{
		consumer: consumer,
		runner:   runner,
		opts:     opts,
	}
}

// Run обрабатывает сообщения до отмены ctx
func (w *Worker) Run(ctx context.Context) error {
	log := w.opts.Logger
	log.Info().Str("broker", w.consumer.Type()).Msg("worker started")

	for {
		if ctx.Err() != nil {
			log.Info().Msg("worker stopped")
			return nil
		}

		msg, err := w.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if !errors.Is(err, brokers.ErrNoMessage) {
				log.Warn().Err(err).Msg("receive failed")
				w.sleep(ctx)
			}
			continue
		}

		if err := w.Handle(ctx, msg); err != nil {
			log.Error().Err(err).Msg("failed to settle message")
		}
	}
}

// Handle обрабатывает одно сообщение и подтверждает или отклоняет его.
// Возвращает только ошибки подтверждения: ошибки запуска логируются.
func (w *Worker) Handle(ctx context.Context, msg []byte) error {
	w.received.Add(1)
	log := w.opts.Logger

	evt, err := events.Parse(msg)
	var ref events.ObjectRef
	if err == nil {
		ref, err = events.FirstObject(evt)
	}
	if err != nil {
		w.rejected.Add(1)
		log.Warn().Err(err).Msg("rejecting malformed event")
		return w.reject(ctx, msg, false)
	}

	if ignored := events.Ignored(evt); ignored > 0 {
		log.Warn().Int("ignored_records", ignored).Str("source", ref.String()).
			Msg("event carries several records, only the first one is processed")
	}

	report, err := w.runner.Run(ctx, ref)
	if err != nil {
		w.failed.Add(1)
		ev := log.Error().Err(err).Str("source", ref.String())
		if report != nil {
			ev = ev.Str("failed_state", string(report.FailedState))
		}
		ev.Msg("normalization failed")
		return w.reject(ctx, msg, w.opts.RequeueOnFailure)
	}

	w.succeeded.Add(1)
	return w.consumer.Ack(ctx)
}

// Stats возвращает текущие счетчики
func (w *Worker) Stats() Stats {
	return Stats{
		Received:  w.received.Load(),
		Succeeded: w.succeeded.Load(),
		Failed:    w.failed.Load(),
		Rejected:  w.rejected.Load(),

		DeadLettered: w.dead.Load(),
	}
}

func (w *Worker) reject(ctx context.Context, msg []byte, requeue bool) error {
	if w.opts.DeadLetter != nil {
		if err := w.opts.DeadLetter.Send(ctx, msg); err != nil {
			// сообщение не потеряно: остается в очереди
			if nackErr := w.consumer.Nack(ctx, true); nackErr != nil {
				return errors.Join(fmt.Errorf("dead letter: %w", err), nackErr)
			}
			return fmt.Errorf("dead letter: %w", err)
		}
		w.dead.Add(1)
		return w.consumer.Ack(ctx)
	}
	return w.consumer.Nack(ctx, requeue)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-time.After(w.opts.IdleWait):
	case <-ctx.Done():
	}
}
