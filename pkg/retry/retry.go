// Package retry повторяет подключение worker'а к брокерам с задержкой.
// Шаги нормализации не повторяются: повторная доставка - забота брокера
// или триггера.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryableFunc - операция, которую можно повторить
type RetryableFunc func(ctx context.Context) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку как неисправимую: Do вернет ее сразу
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryer повторяет операцию по Config
type Retryer struct {
	config Config
}

func NewRetryer(config Config) (*Retryer, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do вызывает fn, пока она не вернет nil, ошибку Permanent, не кончатся
// попытки или не будет отменен ctx. Возвращаемая ошибка оборачивает
// последнюю ошибку fn.
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	if !r.config.Enabled {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var permanent *permanentError
		switch {
		case errors.As(err, &permanent):
			return permanent.err
		case r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts:
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		delay := r.calculateDelay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return fmt.Errorf("%w (last error: %w)", waitErr, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// calculateDelay - задержка после неудачной попытки attempt (с 1)
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	base := float64(r.config.InitialDelay)
	var delay float64
	switch r.config.BackoffStrategy {
	case BackoffLinear:
		delay = base * float64(attempt)
	case BackoffExponential:
		delay = base * math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
	default:
		delay = base
	}
	delay = math.Min(delay, float64(r.config.MaxDelay))

	if r.config.Jitter > 0 {
		delay += delay * r.config.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(delay)
}
