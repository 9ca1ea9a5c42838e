package processors

import (
	"context"
	"fmt"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// StepError - ошибка шага цепочки с его позицией. Исходная ошибка
// доступна через errors.As/errors.Is.
type StepError struct {
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Chain выполняет шаги строго по порядку и останавливается на первой ошибке
type Chain struct {
	steps []Processor
}

// NewChain создает цепочку из шагов
func NewChain(steps ...Processor) *Chain {
	return &Chain{steps: steps}
}

// Add дописывает шаг в конец цепочки
func (c *Chain) Add(step Processor) {
	c.steps = append(c.steps, step)
}

// Names - имена шагов в порядке выполнения
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.steps))
	for _, step := range c.steps {
		names = append(names, step.Name())
	}
	return names
}

// Process прогоняет таблицу через все шаги. Отмена контекста проверяется
// перед каждым шагом.
func (c *Chain) Process(ctx context.Context, tbl *table.Table) (*table.Table, error) {
	for i, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := step.Process(ctx, tbl)
		if err != nil {
			return nil, &StepError{Index: i, Step: step.Name(), Err: err}
		}
		tbl = out
	}
	return tbl, nil
}
