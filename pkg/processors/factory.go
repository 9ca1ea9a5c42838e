package processors

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownProcessor - тип процессора не зарегистрирован в фабрике
var ErrUnknownProcessor = errors.New("unknown processor type")

// CreatorFunc строит процессор из params блока processors[] конфигурации
type CreatorFunc func(params map[string]any) (Processor, error)

// Factory - реестр процессоров, доступных в блоке processors[] конфигурации
// дивизиона. Встроенные шаги регистрируются в NewFactory.
type Factory struct {
	creators map[string]CreatorFunc
}

// NewFactory возвращает фабрику со встроенными шагами нормализации
func NewFactory() *Factory {
	f := &Factory{creators: make(map[string]CreatorFunc)}

	f.Register(columnRenamerName, func(p map[string]any) (Processor, error) { return NewColumnRenamerFromConfig(p) })
	f.Register(fieldNormalizerName, func(p map[string]any) (Processor, error) { return NewFieldNormalizerFromConfig(p) })
	f.Register(winnerRewriterName, func(p map[string]any) (Processor, error) { return NewWinnerRewriterFromConfig(p) })
	f.Register(integerCoercerName, func(p map[string]any) (Processor, error) { return NewIntegerCoercerFromConfig(p) })
	f.Register(fieldValidatorName, func(p map[string]any) (Processor, error) { return NewFieldValidatorFromConfig(p) })

	return f
}

// Register добавляет или заменяет тип процессора
func (f *Factory) Register(processorType string, creator CreatorFunc) {
	f.creators[processorType] = creator
}

// Types возвращает зарегистрированные типы в алфавитном порядке
func (f *Factory) Types() []string {
	types := make([]string, 0, len(f.creators))
	for name := range f.creators {
		types = append(types, name)
	}
	slices.Sort(types)
	return types
}

// Create строит один процессор. Для неизвестного типа возвращается
// ErrUnknownProcessor со списком доступных типов.
func (f *Factory) Create(config Config) (Processor, error) {
	creator, ok := f.creators[config.Type]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProcessor, config.Type, strings.Join(f.Types(), ", "))
	}

	p, err := creator(config.Params)
	if err != nil {
		return nil, fmt.Errorf("processor %s: %w", config.Type, err)
	}
	return p, nil
}

// CreateChain строит цепочку в порядке configs
func (f *Factory) CreateChain(configs []Config) (*Chain, error) {
	steps := make([]Processor, 0, len(configs))
	for i, config := range configs {
		p, err := f.Create(config)
		if err != nil {
			return nil, fmt.Errorf("processors[%d]: %w", i, err)
		}
		steps = append(steps, p)
	}
	return NewChain(steps...), nil
}

// DefaultFactory используется, когда фабрика не передана явно
var DefaultFactory = NewFactory()
