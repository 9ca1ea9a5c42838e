package etl

import (
	"context"
	"errors"

	"github.com/ruslano69/match-normalizer/pkg/processors"
	"github.com/ruslano69/match-normalizer/pkg/table"
)

// Transformer превращает разобранный JSON документ в таблицу итоговой схемы
type Transformer interface {
	Transform(ctx context.Context, doc any) (*table.Table, error)
}

// TableBuilder - стандартный Transformer. Цепочка шагов собирается один раз
// из конфигурации:
//
//	flatten -> column_renamer -> winner_rewriter -> field_normalizer ->
//	processors[] -> integer_coercer -> schema_projector
type TableBuilder struct {
	flatten table.FlattenOptions
	chain   *processors.Chain
}

// NewTableBuilder собирает цепочку процессоров по конфигурации.
// Дополнительные процессоры из config.Processors создаются через factory
// (nil = processors.DefaultFactory).
func NewTableBuilder(config *Config, factory *processors.Factory) (*TableBuilder, error) {
	if factory == nil {
		factory = processors.DefaultFactory
	}

	chain := processors.NewChain(processors.NewColumnRenamer(config.RelevantColumns))

	policy := config.WinnerPolicy
	if policy == "" {
		policy = processors.WinnerDrawOnly
	}
	if policy != processors.WinnerNone {
		rewriter, err := processors.NewWinnerRewriter(policy)
		if err != nil {
			return nil, &ConfigError{Err: errors.Join(ErrInvalidWinnerPolicy, err)}
		}
		chain.Add(rewriter)
	}

	if len(config.Normalize) > 0 {
		normalizer, err := processors.NewFieldNormalizerFromRules(config.Normalize)
		if err != nil {
			return nil, &ConfigError{Err: errors.Join(ErrInvalidNormalizeRule, err)}
		}
		chain.Add(normalizer)
	}

	for _, pc := range config.Processors {
		p, err := factory.Create(pc)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		chain.Add(p)
	}

	if len(config.IntegerColumns) > 0 {
		chain.Add(processors.NewIntegerCoercer(config.IntegerColumns))
	}

	chain.Add(processors.NewSchemaProjector(config.FinalSchema))

	return &TableBuilder{
		flatten: table.FlattenOptions{RecordPath: config.RecordPath},
		chain:   chain,
	}, nil
}

// Steps возвращает имена шагов цепочки
func (b *TableBuilder) Steps() []string {
	return b.chain.Names()
}

// Transform выполняет нормализацию. Ошибки шагов возвращаются как
// *table.TransformError или *table.SchemaError без дополнительной обертки.
func (b *TableBuilder) Transform(ctx context.Context, doc any) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := table.Flatten(doc, b.flatten)
	if err != nil {
		return nil, err
	}

	tbl, err = b.chain.Process(ctx, tbl)
	if err != nil {
		return nil, unwrapStepError(err)
	}

	return tbl, nil
}

// unwrapStepError снимает обертку Chain с типизированных ошибок шагов
func unwrapStepError(err error) error {
	var transformErr *table.TransformError
	if errors.As(err, &transformErr) {
		return transformErr
	}
	var schemaErr *table.SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr
	}
	return err
}
