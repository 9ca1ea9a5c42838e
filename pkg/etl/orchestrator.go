package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/events"
	"github.com/ruslano69/match-normalizer/pkg/processors"
	"github.com/ruslano69/match-normalizer/pkg/storage"
)

// State - шаг запуска нормализатора
type State string

const (
	StateIdle              State = "idle"
	StateReading           State = "reading"
	StateTransforming      State = "transforming"
	StateStamping          State = "stamping"
	StateWritingNormalized State = "writing_normalized"
	StateArchivingRaw      State = "archiving_raw"
	StateCleaningTransient State = "cleaning_transient"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// SuccessMessage - сообщение лога об успешном запуске
const SuccessMessage = "Successful normalization."

// Observer получает отчет о каждом запуске, успешном или нет
type Observer interface {
	Observe(ctx context.Context, report *Report)
}

// ObserverFunc адаптирует функцию к Observer
type ObserverFunc func(ctx context.Context, report *Report)

// Observe реализует Observer
func (f ObserverFunc) Observe(ctx context.Context, report *Report) {
	f(ctx, report)
}

// Report - итог одного запуска
type Report struct {
	Source      events.ObjectRef
	Division    string
	RunID       string
	Timestamp   time.Time // normalization_datetime
	Keys        Keys
	Trace       []State // пройденные состояния, включая финальное
	State       State   // done или failed
	FailedState State   // шаг, на котором произошла ошибка
	Rows        int

	InputBytes     int
	InputChecksum  string
	OutputBytes    int
	OutputChecksum string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Err       error
}

// Succeeded сообщает, завершился ли запуск успешно
func (r *Report) Succeeded() bool {
	return r.State == StateDone
}

// ErrorMessage возвращает текст ошибки или пустую строку
func (r *Report) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Options - зависимости оркестратора
type Options struct {
	Storage             storage.Storage
	NormalizedContainer string
	RawContainer        string

	// Logger получает только сообщение об успешном запуске
	Logger zerolog.Logger

	Observers []Observer

	// Необязательные подмены для тестов и расширений
	Transformer Transformer
	Stamper     *MetadataStamper
	Factory     *processors.Factory
}

// Orchestrator выполняет один запуск: чтение, нормализация, штамп
// метаданных, запись, архивирование и очистка. Шаги строго
// последовательны, без повторов и отката.
type Orchestrator struct {
	config      *Config
	loader      *Loader
	transformer Transformer
	stamper     *MetadataStamper
	exporter    *Exporter
	logger      zerolog.Logger
	observers   []Observer
}

// NewOrchestrator создает оркестратор для конфигурации источника
func NewOrchestrator(config *Config, opts Options) (*Orchestrator, error) {
	if config == nil {
		return nil, &ConfigError{Err: fmt.Errorf("config is nil")}
	}
	if opts.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if opts.NormalizedContainer == "" || opts.RawContainer == "" {
		return nil, fmt.Errorf("normalized and raw containers are required")
	}

	transformer := opts.Transformer
	if transformer == nil {
		builder, err := NewTableBuilder(config, opts.Factory)
		if err != nil {
			return nil, err
		}
		transformer = builder
	}

	stamper := opts.Stamper
	if stamper == nil {
		stamper = NewMetadataStamper(WithCompression(config.Output.Compression))
	}

	return &Orchestrator{
		config:      config,
		loader:      NewLoader(opts.Storage),
		transformer: transformer,
		stamper:     stamper,
		exporter:    NewExporter(opts.Storage, opts.NormalizedContainer, opts.RawContainer),
		logger:      opts.Logger,
		observers:   opts.Observers,
	}, nil
}

// AddObserver регистрирует наблюдателя
func (o *Orchestrator) AddObserver(observer Observer) {
	o.observers = append(o.observers, observer)
}

// Config возвращает конфигурацию источника
func (o *Orchestrator) Config() *Config {
	return o.config
}

// Run обрабатывает один входной объект. Ошибка шага возвращается без
// изменений: *storage.ReadError, *table.TransformError, *table.SchemaError,
// *storage.WriteError. Уже выполненные записи не откатываются.
func (o *Orchestrator) Run(ctx context.Context, ref events.ObjectRef) (*Report, error) {
	report := &Report{
		Source:    ref,
		Division:  o.config.Division,
		StartTime: time.Now(),
		Trace:     []State{StateIdle},
	}

	err := o.run(ctx, ref, report)

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	if err != nil {
		report.FailedState = report.Trace[len(report.Trace)-1]
		report.Err = err
		report.State = StateFailed
	} else {
		report.State = StateDone
	}
	report.Trace = append(report.Trace, report.State)

	if err == nil {
		o.logger.Info().
			Str("division", report.Division).
			Str("run_id", report.RunID).
			Str("source", ref.String()).
			Str("normalized", o.exporter.NormalizedContainer()+"/"+report.Keys.Normalized).
			Str("raw", o.exporter.RawContainer()+"/"+report.Keys.Raw).
			Int("rows", report.Rows).
			Dur("duration", report.Duration).
			Msg(SuccessMessage)
	}

	for _, observer := range o.observers {
		observer.Observe(ctx, report)
	}

	return report, err
}

func (o *Orchestrator) run(ctx context.Context, ref events.ObjectRef, report *Report) error {
	enter := func(s State) { report.Trace = append(report.Trace, s) }

	enter(StateReading)
	source, err := o.loader.Load(ctx, ref)
	if err != nil {
		return err
	}
	report.InputBytes = source.Bytes
	report.InputChecksum = source.Checksum

	enter(StateTransforming)
	tbl, err := o.transformer.Transform(ctx, source.Document)
	if err != nil {
		return err
	}
	report.Rows = tbl.Len()

	enter(StateStamping)
	stamp, err := o.stamper.Stamp(tbl, o.config.Division)
	if err != nil {
		return err
	}
	report.RunID = stamp.RunID
	report.Timestamp = stamp.Time
	report.Keys = stamp.Keys

	enter(StateWritingNormalized)
	written, err := o.exporter.WriteNormalized(ctx, tbl, stamp.Keys.Normalized)
	if err != nil {
		return err
	}
	report.OutputBytes = written.Bytes
	report.OutputChecksum = written.Checksum

	enter(StateArchivingRaw)
	if err := o.exporter.Archive(ctx, ref, stamp.Keys.Raw); err != nil {
		return err
	}

	enter(StateCleaningTransient)
	if err := o.exporter.Cleanup(ctx, ref); err != nil {
		return err
	}

	return nil
}
