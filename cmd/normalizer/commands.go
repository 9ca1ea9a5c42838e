package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/events"
	"github.com/ruslano69/match-normalizer/pkg/pipeline"
	"github.com/ruslano69/match-normalizer/pkg/table"
	"github.com/ruslano69/match-normalizer/pkg/xlsx"
)

// TransformOptions - параметры локальной нормализации файла
type TransformOptions struct {
	Input  string
	Output io.Writer
	XLSX   string
	Sheet  string
}

// TransformFile нормализует локальный JSON-файл без обращения к хранилищу:
// TableBuilder + MetadataStamper, затем CSV и необязательный XLSX.
func TransformFile(ctx context.Context, config *etl.Config, opts TransformOptions) (etl.Stamp, *table.Table, error) {
	data, err := os.ReadFile(opts.Input)
	if err != nil {
		return etl.Stamp{}, nil, fmt.Errorf("failed to read input: %w", err)
	}

	doc, err := table.DecodeJSON(data)
	if err != nil {
		return etl.Stamp{}, nil, err
	}

	builder, err := etl.NewTableBuilder(config, nil)
	if err != nil {
		return etl.Stamp{}, nil, err
	}
	tbl, err := builder.Transform(ctx, doc)
	if err != nil {
		return etl.Stamp{}, nil, err
	}

	stamp, err := etl.NewMetadataStamper(etl.WithCompression(config.Output.Compression)).Stamp(tbl, config.Division)
	if err != nil {
		return etl.Stamp{}, nil, err
	}

	w := bufio.NewWriter(opts.Output)
	if err := table.WriteCSV(w, tbl); err != nil {
		return stamp, nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	if err := w.Flush(); err != nil {
		return stamp, nil, fmt.Errorf("failed to write CSV: %w", err)
	}

	if opts.XLSX != "" {
		sheet := opts.Sheet
		if sheet == "" {
			sheet = config.Division
		}
		if err := xlsx.ToXLSX(tbl, opts.XLSX, sheet); err != nil {
			return stamp, nil, fmt.Errorf("failed to write XLSX: %w", err)
		}
	}

	return stamp, tbl, nil
}

// RunOptions - параметры полного запуска на локальном хранилище
type RunOptions struct {
	ConfigPath string
	Root       string
	Event      string
	Source     string
	Raw        string
	Normalized string
}

// RunLocal выполняет полный цикл оркестратора над каталогом root:
// чтение, нормализация, запись, архивирование и удаление исходника.
func RunLocal(ctx context.Context, opts RunOptions, logger zerolog.Logger) (*etl.Report, error) {
	ref, err := resolveSource(opts)
	if err != nil {
		return nil, err
	}

	settings := &etl.Settings{
		ConfigPath: opts.ConfigPath,
		Containers: etl.ContainerConfig{Raw: opts.Raw, Normalized: opts.Normalized},
		Storage:    etl.StorageConfig{Type: "local", Root: opts.Root},
	}
	settings.SetDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	p, err := pipeline.Build(ctx, settings, logger, pipeline.Options{})
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.Orchestrator.Run(ctx, ref)
}

// resolveSource определяет объект из файла события или из "container/key"
func resolveSource(opts RunOptions) (events.ObjectRef, error) {
	switch {
	case opts.Event != "" && opts.Source != "":
		return events.ObjectRef{}, fmt.Errorf("use either --event or --source, not both")
	case opts.Event != "":
		data, err := os.ReadFile(opts.Event)
		if err != nil {
			return events.ObjectRef{}, fmt.Errorf("failed to read event: %w", err)
		}
		evt, err := events.Parse(data)
		if err != nil {
			return events.ObjectRef{}, err
		}
		return events.FirstObject(evt)
	case opts.Source != "":
		container, key, ok := strings.Cut(opts.Source, "/")
		if !ok || container == "" || key == "" {
			return events.ObjectRef{}, fmt.Errorf("invalid source %q, expected <container>/<key>", opts.Source)
		}
		return events.ObjectRef{Container: container, Key: key}, nil
	default:
		return events.ObjectRef{}, fmt.Errorf("--event or --source is required with --root")
	}
}
