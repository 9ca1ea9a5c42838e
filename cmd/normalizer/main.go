package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/logging"
)

func main() {
	ctx := context.Background()

	flags := ParseFlags()

	if *flags.Version {
		PrintVersion()
		os.Exit(0)
	}
	if *flags.Help || *flags.Config == "" {
		PrintHelp()
		if *flags.Help {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger, err := logging.New(logging.Options{Level: *flags.LogLevel, Format: *flags.LogFormat})
	if err != nil {
		fatal("Invalid logging options: %v", err)
	}

	switch {
	case *flags.Root != "":
		report, err := RunLocal(ctx, RunOptions{
			ConfigPath: *flags.Config,
			Root:       *flags.Root,
			Event:      *flags.Event,
			Source:     *flags.Source,
			Raw:        *flags.Raw,
			Normalized: *flags.Normalized,
		}, logger)
		if err != nil {
			fatal("Run failed: %v", err)
		}
		fmt.Printf("%s/%s (%d rows)\n", *flags.Normalized, report.Keys.Normalized, report.Rows)

	case *flags.Input != "":
		config, err := etl.LoadConfig(*flags.Config)
		if err != nil {
			fatal("Failed to load config: %v", err)
		}

		out := os.Stdout
		if *flags.Output != "" {
			out, err = os.Create(*flags.Output)
			if err != nil {
				fatal("Failed to create output: %v", err)
			}
		}

		stamp, tbl, err := TransformFile(ctx, config, TransformOptions{
			Input:  *flags.Input,
			Output: out,
			XLSX:   *flags.XLSX,
			Sheet:  *flags.Sheet,
		})
		if out != os.Stdout {
			if cerr := out.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if err != nil {
			fatal("Transform failed: %v", err)
		}
		logger.Info().
			Str("division", stamp.Division).
			Str("run_id", stamp.RunID).
			Int("rows", tbl.Len()).
			Msg("table normalized")

	default:
		PrintHelp()
		os.Exit(1)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
