package main

import "flag"

// Flags holds all command-line flags
type Flags struct {
	// Source configuration
	Config *string

	// Local transform
	Input  *string
	Output *string
	XLSX   *string
	Sheet  *string

	// Full run against a local directory store
	Event      *string
	Source     *string
	Root       *string
	Raw        *string
	Normalized *string

	// Logging
	LogLevel  *string
	LogFormat *string

	Version *bool
	Help    *bool
}

// ParseFlags parses command-line flags
func ParseFlags() *Flags {
	f := &Flags{
		Config: flag.String("config", "", "Source configuration YAML (required)"),

		Input:  flag.String("input", "", "JSON file to normalize"),
		Output: flag.String("output", "", "CSV output file (default: stdout)"),
		XLSX:   flag.String("xlsx", "", "Also write an XLSX preview to this file"),
		Sheet:  flag.String("sheet", "", "XLSX sheet name (default: division)"),

		Event:      flag.String("event", "", "S3 event notification JSON file to process"),
		Source:     flag.String("source", "", "Object to process as <container>/<key> (instead of -event)"),
		Root:       flag.String("root", "", "Local store root directory (containers are subdirectories)"),
		Raw:        flag.String("raw", "raw", "Raw archive container"),
		Normalized: flag.String("normalized", "normalized", "Normalized output container"),

		LogLevel:  flag.String("log-level", "info", "Log level: trace, debug, info, warn, error"),
		LogFormat: flag.String("log-format", "console", "Log format: console, json"),

		Version: flag.Bool("version", false, "Show version"),
		Help:    flag.Bool("help", false, "Show help"),
	}
	flag.Parse()
	return f
}
