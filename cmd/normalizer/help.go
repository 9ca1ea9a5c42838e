package main

import "fmt"

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("normalizer version %s\n", version)
}

// PrintHelp prints usage information
func PrintHelp() {
	fmt.Println("normalizer - match data JSON to CSV normalizer")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  normalizer --config <source.yaml> [mode] [options]")
	fmt.Println()

	fmt.Println("MODES:")
	fmt.Println()
	fmt.Println("  Local transform (no storage side effects):")
	fmt.Println("    --input <file.json>        Normalize a JSON file")
	fmt.Println("    --output <file.csv>        Write CSV here (default: stdout)")
	fmt.Println("    --xlsx <file.xlsx>         Also write an XLSX preview")
	fmt.Println("    --sheet <name>             XLSX sheet name (default: division)")
	fmt.Println()
	fmt.Println("  Full run against a local directory store:")
	fmt.Println("    --root <dir>               Store root, containers are subdirectories")
	fmt.Println("    --event <event.json>       S3 event notification (first record is processed)")
	fmt.Println("    --source <container/key>   Object to process instead of --event")
	fmt.Println("    --raw <name>               Raw archive container (default: raw)")
	fmt.Println("    --normalized <name>        Normalized container (default: normalized)")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println("    --log-level <level>        trace, debug, info, warn, error (default: info)")
	fmt.Println("    --log-format <format>      console, json (default: console)")
	fmt.Println("    --version                  Show version")
	fmt.Println("    --help                     Show this help")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  normalizer --config configs/ligue1.yaml --input matches.json --output ligue1.csv")
	fmt.Println("  normalizer --config configs/wwc.yaml --root ./data --source transient/wwc/2023.json")
}
