// climdex batch driver
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/hhkbp2/go-logging"

	"github.com/climstats/climdex-go/climdex"
)

func main() {
	parser := argparse.NewParser("climdex", "Derives extreme-precipitation statistics and an ocean index from ensemble climate model output")

	sourceDir := parser.String("s", "source_dir", &argparse.Options{
		Required: true,
		Help:     "Directory holding the raw NetCDF model output"})

	outDir := parser.String("o", "out_dir", &argparse.Options{
		Default: "out",
		Help:    "Directory for derived NetCDF and CSV files"})

	configPath := parser.String("c", "config", &argparse.Options{
		Default: "",
		Help:    "Optional YAML file overriding the default run configuration"})

	members := parser.String("m", "members", &argparse.Options{
		Default: "",
		Help:    "Comma-separated member subset, e.g. r1,r2,r5 (default: all configured members)"})

	workers := parser.Int("w", "workers", &argparse.Options{
		Default: 0,
		Help:    "Worker pool size (default: from configuration)"})

	logLevel := parser.Selector("l", "log_level", []string{"debug", "info", "warn", "error"}, &argparse.Options{
		Default: "info",
		Help:    "Log verbosity"})

	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}

	logger := logging.GetLogger("climdex")
	switch *logLevel {
	case "debug":
		logger.SetLevel(logging.LevelDebug)
	case "info":
		logger.SetLevel(logging.LevelInfo)
	case "warn":
		logger.SetLevel(logging.LevelWarn)
	case "error":
		logger.SetLevel(logging.LevelError)
	}

	// Configuration problems abort before any member processing begins;
	// everything after this point is member-local.
	cfg, err := climdex.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *members != "" {
		cfg.Members = strings.Split(*members, ",")
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	source, err := climdex.NewFileSource(*sourceDir, cfg.Scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sink, err := climdex.NewFileSink(*outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	summary := climdex.Run(cfg, source, sink)

	fmt.Printf("succeeded: %d/%d\n", len(summary.Succeeded), len(cfg.Members))
	for _, f := range summary.Failed {
		fmt.Printf("failed: %s at %s: %v\n", f.Member, f.Stage, f.Err)
	}
	if len(summary.Succeeded) == 0 {
		os.Exit(1)
	}
}
