package main

import (
	"context"
	"flag"
	"log"

	"github.com/wirahadi/graphprep/pkg/config"
	"github.com/wirahadi/graphprep/pkg/logger"
	"github.com/wirahadi/graphprep/pkg/pipeline"
)

var (
	inputPath             = flag.String("input", "", "path to the .osm.pbf file to extract")
	outputDir             = flag.String("output_dir", "./data", "directory to write .osrm/.restrictions/.names/.timestamp into")
	threads               = flag.Int("threads", 0, "worker pool size for way/relation processing (0 = config default)")
	externalSortThreshold = flag.Int("external_sort_threshold", 0, "node or edge count above which sorting spills to disk (0 = config default)")
	configDir             = flag.String("config_dir", "", "directory holding config.yaml to load ambient defaults from (flags still take precedence)")
)

func main() {
	flag.Parse()
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg := config.Default()
	if *configDir != "" {
		loaded, err := config.Load(*configDir)
		if err != nil {
			log.Fatalf("osmextract: loading config: %v", err)
		}
		cfg = loaded
	}
	if *inputPath != "" {
		cfg.InputPath = *inputPath
	}
	if explicit["output_dir"] || cfg.OutputDir == "" {
		cfg.OutputDir = *outputDir
	}
	if *threads > 0 {
		cfg.Threads = *threads
	}
	if *externalSortThreshold > 0 {
		cfg.ExternalSortThreshold = *externalSortThreshold
	}
	if cfg.InputPath == "" {
		log.Fatal("osmextract: -input is required")
	}

	zapLogger, err := logger.New()
	if err != nil {
		panic(err)
	}

	err = pipeline.ExtractStage(context.Background(), cfg.InputPath, cfg.OutputDir, pipeline.ExtractOptions{
		Threads:               cfg.Threads,
		ExternalSortThreshold: cfg.ExternalSortThreshold,
	}, zapLogger)
	if err != nil {
		zapLogger.Sugar().Fatalw("extraction failed", "err", err)
	}
}
