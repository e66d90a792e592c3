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
	inputPath          = flag.String("input", "", "path to the .osm.pbf file to preprocess")
	outputDir          = flag.String("output_dir", "./data", "directory to write every stage's output files into")
	threads            = flag.Int("threads", 0, "worker pool size for way/relation processing (0 = config default)")
	generateEdgeLookup = flag.Bool("generate_edge_lookup", false, "also write .edge_segment_lookup/.edge_penalties")
	segmentSpeedCSV    = flag.String("segment_speed_csv", "", "CSV of OSM from/to node id pairs and override speeds to re-weigh edges with (requires -generate_edge_lookup)")
	rtreeLeafRadiusKM  = flag.Float64("rtree_leaf_box_radius_km", 0, "r-tree leaf bounding box radius in km (0 = config default)")
	configDir          = flag.String("config_dir", "", "directory holding config.yaml to load ambient defaults from (flags still take precedence)")
)

// main runs extraction, graph compression, and edge expansion back to back
// against a single .osm.pbf input, the same three stages
// osmextract/graphcompress/edgeexpand run individually, for callers that
// don't need to inspect the intermediate .osrm/.compressed artifacts.
func main() {
	flag.Parse()
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	cfg := config.Default()
	if *configDir != "" {
		loaded, err := config.Load(*configDir)
		if err != nil {
			log.Fatalf("osmpipeline: loading config: %v", err)
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
	if cfg.InputPath == "" {
		log.Fatal("osmpipeline: -input is required")
	}
	leafRadius := cfg.RtreeLeafBoxRadiusKM
	if *rtreeLeafRadiusKM > 0 {
		leafRadius = *rtreeLeafRadiusKM
	}
	generateLookup := cfg.GenerateEdgeLookup
	if explicit["generate_edge_lookup"] {
		generateLookup = *generateEdgeLookup
	}
	speedCSV := cfg.SegmentSpeedCSV
	if *segmentSpeedCSV != "" {
		speedCSV = *segmentSpeedCSV
	}

	zapLogger, err := logger.New()
	if err != nil {
		panic(err)
	}

	base := pipeline.Basename(cfg.InputPath)

	if err := pipeline.ExtractStage(context.Background(), cfg.InputPath, cfg.OutputDir, pipeline.ExtractOptions{
		Threads:               cfg.Threads,
		ExternalSortThreshold: cfg.ExternalSortThreshold,
	}, zapLogger); err != nil {
		zapLogger.Sugar().Fatalw("extraction failed", "err", err)
	}

	if err := pipeline.CompressStage(cfg.OutputDir, base, zapLogger); err != nil {
		zapLogger.Sugar().Fatalw("graph compression failed", "err", err)
	}

	if err := pipeline.EdgeExpandStage(cfg.OutputDir, base, pipeline.EdgeExpandOptions{
		GenerateEdgeLookup:  generateLookup,
		SegmentSpeedCSVPath: speedCSV,
		RtreeLeafRadiusKM:   leafRadius,
		TinyComponentMax:    cfg.CompressedComponentMax,
	}, zapLogger); err != nil {
		zapLogger.Sugar().Fatalw("edge expansion failed", "err", err)
	}

	zapLogger.Sugar().Infow("pipeline complete", "base", base, "output_dir", cfg.OutputDir)
}
