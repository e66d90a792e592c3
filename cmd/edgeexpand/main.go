package main

import (
	"flag"
	"log"

	"github.com/wirahadi/graphprep/pkg/config"
	"github.com/wirahadi/graphprep/pkg/logger"
	"github.com/wirahadi/graphprep/pkg/pipeline"
)

var (
	outputDir          = flag.String("output_dir", "./data", "directory holding the compressed graph, and to write the edge-expanded outputs into")
	generateEdgeLookup = flag.Bool("generate_edge_lookup", false, "also write .edge_segment_lookup/.edge_penalties")
	segmentSpeedCSV    = flag.String("segment_speed_csv", "", "CSV of OSM from/to node id pairs and override speeds to re-weigh edges with (requires -generate_edge_lookup)")
	rtreeLeafRadiusKM  = flag.Float64("rtree_leaf_box_radius_km", 0, "r-tree leaf bounding box radius in km (0 = config default)")
	tinyComponentMax   = flag.Int("tiny_component_max", 0, "strongly connected components smaller than this are marked tiny (0 = config default)")
)

func main() {
	flag.Parse()
	base := flag.Arg(0)
	if base == "" {
		log.Fatal("edgeexpand: file-stem argument is required, e.g. edgeexpand -output_dir=./data jakarta")
	}

	cfg := config.Default()
	leafRadius := cfg.RtreeLeafBoxRadiusKM
	if *rtreeLeafRadiusKM > 0 {
		leafRadius = *rtreeLeafRadiusKM
	}
	componentMax := cfg.CompressedComponentMax
	if *tinyComponentMax > 0 {
		componentMax = *tinyComponentMax
	}

	zapLogger, err := logger.New()
	if err != nil {
		panic(err)
	}

	err = pipeline.EdgeExpandStage(*outputDir, base, pipeline.EdgeExpandOptions{
		GenerateEdgeLookup:  *generateEdgeLookup,
		SegmentSpeedCSVPath: *segmentSpeedCSV,
		RtreeLeafRadiusKM:   leafRadius,
		TinyComponentMax:    componentMax,
	}, zapLogger)
	if err != nil {
		zapLogger.Sugar().Fatalw("edge expansion failed", "err", err)
	}
}
