package main

import (
	"flag"
	"log"

	"github.com/wirahadi/graphprep/pkg/logger"
	"github.com/wirahadi/graphprep/pkg/pipeline"
)

var (
	outputDir = flag.String("output_dir", "./data", "directory holding the .osrm/.restrictions files, and to write the compressed graph into")
)

func main() {
	flag.Parse()
	base := flag.Arg(0)
	if base == "" {
		log.Fatal("graphcompress: file-stem argument is required, e.g. graphcompress -output_dir=./data jakarta")
	}

	zapLogger, err := logger.New()
	if err != nil {
		panic(err)
	}

	if err := pipeline.CompressStage(*outputDir, base, zapLogger); err != nil {
		zapLogger.Sugar().Fatalw("graph compression failed", "err", err)
	}
}
