package config

import "testing"

func TestValidateRejectsMissingPaths(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err == nil {
		t.Fatalf("a config without input/output paths must not validate")
	}

	cfg.InputPath = "/maps/jakarta.osm.pbf"
	cfg.OutputDir = "/out"
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	cfg := Default()
	cfg.InputPath = "/maps/jakarta.osm.pbf"
	cfg.OutputDir = "/out"
	cfg.Threads = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("zero threads must not validate")
	}

	cfg = Default()
	cfg.InputPath = "/maps/jakarta.osm.pbf"
	cfg.OutputDir = "/out"
	cfg.ExternalSortThreshold = -1
	if err := Validate(cfg); err == nil {
		t.Fatalf("negative external sort threshold must not validate")
	}
}
