// Package config reads the preprocessing run configuration from a viper
// config file and validates it with go-playground/validator struct tags.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the run configuration for the extraction/compression/
// edge-expansion pipeline.
type Config struct {
	InputPath              string  `mapstructure:"input_path" validate:"required"`
	ProfilePath            string  `mapstructure:"profile_path"`
	OutputDir              string  `mapstructure:"output_dir" validate:"required"`
	Threads                int     `mapstructure:"threads" validate:"min=1"`
	GenerateEdgeLookup     bool    `mapstructure:"generate_edge_lookup"`
	SegmentSpeedCSV        string  `mapstructure:"segment_speed_csv"`
	ExternalSortThreshold  int     `mapstructure:"external_sort_threshold" validate:"min=1"`
	RtreeLeafBoxRadiusKM   float64 `mapstructure:"rtree_leaf_box_radius_km" validate:"min=0"`
	CompressedComponentMax int     `mapstructure:"tiny_component_max" validate:"min=1"`
}

// Default returns the configuration the CLI falls back to when no flag or
// config file overrides a field.
func Default() Config {
	return Config{
		Threads:                4,
		ExternalSortThreshold:  2_000_000,
		RtreeLeafBoxRadiusKM:   0.05,
		CompressedComponentMax: 1000,
	}
}

// Load reads config.{yaml,json,toml,...} from configDir, merges it onto
// Default(), and validates the result.
func Load(configDir string) (Config, error) {
	cfg := Default()

	viper.SetConfigName("config")
	viper.AddConfigPath(configDir)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("fatal error config file: %w", err)
		}
	} else if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("fatal error decoding config file: %w", err)
	}

	return cfg, Validate(cfg)
}

var validate = validator.New()

func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
