// Package logger constructs the *zap.Logger every stage of the pipeline
// threads through its long-running loops, following the cmd/*/main.go
// convention of calling logger.New() once at process start.
package logger

import "go.uber.org/zap"

// New builds a production zap logger (JSON, info level and above) with
// caller information, the verbosity the every-N-elements progress logs
// expect.
func New() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// NewDevelopment builds a human-readable logger for local runs and tests.
func NewDevelopment() (*zap.Logger, error) {
	return zap.NewDevelopment()
}
