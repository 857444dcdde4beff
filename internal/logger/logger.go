// Package logger wraps github.com/hashicorp/go-hclog the same way
// turbo's cmd/root.go and run/run.go do, naming sub-loggers after the
// log_target strings used throughout the project graph and action
// pipeline (e.g. "moon:project-graph", "moon:action-pipeline:batch:2:1").
package logger

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the orchestrator-wide logging handle.
type Logger = hclog.Logger

// New constructs the root logger. Level is read from MOON_LOG. Output
// always goes to stderr, and is also appended to MOON_LOG_FILE when that
// is set and can be opened.
func New() Logger {
	level := hclog.LevelFromString(os.Getenv("MOON_LOG"))
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	var writer io.Writer = os.Stderr
	if path := os.Getenv("MOON_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			writer = io.MultiWriter(os.Stderr, f)
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "moon",
		Level:  level,
		Output: writer,
		Color:  hclog.AutoColor,
	})
}

// Named returns a sub-logger scoped to target, mirroring the Rust source's
// Logable/log_target convention (e.g. target = "moon:project-graph").
func Named(parent Logger, target string) Logger {
	return parent.Named(target)
}
