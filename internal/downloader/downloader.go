// Package downloader stages media retrieval through a scratch
// directory and promotes finished artifacts atomically.
//
// Every fetch lands in <dir>/.tmp/ first. The final file appears in
// <dir> only through an os.Rename from staging, so a crash or failed
// transfer never leaves a partial file where callers look for
// complete ones.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
)

// StagingDirName is the scratch directory created under each
// destination. Stale entries in it are left in place for inspection.
const StagingDirName = ".tmp"

var (
	ErrMissingName    = errors.New("download name must not be empty")
	ErrMissingDestDir = errors.New("destination directory does not exist")
)

// Task describes one download request.
type Task struct {
	// Dir is the destination directory. It must already exist.
	Dir string
	// Name is the base name for the final file, without extension.
	Name string
	// URL is the source watch URL.
	URL  string
	Mode Mode
}

// Outcome reports how a task ended. Path is set only when the final
// artifact was promoted into place; Err carries the reason otherwise.
type Outcome struct {
	Path string
	Err  error
}

func (o Outcome) OK() bool { return o.Err == nil && o.Path != "" }

// Orchestrator runs download tasks through a single engine.
type Orchestrator struct {
	Engine Engine
}

func New(engine Engine) *Orchestrator {
	return &Orchestrator{Engine: engine}
}

// Run executes a task. Failures are logged and folded into the
// Outcome; Run itself never panics and never leaves a partial file in
// the destination directory.
func (o *Orchestrator) Run(ctx context.Context, task Task) Outcome {
	outcome := o.run(ctx, task)
	if outcome.Err != nil {
		slog.Error("download failed",
			"name", task.Name,
			"url", task.URL,
			"mode", task.Mode.String(),
			"error", outcome.Err)
	} else {
		slog.Info("download complete",
			"name", task.Name,
			"path", outcome.Path,
			"engine", o.Engine.Name())
	}
	return outcome
}

func (o *Orchestrator) run(ctx context.Context, task Task) Outcome {
	name := sanitizeName(task.Name)
	if name == "" {
		return Outcome{Err: ErrMissingName}
	}
	if err := validateSourceURL(task.URL); err != nil {
		return Outcome{Err: err}
	}
	info, err := os.Stat(task.Dir)
	if err != nil || !info.IsDir() {
		return Outcome{Err: fmt.Errorf("%w: %s", ErrMissingDestDir, task.Dir)}
	}

	staging := filepath.Join(task.Dir, StagingDirName)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return Outcome{Err: fmt.Errorf("creating staging dir: %w", err)}
	}

	slog.Info("downloading stream",
		"name", name,
		"url", task.URL,
		"mode", task.Mode.String(),
		"engine", o.Engine.Name())

	staged, err := o.Engine.Fetch(ctx, task.URL, staging, name, task.Mode)
	if err != nil {
		return Outcome{Err: fmt.Errorf("engine %s: %w", o.Engine.Name(), err)}
	}

	final := filepath.Join(task.Dir, name+filepath.Ext(staged))
	if err := os.Rename(staged, final); err != nil {
		return Outcome{Err: fmt.Errorf("promoting %s: %w", filepath.Base(staged), err)}
	}
	return Outcome{Path: final}
}

func validateSourceURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid source url %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid source url %q: scheme must be http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid source url %q: missing host", raw)
	}
	return nil
}
