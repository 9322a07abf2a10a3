// Package app wires resolution, metadata, transcript, download and
// verification into one pipeline run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/solivaga/ytfetch/internal/downloader"
	"github.com/solivaga/ytfetch/internal/metadata"
	"github.com/solivaga/ytfetch/internal/resolver"
	"github.com/solivaga/ytfetch/internal/transcript"
)

var ErrNoMatch = errors.New("no video matched the query")

// MetadataFetcher yields a descriptive record for a video ID.
type MetadataFetcher interface {
	Fetch(ctx context.Context, videoID string) metadata.Record
}

// TranscriptFetcher yields the English transcript for a video ID.
type TranscriptFetcher interface {
	FetchEnglish(ctx context.Context, videoID string) (transcript.Transcript, error)
}

// Downloader executes a staged download task.
type Downloader interface {
	Run(ctx context.Context, task downloader.Task) downloader.Outcome
}

// Prober inspects a finished media file.
type Prober interface {
	IsCorrupted(path string) bool
	Duration(path string) (float64, error)
}

// Request describes one pipeline invocation. Input is either a watch
// URL or a free-text search query.
type Request struct {
	Input          string
	Dir            string
	Name           string
	Mode           downloader.Mode
	WithTranscript bool
	SkipDownload   bool
}

// Report collects everything a run produced. Err is set when the run
// stopped early; fields filled before the failure remain valid.
type Report struct {
	Input           string  `json:"input"`
	VideoID         string  `json:"video_id,omitempty"`
	URL             string  `json:"url,omitempty"`
	Title           string  `json:"title,omitempty"`
	Author          string  `json:"author,omitempty"`
	Transcript      string  `json:"transcript,omitempty"`
	File            string  `json:"file,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Corrupted       bool    `json:"corrupted,omitempty"`
	Err             error   `json:"-"`
	Error           string  `json:"error,omitempty"`
}

// Runner holds the pipeline stages. Zero-value fields are not usable;
// construct through NewRunner or fill every field in tests.
type Runner struct {
	Searcher    resolver.Searcher
	Metadata    MetadataFetcher
	Transcripts TranscriptFetcher
	Downloads   Downloader
	Probe       Prober
}

// Run drives the pipeline for a single input.
func (r *Runner) Run(ctx context.Context, req Request) Report {
	report := Report{Input: req.Input}

	videoID, url, err := r.resolve(ctx, req.Input)
	if err != nil {
		return report.fail(err)
	}
	report.VideoID = videoID
	report.URL = url

	record := r.Metadata.Fetch(ctx, videoID)
	report.Title = record.Title()
	report.Author = record.AuthorName()

	if req.WithTranscript {
		text, err := r.Transcripts.FetchEnglish(ctx, videoID)
		if err != nil {
			return report.fail(fmt.Errorf("fetching transcript: %w", err))
		}
		report.Transcript = text.String()
	}

	if req.SkipDownload {
		return report
	}

	name := req.Name
	if name == "" {
		name = record.Title()
	}
	if name == "" {
		name = videoID
	}
	outcome := r.Downloads.Run(ctx, downloader.Task{
		Dir:  req.Dir,
		Name: name,
		URL:  url,
		Mode: req.Mode,
	})
	if outcome.Err != nil {
		return report.fail(outcome.Err)
	}
	report.File = outcome.Path

	if r.Probe.IsCorrupted(outcome.Path) {
		report.Corrupted = true
		return report.fail(fmt.Errorf("downloaded file %s failed integrity check", outcome.Path))
	}
	duration, err := r.Probe.Duration(outcome.Path)
	if err != nil {
		return report.fail(fmt.Errorf("probing duration: %w", err))
	}
	report.DurationSeconds = duration

	if req.Mode == downloader.ModeAudio {
		if err := downloader.EmbedAudioTags(outcome.Path, record.Title(), record.AuthorName()); err != nil {
			slog.Warn("embedding audio tags", "file", outcome.Path, "error", err)
		}
	}

	return report
}

// resolve turns the input into a video ID and canonical short URL.
// URLs are parsed directly; anything else goes through search.
func (r *Runner) resolve(ctx context.Context, input string) (videoID, url string, err error) {
	if id, err := resolver.ExtractVideoID(input); err == nil {
		return id, resolver.ShortURLForID(id), nil
	}

	result := r.Searcher.Resolve(ctx, input)
	switch result.State {
	case resolver.StateFound:
		id, err := resolver.ExtractVideoID(result.URL)
		if err != nil {
			return "", "", fmt.Errorf("search returned unusable url %q: %w", result.URL, err)
		}
		return id, result.URL, nil
	case resolver.StateFailed:
		return "", "", fmt.Errorf("resolving %q: %w", input, result.Err)
	default:
		return "", "", fmt.Errorf("%w: %q", ErrNoMatch, input)
	}
}

func (r Report) fail(err error) Report {
	r.Err = err
	r.Error = err.Error()
	return r
}

// RunBatch fans inputs out over a fixed worker pool. Results keep no
// particular order; callers match them up through Report.Input.
func (r *Runner) RunBatch(ctx context.Context, inputs []string, base Request, jobs int) []Report {
	if jobs < 1 {
		jobs = 1
	}

	tasks := make(chan string)
	results := make(chan Report, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case input, ok := <-tasks:
					if !ok {
						return
					}
					req := base
					req.Input = input
					report := r.Run(ctx, req)
					select {
					case results <- report:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	submitted := 0
	for _, input := range inputs {
		select {
		case <-ctx.Done():
		case tasks <- input:
			submitted++
			continue
		}
		break
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(results)
	}()

	output := make([]Report, 0, submitted)
	for report := range results {
		if report.Err != nil {
			slog.Warn("pipeline run failed", "input", report.Input, "error", report.Err)
		}
		output = append(output, report)
	}
	return output
}
