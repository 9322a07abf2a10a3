package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/solivaga/ytfetch/internal/downloader"
	"github.com/solivaga/ytfetch/internal/metadata"
	"github.com/solivaga/ytfetch/internal/resolver"
	"github.com/solivaga/ytfetch/internal/transcript"
)

type fakeSearcher struct {
	result resolver.Result
	calls  int
}

func (f *fakeSearcher) Resolve(context.Context, string) resolver.Result {
	f.calls++
	return f.result
}

type fakeMetadata struct {
	record metadata.Record
}

func (f *fakeMetadata) Fetch(context.Context, string) metadata.Record {
	return f.record
}

type fakeTranscripts struct {
	text transcript.Transcript
	err  error
}

func (f *fakeTranscripts) FetchEnglish(_ context.Context, videoID string) (transcript.Transcript, error) {
	f.text.VideoID = videoID
	return f.text, f.err
}

type fakeDownloader struct {
	outcome downloader.Outcome
	last    downloader.Task
	calls   int
}

func (f *fakeDownloader) Run(_ context.Context, task downloader.Task) downloader.Outcome {
	f.calls++
	f.last = task
	return f.outcome
}

type fakeProbe struct {
	corrupted   bool
	duration    float64
	durationErr error
}

func (f *fakeProbe) IsCorrupted(string) bool { return f.corrupted }

func (f *fakeProbe) Duration(string) (float64, error) { return f.duration, f.durationErr }

func newTestRunner() (*Runner, *fakeSearcher, *fakeDownloader) {
	searcher := &fakeSearcher{result: resolver.Found("https://youtu.be/dQw4w9WgXcQ")}
	downloads := &fakeDownloader{outcome: downloader.Outcome{Path: "/media/clip.mp3"}}
	runner := &Runner{
		Searcher:    searcher,
		Metadata:    &fakeMetadata{record: metadata.Record{"title": "Some Song", "author_name": "Some Artist"}},
		Transcripts: &fakeTranscripts{text: transcript.Transcript{Text: "hello there"}},
		Downloads:   downloads,
		Probe:       &fakeProbe{duration: 212.09},
	}
	return runner, searcher, downloads
}

func TestRunWithWatchURLSkipsSearch(t *testing.T) {
	runner, searcher, downloads := newTestRunner()

	report := runner.Run(context.Background(), Request{
		Input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Dir:   "/media",
		Mode:  downloader.ModeAudio,
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if searcher.calls != 0 {
		t.Fatalf("search invoked %d times for a direct url", searcher.calls)
	}
	if report.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("video id = %q", report.VideoID)
	}
	if report.URL != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("url = %q", report.URL)
	}
	if downloads.last.URL != report.URL {
		t.Fatalf("download url = %q", downloads.last.URL)
	}
	if report.DurationSeconds != 212.09 {
		t.Fatalf("duration = %v", report.DurationSeconds)
	}
}

func TestRunResolvesQueryThroughSearch(t *testing.T) {
	runner, searcher, _ := newTestRunner()

	report := runner.Run(context.Background(), Request{
		Input: "rick astley never gonna give you up",
		Dir:   "/media",
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if searcher.calls != 1 {
		t.Fatalf("search invoked %d times, want 1", searcher.calls)
	}
	if report.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("video id = %q", report.VideoID)
	}
}

func TestRunQueryWithoutMatch(t *testing.T) {
	runner, searcher, downloads := newTestRunner()
	searcher.result = resolver.NotFound()

	report := runner.Run(context.Background(), Request{Input: "xzqj no such video", Dir: "/media"})
	if !errors.Is(report.Err, ErrNoMatch) {
		t.Fatalf("err = %v, want ErrNoMatch", report.Err)
	}
	if downloads.calls != 0 {
		t.Fatalf("download attempted after failed resolution")
	}
}

func TestRunQueryResolutionFailure(t *testing.T) {
	runner, searcher, _ := newTestRunner()
	searcher.result = resolver.Failed(errors.New("quota exceeded"))

	report := runner.Run(context.Background(), Request{Input: "anything", Dir: "/media"})
	if report.Err == nil || !strings.Contains(report.Err.Error(), "quota exceeded") {
		t.Fatalf("err = %v, want wrapped resolution failure", report.Err)
	}
}

func TestRunDefaultsNameToTitle(t *testing.T) {
	runner, _, downloads := newTestRunner()

	report := runner.Run(context.Background(), Request{
		Input: "https://youtu.be/dQw4w9WgXcQ",
		Dir:   "/media",
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if downloads.last.Name != "Some Song" {
		t.Fatalf("task name = %q, want metadata title", downloads.last.Name)
	}
}

func TestRunFallsBackToVideoIDName(t *testing.T) {
	runner, _, downloads := newTestRunner()
	runner.Metadata = &fakeMetadata{record: metadata.Record{}}

	report := runner.Run(context.Background(), Request{
		Input: "https://youtu.be/dQw4w9WgXcQ",
		Dir:   "/media",
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if downloads.last.Name != "dQw4w9WgXcQ" {
		t.Fatalf("task name = %q, want video id", downloads.last.Name)
	}
}

func TestRunFlagsCorruptedDownload(t *testing.T) {
	runner, _, _ := newTestRunner()
	runner.Probe = &fakeProbe{corrupted: true}

	report := runner.Run(context.Background(), Request{
		Input: "https://youtu.be/dQw4w9WgXcQ",
		Dir:   "/media",
	})
	if report.Err == nil {
		t.Fatal("expected integrity failure")
	}
	if !report.Corrupted {
		t.Fatal("report not marked corrupted")
	}
	if report.File == "" {
		t.Fatal("file path should survive integrity failure")
	}
}

func TestRunIncludesTranscript(t *testing.T) {
	runner, _, _ := newTestRunner()

	report := runner.Run(context.Background(), Request{
		Input:          "https://youtu.be/dQw4w9WgXcQ",
		Dir:            "/media",
		WithTranscript: true,
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if report.Transcript != "hello there" {
		t.Fatalf("transcript = %q", report.Transcript)
	}
}

func TestRunDisabledTranscriptSentinel(t *testing.T) {
	runner, _, _ := newTestRunner()
	runner.Transcripts = &fakeTranscripts{text: transcript.Transcript{Disabled: true}}

	report := runner.Run(context.Background(), Request{
		Input:          "https://youtu.be/dQw4w9WgXcQ",
		Dir:            "/media",
		WithTranscript: true,
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	want := "Transcripts are disabled for video ID dQw4w9WgXcQ"
	if report.Transcript != want {
		t.Fatalf("transcript = %q, want %q", report.Transcript, want)
	}
}

func TestRunSkipDownload(t *testing.T) {
	runner, _, downloads := newTestRunner()

	report := runner.Run(context.Background(), Request{
		Input:        "https://youtu.be/dQw4w9WgXcQ",
		SkipDownload: true,
	})
	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if downloads.calls != 0 {
		t.Fatalf("download invoked despite SkipDownload")
	}
	if report.Title != "Some Song" {
		t.Fatalf("title = %q", report.Title)
	}
}

func TestRunBatchCoversAllInputs(t *testing.T) {
	runner, _, _ := newTestRunner()

	inputs := []string{
		"https://youtu.be/aaaaaaaaaaa",
		"https://youtu.be/bbbbbbbbbbb",
		"https://youtu.be/ccccccccccc",
	}
	reports := runner.RunBatch(context.Background(), inputs, Request{Dir: "/media"}, 2)
	if len(reports) != len(inputs) {
		t.Fatalf("got %d reports, want %d", len(reports), len(inputs))
	}

	got := make([]string, 0, len(reports))
	for _, report := range reports {
		if report.Err != nil {
			t.Fatalf("run for %q failed: %v", report.Input, report.Err)
		}
		got = append(got, report.Input)
	}
	sort.Strings(got)
	want := append([]string(nil), inputs...)
	sort.Strings(want)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reports cover %v, want %v", got, want)
		}
	}
}
