package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/solivaga/ytfetch/internal/app"
	"github.com/solivaga/ytfetch/internal/downloader"
	"github.com/solivaga/ytfetch/internal/metadata"
	"github.com/solivaga/ytfetch/internal/probe"
	"github.com/solivaga/ytfetch/internal/resolver"
	"github.com/solivaga/ytfetch/internal/transcript"
)

const apiKeyEnv = "YOUTUBE_API_KEY"

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "search":
		err = cmdSearch(args)
	case "meta":
		err = cmdMeta(args)
	case "transcript":
		err = cmdTranscript(args)
	case "download":
		err = cmdDownload(args)
	case "verify":
		err = cmdVerify(args)
	case "duration":
		err = cmdDuration(args)
	case "run":
		err = cmdRun(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s <command> [options] <args>

commands:
  search      resolve a free-text query to a watch URL
  meta        print oembed metadata for a video
  transcript  print the English transcript for a video
  download    download audio or video to a directory
  verify      check a downloaded file for corruption
  duration    print a media file's duration in seconds
  run         full pipeline: resolve, describe, download, verify

run "%s <command> -h" for command options.
`, os.Args[0], os.Args[0])
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	logLevel string
	jsonOut  bool
}

func registerCommon(fs *flag.FlagSet) *commonFlags {
	common := &commonFlags{}
	fs.StringVar(&common.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.BoolVar(&common.jsonOut, "json", false, "emit JSON instead of styled text")
	return common
}

func (c *commonFlags) apply() {
	level := slog.LevelWarn
	switch strings.ToLower(c.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	common := registerCommon(fs)
	all := fs.Bool("all", false, "print every candidate instead of the top match")
	_ = fs.Parse(args)
	common.apply()

	query := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("search needs a query")
	}

	ctx := context.Background()
	if *all {
		candidates := resolver.NewScrapeSearch().URLs(ctx, query)
		if len(candidates) == 0 {
			return fmt.Errorf("no results for %q", query)
		}
		if common.jsonOut {
			return printJSON(map[string]any{"query": query, "urls": candidates})
		}
		for _, url := range candidates {
			fmt.Println(url)
		}
		return nil
	}

	result := newSearcher().Resolve(ctx, query)
	switch result.State {
	case resolver.StateFound:
		if common.jsonOut {
			return printJSON(map[string]any{"query": query, "url": result.URL})
		}
		fmt.Println(result.URL)
		return nil
	case resolver.StateFailed:
		return fmt.Errorf("resolving %q: %w", query, result.Err)
	default:
		return fmt.Errorf("no results for %q", query)
	}
}

func cmdMeta(args []string) error {
	fs := flag.NewFlagSet("meta", flag.ExitOnError)
	common := registerCommon(fs)
	_ = fs.Parse(args)
	common.apply()

	videoID, err := videoIDFromArg(fs.Args())
	if err != nil {
		return err
	}

	record := metadata.NewFetcher().Fetch(context.Background(), videoID)
	if common.jsonOut {
		return printJSON(record)
	}
	if len(record) == 0 {
		fmt.Println("no metadata available")
		return nil
	}
	printField("title", record.Title())
	printField("author", record.AuthorName())
	printField("thumbnail", record.ThumbnailURL())
	return nil
}

func cmdTranscript(args []string) error {
	fs := flag.NewFlagSet("transcript", flag.ExitOnError)
	common := registerCommon(fs)
	_ = fs.Parse(args)
	common.apply()

	videoID, err := videoIDFromArg(fs.Args())
	if err != nil {
		return err
	}

	text, err := transcript.NewFetcher().FetchEnglish(context.Background(), videoID)
	if err != nil {
		return err
	}
	if common.jsonOut {
		return printJSON(map[string]any{
			"video_id":   text.VideoID,
			"disabled":   text.Disabled,
			"transcript": text.String(),
		})
	}
	fmt.Println(text.String())
	return nil
}

func cmdDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	common := registerCommon(fs)
	audio := fs.Bool("audio", false, "download best audio as mp3 instead of video")
	dir := fs.String("o", ".", "destination directory (must exist)")
	name := fs.String("name", "", "base file name (default: video title)")
	engineName := fs.String("engine", "auto", "download engine: auto, yt-dlp, native")
	timeout := fs.Duration("timeout", 3*time.Minute, "per-request timeout for the native engine")
	_ = fs.Parse(args)
	common.apply()

	if fs.NArg() != 1 {
		return fmt.Errorf("download needs exactly one URL or query")
	}

	runner, err := newRunner(*engineName, *timeout)
	if err != nil {
		return err
	}
	report := runner.Run(context.Background(), app.Request{
		Input: fs.Arg(0),
		Dir:   *dir,
		Name:  *name,
		Mode:  modeFor(*audio),
	})
	return printReport(report, common.jsonOut)
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	common := registerCommon(fs)
	_ = fs.Parse(args)
	common.apply()

	if fs.NArg() != 1 {
		return fmt.Errorf("verify needs exactly one file path")
	}
	path := fs.Arg(0)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	corrupted := probe.IsCorrupted(path)
	if common.jsonOut {
		return printJSON(map[string]any{"file": path, "corrupted": corrupted})
	}
	if corrupted {
		fmt.Println(errStyle.Render("corrupted"))
		os.Exit(1)
	}
	fmt.Println(okStyle.Render("ok"))
	return nil
}

func cmdDuration(args []string) error {
	fs := flag.NewFlagSet("duration", flag.ExitOnError)
	common := registerCommon(fs)
	_ = fs.Parse(args)
	common.apply()

	if fs.NArg() != 1 {
		return fmt.Errorf("duration needs exactly one file path")
	}
	seconds, err := probe.Duration(fs.Arg(0))
	if err != nil {
		return err
	}
	if common.jsonOut {
		return printJSON(map[string]any{"file": fs.Arg(0), "duration_seconds": seconds})
	}
	fmt.Printf("%.3f\n", seconds)
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := registerCommon(fs)
	audio := fs.Bool("audio", false, "download best audio as mp3 instead of video")
	dir := fs.String("o", ".", "destination directory (must exist)")
	withTranscript := fs.Bool("transcript", false, "also fetch the English transcript")
	engineName := fs.String("engine", "auto", "download engine: auto, yt-dlp, native")
	timeout := fs.Duration("timeout", 3*time.Minute, "per-request timeout for the native engine")
	jobs := fs.Int("jobs", 1, "number of concurrent pipeline runs")
	_ = fs.Parse(args)
	common.apply()

	if fs.NArg() == 0 {
		return fmt.Errorf("run needs at least one URL or query")
	}

	runner, err := newRunner(*engineName, *timeout)
	if err != nil {
		return err
	}
	base := app.Request{
		Dir:            *dir,
		Mode:           modeFor(*audio),
		WithTranscript: *withTranscript,
	}

	reports := runner.RunBatch(context.Background(), fs.Args(), base, *jobs)
	failures := 0
	for _, report := range reports {
		if err := printReport(report, common.jsonOut); err != nil {
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d runs failed", failures, len(reports))
	}
	return nil
}

func newRunner(engineName string, timeout time.Duration) (*app.Runner, error) {
	engine, err := selectEngine(engineName, timeout)
	if err != nil {
		return nil, err
	}
	return &app.Runner{
		Searcher:    newSearcher(),
		Metadata:    metadata.NewFetcher(),
		Transcripts: transcript.NewFetcher(),
		Downloads:   downloader.New(engine),
		Probe:       mediaProbe{},
	}, nil
}

func selectEngine(name string, timeout time.Duration) (downloader.Engine, error) {
	switch name {
	case "yt-dlp":
		engine := downloader.NewYtdlpEngine()
		if !engine.Available() {
			return nil, fmt.Errorf("yt-dlp binary not found on PATH")
		}
		return engine, nil
	case "native":
		return downloader.NewNativeEngine(timeout), nil
	case "auto", "":
		if engine := downloader.NewYtdlpEngine(); engine.Available() {
			return engine, nil
		}
		slog.Info("yt-dlp not found, using native engine")
		return downloader.NewNativeEngine(timeout), nil
	}
	return nil, fmt.Errorf("unknown engine %q (expected auto, yt-dlp or native)", name)
}

// newSearcher prefers the Data API when a key is configured and falls
// back to result-page scraping otherwise.
func newSearcher() resolver.Searcher {
	if key := os.Getenv(apiKeyEnv); key != "" {
		return resolver.NewAPISearch(key)
	}
	return resolver.NewScrapeSearch()
}

type mediaProbe struct{}

func (mediaProbe) IsCorrupted(path string) bool { return probe.IsCorrupted(path) }

func (mediaProbe) Duration(path string) (float64, error) { return probe.Duration(path) }

func modeFor(audio bool) downloader.Mode {
	if audio {
		return downloader.ModeAudio
	}
	return downloader.ModeVideo
}

var bareVideoID = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

// videoIDFromArg accepts either a watch URL or a bare 11-char ID.
func videoIDFromArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one URL or video ID")
	}
	arg := strings.TrimSpace(args[0])
	if bareVideoID.MatchString(arg) {
		return arg, nil
	}
	return resolver.ExtractVideoID(arg)
}

func printReport(report app.Report, jsonOut bool) error {
	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
		return report.Err
	}
	if report.Err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("failed: ")+report.Input+": "+report.Error)
		return report.Err
	}
	printField("input", report.Input)
	printField("url", report.URL)
	printField("title", report.Title)
	printField("author", report.Author)
	printField("file", report.File)
	if report.File != "" {
		printField("duration", fmt.Sprintf("%.3fs", report.DurationSeconds))
	}
	if report.Transcript != "" {
		printField("transcript", report.Transcript)
	}
	fmt.Println(okStyle.Render("ok"))
	return nil
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Println(labelStyle.Render(label+":") + " " + value)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
