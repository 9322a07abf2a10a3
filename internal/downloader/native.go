package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kkdai/youtube/v2"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/solivaga/ytfetch/internal/httpclient"
)

// NativeEngine pulls streams in-process through the youtube client
// and transcodes audio with ffmpeg. It needs no yt-dlp binary but is
// more fragile against player changes than YtdlpEngine.
type NativeEngine struct {
	Timeout time.Duration
}

func NewNativeEngine(timeout time.Duration) *NativeEngine {
	return &NativeEngine{Timeout: timeout}
}

func (e *NativeEngine) Name() string { return "native" }

// The youtube package selects its innertube client through a package
// global. Guard the write so concurrent fetches do not race on it.
var androidClientOnce sync.Once

func useAndroidClient() {
	androidClientOnce.Do(func() {
		youtube.DefaultClient = youtube.AndroidClient
	})
}

func (e *NativeEngine) Fetch(ctx context.Context, src, stagingDir, name string, mode Mode) (string, error) {
	useAndroidClient()
	client := &youtube.Client{HTTPClient: httpclient.New(e.timeout())}

	video, err := client.GetVideoContext(ctx, src)
	if err != nil {
		return "", fmt.Errorf("fetching video info: %w", err)
	}

	format, err := pickFormat(video, mode)
	if err != nil {
		return "", err
	}
	slog.Debug("selected stream format",
		"itag", format.ItagNo,
		"mime", format.MimeType,
		"quality", format.QualityLabel)

	rawPath := filepath.Join(stagingDir, name+"."+mimeToExt(format.MimeType))
	if err := e.pullStream(ctx, client, video, format, rawPath); err != nil {
		return "", err
	}

	if mode != ModeAudio {
		return rawPath, nil
	}

	mp3Path := filepath.Join(stagingDir, name+".mp3")
	if err := transcodeToMP3(rawPath, mp3Path); err != nil {
		return "", fmt.Errorf("transcoding to mp3: %w", err)
	}
	if err := os.Remove(rawPath); err != nil {
		slog.Warn("removing raw audio stream", "path", rawPath, "error", err)
	}
	return mp3Path, nil
}

func (e *NativeEngine) pullStream(ctx context.Context, client *youtube.Client, video *youtube.Video, format *youtube.Format, path string) error {
	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		return fmt.Errorf("writing stream: %w", err)
	}
	return nil
}

func (e *NativeEngine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return httpclient.DefaultTimeout
}

// transcodeToMP3 re-encodes the staged stream with the highest
// variable bitrate libmp3lame offers.
func transcodeToMP3(inputPath, outputPath string) error {
	return ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{
			"vn":     "",
			"acodec": "libmp3lame",
			"q:a":    "0",
		}).
		OverWriteOutput().
		Silent(true).
		Run()
}
