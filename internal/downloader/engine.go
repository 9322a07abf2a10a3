package downloader

import "context"

// Mode selects which streams an engine pulls.
type Mode int

const (
	// ModeAudio downloads the best audio-only stream and produces an mp3.
	ModeAudio Mode = iota
	// ModeVideo downloads the best audio+video stream, preferring mp4.
	ModeVideo
)

func (m Mode) String() string {
	if m == ModeAudio {
		return "audio"
	}
	return "video"
}

// Ext returns the target container extension for the mode.
func (m Mode) Ext() string {
	if m == ModeAudio {
		return "mp3"
	}
	return "mp4"
}

// Engine pulls a remote stream into the staging directory and returns
// the path of the staged artifact. Engines never write outside
// stagingDir; promotion to the final path is the orchestrator's job.
type Engine interface {
	Name() string
	Fetch(ctx context.Context, url, stagingDir, name string, mode Mode) (string, error)
}
