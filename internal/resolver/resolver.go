// Package resolver turns free-text queries and page URLs into canonical
// playback URLs.
//
// Two independent strategies exist: APISearch drives the YouTube Data
// API with a developer key and yields at most one result; ScrapeSearch
// mimics a browser against the internal search endpoint and yields a
// ranked candidate list without any credential. Callers pick one based
// on whether they hold an API key.
package resolver

import "context"

// State classifies the outcome of a resolution attempt.
type State int

const (
	// StateFound means a playable URL was resolved.
	StateFound State = iota
	// StateNotFound means the search completed but matched nothing.
	StateNotFound
	// StateFailed means the search itself could not be carried out.
	StateFailed
)

// Result is the outcome of one resolution call. URL is empty unless
// State is StateFound, so code that only checks the URL keeps working;
// Err is set only for StateFailed.
type Result struct {
	State State
	URL   string
	Err   error
}

// Found wraps a resolved playback URL.
func Found(url string) Result {
	return Result{State: StateFound, URL: url}
}

// NotFound reports a search that completed with no results.
func NotFound() Result {
	return Result{State: StateNotFound}
}

// Failed reports a search that could not be carried out.
func Failed(err error) Result {
	return Result{State: StateFailed, Err: err}
}

// Searcher resolves a free-text query into at most one playback URL.
// Both search strategies implement it.
type Searcher interface {
	Resolve(ctx context.Context, query string) Result
}
