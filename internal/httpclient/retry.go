package httpclient

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

const (
	defaultMaxRetries = 3
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
)

// retryTransport wraps an http.RoundTripper and retries transient
// failures with exponential backoff and jitter. Delay bounds are
// package constants; only the attempt budget varies per client.
type retryTransport struct {
	base         http.RoundTripper
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

func newRetryTransport(base http.RoundTripper, maxRetries int) *retryTransport {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &retryTransport{
		base:         base,
		maxRetries:   maxRetries,
		initialDelay: initialRetryDelay,
		maxDelay:     maxRetryDelay,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(req.Context(), t.backoffDelay(attempt)); err != nil {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				return nil, err
			}
		}

		// A consumed body cannot be replayed; retries need a fresh copy.
		cloned := req
		if attempt > 0 {
			var err error
			cloned, err = cloneRequest(req)
			if err != nil {
				if lastResp != nil {
					return lastResp, nil
				}
				return nil, lastErr
			}
		}

		resp, err := t.base.RoundTrip(cloned)
		if err != nil {
			if !isRetryableError(err) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Close the previous body before retrying to free the connection.
		if lastResp != nil {
			lastResp.Body.Close()
		}
		lastResp = resp
		lastErr = nil
	}

	// Exhausted retries. Hand back whatever the last attempt produced.
	if lastResp != nil {
		return lastResp, nil
	}
	return nil, lastErr
}

// backoffDelay doubles per attempt up to maxDelay, with ±25% jitter.
func (t *retryTransport) backoffDelay(attempt int) time.Duration {
	base := float64(t.initialDelay) * math.Pow(2, float64(attempt-1))
	if base > float64(t.maxDelay) {
		base = float64(t.maxDelay)
	}
	jitter := base * 0.25 * (rand.Float64()*2 - 1) //nolint:gosec
	return time.Duration(base + jitter)
}

// isRetryableStatus reports whether the status indicates a transient
// server-side condition worth another attempt.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// isRetryableError reports whether a transport error is typically
// transient: timeouts and connection-level failures.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

// sleepWithContext waits for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
