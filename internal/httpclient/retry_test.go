package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// fastRetryTransport shrinks the backoff bounds so tests do not sleep.
func fastRetryTransport(base http.RoundTripper, maxRetries int) *retryTransport {
	transport := newRetryTransport(base, maxRetries)
	transport.initialDelay = time.Millisecond
	transport.maxDelay = 10 * time.Millisecond
	return transport
}

func TestRetryTransport_NoRetryOnSuccess(t *testing.T) {
	var calls int32
	transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), 3)

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Fatalf("expected 1 call, got %d", c)
	}
}

func TestRetryTransport_RetriesOn5xx(t *testing.T) {
	var calls int32
	transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			return &http.Response{StatusCode: 502, Body: http.NoBody}, nil
		}
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), 3)

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 3 {
		t.Fatalf("expected 3 calls, got %d", c)
	}
}

func TestRetryTransport_NoRetryOn4xx(t *testing.T) {
	for _, code := range []int{400, 403, 404} {
		var calls int32
		transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return &http.Response{StatusCode: code, Body: http.NoBody}, nil
		}), 3)

		req, _ := http.NewRequest("GET", "https://example.com", nil)
		resp, err := transport.RoundTrip(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != code {
			t.Fatalf("expected %d, got %d", code, resp.StatusCode)
		}
		if c := atomic.LoadInt32(&calls); c != 1 {
			t.Fatalf("expected 1 call for %d, got %d", code, c)
		}
	}
}

func TestRetryTransport_BoundedAttempts(t *testing.T) {
	var calls int32
	transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{StatusCode: 503, Body: http.NoBody}, nil
	}), 5)

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("expected last response after exhaustion, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 6 { // 1 initial + 5 retries
		t.Fatalf("expected 6 calls, got %d", c)
	}
}

func TestRetryTransport_DefaultBudget(t *testing.T) {
	transport := newRetryTransport(http.DefaultTransport, 0)
	if transport.maxRetries != defaultMaxRetries {
		t.Fatalf("maxRetries = %d, want %d", transport.maxRetries, defaultMaxRetries)
	}
	if transport.initialDelay != initialRetryDelay || transport.maxDelay != maxRetryDelay {
		t.Fatalf("delays = %v/%v, want %v/%v",
			transport.initialDelay, transport.maxDelay, initialRetryDelay, maxRetryDelay)
	}
}

func TestRetryTransport_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			cancel()
			return &http.Response{StatusCode: 502, Body: http.NoBody}, nil
		}
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), 3)

	req, _ := http.NewRequestWithContext(ctx, "GET", "https://example.com", nil)
	if _, err := transport.RoundTrip(req); err == nil {
		t.Fatal("expected context cancellation error")
	}
	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", c)
	}
}

func TestRetryTransport_RetriesOnTimeout(t *testing.T) {
	var calls int32
	transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return nil, &net.OpError{Op: "dial", Err: &timeoutError{}}
		}
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), 3)

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 2 {
		t.Fatalf("expected 2 calls, got %d", c)
	}
}

func TestRetryTransport_RetriesWithBody(t *testing.T) {
	var calls int32
	transport := fastRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if req.Body != nil {
			body, _ := io.ReadAll(req.Body)
			if string(body) != "test-body" {
				t.Fatalf("attempt %d: unexpected body: %q", n, body)
			}
		}
		if n == 1 {
			return &http.Response{StatusCode: 500, Body: http.NoBody}, nil
		}
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), 3)

	body := "test-body"
	req, _ := http.NewRequest("POST", "https://example.com", strings.NewReader(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 2 {
		t.Fatalf("expected 2 calls, got %d", c)
	}
}
