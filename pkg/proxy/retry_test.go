package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func always(error) bool { return true }

func TestRetryConfigFor(t *testing.T) {
	assert.Equal(t, 1, RetryConfigFor(0).MaxAttempts)
	assert.Equal(t, 1, RetryConfigFor(-3).MaxAttempts)
	assert.Equal(t, 4, RetryConfigFor(3).MaxAttempts)
}

func TestRetryWithBackoff(t *testing.T) {
	logger := zerolog.Nop()
	failure := errors.New("connection reset")

	t.Run("succeeds after failures", func(t *testing.T) {
		var calls int
		err := retryWithBackoff(context.Background(), fastRetry(3), logger, always, func() error {
			calls++
			if calls < 3 {
				return failure
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		var calls int
		err := retryWithBackoff(context.Background(), fastRetry(2), logger, always, func() error {
			calls++
			return failure
		})
		assert.ErrorIs(t, err, ErrRetryExhausted)
		assert.ErrorIs(t, err, failure)
		assert.Equal(t, 2, calls)
	})

	t.Run("single attempt returns error unchanged", func(t *testing.T) {
		err := retryWithBackoff(context.Background(), fastRetry(1), logger, always, func() error {
			return failure
		})
		assert.Equal(t, failure, err)
	})

	t.Run("non retryable stops", func(t *testing.T) {
		var calls int
		err := retryWithBackoff(context.Background(), fastRetry(5), logger, func(error) bool { return false }, func() error {
			calls++
			return failure
		})
		assert.Equal(t, failure, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("context canceled during backoff", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := fastRetry(3)
		cfg.InitialBackoff = time.Hour
		cfg.MaxBackoff = time.Hour

		err := retryWithBackoff(ctx, cfg, logger, always, func() error {
			cancel()
			return failure
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// flakyTransport fails the first n round trips.
type flakyTransport struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": {"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("recovered")),
		Request:    r,
	}, nil
}

func TestProxy_OriginRetries(t *testing.T) {
	transport := &flakyTransport{failures: 1}
	p := newProxy(t, newFakeStore(), Options{
		Backend:       "http://origin.test",
		OriginRetries: 2,
		Client:        &http.Client{Transport: transport},
	})
	p.retry.InitialBackoff = time.Millisecond

	rec := serve(p, http.MethodGet, "/flaky", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "recovered", rec.Body.String())
	assert.Equal(t, int32(2), transport.calls.Load())
}

func TestProxy_RequestsWithBodyNotRetried(t *testing.T) {
	transport := &flakyTransport{failures: 1}
	p := newProxy(t, newFakeStore(), Options{
		Backend:       "http://origin.test",
		OriginRetries: 2,
		Client:        &http.Client{Transport: transport},
	})

	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("data"))
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, int32(1), transport.calls.Load())
}
