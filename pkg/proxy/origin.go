package proxy

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// fetch performs the origin round trip. Network failures of replayable
// requests are retried according to the proxy's retry configuration.
func (p *Proxy) fetch(ctx context.Context, out *http.Request, logger zerolog.Logger) (*http.Response, error) {
	cfg := p.retry
	if !replayable(out) {
		cfg.MaxAttempts = 1
	}

	var resp *http.Response
	err := retryWithBackoff(ctx, cfg, logger, func(err error) bool {
		return ctx.Err() == nil && !errors.Is(err, context.Canceled)
	}, func() error {
		var doErr error
		resp, doErr = p.client.Do(out)
		if doErr != nil {
			originErrorsTotal.Inc()
			logger.Debug().Err(doErr).Msg("Origin request failed")
			return doErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	originRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	logger.Debug().Int("code", resp.StatusCode).Msg("Origin responded")
	return resp, nil
}

// replayable reports whether out may be sent more than once.
func replayable(out *http.Request) bool {
	if out.Body != nil && out.Body != http.NoBody {
		return false
	}
	switch out.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
