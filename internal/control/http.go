// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/streamreaper/internal/broadcast"
	xglog "github.com/ManuGH/streamreaper/internal/log"
	"github.com/ManuGH/streamreaper/internal/resilience"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// HTTPConfig configures the media server REST transport.
type HTTPConfig struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	// RPS caps stop calls per second; zero disables limiting.
	RPS   float64
	Burst int

	BreakerThreshold    int
	BreakerResetTimeout time.Duration
}

// HTTPController stops streams through the media server REST API:
//
//	POST {baseURL}/rest/v2/broadcasts/{id}/stop?force=true&reason=...
//
// 2xx and 404 are success; 404 means the stream is already gone.
type HTTPController struct {
	baseURL *url.URL
	token   string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

func NewHTTPController(cfg HTTPConfig) (*HTTPController, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("control: invalid base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &HTTPController{
		baseURL: u,
		token:   cfg.Token,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: limiter,
		breaker: resilience.NewCircuitBreaker("control.http", cfg.BreakerThreshold, cfg.BreakerResetTimeout,
			resilience.WithFailureClassifier(func(err error) bool {
				return errors.Is(err, ErrUnavailable)
			})),
		logger: xglog.WithComponent("control.http").With().Str(xglog.FieldBaseURL, u.String()).Logger(),
	}, nil
}

func (c *HTTPController) stopURL(streamID string, force bool, reason string) string {
	u := *c.baseURL
	u.Path = u.Path + "/rest/v2/broadcasts/" + url.PathEscape(streamID) + "/stop"
	q := url.Values{}
	q.Set("force", strconv.FormatBool(force))
	if reason != "" {
		q.Set("reason", reason)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *HTTPController) Stop(ctx context.Context, streamID string, force bool, reason string) error {
	if !broadcast.IsSafeStreamID(streamID) {
		return fmt.Errorf("%w: %q", ErrInvalidStreamID, streamID)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, streamID, force, reason)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func (c *HTTPController) post(ctx context.Context, streamID string, force bool, reason string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.stopURL(streamID, force, reason), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug().
			Str(xglog.FieldEvent, "control.stop.already_gone").
			Str(xglog.FieldStreamID, streamID).
			Msg("media server does not know stream")
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
