package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/sirupsen/logrus"
)

const maxResponseBody = 10 << 20

// Request describes one outbound call. Body is kept as bytes so a GET retry
// can resend it.
type Request struct {
	Agency string
	Op     string
	Method string
	URL    string
	// LogURL replaces URL in logs when the URL carries secrets.
	LogURL      string
	Header      http.Header
	Body        []byte
	ContentType string
	// Jar collects Set-Cookie headers across redirects (session-cookie login).
	Jar http.CookieJar
	// Timeout overrides the transport default for this call.
	Timeout time.Duration
	// NoRetry disables retry even for GET.
	NoRetry bool
}

// Response is a fully-read upstream response
type Response struct {
	Status      int
	Header      http.Header
	Body        []byte
	ContentType string
	URL         *url.URL
}

// RetryPolicy controls GET retries
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Transport is the pooled HTTP client shared by every adapter. It holds no
// per-request state.
type Transport struct {
	rt        http.RoundTripper
	client    *http.Client
	timeout   time.Duration
	retry     RetryPolicy
	userAgent string
	logger    *logrus.Logger
}

// NewTransport creates a transport from the upstream configuration
func NewTransport(cfg config.UpstreamConfig, logger *logrus.Logger) *Transport {
	rt := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return newTransport(rt, cfg, logger)
}

func newTransport(rt http.RoundTripper, cfg config.UpstreamConfig, logger *logrus.Logger) *Transport {
	return &Transport{
		rt:      rt,
		client:  &http.Client{Transport: rt},
		timeout: cfg.DirectTimeout,
		retry: RetryPolicy{
			MaxAttempts:     cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// retryableStatus lists the statuses a GET is retried on
func retryableStatus(code int) bool {
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

type retryableStatusError struct{ status int }

func (e *retryableStatusError) Error() string {
	return fmt.Sprintf("retryable upstream status %d", e.status)
}

// Do executes req. Any HTTP status is returned as a Response; only transport
// failures become errors (UpstreamUnavailable or UpstreamTimeout). GETs are
// retried with exponential backoff on 429/500/502/503/504; other methods run
// exactly once.
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	timeout := t.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := t.client
	if req.Jar != nil {
		client = &http.Client{Transport: t.rt, Jar: req.Jar}
	}

	if req.Method != http.MethodGet || req.NoRetry || t.retry.MaxAttempts <= 1 {
		resp, err := t.attempt(ctx, client, req, 1)
		if err != nil {
			return nil, t.classify(ctx, req, err)
		}
		return resp, nil
	}

	var (
		last    *Response
		attempt int
	)
	operation := func() error {
		attempt++
		resp, err := t.attempt(ctx, client, req, attempt)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = resp
		if retryableStatus(resp.Status) {
			return &retryableStatusError{status: resp.Status}
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		t.logger.WithFields(logrus.Fields{
			"agency":  req.Agency,
			"op":      req.Op,
			"attempt": attempt,
			"wait":    wait,
			"reason":  err.Error(),
		}).Warn("Retrying upstream GET")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), uint64(t.retry.MaxAttempts-1)), ctx), notify)
	if err != nil {
		var rse *retryableStatusError
		if errors.As(err, &rse) && last != nil {
			// retries exhausted; the caller classifies the final status
			return last, nil
		}
		return nil, t.classify(ctx, req, err)
	}
	return last, nil
}

func (t *Transport) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.retry.InitialInterval
	if t.retry.MaxInterval > 0 {
		b.MaxInterval = t.retry.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (t *Transport) attempt(ctx context.Context, client *http.Client, req *Request, attempt int) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("User-Agent") == "" && t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"agency":  req.Agency,
			"op":      req.Op,
			"method":  req.Method,
			"url":     t.logURL(req),
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Upstream request failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"agency":   req.Agency,
		"op":       req.Op,
		"method":   req.Method,
		"url":      t.logURL(req),
		"status":   resp.StatusCode,
		"attempt":  attempt,
		"bytes":    len(data),
		"duration": time.Since(start),
	}).Debug("Upstream response")

	return &Response{
		Status:      resp.StatusCode,
		Header:      resp.Header,
		Body:        data,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL,
	}, nil
}

func (t *Transport) classify(ctx context.Context, req *Request, err error) error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timedOut(req.Agency, req.Op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return timedOut(req.Agency, req.Op, err)
	}
	return unavailable(req.Agency, req.Op, 0, "transport failure", nil, err)
}

func (t *Transport) logURL(req *Request) string {
	if req.LogURL != "" {
		return req.LogURL
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
