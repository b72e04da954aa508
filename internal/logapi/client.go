// Package logapi is the HTTP transport for the dashboard backend's log endpoints.
package logapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vburojevic/podtail/internal/domain"
	"github.com/vburojevic/podtail/internal/logging"
)

// Fetcher retrieves a bounded log snapshot
type Fetcher interface {
	FetchLogs(ctx context.Context, req domain.TailRequest) (string, error)
}

// StreamOpener opens a follow stream. The returned body yields event-stream
// bytes until the server closes it or ctx is cancelled.
type StreamOpener interface {
	OpenStream(ctx context.Context, req domain.TailRequest) (io.ReadCloser, error)
}

// Ensure Client implements both halves at compile time.
var (
	_ Fetcher      = (*Client)(nil)
	_ StreamOpener = (*Client)(nil)
)

// TokenSource supplies the bearer credential for each request
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource that always returns the same credential
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

const (
	defaultBaseURL   = "http://127.0.0.1:8080/api"
	defaultUserAgent = "podtail/0.1"
	eventStreamType  = "text/event-stream"
	maxErrorBody     = 64 * 1024

	opSnapshot = "snapshot"
	opStream   = "stream"
)

// Client talks to the dashboard backend's log endpoints
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	tokens    TokenSource
	userAgent string
	log       *zap.Logger
}

// Option customises a Client
type Option func(*Client)

// WithTokenSource sets where the bearer credential comes from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client for the backend rooted at baseURL, e.g.
// "https://dash.example.com/api".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised backend URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// FetchLogs performs GET /logs/{namespace}/{pod}?tail={n} and returns the raw text.
// A zero tail count requests the default.
func (c *Client) FetchLogs(ctx context.Context, req domain.TailRequest) (string, error) {
	req = req.Normalize()
	resp, err := c.do(ctx, opSnapshot, req, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.transportError(ctx, opSnapshot, fmt.Errorf("read body: %w", err))
	}
	if len(body) == 0 {
		return "", &domain.Error{Kind: domain.KindEmptyResponse, Op: opSnapshot, Status: resp.StatusCode}
	}
	c.log.Debug("snapshot fetched",
		logging.Target(req.Target.Namespace, req.Target.PodName),
		zap.Uint("tail_lines", req.TailLines),
		zap.Int("bytes", len(body)))
	return string(body), nil
}

// OpenStream performs GET /logs/{namespace}/{pod}?tail={n}&follow=true and
// returns the event-stream body once the response headers have been checked.
func (c *Client) OpenStream(ctx context.Context, req domain.TailRequest) (io.ReadCloser, error) {
	req = req.Normalize()
	resp, err := c.do(ctx, opStream, req, true)
	if err != nil {
		return nil, err
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != eventStreamType {
		_ = resp.Body.Close()
		return nil, &domain.Error{
			Kind:   domain.KindParse,
			Op:     opStream,
			Status: resp.StatusCode,
			Body:   fmt.Sprintf("content type %q, want %s", resp.Header.Get("Content-Type"), eventStreamType),
		}
	}
	c.log.Debug("stream opened",
		logging.Target(req.Target.Namespace, req.Target.PodName),
		zap.Uint("tail_lines", req.TailLines))
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, op string, req domain.TailRequest, follow bool) (*http.Response, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}

	reqURL := c.logsURL(req, follow)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if follow {
		httpReq.Header.Set("Accept", eventStreamType)
		httpReq.Header.Set("Cache-Control", "no-cache")
	} else {
		httpReq.Header.Set("Accept", "text/plain")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	if err := c.setAuthHeader(httpReq); err != nil {
		return nil, &domain.Error{Kind: domain.KindAuthentication, Op: op, Err: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		apiErr := statusError(op, resp)
		c.log.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", apiErr.Kind.Code()))
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) logsURL(req domain.TailRequest, follow bool) string {
	u := c.baseURL.JoinPath("logs", req.Target.Namespace, req.Target.PodName)
	values := url.Values{}
	values.Set("tail", strconv.FormatUint(uint64(req.TailLines), 10))
	if follow {
		values.Set("follow", "true")
	}
	u.RawQuery = values.Encode()
	return u.String()
}

func (c *Client) setAuthHeader(req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

// transportError separates caller cancellation from genuine network faults
func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, domain.ErrCancelled)
	}
	return &domain.Error{Kind: domain.KindNetwork, Op: op, Err: err}
}

func statusError(op string, resp *http.Response) *domain.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.Error{
		Kind:   domain.KindForStatus(resp.StatusCode),
		Op:     op,
		Status: resp.StatusCode,
		Body:   errorMessage(body),
	}
}

// errorMessage prefers the "error" or "msg" field of a JSON body and falls
// back to the trimmed raw text.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if gjson.Valid(trimmed) {
		for _, field := range []string{"error", "msg", "message"} {
			if v := gjson.Get(trimmed, field); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	return trimmed
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
