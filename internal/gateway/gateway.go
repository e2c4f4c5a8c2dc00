package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CorrelationIDHeader = "X-Correlation-ID"
	AuthorizationHeader = "Authorization"

	DefaultTimeout = 30 * time.Second
	AITimeout      = 60 * time.Second
)

// SessionProvider supplies the bearer token for outgoing calls and drops it on 401.
type SessionProvider interface {
	AccessToken() string
	Invalidate()
}

// UnauthorizedHandler is notified after a 401 invalidated the session.
type UnauthorizedHandler func(ctx context.Context, err *Error)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	AITimeout time.Duration
}

// Gateway is the single HTTP entry point to the backend API.
type Gateway struct {
	baseURL        *url.URL
	client         *http.Client
	timeout        time.Duration
	aiTimeout      time.Duration
	session        SessionProvider
	onUnauthorized UnauthorizedHandler
	logger         *zap.Logger
	metrics        *Metrics
	now            func() time.Time
}

type Option func(*Gateway)

func WithSession(session SessionProvider) Option {
	return func(g *Gateway) { g.session = session }
}

func WithUnauthorizedHandler(h UnauthorizedHandler) Option {
	return func(g *Gateway) { g.onUnauthorized = h }
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		if client != nil {
			g.client = client
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(cfg Config, opts ...Option) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	g := &Gateway{
		baseURL:   base,
		client:    &http.Client{},
		timeout:   cfg.Timeout,
		aiTimeout: cfg.AITimeout,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.aiTimeout <= 0 {
		g.aiTimeout = AITimeout
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// With returns a copy sharing the transport, with opts applied on top.
func (g *Gateway) With(opts ...Option) *Gateway {
	clone := *g
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// AITimeout is the timeout for long-running analysis calls.
func (g *Gateway) AITimeout() time.Duration {
	return g.aiTimeout
}

// Request describes one API call. Timeout overrides the default when positive.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Timeout time.Duration
}

type Response struct {
	StatusCode    int
	CorrelationID string
	Body          []byte
}

// Do sends req and decodes a successful JSON body into out when out is non-nil.
func (g *Gateway) Do(ctx context.Context, req Request, out any) (*Response, error) {
	correlationID := NewCorrelationID()
	timeout := g.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errTimeout)
	defer cancel()

	httpReq, err := g.newRequest(ctx, req, correlationID)
	if err != nil {
		return nil, err
	}

	start := g.now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(err, cause) {
			err = fmt.Errorf("%w: %w", cause, err)
		}
		apiErr := fromTransport(err, correlationID, req.Path, g.now())
		elapsed := g.observe(req.Method, "error", start)
		g.logger.Warn("api request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Duration("duration", elapsed),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		elapsed := g.observe(req.Method, "error", start)
		g.logger.Warn("api response unreadable",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Duration("duration", elapsed),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, fromTransport(err, correlationID, req.Path, g.now())
	}
	elapsed := g.observe(req.Method, fmt.Sprint(resp.StatusCode), start)

	result := &Response{
		StatusCode:    resp.StatusCode,
		CorrelationID: firstNonEmpty(resp.Header.Get(CorrelationIDHeader), correlationID),
		Body:          body,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := fromResponse(resp.StatusCode, resp.Header, body, correlationID, req.Path, g.now())
		g.logger.Debug("api error response",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", apiErr.Status),
			zap.Duration("duration", elapsed),
			zap.String("correlation_id", apiErr.CorrelationID),
			zap.String("message", apiErr.Message),
		)
		if resp.StatusCode == http.StatusUnauthorized {
			g.handleUnauthorized(ctx, apiErr)
		}
		return result, apiErr
	}
	g.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", elapsed),
		zap.String("correlation_id", result.CorrelationID),
	)

	if out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return result, &Error{
				Status:        http.StatusInternalServerError,
				Message:       "Unexpected response from the server",
				CorrelationID: result.CorrelationID,
				Timestamp:     g.now().UTC().Format(time.RFC3339),
				Path:          req.Path,
				cause:         err,
			}
		}
	}
	return result, nil
}

func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := g.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
	return err
}

func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	_, err := g.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
	return err
}

func (g *Gateway) Put(ctx context.Context, path string, body, out any) error {
	_, err := g.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
	return err
}

func (g *Gateway) Delete(ctx context.Context, path string, query url.Values) error {
	_, err := g.Do(ctx, Request{Method: http.MethodDelete, Path: path, Query: query}, nil)
	return err
}

func (g *Gateway) newRequest(ctx context.Context, req Request, correlationID string) (*http.Request, error) {
	// Paths arrive already escaped segment by segment.
	target := g.baseURL.String() + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(CorrelationIDHeader, correlationID)
	if g.session != nil {
		if token := g.session.AccessToken(); token != "" {
			httpReq.Header.Set(AuthorizationHeader, "Bearer "+token)
		}
	}
	return httpReq, nil
}

func (g *Gateway) handleUnauthorized(ctx context.Context, apiErr *Error) {
	if g.session != nil {
		g.session.Invalidate()
	}
	if g.onUnauthorized != nil {
		g.onUnauthorized(context.WithoutCancel(ctx), apiErr)
	}
}

// observe records the call in metrics and returns its duration.
func (g *Gateway) observe(method, status string, start time.Time) time.Duration {
	elapsed := g.now().Sub(start)
	if g.metrics != nil {
		g.metrics.observe(method, status, elapsed)
	}
	return elapsed
}

// NewCorrelationID returns 32 lowercase hex characters.
func NewCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
