package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BaSui01/rerankbridge/internal/tlsutil"
	"github.com/BaSui01/rerankbridge/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxCredentialCheckTimeout caps the health probe used to validate
// credentials, independently of the rerank timeout.
const MaxCredentialCheckTimeout = 5 * time.Second

// Observer receives the outcome of every remote call. internal/metrics
// provides the Prometheus implementation.
type Observer interface {
	ObserveRerank(model, code string, duration time.Duration, documents, results int)
	ObserveCredentialCheck(ok bool, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRerank(string, string, time.Duration, int, int) {}
func (nopObserver) ObserveCredentialCheck(bool, time.Duration) {}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
	tracer     trace.Tracer
}

// WithHTTPClient sets the HTTP client. It must be safe for concurrent use.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver sets the call observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithTracer sets the tracer; the global OTel tracer is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func applyOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = defaultHTTPClient
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.observer == nil {
		o.observer = nopObserver{}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("rerankbridge/rerank")
	}
	return o
}

// defaultHTTPClient has no client-level timeout; every call carries its own
// deadline through the request context.
var defaultHTTPClient = tlsutil.NewHTTPClient()

// Client calls a remote reranking service. It holds no per-call state, so a
// single Client may serve concurrent requests.
type Client struct {
	creds     Credentials
	rerankURL string
	healthURL string

	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
	tracer     trace.Tracer
}

// NewClient creates a client for already validated credentials.
func NewClient(creds Credentials, opts ...Option) *Client {
	o := applyOptions(opts)
	base := trimBaseURL(creds.APIURL)
	if creds.Timeout <= 0 {
		creds.Timeout = DefaultTimeout
	}
	return &Client{
		creds:      creds,
		rerankURL:  base + "/rerank",
		healthURL:  base + "/health",
		httpClient: o.httpClient,
		logger:     o.logger.With(zap.String("component", "rerank_client")),
		observer:   o.observer,
		tracer:     o.tracer,
	}
}

// Credentials returns the client's credentials.
func (c *Client) Credentials() Credentials { return c.creds }

// Rerank sends one request to <api_url>/rerank and normalizes the reply. A
// single attempt is made, bounded by the configured timeout.
func (c *Client) Rerank(ctx context.Context, req Request) (*Result, error) {
	model := req.Model
	if model == "" {
		model = ModelName
	}

	ctx, span := c.tracer.Start(ctx, "rerank.invoke", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rerank.model", model),
			attribute.Int("rerank.documents", len(req.Documents)),
			attribute.String("rerank.input_format", string(c.creds.InputFormat)),
		))
	defer span.End()

	start := time.Now()
	docs, err := c.rerank(ctx, req)
	duration := time.Since(start)

	if err != nil {
		code := types.GetErrorCode(err)
		c.observer.ObserveRerank(model, string(code), duration, len(req.Documents), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		return nil, err
	}

	c.observer.ObserveRerank(model, "ok", duration, len(req.Documents), len(docs))
	span.SetAttributes(attribute.Int("rerank.results", len(docs)))
	c.logger.Debug("rerank completed",
		zap.String("model", model),
		zap.String("user", req.User),
		zap.Int("documents", len(req.Documents)),
		zap.Int("results", len(docs)),
		zap.Duration("duration", duration),
	)
	return &Result{Model: model, Docs: docs}, nil
}

func (c *Client) rerank(ctx context.Context, req Request) ([]Document, error) {
	payload, err := BuildRequest(req, c.creds)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewError(types.ErrInvoke, "Unexpected error: encode request").WithCause(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.creds.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rerankURL, bytes.NewReader(body))
	if err != nil {
		return nil, MapTransportError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		mapped := MapTransportError(err)
		c.logger.Error("rerank request failed",
			zap.String("url", c.rerankURL),
			zap.String("code", string(mapped.Code)),
			zap.Duration("timeout", c.creds.Timeout),
			zap.Error(err),
		)
		return nil, mapped
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, MapTransportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		mapped := MapHTTPError(resp.StatusCode, ReadErrorMessage(data))
		c.logger.Warn("rerank service returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("code", string(mapped.Code)),
		)
		return nil, mapped
	}

	parsed, err := DecodeResponse(data)
	if err != nil {
		c.logger.Error("unexpected rerank response", zap.Error(err))
		return nil, err
	}
	for _, item := range parsed.Results {
		if item.DocumentIgnored {
			c.logger.Warn("unsupported document value in rerank result, using input text",
				zap.Int("index", item.Index),
			)
		}
	}
	return NormalizeResponse(parsed, req.Documents, req.ScoreThreshold, req.TopN), nil
}

// HealthCheck fetches <api_url>/health with the configured timeout. Failures
// are reported in the returned map as {"status": "error", "error": msg}
// rather than as an error.
func (c *Client) HealthCheck(ctx context.Context) map[string]any {
	status, data, err := c.getHealth(ctx, c.creds.Timeout)
	if err == nil && status >= http.StatusBadRequest {
		err = fmt.Errorf("health endpoint returned status %d", status)
	}
	if err != nil {
		c.logger.Error("health check failed", zap.Error(err))
		return map[string]any{"status": "error", "error": err.Error()}
	}

	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		c.logger.Error("health check returned invalid JSON", zap.Error(err))
		return map[string]any{"status": "error", "error": err.Error()}
	}
	return body
}

// CheckCredentials probes <api_url>/health with a timeout capped at
// MaxCredentialCheckTimeout. Anything other than HTTP 200 fails with a
// credentials validation error.
func (c *Client) CheckCredentials(ctx context.Context) error {
	timeout := min(c.creds.Timeout, MaxCredentialCheckTimeout)

	start := time.Now()
	status, data, err := c.getHealth(ctx, timeout)
	switch {
	case err != nil:
		err = types.NewError(types.ErrCredentialsValidation,
			"An error occurred during credentials validation: "+err.Error()).WithCause(err)
	case status != http.StatusOK:
		err = types.Errorf(types.ErrCredentialsValidation,
			"An error occurred during credentials validation: status code %d: %s", status, string(data)).
			WithHTTPStatus(status)
	}
	c.observer.ObserveCredentialCheck(err == nil, time.Since(start))

	if err != nil {
		c.logger.Warn("credentials validation failed", zap.String("url", c.healthURL), zap.Error(err))
	}
	return err
}

func (c *Client) getHealth(ctx context.Context, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// ValidateCredentials reports whether the service behind creds answers its
// health endpoint with HTTP 200.
func ValidateCredentials(ctx context.Context, creds Credentials, opts ...Option) bool {
	return NewClient(creds, opts...).CheckCredentials(ctx) == nil
}
