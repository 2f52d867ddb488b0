package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("storefront/api")

// TokenSource supplies the bearer credential. An empty token means the
// request is sent anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	timeout    time.Duration
	logger     *slog.Logger

	Carts    *CartService
	Products *ProductService
	Orders   *OrderService
	Auth     *AuthService
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTimeout bounds each request. Zero leaves only the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: 30 * time.Second,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Carts = &CartService{client: c}
	c.Products = &ProductService{client: c}
	c.Orders = &OrderService{client: c}
	c.Auth = &AuthService{client: c}

	return c
}

// SetTokenSource swaps the credential source, e.g. once a session exists.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	// Some endpoints answer failures with a bare {"error": "..."}.
	Error string `json:"error,omitempty"`
}

// do issues one request and unwraps the envelope into T.
func do[T any](ctx context.Context, c *Client, op, method, path string, body any) (T, error) {
	var zero T

	ctx, span := tracer.Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("storefront.api.path", path)),
	)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.roundTrip(ctx, op, method, path, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Message(err))
		return zero, err
	}

	// Void endpoints may answer any 2xx without a body.
	if result.status == http.StatusNoContent || len(bytes.TrimSpace(result.body)) == 0 {
		return zero, nil
	}

	var env envelope[T]
	if err := json.Unmarshal(result.body, &env); err != nil {
		err = &Error{Op: op, Status: result.status, Message: MsgMalformed, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
		span.RecordError(err)
		span.SetStatus(codes.Error, MsgMalformed)
		return zero, err
	}

	if !env.Success {
		msg := firstNonEmpty(env.Message, env.Error, MsgUnknown)
		err := &Error{Op: op, Status: result.status, Message: msg, Err: ErrUnsuccessful}
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return zero, err
	}

	return env.Data, nil
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body any) (*rawResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Message: MsgValidation, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Op: op, Message: MsgNetwork, Err: fmt.Errorf("%w: create request: %v", ErrNetwork, err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.logger.Warn("failed to read auth token, sending anonymously", "error", err, "op", op)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "op", op, "method", method, "path", path, "error", err)
		return nil, &Error{Op: op, Message: MsgNetwork, Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Status: resp.StatusCode, Message: MsgNetwork, Err: fmt.Errorf("%w: read body: %v", ErrNetwork, err)}
	}

	c.logger.Debug("api request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(op, resp.StatusCode, data)
	}

	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// statusError prefers a message carried in the failure body over the
// generic one for the status.
func statusError(op string, status int, body []byte) *Error {
	var env envelope[json.RawMessage]
	msg := statusMessage(status)
	if len(body) > 0 && json.Unmarshal(body, &env) == nil {
		msg = firstNonEmpty(env.Message, env.Error, msg)
	}
	return &Error{Op: op, Status: status, Message: msg, Err: fmt.Errorf("%w %d", ErrStatus, status)}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
