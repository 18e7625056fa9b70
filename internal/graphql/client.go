package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/aminexfrad/F-S-SHOP/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	// CSRFCookie is the cookie whose value is echoed in the CSRFHeader on every call
	CSRFCookie = "csrftoken"
	CSRFHeader = "X-CSRFToken"

	RequestIDHeader = "X-Request-ID"

	// NetworkErrorMessage is shown to the user when the backend could not be reached
	NetworkErrorMessage = "Network error. Please try again."

	maxResponseBytes = 8 << 20
)

// ErrTransport wraps every failure that happened before a GraphQL response could be read:
// no response, a non-2xx status without GraphQL errors, or an undecodable body.
var ErrTransport = errors.New("graphql transport failure")

// ServerError carries the messages of a non-empty "errors" array.
type ServerError struct {
	Messages []string
}

func (e *ServerError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Message returns the text to show the user for err: the first server message when the
// backend reported one, the generic network message otherwise.
func Message(err error) string {
	var se *ServerError
	if errors.As(err, &se) && len(se.Messages) > 0 && se.Messages[0] != "" {
		return se.Messages[0]
	}
	return NetworkErrorMessage
}

type Request struct {
	Query     string
	Variables map[string]any
	Headers   map[string]string
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseBody struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Executor is implemented by Client; consumers depend on it so tests can stub the backend.
type Executor interface {
	Execute(ctx context.Context, req Request, out any) error
}

// Client posts GraphQL documents to a single endpoint. It adds no retries and no timeouts
// of its own; both belong to the underlying http.Client.
type Client struct {
	endpoint *url.URL
	http     *http.Client
	logger   *zap.Logger
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	jar        http.CookieJar
	timeout    time.Duration
	logger     *zap.Logger
}

// WithHTTPClient replaces the transport client. Its Jar is used for the CSRF cookie.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

func WithJar(jar http.CookieJar) Option {
	return func(o *clientOptions) { o.jar = jar }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme and host are required", endpoint)
	}

	o := &clientOptions{timeout: 30 * time.Second, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	hc := o.httpClient
	if hc == nil {
		jar := o.jar
		if jar == nil {
			jar, err = cookiejar.New(nil)
			if err != nil {
				return nil, fmt.Errorf("failed to create cookie jar: %w", err)
			}
		}
		hc = &http.Client{
			Timeout:   o.timeout,
			Jar:       jar,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{endpoint: u, http: hc, logger: o.logger}, nil
}

// WithEndpoint derives a client for another endpoint that shares the jar and transport.
func (c *Client) WithEndpoint(endpoint string) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return &Client{endpoint: u, http: c.http, logger: c.logger}, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// csrfToken is read from the jar on every call; the backend may rotate it at any time.
func (c *Client) csrfToken() string {
	if c.http.Jar == nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(c.endpoint) {
		if ck.Name == CSRFCookie {
			return ck.Value
		}
	}
	return ""
}

// Execute sends exactly one POST and decodes the "data" member into out (which may be nil).
func (c *Client) Execute(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(requestBody{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	if token := c.csrfToken(); token != "" {
		httpReq.Header.Set(CSRFHeader, token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	log := logger.WithTrace(ctx, c.logger).With(
		zap.String("request_id", requestID),
		zap.String("endpoint", c.endpoint.String()),
	)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		log.Warn("graphql request failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("failed to read graphql response", zap.Error(err))
		return fmt.Errorf("%w: reading body: %w", ErrTransport, err)
	}

	log.Debug("graphql request done",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var envelope responseBody
	decodeErr := json.Unmarshal(raw, &envelope)

	if decodeErr == nil && len(envelope.Errors) > 0 {
		msgs := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			msgs[i] = e.Message
		}
		return &ServerError{Messages: msgs}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: undecodable response: %w", ErrTransport, decodeErr)
	}

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: undecodable data: %w", ErrTransport, err)
	}
	return nil
}
