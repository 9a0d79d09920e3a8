// Package backend wraps the hosted backend's REST (PostgREST) and identity
// (GoTrue) endpoints. Every call is a single synchronous HTTP request: no
// retries, no caching.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mydashboard/internal/config"
	"mydashboard/internal/logging"
)

const (
	restPath = "/rest/v1/"
	authPath = "/auth/v1"

	// RequestIDHeader carries a per-attempt uuid, also used as the
	// idempotency token of delete attempts.
	RequestIDHeader = "X-Request-Id"
)

// Op is a REST operation on a collection.
type Op int

const (
	OpList Op = iota
	OpCreate
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpList:
		return "list"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

func (o Op) method() string {
	switch o {
	case OpCreate:
		return http.MethodPost
	case OpUpdate:
		return http.MethodPatch
	case OpDelete:
		return http.MethodDelete
	default:
		return http.MethodGet
	}
}

// succeeded reports whether status is the op's success status.
func (o Op) succeeded(status int) bool {
	switch o {
	case OpCreate:
		return status == http.StatusCreated
	case OpDelete:
		return status == http.StatusOK || status == http.StatusNoContent
	default:
		return status == http.StatusOK
	}
}

// Filter is a set of column equality predicates, sent as col=eq.value.
type Filter map[string]string

// Eq builds a single-column filter.
func Eq(column, value string) Filter {
	return Filter{column: value}
}

// Request describes one REST call.
type Request struct {
	Op         Op
	Collection string
	Filter     Filter
	Payload    any
	Token      string
	// RequestID is generated when empty.
	RequestID string
}

// Response is a successful REST reply. Body is empty for 204.
type Response struct {
	Status    int
	Body      []byte
	RequestID string
}

// Client talks to one backend project.
type Client struct {
	http   *resty.Client
	tracer oteltrace.Tracer
	log    *charmlog.Logger
	now    func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithTracer sets the tracer for per-call spans.
func WithTracer(t oteltrace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithLogger sets the logger for request logging.
func WithLogger(l *charmlog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock overrides time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for cfg.URL authenticated with the project's anon key.
func New(cfg config.BackendConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend api key is required")
	}
	c := &Client{
		tracer: noop.NewTracerProvider().Tracer("mydashboard/backend"),
		log:    logging.Discard(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	c.http = resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Accept", "application/json")
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.log.Debug("backend response",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"request_id", resp.Request.Header.Get(RequestIDHeader),
			"elapsed", resp.Time(),
		)
		return nil
	})
	return c, nil
}

// Do performs req against /rest/v1/{collection}. Non-success statuses come
// back as *RequestError; failures without a response as *TransportError.
// Update and delete requests that match no rows are reported as a 404
// RequestError, so repeating a delete is never silently successful.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Collection == "" {
		return nil, fmt.Errorf("backend: %s: collection is required", req.Op)
	}
	if err := c.checkToken(req.Token); err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Op, req.Collection, err)
	}
	reqID := req.RequestID
	if reqID == "" {
		reqID = uuid.NewString()
	}

	ctx, span := c.tracer.Start(ctx, "backend."+req.Op.String(), oteltrace.WithAttributes(
		attribute.String("mydashboard.collection", req.Collection),
		attribute.String("mydashboard.request_id", reqID),
	))
	defer span.End()

	r := c.http.R().
		SetContext(ctx).
		SetAuthToken(req.Token).
		SetHeader(RequestIDHeader, reqID)
	for col, val := range req.Filter {
		r.SetQueryParam(col, "eq."+val)
	}
	if req.Payload != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Payload)
	}
	if req.Op != OpList {
		r.SetHeader("Prefer", "return=representation")
	}

	resp, err := r.Execute(req.Op.method(), restPath+req.Collection)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.log.Warn("backend transport failure", "op", req.Op, "collection", req.Collection, "request_id", reqID, "err", err)
		return nil, &TransportError{Op: req.Op.String() + " " + req.Collection, Err: err}
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	if !req.Op.succeeded(status) {
		span.SetStatus(codes.Error, http.StatusText(status))
		return nil, newRequestError(req.Op.String(), req.Collection, status, resp.Body(), reqID)
	}

	body := resp.Body()
	if (req.Op == OpUpdate || req.Op == OpDelete) && status == http.StatusOK && isEmptyArray(body) {
		span.SetStatus(codes.Error, "no rows matched")
		return nil, &RequestError{
			Op:         req.Op.String(),
			Collection: req.Collection,
			Status:     http.StatusNotFound,
			Body:       map[string]any{"message": "no rows matched filter", "filter": filterString(req.Filter)},
			RequestID:  reqID,
		}
	}
	return &Response{Status: status, Body: body, RequestID: reqID}, nil
}

func isEmptyArray(body []byte) bool {
	return bytes.Equal(bytes.TrimSpace(body), []byte("[]"))
}

func filterString(f Filter) string {
	var b bytes.Buffer
	for col, val := range f {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(col + "=eq." + val)
	}
	return b.String()
}
