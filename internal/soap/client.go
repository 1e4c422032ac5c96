package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/rezonia/afipws/internal/metrics"
	"github.com/rezonia/afipws/internal/model"
)

const maxResponseSize = 64 << 20

// Doer sends HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts SOAP envelopes to a single endpoint
type Client struct {
	service      model.Service
	endpoint     string
	namespace    string
	actionPrefix string
	version      Version
	qualified    bool
	httpClient   Doer
	logger       *slog.Logger
	metrics      *metrics.Metrics
	trace        bool
	hooks        []func(*Request)

	mu           sync.Mutex
	lastRequest  []byte
	lastResponse []byte
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client (TLS, timeouts, proxies)
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics enables call metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTrace logs raw request and response envelopes at debug level
func WithTrace(trace bool) Option {
	return func(c *Client) {
		c.trace = trace
	}
}

// WithSOAPAction sets the SOAPAction prefix; the operation name is appended
func WithSOAPAction(prefix string) Option {
	return func(c *Client) {
		c.actionPrefix = prefix
	}
}

// WithVersion selects SOAP 1.1 or 1.2
func WithVersion(v Version) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithQualifiedElements prefixes payload children with the service namespace
func WithQualifiedElements() Option {
	return func(c *Client) {
		c.qualified = true
	}
}

// WithRequestHook runs fn on every request before it is serialized
func WithRequestHook(fn func(*Request)) Option {
	return func(c *Client) {
		c.hooks = append(c.hooks, fn)
	}
}

// NewClient creates a client for endpoint
func NewClient(service model.Service, endpoint, namespace string, opts ...Option) *Client {
	c := &Client{
		service:    service,
		endpoint:   endpoint,
		namespace:  namespace,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service identifier
func (c *Client) Service() model.Service {
	return c.service
}

// Endpoint returns the service URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// NewRequest creates an envelope for operation in the client namespace
func (c *Client) NewRequest(operation string) *Request {
	req := newRequest(c.namespace, operation, c.version)
	if c.qualified {
		req.Qualified()
	}
	return req
}

// LastRequest returns the last envelope sent
func (c *Client) LastRequest() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRequest
}

// LastResponse returns the last raw response received
func (c *Client) LastResponse() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResponse
}

// Call sends req and returns the first element of the response body
func (c *Client) Call(ctx context.Context, req *Request) (*Node, error) {
	start := time.Now()
	op := req.Operation
	requestID := uuid.NewString()
	log := c.logger.With("service", c.service, "operation", op, "request_id", requestID)

	for _, hook := range c.hooks {
		hook(req)
	}

	payload, err := req.Bytes()
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeError, start)
		return nil, fmt.Errorf("failed to serialize %s request: %w", op, err)
	}
	c.remember(payload, nil)
	if c.trace {
		log.Debug("soap request", "xml", string(payload))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeError, start)
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	action := c.actionPrefix + op
	if req.Version() == Version12 {
		httpReq.Header.Set("Content-Type", fmt.Sprintf(`application/soap+xml; charset=utf-8; action="%s"`, action))
	} else {
		httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
		httpReq.Header.Set("SOAPAction", fmt.Sprintf("%q", action))
	}
	httpReq.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeTransport, start)
		log.Warn("soap call failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("failed to call %s %s: %w", c.service, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeTransport, start)
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}
	c.remember(payload, data)
	if c.trace {
		log.Debug("soap response", "status", resp.StatusCode, "xml", string(data))
	}

	node, err := c.parseResponse(op, resp, data)
	switch err.(type) {
	case nil:
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeOK, start)
		log.Debug("soap call", "duration", time.Since(start))
	case *Fault:
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeFault, start)
		log.Warn("soap fault", "error", err, "duration", time.Since(start))
	default:
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeError, start)
		log.Warn("soap call failed", "error", err, "status", resp.StatusCode)
	}
	return node, err
}

func (c *Client) parseResponse(op string, resp *http.Response, data []byte) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil || doc.Root() == nil {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
		}
		return nil, model.NewParseError(c.service, op, "response is not XML", err)
	}

	env := NewNode(doc.Root())
	body := env.Child("Body")
	if !body.Exists() {
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
		}
		return nil, model.NewParseError(c.service, op, "missing SOAP body", nil)
	}
	if fault := parseFault(body); fault != nil {
		return nil, fault
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
	}

	children := body.Children()
	if len(children) == 0 {
		return nil, model.NewParseError(c.service, op, "empty SOAP body", nil)
	}
	return children[0], nil
}

func (c *Client) remember(request, response []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRequest = request
	c.lastResponse = response
}
