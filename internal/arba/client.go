// Package arba talks to the Buenos Aires province revenue agency upload
// services: COT (transport codes for goods) and IIBB (gross income tax
// rates). Both take a multipart form with user, password and a file, and
// answer with a plain XML document.
package arba

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	"github.com/rezonia/afipws/internal/metrics"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/trust"
)

const maxResponseSize = 16 << 20

// Client posts files to a single ARBA endpoint and keeps the last response
type Client struct {
	service    model.Service
	endpoint   string
	user       string
	password   string
	httpClient soap.Doer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	trace      bool

	mu        sync.Mutex
	doc       *etree.Document
	raw       []byte
	errorType string
	pending   []model.Message
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client, usually one from NewHTTPClient
func WithHTTPClient(d soap.Doer) Option {
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

// WithTrace logs the raw responses at debug level
func WithTrace(trace bool) Option {
	return func(c *Client) {
		c.trace = trace
	}
}

func newClient(service model.Service, endpoint, user, password string, opts []Option) *Client {
	c := &Client{
		service:    service,
		endpoint:   endpoint,
		user:       user,
		password:   password,
		httpClient: &http.Client{Timeout: soap.DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient builds a client that only trusts the CA certificates in
// caFile (ARBA publishes its own chain). An empty caFile keeps the system
// roots.
func NewHTTPClient(caFile string, timeout time.Duration) (*http.Client, error) {
	cfg := soap.TLSConfig{Timeout: timeout}
	if caFile != "" {
		data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %s: %w", caFile, err)
		}
		store := trust.NewEmptyTrustStore()
		if err := store.AddCertificatesFromPEM(data); err != nil {
			return nil, fmt.Errorf("failed to load CA file %s: %w", caFile, err)
		}
		cfg.RootCAs = store.Roots()
	}
	return soap.NewHTTPClient(cfg)
}

// Service returns the service identifier
func (c *Client) Service() model.Service {
	return c.service
}

// SetCredentials changes the user (CUIT) and password (CIT)
func (c *Client) SetCredentials(user, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	c.password = password
}

// upload posts name/content and parses the XML answer. An error document
// (TBError, DFEError) becomes a *model.ServiceError.
func (c *Client) upload(ctx context.Context, op, name string, content []byte) (*soap.Node, error) {
	start := time.Now()
	log := c.logger.With("service", c.service, "operation", op, "file", name)

	c.mu.Lock()
	user, password := c.user, c.password
	c.mu.Unlock()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("user", user); err != nil {
		return nil, fmt.Errorf("failed to write user field: %w", err)
	}
	if err := writer.WriteField("password", password); err != nil {
		return nil, fmt.Errorf("failed to write password field: %w", err)
	}
	fw, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeTransport, start)
		log.Warn("upload failed", "error", err)
		return nil, fmt.Errorf("failed to call %s %s: %w", c.service, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeTransport, start)
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if c.trace {
		log.Debug("arba response", "status", resp.StatusCode, "xml", string(data))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeError, start)
		return nil, &soap.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(data)}
	}

	root, err := c.AnalizarXml(data)
	if err != nil {
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeError, start)
		return nil, model.NewParseError(c.service, op, "response is not XML", err)
	}

	if tipo := root.Find("tipoError"); tipo.Exists() {
		msg := model.Message{Code: root.Find("codigoError").Text(), Description: root.Find("mensajeError").Text()}
		c.mu.Lock()
		c.errorType = tipo.Text()
		c.pending = []model.Message{msg}
		c.mu.Unlock()
		c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeFault, start)
		log.Warn("service error", "type", tipo.Text(), "code", msg.Code)
		return root, model.NewServiceError(c.service, op, []model.Message{msg})
	}

	c.metrics.ObserveCall(string(c.service), op, metrics.OutcomeOK, start)
	log.Debug("upload", "duration", time.Since(start))
	return root, nil
}

// AnalizarXml parses an XML document (a response or a local file) and makes
// it the current one for ObtenerTagXml
func (c *Client) AnalizarXml(data []byte) (*soap.Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("failed to parse XML: empty document")
	}
	c.mu.Lock()
	c.doc = doc
	c.raw = data
	c.mu.Unlock()
	return soap.NewNode(doc.Root()), nil
}

// ObtenerTagXml returns the text under path, starting at the root of the
// current document. It is empty when the path does not exist.
func (c *Client) ObtenerTagXml(path ...string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return ""
	}
	return soap.NewNode(c.doc.Root()).Text(path...)
}

// XmlResponse returns the raw last response
func (c *Client) XmlResponse() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

// TipoError returns the error type of the last error document
func (c *Client) TipoError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorType
}

// LeerErrorValidacion pops the next pending error. It returns false when
// there are none left.
func (c *Client) LeerErrorValidacion() (model.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return model.Message{}, false
	}
	msg := c.pending[0]
	c.pending = c.pending[1:]
	return msg, true
}

// Limpiar drops the last response and any pending errors
func (c *Client) Limpiar() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = nil
	c.raw = nil
	c.errorType = ""
	c.pending = nil
}

func (c *Client) setPending(msgs []model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append([]model.Message(nil), msgs...)
}

// charsetReader decodes the ISO-8859-1 documents ARBA answers with
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "iso8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "utf-8", "utf8", "":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}
