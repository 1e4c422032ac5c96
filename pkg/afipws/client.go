package afipws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/rezonia/afipws/internal/afip"
	"github.com/rezonia/afipws/internal/arba"
	"github.com/rezonia/afipws/internal/config"
	"github.com/rezonia/afipws/internal/credential"
	"github.com/rezonia/afipws/internal/logger"
	"github.com/rezonia/afipws/internal/metrics"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/padron"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/traza"
	"github.com/rezonia/afipws/internal/wdigdepfiel"
	"github.com/rezonia/afipws/internal/wsaa"
	"github.com/rezonia/afipws/internal/wscoc"
	"github.com/rezonia/afipws/internal/wsctg"
	"github.com/rezonia/afipws/internal/wslpg"
)

// Client builds configured service clients sharing one HTTP client, logger,
// metrics and ticket source
type Client struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient soap.Doer

	mu      sync.Mutex
	tickets wsaa.TicketSource
	cred    *credential.Credential
	store   *padron.Store
	closers []io.Closer
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger shared by every service client
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records calls and tickets on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithHTTPClient replaces the HTTP client built from the configuration
func WithHTTPClient(d soap.Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithTicketSource skips WSAA and serves tickets from src
func WithTicketSource(src TicketSource) Option {
	return func(c *Client) {
		c.tickets = src
	}
}

// New creates a Client for cfg. Certificates and databases are opened on
// first use, so traceability and ARBA clients work without them.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Client{
		cfg:    cfg,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		hc, err := soap.NewHTTPClient(soap.TLSConfig{
			Timeout: cfg.Timeout,
			Proxy:   cfg.Proxy,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		c.httpClient = hc
	}
	return c, nil
}

// Config returns the configuration in use
func (c *Client) Config() *Config {
	return c.cfg
}

// Logger returns the shared logger
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

func (c *Client) soapOptions() []soap.Option {
	return []soap.Option{
		soap.WithHTTPClient(c.httpClient),
		soap.WithLogger(c.logger),
		soap.WithMetrics(c.metrics),
		soap.WithTrace(c.cfg.Trace),
	}
}

// Credential loads the configured certificate once
func (c *Client) Credential() (*credential.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.credential()
}

func (c *Client) credential() (*credential.Credential, error) {
	if c.cred != nil {
		return c.cred, nil
	}
	cred, err := c.cfg.LoadCredential()
	if err != nil {
		return nil, err
	}
	c.cred = cred
	return cred, nil
}

// Tickets returns the ticket source, building the WSAA authenticator and its
// cache backend on first use
func (c *Client) Tickets(ctx context.Context) (TicketSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tickets != nil {
		return c.tickets, nil
	}

	cred, err := c.credential()
	if err != nil {
		return nil, err
	}
	store, err := c.ticketStore(ctx)
	if err != nil {
		return nil, err
	}

	client := wsaa.NewClient(c.cfg.Endpoint(model.ServiceWSAA), c.soapOptions()...)
	c.tickets = wsaa.NewAuthenticator(client, cred,
		wsaa.WithStore(store),
		wsaa.WithTTL(c.cfg.Cache.TTL),
		wsaa.WithRenewMargin(c.cfg.Cache.RenewMargin),
		wsaa.WithAuthLogger(c.logger),
		wsaa.WithAuthMetrics(c.metrics),
	)
	return c.tickets, nil
}

func (c *Client) ticketStore(ctx context.Context) (wsaa.Store, error) {
	switch c.cfg.Cache.Backend {
	case config.CacheFile:
		return wsaa.NewFileStore(c.cfg.Cache.Dir)
	case config.CacheRedis:
		rdb, err := wsaa.OpenRedis(ctx, c.cfg.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rdb)
		return wsaa.NewRedisStore(rdb), nil
	default:
		return wsaa.NewMemoryStore(), nil
	}
}

// Ticket returns an access ticket for service
func (c *Client) Ticket(ctx context.Context, service string) (*Ticket, error) {
	src, err := c.Tickets(ctx)
	if err != nil {
		return nil, err
	}
	return src.Ticket(ctx, service)
}

// CUIT returns the represented taxpayer: the configured one, otherwise the
// one in the certificate subject
func (c *Client) CUIT() (int64, error) {
	value := c.cfg.CUIT
	if value == "" {
		cred, err := c.Credential()
		if err != nil {
			return 0, fmt.Errorf("no CUIT configured: %w", err)
		}
		if value, err = cred.CUIT(); err != nil {
			return 0, err
		}
	}
	cuit, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, model.NewValidationError("cuit", value, "numeric", "CUIT must be numeric")
	}
	return cuit, nil
}

func (c *Client) afipDeps(ctx context.Context) (wsaa.TicketSource, int64, error) {
	src, err := c.Tickets(ctx)
	if err != nil {
		return nil, 0, err
	}
	cuit, err := c.CUIT()
	if err != nil {
		return nil, 0, err
	}
	return src, cuit, nil
}

// WSCOC returns a currency purchase client
func (c *Client) WSCOC(ctx context.Context) (*wscoc.Client, error) {
	src, cuit, err := c.afipDeps(ctx)
	if err != nil {
		return nil, err
	}
	return wscoc.New(c.cfg.Endpoint(model.ServiceWSCOC), src, cuit, c.soapOptions()...), nil
}

// WSCTG returns a grain transport code client
func (c *Client) WSCTG(ctx context.Context) (*wsctg.Client, error) {
	src, cuit, err := c.afipDeps(ctx)
	if err != nil {
		return nil, err
	}
	return wsctg.New(c.cfg.Endpoint(model.ServiceWSCTG), src, cuit, c.soapOptions()...), nil
}

// WSLPG returns a grain settlement client
func (c *Client) WSLPG(ctx context.Context) (*wslpg.Client, error) {
	src, cuit, err := c.afipDeps(ctx)
	if err != nil {
		return nil, err
	}
	return wslpg.New(c.cfg.Endpoint(model.ServiceWSLPG), src, cuit, c.soapOptions()...), nil
}

// DepFiel returns a digitalisation depositary client
func (c *Client) DepFiel(ctx context.Context) (*wdigdepfiel.Client, error) {
	src, cuit, err := c.afipDeps(ctx)
	if err != nil {
		return nil, err
	}
	return wdigdepfiel.New(c.cfg.Endpoint(model.ServiceDepFiel), src, cuit, c.soapOptions()...), nil
}

// Registry returns the AFIP clients that answer status checks
func (c *Client) Registry(ctx context.Context) (*afip.Registry, error) {
	coc, err := c.WSCOC(ctx)
	if err != nil {
		return nil, err
	}
	ctg, err := c.WSCTG(ctx)
	if err != nil {
		return nil, err
	}
	lpg, err := c.WSLPG(ctx)
	if err != nil {
		return nil, err
	}
	depfiel, err := c.DepFiel(ctx)
	if err != nil {
		return nil, err
	}
	return afip.NewRegistry(coc, ctg, lpg, depfiel), nil
}

func (c *Client) arbaOptions() ([]arba.Option, error) {
	d := c.httpClient
	if c.cfg.ARBA.CAFile != "" {
		hc, err := arba.NewHTTPClient(c.cfg.ARBA.CAFile, c.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		d = hc
	}
	return []arba.Option{
		arba.WithHTTPClient(d),
		arba.WithLogger(c.logger),
		arba.WithMetrics(c.metrics),
		arba.WithTrace(c.cfg.Trace),
	}, nil
}

// COT returns an ARBA transport waybill client
func (c *Client) COT() (*arba.COT, error) {
	opts, err := c.arbaOptions()
	if err != nil {
		return nil, err
	}
	return arba.NewCOT(c.cfg.Endpoint(model.ServiceCOT), c.cfg.ARBA.User, c.cfg.ARBA.Password, opts...), nil
}

// IIBB returns an ARBA gross income client
func (c *Client) IIBB() (*arba.IIBB, error) {
	opts, err := c.arbaOptions()
	if err != nil {
		return nil, err
	}
	return arba.NewIIBB(c.cfg.Endpoint(model.ServiceIIBB), c.cfg.ARBA.User, c.cfg.ARBA.Password, opts...), nil
}

func (c *Client) trazaCredentials() traza.Credentials {
	return traza.Credentials{
		WSUsername: c.cfg.Traza.WSUsername,
		WSPassword: c.cfg.Traza.WSPassword,
		User:       c.cfg.Traza.User,
		Password:   c.cfg.Traza.Password,
	}
}

// TrazaMed returns a medicine traceability client
func (c *Client) TrazaMed() *traza.Med {
	return traza.NewMed(c.cfg.Endpoint(model.ServiceTrazaMed), c.trazaCredentials(), c.soapOptions()...)
}

// TrazaVet returns a veterinary traceability client
func (c *Client) TrazaVet() *traza.SENASA {
	return traza.NewVet(c.cfg.Endpoint(model.ServiceTrazaVet), c.trazaCredentials(), c.soapOptions()...)
}

// TrazaFito returns an agrochemical traceability client
func (c *Client) TrazaFito() *traza.SENASA {
	return traza.NewFito(c.cfg.Endpoint(model.ServiceTrazaFito), c.trazaCredentials(), c.soapOptions()...)
}

// TrazaProdMed returns a medical products traceability client
func (c *Client) TrazaProdMed() *traza.ProdMed {
	return traza.NewProdMed(c.cfg.Endpoint(model.ServiceTrazaProdMed), c.trazaCredentials(), c.soapOptions()...)
}

// TrazaRenpre returns a chemical precursors traceability client
func (c *Client) TrazaRenpre() *traza.Renpre {
	return traza.NewRenpre(c.cfg.Endpoint(model.ServiceTrazaRenpre), c.trazaCredentials(), c.soapOptions()...)
}

// Padron opens the local taxpayer database once
func (c *Client) Padron() (*padron.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	store, err := padron.Open(c.cfg.Padron.DBPath)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.closers = append(c.closers, store)
	return store, nil
}

// PadronAPI returns the rate limited REST lookup client
func (c *Client) PadronAPI() *padron.API {
	return padron.NewAPI(c.cfg.Endpoint(model.ServicePadron),
		padron.WithHTTPClient(c.httpClient),
		padron.WithRateLimit(c.cfg.Padron.RateLimit, c.cfg.Padron.Burst),
		padron.WithConcurrency(c.cfg.Padron.Concurrency),
		padron.WithLogger(c.logger),
		padron.WithMetrics(c.metrics),
	)
}

// DescargarPadron refreshes the registry archive at path and imports it
// when it changed. It returns the imported row count, zero when the copy
// was current.
func (c *Client) DescargarPadron(ctx context.Context, path string) (int, error) {
	status, err := padron.Descargar(ctx, c.httpClient, c.cfg.PadronZip(), path)
	if err != nil {
		return 0, err
	}
	c.logger.Info("padron download finished", "status", status, "path", path)
	if status != http.StatusOK {
		return 0, nil
	}
	store, err := c.Padron()
	if err != nil {
		return 0, err
	}
	return store.Procesar(ctx, path, true)
}

// Close releases databases and cache connections
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	c.store = nil
	return errors.Join(errs...)
}
