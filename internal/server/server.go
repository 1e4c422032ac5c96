package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rezonia/afipws/internal/afip"
	"github.com/rezonia/afipws/internal/logger"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/padron"
	"github.com/rezonia/afipws/internal/wsaa"
)

// DefaultSearchLimit caps padron name searches when no limit is given
const DefaultSearchLimit = 10

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	Debug          bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	registry *afip.Registry
	padron   *padron.Store
	tickets  wsaa.TicketSource
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithRegistry serves /api/v1/status from r
func WithRegistry(r *afip.Registry) Option {
	return func(s *Server) {
		s.registry = r
	}
}

// WithPadron serves /api/v1/padron from the local taxpayer database
func WithPadron(store *padron.Store) Option {
	return func(s *Server) {
		s.padron = store
	}
}

// WithTickets serves /api/v1/tickets from src
func WithTickets(src wsaa.TicketSource) Option {
	return func(s *Server) {
		s.tickets = src
	}
}

// WithGatherer exposes g on /metrics instead of the default registry
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new API server
func NewServer(config *Config, opts ...Option) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:   config,
		router:   router,
		gatherer: prometheus.DefaultGatherer,
		logger:   logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.RequestTimeout <= 0 {
		s.config.RequestTimeout = 60 * time.Second
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.handleServices)
		v1.GET("/status/:service", s.handleStatus)

		v1.GET("/padron", s.handlePadronSearch)
		v1.GET("/padron/:cuit", s.handlePadron)

		v1.GET("/tickets/:service", s.handleTicket)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.logger.Info("listening", "address", s.config.Address)
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleServices(c *gin.Context) {
	if s.registry == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no services configured"})
		return
	}
	c.JSON(http.StatusOK, ServicesResponse{Services: s.registry.Services()})
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.registry == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no services configured"})
		return
	}
	service := model.Service(c.Param("service"))
	if _, ok := s.registry.Get(service); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown service", Details: string(service)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	status, err := s.registry.Status(ctx, service)
	if err != nil {
		s.logger.Warn("status check failed", "service", service, "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "status check failed", Details: err.Error()})
		return
	}

	code := http.StatusOK
	if !status.OK() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, StatusResponse{
		Service:      service,
		OK:           status.OK(),
		ServerStatus: status,
	})
}

func (s *Server) handlePadron(c *gin.Context) {
	if s.padron == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "padron database not configured"})
		return
	}
	cuit, err := strconv.ParseInt(c.Param("cuit"), 10, 64)
	if err != nil || cuit <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid CUIT", Details: c.Param("cuit")})
		return
	}

	docType := padron.DocTypeCUIT
	if v := c.Query("tipo_doc"); v != "" {
		if docType, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid tipo_doc", Details: v})
			return
		}
	}

	t, err := s.padron.Buscar(c.Request.Context(), cuit, docType)
	if errors.Is(err, padron.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "taxpayer not found"})
		return
	}
	if err != nil {
		s.logger.Error("padron lookup failed", "cuit", cuit, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "padron lookup failed", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handlePadronSearch(c *gin.Context) {
	if s.padron == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "padron database not configured"})
		return
	}
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing query parameter q"})
		return
	}
	limit := DefaultSearchLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Details: v})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	cuits, err := s.padron.BuscarCUIT(ctx, q, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "padron search failed", Details: err.Error()})
		return
	}

	results := make([]*padron.Taxpayer, 0, len(cuits))
	for _, cuit := range cuits {
		t, err := s.padron.Buscar(ctx, cuit, padron.DocTypeCUIT)
		if err != nil {
			continue
		}
		results = append(results, t)
	}
	c.JSON(http.StatusOK, SearchResponse{Query: q, Results: results})
}

func (s *Server) handleTicket(c *gin.Context) {
	if s.tickets == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "authentication not configured"})
		return
	}
	service := c.Param("service")

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
	defer cancel()

	t, err := s.tickets.Ticket(ctx, service)
	if err != nil {
		s.logger.Warn("ticket request failed", "service", service, "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "ticket request failed", Details: err.Error()})
		return
	}

	now := s.now()
	c.JSON(http.StatusOK, TicketResponse{
		Ticket:    t,
		CUIT:      t.CUIT(),
		Expired:   t.Expired(now),
		ExpiresIn: max(t.ExpirationTime.Sub(now), 0).Round(time.Second).String(),
	})
}
