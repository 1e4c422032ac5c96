package wsaa

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rezonia/afipws/internal/credential"
	"github.com/rezonia/afipws/internal/metrics"
)

// DefaultRenewMargin is how long before expiration a cached ticket is replaced
const DefaultRenewMargin = 60 * time.Second

// TicketSource provides access tickets to service clients
type TicketSource interface {
	Ticket(ctx context.Context, service string) (*Ticket, error)
}

// Authenticator obtains tickets from WSAA, reusing cached ones
type Authenticator struct {
	client  *Client
	cred    *credential.Credential
	store   Store
	ttl     time.Duration
	margin  time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// AuthOption configures an Authenticator
type AuthOption func(*Authenticator)

// WithStore sets the ticket cache
func WithStore(s Store) AuthOption {
	return func(a *Authenticator) {
		a.store = s
	}
}

// WithTTL sets the TRA half window
func WithTTL(d time.Duration) AuthOption {
	return func(a *Authenticator) {
		a.ttl = d
	}
}

// WithRenewMargin sets how early cached tickets are renewed
func WithRenewMargin(d time.Duration) AuthOption {
	return func(a *Authenticator) {
		a.margin = d
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) {
		a.now = now
	}
}

// WithAuthLogger sets the logger
func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// WithAuthMetrics enables ticket metrics
func WithAuthMetrics(m *metrics.Metrics) AuthOption {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// NewAuthenticator creates an Authenticator for cred
func NewAuthenticator(client *Client, cred *credential.Credential, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		client: client,
		cred:   cred,
		store:  NewMemoryStore(),
		ttl:    DefaultTTL,
		margin: DefaultRenewMargin,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ticket returns a ticket for service valid for at least the renew margin.
// Logins are serialized: WSAA rejects a second login while a ticket is live.
func (a *Authenticator) Ticket(ctx context.Context, service string) (*Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	key := CacheKey(service, a.cred.Fingerprint())
	log := a.logger.With("service", service)

	cached, err := a.store.Load(ctx, key)
	if err != nil {
		log.Warn("ticket cache unavailable", "error", err)
	}
	if cached.ValidFor(now, a.margin) {
		a.metrics.IncrementTicket(service, metrics.TicketCache)
		log.Debug("using cached ticket", "expires", cached.ExpirationTime)
		if cached.Service == "" {
			cached.Service = service
		}
		return cached, nil
	}

	if a.cred.Expired(now) {
		return nil, credential.ErrCertExpired(a.cred.Certificate.Subject.CommonName)
	}

	tra, err := CreateTRA(service, a.ttl, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create login ticket request: %w", err)
	}
	cms, err := SignTRA(tra, a.cred)
	if err != nil {
		return nil, err
	}

	ticket, err := a.client.LoginCMS(ctx, cms)
	if err != nil {
		return nil, fmt.Errorf("failed to login to WSAA for %s: %w", service, err)
	}
	ticket.Service = service
	a.metrics.IncrementTicket(service, metrics.TicketRemote)
	log.Info("access ticket issued", "expires", ticket.ExpirationTime)

	if err := a.store.Save(ctx, key, ticket); err != nil {
		log.Warn("failed to cache ticket", "error", err)
	}
	return ticket, nil
}

// Invalidate drops the cached ticket for service
func (a *Authenticator) Invalidate(ctx context.Context, service string) error {
	return a.store.Delete(ctx, CacheKey(service, a.cred.Fingerprint()))
}

// StaticSource serves a ticket obtained elsewhere
type StaticSource struct {
	ticket *Ticket
}

// NewStaticSource wraps an existing ticket
func NewStaticSource(t *Ticket) *StaticSource {
	return &StaticSource{ticket: t}
}

// StaticSourceFromXML parses a loginTicketResponse document
func StaticSourceFromXML(data []byte) (*StaticSource, error) {
	t, err := ParseTicket(data)
	if err != nil {
		return nil, err
	}
	return &StaticSource{ticket: t}, nil
}

// Ticket returns the wrapped ticket regardless of service
func (s *StaticSource) Ticket(_ context.Context, service string) (*Ticket, error) {
	if s.ticket == nil {
		return nil, fmt.Errorf("no access ticket for %s", service)
	}
	return s.ticket, nil
}
