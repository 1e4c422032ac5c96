// Package afip holds what every AFIP SOAP service client shares: the access
// ticket, the dummy status call and the last response's messages.
package afip

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/wsaa"
)

// Credentials authenticate a single call
type Credentials struct {
	Token string
	Sign  string
	CUIT  int64
}

// Base is embedded by the service clients
type Base struct {
	Client *soap.Client

	source  wsaa.TicketSource
	cuit    int64
	dummyOp string

	mu           sync.Mutex
	errors       []model.Message
	observations []model.Message
}

// NewBase creates the shared client state. cuit is the represented taxpayer;
// when zero it is taken from the ticket destination.
func NewBase(client *soap.Client, source wsaa.TicketSource, cuit int64) *Base {
	return &Base{
		Client:  client,
		source:  source,
		cuit:    cuit,
		dummyOp: "dummy",
	}
}

// SetDummyOperation overrides the status operation name
func (b *Base) SetDummyOperation(op string) {
	b.dummyOp = op
}

// Service returns the remote service
func (b *Base) Service() model.Service {
	return b.Client.Service()
}

// CUIT returns the represented taxpayer
func (b *Base) CUIT() int64 {
	return b.cuit
}

// Credentials fetches the access ticket for the service
func (b *Base) Credentials(ctx context.Context) (Credentials, error) {
	if b.source == nil {
		return Credentials{}, fmt.Errorf("%s: no ticket source configured", b.Service())
	}
	t, err := b.source.Ticket(ctx, string(b.Service()))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to obtain %s ticket: %w", b.Service(), err)
	}
	cuit := b.cuit
	if cuit == 0 {
		cuit, _ = strconv.ParseInt(t.CUIT(), 10, 64)
	}
	if cuit == 0 {
		return Credentials{}, model.NewValidationError("cuit", nil, "required", "represented CUIT is not configured")
	}
	return Credentials{Token: t.Token, Sign: t.Sign, CUIT: cuit}, nil
}

// AddAuth appends the usual token/sign/cuit block under name
func (c Credentials) AddAuth(e *soap.Element, name, cuitTag string) *soap.Element {
	return e.Group(name).
		Add("token", c.Token).
		Add("sign", c.Sign).
		Add(cuitTag, c.CUIT)
}

// Dummy checks the application, database and authentication servers
func (b *Base) Dummy(ctx context.Context) (model.ServerStatus, error) {
	resp, err := b.Client.Call(ctx, b.Client.NewRequest(b.dummyOp))
	if err != nil {
		return model.ServerStatus{}, err
	}
	return soap.ServerStatus(resp), nil
}

// Record stores the messages of the last response. It returns a
// *model.ServiceError when errs is not empty.
func (b *Base) Record(op string, errs, observations []model.Message) error {
	b.mu.Lock()
	b.errors = errs
	b.observations = observations
	b.mu.Unlock()

	if se := model.NewServiceError(b.Service(), op, errs); se != nil {
		return se
	}
	return nil
}

// Reset clears the recorded messages
func (b *Base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = nil
	b.observations = nil
}

// LastErrors returns the errors of the last response
func (b *Base) LastErrors() []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Message(nil), b.errors...)
}

// LastObservations returns the non-fatal messages of the last response
func (b *Base) LastObservations() []model.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Message(nil), b.observations...)
}
