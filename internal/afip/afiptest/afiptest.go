// Package afiptest wires service clients to a soaptest server with a fixed
// access ticket.
package afiptest

import (
	"time"

	"github.com/rezonia/afipws/internal/logger"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/soap/soaptest"
	"github.com/rezonia/afipws/internal/wsaa"
)

// CUIT is the taxpayer the test tickets are issued to
const CUIT = 20267565393

// Ticket returns a ticket valid for an hour
func Ticket(service model.Service) *wsaa.Ticket {
	now := time.Now()
	return &wsaa.Ticket{
		Service:        string(service),
		Token:          "PD94bWwgdmVyc2lvbj0iMS4wIj8+",
		Sign:           "c2lnbmF0dXJl",
		Source:         "CN=wsaahomo, O=AFIP, C=AR, SERIALNUMBER=CUIT 33693450239",
		Destination:    "SERIALNUMBER=CUIT 20267565393, CN=test",
		GenerationTime: now.Add(-time.Minute),
		ExpirationTime: now.Add(time.Hour),
	}
}

// Source returns a ticket source for service
func Source(service model.Service) wsaa.TicketSource {
	return wsaa.NewStaticSource(Ticket(service))
}

// Client creates a soap client pointed at srv
func Client(srv *soaptest.Server, service model.Service, namespace string, opts ...soap.Option) *soap.Client {
	opts = append([]soap.Option{soap.WithLogger(logger.Discard())}, opts...)
	return soap.NewClient(service, srv.URL, namespace, opts...)
}

// Options returns the soap options used by service tests
func Options() []soap.Option {
	return []soap.Option{soap.WithLogger(logger.Discard())}
}
