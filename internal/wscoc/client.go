// Package wscoc is the client for the foreign currency purchase consultation
// service (Consulta de Operaciones Cambiarias)
package wscoc

import (
	"context"
	"sync"

	"github.com/rezonia/afipws/internal/afip"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/wsaa"
)

// Namespace is the COCService target namespace
const Namespace = "http://ar.gob.afip.wscoc.COCService/"

// Client calls WSCOC
type Client struct {
	*afip.Base

	mu           sync.Mutex
	formatErrors []model.Message
}

// New creates a WSCOC client for endpoint
func New(endpoint string, source wsaa.TicketSource, cuit int64, opts ...soap.Option) *Client {
	sc := soap.NewClient(model.ServiceWSCOC, endpoint, Namespace, opts...)
	return &Client{Base: afip.NewBase(sc, source, cuit)}
}

// LastFormatErrors returns the schema errors of the last response
func (c *Client) LastFormatErrors() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Message(nil), c.formatErrors...)
}

// LastInconsistencies returns the warnings of the last response
func (c *Client) LastInconsistencies() []model.Message {
	return c.LastObservations()
}

// call posts op with the authRequest block and returns the <op>Return element
func (c *Client) call(ctx context.Context, op string, fill func(r *soap.Element)) (*soap.Node, error) {
	cred, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	req := c.Client.NewRequest(op)
	cred.AddAuth(&req.Element, "authRequest", "cuitRepresentada")
	if fill != nil {
		fill(&req.Element)
	}

	resp, err := c.Client.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	ret := resp.Child(op + "Return")
	if !ret.Exists() {
		ret = resp
	}

	errs := soap.Messages(ret, "arrayErrores", "codigoDescripcion", "codigo", "descripcion")
	formatErrs := soap.Messages(ret, "arrayErroresFormato", "codigoDescripcionString", "codigo", "descripcion")
	inconsistencies := soap.Messages(ret, "arrayInconsistencias", "codigoDescripcion", "codigo", "descripcion")

	c.mu.Lock()
	c.formatErrors = formatErrs
	c.mu.Unlock()

	if err := c.Record(op, append(errs, formatErrs...), inconsistencies); err != nil {
		return ret, err
	}
	return ret, nil
}
