// Package wslpg is the client for the primary grain settlement service
// (Liquidación Primaria de Granos): settlements, secondary settlements,
// adjustments and deposit certifications.
package wslpg

import (
	"context"
	"strings"

	"github.com/rezonia/afipws/internal/afip"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/wsaa"
)

// Namespace is the LpgService target namespace
const Namespace = "http://serviciosjava.afip.gob.ar/wslpg/"

// Client calls WSLPG
type Client struct {
	*afip.Base
	settlements settlementQueue
	localities  localityCache
}

// New creates a WSLPG client for endpoint
func New(endpoint string, source wsaa.TicketSource, cuit int64, opts ...soap.Option) *Client {
	sc := soap.NewClient(model.ServiceWSLPG, endpoint, Namespace, opts...)
	return &Client{Base: afip.NewBase(sc, source, cuit)}
}

// ErrMsg joins the last errors as the service reports them
func (c *Client) ErrMsg() string {
	var parts []string
	for _, m := range c.LastErrors() {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, "\n")
}

// call posts op with the auth block and returns the response element. The
// errores list is turned into a *model.ServiceError.
func (c *Client) call(ctx context.Context, op string, fill func(r *soap.Element)) (*soap.Node, error) {
	cred, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	req := c.Client.NewRequest(op)
	cred.AddAuth(&req.Element, "auth", "cuit")
	if fill != nil {
		fill(&req.Element)
	}

	resp, err := c.Client.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.Record(op, analyzeErrors(resp), nil); err != nil {
		return resp, err
	}
	return resp, nil
}

// analyzeErrors reads errores/error{codigo,descripcion}
func analyzeErrors(ret *soap.Node) []model.Message {
	return soap.Messages(ret, "errores", "error", "codigo", "descripcion")
}

// yn renders a flag the way the service expects it
func yn(b bool) string {
	if b {
		return "S"
	}
	return "N"
}
