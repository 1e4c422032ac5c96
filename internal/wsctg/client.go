// Package wsctg is the client for the grain transport code service (CTG)
package wsctg

import (
	"context"
	"strings"

	"github.com/rezonia/afipws/internal/afip"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/wsaa"
)

// Namespace is the CTGService_v4.0 target namespace
const Namespace = "http://impl.service.wsctg.afip.gov.ar/CTGService_v4.0/"

// Client calls WSCTG
type Client struct {
	*afip.Base
}

// New creates a WSCTG client for endpoint
func New(endpoint string, source wsaa.TicketSource, cuit int64, opts ...soap.Option) *Client {
	sc := soap.NewClient(model.ServiceWSCTG, endpoint, Namespace, opts...)
	return &Client{Base: afip.NewBase(sc, source, cuit)}
}

// ErrMsg joins the last errors the way the service prints them
func (c *Client) ErrMsg() string {
	var parts []string
	for _, m := range c.LastErrors() {
		parts = append(parts, m.Description)
	}
	return strings.Join(parts, " ")
}

// call wraps fill's payload in request/auth, posts it and analyses the
// response element
func (c *Client) call(ctx context.Context, op string, fill func(r *soap.Element)) (*soap.Node, error) {
	cred, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	req := c.Client.NewRequest(op)
	r := req.Group("request")
	cred.AddAuth(r, "auth", "cuitRepresentado")
	if fill != nil {
		fill(r)
	}

	resp, err := c.Client.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	ret := resp.Child("response")
	if !ret.Exists() {
		ret = resp
	}
	if err := c.Record(op, analyzeErrors(ret), analyzeControls(ret)); err != nil {
		return ret, err
	}
	return ret, nil
}

// analyzeErrors reads arrayErrores/error; each entry is a plain message
func analyzeErrors(ret *soap.Node) []model.Message {
	return soap.Messages(ret, "arrayErrores", "error", "", "")
}

// analyzeControls reads arrayControles/control{tipo,descripcion}
func analyzeControls(ret *soap.Node) []model.Message {
	return soap.Messages(ret, "arrayControles", "control", "tipo", "descripcion")
}
