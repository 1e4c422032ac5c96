package wsaa

import (
	"context"
	"fmt"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// WSAA endpoints
const (
	EndpointHomologation = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"
	EndpointProduction   = "https://wsaa.afip.gov.ar/ws/services/LoginCms"

	Namespace = "http://wsaa.view.sua.dvadac.desein.afip.gov"
)

// Client calls the LoginCms web service
type Client struct {
	soap *soap.Client
}

// NewClient creates a WSAA client for endpoint
func NewClient(endpoint string, opts ...soap.Option) *Client {
	opts = append([]soap.Option{soap.WithQualifiedElements()}, opts...)
	return &Client{
		soap: soap.NewClient(model.ServiceWSAA, endpoint, Namespace, opts...),
	}
}

// LoginCMS exchanges a signed TRA for an access ticket
func (c *Client) LoginCMS(ctx context.Context, cms string) (*Ticket, error) {
	req := c.soap.NewRequest("loginCms")
	req.Add("in0", cms)

	resp, err := c.soap.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	ret := resp.Text("loginCmsReturn")
	if ret == "" {
		return nil, model.NewParseError(model.ServiceWSAA, "loginCmsReturn", "empty response", nil)
	}
	ticket, err := ParseTicket([]byte(ret))
	if err != nil {
		return nil, fmt.Errorf("failed to parse access ticket: %w", err)
	}
	return ticket, nil
}
