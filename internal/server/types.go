package server

import (
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/padron"
	"github.com/rezonia/afipws/internal/wsaa"
)

// ServicesResponse lists the services available for status checks
type ServicesResponse struct {
	Services []model.Service `json:"services"`
}

// StatusResponse is the response for the status endpoint
type StatusResponse struct {
	Service model.Service `json:"service"`
	OK      bool          `json:"ok"`
	model.ServerStatus
}

// SearchResponse is the response for padron name searches
type SearchResponse struct {
	Query   string             `json:"query"`
	Results []*padron.Taxpayer `json:"results"`
}

// TicketResponse describes an access ticket without its credentials
type TicketResponse struct {
	*wsaa.Ticket
	CUIT      string `json:"cuit,omitempty"`
	Expired   bool   `json:"expired"`
	ExpiresIn string `json:"expires_in"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
