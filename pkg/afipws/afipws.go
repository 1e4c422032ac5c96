// Package afipws provides a public API for the Argentine government web
// services: AFIP (WSAA, WSCOC, WSCTG, WSLPG, wDigDepFiel, Padrón), ARBA
// (COT, IIBB) and the PAMI/ANMAT/SENASA/SEDRONAR traceability services.
//
// Example usage:
//
//	cfg, err := afipws.LoadConfig("afipws.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := afipws.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	ctg, err := client.WSCTG(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	status, err := ctg.Dummy(ctx)
package afipws

import (
	"github.com/rezonia/afipws/internal/config"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/padron"
	"github.com/rezonia/afipws/internal/wsaa"
)

// Re-export core types for public API
type (
	Config       = config.Config
	Service      = model.Service
	ServerStatus = model.ServerStatus
	Message      = model.Message
	Parameter    = model.Parameter
	Ticket       = wsaa.Ticket
	TicketSource = wsaa.TicketSource
	Taxpayer     = padron.Taxpayer
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
	ServiceError    = model.ServiceError
)

// Re-export service identifiers
const (
	ServiceWSAA         = model.ServiceWSAA
	ServiceWSCOC        = model.ServiceWSCOC
	ServiceWSCTG        = model.ServiceWSCTG
	ServiceWSLPG        = model.ServiceWSLPG
	ServiceDepFiel      = model.ServiceDepFiel
	ServicePadron       = model.ServicePadron
	ServiceCOT          = model.ServiceCOT
	ServiceIIBB         = model.ServiceIIBB
	ServiceTrazaMed     = model.ServiceTrazaMed
	ServiceTrazaVet     = model.ServiceTrazaVet
	ServiceTrazaFito    = model.ServiceTrazaFito
	ServiceTrazaProdMed = model.ServiceTrazaProdMed
	ServiceTrazaRenpre  = model.ServiceTrazaRenpre
)

// LoadConfig reads path (optional), .env and the environment
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the homologation configuration
func DefaultConfig() *Config {
	return config.Default()
}
