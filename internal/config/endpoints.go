package config

import "github.com/rezonia/afipws/internal/model"

type endpointPair struct {
	homologation string
	production   string
}

var defaultEndpoints = map[model.Service]endpointPair{
	model.ServiceWSAA: {
		"https://wsaahomo.afip.gov.ar/ws/services/LoginCms",
		"https://wsaa.afip.gov.ar/ws/services/LoginCms",
	},
	model.ServiceWSCOC: {
		"https://fwshomo.afip.gov.ar/wscoc/COCService",
		"https://serviciosjava.afip.gob.ar/wscoc/COCService",
	},
	model.ServiceWSCTG: {
		"https://fwshomo.afip.gov.ar/wsctg/services/CTGService_v4.0",
		"https://serviciosjava.afip.gob.ar/wsctg/services/CTGService_v4.0",
	},
	model.ServiceWSLPG: {
		"https://fwshomo.afip.gov.ar/wslpg/LpgService",
		"https://serviciosjava.afip.gob.ar/wslpg/LpgService",
	},
	model.ServiceDepFiel: {
		"https://testdia.afip.gob.ar/Dia/Ws/wDigDepFiel/wDigDepFiel.asmx",
		"https://aws.afip.gov.ar/dia/ws/wDigDepFiel/wDigDepFiel.asmx",
	},
	model.ServiceCOT: {
		"https://cot.test.arba.gov.ar/TransporteBienes/SeguridadCliente/presentarRemitos.do",
		"https://cot.arba.gov.ar/TransporteBienes/SeguridadCliente/presentarRemitos.do",
	},
	model.ServiceIIBB: {
		"https://dfe.test.arba.gov.ar/DomicilioElectronico/SeguridadCliente/dfeServicioConsulta.do",
		"https://dfe.arba.gov.ar/DomicilioElectronico/SeguridadCliente/dfeServicioConsulta.do",
	},
	model.ServicePadron: {
		"https://soa.afip.gob.ar/",
		"https://soa.afip.gob.ar/",
	},
	model.ServiceTrazaMed: {
		"https://trazabilidad.pami.org.ar:9050/trazamed.WebService",
		"https://servicios.pami.org.ar/trazamed.WebService",
	},
	model.ServiceTrazaRenpre: {
		"https://trazabilidad.pami.org.ar:9050/trazamed.WebServiceSDRN",
		"https://servicios.pami.org.ar/trazamed.WebServiceSDRN",
	},
	model.ServiceTrazaVet: {
		"https://trazabilidad.pami.org.ar:9050/trazaenvet.WebService",
		"https://servicios.pami.org.ar/trazaenvet.WebService",
	},
	model.ServiceTrazaFito: {
		"https://trazabilidad.pami.org.ar:9050/trazaenagr.WebService",
		"https://servicios.pami.org.ar/trazaenagr.WebService",
	},
	model.ServiceTrazaProdMed: {
		"https://trazabilidad.pami.org.ar:9050/trazaenprodmed.WebService",
		"https://servicios.pami.org.ar/trazaenprodmed.WebService",
	},
}

// PadronZipURL is the published taxpayer registry archive
const PadronZipURL = "http://www.afip.gob.ar/genericos/cInscripcion/archivos/apellidoNombreDenominacion.zip"

// EndpointsConfig overrides individual service URLs
type EndpointsConfig struct {
	WSAA         string `yaml:"wsaa" env:"AFIPWS_WSAA_URL"`
	WSCOC        string `yaml:"wscoc" env:"AFIPWS_WSCOC_URL"`
	WSCTG        string `yaml:"wsctg" env:"AFIPWS_WSCTG_URL"`
	WSLPG        string `yaml:"wslpg" env:"AFIPWS_WSLPG_URL"`
	DepFiel      string `yaml:"wdigdepfiel" env:"AFIPWS_WDIGDEPFIEL_URL"`
	COT          string `yaml:"cot" env:"AFIPWS_COT_URL"`
	IIBB         string `yaml:"iibb" env:"AFIPWS_IIBB_URL"`
	Padron       string `yaml:"padron" env:"AFIPWS_PADRON_URL"`
	PadronZip    string `yaml:"padron_zip" env:"AFIPWS_PADRON_ZIP_URL"`
	TrazaMed     string `yaml:"trazamed" env:"AFIPWS_TRAZAMED_URL"`
	TrazaRenpre  string `yaml:"trazarenpre" env:"AFIPWS_TRAZARENPRE_URL"`
	TrazaVet     string `yaml:"trazavet" env:"AFIPWS_TRAZAVET_URL"`
	TrazaFito    string `yaml:"trazafito" env:"AFIPWS_TRAZAFITO_URL"`
	TrazaProdMed string `yaml:"trazaprodmed" env:"AFIPWS_TRAZAPRODMED_URL"`
}

func (e EndpointsConfig) override(service model.Service) string {
	switch service {
	case model.ServiceWSAA:
		return e.WSAA
	case model.ServiceWSCOC:
		return e.WSCOC
	case model.ServiceWSCTG:
		return e.WSCTG
	case model.ServiceWSLPG:
		return e.WSLPG
	case model.ServiceDepFiel:
		return e.DepFiel
	case model.ServiceCOT:
		return e.COT
	case model.ServiceIIBB:
		return e.IIBB
	case model.ServicePadron:
		return e.Padron
	case model.ServiceTrazaMed:
		return e.TrazaMed
	case model.ServiceTrazaRenpre:
		return e.TrazaRenpre
	case model.ServiceTrazaVet:
		return e.TrazaVet
	case model.ServiceTrazaFito:
		return e.TrazaFito
	case model.ServiceTrazaProdMed:
		return e.TrazaProdMed
	}
	return ""
}

// Endpoint returns the URL for service: the override when set, otherwise
// the production or homologation default
func (c *Config) Endpoint(service model.Service) string {
	if url := c.Endpoints.override(service); url != "" {
		return url
	}
	pair, ok := defaultEndpoints[service]
	if !ok {
		return ""
	}
	if c.Production {
		return pair.production
	}
	return pair.homologation
}

// PadronZip returns the registry archive URL
func (c *Config) PadronZip() string {
	if c.Endpoints.PadronZip != "" {
		return c.Endpoints.PadronZip
	}
	return PadronZipURL
}
