package wscoc

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/afipws/internal/decimal"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// State codes for InformarSolicitudCompraDivisa
const (
	StateConfirmed        = "CO"
	StateCustomerDesisted = "DC"
	StateBankDesisted     = "DB"
)

// Party is a taxpayer referenced by a request
type Party struct {
	CUIT int64  `json:"cuit"`
	Name string `json:"denominacion,omitempty"`
}

// Tourist identifies a foreign tourist buyer
type Tourist struct {
	DocType   int    `json:"tipo_doc"`
	DocNumber int64  `json:"numero_doc"`
	Name      string `json:"apellido_nombre"`
}

// Solicitud is a currency purchase request as reported by the service
type Solicitud struct {
	Code            int64           `json:"codigo_solicitud"`
	RequestDate     string          `json:"fecha_solicitud,omitempty"`
	COC             int64           `json:"coc,omitempty"`
	COCIssued       string          `json:"fecha_emision_coc,omitempty"`
	COCState        string          `json:"estado_coc,omitempty"`
	COCStateDate    string          `json:"fecha_estado_coc,omitempty"`
	State           string          `json:"estado_solicitud,omitempty"`
	StateDate       string          `json:"fecha_estado,omitempty"`
	Buyer           Party           `json:"comprador"`
	Representative  *Party          `json:"representante,omitempty"`
	Tourist         *Tourist        `json:"turista,omitempty"`
	CurrencyCode    string          `json:"codigo_moneda"`
	ExchangeRate    decimal.Decimal `json:"cotizacion_moneda"`
	AmountPesos     decimal.Decimal `json:"monto_pesos"`
	DestinationCode int             `json:"codigo_destino"`
	DJAI            string          `json:"djai,omitempty"`
	DJAS            string          `json:"djas,omitempty"`
	ExceptionDJAI   int             `json:"codigo_excepcion_djai,omitempty"`
	ExceptionDJAS   int             `json:"codigo_excepcion_djas,omitempty"`
	ReferenceType   int             `json:"tipo_referencia,omitempty"`
	ReferenceCode   string          `json:"codigo_referencia,omitempty"`
	Inconsistencies []model.Message `json:"inconsistencias,omitempty"`
}

func parseSolicitud(d *soap.Node, inconsistencies []model.Message) *Solicitud {
	if !d.Exists() {
		return nil
	}
	s := &Solicitud{
		Code:            d.Int64("codigoSolicitud"),
		RequestDate:     d.Text("fechaSolicitud"),
		COC:             d.Int64("COC"),
		COCIssued:       d.Text("fechaEmisionCOC"),
		COCState:        d.Text("estadoCOC"),
		COCStateDate:    d.Text("fechaEstadoCOC"),
		State:           d.Text("estadoSolicitud"),
		StateDate:       d.Text("fechaEstado"),
		CurrencyCode:    d.Text("codigoMoneda"),
		ExchangeRate:    d.Decimal("cotizacionMoneda"),
		AmountPesos:     d.Decimal("montoPesos"),
		DestinationCode: d.Int("codigoDestino"),
		DJAI:            d.Text("djai"),
		DJAS:            d.Text("djas"),
		ExceptionDJAI:   d.Int("codigoExcepcionDJAI"),
		ExceptionDJAS:   d.Int("codigoExcepcionDJAS"),
		ReferenceType:   d.Int("referencia", "tipo"),
		ReferenceCode:   d.Text("referencia", "codigo"),
		Inconsistencies: inconsistencies,
	}
	if buyer := d.Child("detalleCUITComprador"); buyer.Exists() {
		s.Buyer = Party{CUIT: buyer.Int64("cuit"), Name: buyer.Text("denominacion")}
	}
	if rep := d.Child("DetalleCUITRepresentante"); rep.Exists() {
		s.Representative = &Party{CUIT: rep.Int64("cuit"), Name: rep.Text("denominacion")}
	}
	if tur := d.Child("detalleTurExtComprador"); tur.Exists() {
		s.Tourist = &Tourist{
			DocType:   tur.Int("tipoDoc"),
			DocNumber: tur.Int64("numeroDoc"),
			Name:      tur.Text("apellidoNombre"),
		}
	}
	return s
}

func (c *Client) solicitud(ctx context.Context, op string, fill func(*soap.Element)) (*Solicitud, error) {
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	s := parseSolicitud(ret.Find("detalleSolicitud"), c.LastInconsistencies())
	if s == nil {
		return nil, model.NewParseError(model.ServiceWSCOC, "detalleSolicitud", "missing in "+op+" response", nil)
	}
	return s, nil
}

// Purchase is a request for foreign currency by a taxpayer
type Purchase struct {
	BuyerCUIT          int64
	CurrencyCode       string
	ExchangeRate       decimal.Decimal
	AmountPesos        decimal.Decimal
	RepresentativeCUIT int64
	DestinationCode    int
	DJAI               string
	ExceptionDJAI      int
	DJAS               string
	ExceptionDJAS      int
	ReferenceType      int
	ReferenceCode      string
}

// Validate rejects requests missing the amounts or the buyer
func (p Purchase) Validate() error {
	switch {
	case p.BuyerCUIT == 0:
		return model.NewValidationError("cuit_comprador", nil, "required", "buyer CUIT is required")
	case !p.AmountPesos.IsPositive():
		return model.NewValidationError("monto_pesos", p.AmountPesos, "positive", "amount must be positive")
	case !p.ExchangeRate.IsPositive():
		return model.NewValidationError("cotizacion_moneda", p.ExchangeRate, "positive", "exchange rate must be positive")
	}
	return nil
}

// ForeignAmount is the amount of currency bought at the declared rate
func (p Purchase) ForeignAmount() decimal.Decimal {
	return money.Div(p.AmountPesos, p.ExchangeRate)
}

// GenerarSolicitudCompraDivisa registers a purchase request
func (c *Client) GenerarSolicitudCompraDivisa(ctx context.Context, p Purchase) (*Solicitud, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return c.solicitud(ctx, "generarSolicitudCompraDivisa", func(r *soap.Element) {
		r.Add("cuitComprador", p.BuyerCUIT).
			Add("codigoMoneda", p.CurrencyCode).
			Add("cotizacionMoneda", p.ExchangeRate).
			Add("montoPesos", p.AmountPesos).
			AddOptional("cuitRepresentante", p.RepresentativeCUIT).
			Add("codigoDestino", p.DestinationCode).
			AddOptional("djai", p.DJAI).
			AddOptional("codigoExcepcionDJAI", p.ExceptionDJAI).
			AddOptional("djas", p.DJAS).
			AddOptional("codigoExcepcionDJAS", p.ExceptionDJAS)
		if p.ReferenceType != 0 {
			r.Group("referencia").Add("tipo", p.ReferenceType).Add("codigo", p.ReferenceCode)
		}
	})
}

// TouristPurchase is a request for a foreign tourist
type TouristPurchase struct {
	Tourist            Tourist
	CurrencyCode       string
	ExchangeRate       decimal.Decimal
	AmountPesos        decimal.Decimal
	RepresentativeCUIT int64
	DestinationCode    int
}

// GenerarSolicitudCompraDivisaTurExt registers a foreign tourist request
func (c *Client) GenerarSolicitudCompraDivisaTurExt(ctx context.Context, p TouristPurchase) (*Solicitud, error) {
	if p.Tourist.DocNumber == 0 {
		return nil, model.NewValidationError("numero_doc", nil, "required", "tourist document is required")
	}
	return c.solicitud(ctx, "generarSolicitudCompraDivisaTurExt", func(r *soap.Element) {
		r.Group("detalleTurExtComprador").
			Add("tipoDoc", p.Tourist.DocType).
			Add("numeroDoc", p.Tourist.DocNumber).
			Add("apellidoNombre", p.Tourist.Name)
		r.Add("codigoMoneda", p.CurrencyCode).
			Add("cotizacionMoneda", p.ExchangeRate).
			Add("montoPesos", p.AmountPesos).
			AddOptional("cuitRepresentante", p.RepresentativeCUIT).
			Add("codigoDestino", p.DestinationCode)
	})
}

// InformarSolicitudCompraDivisa moves a request to a new state (CO, DC, DB)
func (c *Client) InformarSolicitudCompraDivisa(ctx context.Context, code int64, newState string) (*Solicitud, error) {
	switch newState {
	case StateConfirmed, StateCustomerDesisted, StateBankDesisted:
	default:
		return nil, model.NewValidationError("nuevo_estado", newState, "enum", "state must be CO, DC or DB")
	}
	return c.solicitud(ctx, "informarSolicitudCompraDivisa", func(r *soap.Element) {
		r.Add("codigoSolicitud", code).Add("nuevoEstado", newState)
	})
}

// ConsultarCOC fetches the request behind a COC
func (c *Client) ConsultarCOC(ctx context.Context, coc int64) (*Solicitud, error) {
	return c.solicitud(ctx, "consultarCOC", func(r *soap.Element) {
		r.Add("coc", coc)
	})
}

// AnularCOC cancels a COC
func (c *Client) AnularCOC(ctx context.Context, coc, buyerCUIT int64) (*Solicitud, error) {
	return c.solicitud(ctx, "anularCOC", func(r *soap.Element) {
		r.Add("coc", coc).AddOptional("cuitComprador", buyerCUIT)
	})
}

// ConsultarSolicitudCompraDivisa fetches a request by code
func (c *Client) ConsultarSolicitudCompraDivisa(ctx context.Context, code int64) (*Solicitud, error) {
	return c.solicitud(ctx, "consultarSolicitudCompraDivisa", func(r *soap.Element) {
		r.Add("codigoSolicitud", code)
	})
}

// Filter narrows ConsultarSolicitudesCompraDivisas
type Filter struct {
	BuyerCUIT  int64
	State      string
	IssuedFrom time.Time
	IssuedTo   time.Time
}

// ConsultarSolicitudesCompraDivisas lists requests matching f
func (c *Client) ConsultarSolicitudesCompraDivisas(ctx context.Context, f Filter) ([]Solicitud, error) {
	ret, err := c.call(ctx, "consultarSolicitudesCompraDivisas", func(r *soap.Element) {
		r.AddOptional("cuitComprador", f.BuyerCUIT).
			AddOptional("estadoSolicitud", f.State).
			AddOptional("fechaEmisionDesde", f.IssuedFrom).
			AddOptional("fechaEmisionHasta", f.IssuedTo)
	})
	if err != nil {
		return nil, err
	}
	var out []Solicitud
	for _, d := range ret.Find("arrayDetallesSolicitudes").Children() {
		if s := parseSolicitud(d, nil); s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// ConsultarCUIT finds the CUITs registered for a document
func (c *Client) ConsultarCUIT(ctx context.Context, docNumber int64, docType int) ([]Party, error) {
	ret, err := c.call(ctx, "consultarCUIT", func(r *soap.Element) {
		r.Add("numeroDocumento", docNumber).Add("tipoDocumento", docType)
	})
	if err != nil {
		return nil, err
	}
	var out []Party
	for _, d := range ret.Find("arrayCuits").Children() {
		out = append(out, Party{CUIT: d.Int64("cuit"), Name: d.Text("denominacion")})
	}
	return out, nil
}

// Declaration is the status of an import declaration (DJAI/DJAS) or reference
type Declaration struct {
	Code         string          `json:"codigo"`
	CUIT         int64           `json:"cuit,omitempty"`
	State        string          `json:"estado"`
	Amount       decimal.Decimal `json:"monto"`
	CurrencyCode string          `json:"codigo_moneda,omitempty"`
}

func parseDeclaration(ret *soap.Node, codeTag string) *Declaration {
	return &Declaration{
		Code:         ret.Find(codeTag).Text(),
		CUIT:         ret.Find("cuit").Int64(),
		State:        ret.Find("estado").Text(),
		Amount:       ret.Find("monto").Decimal(),
		CurrencyCode: ret.Find("codigoMoneda").Text(),
	}
}

// ConsultarDJAI checks an import sworn statement
func (c *Client) ConsultarDJAI(ctx context.Context, djai string, cuit int64) (*Declaration, error) {
	ret, err := c.call(ctx, "consultarDJAI", func(r *soap.Element) {
		r.Add("djai", djai).Add("cuit", cuit)
	})
	if err != nil {
		return nil, err
	}
	return parseDeclaration(ret, "djai"), nil
}

// ConsultarDJAS checks a services sworn statement
func (c *Client) ConsultarDJAS(ctx context.Context, djas string, cuit int64) (*Declaration, error) {
	ret, err := c.call(ctx, "consultarDJAS", func(r *soap.Element) {
		r.Add("djas", djas).Add("cuit", cuit)
	})
	if err != nil {
		return nil, err
	}
	return parseDeclaration(ret, "djas"), nil
}

// ConsultarReferencia checks a reference of the given type
func (c *Client) ConsultarReferencia(ctx context.Context, refType int, code string) (*Declaration, error) {
	ret, err := c.call(ctx, "consultarReferencia", func(r *soap.Element) {
		r.Add("tipoReferencia", refType).Add("codigoReferencia", code)
	})
	if err != nil {
		return nil, err
	}
	return parseDeclaration(ret, "codigo"), nil
}
