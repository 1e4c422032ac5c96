package wsctg

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/document"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Summary is a CTG row from the listing operations
type Summary struct {
	WaybillNumber int64  `json:"carta_porte"`
	CTG           int64  `json:"ctg"`
	State         string `json:"estado,omitempty"`
	Issued        string `json:"fecha_emision,omitempty"`
	Plate         string `json:"patente,omitempty"`
	Destination   string `json:"destino,omitempty"`
	Recipient     string `json:"destinatario,omitempty"`
	Observations  string `json:"observaciones,omitempty"`
}

func parseSummary(n *soap.Node) Summary {
	return Summary{
		WaybillNumber: n.Int64("cartaPorte"),
		CTG:           n.Int64("ctg"),
		State:         n.Text("estado"),
		Issued:        n.Text("fechaEmision"),
		Plate:         n.Text("patente"),
		Destination:   n.Text("destino"),
		Recipient:     n.Text("destinatario"),
		Observations:  n.Text("observaciones"),
	}
}

func parseSummaries(ret *soap.Node, container, item string) []Summary {
	var out []Summary
	for _, n := range ret.Find(container).All(item) {
		out = append(out, parseSummary(n))
	}
	return out
}

// Query filters ConsultarCTG
type Query struct {
	WaybillNumber int64
	CTG           int64
	Plate         string
	RequesterCUIT int64
	DestCUIT      int64
	IssuedFrom    time.Time
	IssuedTo      time.Time
}

// ConsultarCTG lists CTGs matching q
func (c *Client) ConsultarCTG(ctx context.Context, q Query) ([]Summary, error) {
	ret, err := c.call(ctx, "consultarCTG", func(r *soap.Element) {
		r.Group("consultarCTGDatos").
			AddOptional("cartaPorte", q.WaybillNumber).
			AddOptional("ctg", q.CTG).
			AddOptional("patente", q.Plate).
			AddOptional("cuitSolicitante", q.RequesterCUIT).
			AddOptional("cuitDestino", q.DestCUIT).
			AddOptional("fechaEmisionDesde", q.IssuedFrom).
			AddOptional("fechaEmisionHasta", q.IssuedTo)
	})
	if err != nil {
		return nil, err
	}
	return parseSummaries(ret, "arrayDatosConsultarCTG", "datosConsultarCTG"), nil
}

// ConsultarCTGRechazados lists rejected CTGs awaiting a decision
func (c *Client) ConsultarCTGRechazados(ctx context.Context) ([]Summary, error) {
	ret, err := c.call(ctx, "consultarCTGRechazados", nil)
	if err != nil {
		return nil, err
	}
	return parseSummaries(ret, "arrayConsultarCTGRechazados", "datosConsultarCTGRechazado"), nil
}

// ConsultarCTGActivosPorPatente lists active CTGs of a vehicle
func (c *Client) ConsultarCTGActivosPorPatente(ctx context.Context, plate string) ([]Summary, error) {
	ret, err := c.call(ctx, "consultarCTGActivosPorPatente", func(r *soap.Element) {
		r.Add("patente", plate)
	})
	if err != nil {
		return nil, err
	}
	return parseSummaries(ret, "arrayConsultarCTGActivosPorPatenteResponse", "datosConsultarCTGActivosPorPatente"), nil
}

// Pending groups the CTGs waiting for the caller's resolution
type Pending struct {
	Rejected  []Summary `json:"rechazados"`
	Granted   []Summary `json:"otorgados"`
	Confirmed []Summary `json:"confirmados"`
}

// CTGsPendientesResolucion lists CTGs pending resolution
func (c *Client) CTGsPendientesResolucion(ctx context.Context) (*Pending, error) {
	ret, err := c.call(ctx, "CTGsPendientesResolucion", nil)
	if err != nil {
		return nil, err
	}
	return &Pending{
		Rejected:  parseSummaries(ret, "arrayCTGsRechazadosAResolver", "datosCTG"),
		Granted:   parseSummaries(ret, "arrayCTGsOtorgadosAResolver", "datosCTG"),
		Confirmed: parseSummaries(ret, "arrayCTGsConfirmadosAResolver", "datosCTG"),
	}, nil
}

// Detail is the full record of a CTG
type Detail struct {
	WaybillNumber       int64           `json:"carta_porte"`
	CTG                 int64           `json:"ctg"`
	Requester           string          `json:"solicitante"`
	State               string          `json:"estado"`
	Species             string          `json:"especie"`
	Harvest             string          `json:"cosecha"`
	ExchangerCUIT       int64           `json:"cuit_canjeador,omitempty"`
	DestinationCUIT     int64           `json:"cuit_destino"`
	RecipientCUIT       int64           `json:"cuit_destinatario"`
	CarrierCUIT         int64           `json:"cuit_transportista,omitempty"`
	DriverCUIT          int64           `json:"cuit_chofer,omitempty"`
	Establishment       string          `json:"establecimiento,omitempty"`
	OriginLocality      string          `json:"localidad_origen"`
	DestinationLocality string          `json:"localidad_destino"`
	Issued              string          `json:"fecha_emision"`
	ValidFrom           string          `json:"vigencia_desde"`
	ValidTo             string          `json:"vigencia_hasta"`
	NetWeight           int64           `json:"peso_neto"`
	ConfirmedWeight     int64           `json:"peso_neto_confirmado_definitivo,omitempty"`
	ReferenceRate       decimal.Decimal `json:"tarifa_referencia"`
	KmTraveled          int             `json:"km_recorridos,omitempty"`
	Plate               string          `json:"patente,omitempty"`
}

// ConsultarDetalleCTG returns the detail of a CTG; nil when the service has
// no data for it
func (c *Client) ConsultarDetalleCTG(ctx context.Context, ctg int64) (*Detail, error) {
	ret, err := c.call(ctx, "consultarDetalleCTG", func(r *soap.Element) {
		r.Add("ctg", ctg)
	})
	if err != nil {
		return nil, err
	}
	d := ret.Find("consultarDetalleCTGDatos")
	if !d.Exists() {
		return nil, nil
	}
	return &Detail{
		WaybillNumber:       d.Int64("cartaPorte"),
		CTG:                 d.Int64("ctg"),
		Requester:           d.Text("solicitante"),
		State:               d.Text("estado"),
		Species:             d.Text("especie"),
		Harvest:             d.Text("cosecha"),
		ExchangerCUIT:       d.Int64("cuitCanjeador"),
		DestinationCUIT:     d.Int64("cuitDestino"),
		RecipientCUIT:       d.Int64("cuitDestinatario"),
		CarrierCUIT:         d.Int64("cuitTransportista"),
		DriverCUIT:          d.Int64("cuitChofer"),
		Establishment:       d.Text("establecimiento"),
		OriginLocality:      d.Text("localidadOrigen"),
		DestinationLocality: d.Text("localidadDestino"),
		Issued:              d.Text("fechaEmision"),
		ValidFrom:           d.Text("fechaVigenciaDesde"),
		ValidTo:             d.Text("fechaVigenciaHasta"),
		NetWeight:           d.Int64("pesoNetoCarga"),
		ConfirmedWeight:     d.Int64("pesoNetoConfirmadoDefinitivo"),
		ReferenceRate:       d.Decimal("tarifaReferencia"),
		KmTraveled:          d.Int("kmRecorridos"),
		Plate:               d.Text("patente"),
	}, nil
}

// ConsultarConstanciaCTGPDF downloads the CTG certificate and saves it to path
func (c *Client) ConsultarConstanciaCTGPDF(ctx context.Context, ctg int64, path string) (*document.Info, error) {
	ret, err := c.call(ctx, "consultarConstanciaCTGPDF", func(r *soap.Element) {
		r.Add("ctg", ctg)
	})
	if err != nil {
		return nil, err
	}
	encoded := ret.Text("archivo")
	if encoded == "" {
		return nil, model.NewParseError(model.ServiceWSCTG, "archivo", "response carries no PDF", nil)
	}
	data, err := document.DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return document.SavePDF(path, data)
}

// ConsultarProvincias lists provinces
func (c *Client) ConsultarProvincias(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarProvincias", nil, "arrayProvincias", "provincia")
}

// ConsultarLocalidadesPorProvincia lists the localities of a province
func (c *Client) ConsultarLocalidadesPorProvincia(ctx context.Context, province int) ([]model.Parameter, error) {
	return c.table(ctx, "consultarLocalidadesPorProvincia", func(r *soap.Element) {
		r.Add("codigoProvincia", province)
	}, "arrayLocalidades", "localidad")
}

// ConsultarEspecies lists grain species
func (c *Client) ConsultarEspecies(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarEspecies", nil, "arrayEspecies", "especie")
}

// ConsultarCosechas lists harvest codes
func (c *Client) ConsultarCosechas(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarCosechas", nil, "arrayCosechas", "cosecha")
}

// ConsultarEstablecimientos lists the caller's registered establishments
func (c *Client) ConsultarEstablecimientos(ctx context.Context) ([]string, error) {
	ret, err := c.call(ctx, "consultarEstablecimientos", nil)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range ret.Find("arrayEstablecimientos").All("establecimiento") {
		out = append(out, n.Text())
	}
	return out, nil
}

func (c *Client) table(ctx context.Context, op string, fill func(*soap.Element), container, item string) ([]model.Parameter, error) {
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	return soap.Parameters(ret, container, item, "codigo", "descripcion"), nil
}
