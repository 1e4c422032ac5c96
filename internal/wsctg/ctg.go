package wsctg

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// InitialRequest asks for a new CTG
type InitialRequest struct {
	WaybillNumber              int64 // número de carta de porte
	SpeciesCode                int
	ExchangerCUIT              int64 // cuit canjeador
	DestinationCUIT            int64
	RecipientCUIT              int64 // cuit destinatario
	OriginLocalityCode         int
	DestinationLocalityCode    int
	HarvestCode                string
	NetWeight                  int64 // kilos
	Hours                      int
	Plate                      string
	CarrierCUIT                int64
	DriverCUIT                 int64
	KmToTravel                 int
	ReferenceRate              decimal.Decimal
	BrokerCUIT                 int64
	CommercialSenderAsExchange int64
	CommercialSenderAsProducer int64
	Shift                      string
}

// Validate rejects requests the service would refuse
func (r InitialRequest) Validate() error {
	switch {
	case r.WaybillNumber <= 0:
		return model.NewValidationError("carta_porte", r.WaybillNumber, "positive", "waybill number is required")
	case r.NetWeight <= 0:
		return model.NewValidationError("peso_neto", r.NetWeight, "positive", "net weight must be positive")
	case r.DestinationCUIT == 0 || r.RecipientCUIT == 0:
		return model.NewValidationError("cuit_destino", nil, "required", "destination and recipient are required")
	}
	return nil
}

// Result is what the CTG state-changing operations return
type Result struct {
	WaybillNumber    int64           `json:"carta_porte"`
	CTG              int64           `json:"ctg"`
	Timestamp        string          `json:"fecha_hora"`
	ValidFrom        string          `json:"vigencia_desde,omitempty"`
	ValidTo          string          `json:"vigencia_hasta,omitempty"`
	ReferenceRate    decimal.Decimal `json:"tarifa_referencia"`
	TransactionCode  int64           `json:"codigo_transaccion,omitempty"`
	OperationCode    int64           `json:"codigo_operacion,omitempty"`
	Observations     string          `json:"observaciones,omitempty"`
	Controls         []model.Message `json:"controles,omitempty"`
	PrintCertificate bool            `json:"imprime_constancia,omitempty"`
}

func parseRequested(ret *soap.Node) *Result {
	datos := ret.Find("datosSolicitarCTGResponse")
	ctg := datos.Child("datosSolicitarCTG")
	return &Result{
		WaybillNumber:    datos.Int64("cartaPorte"),
		CTG:              ctg.Int64("ctg"),
		Timestamp:        ctg.Text("fechaEmision"),
		ValidFrom:        ctg.Text("fechaVigenciaDesde"),
		ValidTo:          ctg.Text("fechaVigenciaHasta"),
		ReferenceRate:    ctg.Decimal("tarifaReferencia"),
		Observations:     ret.Text("observacion"),
		Controls:         analyzeControls(ret),
		PrintCertificate: ret.Bool("imprimeConstancia"),
	}
}

func parseDatosResponse(ret *soap.Node) *Result {
	datos := ret.Find("datosResponse")
	return &Result{
		WaybillNumber:   datos.Int64("cartaPorte"),
		CTG:             datos.Int64("ctg"),
		Timestamp:       datos.Text("fechaHora"),
		TransactionCode: datos.Int64("codigoTransaccion"),
		OperationCode:   datos.Int64("codigoOperacion"),
		Observations:    ret.Text("observacion"),
		Controls:        analyzeControls(ret),
	}
}

// SolicitarCTGInicial requests a CTG for a waybill
func (c *Client) SolicitarCTGInicial(ctx context.Context, in InitialRequest) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ret, err := c.call(ctx, "solicitarCTGInicial", func(r *soap.Element) {
		r.Group("datosSolicitarCTGInicial").
			Add("cartaPorte", in.WaybillNumber).
			Add("codigoEspecie", in.SpeciesCode).
			AddOptional("cuitCanjeador", in.ExchangerCUIT).
			AddOptional("remitenteComercialComoCanjeador", in.CommercialSenderAsExchange).
			Add("cuitDestino", in.DestinationCUIT).
			Add("cuitDestinatario", in.RecipientCUIT).
			Add("codigoLocalidadOrigen", in.OriginLocalityCode).
			Add("codigoLocalidadDestino", in.DestinationLocalityCode).
			Add("codigoCosecha", in.HarvestCode).
			Add("pesoNeto", in.NetWeight).
			AddOptional("cuitTransportista", in.CarrierCUIT).
			AddOptional("cuitChofer", in.DriverCUIT).
			AddOptional("cantHoras", in.Hours).
			AddOptional("patente", in.Plate).
			AddOptional("kmARecorrer", in.KmToTravel).
			AddOptional("tarifaReferencia", in.ReferenceRate).
			AddOptional("cuitCorredor", in.BrokerCUIT).
			AddOptional("remitenteComercialComoProductor", in.CommercialSenderAsProducer).
			AddOptional("turno", in.Shift)
	})
	if err != nil {
		return nil, err
	}
	return parseRequested(ret), nil
}

// SolicitarCTGDatoPendiente completes a CTG that was granted with pending data
func (c *Client) SolicitarCTGDatoPendiente(ctx context.Context, waybill int64, hours int, plate string, carrierCUIT int64) (*Result, error) {
	ret, err := c.call(ctx, "solicitarCTGDatoPendiente", func(r *soap.Element) {
		r.Group("datosSolicitarCTGDatoPendiente").
			Add("cartaPorte", waybill).
			Add("cantHoras", hours).
			Add("patente", plate).
			Add("cuitTransportista", carrierCUIT)
	})
	if err != nil {
		return nil, err
	}
	return parseRequested(ret), nil
}

// ArrivalRequest confirms the arrival of a shipment
type ArrivalRequest struct {
	WaybillNumber int64
	CTG           int64
	CarrierCUIT   int64
	NetWeight     int64
	OwnUse        bool
	Establishment int64
	DriverCUIT    int64
}

// ConfirmarArribo confirms the arrival at destination
func (c *Client) ConfirmarArribo(ctx context.Context, in ArrivalRequest) (*Result, error) {
	ret, err := c.call(ctx, "confirmarArribo", func(r *soap.Element) {
		ownUse := "N"
		if in.OwnUse {
			ownUse = "S"
		}
		r.Group("datosConfirmarArribo").
			Add("cartaPorte", in.WaybillNumber).
			Add("ctg", in.CTG).
			Add("cuitTransportista", in.CarrierCUIT).
			AddOptional("cuitChofer", in.DriverCUIT).
			Add("cantKilosCartaPorte", in.NetWeight).
			Add("consumoPropio", ownUse).
			AddOptional("establecimiento", in.Establishment)
	})
	if err != nil {
		return nil, err
	}
	return parseDatosResponse(ret), nil
}

// ConfirmarDefinitivo confirms the final weight of a CTG
func (c *Client) ConfirmarDefinitivo(ctx context.Context, waybill, ctg int64, establishment int64, harvest string, netWeight int64) (*Result, error) {
	ret, err := c.call(ctx, "confirmarDefinitivo", func(r *soap.Element) {
		r.Group("datosConfirmarDefinitivo").
			Add("cartaPorte", waybill).
			Add("ctg", ctg).
			AddOptional("establecimiento", establishment).
			AddOptional("codigoCosecha", harvest).
			AddOptional("pesoNeto", netWeight)
	})
	if err != nil {
		return nil, err
	}
	return parseDatosResponse(ret), nil
}

// AnularCTG cancels a CTG
func (c *Client) AnularCTG(ctx context.Context, waybill, ctg int64) (*Result, error) {
	ret, err := c.call(ctx, "anularCTG", func(r *soap.Element) {
		r.Group("datosAnularCTG").Add("cartaPorte", waybill).Add("ctg", ctg)
	})
	if err != nil {
		return nil, err
	}
	return parseDatosResponse(ret), nil
}

// RechazarCTG rejects a CTG at destination
func (c *Client) RechazarCTG(ctx context.Context, waybill, ctg int64, reason string) (*Result, error) {
	ret, err := c.call(ctx, "rechazarCTG", func(r *soap.Element) {
		r.Group("datosRechazarCTG").
			Add("cartaPorte", waybill).
			Add("ctg", ctg).
			Add("motivoRechazo", reason)
	})
	if err != nil {
		return nil, err
	}
	return parseDatosResponse(ret), nil
}

// RegresarAOrigenCTGRechazado sends a rejected shipment back to its origin
func (c *Client) RegresarAOrigenCTGRechazado(ctx context.Context, waybill, ctg int64, km int) (*Result, error) {
	ret, err := c.call(ctx, "regresarAOrigenCTGRechazado", func(r *soap.Element) {
		r.Group("datosRegresarAOrigenCTGRechazado").
			Add("cartaPorte", waybill).
			Add("ctg", ctg).
			AddOptional("kmARecorrer", km)
	})
	if err != nil {
		return nil, err
	}
	return parseDatosResponse(ret), nil
}

// Redirect changes destination and recipient of a rejected CTG
type Redirect struct {
	WaybillNumber           int64
	CTG                     int64
	DestinationLocalityCode int
	DestinationCUIT         int64
	RecipientCUIT           int64
	KmToTravel              int
}

// CambiarDestinoDestinatarioCTGRechazado redirects a rejected shipment
func (c *Client) CambiarDestinoDestinatarioCTGRechazado(ctx context.Context, in Redirect) (*Result, error) {
	ret, err := c.call(ctx, "cambiarDestinoDestinatarioCTGRechazado", func(r *soap.Element) {
		r.Group("datosCambiarDestinoDestinatarioCTGRechazado").
			Add("cartaPorte", in.WaybillNumber).
			Add("ctg", in.CTG).
			AddOptional("codigoLocalidadDestino", in.DestinationLocalityCode).
			AddOptional("cuitDestino", in.DestinationCUIT).
			AddOptional("cuitDestinatario", in.RecipientCUIT).
			AddOptional("kmARecorrer", in.KmToTravel)
	})
	if err != nil {
		return nil, err
	}
	return parseDatosResponse(ret), nil
}
