package wslpg

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// SecondarySettlement is a secondary grain settlement (LSG), issued by
// whoever resells grain bought from a primary settlement
type SecondarySettlement struct {
	IssuePoint          int
	OrderNumber         int64
	ContractNumber      int64
	BuyerCUIT           int64
	BuyerGrossIncomeNo  int64
	PortCode            int
	PortLocality        string
	GrainCode           int
	Tons                decimal.Decimal
	SellerCUIT          int64
	SellerActivity      int
	SellerGrossIncomeNo int64
	BrokerActs          bool
	BrokerSettles       bool
	BrokerCUIT          int64
	BrokerGrossIncomeNo int64
	PriceDate           time.Time
	ReferencePrice      decimal.Decimal
	OperationPrice      decimal.Decimal
	IVARate             decimal.Decimal
	Campaign            int
	Locality            int
	Province            int
	AdditionalData      string

	Deductions   []Deduction
	Perceptions  []Perception
	Optionals    []model.Parameter
	PaperInvoice *PaperInvoice
}

// CrearLiqSecundariaBase starts a secondary settlement from its header
func CrearLiqSecundariaBase(header SecondarySettlement) *SecondarySettlement {
	s := header
	s.Deductions = nil
	s.Perceptions = nil
	s.Optionals = nil
	s.PaperInvoice = nil
	return &s
}

// AgregarDeduccion adds a deduction
func (s *SecondarySettlement) AgregarDeduccion(d Deduction) *SecondarySettlement {
	s.Deductions = append(s.Deductions, d)
	return s
}

// AgregarPercepcion adds a perception
func (s *SecondarySettlement) AgregarPercepcion(p Perception) *SecondarySettlement {
	s.Perceptions = append(s.Perceptions, p)
	return s
}

// AgregarOpcional adds an optional code/description pair
func (s *SecondarySettlement) AgregarOpcional(code, description string) *SecondarySettlement {
	s.Optionals = append(s.Optionals, model.Parameter{Code: code, Description: description})
	return s
}

// AgregarFacturaPapel sets the paper invoice
func (s *SecondarySettlement) AgregarFacturaPapel(p PaperInvoice) *SecondarySettlement {
	s.PaperInvoice = &p
	return s
}

// Validate checks the header before calling the service
func (s *SecondarySettlement) Validate() error {
	switch {
	case s.IssuePoint <= 0:
		return model.NewValidationError("pto_emision", s.IssuePoint, "positive", "issue point is required")
	case s.OrderNumber <= 0:
		return model.NewValidationError("nro_orden", s.OrderNumber, "positive", "order number is required")
	case s.BuyerCUIT == 0 || s.SellerCUIT == 0:
		return model.NewValidationError("cuit", nil, "required", "buyer and seller are required")
	case !s.Tons.IsPositive():
		return model.NewValidationError("cantidad_tn", s.Tons.String(), "positive", "quantity is required")
	}
	return nil
}

func (s *SecondarySettlement) write(r *soap.Element) {
	liq := r.Group("liquidacion")
	liq.Add("ptoEmision", s.IssuePoint).
		Add("nroOrden", s.OrderNumber).
		AddOptional("numeroContrato", s.ContractNumber).
		Add("cuitComprador", s.BuyerCUIT).
		Add("nroIngBrutoComprador", s.BuyerGrossIncomeNo).
		AddOptional("codPuerto", s.PortCode).
		AddOptional("desPuertoLocalidad", s.PortLocality).
		Add("codGrano", s.GrainCode).
		Add("cantidadTn", s.Tons).
		Add("cuitVendedor", s.SellerCUIT).
		AddOptional("nroActVendedor", s.SellerActivity).
		Add("nroIngBrutoVendedor", s.SellerGrossIncomeNo).
		Add("actuaCorredor", yn(s.BrokerActs)).
		Add("liquidaCorredor", yn(s.BrokerSettles)).
		AddOptional("cuitCorredor", s.BrokerCUIT).
		AddOptional("nroIngBrutoCorredor", s.BrokerGrossIncomeNo).
		Add("fechaPrecioOperacion", s.PriceDate).
		AddOptional("precioRefTn", s.ReferencePrice).
		Add("precioOperacion", s.OperationPrice).
		Add("alicIvaOperacion", s.IVARate).
		Add("campaniaPPal", s.Campaign).
		Add("codLocalidad", s.Locality).
		Add("codProvincia", s.Province).
		AddOptional("datosAdicionales", s.AdditionalData)

	if len(s.Optionals) > 0 {
		opts := liq.Group("opcionales")
		for _, o := range s.Optionals {
			opts.Group("opcional").Add("codigo", o.Code).Add("descripcion", o.Description)
		}
	}
	if p := s.PaperInvoice; p != nil {
		liq.Group("factura").
			Add("nroCAI", p.CAI).
			Add("nroFactura", p.Number).
			Add("fechaFactura", p.Date).
			Add("tipoComprobante", p.Voucher)
	}

	writeDeductions(r, s.Deductions)
	writePerceptions(r, s.Perceptions)
}

// AutorizarLiquidacionSecundaria authorizes a secondary settlement
func (c *Client) AutorizarLiquidacionSecundaria(ctx context.Context, s *SecondarySettlement) (*Authorization, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return c.authorize(ctx, "lsgAutorizar", s.write)
}
