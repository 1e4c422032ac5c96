package wslpg

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// AdjustmentHeader identifies the settlement being adjusted. Which fields are
// needed depends on the flavour: unified adjustments reference the adjusted
// COE, contract adjustments the contract, paper adjustments the form.
type AdjustmentHeader struct {
	IssuePoint           int
	OrderNumber          int64
	AdjustedCOE          int64
	ContractNumber       int64
	FormType             string
	FormNumber           string
	Activity             int
	GrainCode            int
	SellerCUIT           int64
	BuyerCUIT            int64
	BrokerCUIT           int64
	SellerGrossIncomeNo  int64
	BuyerGrossIncomeNo   int64
	BrokerGrossIncomeNo  int64
	OperationType        int
	ReferencePricePerTon decimal.Decimal
	DeliveredGrade       string
	DeliveredGradeValue  decimal.Decimal
	FreightPricePerTon   decimal.Decimal
	PortCode             int
	PortLocality         string
	Province             int
	Locality             int
	BrokerCommission     decimal.Decimal
}

// AdjustmentPart is the credit or debit side of an adjustment
type AdjustmentPart struct {
	AdditionalData         string
	ConceptIVA0            string
	AmountIVA0             decimal.Decimal
	ConceptIVA105          string
	AmountIVA105           decimal.Decimal
	ConceptIVA21           string
	AmountIVA21            decimal.Decimal
	NetWeightDifference    int64
	OperationPriceDiff     decimal.Decimal
	Grade                  string
	GradeValue             decimal.Decimal
	Factor                 decimal.Decimal
	FreightPricePerTonDiff decimal.Decimal

	Retentions  []Retention
	Deductions  []Deduction
	Perceptions []Perception
}

// AgregarRetencion adds a retention to this side
func (p *AdjustmentPart) AgregarRetencion(r Retention) *AdjustmentPart {
	p.Retentions = append(p.Retentions, r)
	return p
}

// AgregarDeduccion adds a deduction to this side
func (p *AdjustmentPart) AgregarDeduccion(d Deduction) *AdjustmentPart {
	p.Deductions = append(p.Deductions, d)
	return p
}

// AgregarPercepcion adds a perception to this side
func (p *AdjustmentPart) AgregarPercepcion(x Perception) *AdjustmentPart {
	p.Perceptions = append(p.Perceptions, x)
	return p
}

// Fusion identifies a merged company in a secondary adjustment
type Fusion struct {
	GrossIncomeNo int64
	Activity      int
}

// Adjustment is a settlement adjustment being built
type Adjustment struct {
	Header       AdjustmentHeader
	Credit       *AdjustmentPart
	Debit        *AdjustmentPart
	Certificates []Certificate
	Fusion       *Fusion
}

// CrearAjusteBase starts an adjustment from its header
func CrearAjusteBase(header AdjustmentHeader) *Adjustment {
	return &Adjustment{Header: header}
}

// CrearAjusteCredito sets the credit side and returns it for further additions
func (a *Adjustment) CrearAjusteCredito(p AdjustmentPart) *AdjustmentPart {
	a.Credit = &p
	return a.Credit
}

// CrearAjusteDebito sets the debit side and returns it for further additions
func (a *Adjustment) CrearAjusteDebito(p AdjustmentPart) *AdjustmentPart {
	a.Debit = &p
	return a.Debit
}

// AgregarCertificado adds a deposit certificate to a unified adjustment
func (a *Adjustment) AgregarCertificado(c Certificate) *Adjustment {
	a.Certificates = append(a.Certificates, c)
	return a
}

// AgregarFusion records the merged company for secondary adjustments
func (a *Adjustment) AgregarFusion(grossIncomeNo int64, activity int) *Adjustment {
	a.Fusion = &Fusion{GrossIncomeNo: grossIncomeNo, Activity: activity}
	return a
}

// Validate requires an order number and at least one side
func (a *Adjustment) Validate() error {
	switch {
	case a.Header.IssuePoint <= 0:
		return model.NewValidationError("pto_emision", a.Header.IssuePoint, "positive", "issue point is required")
	case a.Header.OrderNumber <= 0:
		return model.NewValidationError("nro_orden", a.Header.OrderNumber, "positive", "order number is required")
	case a.Credit == nil && a.Debit == nil:
		return model.NewValidationError("ajuste", nil, "required", "a credit or debit side is required")
	}
	return nil
}

func writePart(r *soap.Element, name string, p *AdjustmentPart) {
	if p == nil {
		return
	}
	g := r.Group(name)
	g.AddOptional("datosAdicionales", p.AdditionalData).
		AddOptional("conceptoImporteIva0", p.ConceptIVA0).
		AddOptional("importeAjustarIva0", p.AmountIVA0).
		AddOptional("conceptoImporteIva105", p.ConceptIVA105).
		AddOptional("importeAjustarIva105", p.AmountIVA105).
		AddOptional("conceptoImporteIva21", p.ConceptIVA21).
		AddOptional("importeAjustarIva21", p.AmountIVA21).
		AddOptional("diferenciaPesoNeto", p.NetWeightDifference).
		AddOptional("diferenciaPrecioOperacion", p.OperationPriceDiff).
		AddOptional("codGrado", p.Grade).
		AddOptional("valGrado", p.GradeValue).
		AddOptional("factor", p.Factor).
		AddOptional("diferenciaPrecioFleteTn", p.FreightPricePerTonDiff)
	writeRetentions(g, p.Retentions)
	writeDeductions(g, p.Deductions)
	writePerceptions(g, p.Perceptions)
}

func (a *Adjustment) writeCertificates(r *soap.Element) {
	if len(a.Certificates) == 0 {
		return
	}
	certs := r.Group("certificados")
	for _, c := range a.Certificates {
		certs.Group("certificado").
			Add("tipoCertificadoDeposito", c.Type).
			Add("nroCertificadoDeposito", c.Number).
			Add("pesoNeto", c.NetWeight).
			Add("codLocalidadProcedencia", c.OriginLocality).
			Add("codProvProcedencia", c.OriginProvince).
			Add("campania", c.Campaign).
			AddOptional("fechaCierre", c.ClosingDate)
	}
}

func (a *Adjustment) writeUnified(r *soap.Element) {
	h := a.Header
	g := r.Group("ajusteUnificado")
	g.Add("ptoEmision", h.IssuePoint).
		Add("nroOrden", h.OrderNumber).
		Add("coeAjustado", h.AdjustedCOE).
		Add("codProvincia", h.Province).
		Add("codLocalidad", h.Locality)
	writePart(g, "ajusteCredito", a.Credit)
	writePart(g, "ajusteDebito", a.Debit)
	a.writeCertificates(g)
}

func (a *Adjustment) writePaper(r *soap.Element) {
	h := a.Header
	g := r.Group("ajustePapel")
	g.Add("ptoEmision", h.IssuePoint).
		Add("nroOrden", h.OrderNumber).
		Add("nroFormulario", h.FormNumber).
		Add("tipoFormulario", h.FormType).
		Add("actividad", h.Activity).
		Add("codGrano", h.GrainCode).
		Add("cuitVendedor", h.SellerCUIT).
		Add("cuitComprador", h.BuyerCUIT).
		AddOptional("cuitCorredor", h.BrokerCUIT).
		Add("nroIngBrutoVendedor", h.SellerGrossIncomeNo).
		Add("nroIngBrutoComprador", h.BuyerGrossIncomeNo).
		AddOptional("nroIngBrutoCorredor", h.BrokerGrossIncomeNo).
		Add("tipoOperacion", h.OperationType).
		AddOptional("comisionCorredor", h.BrokerCommission).
		Add("codProvincia", h.Province).
		Add("codLocalidad", h.Locality)
	writePart(g, "ajusteCredito", a.Credit)
	writePart(g, "ajusteDebito", a.Debit)
	a.writeCertificates(g)
}

func (a *Adjustment) writeContract(r *soap.Element) {
	h := a.Header
	g := r.Group("ajusteContrato")
	g.Add("ptoEmision", h.IssuePoint).
		Add("nroOrden", h.OrderNumber).
		Add("nroContrato", h.ContractNumber).
		Add("cuitVendedor", h.SellerCUIT).
		Add("cuitComprador", h.BuyerCUIT).
		AddOptional("cuitCorredor", h.BrokerCUIT).
		Add("codGrano", h.GrainCode).
		Add("nroActividad", h.Activity).
		AddOptional("precioRefTn", h.ReferencePricePerTon).
		AddOptional("codGradoEnt", h.DeliveredGrade).
		AddOptional("valGradoEnt", h.DeliveredGradeValue).
		AddOptional("precioFleteTn", h.FreightPricePerTon).
		AddOptional("codPuerto", h.PortCode).
		AddOptional("desPuertoLocalidad", h.PortLocality).
		Add("codProvincia", h.Province).
		Add("codLocalidad", h.Locality)
	writePart(g, "ajusteCredito", a.Credit)
	writePart(g, "ajusteDebito", a.Debit)
}

func (a *Adjustment) writeSecondary(r *soap.Element) {
	h := a.Header
	g := r.Group("ajuste")
	g.Add("ptoEmision", h.IssuePoint).
		Add("nroOrden", h.OrderNumber).
		AddOptional("nroContrato", h.ContractNumber).
		Add("coeAjustado", h.AdjustedCOE)
	if f := a.Fusion; f != nil {
		g.Group("fusion").
			Add("nroIngBrutos", f.GrossIncomeNo).
			Add("nroActividad", f.Activity)
	}
	writePart(g, "ajusteCredito", a.Credit)
	writePart(g, "ajusteDebito", a.Debit)
}

// Totals are the unified totals of an adjustment
type Totals struct {
	Subtotal         decimal.Decimal `json:"subtotal_general"`
	IVA105           decimal.Decimal `json:"iva_10_5"`
	IVA21            decimal.Decimal `json:"iva_21"`
	IncomeRetentions decimal.Decimal `json:"retenciones_ganancias"`
	IVARetentions    decimal.Decimal `json:"retenciones_iva"`
	OtherRetentions  decimal.Decimal `json:"otras_retenciones"`
	NetAmount        decimal.Decimal `json:"importe_neto"`
	IVARG4310        decimal.Decimal `json:"iva_rg_4310_18"`
	PaymentByTerms   decimal.Decimal `json:"pago_segun_condicion"`
}

// AdjustmentResult is the authorized adjustment with both sides
type AdjustmentResult struct {
	COE         int64          `json:"coe"`
	COEAdjusted int64          `json:"coe_ajustado,omitempty"`
	IssuePoint  int            `json:"pto_emision"`
	OrderNumber int64          `json:"nro_orden"`
	State       string         `json:"estado,omitempty"`
	Credit      *Authorization `json:"ajuste_credito,omitempty"`
	Debit       *Authorization `json:"ajuste_debito,omitempty"`
	Totals      Totals         `json:"totales"`
}

func parseAdjustment(ret *soap.Node) *AdjustmentResult {
	aut := ret.Find("ajusteUnificado")
	if !aut.Exists() {
		aut = ret.Find("autorizacion")
	}
	if !aut.Exists() {
		return nil
	}
	res := &AdjustmentResult{
		COE:         aut.Int64("coe"),
		COEAdjusted: aut.Int64("coeAjustado"),
		IssuePoint:  aut.Int("ptoEmision"),
		OrderNumber: aut.Int64("nroOrden"),
		State:       aut.Text("estado"),
	}
	if n := aut.Child("ajusteCredito"); n.Exists() {
		res.Credit = authorizationFrom(n)
	}
	if n := aut.Child("ajusteDebito"); n.Exists() {
		res.Debit = authorizationFrom(n)
	}
	if t := aut.Child("totalesUnificados"); t.Exists() {
		res.Totals = Totals{
			Subtotal:         t.Decimal("subTotalGeneral"),
			IVA105:           t.Decimal("iva105"),
			IVA21:            t.Decimal("iva21"),
			IncomeRetentions: t.Decimal("retencionesGanancias"),
			IVARetentions:    t.Decimal("retencionesIVA"),
			OtherRetentions:  t.Decimal("otrasRetenciones"),
			NetAmount:        t.Decimal("importeNeto"),
			IVARG4310:        t.Decimal("ivaRG4310_18"),
			PaymentByTerms:   t.Decimal("pagoSCondicion"),
		}
	}
	return res
}

func (c *Client) adjust(ctx context.Context, op string, a *Adjustment, write func(*soap.Element)) (*AdjustmentResult, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	ret, err := c.call(ctx, op, write)
	if err != nil {
		return nil, err
	}
	res := parseAdjustment(ret)
	c.settlements.set(adjustmentParts(res)...)
	if res == nil {
		return nil, model.NewParseError(model.ServiceWSLPG, "ajusteUnificado", "missing in "+op+" response", nil)
	}
	return res, nil
}

// AjustarLiquidacionUnificado adjusts an electronic settlement by COE
func (c *Client) AjustarLiquidacionUnificado(ctx context.Context, a *Adjustment) (*AdjustmentResult, error) {
	if a.Header.AdjustedCOE == 0 {
		return nil, model.NewValidationError("coe_ajustado", nil, "required", "the adjusted COE is required")
	}
	return c.adjust(ctx, "liquidacionAjustarUnificado", a, a.writeUnified)
}

// AjustarLiquidacionUnificadoPapel adjusts a settlement issued on paper
func (c *Client) AjustarLiquidacionUnificadoPapel(ctx context.Context, a *Adjustment) (*AdjustmentResult, error) {
	if a.Header.FormNumber == "" {
		return nil, model.NewValidationError("nro_formulario", nil, "required", "the paper form number is required")
	}
	return c.adjust(ctx, "liquidacionAjustarPapel", a, a.writePaper)
}

// AjustarLiquidacionContrato adjusts every settlement of a contract
func (c *Client) AjustarLiquidacionContrato(ctx context.Context, a *Adjustment) (*AdjustmentResult, error) {
	if a.Header.ContractNumber == 0 {
		return nil, model.NewValidationError("nro_contrato", nil, "required", "the contract number is required")
	}
	return c.adjust(ctx, "liquidacionAjustarContrato", a, a.writeContract)
}

// AjustarLiquidacionSecundaria adjusts a secondary settlement
func (c *Client) AjustarLiquidacionSecundaria(ctx context.Context, a *Adjustment) (*AdjustmentResult, error) {
	return c.adjust(ctx, "lsgAjustar", a, a.writeSecondary)
}
