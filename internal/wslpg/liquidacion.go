package wslpg

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/document"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Settlement is a primary grain settlement being built for authorization
type Settlement struct {
	IssuePoint           int
	OrderNumber          int64
	BuyerCUIT            int64
	BuyerActivity        int
	BuyerGrossIncomeNo   int64
	OperationType        int
	OwnSettlement        bool
	Exchange             bool // canje
	PortCode             int
	PortLocality         string
	GrainCode            int
	SellerCUIT           int64
	SellerGrossIncomeNo  int64
	BrokerActs           bool
	BrokerSettles        bool
	BrokerCUIT           int64
	BrokerCommission     decimal.Decimal
	BrokerGrossIncomeNo  int64
	PriceDate            time.Time
	ReferencePricePerTon decimal.Decimal
	ReferenceGrade       string
	DeliveredGrade       string
	DeliveredGradeValue  decimal.Decimal
	DeliveredFactor      decimal.Decimal
	FreightPricePerTon   decimal.Decimal
	ProteinContent       decimal.Decimal
	IVARate              decimal.Decimal
	Campaign             int
	OriginLocality       int
	OriginProvince       int
	AdditionalData       string
	UncertifiedNetWeight int64
	UncertifiedProvince  int
	UncertifiedLocality  int
	OperationPricePerTon decimal.Decimal

	Certificates []Certificate
	Retentions   []Retention
	Deductions   []Deduction
	Perceptions  []Perception
	Optionals    []model.Parameter
	PaperInvoice *PaperInvoice
}

// Certificate is a deposit certificate backing the settled grain
type Certificate struct {
	Type           int
	Number         int64
	NetWeight      int64
	OriginLocality int
	OriginProvince int
	Campaign       int
	ClosingDate    time.Time
}

// Retention is a tax withheld from the settlement
type Retention struct {
	Concept           string // RG ganancias, RI IVA...
	Detail            string
	Base              decimal.Decimal
	Rate              decimal.Decimal
	CertificateNumber int64
	CertificateDate   time.Time
	CertificateAmount decimal.Decimal
}

// Deduction is a charge deducted from the settlement (storage, commission...)
type Deduction struct {
	Concept         string
	Detail          string
	StorageDays     int
	DailyPricePerKg decimal.Decimal
	AdminCommission decimal.Decimal
	Base            decimal.Decimal
	IVARate         decimal.Decimal
}

// Perception is a tax perceived on the settlement
type Perception struct {
	Concept     string
	Detail      string
	Base        decimal.Decimal
	Rate        decimal.Decimal
	FinalAmount decimal.Decimal
}

// PaperInvoice links a settlement to a pre-printed invoice
type PaperInvoice struct {
	CAI     string
	Number  int64
	Date    time.Time
	Voucher int
}

// CrearLiquidacion starts a settlement from its header
func CrearLiquidacion(header Settlement) *Settlement {
	s := header
	s.Certificates = nil
	s.Retentions = nil
	s.Deductions = nil
	s.Perceptions = nil
	s.Optionals = nil
	s.PaperInvoice = nil
	return &s
}

// AgregarCertificado adds a deposit certificate
func (s *Settlement) AgregarCertificado(c Certificate) *Settlement {
	s.Certificates = append(s.Certificates, c)
	return s
}

// AgregarRetencion adds a retention
func (s *Settlement) AgregarRetencion(r Retention) *Settlement {
	s.Retentions = append(s.Retentions, r)
	return s
}

// AgregarDeduccion adds a deduction
func (s *Settlement) AgregarDeduccion(d Deduction) *Settlement {
	s.Deductions = append(s.Deductions, d)
	return s
}

// AgregarPercepcion adds a perception
func (s *Settlement) AgregarPercepcion(p Perception) *Settlement {
	s.Perceptions = append(s.Perceptions, p)
	return s
}

// AgregarOpcional adds an optional code/description pair
func (s *Settlement) AgregarOpcional(code, description string) *Settlement {
	s.Optionals = append(s.Optionals, model.Parameter{Code: code, Description: description})
	return s
}

// AgregarFacturaPapel sets the paper invoice
func (s *Settlement) AgregarFacturaPapel(p PaperInvoice) *Settlement {
	s.PaperInvoice = &p
	return s
}

// Validate checks the header before calling the service
func (s *Settlement) Validate() error {
	switch {
	case s.IssuePoint <= 0:
		return model.NewValidationError("pto_emision", s.IssuePoint, "positive", "issue point is required")
	case s.OrderNumber <= 0:
		return model.NewValidationError("nro_orden", s.OrderNumber, "positive", "order number is required")
	case s.BuyerCUIT == 0 || s.SellerCUIT == 0:
		return model.NewValidationError("cuit", nil, "required", "buyer and seller are required")
	case s.GrainCode == 0:
		return model.NewValidationError("cod_grano", nil, "required", "grain code is required")
	case len(s.Certificates) == 0 && s.UncertifiedNetWeight == 0:
		return model.NewValidationError("certificados", nil, "required", "a certificate or uncertified weight is required")
	}
	return nil
}

func (s *Settlement) write(r *soap.Element) {
	liq := r.Group("liquidacion")
	liq.Add("ptoEmision", s.IssuePoint).
		Add("nroOrden", s.OrderNumber).
		Add("cuitComprador", s.BuyerCUIT).
		Add("nroActComprador", s.BuyerActivity).
		Add("nroIngBrutoComprador", s.BuyerGrossIncomeNo).
		Add("codTipoOperacion", s.OperationType).
		Add("esLiquidacionPropia", yn(s.OwnSettlement)).
		Add("esCanje", yn(s.Exchange)).
		Add("codPuerto", s.PortCode).
		AddOptional("desPuertoLocalidad", s.PortLocality).
		Add("codGrano", s.GrainCode).
		Add("cuitVendedor", s.SellerCUIT).
		Add("nroIngBrutoVendedor", s.SellerGrossIncomeNo).
		Add("actuaCorredor", yn(s.BrokerActs)).
		Add("liquidaCorredor", yn(s.BrokerSettles)).
		AddOptional("cuitCorredor", s.BrokerCUIT).
		AddOptional("comisionCorredor", s.BrokerCommission).
		AddOptional("nroIngBrutoCorredor", s.BrokerGrossIncomeNo).
		Add("fechaPrecioOperacion", s.PriceDate).
		Add("precioRefTn", s.ReferencePricePerTon).
		AddOptional("codGradoRef", s.ReferenceGrade).
		AddOptional("codGradoEnt", s.DeliveredGrade).
		AddOptional("valGradoEnt", s.DeliveredGradeValue).
		AddOptional("factorEnt", s.DeliveredFactor).
		AddOptional("precioFleteTn", s.FreightPricePerTon).
		AddOptional("contProteico", s.ProteinContent).
		Add("alicIvaOperacion", s.IVARate).
		Add("campaniaPPal", s.Campaign).
		Add("codLocalidadProcedencia", s.OriginLocality).
		AddOptional("codProvProcedencia", s.OriginProvince).
		AddOptional("datosAdicionales", s.AdditionalData).
		AddOptional("precioOperacion", s.OperationPricePerTon)

	if len(s.Certificates) > 0 {
		certs := liq.Group("certificados")
		for _, c := range s.Certificates {
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
	if s.UncertifiedNetWeight > 0 {
		liq.Add("pesoNetoSinCertificado", s.UncertifiedNetWeight).
			Add("codProvProcedenciaSinCertificado", s.UncertifiedProvince).
			Add("codLocalidadProcedenciaSinCertificado", s.UncertifiedLocality)
	}
	if len(s.Optionals) > 0 {
		opts := liq.Group("opcionales")
		for _, o := range s.Optionals {
			opts.Group("opcional").Add("codigo", o.Code).Add("descripcion", o.Description)
		}
	}
	if p := s.PaperInvoice; p != nil {
		liq.Group("facturaPapel").
			Add("nroCAI", p.CAI).
			Add("nroFacturaPapel", p.Number).
			Add("fechaFactura", p.Date).
			Add("tipoComprobante", p.Voucher)
	}

	writeRetentions(r, s.Retentions)
	writeDeductions(r, s.Deductions)
	writePerceptions(r, s.Perceptions)
}

func writeRetentions(r *soap.Element, list []Retention) {
	if len(list) == 0 {
		return
	}
	g := r.Group("retenciones")
	for _, ret := range list {
		g.Group("retencion").
			Add("codigoConcepto", ret.Concept).
			AddOptional("detalleAclaratorio", ret.Detail).
			Add("baseCalculo", ret.Base).
			Add("alicuota", ret.Rate).
			AddOptional("nroCertificadoRetencion", ret.CertificateNumber).
			AddOptional("fechaCertificadoRetencion", ret.CertificateDate).
			AddOptional("importeCertificadoRetencion", ret.CertificateAmount)
	}
}

func writeDeductions(r *soap.Element, list []Deduction) {
	if len(list) == 0 {
		return
	}
	g := r.Group("deducciones")
	for _, d := range list {
		g.Group("deduccion").
			Add("codigoConcepto", d.Concept).
			AddOptional("detalleAclaratorio", d.Detail).
			AddOptional("diasAlmacenaje", d.StorageDays).
			AddOptional("precioPKGdiario", d.DailyPricePerKg).
			AddOptional("comisionGastosAdm", d.AdminCommission).
			AddOptional("baseCalculo", d.Base).
			Add("alicuotaIva", d.IVARate)
	}
}

func writePerceptions(r *soap.Element, list []Perception) {
	if len(list) == 0 {
		return
	}
	g := r.Group("percepciones")
	for _, p := range list {
		g.Group("percepcion").
			AddOptional("codigoConcepto", p.Concept).
			AddOptional("detalleAclaratoria", p.Detail).
			Add("baseCalculo", p.Base).
			Add("alicuota", p.Rate).
			AddOptional("importeFinal", p.FinalAmount)
	}
}

// Amount is a computed retention, deduction or perception
type Amount struct {
	Concept string          `json:"codigo_concepto"`
	Detail  string          `json:"detalle,omitempty"`
	Base    decimal.Decimal `json:"base_calculo"`
	Rate    decimal.Decimal `json:"alicuota"`
	Amount  decimal.Decimal `json:"importe"`
	IVA     decimal.Decimal `json:"importe_iva,omitempty"`
}

// Authorization is what the service returns for an authorized document
type Authorization struct {
	COE                  int64           `json:"coe"`
	COEAdjusted          int64           `json:"coe_ajustado,omitempty"`
	IssuePoint           int             `json:"pto_emision"`
	OrderNumber          int64           `json:"nro_orden"`
	Date                 string          `json:"fecha"`
	State                string          `json:"estado,omitempty"`
	OperationPrice       decimal.Decimal `json:"precio_operacion"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	IVAAmount            decimal.Decimal `json:"importe_iva"`
	OperationWithIVA     decimal.Decimal `json:"operacion_con_iva"`
	TotalNetWeight       int64           `json:"total_peso_neto"`
	TotalDeductions      decimal.Decimal `json:"total_deduccion"`
	TotalRetentions      decimal.Decimal `json:"total_retencion"`
	TotalRetentionsAFIP  decimal.Decimal `json:"total_retencion_afip"`
	TotalOtherRetentions decimal.Decimal `json:"total_otras_retenciones"`
	TotalNetToPay        decimal.Decimal `json:"total_neto_a_pagar"`
	TotalIVARG4310       decimal.Decimal `json:"total_iva_rg_4310_18"`
	TotalPaymentByTerms  decimal.Decimal `json:"total_pago_segun_condicion"`
	Retentions           []Amount        `json:"retenciones,omitempty"`
	Deductions           []Amount        `json:"deducciones,omitempty"`
	Perceptions          []Amount        `json:"percepciones,omitempty"`
	PDF                  *document.Info  `json:"pdf,omitempty"`
}

func parseAuthorization(ret *soap.Node) *Authorization {
	aut := ret.Find("autorizacion")
	if !aut.Exists() {
		aut = ret.Find("liquidacion")
	}
	if !aut.Exists() {
		return nil
	}
	a := authorizationFrom(aut)
	if a.State == "" {
		a.State = ret.Find("estado").Text()
	}
	return a
}

func authorizationFrom(aut *soap.Node) *Authorization {
	a := &Authorization{
		COE:                  aut.Int64("coe"),
		COEAdjusted:          aut.Int64("coeAjustado"),
		IssuePoint:           aut.Int("ptoEmision"),
		OrderNumber:          aut.Int64("nroOrden"),
		Date:                 firstText(aut, "fechaLiquidacion", "fechaCertificacion", "fecha"),
		State:                firstText(aut, "estado", "estadoLiquidacion"),
		OperationPrice:       aut.Decimal("precioOperacion"),
		Subtotal:             aut.Decimal("subTotal"),
		IVAAmount:            aut.Decimal("importeIva"),
		OperationWithIVA:     aut.Decimal("operacionConIva"),
		TotalNetWeight:       aut.Int64("totalPesoNeto"),
		TotalDeductions:      aut.Decimal("totalDeduccion"),
		TotalRetentions:      aut.Decimal("totalRetencion"),
		TotalRetentionsAFIP:  aut.Decimal("totalRetencionAfip"),
		TotalOtherRetentions: aut.Decimal("totalOtrasRetenciones"),
		TotalNetToPay:        aut.Decimal("totalNetoAPagar"),
		TotalIVARG4310:       aut.Decimal("totalIvaRg4310_18"),
		TotalPaymentByTerms:  aut.Decimal("totalPagoSegunCondicion"),
	}
	for _, n := range aut.Find("retenciones").All("retencionReturn") {
		a.Retentions = append(a.Retentions, Amount{
			Concept: n.Text("retencion", "codigoConcepto"),
			Detail:  n.Text("retencion", "detalleAclaratorio"),
			Base:    n.Decimal("retencion", "baseCalculo"),
			Rate:    n.Decimal("retencion", "alicuota"),
			Amount:  n.Decimal("importeRetencion"),
		})
	}
	for _, n := range aut.Find("deducciones").All("deduccionReturn") {
		a.Deductions = append(a.Deductions, Amount{
			Concept: n.Text("deduccion", "codigoConcepto"),
			Detail:  n.Text("deduccion", "detalleAclaratorio"),
			Base:    n.Decimal("deduccion", "baseCalculo"),
			Rate:    n.Decimal("deduccion", "alicuotaIva"),
			Amount:  n.Decimal("importeDeduccion"),
			IVA:     n.Decimal("importeIva"),
		})
	}
	for _, n := range aut.Find("percepciones").All("percepcionReturn") {
		a.Perceptions = append(a.Perceptions, Amount{
			Concept: n.Text("codigoConcepto"),
			Detail:  n.Text("detalleAclaratoria"),
			Base:    n.Decimal("baseCalculo"),
			Rate:    n.Decimal("alicuota"),
			Amount:  n.Decimal("importeFinal"),
		})
	}
	return a
}

func firstText(n *soap.Node, names ...string) string {
	for _, name := range names {
		if s := n.Text(name); s != "" {
			return s
		}
	}
	return ""
}

func (c *Client) authorize(ctx context.Context, op string, fill func(*soap.Element)) (*Authorization, error) {
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	a := parseAuthorization(ret)
	if a == nil {
		return nil, model.NewParseError(model.ServiceWSLPG, "autorizacion", "missing in "+op+" response", nil)
	}
	return a, nil
}

// AutorizarLiquidacion authorizes a settlement and returns its COE
func (c *Client) AutorizarLiquidacion(ctx context.Context, s *Settlement) (*Authorization, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return c.authorize(ctx, "liquidacionAutorizar", s.write)
}

// AutorizarAnticipo authorizes an advance payment settlement
func (c *Client) AutorizarAnticipo(ctx context.Context, s *Settlement) (*Authorization, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return c.authorize(ctx, "lpgAutorizarAnticipo", s.write)
}

// CancelarAnticipo cancels an advance payment
func (c *Client) CancelarAnticipo(ctx context.Context, issuePoint int, orderNumber, coe int64) (*Authorization, error) {
	return c.authorize(ctx, "lpgCancelarAnticipo", func(r *soap.Element) {
		r.Add("ptoEmision", issuePoint).
			Add("nroOrden", orderNumber).
			Add("coe", coe)
	})
}
