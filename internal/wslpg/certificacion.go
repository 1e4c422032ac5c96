package wslpg

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/document"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Certificate types for deposit certifications
const (
	CertificationPrimary     = "P"
	CertificationWithdrawal  = "R"
	CertificationTransfer    = "T"
	CertificationPreexisting = "E"
)

// CertificationHeader is the common part of a deposit certification
type CertificationHeader struct {
	IssuePoint              int
	OrderNumber             int64
	Type                    string
	PlantNumber             int64
	DepositaryGrossIncomeNo int64
	GrainOwner              string
	DepositorCUIT           int64
	DepositorGrossIncomeNo  int64
	BrokerCUIT              int64
	GrainCode               int
	Campaign                int
	AdditionalData          string
}

// CTGDetail is a transport code consumed by a primary certification
type CTGDetail struct {
	CTG                   int64
	WaybillNumber         int64
	DryingHumidityPercent decimal.Decimal
	DryingAmount          decimal.Decimal
	DryingShrinkWeight    int64
	DryingRate            decimal.Decimal
	ScreeningAmount       decimal.Decimal
	ScreeningShrinkWeight int64
	ScreeningRate         decimal.Decimal
	ConfirmedNetWeight    int64
}

// SampleDetail is a line of a quality analysis
type SampleDetail struct {
	Description string
	Kind        string
	Percent     decimal.Decimal
	Value       decimal.Decimal
}

// Quality is the analysis result attached to a primary certification
type Quality struct {
	SampleAnalysis int64
	BulletinNumber int64
	Grade          string
	GradeValue     decimal.Decimal
	ProteinContent decimal.Decimal
	Factor         decimal.Decimal
	Details        []SampleDetail
}

// PrimaryCertification is the body of a primary (P) certification
type PrimaryCertification struct {
	DepositaryActivity int
	GrainDescription   string
	StorageAmount      decimal.Decimal
	CarriageAmount     decimal.Decimal
	GeneralExpenses    decimal.Decimal
	ScreeningAmount    decimal.Decimal
	DryingFromPercent  decimal.Decimal
	DryingToPercent    decimal.Decimal
	DryingAmount       decimal.Decimal
	ExcessPointAmount  decimal.Decimal
	OtherAmount        decimal.Decimal
	VolatileShrinkPct  decimal.Decimal
	VolatileShrinkNet  int64
	DryingShrinkPct    decimal.Decimal
	DryingShrinkNet    int64
	ScreeningShrinkPct decimal.Decimal
	ScreeningShrinkNet int64
	CertifiedNetWeight int64
	DryingServices     decimal.Decimal
	ScreeningServices  decimal.Decimal
	OtherServices      decimal.Decimal
	PaymentMethod      string

	CTGs []CTGDetail
}

// DepositWithdrawal is a certificate consumed by a withdrawal or transfer
type DepositWithdrawal struct {
	COE       int64
	NetWeight int64
}

// WithdrawalTransfer is the body of a withdrawal (R) or transfer (T)
type WithdrawalTransfer struct {
	DepositaryActivity int
	ReceiverCUIT       int64
	Date               time.Time
	WaybillNumber      int64
	WaybillCEE         int64
	Certificates       []DepositWithdrawal
}

// PreexistingCertification registers a paper certificate issued before the
// electronic regime (E)
type PreexistingCertification struct {
	Type        int
	Number      int64
	CAC         int64
	IssuedAt    time.Time
	NetWeight   int64
	PlantNumber int64
}

// Certification is a deposit certification being built
type Certification struct {
	Header      CertificationHeader
	Primary     *PrimaryCertification
	Withdrawal  *WithdrawalTransfer
	Preexisting []PreexistingCertification
	Quality     *Quality
}

// CrearCertificacionCabecera starts a certification from its header
func CrearCertificacionCabecera(h CertificationHeader) *Certification {
	return &Certification{Header: h}
}

// AgregarCertificacionPrimaria sets the primary certification body
func (c *Certification) AgregarCertificacionPrimaria(p PrimaryCertification) *Certification {
	c.Primary = &p
	return c
}

// AgregarCertificacionRetiroTransferencia sets the withdrawal/transfer body
func (c *Certification) AgregarCertificacionRetiroTransferencia(w WithdrawalTransfer) *Certification {
	c.Withdrawal = &w
	return c
}

// AgregarCertificacionPreexistente adds a preexisting paper certificate
func (c *Certification) AgregarCertificacionPreexistente(p PreexistingCertification) *Certification {
	c.Preexisting = append(c.Preexisting, p)
	return c
}

// AgregarCalidad sets the quality analysis
func (c *Certification) AgregarCalidad(q Quality) *Certification {
	c.Quality = &q
	return c
}

// AgregarDetalleMuestraAnalisis adds a line to the quality analysis,
// creating it when needed
func (c *Certification) AgregarDetalleMuestraAnalisis(d SampleDetail) *Certification {
	if c.Quality == nil {
		c.Quality = &Quality{}
	}
	c.Quality.Details = append(c.Quality.Details, d)
	return c
}

// AgregarCTG adds a transport code to the primary certification, creating it
// when needed
func (c *Certification) AgregarCTG(d CTGDetail) *Certification {
	if c.Primary == nil {
		c.Primary = &PrimaryCertification{}
	}
	c.Primary.CTGs = append(c.Primary.CTGs, d)
	return c
}

// Validate checks the header and that the body matches the type
func (c *Certification) Validate() error {
	h := c.Header
	switch {
	case h.IssuePoint <= 0:
		return model.NewValidationError("pto_emision", h.IssuePoint, "positive", "issue point is required")
	case h.OrderNumber <= 0:
		return model.NewValidationError("nro_orden", h.OrderNumber, "positive", "order number is required")
	}
	switch h.Type {
	case CertificationPrimary:
		if c.Primary == nil {
			return model.NewValidationError("primaria", nil, "required", "primary certification body is required")
		}
	case CertificationWithdrawal, CertificationTransfer:
		if c.Withdrawal == nil {
			return model.NewValidationError("retiro_transferencia", nil, "required", "withdrawal body is required")
		}
	case CertificationPreexisting:
		if len(c.Preexisting) == 0 {
			return model.NewValidationError("preexistente", nil, "required", "a preexisting certificate is required")
		}
	default:
		return model.NewValidationError("tipo_certificado", h.Type, "enum", "type must be P, R, T or E")
	}
	return nil
}

func writeQuality(r *soap.Element, q *Quality) {
	if q == nil {
		return
	}
	g := r.Group("calidad")
	g.AddOptional("analisisMuestra", q.SampleAnalysis).
		AddOptional("nroBoletin", q.BulletinNumber).
		AddOptional("codGrado", q.Grade).
		AddOptional("valorGrado", q.GradeValue).
		AddOptional("valorContProteico", q.ProteinContent).
		AddOptional("valorFactor", q.Factor)
	for _, d := range q.Details {
		g.Group("detalleMuestraAnalisis").
			Add("descripcionRubro", d.Description).
			Add("tipoRubro", d.Kind).
			AddOptional("porcentaje", d.Percent).
			AddOptional("valor", d.Value)
	}
}

func (c *Certification) write(r *soap.Element) {
	h := c.Header
	cert := r.Group("certificado")
	cert.Group("cabecera").
		Add("ptoEmision", h.IssuePoint).
		Add("nroOrden", h.OrderNumber).
		Add("tipoCertificado", h.Type).
		AddOptional("nroPlanta", h.PlantNumber).
		AddOptional("nroIngBrutoDepositario", h.DepositaryGrossIncomeNo).
		AddOptional("titularGrano", h.GrainOwner).
		AddOptional("cuitDepositante", h.DepositorCUIT).
		AddOptional("nroIngBrutoDepositante", h.DepositorGrossIncomeNo).
		AddOptional("cuitCorredor", h.BrokerCUIT).
		Add("codGrano", h.GrainCode).
		Add("campania", h.Campaign).
		AddOptional("datosAdicionales", h.AdditionalData)

	if p := c.Primary; p != nil {
		g := cert.Group("primaria")
		g.AddOptional("nroActDepositario", p.DepositaryActivity)
		for _, t := range p.CTGs {
			g.Group("ctg").
				Add("nroCTG", t.CTG).
				Add("nroCartaDePorte", t.WaybillNumber).
				AddOptional("porcentajeSecadoHumedad", t.DryingHumidityPercent).
				AddOptional("importeSecado", t.DryingAmount).
				AddOptional("pesoNetoMermaSecado", t.DryingShrinkWeight).
				AddOptional("tarifaSecado", t.DryingRate).
				AddOptional("importeZarandeo", t.ScreeningAmount).
				AddOptional("pesoNetoMermaZarandeo", t.ScreeningShrinkWeight).
				AddOptional("tarifaZarandeo", t.ScreeningRate).
				Add("pesoNetoConfirmadoDefinitivo", t.ConfirmedNetWeight)
		}
		g.AddOptional("descripcionTipoGrano", p.GrainDescription).
			AddOptional("montoAlmacenaje", p.StorageAmount).
			AddOptional("montoAcarreo", p.CarriageAmount).
			AddOptional("montoGastosGenerales", p.GeneralExpenses).
			AddOptional("montoZarandeo", p.ScreeningAmount).
			AddOptional("porcentajeSecadoDe", p.DryingFromPercent).
			AddOptional("porcentajeSecadoA", p.DryingToPercent).
			AddOptional("montoSecado", p.DryingAmount).
			AddOptional("montoPorCadaPuntoExceso", p.ExcessPointAmount).
			AddOptional("montoOtros", p.OtherAmount)
		writeQuality(g, c.Quality)
		g.Group("mermaVolatil").
			AddOptional("porcentaje", p.VolatileShrinkPct).
			AddOptional("pesoNeto", p.VolatileShrinkNet)
		g.Group("mermaSecado").
			AddOptional("porcentaje", p.DryingShrinkPct).
			AddOptional("pesoNeto", p.DryingShrinkNet)
		g.Group("mermaZarandeo").
			AddOptional("porcentaje", p.ScreeningShrinkPct).
			AddOptional("pesoNeto", p.ScreeningShrinkNet)
		g.Add("pesoNetoCertificado", p.CertifiedNetWeight).
			AddOptional("serviciosSecado", p.DryingServices).
			AddOptional("serviciosZarandeo", p.ScreeningServices).
			AddOptional("serviciosOtros", p.OtherServices).
			AddOptional("serviciosFormaDePago", p.PaymentMethod)
	}

	if w := c.Withdrawal; w != nil {
		g := cert.Group("retiroTransferencia")
		g.AddOptional("nroActDepositario", w.DepositaryActivity).
			AddOptional("cuitReceptor", w.ReceiverCUIT).
			AddOptional("fecha", w.Date).
			AddOptional("nroCartaPorteAUtilizar", w.WaybillNumber).
			AddOptional("ceeCartaPorteAUtilizar", w.WaybillCEE)
		for _, d := range w.Certificates {
			g.Group("certificadoDeposito").
				Add("coeCertificadoDeposito", d.COE).
				Add("pesoNeto", d.NetWeight)
		}
	}

	for _, p := range c.Preexisting {
		cert.Group("preExistente").
			Add("tipoCertificadoDepositoPreexistente", p.Type).
			Add("nroCertificadoDepositoPreexistente", p.Number).
			Add("cacCertificadoDepositoPreexistente", p.CAC).
			Add("fechaEmisionCertificadoDepositoPreexistente", p.IssuedAt).
			Add("pesoNeto", p.NetWeight).
			AddOptional("nroPlanta", p.PlantNumber)
	}
}

// CertificationResult is an authorized certification
type CertificationResult struct {
	COE         int64          `json:"coe"`
	IssuePoint  int            `json:"pto_emision"`
	OrderNumber int64          `json:"nro_orden"`
	Date        string         `json:"fecha_certificacion,omitempty"`
	State       string         `json:"estado,omitempty"`
	Type        string         `json:"tipo_certificado,omitempty"`
	NetWeight   int64          `json:"peso_neto,omitempty"`
	PlantNumber int64          `json:"nro_planta,omitempty"`
	PDF         *document.Info `json:"pdf,omitempty"`
}

func parseCertification(ret *soap.Node) *CertificationResult {
	aut := ret.Find("autorizacion")
	if !aut.Exists() {
		return nil
	}
	res := &CertificationResult{
		COE:         aut.Int64("coe"),
		IssuePoint:  aut.Int("ptoEmision"),
		OrderNumber: aut.Int64("nroOrden"),
		Date:        aut.Text("fechaCertificacion"),
		State:       aut.Text("estado"),
		Type:        aut.Text("tipoCertificado"),
		NetWeight:   aut.Int64("pesoNeto"),
		PlantNumber: aut.Find("nroPlanta").Int64(),
	}
	if res.State == "" {
		res.State = ret.Find("estado").Text()
	}
	return res
}

func (c *Client) certification(ctx context.Context, op string, fill func(*soap.Element)) (*CertificationResult, error) {
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	res := parseCertification(ret)
	if res == nil {
		return nil, model.NewParseError(model.ServiceWSLPG, "autorizacion", "missing in "+op+" response", nil)
	}
	return res, nil
}

// AutorizarCertificacion authorizes a deposit certification
func (c *Client) AutorizarCertificacion(ctx context.Context, cert *Certification) (*CertificationResult, error) {
	if err := cert.Validate(); err != nil {
		return nil, err
	}
	return c.certification(ctx, "cgAutorizar", cert.write)
}

// InformarCalidadCertificacion reports the quality of an authorized primary
// certification
func (c *Client) InformarCalidadCertificacion(ctx context.Context, coe int64, q Quality) (*CertificationResult, error) {
	return c.certification(ctx, "cgInformarCalidad", func(r *soap.Element) {
		r.Add("coe", coe)
		writeQuality(r, &q)
	})
}

// AnularCertificacion requests the cancellation of a certification and
// returns the resulting state
func (c *Client) AnularCertificacion(ctx context.Context, coe int64) (string, error) {
	ret, err := c.call(ctx, "cgSolicitarAnulacion", func(r *soap.Element) {
		r.Add("coe", coe)
	})
	if err != nil {
		return "", err
	}
	return ret.Find("estadoCertificado").Text(), nil
}

// CTGSearch filters BuscarCTG
type CTGSearch struct {
	CertificationType string
	DepositorCUIT     int64
	PlantNumber       int64
	GrainCode         int
	Campaign          int
	CTG               int64
	CTGType           int
	WaybillNumber     int64
	ConfirmedFrom     time.Time
	ConfirmedTo       time.Time
}

// CTGMatch is a transport code available to be certified
type CTGMatch struct {
	CTG           int64  `json:"nro_ctg"`
	WaybillNumber int64  `json:"nro_carta_porte"`
	ConfirmedAt   string `json:"fecha_confirmacion_ctg,omitempty"`
	NetWeight     int64  `json:"peso_neto_confirmado_definitivo"`
}

// BuscarCTG lists the transport codes that can back a certification
func (c *Client) BuscarCTG(ctx context.Context, q CTGSearch) ([]CTGMatch, error) {
	ret, err := c.call(ctx, "cgBuscarCtg", func(r *soap.Element) {
		r.Add("tipoCertificado", q.CertificationType).
			AddOptional("cuitDepositante", q.DepositorCUIT).
			AddOptional("nroPlanta", q.PlantNumber).
			Add("codGrano", q.GrainCode).
			Add("campania", q.Campaign).
			AddOptional("nroCtg", q.CTG).
			AddOptional("tipoCtg", q.CTGType).
			AddOptional("nroCartaPorte", q.WaybillNumber).
			AddOptional("fechaConfirmacionCtgDes", q.ConfirmedFrom).
			AddOptional("fechaConfirmacionCtgHas", q.ConfirmedTo)
	})
	if err != nil {
		return nil, err
	}
	var out []CTGMatch
	for _, n := range ret.FindAll("ctg") {
		out = append(out, CTGMatch{
			CTG:           n.Int64("nroCTG"),
			WaybillNumber: n.Int64("nroCartaDePorte"),
			ConfirmedAt:   n.Text("fechaConfirmacionCtg"),
			NetWeight:     n.Int64("pesoNetoConfirmadoDefinitivo"),
		})
	}
	return out, nil
}

// CertificateBalance is a deposit certificate with grain still available
type CertificateBalance struct {
	COE       int64  `json:"coe"`
	Type      int    `json:"tipo_certificado_deposito"`
	Number    int64  `json:"nro_certificado_deposito"`
	IssuedAt  string `json:"fecha_emision,omitempty"`
	NetWeight int64  `json:"peso_neto"`
	Balance   int64  `json:"saldo"`
	GrainCode int    `json:"cod_grano"`
	Campaign  int    `json:"campania"`
}

// BalanceSearch filters BuscarCertConSaldoDisponible
type BalanceSearch struct {
	DepositorCUIT int64
	GrainCode     int
	Campaign      int
	COE           int64
	IssuedFrom    time.Time
	IssuedTo      time.Time
}

// BuscarCertConSaldoDisponible lists certificates with an available balance
func (c *Client) BuscarCertConSaldoDisponible(ctx context.Context, q BalanceSearch) ([]CertificateBalance, error) {
	ret, err := c.call(ctx, "cgBuscarCertConSaldoDisponible", func(r *soap.Element) {
		r.AddOptional("cuitDepositante", q.DepositorCUIT).
			Add("codGrano", q.GrainCode).
			Add("campania", q.Campaign).
			AddOptional("coe", q.COE).
			AddOptional("fechaEmisionDes", q.IssuedFrom).
			AddOptional("fechaEmisionHas", q.IssuedTo)
	})
	if err != nil {
		return nil, err
	}
	var out []CertificateBalance
	for _, n := range ret.FindAll("certificado") {
		out = append(out, CertificateBalance{
			COE:       n.Int64("coe"),
			Type:      n.Int("tipoCertificadoDeposito"),
			Number:    n.Int64("nroCertificadoDeposito"),
			IssuedAt:  n.Text("fechaEmision"),
			NetWeight: n.Int64("pesoNeto"),
			Balance:   n.Int64("saldo"),
			GrainCode: n.Int("codGrano"),
			Campaign:  n.Int("campania"),
		})
	}
	return out, nil
}
