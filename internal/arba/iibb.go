package arba

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// DateLayout is the date format of the consultation file
const DateLayout = "20060102"

// IIBB looks up the gross income tax perception and retention rates ARBA
// assigns to taxpayers for a period
type IIBB struct {
	*Client

	taxpayers []Taxpayer
}

// Consultation is the answer to a rate query
type Consultation struct {
	Number    string     `json:"numero_comprobante"`
	Hash      string     `json:"codigo_hash"`
	From      string     `json:"fecha_desde,omitempty"`
	To        string     `json:"fecha_hasta,omitempty"`
	Taxpayers []Taxpayer `json:"contribuyentes"`
}

// Taxpayer holds the rates of one taxpayer
type Taxpayer struct {
	CUIT            string          `json:"cuit"`
	PerceptionRate  decimal.Decimal `json:"alicuota_percepcion"`
	RetentionRate   decimal.Decimal `json:"alicuota_retencion"`
	PerceptionGroup string          `json:"grupo_percepcion"`
	RetentionGroup  string          `json:"grupo_retencion"`
}

// NewIIBB creates an IIBB client for endpoint
func NewIIBB(endpoint, user, password string, opts ...Option) *IIBB {
	return &IIBB{Client: newClient(model.ServiceIIBB, endpoint, user, password, opts)}
}

// ConsultaXML builds the CONSULTA-ALICUOTA document for one taxpayer
func ConsultaXML(from, to time.Time, cuit int64) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="ISO-8859-1"`)
	root := doc.CreateElement("CONSULTA-ALICUOTA")
	root.CreateElement("fechaDesde").SetText(from.Format(DateLayout))
	root.CreateElement("fechaHasta").SetText(to.Format(DateLayout))
	root.CreateElement("cantidadContribuyentes").SetText("1")
	list := root.CreateElement("contribuyentes")
	list.CreateAttr("class", "list")
	list.CreateElement("contribuyente").CreateElement("cuitContribuyente").SetText(strconv.FormatInt(cuit, 10))
	doc.Indent(2)
	return doc.WriteToBytes()
}

// FileName names an upload after the MD5 of its content, as the service
// requires
func FileName(content []byte) string {
	sum := md5.Sum(content)
	return "DFEServicioConsulta_" + hex.EncodeToString(sum[:]) + ".xml"
}

// ConsultarContribuyentes queries the rates of cuit between from and to
func (c *IIBB) ConsultarContribuyentes(ctx context.Context, from, to time.Time, cuit int64) (*Consultation, error) {
	if cuit <= 0 {
		return nil, model.NewValidationError("cuit", cuit, "required", "taxpayer CUIT is required")
	}
	if to.Before(from) {
		return nil, model.NewValidationError("fecha_hasta", to.Format(DateLayout), "after", "period end is before its start")
	}
	content, err := ConsultaXML(from, to, cuit)
	if err != nil {
		return nil, fmt.Errorf("failed to build consultation: %w", err)
	}

	c.Limpiar()
	root, err := c.upload(ctx, "consultaAlicuota", FileName(content), content)
	if err != nil {
		return nil, err
	}
	res := parseConsultation(root)
	c.mu.Lock()
	c.taxpayers = append([]Taxpayer(nil), res.Taxpayers...)
	c.mu.Unlock()
	return res, nil
}

func parseConsultation(root *soap.Node) *Consultation {
	res := &Consultation{
		Number: root.Text("numeroComprobante"),
		Hash:   root.Text("codigoHash"),
		From:   root.Text("fechaDesde"),
		To:     root.Text("fechaHasta"),
	}
	for _, n := range root.Child("contribuyentes").All("contribuyente") {
		res.Taxpayers = append(res.Taxpayers, Taxpayer{
			CUIT:            n.Text("cuitContribuyente"),
			PerceptionRate:  rate(n.Text("alicuotaPercepcion")),
			RetentionRate:   rate(n.Text("alicuotaRetencion")),
			PerceptionGroup: n.Text("grupoPercepcion"),
			RetentionGroup:  n.Text("grupoRetencion"),
		})
	}
	return res
}

// rate reads a percentage that may use a decimal comma
func rate(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LeerContribuyente pops the next taxpayer of the last consultation
func (c *IIBB) LeerContribuyente() (*Taxpayer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.taxpayers) == 0 {
		return nil, false
	}
	t := c.taxpayers[0]
	c.taxpayers = c.taxpayers[1:]
	return &t, true
}

// Limpiar drops the last consultation along with the base state
func (c *IIBB) Limpiar() {
	c.Client.Limpiar()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taxpayers = nil
}
