package wslpg

import (
	"context"

	"github.com/rezonia/afipws/internal/document"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Lookup selects a document by issue point and order number, or by COE
type Lookup struct {
	IssuePoint  int
	OrderNumber int64
	COE         int64
}

func (l Lookup) validate() error {
	if l.COE == 0 && (l.IssuePoint <= 0 || l.OrderNumber <= 0) {
		return model.NewValidationError("coe", nil, "required", "a COE or an issue point and order number are required")
	}
	return nil
}

// write picks the by-COE or by-order variant of a query and fills it
func (l Lookup) write(byOrder, byCOE string, pdf bool) (string, func(*soap.Element)) {
	if l.COE != 0 {
		return byCOE, func(r *soap.Element) {
			r.Add("coe", l.COE)
			if pdf {
				r.Add("pdf", "S")
			}
		}
	}
	return byOrder, func(r *soap.Element) {
		r.Add("ptoEmision", l.IssuePoint).Add("nroOrden", l.OrderNumber)
	}
}

// ContractQuery filters the by-contract operations
type ContractQuery struct {
	ContractNumber int64
	BuyerCUIT      int64
	SellerCUIT     int64
	BrokerCUIT     int64
	GrainCode      int
}

func (q ContractQuery) write(r *soap.Element) {
	r.Add("nroContrato", q.ContractNumber).
		AddOptional("cuitComprador", q.BuyerCUIT).
		AddOptional("cuitVendedor", q.SellerCUIT).
		AddOptional("cuitCorredor", q.BrokerCUIT).
		AddOptional("codGrano", q.GrainCode)
}

func (c *Client) lastOrder(ctx context.Context, op string, issuePoint int) (int64, error) {
	ret, err := c.call(ctx, op, func(r *soap.Element) {
		r.Add("ptoEmision", issuePoint)
	})
	if err != nil {
		return 0, err
	}
	return ret.Find("nroOrden").Int64(), nil
}

// ConsultarUltNroOrden returns the last settlement order number for issuePoint
func (c *Client) ConsultarUltNroOrden(ctx context.Context, issuePoint int) (int64, error) {
	return c.lastOrder(ctx, "liquidacionUltimoNroOrdenConsultar", issuePoint)
}

// ConsultarLiquidacionSecundariaUltNroOrden returns the last secondary
// settlement order number for issuePoint
func (c *Client) ConsultarLiquidacionSecundariaUltNroOrden(ctx context.Context, issuePoint int) (int64, error) {
	return c.lastOrder(ctx, "lsgConsultarUltimoNroOrden", issuePoint)
}

// ConsultarCertificacionUltNroOrden returns the last certification order
// number for issuePoint
func (c *Client) ConsultarCertificacionUltNroOrden(ctx context.Context, issuePoint int) (int64, error) {
	return c.lastOrder(ctx, "cgConsultarUltimoNroOrden", issuePoint)
}

// savePDF stores the base64 pdf element of ret at path when both exist
func savePDF(ret *soap.Node, path string) (*document.Info, error) {
	if path == "" {
		return nil, nil
	}
	encoded := ret.Find("pdf").Text()
	if encoded == "" {
		return nil, nil
	}
	data, err := document.DecodeBase64(encoded)
	if err != nil {
		return nil, err
	}
	return document.SavePDF(path, data)
}

func (c *Client) consult(ctx context.Context, l Lookup, byOrder, byCOE, pdfPath string) (*Authorization, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	op, fill := l.write(byOrder, byCOE, pdfPath != "")
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	a := parseAuthorization(ret)
	c.settlements.set(a)
	if a == nil {
		return nil, nil
	}
	if a.PDF, err = savePDF(ret, pdfPath); err != nil {
		return a, err
	}
	return a, nil
}

// ConsultarLiquidacion fetches an authorized settlement. When pdfPath is set
// and the lookup is by COE the PDF is requested and saved there. A nil result
// without error means the settlement does not exist.
func (c *Client) ConsultarLiquidacion(ctx context.Context, l Lookup, pdfPath string) (*Authorization, error) {
	return c.consult(ctx, l, "liquidacionXNroOrdenConsultar", "liquidacionXCoeConsultar", pdfPath)
}

// ConsultarLiquidacionSecundaria fetches an authorized secondary settlement
func (c *Client) ConsultarLiquidacionSecundaria(ctx context.Context, l Lookup, pdfPath string) (*Authorization, error) {
	return c.consult(ctx, l, "lsgConsultarXNroOrden", "lsgConsultarXCoe", pdfPath)
}

// ConsultarCertificacion fetches an authorized certification
func (c *Client) ConsultarCertificacion(ctx context.Context, l Lookup, pdfPath string) (*CertificationResult, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	op, fill := l.write("cgConsultarXNroOrden", "cgConsultarXCoe", pdfPath != "")
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	res := parseCertification(ret)
	if res == nil {
		return nil, nil
	}
	if res.PDF, err = savePDF(ret, pdfPath); err != nil {
		return res, err
	}
	return res, nil
}

// ConsultarAjuste fetches an authorized adjustment
func (c *Client) ConsultarAjuste(ctx context.Context, l Lookup) (*AdjustmentResult, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	op, fill := l.write("liquidacionAjusteXNroOrdenConsultar", "liquidacionAjusteXCoeConsultar", false)
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	res := parseAdjustment(ret)
	c.settlements.set(adjustmentParts(res)...)
	return res, nil
}

func (c *Client) coes(ctx context.Context, op string, q ContractQuery) ([]int64, error) {
	ret, err := c.call(ctx, op, q.write)
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, n := range ret.FindAll("coe") {
		if v := n.Int64(); v != 0 {
			out = append(out, v)
		}
	}
	return out, nil
}

// ConsultarLiquidacionesPorContrato lists the COEs of a contract's settlements
func (c *Client) ConsultarLiquidacionesPorContrato(ctx context.Context, q ContractQuery) ([]int64, error) {
	return c.coes(ctx, "liquidacionPorContratoConsultar", q)
}

// ConsultarLiquidacionesSecundariasPorContrato lists the COEs of a contract's
// secondary settlements
func (c *Client) ConsultarLiquidacionesSecundariasPorContrato(ctx context.Context, q ContractQuery) ([]int64, error) {
	return c.coes(ctx, "lsgConsultarXContrato", q)
}

func (c *Client) associate(ctx context.Context, op string, coe int64, q ContractQuery) (*Authorization, error) {
	if coe == 0 || q.ContractNumber == 0 {
		return nil, model.NewValidationError("coe", coe, "required", "COE and contract number are required")
	}
	return c.authorize(ctx, op, func(r *soap.Element) {
		r.Add("coe", coe)
		q.write(r)
	})
}

// AsociarLiquidacionAContrato links a settlement to a contract
func (c *Client) AsociarLiquidacionAContrato(ctx context.Context, coe int64, q ContractQuery) (*Authorization, error) {
	return c.associate(ctx, "liquidacionAsociarContrato", coe, q)
}

// AsociarLiquidacionSecundariaAContrato links a secondary settlement to a
// contract
func (c *Client) AsociarLiquidacionSecundariaAContrato(ctx context.Context, coe int64, q ContractQuery) (*Authorization, error) {
	return c.associate(ctx, "lsgAsociarAContrato", coe, q)
}

func (c *Client) cancel(ctx context.Context, op string, coe int64) (string, error) {
	ret, err := c.call(ctx, op, func(r *soap.Element) {
		r.Add("coe", coe)
	})
	if err != nil {
		return "", err
	}
	return ret.Find("resultado").Text(), nil
}

// AnularLiquidacion cancels a settlement and returns the result code
// (A approved, R rejected)
func (c *Client) AnularLiquidacion(ctx context.Context, coe int64) (string, error) {
	return c.cancel(ctx, "liquidacionAnular", coe)
}

// AnularLiquidacionSecundaria cancels a secondary settlement
func (c *Client) AnularLiquidacionSecundaria(ctx context.Context, coe int64) (string, error) {
	return c.cancel(ctx, "lsgAnular", coe)
}
