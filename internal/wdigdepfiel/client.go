// Package wdigdepfiel is the client for the customs folder digitalisation
// notices (Depositario Fiel)
package wdigdepfiel

import (
	"context"
	"time"

	"github.com/rezonia/afipws/internal/afip"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/wsaa"
)

const (
	// Namespace is the ASMX service namespace, also the SOAPAction prefix
	Namespace = "ar.gov.afip.dia.serviciosWeb.wDigDepFiel"

	// FolderComplete is the code of a complete folder; additional folders use 0001 onwards
	FolderComplete = "000"
)

// Client calls wDigDepFiel
type Client struct {
	*afip.Base
}

// New creates a client for endpoint. The service expects qualified elements
// and a SOAPAction made of namespace and operation.
func New(endpoint string, source wsaa.TicketSource, cuit int64, opts ...soap.Option) *Client {
	opts = append([]soap.Option{
		soap.WithSOAPAction(Namespace + "/"),
		soap.WithQualifiedElements(),
	}, opts...)
	sc := soap.NewClient(model.ServiceDepFiel, endpoint, Namespace, opts...)
	base := afip.NewBase(sc, source, cuit)
	base.SetDummyOperation("Dummy")
	return &Client{Base: base}
}

// Folder identifies the customs folder a notice refers to
type Folder struct {
	AgentType     string // DESP, ATA...
	Role          string // EXTE...
	FileNumber    string // nro legajo, 16 characters
	DeclarantCUIT int64
	PSADCUIT      int64
	IECUIT        int64
	Code          string
	Ticket        string
}

// Family is a document family and how many images it contributes
type Family struct {
	Code     string
	Quantity int
}

// Digitalisation describes an AvisoDigit notice
type Digitalisation struct {
	Folder
	ATACUIT  int64
	URL      string
	Families []Family
	Hash     string
}

// Total is the number of images across families
func (d Digitalisation) Total() int {
	total := 0
	for _, f := range d.Families {
		total += f.Quantity
	}
	return total
}

// Result is the service answer; Code "0" means accepted
type Result struct {
	Code        string `json:"cod_error"`
	Description string `json:"desc_error"`
}

// AvisoRecepAcept notifies that a folder was received and accepted
func (c *Client) AvisoRecepAcept(ctx context.Context, f Folder, acceptedAt time.Time) (*Result, error) {
	return c.call(ctx, "AvisoRecepAcept", func(r *soap.Element) {
		addFolder(r, f)
		r.Add("fechaHoraAcept", acceptedAt.Format("2006-01-02T15:04:05"))
		r.Add("ticket", f.Ticket)
	})
}

// AvisoDigit notifies that a folder was digitalised
func (c *Client) AvisoDigit(ctx context.Context, d Digitalisation) (*Result, error) {
	if len(d.Families) == 0 {
		return nil, model.NewValidationError("familias", nil, "required", "at least one document family is required")
	}
	return c.call(ctx, "AvisoDigit", func(r *soap.Element) {
		addFolder(r, d.Folder)
		r.Add("cuitATA", d.ATACUIT)
		r.Add("url", d.URL)
		families := r.Group("familias")
		for _, fam := range d.Families {
			families.Group("Familia").Add("codigo", fam.Code).Add("cantidad", fam.Quantity)
		}
		r.Add("ticket", d.Ticket)
		r.Add("hashing", d.Hash)
		r.Add("cantidadTotal", d.Total())
	})
}

func addFolder(r *soap.Element, f Folder) {
	r.Add("tipoAgente", f.AgentType).
		Add("rol", f.Role).
		Add("nroLegajo", f.FileNumber).
		Add("cuitDeclarante", f.DeclarantCUIT).
		Add("cuitPSAD", f.PSADCUIT).
		Add("cuitIE", f.IECUIT).
		Add("codigo", f.Code)
}

func (c *Client) call(ctx context.Context, op string, fill func(*soap.Element)) (*Result, error) {
	cred, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	req := c.Client.NewRequest(op)
	req.Group("autentica").
		Add("Cuit", cred.CUIT).
		Add("Token", cred.Token).
		Add("Sign", cred.Sign)
	fill(&req.Element)

	resp, err := c.Client.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	ret := resp.Child(op + "Result")
	res := &Result{Code: ret.Text("codError"), Description: ret.Text("descError")}

	var errs []model.Message
	if res.Code != "" && res.Code != "0" {
		errs = append(errs, model.Message{Code: res.Code, Description: res.Description})
	}
	if err := c.Record(op, errs, nil); err != nil {
		return res, err
	}
	return res, nil
}
