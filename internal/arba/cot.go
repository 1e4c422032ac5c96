package arba

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// COT submits waybill files (TB_<cuit>_<plant>_<date>_<seq>.txt) to obtain
// goods transport codes
type COT struct {
	*Client

	receipt  *Receipt
	waybills []Waybill
}

// Receipt is the TBCOMPROBANTE answer to a waybill file
type Receipt struct {
	CompanyCUIT   string    `json:"cuit_empresa"`
	Number        string    `json:"numero_comprobante"`
	FileName      string    `json:"nombre_archivo"`
	IntegrityCode string    `json:"codigo_integridad"`
	Waybills      []Waybill `json:"remitos"`
}

// Waybill is the validation of one waybill of the file
type Waybill struct {
	UniqueNumber string          `json:"numero_unico"`
	Processed    bool            `json:"procesado"`
	COT          string          `json:"cot,omitempty"`
	Errors       []model.Message `json:"errores,omitempty"`
}

// NewCOT creates a COT client for endpoint
func NewCOT(endpoint, user, password string, opts ...Option) *COT {
	return &COT{Client: newClient(model.ServiceCOT, endpoint, user, password, opts)}
}

// PresentarRemito uploads the waybill file at path
func (c *COT) PresentarRemito(ctx context.Context, path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read waybill file: %w", err)
	}
	return c.PresentarDatos(ctx, filepath.Base(path), data)
}

// PresentarDatos uploads waybill content under the given file name
func (c *COT) PresentarDatos(ctx context.Context, name string, data []byte) (*Receipt, error) {
	c.Limpiar()
	root, err := c.upload(ctx, "presentarRemitos", name, data)
	if err != nil {
		return nil, err
	}
	r := parseReceipt(root)
	c.mu.Lock()
	c.receipt = r
	c.waybills = append([]Waybill(nil), r.Waybills...)
	c.mu.Unlock()
	return r, nil
}

func parseReceipt(root *soap.Node) *Receipt {
	r := &Receipt{
		CompanyCUIT:   root.Text("cuitEmpresa"),
		Number:        root.Text("numeroComprobante"),
		FileName:      root.Text("nombreArchivo"),
		IntegrityCode: root.Text("codigoIntegridad"),
	}
	for _, n := range root.Child("validacionesRemitos").All("remito") {
		w := Waybill{
			UniqueNumber: n.Text("numeroUnico"),
			Processed:    strings.EqualFold(n.Text("procesado"), "SI"),
			COT:          n.Text("cot"),
		}
		for _, e := range n.Child("errores").All("error") {
			w.Errors = append(w.Errors, model.Message{Code: e.Text("codigo"), Description: e.Text("descripcion")})
		}
		r.Waybills = append(r.Waybills, w)
	}
	return r
}

// Receipt returns the last receipt, nil before a successful upload
func (c *COT) Receipt() *Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipt
}

// LeerValidacionRemito moves to the next waybill validation and queues its
// errors for LeerErrorValidacion. It returns false when there are none left.
func (c *COT) LeerValidacionRemito() (*Waybill, bool) {
	c.mu.Lock()
	if len(c.waybills) == 0 {
		c.mu.Unlock()
		return nil, false
	}
	w := c.waybills[0]
	c.waybills = c.waybills[1:]
	c.mu.Unlock()

	c.setPending(w.Errors)
	return &w, true
}

// Limpiar drops the last receipt along with the base state
func (c *COT) Limpiar() {
	c.Client.Limpiar()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipt = nil
	c.waybills = nil
}
