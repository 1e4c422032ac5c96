package traza

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hengadev/errsx"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// ProdMed is the medical products traceability client (TrazaProdMed).
// Products are queued with CrearTransaccion and sent together by
// InformarProducto.
type ProdMed struct {
	*Client

	pmu     sync.Mutex
	pending []Product
}

// NewProdMed creates a TrazaProdMed client for endpoint
func NewProdMed(endpoint string, creds Credentials, opts ...soap.Option) *ProdMed {
	return &ProdMed{Client: newClient(model.ServiceTrazaProdMed, endpoint, creds, "", opts)}
}

// Product is a medical product movement, usually an implant or prosthesis
// delivered to a patient
type Product struct {
	EventAt           time.Time
	GLNOrigin         string
	GLNDestination    string
	Remito            string
	Invoice           string
	Expiry            time.Time
	GTIN              string
	Lot               string
	Serial            string
	EventID           int
	DoctorCUIT        string
	HealthInsuranceID int64
	Patient           *Patient
	MemberNumber      string // nro_afiliado
	DiagnosisCode     string
	HIVCode           string
	ReturnReasonID    int
	OtherReturnReason string
}

// Validate checks the fields every product needs
func (p Product) Validate() error {
	var errs errsx.Map
	if p.EventAt.IsZero() {
		errs.Set("f_evento", fmt.Errorf("event date is required"))
	}
	if p.GLNOrigin == "" {
		errs.Set("gln_origen", fmt.Errorf("origin GLN is required"))
	}
	if p.GTIN == "" {
		errs.Set("gtin", fmt.Errorf("GTIN is required"))
	}
	if p.Serial == "" {
		errs.Set("numero_serial", fmt.Errorf("serial number is required"))
	}
	if p.EventID == 0 {
		errs.Set("id_evento", fmt.Errorf("event is required"))
	}
	return errs.AsError()
}

func (p Product) fields() dto {
	d := dto{
		{"f_evento", date(p.EventAt)},
		{"h_evento", hour(p.EventAt)},
		{"gln_origen", p.GLNOrigin},
		{"gln_destino", p.GLNDestination},
		{"n_remito", p.Remito},
		{"n_factura", p.Invoice},
		{"vencimiento", date(p.Expiry)},
		{"gtin", p.GTIN},
		{"lote", p.Lot},
		{"numero_serial", p.Serial},
		{"id_evento", p.EventID},
		{"cuit_medico", p.DoctorCUIT},
		{"id_obra_social", p.HealthInsuranceID},
	}
	if pt := p.Patient; pt != nil {
		d = append(d,
			field{"apellido", pt.LastName},
			field{"nombres", pt.FirstName},
			field{"tipo_documento", pt.DocType},
			field{"n_documento", pt.DocNumber},
			field{"sexo", pt.Sex},
			field{"calle", pt.Street},
			field{"numero", pt.Number},
			field{"piso", pt.Floor},
			field{"depto", pt.Apartment},
			field{"localidad", pt.Locality},
			field{"provincia", pt.Province},
			field{"n_postal", pt.PostalCode},
			field{"fecha_nacimiento", date(pt.BirthDate)},
			field{"telefono", pt.Phone},
		)
	}
	return append(d,
		field{"nro_afiliado", p.MemberNumber},
		field{"cod_diagnostico", p.DiagnosisCode},
		field{"cod_hiv", p.HIVCode},
		field{"id_motivo_devolucion", p.ReturnReasonID},
		field{"otro_motivo_devolucion", p.OtherReturnReason},
	)
}

// CrearTransaccion validates p and queues it for InformarProducto. It
// returns the number of queued products.
func (c *ProdMed) CrearTransaccion(p Product) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	c.pmu.Lock()
	defer c.pmu.Unlock()
	c.pending = append(c.pending, p)
	return len(c.pending), nil
}

// Pendientes returns the queued products
func (c *ProdMed) Pendientes() []Product {
	c.pmu.Lock()
	defer c.pmu.Unlock()
	return append([]Product(nil), c.pending...)
}

// InformarProducto sends the queued products in a single call. The queue
// is emptied once the service answers, even with errors.
func (c *ProdMed) InformarProducto(ctx context.Context) (*Response, error) {
	c.pmu.Lock()
	products := append([]Product(nil), c.pending...)
	c.pmu.Unlock()
	if len(products) == 0 {
		return nil, model.NewValidationError("transacciones", nil, "required", "no products queued")
	}

	list := make([]dto, 0, len(products))
	for _, p := range products {
		list = append(list, p.fields())
	}
	user, password := c.agent()
	res, err := c.send(ctx, "informarProducto", user, password, list)
	if res != nil {
		c.pmu.Lock()
		c.pending = nil
		c.pmu.Unlock()
	}
	return res, err
}

// SendCancelacTransacc cancels a whole transaction
func (c *ProdMed) SendCancelacTransacc(ctx context.Context, code string) (*Response, error) {
	if code == "" {
		return nil, model.NewValidationError("codigo_transaccion", code, "required", "transaction code is required")
	}
	user, password := c.agent()
	return c.send(ctx, "sendCancelacTransacc", user, password, code)
}

// SendCancelacTransaccParcial cancels a single unit of a transaction
func (c *ProdMed) SendCancelacTransaccParcial(ctx context.Context, code, gtin, serial string) (*Response, error) {
	if code == "" {
		return nil, model.NewValidationError("codigo_transaccion", code, "required", "transaction code is required")
	}
	user, password := c.agent()
	return c.send(ctx, "sendCancelacTransaccParcial", user, password, code, gtin, serial)
}

// GetTransaccionesWS lists the informed transactions
func (c *ProdMed) GetTransaccionesWS(ctx context.Context, q Query) (*Page, error) {
	user, password := c.agent()
	return c.list(ctx, "getTransaccionesWS",
		user, password,
		q.TransactionID,
		q.OriginAgentID,
		q.DestinationAgentID,
		q.GTIN,
		q.Lot,
		q.Serial,
		q.EventID,
		date(q.OperationFrom), date(q.OperationTo),
		date(q.TransactionFrom), date(q.TransactionTo),
		date(q.ExpiryFrom), date(q.ExpiryTo),
		q.Remito,
		q.Invoice,
		q.ProvinceID,
		q.State,
		q.page(), q.size(),
	)
}

// GetCatalogoElectronicoByGTIN searches the electronic product catalogue
func (c *ProdMed) GetCatalogoElectronicoByGTIN(ctx context.Context, q CatalogQuery) (*Page, error) {
	return c.list(ctx, "getCatalogoElectronicoByGTIN", q.args(c.Client)...)
}
