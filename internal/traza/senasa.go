package traza

import (
	"context"
	"fmt"
	"time"

	"github.com/hengadev/errsx"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// SENASA is the veterinary (TrazaVet) and agrochemical (TrazaFito)
// traceability client. Both services share their operations.
type SENASA struct {
	*Client
}

// NewVet creates a TrazaVet client for endpoint
func NewVet(endpoint string, creds Credentials, opts ...soap.Option) *SENASA {
	return &SENASA{Client: newClient(model.ServiceTrazaVet, endpoint, creds, "", opts)}
}

// NewFito creates a TrazaFito client for endpoint
func NewFito(endpoint string, creds Credentials, opts ...soap.Option) *SENASA {
	return &SENASA{Client: newClient(model.ServiceTrazaFito, endpoint, creds, "", opts)}
}

// Movement is a product movement informed to SENASA
type Movement struct {
	GLNOrigin           string
	GLNDestination      string
	Operation           time.Time // f_operacion
	Elaboration         time.Time
	Expiry              time.Time
	EventID             int
	ProductCode         string
	Quantity            int
	Serial              string
	Lot                 string
	CAI                 string
	CAE                 string
	DestructionReasonID int
	Manifest            string
	InTransit           bool
	Remito              string
	ReturnReason        string
	Notes               string
	PurchaseVoucher     string // n_vale_compra
	FullName            string // apellidoNombres
	Street              string
	Number              string
	Locality            string
	Province            string
	PostalCode          string
	CUIT                string
	TransactionCode     string // TrazaFito only
}

// Validate checks the fields every movement needs
func (m Movement) Validate() error {
	var errs errsx.Map
	if m.GLNOrigin == "" {
		errs.Set("gln_origen", fmt.Errorf("origin GLN is required"))
	}
	if m.Operation.IsZero() {
		errs.Set("f_operacion", fmt.Errorf("operation date is required"))
	}
	if m.EventID == 0 {
		errs.Set("id_evento", fmt.Errorf("event is required"))
	}
	if m.ProductCode == "" {
		errs.Set("cod_producto", fmt.Errorf("product code is required"))
	}
	if m.Quantity <= 0 {
		errs.Set("n_cantidad", fmt.Errorf("quantity must be positive"))
	}
	return errs.AsError()
}

func (m Movement) fields() dto {
	transit := "N"
	if m.InTransit {
		transit = "S"
	}
	return dto{
		{"gln_origen", m.GLNOrigin},
		{"gln_destino", m.GLNDestination},
		{"f_operacion", date(m.Operation)},
		{"f_elaboracion", date(m.Elaboration)},
		{"f_vto", date(m.Expiry)},
		{"id_evento", m.EventID},
		{"cod_producto", m.ProductCode},
		{"n_cantidad", m.Quantity},
		{"n_serie", m.Serial},
		{"n_lote", m.Lot},
		{"n_cai", m.CAI},
		{"n_cae", m.CAE},
		{"id_motivo_destruccion", m.DestructionReasonID},
		{"n_manifiesto", m.Manifest},
		{"en_transporte", transit},
		{"n_remito", m.Remito},
		{"motivo_devolucion", m.ReturnReason},
		{"observaciones", m.Notes},
		{"n_vale_compra", m.PurchaseVoucher},
		{"apellidoNombres", m.FullName},
		{"direccion", m.Street},
		{"numero", m.Number},
		{"localidad", m.Locality},
		{"provincia", m.Province},
		{"n_postal", m.PostalCode},
		{"cuit", m.CUIT},
		{"codigo_transaccion", m.TransactionCode},
	}
}

// SaveTransaccion informs a movement
func (c *SENASA) SaveTransaccion(ctx context.Context, m Movement) (*Response, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	user, password := c.agent()
	return c.send(ctx, "saveTransaccion", user, password, m.fields())
}

// SendCancelaTransac cancels a transaction
func (c *SENASA) SendCancelaTransac(ctx context.Context, code string) (*Response, error) {
	if code == "" {
		return nil, model.NewValidationError("codigo_transaccion", code, "required", "transaction code is required")
	}
	user, password := c.agent()
	return c.send(ctx, "sendCancelaTransac", user, password, code)
}

// SendConfirmaTransacc confirms the reception of a transaction. A zero
// quantity confirms it in full.
func (c *SENASA) SendConfirmaTransacc(ctx context.Context, transactionID int64, operation time.Time, quantity int) (*Response, error) {
	user, password := c.agent()
	return c.send(ctx, "sendConfirmaTransacc", user, password, transactionID, date(operation), quantity)
}

// SendAlertaTransacc flags received transactions as wrong
func (c *SENASA) SendAlertaTransacc(ctx context.Context, transactionIDs string) (*Response, error) {
	user, password := c.agent()
	return c.send(ctx, "sendAlertaTransacc", user, password, transactionIDs)
}

// GetTransacciones lists the informed transactions
func (c *SENASA) GetTransacciones(ctx context.Context, q Query) (*Page, error) {
	user, password := c.agent()
	return c.list(ctx, "getTransacciones", user, password, dto{
		{"id_transaccion", q.TransactionID},
		{"id_evento", q.EventID},
		{"gln_origen", q.OriginAgentID},
		{"fecha_desde_t", date(q.TransactionFrom)},
		{"fecha_hasta_t", date(q.TransactionTo)},
		{"fecha_desde_v", date(q.ExpiryFrom)},
		{"fecha_hasta_v", date(q.ExpiryTo)},
		{"gln_informador", q.InformerAgentID},
		{"id_tipo_transaccion", q.TransactionType},
		{"gtin_elemento", q.GTIN},
		{"n_lote", q.Lot},
		{"n_serie", q.Serial},
		{"n_remito_factura", q.Remito},
	})
}
