package traza

import (
	"context"
	"fmt"
	"time"

	"github.com/hengadev/errsx"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Renpre is the chemical precursors traceability client (TrazaRenpre,
// SEDRONAR)
type Renpre struct {
	*Client
}

// NewRenpre creates a TrazaRenpre client for endpoint
func NewRenpre(endpoint string, creds Credentials, opts ...soap.Option) *Renpre {
	return &Renpre{Client: newClient(model.ServiceTrazaRenpre, endpoint, creds, "", opts)}
}

// Precursor is a movement of a controlled chemical
type Precursor struct {
	GLNOrigin         string
	GLNDestination    string
	Operation         time.Time
	EventID           int
	ProductCode       string
	Quantity          int
	OperationDocument string // n_documento_operacion
	PartialDelivery   string // m_entrega_parcial
	Remito            string
	Serial            string
}

// Validate checks the fields every movement needs
func (p Precursor) Validate() error {
	var errs errsx.Map
	if p.GLNOrigin == "" {
		errs.Set("gln_origen", fmt.Errorf("origin GLN is required"))
	}
	if p.GLNDestination == "" {
		errs.Set("gln_destino", fmt.Errorf("destination GLN is required"))
	}
	if p.Operation.IsZero() {
		errs.Set("f_operacion", fmt.Errorf("operation date is required"))
	}
	if p.EventID == 0 {
		errs.Set("id_evento", fmt.Errorf("event is required"))
	}
	if p.ProductCode == "" {
		errs.Set("cod_producto", fmt.Errorf("product code is required"))
	}
	if p.Quantity <= 0 {
		errs.Set("n_cantidad", fmt.Errorf("quantity must be positive"))
	}
	return errs.AsError()
}

// SaveTransacciones informs a precursor movement
func (c *Renpre) SaveTransacciones(ctx context.Context, p Precursor) (*Response, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	user, password := c.agent()
	return c.send(ctx, "saveTransacciones", user, password, dto{
		{"gln_origen", p.GLNOrigin},
		{"gln_destino", p.GLNDestination},
		{"f_operacion", date(p.Operation)},
		{"id_evento", p.EventID},
		{"cod_producto", p.ProductCode},
		{"n_cantidad", p.Quantity},
		{"n_documento_operacion", p.OperationDocument},
		{"m_entrega_parcial", p.PartialDelivery},
		{"n_remito", p.Remito},
		{"n_serie", p.Serial},
	})
}

// SendCancelacTransacc cancels a transaction
func (c *Renpre) SendCancelacTransacc(ctx context.Context, code string) (*Response, error) {
	if code == "" {
		return nil, model.NewValidationError("codigo_transaccion", code, "required", "transaction code is required")
	}
	user, password := c.agent()
	return c.send(ctx, "sendCancelacTransacc", user, password, code)
}

// SendConfirmaTransacc confirms the reception of a transaction
func (c *Renpre) SendConfirmaTransacc(ctx context.Context, transactionID int64, operation time.Time) (*Response, error) {
	user, password := c.agent()
	return c.send(ctx, "sendConfirmaTransacc", user, password, transactionID, date(operation))
}

// SendAlertaTransacc flags received transactions as wrong
func (c *Renpre) SendAlertaTransacc(ctx context.Context, transactionIDs string) (*Response, error) {
	user, password := c.agent()
	return c.send(ctx, "sendAlertaTransacc", user, password, transactionIDs)
}

// GetTransaccionesWS lists the informed transactions
func (c *Renpre) GetTransaccionesWS(ctx context.Context, q Query) (*Page, error) {
	user, password := c.agent()
	return c.list(ctx, "getTransaccionesWS",
		user, password,
		q.TransactionID,
		q.OriginAgentID,
		q.DestinationAgentID,
		q.InformerAgentID,
		q.GTIN,
		q.EventID,
		q.AnalyticQuantity,
		date(q.OperationFrom), date(q.OperationTo),
		date(q.TransactionFrom), date(q.TransactionTo),
		q.TransactionType,
		q.State,
		q.page(), q.size(),
	)
}
