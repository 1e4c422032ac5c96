package traza

import (
	"context"
	"fmt"
	"time"

	"github.com/hengadev/errsx"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

// Med is the ANMAT medicine traceability client (TrazaMed)
type Med struct {
	*Client
}

// NewMed creates a TrazaMed client for endpoint
func NewMed(endpoint string, creds Credentials, opts ...soap.Option) *Med {
	return &Med{Client: newClient(model.ServiceTrazaMed, endpoint, creds, "_", opts)}
}

// Patient identifies the person a medicine is dispensed to
type Patient struct {
	LastName   string
	FirstName  string
	DocType    string // 96 DNI
	DocNumber  string
	Sex        string // M, F
	Street     string
	Number     string
	Floor      string
	Apartment  string
	Locality   string
	Province   string
	PostalCode string
	BirthDate  time.Time
	Phone      string
}

// Medicine is a medicine movement (sale, dispensation, return...)
type Medicine struct {
	EventAt           time.Time // f_evento and h_evento
	GLNOrigin         string
	GLNDestination    string
	Remito            string
	Invoice           string
	Expiry            time.Time
	GTIN              string
	Lot               string
	Serial            string
	HealthInsuranceID int64 // id_obra_social
	EventID           int
	CUITOrigin        string
	CUITDestination   string
	Patient           *Patient
	MemberNumber      string // nro_asociado

	// Quantity is only sent for fractioned units
	Quantity int

	// SerialFrom and SerialTo replace Serial for serial ranges
	SerialFrom string
	SerialTo   string
}

func (m Medicine) validate(serial func(*errsx.Map)) error {
	var errs errsx.Map
	if m.EventAt.IsZero() {
		errs.Set("f_evento", fmt.Errorf("event date is required"))
	}
	if m.GLNOrigin == "" {
		errs.Set("gln_origen", fmt.Errorf("origin GLN is required"))
	}
	if m.GLNDestination == "" {
		errs.Set("gln_destino", fmt.Errorf("destination GLN is required"))
	}
	if m.GTIN == "" {
		errs.Set("gtin", fmt.Errorf("GTIN is required"))
	}
	if m.EventID == 0 {
		errs.Set("id_evento", fmt.Errorf("event is required"))
	}
	serial(&errs)
	return errs.AsError()
}

func requireSerial(m Medicine) func(*errsx.Map) {
	return func(errs *errsx.Map) {
		if m.Serial == "" {
			errs.Set("numero_serial", fmt.Errorf("serial number is required"))
		}
	}
}

func (m Medicine) fields() dto {
	d := dto{
		{"f_evento", date(m.EventAt)},
		{"h_evento", hour(m.EventAt)},
		{"gln_origen", m.GLNOrigin},
		{"gln_destino", m.GLNDestination},
		{"n_remito", m.Remito},
		{"n_factura", m.Invoice},
		{"vencimiento", date(m.Expiry)},
		{"gtin", m.GTIN},
		{"lote", m.Lot},
	}
	if m.SerialFrom != "" || m.SerialTo != "" {
		d = append(d, field{"desde_numero_serial", m.SerialFrom}, field{"hasta_numero_serial", m.SerialTo})
	} else {
		d = append(d, field{"numero_serial", m.Serial})
	}
	d = append(d,
		field{"id_obra_social", m.HealthInsuranceID},
		field{"id_evento", m.EventID},
		field{"cuit_origen", m.CUITOrigin},
		field{"cuit_destino", m.CUITDestination},
	)
	if p := m.Patient; p != nil {
		d = append(d,
			field{"apellido", p.LastName},
			field{"nombres", p.FirstName},
			field{"tipo_documento", p.DocType},
			field{"n_documento", p.DocNumber},
			field{"sexo", p.Sex},
			field{"direccion", p.Street},
			field{"numero", p.Number},
			field{"piso", p.Floor},
			field{"depto", p.Apartment},
			field{"localidad", p.Locality},
			field{"provincia", p.Province},
			field{"n_postal", p.PostalCode},
			field{"fecha_nacimiento", date(p.BirthDate)},
			field{"telefono", p.Phone},
		)
	}
	d = append(d, field{"nro_asociado", m.MemberNumber})
	if m.Quantity > 0 {
		d = append(d, field{"cantidad", m.Quantity})
	}
	return d
}

// SendMedicamentos informs a movement of serialized units
func (c *Med) SendMedicamentos(ctx context.Context, m Medicine) (*Response, error) {
	if err := m.validate(requireSerial(m)); err != nil {
		return nil, err
	}
	user, password := c.agent()
	return c.send(ctx, "sendMedicamentos", m.fields(), user, password)
}

// SendMedicamentosFraccion informs a movement of a fraction of a unit
func (c *Med) SendMedicamentosFraccion(ctx context.Context, m Medicine) (*Response, error) {
	err := m.validate(func(errs *errsx.Map) {
		requireSerial(m)(errs)
		if m.Quantity <= 0 {
			errs.Set("cantidad", fmt.Errorf("quantity must be positive"))
		}
	})
	if err != nil {
		return nil, err
	}
	user, password := c.agent()
	return c.send(ctx, "sendMedicamentosFraccion", m.fields(), user, password)
}

// SendMedicamentosDHSerie informs a movement of a range of serial numbers
func (c *Med) SendMedicamentosDHSerie(ctx context.Context, m Medicine) (*Response, error) {
	err := m.validate(func(errs *errsx.Map) {
		if m.SerialFrom == "" || m.SerialTo == "" {
			errs.Set("desde_numero_serial", fmt.Errorf("serial range is required"))
		}
	})
	if err != nil {
		return nil, err
	}
	m.Patient = nil
	user, password := c.agent()
	return c.send(ctx, "sendMedicamentosDHSerie", m.fields(), user, password)
}

// SendAlertaTransacc flags received transactions as wrong
func (c *Med) SendAlertaTransacc(ctx context.Context, transactionIDs string) (*Response, error) {
	user, password := c.agent()
	return c.send(ctx, "sendAlertaTransacc", user, password, transactionIDs)
}

// SendConfirmaTransacc confirms the reception of a transaction
func (c *Med) SendConfirmaTransacc(ctx context.Context, transactionID int64, operation time.Time) (*Response, error) {
	user, password := c.agent()
	return c.send(ctx, "sendConfirmaTransacc", user, password, dto{
		{"p_ids_transac", transactionID},
		{"f_operacion", date(operation)},
	})
}

// SendCancelacTransacc cancels a whole transaction
func (c *Med) SendCancelacTransacc(ctx context.Context, code string) (*Response, error) {
	if code == "" {
		return nil, model.NewValidationError("codigo_transaccion", code, "required", "transaction code is required")
	}
	user, password := c.agent()
	return c.send(ctx, "sendCancelacTransacc", code, user, password)
}

// SendCancelacTransaccParcial cancels a single unit of a transaction
func (c *Med) SendCancelacTransaccParcial(ctx context.Context, code, gtin, serial string) (*Response, error) {
	if code == "" {
		return nil, model.NewValidationError("codigo_transaccion", code, "required", "transaction code is required")
	}
	user, password := c.agent()
	return c.send(ctx, "sendCancelacTransaccParcial", code, user, password, gtin, serial)
}

func (c *Med) pendingArgs(q Query) []any {
	user, password := c.agent()
	return []any{
		user, password,
		q.TransactionID,
		q.InformerAgentID,
		q.OriginAgentID,
		q.DestinationAgentID,
		q.GTIN,
		q.EventID,
		date(q.OperationFrom), date(q.OperationTo),
		date(q.TransactionFrom), date(q.TransactionTo),
		date(q.ExpiryFrom), date(q.ExpiryTo),
		q.Remito,
		q.Invoice,
		q.State,
		q.Lot,
		q.Serial,
		q.page(), q.size(),
	}
}

// GetTransaccionesNoConfirmadas lists the transactions awaiting confirmation
func (c *Med) GetTransaccionesNoConfirmadas(ctx context.Context, q Query) (*Page, error) {
	return c.list(ctx, "getTransaccionesNoConfirmadas", c.pendingArgs(q)...)
}

// GetEnviosPropiosAlertados lists own sends that were alerted by the receiver
func (c *Med) GetEnviosPropiosAlertados(ctx context.Context, q Query) (*Page, error) {
	return c.list(ctx, "getEnviosPropiosAlertados", c.pendingArgs(q)...)
}

// GetTransaccionesWS lists the transactions informed through the web service
func (c *Med) GetTransaccionesWS(ctx context.Context, q Query) (*Page, error) {
	user, password := c.agent()
	return c.list(ctx, "getTransaccionesWS",
		user, password,
		q.TransactionID,
		q.EventID,
		q.OriginAgentID,
		q.DestinationAgentID,
		q.GTIN,
		q.Lot,
		q.Serial,
		date(q.OperationFrom), date(q.OperationTo),
		date(q.TransactionFrom), date(q.TransactionTo),
		date(q.ExpiryFrom), date(q.ExpiryTo),
		q.Remito,
		q.Invoice,
		q.State,
		q.page(), q.size(),
	)
}

// GetCatalogoElectronicoByGTIN searches the electronic product catalogue
func (c *Med) GetCatalogoElectronicoByGTIN(ctx context.Context, q CatalogQuery) (*Page, error) {
	return c.list(ctx, "getCatalogoElectronicoByGTIN", q.args(c.Client)...)
}

// GetConsultaStock lists the stock of the informing agent
func (c *Med) GetConsultaStock(ctx context.Context, q StockQuery) (*Page, error) {
	user, password := c.agent()
	return c.list(ctx, "getConsultaStock",
		user, password,
		q.GTIN,
		q.GLN,
		q.Description,
		q.Quantity,
		q.page(), q.size(),
	)
}
