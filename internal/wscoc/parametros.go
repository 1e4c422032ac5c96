package wscoc

import (
	"context"

	"github.com/rezonia/afipws/internal/model"
)

func (c *Client) table(ctx context.Context, op, container string) ([]model.Parameter, error) {
	ret, err := c.call(ctx, op, nil)
	if err != nil {
		return nil, err
	}
	var out []model.Parameter
	for _, n := range ret.Find(container).FindAll("codigoDescripcion") {
		out = append(out, model.Parameter{Code: n.Text("codigo"), Description: n.Text("descripcion")})
	}
	return out, nil
}

// ConsultarMonedas lists the currencies
func (c *Client) ConsultarMonedas(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarMonedas", "arrayMonedas")
}

// ConsultarDestinosCompra lists the purchase destinations
func (c *Client) ConsultarDestinosCompra(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarDestinosCompra", "arrayTiposDestinos")
}

// ConsultarTiposDocumento lists the document types
func (c *Client) ConsultarTiposDocumento(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarTiposDocumento", "arrayTiposDocumento")
}

// ConsultarTiposEstadoSolicitud lists the request states
func (c *Client) ConsultarTiposEstadoSolicitud(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarTiposEstadoSolicitud", "arrayTiposEstadoSolicitud")
}

// ConsultarMotivosExcepcionDJAI lists the DJAI exemption reasons
func (c *Client) ConsultarMotivosExcepcionDJAI(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarMotivosExcepcionDJAI", "arrayMotivosExcepcion")
}

// ConsultarDestinosCompraDJAI lists the destinations that require a DJAI
func (c *Client) ConsultarDestinosCompraDJAI(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarDestinosCompraDJAI", "arrayCodigosDescripciones")
}

// ConsultarMotivosExcepcionDJAS lists the DJAS exemption reasons
func (c *Client) ConsultarMotivosExcepcionDJAS(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarMotivosExcepcionDJAS", "arrayMotivosExcepcion")
}

// ConsultarDestinosCompraDJAS lists the destinations that require a DJAS
func (c *Client) ConsultarDestinosCompraDJAS(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarDestinosCompraDJAS", "arrayCodigosDescripciones")
}

// ConsultarTiposReferencia lists the reference types
func (c *Client) ConsultarTiposReferencia(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarTiposReferencia", "arrayTiposReferencia")
}

// ConsultarDestinosCompraTipoReferencia lists destinations by reference type
func (c *Client) ConsultarDestinosCompraTipoReferencia(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "consultarDestinosCompraTipoReferencia", "arrayDestinosCompraTipoReferencia")
}

// Table dispatches a parameter table by name, for command line use
func (c *Client) Table(ctx context.Context, name string) ([]model.Parameter, error) {
	fn, ok := map[string]func(context.Context) ([]model.Parameter, error){
		"monedas":                  c.ConsultarMonedas,
		"destinos":                 c.ConsultarDestinosCompra,
		"tipos_documento":          c.ConsultarTiposDocumento,
		"estados":                  c.ConsultarTiposEstadoSolicitud,
		"excepciones_djai":         c.ConsultarMotivosExcepcionDJAI,
		"destinos_djai":            c.ConsultarDestinosCompraDJAI,
		"excepciones_djas":         c.ConsultarMotivosExcepcionDJAS,
		"destinos_djas":            c.ConsultarDestinosCompraDJAS,
		"tipos_referencia":         c.ConsultarTiposReferencia,
		"destinos_tipo_referencia": c.ConsultarDestinosCompraTipoReferencia,
	}[name]
	if !ok {
		return nil, model.NewValidationError("tabla", name, "enum", "unknown parameter table")
	}
	return fn(ctx)
}
