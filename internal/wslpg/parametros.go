package wslpg

import (
	"context"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
)

func (c *Client) table(ctx context.Context, op string, fill func(*soap.Element)) ([]model.Parameter, error) {
	ret, err := c.call(ctx, op, fill)
	if err != nil {
		return nil, err
	}
	var out []model.Parameter
	for _, n := range ret.FindAll("codigoDescripcion") {
		out = append(out, model.Parameter{Code: n.Text("codigo"), Description: n.Text("descripcion")})
	}
	return out, nil
}

// ConsultarCampanias lists the harvest campaigns
func (c *Client) ConsultarCampanias(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "campaniasConsultar", nil)
}

// ConsultarTipoGrano lists the grain types
func (c *Client) ConsultarTipoGrano(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "tipoGranoConsultar", nil)
}

// ConsultarCodigoGradoReferencia lists the reference grades
func (c *Client) ConsultarCodigoGradoReferencia(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "codigoGradoReferenciaConsultar", nil)
}

// ConsultarGradoEntregadoXTipoGrano lists the delivered grades of a grain
func (c *Client) ConsultarGradoEntregadoXTipoGrano(ctx context.Context, grainCode int) ([]model.Parameter, error) {
	return c.table(ctx, "codigoGradoEntregadoXTipoGranoConsultar", func(r *soap.Element) {
		r.Add("codGrano", grainCode)
	})
}

// ConsultarTipoCertificadoDeposito lists the deposit certificate types
func (c *Client) ConsultarTipoCertificadoDeposito(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "tipoCertificadoDepositoConsultar", nil)
}

// ConsultarTipoDeduccion lists the deduction concepts
func (c *Client) ConsultarTipoDeduccion(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "tipoDeduccionConsultar", nil)
}

// ConsultarTipoRetencion lists the retention concepts
func (c *Client) ConsultarTipoRetencion(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "tipoRetencionConsultar", nil)
}

// ConsultarPuerto lists the ports
func (c *Client) ConsultarPuerto(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "puertoConsultar", nil)
}

// ConsultarTipoActividad lists the buyer activities
func (c *Client) ConsultarTipoActividad(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "tipoActividadConsultar", nil)
}

// ConsultarTipoActividadRepresentado lists the activities of the represented
// taxpayer
func (c *Client) ConsultarTipoActividadRepresentado(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "tipoActividadRepresentadoConsultar", nil)
}

// ConsultarProvincias lists the provinces
func (c *Client) ConsultarProvincias(ctx context.Context) ([]model.Parameter, error) {
	return c.table(ctx, "provinciasConsultar", nil)
}

// ConsultarLocalidadesPorProvincia lists the localities of a province
func (c *Client) ConsultarLocalidadesPorProvincia(ctx context.Context, province int) ([]model.Parameter, error) {
	return c.table(ctx, "localidadXProvinciaConsultar", func(r *soap.Element) {
		r.Add("codProvincia", province)
	})
}

// ConsultarTiposOperacion lists the operation types allowed for an activity
func (c *Client) ConsultarTiposOperacion(ctx context.Context, activity int) ([]model.Parameter, error) {
	return c.table(ctx, "tipoOperacionXActividadConsultar", func(r *soap.Element) {
		r.Add("nroActLiquida", activity)
	})
}

// Table dispatches a parameter table without arguments by name, for command
// line use
func (c *Client) Table(ctx context.Context, name string) ([]model.Parameter, error) {
	fn, ok := map[string]func(context.Context) ([]model.Parameter, error){
		"campanias":                c.ConsultarCampanias,
		"granos":                   c.ConsultarTipoGrano,
		"grados_referencia":        c.ConsultarCodigoGradoReferencia,
		"certificados_deposito":    c.ConsultarTipoCertificadoDeposito,
		"deducciones":              c.ConsultarTipoDeduccion,
		"retenciones":              c.ConsultarTipoRetencion,
		"puertos":                  c.ConsultarPuerto,
		"actividades":              c.ConsultarTipoActividad,
		"actividades_representado": c.ConsultarTipoActividadRepresentado,
		"provincias":               c.ConsultarProvincias,
	}[name]
	if !ok {
		return nil, model.NewValidationError("tabla", name, "enum", "unknown parameter table")
	}
	return fn(ctx)
}
