package wscoc_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/afip/afiptest"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap/soaptest"
	"github.com/rezonia/afipws/internal/wscoc"
)

func newClient(t *testing.T) (*wscoc.Client, *soaptest.Server) {
	t.Helper()
	srv := soaptest.NewServer(t)
	return wscoc.New(srv.URL, afiptest.Source(model.ServiceWSCOC), 0, afiptest.Options()...), srv
}

const solicitudXML = `<detalleSolicitud>
	<codigoSolicitud>1234</codigoSolicitud>
	<fechaSolicitud>2019-01-10</fechaSolicitud>
	<COC>987654321012</COC>
	<estadoSolicitud>OT</estadoSolicitud>
	<detalleCUITComprador><cuit>20267565393</cuit><denominacion>REINGART MARIANO</denominacion></detalleCUITComprador>
	<DetalleCUITRepresentante><cuit>20206562553</cuit><denominacion>BANCO</denominacion></DetalleCUITRepresentante>
	<codigoMoneda>DOL</codigoMoneda>
	<cotizacionMoneda>4.26</cotizacionMoneda>
	<montoPesos>100</montoPesos>
	<codigoDestino>625</codigoDestino>
</detalleSolicitud>`

func TestGenerarSolicitudCompraDivisa(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("generarSolicitudCompraDivisa", `<generarSolicitudCompraDivisaResponse><generarSolicitudCompraDivisaReturn>`+
		solicitudXML+
		`<arrayInconsistencias><codigoDescripcion><codigo>1106</codigo><descripcion>No existen puntos de venta.</descripcion></codigoDescripcion></arrayInconsistencias>
	</generarSolicitudCompraDivisaReturn></generarSolicitudCompraDivisaResponse>`)

	s, err := c.GenerarSolicitudCompraDivisa(context.Background(), wscoc.Purchase{
		BuyerCUIT:       20267565393,
		CurrencyCode:    "DOL",
		ExchangeRate:    decimal.RequireFromString("4.26"),
		AmountPesos:     decimal.NewFromInt(100),
		DestinationCode: 625,
		ExceptionDJAI:   3,
		ExceptionDJAS:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), s.Code)
	assert.Equal(t, int64(987654321012), s.COC)
	assert.Equal(t, "REINGART MARIANO", s.Buyer.Name)
	require.NotNil(t, s.Representative)
	assert.Equal(t, int64(20206562553), s.Representative.CUIT)
	assert.True(t, s.ExchangeRate.Equal(decimal.RequireFromString("4.26")))
	require.Len(t, s.Inconsistencies, 1)
	assert.Equal(t, "1106", c.LastInconsistencies()[0].Code)

	sent := srv.LastRequest("generarSolicitudCompraDivisa")
	assert.Equal(t, "20267565393", sent.FindElement("authRequest/cuitRepresentada").Text())
	assert.Equal(t, "3", sent.FindElement("codigoExcepcionDJAI").Text())
	assert.Nil(t, sent.FindElement("djai"))
	assert.Nil(t, sent.FindElement("referencia"))
}

func TestGenerarSolicitudCompraDivisa_Validation(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.GenerarSolicitudCompraDivisa(context.Background(), wscoc.Purchase{BuyerCUIT: 1, ExchangeRate: decimal.NewFromInt(1)})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "monto_pesos", verr.Field)
}

func TestGenerarSolicitudCompraDivisaTurExt(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("generarSolicitudCompraDivisaTurExt", `<r><generarSolicitudCompraDivisaTurExtReturn><detalleSolicitud>
		<codigoSolicitud>55</codigoSolicitud>
		<detalleTurExtComprador><tipoDoc>91</tipoDoc><numeroDoc>1234567</numeroDoc><apellidoNombre>John Doe</apellidoNombre></detalleTurExtComprador>
	</detalleSolicitud></generarSolicitudCompraDivisaTurExtReturn></r>`)

	s, err := c.GenerarSolicitudCompraDivisaTurExt(context.Background(), wscoc.TouristPurchase{
		Tourist:         wscoc.Tourist{DocType: 91, DocNumber: 1234567, Name: "John Doe"},
		CurrencyCode:    "DOL",
		ExchangeRate:    decimal.RequireFromString("4.26"),
		AmountPesos:     decimal.NewFromInt(100),
		DestinationCode: 985,
	})
	require.NoError(t, err)
	require.NotNil(t, s.Tourist)
	assert.Equal(t, int64(1234567), s.Tourist.DocNumber)
	assert.Nil(t, s.Representative)
}

func TestErrors(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarCOC", `<consultarCOCResponse><consultarCOCReturn>
		<arrayErrores><codigoDescripcion><codigo>1106</codigo><descripcion>No existen puntos de venta habilitados.</descripcion></codigoDescripcion></arrayErrores>
		<arrayErroresFormato><codigoDescripcionString><codigo>coc</codigo><descripcion>formato invalido</descripcion></codigoDescripcionString></arrayErroresFormato>
	</consultarCOCReturn></consultarCOCResponse>`)

	_, err := c.ConsultarCOC(context.Background(), 1)
	var se *model.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"1106", "coc"}, se.Codes())
	assert.Len(t, c.LastFormatErrors(), 1)
	assert.Len(t, c.LastErrors(), 2)
}

func TestInformarSolicitudCompraDivisa(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("informarSolicitudCompraDivisa", `<r><informarSolicitudCompraDivisaReturn>`+solicitudXML+`</informarSolicitudCompraDivisaReturn></r>`)

	_, err := c.InformarSolicitudCompraDivisa(context.Background(), 1234, "XX")
	require.Error(t, err)

	s, err := c.InformarSolicitudCompraDivisa(context.Background(), 1234, wscoc.StateConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), s.Code)
	assert.Equal(t, "CO", srv.LastRequest("informarSolicitudCompraDivisa").FindElement("nuevoEstado").Text())
}

func TestConsultarCUIT(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarCUIT", `<r><consultarCUITReturn><arrayCuits>
		<detalleCUIT><cuit>20267565393</cuit><denominacion>REINGART MARIANO</denominacion></detalleCUIT>
		<detalleCUIT><cuit>20267565394</cuit><denominacion>OTRO</denominacion></detalleCUIT>
	</arrayCuits></consultarCUITReturn></r>`)

	parties, err := c.ConsultarCUIT(context.Background(), 26756539, 96)
	require.NoError(t, err)
	require.Len(t, parties, 2)
	assert.Equal(t, "OTRO", parties[1].Name)
}

func TestConsultarSolicitudesCompraDivisas(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarSolicitudesCompraDivisas", `<r><consultarSolicitudesCompraDivisasReturn><arrayDetallesSolicitudes>
		<detalleSolicitudes><codigoSolicitud>1</codigoSolicitud></detalleSolicitudes>
		<detalleSolicitudes><codigoSolicitud>2</codigoSolicitud></detalleSolicitudes>
	</arrayDetallesSolicitudes></consultarSolicitudesCompraDivisasReturn></r>`)

	list, err := c.ConsultarSolicitudesCompraDivisas(context.Background(), wscoc.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[1].Code)
}

func TestConsultarDJAI(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarDJAI", `<r><consultarDJAIReturn><djai>12345DJAI000001N</djai><cuit>20267565393</cuit><estado>OFICIALIZADA</estado><monto>1000.50</monto><codigoMoneda>DOL</codigoMoneda></consultarDJAIReturn></r>`)

	d, err := c.ConsultarDJAI(context.Background(), "12345DJAI000001N", 20267565393)
	require.NoError(t, err)
	assert.Equal(t, "12345DJAI000001N", d.Code)
	assert.Equal(t, "OFICIALIZADA", d.State)
	assert.True(t, d.Amount.Equal(decimal.RequireFromString("1000.5")))
}

func TestParameterTables(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarMotivosExcepcionDJAS", `<r><consultarMotivosExcepcionDJASReturn><arrayMotivosExcepcion>
		<codigoDescripcion><codigo>1</codigo><descripcion>Exento</descripcion></codigoDescripcion>
	</arrayMotivosExcepcion></consultarMotivosExcepcionDJASReturn></r>`)

	params, err := c.Table(context.Background(), "excepciones_djas")
	require.NoError(t, err)
	assert.Equal(t, []string{"|| 1 || Exento ||"}, model.FormatParameters(params, "||"))

	_, err = c.Table(context.Background(), "nope")
	require.Error(t, err)
}

func TestPurchaseForeignAmount(t *testing.T) {
	p := wscoc.Purchase{AmountPesos: decimal.RequireFromString("1000"), ExchangeRate: decimal.RequireFromString("4.26")}
	assert.Equal(t, "234.74", p.ForeignAmount().StringFixed(2))

	p.ExchangeRate = decimal.Zero
	assert.True(t, p.ForeignAmount().IsZero())
}
