package wsctg_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/afip/afiptest"
	"github.com/rezonia/afipws/internal/document/documenttest"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap/soaptest"
	"github.com/rezonia/afipws/internal/wsctg"
)

func newClient(t *testing.T) (*wsctg.Client, *soaptest.Server) {
	t.Helper()
	srv := soaptest.NewServer(t)
	c := wsctg.New(srv.URL, afiptest.Source(model.ServiceWSCTG), 0, afiptest.Options()...)
	return c, srv
}

func TestDummy(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("dummy", `<dummyResponse><return><appserver>OK</appserver><authserver>OK</authserver><dbserver>OK</dbserver></return></dummyResponse>`)

	status, err := c.Dummy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", status.AppServer)
	assert.Equal(t, "OK", status.DBServer)
	assert.Equal(t, "OK", status.AuthServer)
}

func TestSolicitarCTGInicial(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("solicitarCTGInicial", `<solicitarCTGInicialResponse><response>
		<datosSolicitarCTGResponse>
			<cartaPorte>512345679</cartaPorte>
			<datosSolicitarCTG>
				<ctg>10000001</ctg>
				<fechaEmision>2019-03-01 10:00:00</fechaEmision>
				<fechaVigenciaDesde>01/03/2019</fechaVigenciaDesde>
				<fechaVigenciaHasta>02/03/2019</fechaVigenciaHasta>
				<tarifaReferencia>12.50</tarifaReferencia>
			</datosSolicitarCTG>
			<arrayControles><control><tipo>W</tipo><descripcion>Patente sin registrar</descripcion></control></arrayControles>
		</datosSolicitarCTGResponse>
		<observacion>ok</observacion>
	</response></solicitarCTGInicialResponse>`)

	res, err := c.SolicitarCTGInicial(context.Background(), wsctg.InitialRequest{
		WaybillNumber:           512345679,
		SpeciesCode:             23,
		DestinationCUIT:         20111111112,
		RecipientCUIT:           20222222223,
		OriginLocalityCode:      3058,
		DestinationLocalityCode: 3059,
		HarvestCode:             "1819",
		NetWeight:               1000,
		KmToTravel:              150,
		Hours:                   1,
		Plate:                   "OPE652",
		CarrierCUIT:             20333333334,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(512345679), res.WaybillNumber)
	assert.Equal(t, int64(10000001), res.CTG)
	assert.True(t, res.ReferenceRate.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "ok", res.Observations)
	require.Len(t, res.Controls, 1)
	assert.Equal(t, "W", res.Controls[0].Code)
	assert.Len(t, c.LastObservations(), 1)

	sent := srv.LastRequest("solicitarCTGInicial")
	require.NotNil(t, sent)
	assert.Equal(t, "20267565393", sent.FindElement("request/auth/cuitRepresentado").Text())
	datos := sent.FindElement("request/datosSolicitarCTGInicial")
	require.NotNil(t, datos)
	assert.Equal(t, "OPE652", datos.FindElement("patente").Text())
	assert.Nil(t, datos.FindElement("cuitCanjeador"), "zero values are omitted")
}

func TestSolicitarCTGInicial_Validation(t *testing.T) {
	c, srv := newClient(t)
	_, err := c.SolicitarCTGInicial(context.Background(), wsctg.InitialRequest{WaybillNumber: 1})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, srv.Requests("solicitarCTGInicial"))
}

func TestAnularCTG_Errors(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("anularCTG", `<anularCTGResponse><response>
		<arrayErrores><error>CTG inexistente.</error><error>Carta de porte invalida.</error></arrayErrores>
	</response></anularCTGResponse>`)

	_, err := c.AnularCTG(context.Background(), 7, 2)
	var se *model.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Len(t, se.Messages, 2)
	assert.Equal(t, "CTG inexistente. Carta de porte invalida.", c.ErrMsg())
}

func TestRechazarCTG(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("rechazarCTG", `<rechazarCTGResponse><response><datosResponse>
		<cartaPorte>11</cartaPorte><ctg>25</ctg><fechaHora>2019-03-01 10:00:00</fechaHora><codigoOperacion>99</codigoOperacion>
	</datosResponse></response></rechazarCTGResponse>`)

	res, err := c.RechazarCTG(context.Background(), 11, 25, "5")
	require.NoError(t, err)
	assert.Equal(t, int64(25), res.CTG)
	assert.Equal(t, int64(99), res.OperationCode)
	assert.Empty(t, c.ErrMsg())
	assert.Equal(t, "5", srv.LastRequest("rechazarCTG").FindElement("request/datosRechazarCTG/motivoRechazo").Text())
}

func TestConfirmarArribo(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("confirmarArribo", `<confirmarArriboResponse><response><datosResponse>
		<cartaPorte>512345679</cartaPorte><ctg>5465464654</ctg><codigoTransaccion>123</codigoTransaccion>
	</datosResponse></response></confirmarArriboResponse>`)

	res, err := c.ConfirmarArribo(context.Background(), wsctg.ArrivalRequest{
		WaybillNumber: 512345679, CTG: 5465464654, CarrierCUIT: 20333333334, NetWeight: 1000, OwnUse: true, Establishment: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(123), res.TransactionCode)
	assert.Equal(t, "S", srv.LastRequest("confirmarArribo").FindElement("request/datosConfirmarArribo/consumoPropio").Text())
}

func TestConsultarCTGRechazados_Empty(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarCTGRechazados", `<consultarCTGRechazadosResponse><response/></consultarCTGRechazadosResponse>`)

	list, err := c.ConsultarCTGRechazados(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCTGsPendientesResolucion(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("CTGsPendientesResolucion", `<CTGsPendientesResolucionResponse><response>
		<arrayCTGsRechazadosAResolver><datosCTG><cartaPorte>1</cartaPorte><ctg>10</ctg></datosCTG></arrayCTGsRechazadosAResolver>
		<arrayCTGsOtorgadosAResolver><datosCTG><cartaPorte>2</cartaPorte><ctg>20</ctg></datosCTG><datosCTG><cartaPorte>3</cartaPorte><ctg>30</ctg></datosCTG></arrayCTGsOtorgadosAResolver>
	</response></CTGsPendientesResolucionResponse>`)

	p, err := c.CTGsPendientesResolucion(context.Background())
	require.NoError(t, err)
	assert.Len(t, p.Rejected, 1)
	assert.Len(t, p.Granted, 2)
	assert.Empty(t, p.Confirmed)
	assert.Equal(t, int64(30), p.Granted[1].CTG)
}

func TestConsultarDetalleCTG(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarDetalleCTG", `<consultarDetalleCTGResponse><response><consultarDetalleCTGDatos>
		<cartaPorte>512345679</cartaPorte><ctg>15448875</ctg><estado>Otorgado</estado>
		<especie>Soja</especie><pesoNetoCarga>30000</pesoNetoCarga><tarifaReferencia>1.5</tarifaReferencia>
	</consultarDetalleCTGDatos></response></consultarDetalleCTGResponse>`)

	d, err := c.ConsultarDetalleCTG(context.Background(), 15448875)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Otorgado", d.State)
	assert.Equal(t, int64(30000), d.NetWeight)

	srv.Handle("consultarDetalleCTG", `<consultarDetalleCTGResponse><response/></consultarDetalleCTGResponse>`)
	d, err = c.ConsultarDetalleCTG(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestConsultarConstanciaCTGPDF(t *testing.T) {
	c, srv := newClient(t)
	pdf := base64.StdEncoding.EncodeToString(documenttest.MinimalPDF(1))
	srv.Handle("consultarConstanciaCTGPDF", `<consultarConstanciaCTGPDFResponse><response><archivo>`+pdf+`</archivo></response></consultarConstanciaCTGPDFResponse>`)

	path := filepath.Join(t.TempDir(), "constancia.pdf")
	info, err := c.ConsultarConstanciaCTGPDF(context.Background(), 1234, path)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Pages)
	assert.FileExists(t, path)

	srv.Handle("consultarConstanciaCTGPDF", `<consultarConstanciaCTGPDFResponse><response/></consultarConstanciaCTGPDFResponse>`)
	_, err = c.ConsultarConstanciaCTGPDF(context.Background(), 1234, path)
	var perr *model.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParameterTables(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("consultarProvincias", `<consultarProvinciasResponse><response><arrayProvincias>
		<provincia><codigo>1</codigo><descripcion>BUENOS AIRES</descripcion></provincia>
		<provincia><codigo>12</codigo><descripcion>SANTA FE</descripcion></provincia>
	</arrayProvincias></response></consultarProvinciasResponse>`)
	srv.Handle("consultarEstablecimientos", `<consultarEstablecimientosResponse><response><arrayEstablecimientos>
		<establecimiento>1</establecimiento><establecimiento>7</establecimiento>
	</arrayEstablecimientos></response></consultarEstablecimientosResponse>`)

	provinces, err := c.ConsultarProvincias(context.Background())
	require.NoError(t, err)
	require.Len(t, provinces, 2)
	assert.Equal(t, "|| 12 || SANTA FE ||", provinces[1].Format("||"))

	est, err := c.ConsultarEstablecimientos(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "7"}, est)
}

func TestRecords(t *testing.T) {
	in := wsctg.InitialRequest{
		WaybillNumber:   512345679,
		SpeciesCode:     23,
		DestinationCUIT: 20111111112,
		RecipientCUIT:   20222222223,
		HarvestCode:     "1819",
		NetWeight:       1000,
		Plate:           "OPE652",
		ReferenceRate:   decimal.RequireFromString("12.5"),
	}
	var buf bytes.Buffer
	require.NoError(t, wsctg.WriteRecord(&buf, in, &wsctg.Result{CTG: 10000001}, nil))

	got, err := wsctg.ReadRecords(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, in.WaybillNumber, got[0].WaybillNumber)
	assert.Equal(t, "OPE652", got[0].Plate)
	assert.True(t, got[0].ReferenceRate.Equal(in.ReferenceRate))
}
