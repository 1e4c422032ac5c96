package wslpg_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/afip/afiptest"
	"github.com/rezonia/afipws/internal/document/documenttest"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap/soaptest"
	"github.com/rezonia/afipws/internal/wslpg"
)

func newClient(t *testing.T) (*wslpg.Client, *soaptest.Server) {
	t.Helper()
	srv := soaptest.NewServer(t)
	c := wslpg.New(srv.URL, afiptest.Source(model.ServiceWSLPG), 0, afiptest.Options()...)
	return c, srv
}

func settlement() *wslpg.Settlement {
	return wslpg.CrearLiquidacion(wslpg.Settlement{
		IssuePoint:           99,
		OrderNumber:          1,
		BuyerCUIT:            20400000000,
		BuyerActivity:        40,
		BuyerGrossIncomeNo:   123,
		OperationType:        1,
		PortCode:             14,
		PortLocality:         "DETALLE PUERTO",
		GrainCode:            31,
		SellerCUIT:           23000000019,
		SellerGrossIncomeNo:  123,
		PriceDate:            time.Date(2013, 2, 7, 0, 0, 0, 0, time.UTC),
		ReferencePricePerTon: decimal.RequireFromString("2000"),
		ReferenceGrade:       "G1",
		DeliveredGrade:       "G1",
		DeliveredFactor:      decimal.RequireFromString("98"),
		IVARate:              decimal.RequireFromString("10.5"),
		Campaign:             1213,
		OriginLocality:       3,
		OriginProvince:       1,
	})
}

func TestDummy(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("dummy", `<dummyResponse><return><appserver>OK</appserver><dbserver>OK</dbserver><authserver>OK</authserver></return></dummyResponse>`)

	status, err := c.Dummy(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK())
}

func TestSettlementBuilders(t *testing.T) {
	s := settlement()
	assert.Error(t, s.Validate(), "a certificate or uncertified weight is required")

	s.AgregarCertificado(wslpg.Certificate{Type: 5, Number: 555501200729, NetWeight: 1000, OriginLocality: 3, OriginProvince: 1, Campaign: 1213}).
		AgregarRetencion(wslpg.Retention{Concept: "RI", Base: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("8")}).
		AgregarDeduccion(wslpg.Deduction{Concept: "OD", StorageDays: 1, IVARate: decimal.RequireFromString("10.5")}).
		AgregarPercepcion(wslpg.Perception{Concept: "P", Base: decimal.RequireFromString("1000"), Rate: decimal.RequireFromString("21")}).
		AgregarOpcional("1", "opcional").
		AgregarFacturaPapel(wslpg.PaperInvoice{CAI: "1234", Number: 1, Voucher: 1})

	require.NoError(t, s.Validate())
	assert.Len(t, s.Certificates, 1)
	assert.Len(t, s.Retentions, 1)
	assert.Len(t, s.Deductions, 1)
	assert.Len(t, s.Perceptions, 1)
	assert.Equal(t, "opcional", s.Optionals[0].Description)
	require.NotNil(t, s.PaperInvoice)

	fresh := wslpg.CrearLiquidacion(*s)
	assert.Empty(t, fresh.Certificates, "a new settlement starts without details")
	assert.Equal(t, s.OrderNumber, fresh.OrderNumber)
}

func TestAutorizarLiquidacion(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionAutorizar", `<liquidacionAutorizarResponse><liqReturn>
		<autorizacion>
			<coe>330100025869</coe><ptoEmision>99</ptoEmision><nroOrden>1</nroOrden>
			<fechaLiquidacion>2013-02-07</fechaLiquidacion><estado>AC</estado>
			<precioOperacion>1.970</precioOperacion><subTotal>1970.00</subTotal>
			<importeIva>206.85</importeIva><operacionConIva>2176.85</operacionConIva>
			<totalPesoNeto>1000</totalPesoNeto><totalNetoAPagar>2017.18</totalNetoAPagar>
			<retenciones><retencionReturn>
				<retencion><codigoConcepto>RI</codigoConcepto><baseCalculo>100.00</baseCalculo><alicuota>8.00</alicuota></retencion>
				<importeRetencion>8.00</importeRetencion>
			</retencionReturn></retenciones>
			<deducciones><deduccionReturn>
				<deduccion><codigoConcepto>OD</codigoConcepto><alicuotaIva>10.50</alicuotaIva></deduccion>
				<importeDeduccion>110.50</importeDeduccion><importeIva>10.50</importeIva>
			</deduccionReturn></deducciones>
		</autorizacion>
	</liqReturn></liquidacionAutorizarResponse>`)

	s := settlement().AgregarCertificado(wslpg.Certificate{Type: 5, Number: 1, NetWeight: 1000, OriginLocality: 3, OriginProvince: 1, Campaign: 1213})
	s.AgregarRetencion(wslpg.Retention{Concept: "RI", Base: decimal.NewFromInt(100), Rate: decimal.NewFromInt(8)})

	a, err := c.AutorizarLiquidacion(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(330100025869), a.COE)
	assert.Equal(t, "AC", a.State)
	assert.Equal(t, "2013-02-07", a.Date)
	assert.True(t, a.TotalNetToPay.Equal(decimal.RequireFromString("2017.18")))
	require.Len(t, a.Retentions, 1)
	assert.True(t, a.Retentions[0].Amount.Equal(decimal.NewFromInt(8)))
	require.Len(t, a.Deductions, 1)
	assert.True(t, a.Deductions[0].IVA.Equal(decimal.RequireFromString("10.5")))

	sent := srv.LastRequest("liquidacionAutorizar")
	require.NotNil(t, sent)
	assert.Equal(t, "20267565393", sent.FindElement("auth/cuit").Text())
	assert.Equal(t, "2013-02-07", sent.FindElement("liquidacion/fechaPrecioOperacion").Text())
	assert.Equal(t, "N", sent.FindElement("liquidacion/esCanje").Text())
	assert.Equal(t, "1", sent.FindElement("liquidacion/certificados/certificado/nroCertificadoDeposito").Text())
	assert.Equal(t, "RI", sent.FindElement("retenciones/retencion/codigoConcepto").Text())
	assert.Nil(t, sent.FindElement("liquidacion/cuitCorredor"), "zero values are omitted")
}

func TestAutorizarLiquidacion_Errors(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionAutorizar", `<liquidacionAutorizarResponse><liqReturn>
		<errores>
			<error><codigo>1700</codigo><descripcion>El nro de orden ya fue utilizado</descripcion></error>
			<error><codigo>1701</codigo><descripcion>Puerto invalido</descripcion></error>
		</errores>
	</liqReturn></liquidacionAutorizarResponse>`)

	s := settlement()
	s.UncertifiedNetWeight = 1000
	_, err := c.AutorizarLiquidacion(context.Background(), s)
	var se *model.ServiceError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.HasCode("1701"))
	assert.Equal(t, "1700: El nro de orden ya fue utilizado\n1701: Puerto invalido", c.ErrMsg())
}

func TestAutorizarLiquidacion_Validation(t *testing.T) {
	c, srv := newClient(t)
	_, err := c.AutorizarLiquidacion(context.Background(), wslpg.CrearLiquidacion(wslpg.Settlement{IssuePoint: 1}))
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, srv.Requests("liquidacionAutorizar"))
}

func TestAnticipo(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("lpgAutorizarAnticipo", `<lpgAutorizarAnticipoResponse><liqReturn><liquidacion><coe>330100000001</coe><estado>AC</estado></liquidacion></liqReturn></lpgAutorizarAnticipoResponse>`)
	srv.Handle("lpgCancelarAnticipo", `<lpgCancelarAnticipoResponse><liqReturn><liquidacion><coe>330100000001</coe></liquidacion><estado>AN</estado></liqReturn></lpgCancelarAnticipoResponse>`)

	s := settlement()
	s.UncertifiedNetWeight = 500
	a, err := c.AutorizarAnticipo(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(330100000001), a.COE)

	a, err = c.CancelarAnticipo(context.Background(), 99, 1, 330100000001)
	require.NoError(t, err)
	assert.Equal(t, "AN", a.State)
	assert.Equal(t, "330100000001", srv.LastRequest("lpgCancelarAnticipo").FindElement("coe").Text())
}

func TestAutorizarLiquidacionSecundaria(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("lsgAutorizar", `<lsgAutorizarResponse><oReturn><autorizacion><coe>330100000358</coe><estado>AC</estado><subTotal>150.00</subTotal></autorizacion></oReturn></lsgAutorizarResponse>`)

	s := wslpg.CrearLiqSecundariaBase(wslpg.SecondarySettlement{
		IssuePoint:     1,
		OrderNumber:    2,
		BuyerCUIT:      20400000000,
		SellerCUIT:     23000000019,
		GrainCode:      31,
		Tons:           decimal.NewFromInt(1),
		OperationPrice: decimal.NewFromInt(150),
		IVARate:        decimal.RequireFromString("10.5"),
		Campaign:       1213,
		Locality:       3,
		Province:       1,
	})
	s.AgregarDeduccion(wslpg.Deduction{Concept: "AL", Base: decimal.NewFromInt(10), IVARate: decimal.RequireFromString("21")}).
		AgregarOpcional("2", "segundo")

	a, err := c.AutorizarLiquidacionSecundaria(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(330100000358), a.COE)
	assert.True(t, a.Subtotal.Equal(decimal.NewFromInt(150)))

	sent := srv.LastRequest("lsgAutorizar")
	assert.Equal(t, "1", sent.FindElement("liquidacion/cantidadTn").Text())
	assert.Equal(t, "AL", sent.FindElement("deducciones/deduccion/codigoConcepto").Text())
	assert.Equal(t, "segundo", sent.FindElement("liquidacion/opcionales/opcional/descripcion").Text())

	_, err = c.AutorizarLiquidacionSecundaria(context.Background(), wslpg.CrearLiqSecundariaBase(wslpg.SecondarySettlement{IssuePoint: 1, OrderNumber: 2, BuyerCUIT: 1, SellerCUIT: 2}))
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cantidad_tn", verr.Field)
}

func TestAjustarLiquidacionUnificado(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionAjustarUnificado", `<liquidacionAjustarUnificadoResponse><ajusteUnifReturn><ajusteUnificado>
		<ptoEmision>55</ptoEmision><nroOrden>78</nroOrden><coe>330100013133</coe><coeAjustado>330100013142</coeAjustado><estado>AC</estado>
		<ajusteCredito><coe>330100013133</coe><importeIva>0</importeIva><subTotal>0</subTotal></ajusteCredito>
		<ajusteDebito><coe>330100013134</coe><subTotal>11.54</subTotal><importeIva>1.21</importeIva></ajusteDebito>
		<totalesUnificados><subTotalGeneral>11.54</subTotalGeneral><iva105>1.21</iva105><importeNeto>12.75</importeNeto></totalesUnificados>
	</ajusteUnificado></ajusteUnifReturn></liquidacionAjustarUnificadoResponse>`)

	a := wslpg.CrearAjusteBase(wslpg.AdjustmentHeader{IssuePoint: 55, OrderNumber: 78, AdjustedCOE: 330100013142, Province: 1, Locality: 5})
	a.CrearAjusteCredito(wslpg.AdjustmentPart{AdditionalData: "AJUSTE CRED UNIF", NetWeightDifference: 1000})
	a.CrearAjusteDebito(wslpg.AdjustmentPart{ConceptIVA105: "Alicuota diez", AmountIVA105: decimal.RequireFromString("100")}).
		AgregarRetencion(wslpg.Retention{Concept: "RI", Base: decimal.NewFromInt(100), Rate: decimal.NewFromInt(10)})
	a.AgregarCertificado(wslpg.Certificate{Type: 5, Number: 555501200802, NetWeight: 1000, OriginLocality: 3, OriginProvince: 1, Campaign: 1213})

	res, err := c.AjustarLiquidacionUnificado(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(330100013133), res.COE)
	assert.Equal(t, int64(330100013142), res.COEAdjusted)
	require.NotNil(t, res.Credit)
	require.NotNil(t, res.Debit)
	assert.Equal(t, int64(330100013134), res.Debit.COE)
	assert.True(t, res.Totals.NetAmount.Equal(decimal.RequireFromString("12.75")))

	sent := srv.LastRequest("liquidacionAjustarUnificado")
	assert.Equal(t, "330100013142", sent.FindElement("ajusteUnificado/coeAjustado").Text())
	assert.Equal(t, "1000", sent.FindElement("ajusteUnificado/ajusteCredito/diferenciaPesoNeto").Text())
	assert.Equal(t, "RI", sent.FindElement("ajusteUnificado/ajusteDebito/retenciones/retencion/codigoConcepto").Text())
	assert.NotNil(t, sent.FindElement("ajusteUnificado/certificados/certificado"))
}

func TestAjustar_Validation(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	a := wslpg.CrearAjusteBase(wslpg.AdjustmentHeader{IssuePoint: 1, OrderNumber: 1})
	_, err := c.AjustarLiquidacionUnificado(ctx, a)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "coe_ajustado", verr.Field)

	_, err = c.AjustarLiquidacionContrato(ctx, a)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nro_contrato", verr.Field)

	_, err = c.AjustarLiquidacionUnificadoPapel(ctx, a)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "nro_formulario", verr.Field)

	_, err = c.AjustarLiquidacionSecundaria(ctx, a)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ajuste", verr.Field, "a side is required")
	assert.Empty(t, srv.Requests("lsgAjustar"))
}

func TestAjustarLiquidacionSecundaria(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("lsgAjustar", `<lsgAjustarResponse><oReturn><autorizacion><coe>330100000400</coe><estado>AC</estado>
		<ajusteDebito><coe>330100000401</coe><subTotal>5</subTotal></ajusteDebito>
	</autorizacion></oReturn></lsgAjustarResponse>`)

	a := wslpg.CrearAjusteBase(wslpg.AdjustmentHeader{IssuePoint: 1, OrderNumber: 3, AdjustedCOE: 330100000358})
	a.AgregarFusion(12123244544, 25)
	a.CrearAjusteDebito(wslpg.AdjustmentPart{AdditionalData: "DEBITO"})

	res, err := c.AjustarLiquidacionSecundaria(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(330100000400), res.COE)
	assert.Nil(t, res.Credit)
	require.NotNil(t, res.Debit)

	sent := srv.LastRequest("lsgAjustar")
	assert.Equal(t, "12123244544", sent.FindElement("ajuste/fusion/nroIngBrutos").Text())
	assert.Equal(t, "25", sent.FindElement("ajuste/fusion/nroActividad").Text())
}

func TestAutorizarCertificacion(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("cgAutorizar", `<cgAutorizarResponse><oReturn><autorizacion>
		<coe>330100000500</coe><ptoEmision>1</ptoEmision><nroOrden>4</nroOrden>
		<fechaCertificacion>2014-04-17</fechaCertificacion><estado>AC</estado><pesoNeto>1000</pesoNeto>
		<planta><nroPlanta>1</nroPlanta></planta>
	</autorizacion></oReturn></cgAutorizarResponse>`)

	cert := wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{
		IssuePoint:  1,
		OrderNumber: 4,
		Type:        wslpg.CertificationPrimary,
		PlantNumber: 1,
		GrainCode:   2,
		Campaign:    1314,
	})
	cert.AgregarCertificacionPrimaria(wslpg.PrimaryCertification{DepositaryActivity: 29, CertifiedNetWeight: 1000}).
		AgregarCTG(wslpg.CTGDetail{CTG: 83703771, WaybillNumber: 123456789, ConfirmedNetWeight: 1000}).
		AgregarCalidad(wslpg.Quality{SampleAnalysis: 1, BulletinNumber: 2, Grade: "G1"}).
		AgregarDetalleMuestraAnalisis(wslpg.SampleDetail{Description: "bajo peso", Kind: "B", Percent: decimal.NewFromInt(1)})

	res, err := c.AutorizarCertificacion(context.Background(), cert)
	require.NoError(t, err)
	assert.Equal(t, int64(330100000500), res.COE)
	assert.Equal(t, "2014-04-17", res.Date)
	assert.Equal(t, int64(1000), res.NetWeight)
	assert.Equal(t, int64(1), res.PlantNumber)

	sent := srv.LastRequest("cgAutorizar")
	assert.Equal(t, "P", sent.FindElement("certificado/cabecera/tipoCertificado").Text())
	assert.Equal(t, "83703771", sent.FindElement("certificado/primaria/ctg/nroCTG").Text())
	assert.Equal(t, "G1", sent.FindElement("certificado/primaria/calidad/codGrado").Text())
	assert.Equal(t, "bajo peso", sent.FindElement("certificado/primaria/calidad/detalleMuestraAnalisis/descripcionRubro").Text())
}

func TestCertification_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cert  *wslpg.Certification
		field string
	}{
		{
			name:  "missing order",
			cert:  wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{IssuePoint: 1, Type: "P"}),
			field: "nro_orden",
		},
		{
			name:  "primary without body",
			cert:  wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{IssuePoint: 1, OrderNumber: 1, Type: "P"}),
			field: "primaria",
		},
		{
			name:  "withdrawal without body",
			cert:  wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{IssuePoint: 1, OrderNumber: 1, Type: "R"}),
			field: "retiro_transferencia",
		},
		{
			name:  "unknown type",
			cert:  wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{IssuePoint: 1, OrderNumber: 1, Type: "X"}),
			field: "tipo_certificado",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cert.Validate()
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	ok := wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{IssuePoint: 1, OrderNumber: 1, Type: "E"}).
		AgregarCertificacionPreexistente(wslpg.PreexistingCertification{Type: 1, Number: 2, CAC: 3, NetWeight: 10})
	assert.NoError(t, ok.Validate())

	transfer := wslpg.CrearCertificacionCabecera(wslpg.CertificationHeader{IssuePoint: 1, OrderNumber: 1, Type: "T"}).
		AgregarCertificacionRetiroTransferencia(wslpg.WithdrawalTransfer{ReceiverCUIT: 20400000000, Certificates: []wslpg.DepositWithdrawal{{COE: 1, NetWeight: 10}}})
	assert.NoError(t, transfer.Validate())
}

func TestBuscarCTG(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("cgBuscarCtg", `<cgBuscarCtgResponse><oReturn><ctgs>
		<ctg><nroCTG>83703771</nroCTG><nroCartaDePorte>1</nroCartaDePorte><fechaConfirmacionCtg>2014-03-02</fechaConfirmacionCtg><pesoNetoConfirmadoDefinitivo>300</pesoNetoConfirmadoDefinitivo></ctg>
		<ctg><nroCTG>83703772</nroCTG><nroCartaDePorte>2</nroCartaDePorte></ctg>
	</ctgs></oReturn></cgBuscarCtgResponse>`)

	list, err := c.BuscarCTG(context.Background(), wslpg.CTGSearch{CertificationType: "P", GrainCode: 2, Campaign: 1314})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(83703771), list[0].CTG)
	assert.Equal(t, int64(300), list[0].NetWeight)
	assert.Equal(t, "1314", srv.LastRequest("cgBuscarCtg").FindElement("campania").Text())
}

func TestBuscarCertConSaldoDisponible(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("cgBuscarCertConSaldoDisponible", `<cgBuscarCertConSaldoDisponibleResponse><oReturn><certificados>
		<certificado><coe>330100000500</coe><tipoCertificadoDeposito>5</tipoCertificadoDeposito><pesoNeto>1000</pesoNeto><saldo>400</saldo></certificado>
	</certificados></oReturn></cgBuscarCertConSaldoDisponibleResponse>`)

	list, err := c.BuscarCertConSaldoDisponible(context.Background(), wslpg.BalanceSearch{GrainCode: 2, Campaign: 1314})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(400), list[0].Balance)
	assert.Equal(t, 5, list[0].Type)
}

func TestInformarCalidadYAnularCertificacion(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("cgInformarCalidad", `<cgInformarCalidadResponse><oReturn><autorizacion><coe>330100000500</coe><estado>AC</estado></autorizacion></oReturn></cgInformarCalidadResponse>`)
	srv.Handle("cgSolicitarAnulacion", `<cgSolicitarAnulacionResponse><oReturn><estadoCertificado>AN</estadoCertificado></oReturn></cgSolicitarAnulacionResponse>`)

	res, err := c.InformarCalidadCertificacion(context.Background(), 330100000500, wslpg.Quality{Grade: "G2"})
	require.NoError(t, err)
	assert.Equal(t, "AC", res.State)
	assert.Equal(t, "G2", srv.LastRequest("cgInformarCalidad").FindElement("calidad/codGrado").Text())

	state, err := c.AnularCertificacion(context.Background(), 330100000500)
	require.NoError(t, err)
	assert.Equal(t, "AN", state)
}

func TestUltNroOrden(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionUltimoNroOrdenConsultar", `<liquidacionUltimoNroOrdenConsultarResponse><liqUltNroOrdenReturn><nroOrden>12</nroOrden></liqUltNroOrdenReturn></liquidacionUltimoNroOrdenConsultarResponse>`)
	srv.Handle("lsgConsultarUltimoNroOrden", `<lsgConsultarUltimoNroOrdenResponse><oReturn><nroOrden>3</nroOrden></oReturn></lsgConsultarUltimoNroOrdenResponse>`)
	srv.Handle("cgConsultarUltimoNroOrden", `<cgConsultarUltimoNroOrdenResponse><oReturn><nroOrden>7</nroOrden></oReturn></cgConsultarUltimoNroOrdenResponse>`)
	ctx := context.Background()

	n, err := c.ConsultarUltNroOrden(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "99", srv.LastRequest("liquidacionUltimoNroOrdenConsultar").FindElement("ptoEmision").Text())

	n, err = c.ConsultarLiquidacionSecundariaUltNroOrden(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = c.ConsultarCertificacionUltNroOrden(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestConsultarLiquidacion(t *testing.T) {
	c, srv := newClient(t)
	pdf := base64.StdEncoding.EncodeToString(documenttest.MinimalPDF(2))
	srv.Handle("liquidacionXCoeConsultar", `<liquidacionXCoeConsultarResponse><liqConsReturn>
		<liquidacion><coe>330100025869</coe><ptoEmision>99</ptoEmision><nroOrden>1</nroOrden><estado>AC</estado></liquidacion>
		<pdf>`+pdf+`</pdf>
	</liqConsReturn></liquidacionXCoeConsultarResponse>`)
	srv.Handle("liquidacionXNroOrdenConsultar", `<liquidacionXNroOrdenConsultarResponse><liqConsReturn/></liquidacionXNroOrdenConsultarResponse>`)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "liquidacion.pdf")
	a, err := c.ConsultarLiquidacion(ctx, wslpg.Lookup{COE: 330100025869}, path)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "AC", a.State)
	require.NotNil(t, a.PDF)
	assert.Equal(t, 2, a.PDF.Pages)
	assert.FileExists(t, path)
	assert.Equal(t, "S", srv.LastRequest("liquidacionXCoeConsultar").FindElement("pdf").Text())

	a, err = c.ConsultarLiquidacion(ctx, wslpg.Lookup{IssuePoint: 99, OrderNumber: 5}, "")
	require.NoError(t, err)
	assert.Nil(t, a, "an unknown settlement is not an error")

	_, err = c.ConsultarLiquidacion(ctx, wslpg.Lookup{IssuePoint: 99}, "")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestConsultarCertificacionYAjuste(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("cgConsultarXNroOrden", `<cgConsultarXNroOrdenResponse><oReturn><autorizacion><coe>330100000500</coe><tipoCertificado>P</tipoCertificado></autorizacion></oReturn></cgConsultarXNroOrdenResponse>`)
	srv.Handle("liquidacionAjusteXNroOrdenConsultar", `<liquidacionAjusteXNroOrdenConsultarResponse><ajusteXNroOrdenConsReturn><ajusteUnificado><coe>330100013133</coe><estado>AC</estado></ajusteUnificado></ajusteXNroOrdenConsReturn></liquidacionAjusteXNroOrdenConsultarResponse>`)
	ctx := context.Background()

	cert, err := c.ConsultarCertificacion(ctx, wslpg.Lookup{IssuePoint: 1, OrderNumber: 4}, "")
	require.NoError(t, err)
	assert.Equal(t, "P", cert.Type)
	assert.Nil(t, cert.PDF)

	adj, err := c.ConsultarAjuste(ctx, wslpg.Lookup{IssuePoint: 55, OrderNumber: 78})
	require.NoError(t, err)
	assert.Equal(t, "AC", adj.State)
}

func TestContratos(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionPorContratoConsultar", `<liquidacionPorContratoConsultarResponse><liqPorContratoCons><coeRelacionados><coe>330100000357</coe><coe>330100000358</coe></coeRelacionados></liqPorContratoCons></liquidacionPorContratoConsultarResponse>`)
	srv.Handle("lsgConsultarXContrato", `<lsgConsultarXContratoResponse><oReturn/></lsgConsultarXContratoResponse>`)
	srv.Handle("liquidacionAsociarContrato", `<liquidacionAsociarContratoResponse><oReturn><liquidacion><coe>330100000357</coe><estado>AC</estado></liquidacion></oReturn></liquidacionAsociarContratoResponse>`)
	ctx := context.Background()

	q := wslpg.ContractQuery{ContractNumber: 27, BuyerCUIT: 20400000000, SellerCUIT: 23000000019, GrainCode: 31}
	coes, err := c.ConsultarLiquidacionesPorContrato(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{330100000357, 330100000358}, coes)

	coes, err = c.ConsultarLiquidacionesSecundariasPorContrato(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, coes)

	a, err := c.AsociarLiquidacionAContrato(ctx, 330100000357, q)
	require.NoError(t, err)
	assert.Equal(t, "AC", a.State)
	assert.Equal(t, "27", srv.LastRequest("liquidacionAsociarContrato").FindElement("nroContrato").Text())

	_, err = c.AsociarLiquidacionSecundariaAContrato(ctx, 0, q)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAnular(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionAnular", `<liquidacionAnularResponse><anulacionReturn><resultado>A</resultado></anulacionReturn></liquidacionAnularResponse>`)
	srv.Handle("lsgAnular", `<lsgAnularResponse><oReturn><errores><error><codigo>2002</codigo><descripcion>COE inexistente</descripcion></error></errores></oReturn></lsgAnularResponse>`)
	ctx := context.Background()

	res, err := c.AnularLiquidacion(ctx, 330100000357)
	require.NoError(t, err)
	assert.Equal(t, "A", res)

	_, err = c.AnularLiquidacionSecundaria(ctx, 1)
	var se *model.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "2002: COE inexistente", c.ErrMsg())
}

func TestParameterTables(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("campaniasConsultar", `<campaniasConsultarResponse><campaniaReturn><campanias>
		<codigoDescripcion><codigo>1213</codigo><descripcion>2012/2013</descripcion></codigoDescripcion>
		<codigoDescripcion><codigo>1314</codigo><descripcion>2013/2014</descripcion></codigoDescripcion>
	</campanias></campaniaReturn></campaniasConsultarResponse>`)
	srv.Handle("localidadXProvinciaConsultar", `<localidadXProvinciaConsultarResponse><localidadReturn><localidades>
		<codigoDescripcion><codigo>5</codigo><descripcion>Villa Gesell</descripcion></codigoDescripcion>
	</localidades></localidadReturn></localidadXProvinciaConsultarResponse>`)
	ctx := context.Background()

	list, err := c.ConsultarCampanias(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "|| 1314 || 2013/2014 ||", list[1].Format("||"))

	list, err = c.Table(ctx, "campanias")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = c.ConsultarLocalidadesPorProvincia(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Villa Gesell", list[0].Description)
	assert.Equal(t, "1", srv.LastRequest("localidadXProvinciaConsultar").FindElement("codProvincia").Text())

	_, err = c.Table(ctx, "inexistente")
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestRecords(t *testing.T) {
	s := settlement()
	a := &wslpg.Authorization{COE: 330100025869, State: "AC", TotalNetToPay: decimal.RequireFromString("2017.18")}

	var buf bytes.Buffer
	require.NoError(t, wslpg.WriteRecord(&buf, s, a, nil))
	require.NoError(t, wslpg.WriteRecord(&buf, s, nil, []model.Message{{Code: "1", Description: "error"}}))
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\r\n")))

	line := bytes.SplitN(buf.Bytes(), []byte("\r\n"), 2)[0]
	assert.Len(t, line, wslpg.HeaderFormat.Width())

	back, err := wslpg.ReadRecords(&buf)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, s.BuyerCUIT, back[0].BuyerCUIT)
	assert.Equal(t, "DETALLE PUERTO", back[0].PortLocality)
	assert.True(t, back[0].IVARate.Equal(decimal.RequireFromString("10.5")))
	assert.True(t, back[0].PriceDate.Equal(s.PriceDate))
	assert.False(t, back[0].Exchange)
}

func TestEstimar(t *testing.T) {
	s := wslpg.CrearLiquidacion(wslpg.Settlement{
		IssuePoint:           1,
		OrderNumber:          1,
		OperationPricePerTon: decimal.RequireFromString("1970"),
		ReferencePricePerTon: decimal.RequireFromString("2000"),
		IVARate:              decimal.RequireFromString("10.5"),
	})
	s.AgregarCertificado(wslpg.Certificate{NetWeight: 600}).
		AgregarCertificado(wslpg.Certificate{NetWeight: 400}).
		AgregarDeduccion(wslpg.Deduction{Concept: "OD", Base: decimal.RequireFromString("100"), IVARate: decimal.RequireFromString("10.5")}).
		AgregarRetencion(wslpg.Retention{Concept: "RI", Base: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("8")})

	e := s.Estimar()
	assert.Equal(t, int64(1000), e.NetWeight)
	assert.Equal(t, "1.970000", e.PricePerKg.StringFixed(6))
	assert.Equal(t, "1970.00", e.Subtotal.StringFixed(2))
	assert.Equal(t, "206.85", e.IVAAmount.StringFixed(2))
	require.Len(t, e.Deductions, 1)
	assert.Equal(t, "110.50", e.Deductions[0].Amount.StringFixed(2))
	assert.Equal(t, "10.50", e.Deductions[0].IVA.StringFixed(2))
	require.Len(t, e.Retentions, 1)
	assert.Equal(t, "8.00", e.Retentions[0].Amount.StringFixed(2))
	assert.Equal(t, "2058.35", e.NetToPay.StringFixed(2))

	t.Run("reference price when no operation price", func(t *testing.T) {
		s.OperationPricePerTon = decimal.Zero
		e := s.Estimar()
		assert.Equal(t, "2000.00", e.Subtotal.StringFixed(2))
	})

	t.Run("storage and commission deductions", func(t *testing.T) {
		s := wslpg.CrearLiquidacion(wslpg.Settlement{
			OperationPricePerTon: decimal.RequireFromString("1000"),
			UncertifiedNetWeight: 2000,
		})
		s.AgregarDeduccion(wslpg.Deduction{
			Concept:         "AL",
			StorageDays:     10,
			DailyPricePerKg: decimal.RequireFromString("0.001"),
			AdminCommission: decimal.RequireFromString("1"),
		})
		e := s.Estimar()
		// 10 days * 2000 kg * 0.001 + 1% of 2000
		assert.Equal(t, "40.00", e.Deductions[0].Amount.StringFixed(2))
		assert.Equal(t, "1960.00", e.NetToPay.StringFixed(2))
	})
}

func TestLeerDatosLiquidacion(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("liquidacionAjusteXNroOrdenConsultar", `<liquidacionAjusteXNroOrdenConsultarResponse><ajusteXNroOrdenConsReturn><ajusteUnificado>
		<coe>330100013133</coe><estado>AC</estado>
		<ajusteCredito><coe>330100013134</coe><importeIva>10.50</importeIva></ajusteCredito>
		<ajusteDebito><coe>330100013135</coe><importeIva>21.00</importeIva></ajusteDebito>
	</ajusteUnificado></ajusteXNroOrdenConsReturn></liquidacionAjusteXNroOrdenConsultarResponse>`)
	srv.Handle("liquidacionXNroOrdenConsultar", `<liquidacionXNroOrdenConsultarResponse><liqConsReturn><liquidacion><coe>330100000357</coe><estado>AC</estado></liquidacion></liqConsReturn></liquidacionXNroOrdenConsultarResponse>`)
	ctx := context.Background()

	_, ok := c.LeerDatosLiquidacion()
	assert.False(t, ok)

	_, err := c.ConsultarAjuste(ctx, wslpg.Lookup{IssuePoint: 55, OrderNumber: 78})
	require.NoError(t, err)

	credit, ok := c.LeerDatosLiquidacion()
	require.True(t, ok)
	assert.Equal(t, int64(330100013134), credit.COE)
	debit, ok := c.LeerDatosLiquidacion()
	require.True(t, ok)
	assert.Equal(t, int64(330100013135), debit.COE)
	_, ok = c.LeerDatosLiquidacion()
	assert.False(t, ok)

	_, err = c.ConsultarLiquidacion(ctx, wslpg.Lookup{IssuePoint: 1, OrderNumber: 1}, "")
	require.NoError(t, err)
	a, ok := c.LeerDatosLiquidacion()
	require.True(t, ok)
	assert.Equal(t, int64(330100000357), a.COE)
	_, ok = c.LeerDatosLiquidacion()
	assert.False(t, ok)
}

func TestBuscarLocalidades(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("localidadXProvinciaConsultar", `<localidadXProvinciaConsultarResponse><localidadReturn><localidades>
		<codigoDescripcion><codigo>5</codigo><descripcion>Villa Gesell</descripcion></codigoDescripcion>
		<codigoDescripcion><codigo>356</codigo><descripcion>Pinamar</descripcion></codigoDescripcion>
	</localidades></localidadReturn></localidadXProvinciaConsultarResponse>`)
	ctx := context.Background()

	name, err := c.BuscarLocalidades(ctx, 1, 356)
	require.NoError(t, err)
	assert.Equal(t, "Pinamar", name)

	name, err = c.BuscarLocalidades(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "Villa Gesell", name)
	assert.Len(t, srv.Requests("localidadXProvinciaConsultar"), 1)

	_, err = c.BuscarLocalidades(ctx, 1, 999)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cod_localidad", verr.Field)

	_, err = c.BuscarLocalidades(ctx, 2, 5)
	require.NoError(t, err)
	assert.Len(t, srv.Requests("localidadXProvinciaConsultar"), 2)
}
