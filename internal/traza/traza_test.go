package traza_test

import (
	"context"
	"testing"
	"time"

	"github.com/hengadev/errsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap"
	"github.com/rezonia/afipws/internal/soap/soaptest"
	"github.com/rezonia/afipws/internal/traza"
)

var creds = traza.Credentials{
	WSUsername: "testwservice",
	WSPassword: "testwservicepsw",
	User:       "pruebasws",
	Password:   "pruebasws",
}

var eventAt = time.Date(2024, 5, 20, 14, 30, 0, 0, time.UTC)

func options(srv *soaptest.Server) []soap.Option {
	return []soap.Option{soap.WithHTTPClient(srv.Client())}
}

func childText(t *testing.T, srv *soaptest.Server, op, path string) string {
	t.Helper()
	req := srv.LastRequest(op)
	require.NotNil(t, req, "no %s request", op)
	el := req.FindElement(path)
	if el == nil {
		return ""
	}
	return el.Text()
}

func sampleMedicine() traza.Medicine {
	return traza.Medicine{
		EventAt:         eventAt,
		GLNOrigin:       "9999999999918",
		GLNDestination:  "glnws",
		Remito:          "R000100001234",
		Invoice:         "A000100001234",
		Expiry:          eventAt.AddDate(0, 0, 30),
		GTIN:            "GTIN1",
		Lot:             "2024",
		Serial:          "17162154120",
		EventID:         134,
		CUITOrigin:      "20267565393",
		CUITDestination: "20267565393",
		Patient: &traza.Patient{
			LastName:   "Reingart",
			FirstName:  "Mariano",
			DocType:    "96",
			DocNumber:  "26756539",
			Sex:        "M",
			Street:     "Saraza",
			Number:     "1234",
			Locality:   "Hurlingham",
			Province:   "Buenos Aires",
			PostalCode: "1688",
			BirthDate:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			Phone:      "5555-5555",
		},
		MemberNumber: "9999999999999",
	}
}

func handleOK(srv *soaptest.Server, op string) {
	srv.Handle(op, `<ns2:`+op+`Response xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>`+
		`<codigoTransaccion>21235813</codigoTransaccion><resultado>true</resultado></return></ns2:`+op+`Response>`)
}

func TestMed_SendMedicamentos(t *testing.T) {
	srv := soaptest.NewServer(t)
	handleOK(srv, "sendMedicamentos")
	med := traza.NewMed(srv.URL, creds, options(srv)...)

	res, err := med.SendMedicamentos(context.Background(), sampleMedicine())
	require.NoError(t, err)
	assert.True(t, res.Result)
	assert.Equal(t, "21235813", res.TransactionCode)
	assert.Equal(t, "21235813", med.CodigoTransaccion())
	assert.Equal(t, "true", med.Resultado())

	assert.Equal(t, "20/05/2024", childText(t, srv, "sendMedicamentos", "arg0/f_evento"))
	assert.Equal(t, "14:30", childText(t, srv, "sendMedicamentos", "arg0/h_evento"))
	assert.Equal(t, "19/06/2024", childText(t, srv, "sendMedicamentos", "arg0/vencimiento"))
	assert.Equal(t, "17162154120", childText(t, srv, "sendMedicamentos", "arg0/numero_serial"))
	assert.Equal(t, "01/01/2000", childText(t, srv, "sendMedicamentos", "arg0/fecha_nacimiento"))
	assert.Equal(t, "pruebasws", childText(t, srv, "sendMedicamentos", "arg1"))
	assert.Equal(t, "pruebasws", childText(t, srv, "sendMedicamentos", "arg2"))

	req := srv.LastRequest("sendMedicamentos")
	assert.Nil(t, req.FindElement("arg0/id_obra_social"), "zero values are omitted")
	assert.Nil(t, req.FindElement("arg0/piso"))
	assert.Nil(t, req.FindElement("arg0/cantidad"))
}

func TestSecurityHeader(t *testing.T) {
	srv := soaptest.NewServer(t)
	handleOK(srv, "sendAlertaTransacc")
	med := traza.NewMed(srv.URL, creds, options(srv)...)

	_, err := med.SendAlertaTransacc(context.Background(), "2545655221154")
	require.NoError(t, err)

	doc := srv.Requests("sendAlertaTransacc")[0]
	user := doc.FindElement("//Header/Security/UsernameToken/Username")
	require.NotNil(t, user)
	assert.Equal(t, "testwservice", user.Text())
	pw := doc.FindElement("//Header/Security/UsernameToken/Password")
	require.NotNil(t, pw)
	assert.Equal(t, "testwservicepsw", pw.Text())
	assert.Contains(t, pw.SelectAttrValue("Type", ""), "PasswordText")

	med.SetUsername("otro")
	med.SetPassword("secreto")
	assert.Equal(t, "otro", med.Username())
	_, err = med.SendAlertaTransacc(context.Background(), "1")
	require.NoError(t, err)
	doc = srv.Requests("sendAlertaTransacc")[1]
	assert.Equal(t, "otro", doc.FindElement("//Header/Security/UsernameToken/Username").Text())
	assert.Equal(t, "secreto", doc.FindElement("//Header/Security/UsernameToken/Password").Text())
	assert.Equal(t, "1", childText(t, srv, "sendAlertaTransacc", "arg2"))
}

func TestMed_Errors(t *testing.T) {
	srv := soaptest.NewServer(t)
	srv.Handle("sendCancelacTransacc", `<ns2:sendCancelacTransaccResponse xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>
		<errores><_c_error>3004</_c_error><_d_error>La transaccion no existe</_d_error></errores>
		<errores><_c_error>3005</_c_error><_d_error>Usuario no autorizado</_d_error></errores>
		<resultado>false</resultado></return></ns2:sendCancelacTransaccResponse>`)
	med := traza.NewMed(srv.URL, creds, options(srv)...)

	res, err := med.SendCancelacTransacc(context.Background(), "5456465464654")
	var svcErr *model.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.True(t, svcErr.HasCode("3004"))
	require.NotNil(t, res)
	assert.False(t, res.Result)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, "false", med.Resultado())
	assert.Equal(t, "5456465464654", childText(t, srv, "sendCancelacTransacc", "arg0"))

	msg, ok := med.LeerError()
	assert.True(t, ok)
	assert.Equal(t, "3004: La transaccion no existe", msg)
	msg, ok = med.LeerError()
	assert.True(t, ok)
	assert.Equal(t, "3005: Usuario no autorizado", msg)
	msg, ok = med.LeerError()
	assert.False(t, ok)
	assert.Empty(t, msg)

	_, err = med.SendCancelacTransacc(context.Background(), "")
	var valErr *model.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "codigo_transaccion", valErr.Field)
}

func TestAnalizarErrores(t *testing.T) {
	med := traza.NewMed("http://localhost", creds)
	n, err := med.AnalizarErrores([]byte(`<return><errores><_c_error>100</_c_error>` +
		`<_d_error>El N° de CAI/CAE/CAEA consultado no existe</_d_error></errores></return>`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "100", med.Errores()[0].Code)

	vet := traza.NewVet("http://localhost", creds)
	n, err = vet.AnalizarErrores([]byte(`<return><errores><c_error>100</c_error><d_error>no existe</d_error></errores></return>`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	msg, ok := vet.LeerError()
	assert.True(t, ok)
	assert.Equal(t, "100: no existe", msg)

	_, err = vet.AnalizarErrores([]byte("not xml"))
	assert.Error(t, err)
}

func TestMed_Validation(t *testing.T) {
	med := traza.NewMed("http://localhost", creds)

	_, err := med.SendMedicamentos(context.Background(), traza.Medicine{})
	errs, ok := err.(errsx.Map)
	require.True(t, ok, "expected errsx.Map, got %T", err)
	for _, key := range []string{"f_evento", "gln_origen", "gln_destino", "gtin", "id_evento", "numero_serial"} {
		_, found := errs[key]
		assert.True(t, found, "missing %s", key)
	}

	m := sampleMedicine()
	_, err = med.SendMedicamentosFraccion(context.Background(), m)
	errs, ok = err.(errsx.Map)
	require.True(t, ok)
	assert.Len(t, errs, 1)
	_, found := errs["cantidad"]
	assert.True(t, found)

	_, err = med.SendMedicamentosDHSerie(context.Background(), m)
	errs, ok = err.(errsx.Map)
	require.True(t, ok)
	_, found = errs["desde_numero_serial"]
	assert.True(t, found)
}

func TestMed_FraccionYDHSerie(t *testing.T) {
	srv := soaptest.NewServer(t)
	handleOK(srv, "sendMedicamentosFraccion")
	handleOK(srv, "sendMedicamentosDHSerie")
	med := traza.NewMed(srv.URL, creds, options(srv)...)
	ctx := context.Background()

	m := sampleMedicine()
	m.Quantity = 5
	_, err := med.SendMedicamentosFraccion(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "5", childText(t, srv, "sendMedicamentosFraccion", "arg0/cantidad"))

	m = sampleMedicine()
	m.Serial = ""
	m.SerialFrom = "100"
	m.SerialTo = "200"
	_, err = med.SendMedicamentosDHSerie(ctx, m)
	require.NoError(t, err)
	req := srv.LastRequest("sendMedicamentosDHSerie")
	assert.Equal(t, "100", req.FindElement("arg0/desde_numero_serial").Text())
	assert.Equal(t, "200", req.FindElement("arg0/hasta_numero_serial").Text())
	assert.Nil(t, req.FindElement("arg0/numero_serial"))
	assert.Nil(t, req.FindElement("arg0/apellido"), "serial ranges carry no patient")
}

func TestMed_ConfirmaYCancelaParcial(t *testing.T) {
	srv := soaptest.NewServer(t)
	handleOK(srv, "sendConfirmaTransacc")
	handleOK(srv, "sendCancelacTransaccParcial")
	med := traza.NewMed(srv.URL, creds, options(srv)...)
	ctx := context.Background()

	_, err := med.SendConfirmaTransacc(ctx, 241546, eventAt)
	require.NoError(t, err)
	assert.Equal(t, "241546", childText(t, srv, "sendConfirmaTransacc", "arg2/p_ids_transac"))
	assert.Equal(t, "20/05/2024", childText(t, srv, "sendConfirmaTransacc", "arg2/f_operacion"))

	_, err = med.SendCancelacTransaccParcial(ctx, "665656565", "GTIN1", "123")
	require.NoError(t, err)
	assert.Equal(t, "665656565", childText(t, srv, "sendCancelacTransaccParcial", "arg0"))
	assert.Equal(t, "GTIN1", childText(t, srv, "sendCancelacTransaccParcial", "arg3"))
	assert.Equal(t, "123", childText(t, srv, "sendCancelacTransaccParcial", "arg4"))
}

const pendingResponse = `<ns2:getTransaccionesNoConfirmadasResponse xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>
	<cantPaginas>3</cantPaginas><hay_error>false</hay_error>
	<list><_id_transaccion>23312897</_id_transaccion><_gtin>GTIN1</_gtin><_lote>2024</_lote>
		<_numero_serial>13</_numero_serial><_d_evento>DISPENSACION AL PACIENTE</_d_evento></list>
	<list><_id_transaccion>23312898</_id_transaccion><_gtin>GTIN2</_gtin></list>
	</return></ns2:getTransaccionesNoConfirmadasResponse>`

func TestMed_GetTransaccionesNoConfirmadas(t *testing.T) {
	srv := soaptest.NewServer(t)
	srv.Handle("getTransaccionesNoConfirmadas", pendingResponse)
	med := traza.NewMed(srv.URL, creds, options(srv)...)

	page, err := med.GetTransaccionesNoConfirmadas(context.Background(), traza.Query{
		GTIN:          "GTIN1",
		OperationFrom: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pages)
	assert.False(t, page.HasError)
	require.Len(t, page.Records, 2)
	assert.Equal(t, int64(23312897), page.Records[0].Int64("id_transaccion"))
	assert.Equal(t, 3, med.CantPaginas())
	assert.False(t, med.HayError())

	req := srv.LastRequest("getTransaccionesNoConfirmadas")
	assert.Equal(t, "pruebasws", req.FindElement("arg0").Text())
	assert.Equal(t, "GTIN1", req.FindElement("arg6").Text())
	assert.Equal(t, "01/05/2024", req.FindElement("arg8").Text())
	assert.Nil(t, req.FindElement("arg2"), "zero filters are omitted")
	assert.Equal(t, "1", req.FindElement("arg19").Text())
	assert.Equal(t, "100", req.FindElement("arg20").Text())

	rec, ok := med.LeerTransaccion()
	require.True(t, ok)
	assert.Equal(t, "DISPENSACION AL PACIENTE", rec["d_evento"])
	rec, ok = med.LeerTransaccion()
	require.True(t, ok)
	assert.Equal(t, "GTIN2", rec["gtin"])
	_, ok = med.LeerTransaccion()
	assert.False(t, ok)
}

func TestMed_Queries(t *testing.T) {
	srv := soaptest.NewServer(t)
	for _, op := range []string{"getEnviosPropiosAlertados", "getTransaccionesWS", "getCatalogoElectronicoByGTIN", "getConsultaStock"} {
		srv.Handle(op, `<ns2:`+op+`Response xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>`+
			`<cantPaginas>1</cantPaginas><hay_error>false</hay_error><list><_gtin>GTIN1</_gtin></list></return></ns2:`+op+`Response>`)
	}
	med := traza.NewMed(srv.URL, creds, options(srv)...)
	ctx := context.Background()

	page, err := med.GetEnviosPropiosAlertados(ctx, traza.Query{})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)

	_, err = med.GetTransaccionesWS(ctx, traza.Query{Lot: "L1", Paging: traza.Paging{Page: 2, PageSize: 50}})
	require.NoError(t, err)
	req := srv.LastRequest("getTransaccionesWS")
	assert.Equal(t, "L1", req.FindElement("arg7").Text())
	assert.Equal(t, "2", req.FindElement("arg18").Text())
	assert.Equal(t, "50", req.FindElement("arg19").Text())

	_, err = med.GetCatalogoElectronicoByGTIN(ctx, traza.CatalogQuery{GTIN: "07791234567810"})
	require.NoError(t, err)
	assert.Equal(t, "07791234567810", childText(t, srv, "getCatalogoElectronicoByGTIN", "arg2"))

	page, err = med.GetConsultaStock(ctx, traza.StockQuery{GLN: "9999999999918"})
	require.NoError(t, err)
	assert.Equal(t, "GTIN1", page.Records[0]["gtin"])
	assert.Equal(t, "9999999999918", childText(t, srv, "getConsultaStock", "arg3"))
}

func TestMed_Fault(t *testing.T) {
	srv := soaptest.NewServer(t)
	srv.HandleRaw("sendMedicamentos", soaptest.Fault("soap:Server", "Usuario o clave invalidos"))
	med := traza.NewMed(srv.URL, creds, options(srv)...)

	_, err := med.SendMedicamentos(context.Background(), sampleMedicine())
	var fault *soap.Fault
	require.ErrorAs(t, err, &fault)
	assert.Contains(t, err.Error(), "Usuario o clave invalidos")
}

func sampleMovement() traza.Movement {
	return traza.Movement{
		GLNOrigin:      "9876543210982",
		GLNDestination: "3692581473693",
		Operation:      eventAt,
		Elaboration:    eventAt,
		Expiry:         eventAt.AddDate(0, 0, 30),
		EventID:        11,
		ProductCode:    "88700000000007",
		Quantity:       1,
		Serial:         "17162154120",
		Lot:            "2024",
		CAI:            "123456789012345",
		Remito:         "1234",
		Notes:          "prueba",
		FullName:       "Juan Peres",
		Street:         "Saraza",
		Number:         "1234",
		Locality:       "Hurlingham",
		Province:       "Buenos Aires",
		PostalCode:     "1688",
		CUIT:           "20267565393",
	}
}

func TestSENASA(t *testing.T) {
	for _, tc := range []struct {
		name    string
		service model.Service
		create  func(string, traza.Credentials, ...soap.Option) *traza.SENASA
	}{
		{"vet", model.ServiceTrazaVet, traza.NewVet},
		{"fito", model.ServiceTrazaFito, traza.NewFito},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := soaptest.NewServer(t)
			for _, op := range []string{"saveTransaccion", "sendCancelaTransac", "sendConfirmaTransacc", "sendAlertaTransacc"} {
				handleOK(srv, op)
			}
			srv.Handle("getTransacciones", `<ns2:getTransaccionesResponse xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>`+
				`<cantPaginas>1</cantPaginas><hay_error>true</hay_error>`+
				`<errores><c_error>9</c_error><d_error>sin datos</d_error></errores></return></ns2:getTransaccionesResponse>`)
			c := tc.create(srv.URL, creds, options(srv)...)
			ctx := context.Background()
			assert.Equal(t, tc.service, c.Service())

			res, err := c.SaveTransaccion(ctx, sampleMovement())
			require.NoError(t, err)
			assert.Equal(t, "21235813", res.TransactionCode)
			assert.Equal(t, "pruebasws", childText(t, srv, "saveTransaccion", "arg0"))
			assert.Equal(t, "N", childText(t, srv, "saveTransaccion", "arg2/en_transporte"))
			assert.Equal(t, "20/05/2024", childText(t, srv, "saveTransaccion", "arg2/f_operacion"))
			assert.Equal(t, "Juan Peres", childText(t, srv, "saveTransaccion", "arg2/apellidoNombres"))

			_, err = c.SendCancelaTransac(ctx, "524685454156")
			require.NoError(t, err)
			assert.Equal(t, "524685454156", childText(t, srv, "sendCancelaTransac", "arg2"))

			_, err = c.SendConfirmaTransacc(ctx, 66555545, eventAt, 0)
			require.NoError(t, err)
			req := srv.LastRequest("sendConfirmaTransacc")
			assert.Equal(t, "66555545", req.FindElement("arg2").Text())
			assert.Nil(t, req.FindElement("arg4"), "full confirmation omits the quantity")

			_, err = c.SendAlertaTransacc(ctx, "5547855")
			require.NoError(t, err)

			page, err := c.GetTransacciones(ctx, traza.Query{GTIN: "88700000000007"})
			var svcErr *model.ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.True(t, page.HasError)
			assert.Equal(t, "88700000000007", childText(t, srv, "getTransacciones", "arg2/gtin_elemento"))
			msg, ok := c.LeerError()
			assert.True(t, ok)
			assert.Equal(t, "9: sin datos", msg)
		})
	}
}

func TestSENASA_Validation(t *testing.T) {
	vet := traza.NewVet("http://localhost", creds)
	_, err := vet.SaveTransaccion(context.Background(), traza.Movement{})
	errs, ok := err.(errsx.Map)
	require.True(t, ok)
	assert.Len(t, errs, 5)

	_, err = vet.SendCancelaTransac(context.Background(), "")
	assert.Error(t, err)
}

func sampleProduct() traza.Product {
	return traza.Product{
		EventAt:           eventAt,
		GLNOrigin:         "7791234567801",
		GLNDestination:    "7791234567801",
		Remito:            "R0001-12341234",
		Invoice:           "A0001-12341234",
		Expiry:            eventAt.AddDate(0, 0, 30),
		GTIN:              "07791234567810",
		Lot:               "2024",
		Serial:            "A23434",
		EventID:           1,
		DoctorCUIT:        "30711622507",
		HealthInsuranceID: 465667,
		Patient: &traza.Patient{
			LastName:  "Reingart",
			FirstName: "Mariano",
			DocType:   "96",
			DocNumber: "28510785",
			Sex:       "M",
			Street:    "San Martin",
			Number:    "5656",
			Apartment: "1",
		},
		MemberNumber:      "9999999999999",
		DiagnosisCode:     "B30",
		HIVCode:           "NOAP31121970",
		ReturnReasonID:    1,
		OtherReturnReason: "producto fallado",
	}
}

func TestProdMed_CrearEInformar(t *testing.T) {
	srv := soaptest.NewServer(t)
	handleOK(srv, "informarProducto")
	pm := traza.NewProdMed(srv.URL, creds, options(srv)...)
	ctx := context.Background()

	_, err := pm.InformarProducto(ctx)
	require.Error(t, err, "nothing queued")

	n, err := pm.CrearTransaccion(sampleProduct())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	second := sampleProduct()
	second.Serial = "A23435"
	n, err = pm.CrearTransaccion(second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = pm.CrearTransaccion(traza.Product{})
	assert.Error(t, err)
	assert.Len(t, pm.Pendientes(), 2)

	res, err := pm.InformarProducto(ctx)
	require.NoError(t, err)
	assert.True(t, res.Result)
	assert.Empty(t, pm.Pendientes())

	req := srv.LastRequest("informarProducto")
	items := req.SelectElements("arg2")
	require.Len(t, items, 2)
	assert.Equal(t, "A23434", items[0].FindElement("numero_serial").Text())
	assert.Equal(t, "A23435", items[1].FindElement("numero_serial").Text())
	assert.Equal(t, "San Martin", items[0].FindElement("calle").Text())
	assert.Equal(t, "465667", items[0].FindElement("id_obra_social").Text())
}

func TestProdMed_Queries(t *testing.T) {
	srv := soaptest.NewServer(t)
	handleOK(srv, "sendCancelacTransacc")
	handleOK(srv, "sendCancelacTransaccParcial")
	for _, op := range []string{"getTransaccionesWS", "getCatalogoElectronicoByGTIN"} {
		srv.Handle(op, `<ns2:`+op+`Response xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>`+
			`<cantPaginas>1</cantPaginas><list><_gtin>07791234567810</_gtin></list></return></ns2:`+op+`Response>`)
	}
	pm := traza.NewProdMed(srv.URL, creds, options(srv)...)
	ctx := context.Background()

	_, err := pm.SendCancelacTransacc(ctx, "11111111111")
	require.NoError(t, err)
	assert.Equal(t, "11111111111", childText(t, srv, "sendCancelacTransacc", "arg2"))

	_, err = pm.SendCancelacTransaccParcial(ctx, "11111111111", "07791234567810", "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", childText(t, srv, "sendCancelacTransaccParcial", "arg4"))

	page, err := pm.GetTransaccionesWS(ctx, traza.Query{ProvinceID: 2})
	require.NoError(t, err)
	assert.Len(t, page.Records, 1)
	assert.Equal(t, "2", childText(t, srv, "getTransaccionesWS", "arg17"))

	_, err = pm.GetCatalogoElectronicoByGTIN(ctx, traza.CatalogQuery{Brand: "ACME"})
	require.NoError(t, err)
	assert.Equal(t, "ACME", childText(t, srv, "getCatalogoElectronicoByGTIN", "arg4"))
}

func TestRenpre(t *testing.T) {
	srv := soaptest.NewServer(t)
	for _, op := range []string{"saveTransacciones", "sendCancelacTransacc", "sendConfirmaTransacc", "sendAlertaTransacc"} {
		handleOK(srv, op)
	}
	srv.Handle("getTransaccionesWS", `<ns2:getTransaccionesWSResponse xmlns:ns2="http://business.mywebservice.inssjp.com/"><return>`+
		`<cantPaginas>2</cantPaginas><list><_id_transaccion_global>77</_id_transaccion_global></list></return></ns2:getTransaccionesWSResponse>`)
	r := traza.NewRenpre(srv.URL, creds, options(srv)...)
	ctx := context.Background()

	res, err := r.SaveTransacciones(ctx, traza.Precursor{
		GLNOrigin:         "8888888888888",
		GLNDestination:    "8888888888888",
		Operation:         time.Date(2019, 5, 20, 0, 0, 0, 0, time.UTC),
		EventID:           44,
		ProductCode:       "88800000000035",
		Quantity:          1,
		OperationDocument: "1",
		Remito:            "124",
		Serial:            "113",
	})
	require.NoError(t, err)
	assert.Equal(t, "21235813", res.TransactionCode)
	assert.Equal(t, "20/05/2019", childText(t, srv, "saveTransacciones", "arg2/f_operacion"))
	assert.Equal(t, "88800000000035", childText(t, srv, "saveTransacciones", "arg2/cod_producto"))

	_, err = r.SendCancelacTransacc(ctx, "65456468424")
	require.NoError(t, err)
	_, err = r.SendConfirmaTransacc(ctx, 2121212121, eventAt)
	require.NoError(t, err)
	assert.Equal(t, "20/05/2024", childText(t, srv, "sendConfirmaTransacc", "arg3"))
	_, err = r.SendAlertaTransacc(ctx, "33542156445")
	require.NoError(t, err)

	page, err := r.GetTransaccionesWS(ctx, traza.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pages)
	rec, ok := r.LeerTransaccion()
	require.True(t, ok)
	assert.Equal(t, int64(77), rec.Int64("id_transaccion_global"))

	_, err = r.SaveTransacciones(ctx, traza.Precursor{})
	errs, ok := err.(errsx.Map)
	require.True(t, ok)
	assert.Len(t, errs, 6)
}

func TestLimpiar(t *testing.T) {
	srv := soaptest.NewServer(t)
	srv.Handle("getTransaccionesNoConfirmadas", pendingResponse)
	med := traza.NewMed(srv.URL, creds, options(srv)...)
	assert.Empty(t, med.Resultado())
	assert.Zero(t, med.CantPaginas())

	_, err := med.GetTransaccionesNoConfirmadas(context.Background(), traza.Query{})
	require.NoError(t, err)
	med.Limpiar()
	assert.Zero(t, med.CantPaginas())
	_, ok := med.LeerTransaccion()
	assert.False(t, ok)
}
