package wdigdepfiel_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/afip/afiptest"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/internal/soap/soaptest"
	"github.com/rezonia/afipws/internal/wdigdepfiel"
)

func newClient(t *testing.T) (*wdigdepfiel.Client, *soaptest.Server) {
	t.Helper()
	srv := soaptest.NewServer(t)
	return wdigdepfiel.New(srv.URL, afiptest.Source(model.ServiceDepFiel), 0, afiptest.Options()...), srv
}

func folder() wdigdepfiel.Folder {
	return wdigdepfiel.Folder{
		AgentType:     "DESP",
		Role:          "EXTE",
		FileNumber:    strings.Repeat("0", 16),
		DeclarantCUIT: 20267565393,
		PSADCUIT:      20267565393,
		IECUIT:        20267565393,
		Code:          wdigdepfiel.FolderComplete,
		Ticket:        "1234",
	}
}

func TestDummy(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("Dummy", `<DummyResponse xmlns="ar.gov.afip.dia.serviciosWeb.wDigDepFiel"><DummyResult><appserver>OK</appserver><dbserver>OK</dbserver><authserver>OK</authserver></DummyResult></DummyResponse>`)

	status, err := c.Dummy(context.Background())
	require.NoError(t, err)
	assert.True(t, status.OK())
}

func TestAvisoRecepAcept(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("AvisoRecepAcept", `<AvisoRecepAceptResponse><AvisoRecepAceptResult><codError>0</codError><descError>OK</descError></AvisoRecepAceptResult></AvisoRecepAceptResponse>`)

	res, err := c.AvisoRecepAcept(context.Background(), folder(), time.Date(2019, 5, 1, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "0", res.Code)

	sent := srv.LastRequest("AvisoRecepAcept")
	require.NotNil(t, sent)
	assert.Equal(t, "ns1", sent.Space)
	auth := sent.FindElement("autentica")
	require.NotNil(t, auth)
	assert.Equal(t, "ns1", auth.Space, "children are qualified")
	assert.Equal(t, "20267565393", auth.FindElement("Cuit").Text())
	assert.Equal(t, "2019-05-01T10:30:00", sent.FindElement("fechaHoraAcept").Text())
}

func TestAvisoDigit(t *testing.T) {
	c, srv := newClient(t)
	srv.Handle("AvisoDigit", `<AvisoDigitResponse><AvisoDigitResult><codError>12</codError><descError>Legajo inexistente</descError></AvisoDigitResult></AvisoDigitResponse>`)

	d := wdigdepfiel.Digitalisation{
		Folder:   folder(),
		ATACUIT:  20267565393,
		URL:      "http://www.example.com",
		Hash:     "db1491eda47d78532cdfca19c62875aade941dc2",
		Families: []wdigdepfiel.Family{{Code: "02", Quantity: 1}, {Code: "03", Quantity: 3}},
	}
	assert.Equal(t, 4, d.Total())

	res, err := c.AvisoDigit(context.Background(), d)
	var se *model.ServiceError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.HasCode("12"))
	assert.Equal(t, "Legajo inexistente", res.Description)

	sent := srv.LastRequest("AvisoDigit")
	assert.Len(t, sent.FindElements("familias/Familia"), 2)
	assert.Equal(t, "4", sent.FindElement("cantidadTotal").Text())

	_, err = c.AvisoDigit(context.Background(), wdigdepfiel.Digitalisation{Folder: folder()})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
}
