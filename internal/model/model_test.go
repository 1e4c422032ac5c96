package model_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/model"
)

func TestServerStatus_OK(t *testing.T) {
	tests := []struct {
		name   string
		status model.ServerStatus
		want   bool
	}{
		{"all up", model.ServerStatus{AppServer: "OK", DBServer: "OK", AuthServer: "OK"}, true},
		{"app only", model.ServerStatus{AppServer: "OK"}, true},
		{"db down", model.ServerStatus{AppServer: "OK", DBServer: "ERROR", AuthServer: "OK"}, false},
		{"empty", model.ServerStatus{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.OK())
		})
	}
}

func TestFormatParameters(t *testing.T) {
	params := []model.Parameter{{Code: "DOL", Description: "Dólar"}, {Code: "EUR", Description: "Euro"}}

	rows := model.FormatParameters(params, "||")
	assert.Equal(t, []string{"|| DOL || Dólar ||", "|| EUR || Euro ||"}, rows)
	assert.Empty(t, model.FormatParameters(nil, "||"))
	assert.Equal(t, model.FormatParameters(params, model.DefaultSeparator), model.FormatParameters(params, ""))
}

func TestMessage_String(t *testing.T) {
	assert.Equal(t, "1001: CUIT inválida", model.Message{Code: "1001", Description: "CUIT inválida"}.String())
	assert.Equal(t, "sin código", model.Message{Description: "sin código"}.String())
}

func TestServiceError(t *testing.T) {
	assert.Nil(t, model.NewServiceError(model.ServiceWSCTG, "anularCTG", nil))

	err := model.NewServiceError(model.ServiceWSCTG, "anularCTG", []model.Message{
		{Code: "2000", Description: "CTG inexistente"},
		{Code: "2001", Description: "Carta de porte inválida"},
	})
	require.NotNil(t, err)
	assert.Equal(t, "[wsctg] anularCTG: 2000: CTG inexistente; 2001: Carta de porte inválida", err.Error())
	assert.Equal(t, []string{"2000", "2001"}, err.Codes())
	assert.True(t, err.HasCode("2001"))
	assert.False(t, err.HasCode("9999"))

	var target *model.ServiceError
	assert.True(t, errors.As(fmt.Errorf("failed to cancel: %w", err), &target))
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := model.NewParseError(model.ServiceWSAA, "loginCmsReturn", "malformed ticket", cause)

	assert.Contains(t, err.Error(), "[wsaa] loginCmsReturn: malformed ticket")
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "[wsaa] token: missing", model.NewParseError(model.ServiceWSAA, "token", "missing", nil).Error())
}

func TestValidationError(t *testing.T) {
	err := model.NewValidationError("monto_pesos", "-1", "positive", "amount must be positive")
	assert.Equal(t, "validation failed on monto_pesos: amount must be positive (value=-1, rule=positive)", err.Error())

	err = model.NewValidationError("cuit", nil, "required", "buyer CUIT is required")
	assert.Equal(t, "validation failed on cuit: buyer CUIT is required (rule=required)", err.Error())
}
