package flatfile_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/flatfile"
)

var testFormat = flatfile.Format{
	flatfile.A("tipo", 1),
	flatfile.N("numero", 8),
	flatfile.A("nombre", 10),
	flatfile.I("importe", 10, 2),
	flatfile.A("fecha", 8),
}

func TestFormat_Width(t *testing.T) {
	assert.Equal(t, 37, testFormat.Width())
}

func TestFormat_Format(t *testing.T) {
	line, err := testFormat.Format(map[string]any{
		"tipo":    "C",
		"numero":  1234,
		"nombre":  "Cerealera del Sur",
		"importe": decimal.RequireFromString("1500.5"),
		"fecha":   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "C00001234Cerealera 000015005020240301", line)
	assert.Len(t, line, testFormat.Width())
}

func TestFormat_MissingValues(t *testing.T) {
	line, err := testFormat.Format(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, " 00000000          0000000000        ", line)
}

func TestFormat_Overflow(t *testing.T) {
	_, err := testFormat.Format(map[string]any{"numero": 123456789})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numero")
}

func TestFormat_Parse(t *testing.T) {
	rec := testFormat.Parse("C00001234Cerealera 000015005020240301\r\n")

	assert.Equal(t, "C", rec["tipo"])
	assert.Equal(t, "1234", rec["numero"])
	assert.Equal(t, "Cerealera", rec["nombre"])
	assert.Equal(t, "1500.50", rec["importe"])
	assert.Equal(t, int64(1234), rec.Int("numero"))
	assert.True(t, rec.Decimal("importe").Equal(decimal.RequireFromString("1500.5")))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rec.Date("fecha"))
}

func TestFormat_ParseShortLine(t *testing.T) {
	rec := testFormat.Parse("C0000")
	assert.Equal(t, "0", rec["numero"])
	assert.Equal(t, "", rec["nombre"])
	assert.True(t, rec.Date("fecha").IsZero())
}

func TestFormat_WriteReadAll(t *testing.T) {
	var buf bytes.Buffer
	rows := []map[string]any{
		{"tipo": "A", "numero": 1, "importe": "10.25"},
		{"tipo": "B", "numero": 2, "importe": -3},
	}
	for _, row := range rows {
		require.NoError(t, testFormat.Write(&buf, row))
	}

	records, err := testFormat.ReadAll(strings.NewReader(buf.String() + "\r\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0]["tipo"])
	assert.Equal(t, "10.25", records[0]["importe"])
	assert.Equal(t, "-3.00", records[1]["importe"])
}

func TestFormat_Latin1(t *testing.T) {
	f := flatfile.Format{flatfile.A("nombre", 6)}
	records, err := f.ReadAll(strings.NewReader("Pe\xf1a  \n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Peña", records[0]["nombre"])
}

func TestFormat_WriteLatin1Width(t *testing.T) {
	f := flatfile.Format{flatfile.A("nombre", 10), flatfile.N("cuit", 11)}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, map[string]any{"nombre": "MUÑOZ", "cuit": 20111111112}))

	line := strings.TrimSuffix(buf.String(), "\r\n")
	assert.Len(t, line, f.Width())
	assert.Equal(t, "MU\xd1OZ     20111111112", line)

	records, err := f.ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "MUÑOZ", records[0]["nombre"])
	assert.Equal(t, int64(20111111112), records[0].Int("cuit"))
}

func TestFormat_WriteUnencodable(t *testing.T) {
	f := flatfile.Format{flatfile.A("nombre", 10)}
	err := f.Write(&bytes.Buffer{}, map[string]any{"nombre": "Grano €"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode")
}

func TestFormat_NumericRejectsText(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"letters", "12AB"},
		{"spaces", " 12"},
		{"decimal point", "1.5"},
		{"sign only", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testFormat.Format(map[string]any{"numero": tt.value})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "numero")
		})
	}

	line, err := testFormat.Format(map[string]any{"numero": "-42"})
	require.NoError(t, err)
	assert.Equal(t, "-0000042", line[1:9])
}
