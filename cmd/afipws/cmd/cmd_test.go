package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/afipws/internal/model"
)

func withFormat(t *testing.T, format string) {
	t.Helper()
	prev := outputFormat
	outputFormat = format
	t.Cleanup(func() { outputFormat = prev })
}

func TestWriteResult_JSON(t *testing.T) {
	withFormat(t, "json")

	var buf bytes.Buffer
	err := writeResult(&buf, LastOrder{IssuePoint: 1, OrderNumber: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pto_emision":1,"nro_orden":42}`, buf.String())
}

func TestWriteResult_Table(t *testing.T) {
	withFormat(t, "table")

	t.Run("parameters", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeResult(&buf, []model.Parameter{{Code: "1", Description: "TRIGO"}, {Code: "2", Description: "MAIZ"}})
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], "CODE")
		assert.Contains(t, lines[2], "TRIGO")
		assert.Contains(t, lines[3], "MAIZ")
	})

	t.Run("object", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeResult(&buf, CancelResult{COE: 330100000357, Resultado: "A"})
		require.NoError(t, err)

		out := buf.String()
		assert.Contains(t, out, "KEY")
		assert.Contains(t, out, "330100000357")
		assert.NotContains(t, out, "3.301e+11")
	})

	t.Run("list", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeResult(&buf, []LookupResult{{CUIT: 30500010912, Error: "not found"}, {CUIT: 20267565393, Error: "timeout"}})
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[0], "CUIT")
		assert.Contains(t, lines[0], "ERROR")
		assert.Contains(t, lines[1], "not found")
		assert.Contains(t, lines[2], "20267565393")
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeResult(&buf, []LookupResult{}))
		assert.Contains(t, buf.String(), "no results")
	})
}

func TestWriteResult_UnsupportedFormat(t *testing.T) {
	withFormat(t, "xml")

	err := writeResult(&bytes.Buffer{}, "x")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	n, err := parseID("CUIT", "20267565393")
	require.NoError(t, err)
	assert.Equal(t, int64(20267565393), n)

	for _, bad := range []string{"", "abc", "0", "-5"} {
		_, err := parseID("CUIT", bad)
		assert.Error(t, err, bad)
	}
}

func TestReadInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pto_emision": 1, "nro_orden": 7}`), 0o600))

	var l LastOrder
	require.NoError(t, readInput(path, &l))
	assert.Equal(t, 1, l.IssuePoint)
	assert.Equal(t, int64(7), l.OrderNumber)

	assert.Error(t, readInput("", &l))
	assert.Error(t, readInput(filepath.Join(dir, "missing.json"), &l))

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	assert.Error(t, readInput(path, &l))
}

func TestIIBBPeriod(t *testing.T) {
	t.Cleanup(func() { iibbFrom, iibbTo = "", "" })
	now := time.Date(2024, time.February, 14, 10, 0, 0, 0, time.UTC)

	from, to, err := iibbPeriod(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), to)

	iibbFrom, iibbTo = "20240101", "20240131"
	from, to, err = iibbPeriod(now)
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, time.January, to.Month())
	assert.Equal(t, 31, to.Day())

	iibbFrom, iibbTo = "20240201", "20240101"
	_, _, err = iibbPeriod(now)
	assert.Error(t, err)

	iibbFrom, iibbTo = "2024-01-01", ""
	_, _, err = iibbPeriod(now)
	assert.Error(t, err)
}

func TestParamSeparator(t *testing.T) {
	prev := separator
	t.Cleanup(func() { separator = prev })

	separator = ""
	assert.Equal(t, model.DefaultSeparator, paramSeparator())

	separator = ";"
	assert.Equal(t, ";", paramSeparator())
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"auth"}, {"status"}, {"cert", "csr"}, {"serve"},
		{"coc", "tabla"}, {"ctg", "solicitar"}, {"lpg", "autorizar"},
		{"depfiel", "digitalizacion"}, {"cot", "presentar"}, {"iibb", "consultar"},
		{"padron", "buscar"}, {"traza", "enviar"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}
