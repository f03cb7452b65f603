package statement

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const spanishExport = "Cuenta;ES91 2100 0418 4502 0005 1332\n" +
	"Saldo;1.234,56\n" +
	"\n" +
	"Fecha operación;Fecha valor;Concepto;Importe (€);Saldo\n" +
	"20/12/2025;20/12/2025;COMPRA MERCADONA VALENCIA TARJ 4512;-61,36;1.173,20\n" +
	"21/12/2025;21/12/2025;BIZUM LUIS RODRIGUEZ;25,00;1.198,20\n" +
	";;;;\n" +
	"bad-date;22/12/2025;COMISION MANTENIMIENTO;abc;1.198,20\n"

func TestReadCSV_SpanishExport(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(spanishExport))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, 4, first.Number)
	require.NotNil(t, first.Date)
	assert.Equal(t, "2025-12-20", first.Date.Format("2006-01-02"))
	assert.Equal(t, "COMPRA MERCADONA VALENCIA TARJ 4512", first.Description)
	assert.InDelta(t, -61.36, first.Amount, 1e-9)
	assert.Empty(t, first.Error)

	assert.InDelta(t, 25.0, rows[1].Amount, 1e-9)

	bad := rows[2]
	assert.Equal(t, 7, bad.Number)
	assert.Nil(t, bad.Date)
	assert.Equal(t, "COMISION MANTENIMIENTO", bad.Description)
	assert.Contains(t, bad.Error, "unrecognised date")
	assert.Contains(t, bad.Error, "invalid amount")
}

func TestReadCSV_DebitCreditColumns(t *testing.T) {
	data := "\xEF\xBB\xBFDate,Description,Debit,Credit\n" +
		"2025-12-01,\"SPOTIFY P1234, STOCKHOLM\",9.99,\n" +
		"2025-12-02,PAYROLL ACME,,2500.00\n"

	rows, err := ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "SPOTIFY P1234, STOCKHOLM", rows[0].Description)
	assert.InDelta(t, -9.99, rows[0].Amount, 1e-9)
	assert.InDelta(t, 2500.0, rows[1].Amount, 1e-9)
	assert.Empty(t, rows[1].Error)
}

func TestReadCSV_NoHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Movimientos de la cuenta"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Fecha", "Concepto", "Importe"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), "COMPRA MERCADONA", -61.36}))
	require.NoError(t, f.SetSheetRow(sheet, "A5", &[]interface{}{"21/12/2025", "BIZUM LUIS", 25}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NotNil(t, rows[0].Date)
	assert.Equal(t, "2025-12-20", rows[0].Date.Format("2006-01-02"))
	assert.Equal(t, "COMPRA MERCADONA", rows[0].Description)
	assert.InDelta(t, -61.36, rows[0].Amount, 1e-9)

	require.NotNil(t, rows[1].Date)
	assert.Equal(t, "2025-12-21", rows[1].Date.Format("2006-01-02"))
	assert.InDelta(t, 25.0, rows[1].Amount, 1e-9)
}

func TestRead_Dispatch(t *testing.T) {
	rows, err := Read("movements.CSV", strings.NewReader(spanishExport))
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = Read("statement.pdf", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("broken.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "importe", normalizeHeader("Importe (€)"))
	assert.Equal(t, "fecha operacion", normalizeHeader(" Fecha  Operación "))
	assert.Equal(t, "f valor", normalizeHeader("F. Valor"))
}
