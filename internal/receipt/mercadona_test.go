package receipt

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func findItem(items []entity.ReceiptLineItem, fragment string) *entity.ReceiptLineItem {
	for i := range items {
		if strings.Contains(items[i].Description, fragment) {
			return &items[i]
		}
	}
	return nil
}

func TestMercadonaParser_CanParse(t *testing.T) {
	p := NewMercadonaParser()

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{name: "empty", text: "", expected: false},
		{name: "whitespace only", text: "  \n\t ", expected: false},
		{name: "brand name alone", text: "MERCADONA store visit notes", expected: false},
		{name: "simplified invoice marker", text: "FACTURA SIMPLIFICADA: 2831-015-674512", expected: true},
		{name: "lower case marker", text: "factura simplificada 1234", expected: true},
		{name: "tax table header", text: "IVA  BASE IMPONIBLE (€)  CUOTA (€)", expected: true},
		{name: "full fixture", text: loadFixture(t, "mercadona_20251220.txt"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.CanParse(tt.text))
		})
	}
}

func TestMercadonaParser_ParseFixture(t *testing.T) {
	text := loadFixture(t, "mercadona_20251220.txt")
	res := NewMercadonaParser().Parse(text)
	require.NotNil(t, res)
	doc := res.Extracted
	require.NotNil(t, doc)

	assert.Equal(t, MercadonaParserName, res.Parser)
	assert.Equal(t, text, res.RawText)
	assert.Equal(t, text, doc.RawText)

	assert.Equal(t, "MERCADONA, S.A", doc.StoreName)
	assert.Equal(t, "2025-12-20", doc.ReceiptDateISO)
	assert.Equal(t, "20-12-2025", doc.ReceiptDate)
	assert.Equal(t, "19:32:00", doc.ReceiptTime)
	assert.Equal(t, "EUR", doc.Currency)
	assert.Equal(t, 61.36, doc.TotalAmount)
	assert.Equal(t, 5.8, doc.TaxesTotalCuota)
	assert.Len(t, doc.Taxes, 3)
	assert.Empty(t, res.Warnings)

	require.Len(t, doc.Items, 11)

	cola := findItem(doc.Items, "COLA ZERO")
	require.NotNil(t, cola)
	assert.Equal(t, 4, cola.Quantity)
	assert.Equal(t, 0.8, cola.PricePerUnit)
	assert.Equal(t, 3.2, cola.TotalPrice)
	assert.False(t, cola.UnitPriceDerived)

	burger := findItem(doc.Items, "BURGER M POLLO")
	require.NotNil(t, burger)
	assert.Equal(t, 1, burger.Quantity)
	assert.Equal(t, 3.56, burger.TotalPrice)
	assert.Equal(t, 3.56, burger.PricePerUnit)
	assert.True(t, burger.UnitPriceDerived)

	soda := findItem(doc.Items, "REFRESCO NARANJA 2L")
	require.NotNil(t, soda, "pack size must stay in the description")
	assert.Equal(t, 3, soda.Quantity)
	assert.Equal(t, 1.2, soda.PricePerUnit)
	assert.Equal(t, 3.6, soda.TotalPrice)

	detergent := findItem(doc.Items, "DETERGENTE 40 LAV")
	require.NotNil(t, detergent)
	assert.Equal(t, 1, detergent.Quantity)
	assert.Equal(t, 7.5, detergent.TotalPrice)

	banana := findItem(doc.Items, "PLATANO")
	require.NotNil(t, banana)
	assert.Equal(t, 1.96, banana.TotalPrice)
	require.NotNil(t, banana.WeightKg)
	assert.Equal(t, 1.062, *banana.WeightKg)
	require.NotNil(t, banana.PricePerKg)
	assert.Equal(t, 1.85, *banana.PricePerKg)

	for _, it := range doc.Items {
		assert.Nil(t, it.Category, "parser must not assign categories")
	}
}

func TestMercadonaParser_DerivedUnitPriceReconstructsTotal(t *testing.T) {
	text := strings.Join([]string{
		"FACTURA SIMPLIFICADA: 1",
		"Descripción P. Unit Importe",
		"3 YOGUR NATURAL 10,00",
		"7 PAN BARRA 10,00",
		"9 AGUA 1,5L 10,00",
		"1 PIZZA 4,15",
		"TOTAL (€) 34,15",
	}, "\n")

	doc := NewMercadonaParser().Parse(text).Extracted
	require.Len(t, doc.Items, 4)
	for _, it := range doc.Items {
		require.True(t, it.UnitPriceDerived, it.Description)
		rebuilt := math.Round(it.PricePerUnit*float64(it.Quantity)*100) / 100
		assert.InDelta(t, it.TotalPrice, rebuilt, 0.01, it.Description)
	}
	assert.Equal(t, "AGUA 1,5L", doc.Items[2].Description)
	assert.Equal(t, 9, doc.Items[2].Quantity)
}

func TestMercadonaParser_ParseLineShapes(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		desc    string
		qty     int
		unit    float64
		total   float64
		priced  bool
		ok      bool
		derived bool
	}{
		{name: "qty unit total", line: "2 PECHUGA POLLO 4,85 9,70", desc: "PECHUGA POLLO", qty: 2, unit: 4.85, total: 9.7, priced: true, ok: true},
		{name: "qty total", line: "1 QUESO CURADO 6,20", desc: "QUESO CURADO", qty: 1, unit: 6.2, total: 6.2, priced: true, ok: true, derived: true},
		{name: "no quantity", line: "BOLSA PLASTICO 0,15", desc: "BOLSA PLASTICO", qty: 1, unit: 0.15, total: 0.15, priced: true, ok: true, derived: true},
		{name: "dot decimals", line: "2 CAFE MOLIDO 3.10 6.20", desc: "CAFE MOLIDO", qty: 2, unit: 3.1, total: 6.2, priced: true, ok: true},
		{name: "digits in description", line: "1 HUEVOS L 12 UDS 2,35", desc: "HUEVOS L 12 UDS", qty: 1, unit: 2.35, total: 2.35, priced: true, ok: true, derived: true},
		{name: "weighed item header", line: "1 PLATANO", desc: "PLATANO", qty: 1, priced: false, ok: true},
		{name: "only numbers", line: "12 3,40", ok: false},
		{name: "separator", line: "-----------", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, priced, ok := parseItemLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.priced, priced)
			assert.Equal(t, tt.desc, item.Description)
			assert.Equal(t, tt.qty, item.Quantity)
			if tt.priced {
				assert.InDelta(t, tt.unit, item.PricePerUnit, 0.000001)
				assert.Equal(t, tt.total, item.TotalPrice)
				assert.Equal(t, tt.derived, item.UnitPriceDerived)
			}
		})
	}
}

func TestMercadonaParser_BestEffort(t *testing.T) {
	p := NewMercadonaParser()

	t.Run("empty text", func(t *testing.T) {
		res := p.Parse("")
		require.NotNil(t, res.Extracted)
		assert.Equal(t, "", res.Extracted.StoreName)
		assert.Equal(t, 0.0, res.Extracted.TotalAmount)
		assert.Equal(t, "EUR", res.Extracted.Currency)
		assert.NotNil(t, res.Extracted.Items)
	})

	t.Run("garbage", func(t *testing.T) {
		assert.NotPanics(t, func() {
			p.Parse("%%%\n\x00\n99/99/9999 99:99\nTOTAL (€)")
		})
	})

	t.Run("invalid date is left empty", func(t *testing.T) {
		doc := p.Parse("FACTURA SIMPLIFICADA\n31/02/2025 10:00\n").Extracted
		assert.Empty(t, doc.ReceiptDateISO)
		assert.Empty(t, doc.ReceiptTime)
	})

	t.Run("unreadable lines become warnings", func(t *testing.T) {
		text := strings.Join([]string{
			"FACTURA SIMPLIFICADA: 1",
			"Descripción P. Unit Importe",
			"1 LECHE 0,95",
			"3,40 1,20",
			"1 MANZANA",
			"1 PAN 0,60",
			"TOTAL (€) 1,55",
		}, "\n")
		res := p.Parse(text)
		assert.Len(t, res.Extracted.Items, 2)
		assert.Contains(t, res.Warnings, "unparsed line: 3,40 1,20")
		assert.Contains(t, res.Warnings, "item without price: MANZANA")
	})

	t.Run("total mismatch is reported", func(t *testing.T) {
		text := "FACTURA SIMPLIFICADA\nDescripción\n1 LECHE 0,95\nTOTAL (€) 5,00\n"
		res := p.Parse(text)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "items add up to 0.95")
	})
}
