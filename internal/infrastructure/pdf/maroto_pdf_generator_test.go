package pdf

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbilling "github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMoney(t *testing.T) {
	assert.Equal(t, "$1.234.567", money(dec("1234567")))
	assert.Equal(t, "$250.000", money(dec("249999.6")), "redondea al peso")
	assert.Equal(t, "$0", money(decimal.Zero))
}

func TestSplitEvery(t *testing.T) {
	assert.Equal(t, []string{"abc", "def", "g"}, splitEvery("abcdefg", 3))
	assert.Nil(t, splitEvery("", 3))
}

func TestGeneratePDF_NotaCredito(t *testing.T) {
	doc := &appbilling.PrintableDocument{
		Title:     "NOTA CRÉDITO ELECTRÓNICA",
		Number:    "NC0000001",
		Date:      time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		KeyLabel:  "CUDE",
		Key:       strings.Repeat("ab", 48),
		QRData:    "https://catalogo-vpfe.dian.gov.co/document/searchqr?documentkey=" + strings.Repeat("ab", 48),
		Reference: "SETP0000001",
		Reason:    "1 DEVOLUCION cliente devolvió la mercancía",
		Subtotal:  dec("100000"),
		Discount:  dec("5000"),
		Tax:       dec("18050"),
		Total:     dec("113050"),
		Lines: []appbilling.PrintableLine{
			{Description: "Café molido 500g", Quantity: dec("2"), UnitPrice: dec("50000"), TaxRate: dec("19"), Subtotal: dec("100000")},
		},
		Company:  &entity.Company{Name: "Comercializadora Andina SAS", NIT: "900123456-8"},
		Customer: &entity.Customer{Name: "Distribuciones del Valle", TaxID: "800987654-4"},
	}
	out, err := NewMarotoPDFGenerator().GeneratePDF(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}
