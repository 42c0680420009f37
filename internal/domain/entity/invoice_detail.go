package entity

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// InvoiceDetail representa una línea de detalle de una factura.
// TaxRate va en porcentaje (19 = 19 %).
type InvoiceDetail struct {
	ID          string
	InvoiceID   string
	ProductID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Discount    decimal.Decimal
	Subtotal    decimal.Decimal // Quantity * UnitPrice
	TaxAmount   decimal.Decimal // (Subtotal - Discount) * TaxRate / 100
}

// NewInvoiceDetail construye la línea calculando subtotal e impuesto.
func NewInvoiceDetail(productID, description string, qty, unitPrice, taxRate, discount decimal.Decimal) *InvoiceDetail {
	subtotal := qty.Mul(unitPrice)
	return &InvoiceDetail{
		ProductID:   productID,
		Description: description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
		Discount:    discount,
		Subtotal:    subtotal,
		TaxAmount:   subtotal.Sub(discount).Mul(taxRate).Div(hundred).Round(2),
	}
}

// NormalizeTaxRate acepta tasas en fracción (0.19) o porcentaje (19) y devuelve porcentaje.
func NormalizeTaxRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.Zero) && rate.LessThan(decimal.NewFromInt(1)) {
		return rate.Mul(hundred)
	}
	return rate
}
