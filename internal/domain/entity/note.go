package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// NoteKind distingue notas crédito y débito.
type NoteKind string

const (
	NoteCredit NoteKind = "CREDIT"
	NoteDebit  NoteKind = "DEBIT"
)

// NoteScope alcance de una nota crédito frente a la factura.
type NoteScope string

const (
	ScopeTotal   NoteScope = "TOTAL"
	ScopePartial NoteScope = "PARTIAL"
)

// Conceptos de corrección de la DIAN para notas crédito.
const (
	CreditReasonDevolucion          = 1 // Devolución parcial de los bienes
	CreditReasonAnulacion           = 2 // Anulación de factura electrónica
	CreditReasonRebaja              = 3 // Rebaja o descuento parcial o total
	CreditReasonAjustePrecio        = 4 // Ajuste de precio
	CreditReasonDescuentoProntoPago = 5
	CreditReasonDescuentoVolumen    = 6
)

// Conceptos de corrección de la DIAN para notas débito.
const (
	DebitReasonIntereses       = 1
	DebitReasonGastosPorCobrar = 2
	DebitReasonCambioValor     = 3
	DebitReasonOtros           = 4
)

var creditReasons = map[int]string{
	CreditReasonDevolucion:          "DEVOLUCION",
	CreditReasonAnulacion:           "ANULACION",
	CreditReasonRebaja:              "REBAJA",
	CreditReasonAjustePrecio:        "AJUSTE_PRECIO",
	CreditReasonDescuentoProntoPago: "DESCUENTO_PRONTO_PAGO",
	CreditReasonDescuentoVolumen:    "DESCUENTO_VOLUMEN",
}

var debitReasons = map[int]string{
	DebitReasonIntereses:       "INTERESES",
	DebitReasonGastosPorCobrar: "GASTOS_POR_COBRAR",
	DebitReasonCambioValor:     "CAMBIO_VALOR",
	DebitReasonOtros:           "OTROS",
}

// ReasonName devuelve el nombre del concepto o "" si el código no pertenece a la familia.
func ReasonName(kind NoteKind, code int) string {
	if kind == NoteDebit {
		return debitReasons[code]
	}
	return creditReasons[code]
}

// DocumentType devuelve la familia de numeración de la nota.
func (k NoteKind) DocumentType() DocumentType {
	if k == NoteDebit {
		return DocumentTypeDebitNote
	}
	return DocumentTypeCreditNote
}

// Note representa una nota crédito o débito. Referencia exactamente una factura;
// la factura no guarda referencia inversa.
type Note struct {
	ID          string
	CompanyID   string
	InvoiceID   string
	Kind        NoteKind
	Scope       NoteScope // solo notas crédito
	ReasonCode  int
	Reason      string
	Description string
	Date        time.Time
	DianTracking
	Subtotal  decimal.Decimal
	TaxTotal  decimal.Decimal
	Total     decimal.Decimal
	CUDE      string // Código Único de Documento Electrónico
	Lines     []*NoteLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteLine línea de una nota. InvoiceDetailID se llena en notas crédito;
// las notas débito usan solo Description.
type NoteLine struct {
	ID              string
	NoteID          string
	InvoiceDetailID string
	ProductID       string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TaxRate         decimal.Decimal
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
}

// NewNoteLine calcula subtotal = q*p e impuesto = subtotal*tasa/100.
func NewNoteLine(invoiceDetailID, productID, description string, qty, unitPrice, taxRate decimal.Decimal) *NoteLine {
	subtotal := qty.Mul(unitPrice)
	return &NoteLine{
		InvoiceDetailID: invoiceDetailID,
		ProductID:       productID,
		Description:     description,
		Quantity:        qty,
		UnitPrice:       unitPrice,
		TaxRate:         taxRate,
		Subtotal:        subtotal,
		TaxAmount:       subtotal.Mul(taxRate).Div(hundred).Round(2),
	}
}

// ComputeTotals recalcula los totales desde las líneas.
func (n *Note) ComputeTotals() {
	var sub, tax decimal.Decimal
	for _, l := range n.Lines {
		sub = sub.Add(l.Subtotal)
		tax = tax.Add(l.TaxAmount)
	}
	n.Subtotal = sub
	n.TaxTotal = tax
	n.Total = sub.Add(tax)
}
