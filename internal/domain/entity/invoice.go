package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentStatus estado de un documento electrónico (factura o nota) frente a la DIAN.
type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "DRAFT"    // Borrador; puede tener consecutivo si un envío falló por red
	StatusSent     DocumentStatus = "SENT"     // Recibido por la DIAN, validación pendiente
	StatusAccepted DocumentStatus = "ACCEPTED" // Validado por la DIAN
	StatusRejected DocumentStatus = "REJECTED" // Rechazado por la DIAN; no se reintenta
	StatusVoided   DocumentStatus = "VOIDED"   // Anulado antes de enviarse
)

// IsTerminal informa si el estado ya no admite transiciones.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusVoided
}

// DianTracking numeración y seguimiento DIAN comunes a facturas y notas.
type DianTracking struct {
	Prefix         string
	Number         string // consecutivo formateado (con ceros a la izquierda)
	SequenceNumber int64  // consecutivo crudo asignado del rango; 0 = sin asignar
	Status         DocumentStatus
	XMLSigned      string // XML firmado (contenido completo)
	QRData         string // String para QR (NumFac|FecFac|...|Cufe|UrlValidacionDIAN)
	TrackID        string // ZipKey / TrackID devuelto por el WS DIAN tras el envío
	DIANErrors     string // Mensajes de rechazo devueltos por la DIAN
	LastSendError  string // Último fallo de transporte; vacío si no hubo
	SendAttempts   int
}

// FullNumber devuelve prefijo + consecutivo (ej. SETP0000001).
func (t *DianTracking) FullNumber() string {
	return t.Prefix + t.Number
}

// HasNumber informa si ya se asignó un consecutivo del rango.
func (t *DianTracking) HasNumber() bool {
	return t.SequenceNumber > 0
}

// AssignNumber fija el consecutivo tomado del rango.
func (t *DianTracking) AssignNumber(prefix string, n int64) {
	t.Prefix = prefix
	t.SequenceNumber = n
	t.Number = FormatNumber(n)
}

// Invoice representa la cabecera de una factura electrónica de venta.
// CompanyID es el tenant. El consecutivo queda vacío hasta el primer envío a la DIAN.
type Invoice struct {
	ID         string
	CompanyID  string
	CustomerID string // vacío = consumidor final
	Date       time.Time
	DianTracking
	Subtotal      decimal.Decimal // suma de cantidad*precio
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
	CUFE          string // Código Único de Factura Electrónica (SHA-384)
	VoidReason    string
	Details       []*InvoiceDetail
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ComputeTotals recalcula subtotal, descuento, impuesto y total desde las líneas.
func (i *Invoice) ComputeTotals() {
	var sub, disc, tax decimal.Decimal
	for _, d := range i.Details {
		sub = sub.Add(d.Subtotal)
		disc = disc.Add(d.Discount)
		tax = tax.Add(d.TaxAmount)
	}
	i.Subtotal = sub
	i.DiscountTotal = disc
	i.TaxTotal = tax
	i.GrandTotal = sub.Add(tax).Sub(disc)
}

// ValidateTotals verifica GrandTotal = Subtotal + TaxTotal - DiscountTotal y que las líneas cuadren.
func (i *Invoice) ValidateTotals() error {
	expected := i.Subtotal.Add(i.TaxTotal).Sub(i.DiscountTotal)
	if !i.GrandTotal.Round(2).Equal(expected.Round(2)) {
		return fmt.Errorf("total %s no coincide con subtotal + impuestos - descuentos (%s)",
			i.GrandTotal.StringFixed(2), expected.StringFixed(2))
	}
	if len(i.Details) == 0 {
		return nil
	}
	var sub, disc, tax decimal.Decimal
	for _, d := range i.Details {
		sub = sub.Add(d.Subtotal)
		disc = disc.Add(d.Discount)
		tax = tax.Add(d.TaxAmount)
	}
	if !sub.Round(2).Equal(i.Subtotal.Round(2)) || !disc.Round(2).Equal(i.DiscountTotal.Round(2)) || !tax.Round(2).Equal(i.TaxTotal.Round(2)) {
		return fmt.Errorf("los totales de la factura no coinciden con la suma de sus líneas")
	}
	return nil
}
