package entity

import (
	"fmt"
	"time"
)

// DocumentType familia de numeración. Cada familia tiene su propio rango y contador por empresa.
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "INVOICE"
	DocumentTypeCreditNote DocumentType = "CREDIT_NOTE"
	DocumentTypeDebitNote  DocumentType = "DEBIT_NOTE"
)

// Valid informa si el tipo es una familia conocida.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeInvoice, DocumentTypeCreditNote, DocumentTypeDebitNote:
		return true
	}
	return false
}

// numberWidth ancho mínimo del consecutivo formateado.
const numberWidth = 7

// BillingResolution representa la resolución / rango de numeración autorizado por la DIAN.
// Es obligatoria en el nodo <sts:DianExtensions> del XML UBL 2.1 de facturas.
// La fila es además el contador: NextNumber es el siguiente consecutivo libre.
type BillingResolution struct {
	ID               string
	CompanyID        string
	DocumentType     DocumentType
	ResolutionNumber string    // Número de resolución (ej: "18764000000001")
	Prefix           string    // Prefijo autorizado (ej: "SETP", "NC")
	RangeFrom        int64     // Número inicial del rango autorizado
	RangeTo          int64     // Número final; 0 = sin tope (solo notas)
	NextNumber       int64     // Siguiente consecutivo a asignar
	DateFrom         time.Time // Fecha de inicio de vigencia
	DateTo           time.Time // Fecha de vencimiento
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate revisa coherencia del rango.
func (r *BillingResolution) Validate() error {
	if !r.DocumentType.Valid() {
		return fmt.Errorf("tipo de documento %q inválido", r.DocumentType)
	}
	if r.RangeFrom < 1 {
		return fmt.Errorf("el rango debe iniciar en 1 o más")
	}
	if r.RangeTo == 0 && r.DocumentType == DocumentTypeInvoice {
		return fmt.Errorf("el rango de facturas debe tener número final")
	}
	if r.RangeTo != 0 && r.RangeTo < r.RangeFrom {
		return fmt.Errorf("rango inválido: %d > %d", r.RangeFrom, r.RangeTo)
	}
	if r.DocumentType == DocumentTypeInvoice && r.ResolutionNumber == "" {
		return fmt.Errorf("el número de resolución es obligatorio para facturas")
	}
	return nil
}

// Remaining devuelve cuántos consecutivos quedan; -1 si el rango no tiene tope.
func (r *BillingResolution) Remaining() int64 {
	if r.RangeTo == 0 {
		return -1
	}
	left := r.RangeTo - r.NextNumber + 1
	if left < 0 {
		return 0
	}
	return left
}

// FormatNumber formatea un consecutivo con ceros a la izquierda.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%0*d", numberWidth, n)
}
