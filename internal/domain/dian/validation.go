// Package dian contiene validaciones de dominio para facturación electrónica DIAN (Colombia),
// según Anexo Técnico 1.9. Utiliza catálogos y reglas de pkg/dian.
package dian

import (
	"errors"
	"fmt"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/pkg/dian"

	"github.com/shopspring/decimal"
)

// ErrInvalidInvoice agrupa errores de validación de factura.
var ErrInvalidInvoice = errors.New("factura inválida para DIAN")

// ErrInvalidNote agrupa errores de validación de notas.
var ErrInvalidNote = errors.New("nota inválida para DIAN")

// ValidateInvoice valida la factura y sus detalles según reglas del Anexo Técnico 1.9.
// Para clientes jurídicos (NIT, tipo 31) exige que el TaxID tenga dígito de verificación válido.
// Comprueba que los totales coincidan con la suma de los ítems.
func ValidateInvoice(invoice *entity.Invoice, customer *entity.Customer) error {
	if invoice == nil {
		return fmt.Errorf("%w: factura nula", ErrInvalidInvoice)
	}
	var errs []error

	if customer != nil && customer.IdentificationType == dian.IdentificationTypeNIT {
		if err := dian.ValidateNITVerificationDigit(customer.TaxID); err != nil {
			errs = append(errs, fmt.Errorf("cliente NIT: %w", err))
		}
	}

	if len(invoice.Details) == 0 {
		errs = append(errs, errors.New("la factura debe tener al menos un detalle"))
	}
	for i, d := range invoice.Details {
		if !d.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: la cantidad debe ser mayor a cero", i+1))
		}
		if d.UnitPrice.IsNegative() || d.Discount.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: precio y descuento no pueden ser negativos", i+1))
		}
		if d.Discount.GreaterThan(d.Subtotal) {
			errs = append(errs, fmt.Errorf("línea %d: el descuento supera el subtotal", i+1))
		}
		if !dian.IsValidIVARate(d.TaxRate) {
			errs = append(errs, fmt.Errorf("línea %d: tarifa de IVA %s no permitida", i+1, d.TaxRate.String()))
		}
	}
	if err := invoice.ValidateTotals(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidInvoice}, errs...)...)
	}
	return nil
}

// ValidateNote valida una nota antes de asignarle consecutivo: concepto, líneas y totales.
func ValidateNote(note *entity.Note) error {
	if note == nil {
		return fmt.Errorf("%w: nota nula", ErrInvalidNote)
	}
	var errs []error
	if entity.ReasonName(note.Kind, note.ReasonCode) == "" {
		errs = append(errs, fmt.Errorf("concepto de corrección %d no válido para nota %s", note.ReasonCode, note.Kind))
	}
	if len(note.Lines) == 0 {
		errs = append(errs, errors.New("la nota debe tener al menos una línea"))
	}
	var sub, tax decimal.Decimal
	for i, l := range note.Lines {
		if !l.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: la cantidad debe ser mayor a cero", i+1))
		}
		if l.UnitPrice.IsNegative() {
			errs = append(errs, fmt.Errorf("línea %d: el precio no puede ser negativo", i+1))
		}
		sub = sub.Add(l.Subtotal)
		tax = tax.Add(l.TaxAmount)
	}
	if !note.Total.Round(2).Equal(sub.Add(tax).Round(2)) {
		errs = append(errs, fmt.Errorf("total %s no coincide con la suma de líneas", note.Total.StringFixed(2)))
	}
	if !note.Total.IsPositive() {
		errs = append(errs, errors.New("el total de la nota debe ser mayor a cero"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidNote}, errs...)...)
	}
	return nil
}
