// Package dian implementa el gateway hacia la DIAN: XML UBL 2.1, firma XAdES-EPES, ZIP y WS SOAP.
package dian

import (
	domdian "github.com/jhoicas/stockflow-api/internal/domain/dian"
	pkgdian "github.com/jhoicas/stockflow-api/pkg/dian"
)

// profile nombres UBL que cambian según el tipo de documento.
type profile struct {
	root           string // elemento raíz
	namespace      string // namespace por defecto
	schemaLocation string
	profileID      string // cbc:ProfileID
	customization  string // cbc:CustomizationID
	typeCodeTag    string // InvoiceTypeCode / CreditNoteTypeCode; vacío en nota débito
	lineTag        string // InvoiceLine / CreditNoteLine / DebitNoteLine
	quantityTag    string // InvoicedQuantity / CreditedQuantity / DebitedQuantity
	totalTag       string // LegalMonetaryTotal o RequestedMonetaryTotal
	keyScheme      string // CUFE-SHA384 o CUDE-SHA384
}

var profiles = map[domdian.DocumentKind]profile{
	domdian.KindInvoice: {
		root:           "Invoice",
		namespace:      "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2",
		schemaLocation: "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2 http://docs.oasis-open.org/ubl/os-UBL-2.1/xsd/maindoc/UBL-Invoice-2.1.xsd",
		profileID:      "DIAN 2.1: Factura Electrónica de Venta",
		customization:  pkgdian.OperationStandard,
		typeCodeTag:    "InvoiceTypeCode",
		lineTag:        "InvoiceLine",
		quantityTag:    "InvoicedQuantity",
		totalTag:       "LegalMonetaryTotal",
		keyScheme:      "CUFE-SHA384",
	},
	domdian.KindCreditNote: {
		root:           "CreditNote",
		namespace:      "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2",
		schemaLocation: "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2 http://docs.oasis-open.org/ubl/os-UBL-2.1/xsd/maindoc/UBL-CreditNote-2.1.xsd",
		profileID:      "DIAN 2.1: Nota Crédito de Factura Electrónica de Venta",
		customization:  pkgdian.OperationNoteWithInvoice,
		typeCodeTag:    "CreditNoteTypeCode",
		lineTag:        "CreditNoteLine",
		quantityTag:    "CreditedQuantity",
		totalTag:       "LegalMonetaryTotal",
		keyScheme:      "CUDE-SHA384",
	},
	domdian.KindDebitNote: {
		root:           "DebitNote",
		namespace:      "urn:oasis:names:specification:ubl:schema:xsd:DebitNote-2",
		schemaLocation: "urn:oasis:names:specification:ubl:schema:xsd:DebitNote-2 http://docs.oasis-open.org/ubl/os-UBL-2.1/xsd/maindoc/UBL-DebitNote-2.1.xsd",
		profileID:      "DIAN 2.1: Nota Débito de Factura Electrónica de Venta",
		customization:  pkgdian.OperationNoteWithInvoice,
		lineTag:        "DebitNoteLine",
		quantityTag:    "DebitedQuantity",
		totalTag:       "RequestedMonetaryTotal",
		keyScheme:      "CUDE-SHA384",
	},
}
