package dto

import "github.com/shopspring/decimal"

// CreditNoteRequest body de POST /api/invoices/:id/credit-notes.
// Sin Items la nota es total (refleja todas las líneas de la factura). Cada línea aparece una sola vez.
type CreditNoteRequest struct {
	ReasonCode  int              `json:"reason_code" validate:"required"`
	Reason      string           `json:"reason,omitempty" validate:"max=500"`
	Description string           `json:"description,omitempty" validate:"max=500"`
	Items       []CreditNoteItem `json:"items,omitempty" validate:"omitempty,unique=InvoiceItemID,dive"`
}

// CreditNoteItem línea a acreditar; Quantity se recorta a la cantidad original.
type CreditNoteItem struct {
	InvoiceItemID string          `json:"invoice_item_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gte=0"`
}

// DebitNoteRequest body de POST /api/invoices/:id/debit-notes.
type DebitNoteRequest struct {
	ReasonCode  int             `json:"reason_code" validate:"required"`
	Reason      string          `json:"reason,omitempty" validate:"max=500"`
	Description string          `json:"description,omitempty" validate:"max=500"`
	Items       []DebitNoteItem `json:"items" validate:"required,min=1,dive"`
}

// DebitNoteItem cargo adicional libre (intereses, gastos).
type DebitNoteItem struct {
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gt=0"`
	TaxRate     decimal.Decimal `json:"tax_rate" validate:"gte=0"`
}

// NoteResponse nota crédito o débito.
type NoteResponse struct {
	ID            string             `json:"id"`
	InvoiceID     string             `json:"invoice_id"`
	Kind          string             `json:"kind"`
	Scope         string             `json:"scope,omitempty"`
	ReasonCode    int                `json:"reason_code"`
	ReasonName    string             `json:"reason_name"`
	Reason        string             `json:"reason,omitempty"`
	Description   string             `json:"description,omitempty"`
	Prefix        string             `json:"prefix,omitempty"`
	Number        string             `json:"number,omitempty"`
	FullNumber    string             `json:"full_number,omitempty"`
	Date          string             `json:"date"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TaxTotal      decimal.Decimal    `json:"tax_total"`
	Total         decimal.Decimal    `json:"total"`
	Status        string             `json:"status"`
	CUDE          string             `json:"cude,omitempty"`
	QRData        string             `json:"qr_data,omitempty"`
	TrackID       string             `json:"track_id,omitempty"`
	DIANErrors    string             `json:"dian_errors,omitempty"`
	LastSendError string             `json:"last_send_error,omitempty"`
	SendAttempts  int                `json:"send_attempts"`
	Lines         []NoteLineResponse `json:"lines,omitempty"`
}

// NoteLineResponse línea de nota.
type NoteLineResponse struct {
	ID              string          `json:"id"`
	InvoiceDetailID string          `json:"invoice_item_id,omitempty"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
}

// IssueNoteResponse nota emitida junto con el resultado del envío a la DIAN.
type IssueNoteResponse struct {
	Note   NoteResponse `json:"note"`
	Result SendResult   `json:"result"`
}
