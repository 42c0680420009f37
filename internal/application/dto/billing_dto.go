package dto

import "github.com/shopspring/decimal"

// CreateInvoiceRequest body para POST /api/invoices. La factura nace en DRAFT y sin consecutivo.
// CustomerID vacío = consumidor final.
type CreateInvoiceRequest struct {
	CustomerID    string               `json:"customer_id,omitempty"`
	Date          string               `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ExpectedTotal *decimal.Decimal     `json:"expected_total,omitempty"` // si llega, debe coincidir con el total calculado
	Items         []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// InvoiceItemRequest línea de factura. UnitPrice cero toma el precio del producto; TaxRate nil toma su IVA.
type InvoiceItemRequest struct {
	ProductID   string           `json:"product_id" validate:"required"`
	Description string           `json:"description,omitempty" validate:"max=300"`
	Quantity    decimal.Decimal  `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal  `json:"unit_price" validate:"gte=0"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
	Discount    decimal.Decimal  `json:"discount" validate:"gte=0"`
}

// InvoiceResponse factura con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID            string                  `json:"id"`
	CompanyID     string                  `json:"company_id"`
	CustomerID    string                  `json:"customer_id,omitempty"`
	CustomerName  string                  `json:"customer_name,omitempty"`
	Prefix        string                  `json:"prefix,omitempty"`
	Number        string                  `json:"number,omitempty"`
	FullNumber    string                  `json:"full_number,omitempty"`
	Date          string                  `json:"date"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	DiscountTotal decimal.Decimal         `json:"discount_total"`
	TaxTotal      decimal.Decimal         `json:"tax_total"`
	GrandTotal    decimal.Decimal         `json:"grand_total"`
	Status        string                  `json:"status"`
	CUFE          string                  `json:"cufe,omitempty"`
	QRData        string                  `json:"qr_data,omitempty"`
	TrackID       string                  `json:"track_id,omitempty"`
	DIANErrors    string                  `json:"dian_errors,omitempty"`
	LastSendError string                  `json:"last_send_error,omitempty"`
	SendAttempts  int                     `json:"send_attempts"`
	VoidReason    string                  `json:"void_reason,omitempty"`
	Details       []InvoiceDetailResponse `json:"details,omitempty"`
}

// InvoiceDetailResponse línea de detalle en la respuesta.
type InvoiceDetailResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Discount    decimal.Decimal `json:"discount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

// InvoiceListResponse página de facturas.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// SendRequest body opcional de POST /api/invoices/:id/send y /api/notes/:id/send.
// Force es obligatorio para reintentar un envío que falló por red.
type SendRequest struct {
	Force bool `json:"force"`
}

// VoidInvoiceRequest body de POST /api/invoices/:id/void.
type VoidInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// SendResult resultado de un envío a la DIAN.
// Outcome: SENT | REJECTED | RETRYABLE.
type SendResult struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	Number       string `json:"number"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome"`
	TrackID      string `json:"track_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Attempts     int    `json:"attempts"`
}

// StatusResult resultado de una consulta de estado.
// Outcome: ACCEPTED | REJECTED | PENDING | RETRYABLE; en documentos terminales repite el estado guardado.
type StatusResult struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	Status       string `json:"status"`
	Outcome      string `json:"outcome"`
	TrackID      string `json:"track_id,omitempty"`
	DocumentKey  string `json:"document_key,omitempty"`
	Reason       string `json:"reason,omitempty"`
}
