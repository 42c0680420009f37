package dian

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// Outcome resultado que la DIAN reporta para un envío o una consulta.
type Outcome string

const (
	OutcomeAccepted Outcome = "ACCEPTED" // Recibido (envío) o validado (consulta)
	OutcomeRejected Outcome = "REJECTED" // Rechazo definitivo
	OutcomeError    Outcome = "ERROR"    // Error del servicio; reintentable
	OutcomePending  Outcome = "PENDING"  // Aún en validación
)

// DocumentKind tipo de documento electrónico (código DIAN).
type DocumentKind string

const (
	KindInvoice    DocumentKind = "01"
	KindCreditNote DocumentKind = "91"
	KindDebitNote  DocumentKind = "92"
)

// Line ítem del documento ya calculado.
type Line struct {
	Code        string
	Description string
	UnitCode    string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Discount    decimal.Decimal
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
}

// BillingReference factura a la que apunta una nota.
type BillingReference struct {
	Number    string
	CUFE      string
	IssueDate time.Time
}

// Submission documento numerado listo para firmar y enviar.
type Submission struct {
	Kind          DocumentKind
	DocumentID    string
	Prefix        string
	Number        string
	IssueDate     time.Time
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	ReasonCode    int
	Reason        string
	Lines         []Line
	Supplier      *entity.Company
	Customer      *entity.Customer
	Resolution    *entity.BillingResolution
	Config        *entity.DianConfig
	Reference     *BillingReference
}

// FullNumber prefijo + consecutivo.
func (s *Submission) FullNumber() string {
	return s.Prefix + s.Number
}

// Response lo que devolvió la DIAN. DocumentKey es el CUFE o CUDE calculado para el envío.
type Response struct {
	TrackingID  string
	Outcome     Outcome
	Reason      string
	DocumentKey string
	SignedXML   string
	QRData      string
}

// Gateway puerto hacia la DIAN. Un error devuelto significa fallo de transporte:
// no se sabe si la DIAN recibió el documento.
type Gateway interface {
	Submit(ctx context.Context, sub *Submission) (*Response, error)
	CheckStatus(ctx context.Context, cfg *entity.DianConfig, trackingID string) (*Response, error)
}
