package billing

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción con los repos de facturación.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(repos repository.TxRepos) error) error
}

// StatusPoller programa la consulta diferida del estado DIAN de un documento enviado.
type StatusPoller interface {
	ScheduleStatusCheck(ctx context.Context, companyID, documentID string, docType entity.DocumentType) error
}

// AccountingHook genera el asiento contable cuando la DIAN valida un documento.
// Sus fallos nunca detienen el ciclo de facturación.
type AccountingHook interface {
	InvoiceAccepted(ctx context.Context, inv *entity.Invoice) error
	NoteAccepted(ctx context.Context, note *entity.Note) error
}

// Observer recibe eventos de numeración y transiciones (métricas).
type Observer interface {
	NumberAllocated(docType entity.DocumentType)
	NumberDiscarded(docType entity.DocumentType)
	Transition(docType entity.DocumentType, to entity.DocumentStatus)
}

type nopObserver struct{}

func (nopObserver) NumberAllocated(entity.DocumentType)                   {}
func (nopObserver) NumberDiscarded(entity.DocumentType)                   {}
func (nopObserver) Transition(entity.DocumentType, entity.DocumentStatus) {}

// PDFGenerator genera la representación gráfica de un documento electrónico.
type PDFGenerator interface {
	GeneratePDF(ctx context.Context, doc *PrintableDocument) ([]byte, error)
}
