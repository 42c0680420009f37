package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// PrintableDocument datos de la representación gráfica de una factura o nota.
type PrintableDocument struct {
	Title     string // FACTURA ELECTRÓNICA DE VENTA, NOTA CRÉDITO ELECTRÓNICA...
	Number    string
	Date      time.Time
	KeyLabel  string // CUFE o CUDE
	Key       string
	QRData    string
	Reference string // factura corregida, solo notas
	Reason    string
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	Lines     []PrintableLine
	Company   *entity.Company
	Customer  *entity.Customer
}

// PrintableLine línea impresa.
type PrintableLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
}

// PDFUseCase genera el PDF de facturas y notas. Solo hay PDF de documentos que ya
// llegaron a la DIAN (SENT o ACCEPTED).
type PDFUseCase struct {
	repos     repository.TxRepos
	companies repository.CompanyRepository
	customers repository.CustomerRepository
	generator PDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(
	repos repository.TxRepos,
	companies repository.CompanyRepository,
	customers repository.CustomerRepository,
	generator PDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{repos: repos, companies: companies, customers: customers, generator: generator}
}

// DownloadInvoicePDF devuelve el PDF de la factura y el nombre de archivo.
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, companyID, invoiceID string) ([]byte, string, error) {
	inv, err := uc.repos.Invoices.GetByID(ctx, companyID, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", fmt.Errorf("%w: factura %s", domain.ErrNotFound, invoiceID)
	}
	if !printable(inv.Status) {
		return nil, "", fmt.Errorf("%w: la factura está en %s; el PDF existe solo tras el envío a la DIAN",
			domain.ErrPrecondition, inv.Status)
	}
	details, err := uc.repos.Invoices.GetDetails(ctx, inv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener detalles: %w", err)
	}
	doc := &PrintableDocument{
		Title:    "FACTURA ELECTRÓNICA DE VENTA",
		Number:   inv.FullNumber(),
		Date:     inv.Date,
		KeyLabel: "CUFE",
		Key:      inv.CUFE,
		QRData:   inv.QRData,
		Subtotal: inv.Subtotal,
		Discount: inv.DiscountTotal,
		Tax:      inv.TaxTotal,
		Total:    inv.GrandTotal,
	}
	for _, d := range details {
		doc.Lines = append(doc.Lines, PrintableLine{
			Description: d.Description,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			TaxRate:     d.TaxRate,
			Subtotal:    d.Subtotal,
		})
	}
	if err := uc.parties(ctx, doc, companyID, inv.CustomerID); err != nil {
		return nil, "", err
	}
	pdfBytes, err := uc.generator.GeneratePDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("factura_%s.pdf", inv.FullNumber()), nil
}

// DownloadNotePDF devuelve el PDF de una nota crédito o débito.
func (uc *PDFUseCase) DownloadNotePDF(ctx context.Context, companyID, noteID string) ([]byte, string, error) {
	note, err := uc.repos.Notes.GetByID(ctx, companyID, noteID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener nota: %w", err)
	}
	if note == nil {
		return nil, "", fmt.Errorf("%w: nota %s", domain.ErrNotFound, noteID)
	}
	if !printable(note.Status) {
		return nil, "", fmt.Errorf("%w: la nota está en %s; el PDF existe solo tras el envío a la DIAN",
			domain.ErrPrecondition, note.Status)
	}
	parent, err := uc.repos.Invoices.GetByID(ctx, companyID, note.InvoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if parent == nil {
		return nil, "", fmt.Errorf("%w: factura %s", domain.ErrNotFound, note.InvoiceID)
	}
	title, prefix := "NOTA CRÉDITO ELECTRÓNICA", "nota_credito"
	if note.Kind == entity.NoteDebit {
		title, prefix = "NOTA DÉBITO ELECTRÓNICA", "nota_debito"
	}
	doc := &PrintableDocument{
		Title:     title,
		Number:    note.FullNumber(),
		Date:      note.Date,
		KeyLabel:  "CUDE",
		Key:       note.CUDE,
		QRData:    note.QRData,
		Reference: parent.FullNumber(),
		Reason:    fmt.Sprintf("%d %s %s", note.ReasonCode, entity.ReasonName(note.Kind, note.ReasonCode), note.Reason),
		Subtotal:  note.Subtotal,
		Tax:       note.TaxTotal,
		Total:     note.Total,
	}
	for _, l := range note.Lines {
		doc.Lines = append(doc.Lines, PrintableLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			Subtotal:    l.Subtotal,
		})
	}
	if err := uc.parties(ctx, doc, companyID, parent.CustomerID); err != nil {
		return nil, "", err
	}
	pdfBytes, err := uc.generator.GeneratePDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("%s_%s.pdf", prefix, note.FullNumber()), nil
}

func (uc *PDFUseCase) parties(ctx context.Context, doc *PrintableDocument, companyID, customerID string) error {
	company, err := uc.companies.GetByID(ctx, companyID)
	if err != nil {
		return fmt.Errorf("pdf: obtener empresa: %w", err)
	}
	if company == nil {
		return fmt.Errorf("%w: empresa %s", domain.ErrNotFound, companyID)
	}
	doc.Company = company
	doc.Customer = entity.FinalConsumer()
	if customerID == "" {
		return nil
	}
	customer, err := uc.customers.GetByID(ctx, companyID, customerID)
	if err != nil {
		return fmt.Errorf("pdf: obtener cliente: %w", err)
	}
	if customer != nil {
		doc.Customer = customer
	}
	return nil
}

func printable(s entity.DocumentStatus) bool {
	return s == entity.StatusSent || s == entity.StatusAccepted
}
