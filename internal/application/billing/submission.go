package billing

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	pkgdian "github.com/jhoicas/stockflow-api/pkg/dian"
)

// invoiceSubmission arma el documento a enviar, aún sin consecutivo.
func (c *core) invoiceSubmission(ctx context.Context, inv *entity.Invoice, customer *entity.Customer, cfg *entity.DianConfig) (*dian.Submission, error) {
	company, err := c.company(ctx, inv.CompanyID)
	if err != nil {
		return nil, err
	}
	lines := make([]dian.Line, 0, len(inv.Details))
	for _, d := range inv.Details {
		code, unit, err := c.productCode(ctx, inv.CompanyID, d.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, dian.Line{
			Code:        code,
			Description: d.Description,
			UnitCode:    unit,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			TaxRate:     d.TaxRate,
			Discount:    d.Discount,
			Subtotal:    d.Subtotal,
			TaxAmount:   d.TaxAmount,
		})
	}
	return &dian.Submission{
		Kind:          dian.KindInvoice,
		DocumentID:    inv.ID,
		IssueDate:     inv.Date,
		Subtotal:      inv.Subtotal,
		DiscountTotal: inv.DiscountTotal,
		TaxTotal:      inv.TaxTotal,
		Total:         inv.GrandTotal,
		Lines:         lines,
		Supplier:      company,
		Customer:      customer,
		Config:        cfg,
	}, nil
}

// noteSubmission arma la nota con la referencia a su factura.
func (c *core) noteSubmission(ctx context.Context, note *entity.Note, parent *entity.Invoice, customer *entity.Customer, cfg *entity.DianConfig) (*dian.Submission, error) {
	company, err := c.company(ctx, note.CompanyID)
	if err != nil {
		return nil, err
	}
	lines := make([]dian.Line, 0, len(note.Lines))
	for _, l := range note.Lines {
		code, unit, err := c.productCode(ctx, note.CompanyID, l.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, dian.Line{
			Code:        code,
			Description: l.Description,
			UnitCode:    unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TaxRate:     l.TaxRate,
			Subtotal:    l.Subtotal,
			TaxAmount:   l.TaxAmount,
		})
	}
	kind := dian.KindCreditNote
	if note.Kind == entity.NoteDebit {
		kind = dian.KindDebitNote
	}
	return &dian.Submission{
		Kind:       kind,
		DocumentID: note.ID,
		IssueDate:  note.Date,
		Subtotal:   note.Subtotal,
		TaxTotal:   note.TaxTotal,
		Total:      note.Total,
		ReasonCode: note.ReasonCode,
		Reason:     note.Reason,
		Lines:      lines,
		Supplier:   company,
		Customer:   customer,
		Config:     cfg,
		Reference: &dian.BillingReference{
			Number:    parent.FullNumber(),
			CUFE:      parent.CUFE,
			IssueDate: parent.Date,
		},
	}, nil
}

// productCode devuelve SKU y unidad DIAN del producto; las líneas libres usan unidad genérica.
func (c *core) productCode(ctx context.Context, companyID, productID string) (code, unit string, err error) {
	unit = pkgdian.UnitUnit
	if productID == "" {
		return "", unit, nil
	}
	p, err := c.Products.GetByID(ctx, companyID, productID)
	if err != nil {
		return "", "", err
	}
	if p == nil {
		return productID, unit, nil
	}
	if p.UnitMeasure != "" {
		unit = p.UnitMeasure
	}
	return p.SKU, unit, nil
}

func numberSubmission(sub *dian.Submission, tr *entity.DianTracking, res *entity.BillingResolution) {
	sub.Prefix = tr.Prefix
	sub.Number = tr.Number
	sub.Resolution = res
}
