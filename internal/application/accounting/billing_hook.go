package accounting

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// Accounts cuentas PUC usadas en los asientos automáticos de facturación.
type Accounts struct {
	Receivable string // 130505 Clientes nacionales
	Revenue    string // 4135xx Comercio al por mayor y menor
	VAT        string // 240805 IVA generado
}

// BillingHook contabiliza facturas y notas cuando la DIAN las valida, solo para empresas
// con el módulo de contabilidad activo.
type BillingHook struct {
	journals  *JournalUseCase
	companies repository.CompanyRepository
	accounts  Accounts
}

// NewBillingHook construye el hook.
func NewBillingHook(journals *JournalUseCase, companies repository.CompanyRepository, accounts Accounts) *BillingHook {
	return &BillingHook{journals: journals, companies: companies, accounts: accounts}
}

// InvoiceAccepted: débito a clientes por el total; crédito a ingresos (neto de descuento) e IVA.
func (h *BillingHook) InvoiceAccepted(ctx context.Context, inv *entity.Invoice) error {
	if ok, err := h.enabled(ctx, inv.CompanyID); !ok || err != nil {
		return err
	}
	lines := h.saleLines(inv.GrandTotal, inv.Subtotal.Sub(inv.DiscountTotal), inv.TaxTotal, false)
	return h.journals.postFromSource(ctx, inv.CompanyID, entity.JournalSourceInvoice, inv.ID, inv.Date,
		"Factura electrónica "+inv.FullNumber(), lines)
}

// NoteAccepted: la nota crédito reversa la venta; la nota débito la incrementa.
func (h *BillingHook) NoteAccepted(ctx context.Context, note *entity.Note) error {
	if ok, err := h.enabled(ctx, note.CompanyID); !ok || err != nil {
		return err
	}
	source, desc := entity.JournalSourceCreditNote, "Nota crédito "
	reverse := true
	if note.Kind == entity.NoteDebit {
		source, desc = entity.JournalSourceDebitNote, "Nota débito "
		reverse = false
	}
	lines := h.saleLines(note.Total, note.Subtotal, note.TaxTotal, reverse)
	return h.journals.postFromSource(ctx, note.CompanyID, source, note.ID, note.Date, desc+note.FullNumber(), lines)
}

func (h *BillingHook) enabled(ctx context.Context, companyID string) (bool, error) {
	if h.companies == nil {
		return true, nil
	}
	return h.companies.HasActiveModule(ctx, companyID, entity.ModuleAccounting)
}

func (h *BillingHook) saleLines(total, revenue, tax decimal.Decimal, reverse bool) []*entity.JournalLine {
	side := func(account, desc string, debit bool, amount decimal.Decimal) *entity.JournalLine {
		if reverse {
			debit = !debit
		}
		l := &entity.JournalLine{AccountCode: account, Description: desc}
		if debit {
			l.Debit = amount
		} else {
			l.Credit = amount
		}
		return l
	}
	lines := []*entity.JournalLine{
		side(h.accounts.Receivable, "Clientes", true, total),
		side(h.accounts.Revenue, "Ingresos por ventas", false, revenue),
	}
	if !tax.IsZero() {
		lines = append(lines, side(h.accounts.VAT, "IVA generado", false, tax))
	}
	return lines
}
