package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus estado de un asiento contable.
type JournalStatus string

const (
	JournalDraft  JournalStatus = "DRAFT"
	JournalPosted JournalStatus = "POSTED"
	JournalVoided JournalStatus = "VOIDED"
)

// Orígenes de asientos generados automáticamente.
const (
	JournalSourceManual     = "MANUAL"
	JournalSourceInvoice    = "INVOICE"
	JournalSourceCreditNote = "CREDIT_NOTE"
	JournalSourceDebitNote  = "DEBIT_NOTE"
)

// JournalEntry asiento contable de partida doble. Las líneas no cambian después de contabilizar.
type JournalEntry struct {
	ID          string
	CompanyID   string
	Date        time.Time
	Description string
	SourceType  string
	SourceID    string
	Status      JournalStatus
	PostedAt    *time.Time
	VoidedAt    *time.Time
	VoidReason  string
	Lines       []*JournalLine
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JournalLine movimiento sobre una cuenta del PUC. Solo uno de Debit/Credit es distinto de cero.
type JournalLine struct {
	ID          string
	EntryID     string
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Totals devuelve la suma de débitos y créditos.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Imbalance devuelve débitos - créditos; cero si el asiento cuadra.
func (e *JournalEntry) Imbalance() decimal.Decimal {
	d, c := e.Totals()
	return d.Sub(c)
}
