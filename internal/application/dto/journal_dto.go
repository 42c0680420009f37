package dto

import "github.com/shopspring/decimal"

// CreateJournalEntryRequest body de POST /api/journal-entries. El asiento nace en DRAFT.
type CreateJournalEntryRequest struct {
	Date        string               `json:"date" validate:"required,datetime=2006-01-02"`
	Description string               `json:"description" validate:"required,max=500"`
	Lines       []JournalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// JournalLineRequest movimiento; solo uno de Debit/Credit puede ser mayor a cero.
type JournalLineRequest struct {
	AccountCode string          `json:"account_code" validate:"required,numeric,min=4,max=10"`
	Description string          `json:"description,omitempty" validate:"max=300"`
	Debit       decimal.Decimal `json:"debit" validate:"gte=0"`
	Credit      decimal.Decimal `json:"credit" validate:"gte=0"`
}

// VoidJournalEntryRequest body de POST /api/journal-entries/:id/void.
type VoidJournalEntryRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// JournalEntryResponse asiento contable.
type JournalEntryResponse struct {
	ID          string                `json:"id"`
	Date        string                `json:"date"`
	Description string                `json:"description"`
	SourceType  string                `json:"source_type"`
	SourceID    string                `json:"source_id,omitempty"`
	Status      string                `json:"status"`
	PostedAt    string                `json:"posted_at,omitempty"`
	VoidedAt    string                `json:"voided_at,omitempty"`
	VoidReason  string                `json:"void_reason,omitempty"`
	TotalDebit  decimal.Decimal       `json:"total_debit"`
	TotalCredit decimal.Decimal       `json:"total_credit"`
	Lines       []JournalLineResponse `json:"lines,omitempty"`
}

// JournalLineResponse línea de asiento.
type JournalLineResponse struct {
	ID          string          `json:"id"`
	AccountCode string          `json:"account_code"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// JournalEntryListResponse página de asientos.
type JournalEntryListResponse struct {
	Items []JournalEntryResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}
