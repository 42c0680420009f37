package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// JournalUseCase ciclo de vida de asientos: DRAFT ──Post──► POSTED ──Void──► VOIDED.
// Las líneas no cambian después de contabilizar.
type JournalUseCase struct {
	tx       TxRunner
	journals repository.JournalRepository
	log      zerolog.Logger
	now      func() time.Time
}

// NewJournalUseCase construye el caso de uso. journals se usa para lecturas fuera de transacción.
func NewJournalUseCase(tx TxRunner, journals repository.JournalRepository, log zerolog.Logger) *JournalUseCase {
	return &JournalUseCase{tx: tx, journals: journals, log: log, now: time.Now}
}

// Create registra un asiento manual en DRAFT. No exige que cuadre hasta contabilizarlo.
func (uc *JournalUseCase) Create(ctx context.Context, companyID string, in dto.CreateJournalEntryRequest) (*dto.JournalEntryResponse, error) {
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	date, _ := time.Parse("2006-01-02", in.Date)
	now := uc.now()
	entry := &entity.JournalEntry{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Date:        date,
		Description: in.Description,
		SourceType:  entity.JournalSourceManual,
		Status:      entity.JournalDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, l := range in.Lines {
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return nil, fmt.Errorf("%w: la línea %d debe tener débito o crédito, no ambos", domain.ErrValidation, i+1)
		}
		entry.Lines = append(entry.Lines, &entity.JournalLine{
			ID:          uuid.New().String(),
			EntryID:     entry.ID,
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	if err := uc.tx.RunAccounting(ctx, func(journals repository.JournalRepository) error {
		return journals.Create(ctx, entry)
	}); err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", companyID).Str("entry_id", entry.ID).Msg("asiento creado")
	return toJournalResponse(entry), nil
}

// Post contabiliza un asiento en DRAFT. Falla si débitos y créditos no cuadran.
func (uc *JournalUseCase) Post(ctx context.Context, companyID, id string) (*dto.JournalEntryResponse, error) {
	var entry *entity.JournalEntry
	err := uc.tx.RunAccounting(ctx, func(journals repository.JournalRepository) error {
		var err error
		if entry, err = lockEntry(ctx, journals, companyID, id); err != nil {
			return err
		}
		if entry.Status != entity.JournalDraft {
			return fmt.Errorf("%w: el asiento está en %s", domain.ErrPrecondition, entry.Status)
		}
		if err := checkBalanced(entry); err != nil {
			return err
		}
		now := uc.now()
		entry.Status = entity.JournalPosted
		entry.PostedAt = &now
		entry.UpdatedAt = now
		return journals.UpdateStatus(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", companyID).Str("entry_id", id).Msg("asiento contabilizado")
	return toJournalResponse(entry), nil
}

// Void anula un asiento contabilizado. El motivo es obligatorio.
func (uc *JournalUseCase) Void(ctx context.Context, companyID, id string, in dto.VoidJournalEntryRequest) (*dto.JournalEntryResponse, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := dto.Validate(in); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	var entry *entity.JournalEntry
	err := uc.tx.RunAccounting(ctx, func(journals repository.JournalRepository) error {
		var err error
		if entry, err = lockEntry(ctx, journals, companyID, id); err != nil {
			return err
		}
		if entry.Status != entity.JournalPosted {
			return fmt.Errorf("%w: solo se anulan asientos contabilizados (estado %s)", domain.ErrPrecondition, entry.Status)
		}
		now := uc.now()
		entry.Status = entity.JournalVoided
		entry.VoidedAt = &now
		entry.VoidReason = in.Reason
		entry.UpdatedAt = now
		return journals.UpdateStatus(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("company_id", companyID).Str("entry_id", id).Str("reason", in.Reason).Msg("asiento anulado")
	return toJournalResponse(entry), nil
}

// Get obtiene un asiento con sus líneas.
func (uc *JournalUseCase) Get(ctx context.Context, companyID, id string) (*dto.JournalEntryResponse, error) {
	entry, err := uc.journals.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: asiento %s", domain.ErrNotFound, id)
	}
	return toJournalResponse(entry), nil
}

// List lista asientos de la empresa.
func (uc *JournalUseCase) List(ctx context.Context, companyID, status, sourceType string, page dto.PageRequest) (*dto.JournalEntryListResponse, error) {
	page.DefaultPage()
	list, err := uc.journals.List(ctx, repository.JournalFilter{
		CompanyID:  companyID,
		Status:     entity.JournalStatus(status),
		SourceType: sourceType,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.JournalEntryListResponse{
		Items: make([]dto.JournalEntryResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, e := range list {
		out.Items = append(out.Items, *toJournalResponse(e))
	}
	return out, nil
}

// postFromSource crea y contabiliza en una sola transacción el asiento de un documento.
// Un segundo asiento para el mismo documento se ignora.
func (uc *JournalUseCase) postFromSource(ctx context.Context, companyID, sourceType, sourceID string, date time.Time, description string, lines []*entity.JournalLine) error {
	now := uc.now()
	entry := &entity.JournalEntry{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Date:        date,
		Description: description,
		SourceType:  sourceType,
		SourceID:    sourceID,
		Status:      entity.JournalPosted,
		PostedAt:    &now,
		Lines:       lines,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, l := range entry.Lines {
		l.ID = uuid.New().String()
		l.EntryID = entry.ID
	}
	if err := checkBalanced(entry); err != nil {
		return err
	}
	err := uc.tx.RunAccounting(ctx, func(journals repository.JournalRepository) error {
		return journals.Create(ctx, entry)
	})
	log := uc.log.With().Str("company_id", companyID).Str("source_type", sourceType).Str("source_id", sourceID).Logger()
	if errors.Is(err, domain.ErrDuplicate) {
		log.Info().Msg("el documento ya tiene asiento")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info().Str("entry_id", entry.ID).Msg("asiento automático contabilizado")
	return nil
}

func lockEntry(ctx context.Context, journals repository.JournalRepository, companyID, id string) (*entity.JournalEntry, error) {
	entry, err := journals.GetByIDForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: asiento %s", domain.ErrNotFound, id)
	}
	return entry, nil
}

func checkBalanced(entry *entity.JournalEntry) error {
	if len(entry.Lines) < 2 {
		return fmt.Errorf("%w: el asiento necesita al menos dos líneas", domain.ErrValidation)
	}
	debit, credit := entry.Totals()
	if diff := entry.Imbalance(); !diff.IsZero() {
		return fmt.Errorf("%w: el asiento no cuadra: débitos %s, créditos %s, diferencia %s",
			domain.ErrValidation, debit.StringFixed(2), credit.StringFixed(2), diff.StringFixed(2))
	}
	if debit.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: el asiento no tiene valores", domain.ErrValidation)
	}
	return nil
}

func toJournalResponse(e *entity.JournalEntry) *dto.JournalEntryResponse {
	debit, credit := e.Totals()
	resp := &dto.JournalEntryResponse{
		ID:          e.ID,
		Date:        e.Date.Format("2006-01-02"),
		Description: e.Description,
		SourceType:  e.SourceType,
		SourceID:    e.SourceID,
		Status:      string(e.Status),
		VoidReason:  e.VoidReason,
		TotalDebit:  debit,
		TotalCredit: credit,
	}
	if e.PostedAt != nil {
		resp.PostedAt = e.PostedAt.Format(time.RFC3339)
	}
	if e.VoidedAt != nil {
		resp.VoidedAt = e.VoidedAt.Format(time.RFC3339)
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, dto.JournalLineResponse{
			ID:          l.ID,
			AccountCode: l.AccountCode,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	return resp
}
