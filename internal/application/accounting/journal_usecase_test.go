package accounting_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/application/accounting"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
)

const companyID = "company-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newJournals(t *testing.T) (*accounting.JournalUseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddCompany(&entity.Company{ID: companyID, Name: "Comercializadora Andina SAS"}, entity.ModuleAccounting)
	return accounting.NewJournalUseCase(memory.NewTxRunner(store), store.Repos().Journals, zerolog.Nop()), store
}

func manualEntry(debit, credit string) dto.CreateJournalEntryRequest {
	return dto.CreateJournalEntryRequest{
		Date:        "2024-03-15",
		Description: "Compra de papelería",
		Lines: []dto.JournalLineRequest{
			{AccountCode: "519530", Debit: dec(debit)},
			{AccountCode: "110505", Credit: dec(credit)},
		},
	}
}

func TestJournal_PostBalancedEntry(t *testing.T) {
	ctx := context.Background()
	uc, _ := newJournals(t)

	entry, err := uc.Create(ctx, companyID, manualEntry("150000", "150000"))
	require.NoError(t, err)
	assert.Equal(t, string(entity.JournalDraft), entry.Status)
	assert.Equal(t, entity.JournalSourceManual, entry.SourceType)

	posted, err := uc.Post(ctx, companyID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.JournalPosted), posted.Status)
	assert.NotEmpty(t, posted.PostedAt)

	_, err = uc.Post(ctx, companyID, entry.ID)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestJournal_PostUnbalancedFails(t *testing.T) {
	ctx := context.Background()
	uc, _ := newJournals(t)

	entry, err := uc.Create(ctx, companyID, manualEntry("150000", "140000"))
	require.NoError(t, err)

	_, err = uc.Post(ctx, companyID, entry.ID)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "10000.00")

	got, err := uc.Get(ctx, companyID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, string(entity.JournalDraft), got.Status)
}

func TestJournal_CreateValidation(t *testing.T) {
	ctx := context.Background()
	uc, _ := newJournals(t)

	in := manualEntry("100", "100")
	in.Lines[0].Credit = dec("100")
	_, err := uc.Create(ctx, companyID, in)
	assert.ErrorIs(t, err, domain.ErrValidation, "débito y crédito en la misma línea")

	in = manualEntry("100", "100")
	in.Lines = in.Lines[:1]
	_, err = uc.Create(ctx, companyID, in)
	assert.ErrorIs(t, err, domain.ErrValidation, "una sola línea")

	in = manualEntry("-5", "100")
	_, err = uc.Create(ctx, companyID, in)
	assert.ErrorIs(t, err, domain.ErrValidation, "débito negativo")
}

func TestJournal_Void(t *testing.T) {
	ctx := context.Background()
	uc, _ := newJournals(t)

	entry, err := uc.Create(ctx, companyID, manualEntry("100", "100"))
	require.NoError(t, err)

	_, err = uc.Void(ctx, companyID, entry.ID, dto.VoidJournalEntryRequest{Reason: "duplicado"})
	assert.ErrorIs(t, err, domain.ErrPrecondition, "un borrador no se anula")

	_, err = uc.Post(ctx, companyID, entry.ID)
	require.NoError(t, err)

	_, err = uc.Void(ctx, companyID, entry.ID, dto.VoidJournalEntryRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.Void(ctx, companyID, entry.ID, dto.VoidJournalEntryRequest{Reason: "  \t "})
	assert.ErrorIs(t, err, domain.ErrValidation, "motivo en blanco")

	voided, err := uc.Void(ctx, companyID, entry.ID, dto.VoidJournalEntryRequest{Reason: " duplicado "})
	require.NoError(t, err)
	assert.Equal(t, string(entity.JournalVoided), voided.Status)
	assert.Equal(t, "duplicado", voided.VoidReason)
	assert.NotEmpty(t, voided.VoidedAt)
	requireLines(t, voided, 2)

	_, err = uc.Void(ctx, companyID, entry.ID, dto.VoidJournalEntryRequest{Reason: "otra vez"})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestJournal_ListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	uc, _ := newJournals(t)
	a, err := uc.Create(ctx, companyID, manualEntry("100", "100"))
	require.NoError(t, err)
	_, err = uc.Create(ctx, companyID, manualEntry("200", "200"))
	require.NoError(t, err)
	_, err = uc.Post(ctx, companyID, a.ID)
	require.NoError(t, err)

	list, err := uc.List(ctx, companyID, string(entity.JournalPosted), "", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, a.ID, list.Items[0].ID)

	_, err = uc.Get(ctx, "company-2", a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func requireLines(t *testing.T, e *dto.JournalEntryResponse, n int) {
	t.Helper()
	require.Len(t, e.Lines, n)
}

