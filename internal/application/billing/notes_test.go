package billing_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

func firstDetailID(t *testing.T, f *fixture, invoiceID string) string {
	t.Helper()
	inv, err := f.invoices.GetInvoice(context.Background(), companyID, invoiceID)
	require.NoError(t, err)
	require.NotEmpty(t, inv.Details)
	return inv.Details[0].ID
}

// sendItems crea y envía una factura con las líneas dadas; devuelve su id y el detalle por producto.
func (f *fixture) sendItems(t *testing.T, items ...dto.InvoiceItemRequest) (string, map[string]dto.InvoiceDetailResponse) {
	t.Helper()
	ctx := context.Background()
	inv, err := f.invoices.CreateInvoice(ctx, companyID, dto.CreateInvoiceRequest{CustomerID: "cust-1", Items: items})
	require.NoError(t, err)
	res, err := f.lifecycle.Send(ctx, companyID, inv.ID, billing.SendOptions{})
	require.NoError(t, err)
	require.Equal(t, billing.OutcomeSent, res.Outcome)

	lines := make(map[string]dto.InvoiceDetailResponse, len(inv.Details))
	for _, d := range inv.Details {
		lines[d.ProductID] = d
	}
	return inv.ID, lines
}

func TestIssueCreditNote_Partial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)

	out, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonDevolucion,
		Reason:     "Devolución de una unidad",
		Items:      []dto.CreditNoteItem{{InvoiceItemID: firstDetailID(t, f, invoiceID), Quantity: dec("1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.ScopePartial), out.Note.Scope)
	requireDec(t, "50", out.Note.Subtotal)
	requireDec(t, "9.5", out.Note.TaxTotal)
	requireDec(t, "59.5", out.Note.Total)
	assert.Equal(t, "DEVOLUCION", out.Note.ReasonName)
	assert.Equal(t, billing.OutcomeSent, out.Result.Outcome)
	assert.Equal(t, "NC0000001", out.Result.Number)
	assert.Equal(t, "key-NC0000001", out.Note.CUDE)

	subs := f.gw.submitted()
	sub := subs[len(subs)-1]
	assert.Equal(t, dian.KindCreditNote, sub.Kind)
	require.NotNil(t, sub.Reference)
	assert.Equal(t, "SETP0000001", sub.Reference.Number)
	assert.Equal(t, "key-SETP0000001", sub.Reference.CUFE)

	// La numeración de notas es independiente de la de facturas.
	assert.Equal(t, int64(2), f.nextNumber(t, entity.DocumentTypeInvoice))
	assert.Equal(t, int64(2), f.nextNumber(t, entity.DocumentTypeCreditNote))
}

func TestIssueCreditNote_QuantityClampedToInvoiced(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)

	out, err := f.notes.IssueCreditNote(context.Background(), companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonDevolucion,
		Items:      []dto.CreditNoteItem{{InvoiceItemID: firstDetailID(t, f, invoiceID), Quantity: dec("5")}},
	})
	require.NoError(t, err)
	requireDec(t, "2", out.Note.Lines[0].Quantity)
	requireDec(t, "119", out.Note.Total)
}

func TestIssueCreditNote_TotalMirrorsInvoice(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)

	out, err := f.notes.IssueCreditNote(context.Background(), companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonAnulacion,
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.ScopeTotal), out.Note.Scope)
	requireDec(t, "119", out.Note.Total)
	require.Len(t, out.Note.Lines, 1)

	// Ya no queda saldo por acreditar.
	_, err = f.notes.IssueCreditNote(context.Background(), companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonRebaja,
		Items:      []dto.CreditNoteItem{{InvoiceItemID: firstDetailID(t, f, invoiceID), Quantity: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIssueCreditNote_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)
	detailID := firstDetailID(t, f, invoiceID)

	cases := []struct {
		name string
		in   dto.CreditNoteRequest
	}{
		{"concepto inexistente", dto.CreditNoteRequest{ReasonCode: 9}},
		{"cantidad negativa", dto.CreditNoteRequest{ReasonCode: 1, Items: []dto.CreditNoteItem{{InvoiceItemID: detailID, Quantity: dec("-1")}}}},
		{"línea ajena", dto.CreditNoteRequest{ReasonCode: 1, Items: []dto.CreditNoteItem{{InvoiceItemID: "otra", Quantity: dec("1")}}}},
		{"todo en cero", dto.CreditNoteRequest{ReasonCode: 1, Items: []dto.CreditNoteItem{{InvoiceItemID: detailID, Quantity: dec("0")}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Equal(t, int64(1), f.nextNumber(t, entity.DocumentTypeCreditNote))
}

func TestIssueNote_ParentMustBeSent(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.draftInvoice(t)

	_, err := f.notes.IssueCreditNote(context.Background(), companyID, invoiceID, dto.CreditNoteRequest{ReasonCode: 2})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	_, err = f.notes.IssueDebitNote(context.Background(), companyID, "missing", dto.DebitNoteRequest{
		ReasonCode: 1,
		Items:      []dto.DebitNoteItem{{Description: "Intereses", Quantity: 1, UnitPrice: dec("10")}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIssueDebitNote(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)

	out, err := f.notes.IssueDebitNote(context.Background(), companyID, invoiceID, dto.DebitNoteRequest{
		ReasonCode: entity.DebitReasonIntereses,
		Reason:     "Intereses de mora marzo",
		Items:      []dto.DebitNoteItem{{Description: "Intereses de mora", Quantity: 1, UnitPrice: dec("1000"), TaxRate: dec("19")}},
	})
	require.NoError(t, err)
	requireDec(t, "1000", out.Note.Subtotal)
	requireDec(t, "190", out.Note.TaxTotal)
	requireDec(t, "1190", out.Note.Total)
	assert.Equal(t, "ND0000001", out.Result.Number)
	assert.Equal(t, string(entity.NoteDebit), out.Note.Kind)

	subs := f.gw.submitted()
	assert.Equal(t, dian.KindDebitNote, subs[len(subs)-1].Kind)

	_, err = f.notes.IssueDebitNote(context.Background(), companyID, invoiceID, dto.DebitNoteRequest{
		ReasonCode: entity.DebitReasonOtros,
		Items:      []dto.DebitNoteItem{{Description: "Flete", Quantity: 1, UnitPrice: dec("10"), TaxRate: dec("16")}},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIssueNote_StaysDraftWithoutResolution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.settings.Put(ctx, companyID, dto.DianConfigRequest{
		Environment:  entity.DianEnvDev,
		TechnicalKey: "clave",
		Resolutions: []dto.ResolutionRequest{
			{DocumentType: "INVOICE", ResolutionNumber: "18760000001", Prefix: "SETP", RangeFrom: 1, RangeTo: 100, DateFrom: "2024-01-01", DateTo: "2025-12-31"},
		},
	})
	require.NoError(t, err)
	invoiceID := f.sentInvoice(t)

	out, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{ReasonCode: entity.CreditReasonAnulacion})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeNotSent, out.Result.Outcome)
	assert.Equal(t, string(entity.StatusDraft), out.Note.Status)
	assert.Empty(t, out.Note.Number)

	f.configure(t, 100)
	res, err := f.notes.SendNote(ctx, companyID, out.Note.ID, billing.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSent, res.Outcome)
	assert.Equal(t, "NC0000001", res.Number)
}

func TestCheckNoteStatus_AcceptedRunsHook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)
	out, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{ReasonCode: entity.CreditReasonAnulacion})
	require.NoError(t, err)

	res, err := f.notes.CheckNoteStatus(ctx, companyID, out.Note.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeAccepted, res.Outcome)
	assert.Equal(t, string(entity.DocumentTypeCreditNote), res.DocumentType)
	assert.Equal(t, []string{out.Note.ID}, f.hook.notes)

	notes, err := f.notes.ListInvoiceNotes(ctx, companyID, invoiceID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, string(entity.StatusAccepted), notes[0].Status)
}

func TestIssueCreditNote_RepeatedLineRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID, lines := f.sendItems(t,
		dto.InvoiceItemRequest{ProductID: "prod-1", Quantity: dec("2")},
		dto.InvoiceItemRequest{ProductID: "prod-2", Quantity: dec("10")},
	)
	coffee, rice := lines["prod-1"].ID, lines["prod-2"].ID

	_, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonDevolucion,
		Items: []dto.CreditNoteItem{
			{InvoiceItemID: coffee, Quantity: dec("2")},
			{InvoiceItemID: coffee, Quantity: dec("2")},
		},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	var fields dto.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Equal(t, "items tiene elementos repetidos", fields["items"])

	notes, err := f.notes.ListInvoiceNotes(ctx, companyID, invoiceID)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, int64(1), f.nextNumber(t, entity.DocumentTypeCreditNote))

	// Una vez por línea, cada cantidad se recorta a la de su propia línea.
	out, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonDevolucion,
		Items: []dto.CreditNoteItem{
			{InvoiceItemID: coffee, Quantity: dec("4")},
			{InvoiceItemID: rice, Quantity: dec("1")},
		},
	})
	require.NoError(t, err)
	require.Len(t, out.Note.Lines, 2)
	credited := map[string]string{}
	for _, l := range out.Note.Lines {
		credited[l.InvoiceDetailID] = l.Quantity.String()
	}
	assert.Equal(t, map[string]string{coffee: "2", rice: "1"}, credited)
	requireDec(t, "4100", out.Note.Subtotal)
	requireDec(t, "219", out.Note.TaxTotal)
	requireDec(t, "4319", out.Note.Total)
}

func TestIssueCreditNote_PartialUsesListUnitPrice(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID, lines := f.sendItems(t, dto.InvoiceItemRequest{ProductID: "prod-1", Quantity: dec("3"), Discount: dec("10")})
	inv := f.invoice(t, invoiceID)
	requireDec(t, "166.6", inv.GrandTotal)

	out, err := f.notes.IssueCreditNote(context.Background(), companyID, invoiceID, dto.CreditNoteRequest{
		ReasonCode: entity.CreditReasonDevolucion,
		Items:      []dto.CreditNoteItem{{InvoiceItemID: lines["prod-1"].ID, Quantity: dec("1")}},
	})
	require.NoError(t, err)
	requireDec(t, "50", out.Note.Lines[0].UnitPrice)
	requireDec(t, "50", out.Note.Subtotal)
	requireDec(t, "9.5", out.Note.TaxTotal)
	requireDec(t, "59.5", out.Note.Total)
}

func TestIssueCreditNote_ConcurrentTotalNotesCreditOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	invoiceID := f.sentInvoice(t)

	const n = 10
	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, errs[i] = f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{ReasonCode: entity.CreditReasonAnulacion})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Equal(t, 1, ok)

	notes, err := f.notes.ListInvoiceNotes(ctx, companyID, invoiceID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	requireDec(t, "119", notes[0].Total)
	assert.Equal(t, int64(2), f.nextNumber(t, entity.DocumentTypeCreditNote))
}

func TestIssueNotes_ConcurrentNumbersPerFamily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)

	const n = 8
	invoices := make([]string, n)
	for i := range invoices {
		invoices[i] = f.sentInvoice(t)
	}

	credit := make([]string, n)
	debit := make([]string, n)
	var g errgroup.Group
	for i, invoiceID := range invoices {
		detailID := firstDetailID(t, f, invoiceID)
		g.Go(func() error {
			out, err := f.notes.IssueCreditNote(ctx, companyID, invoiceID, dto.CreditNoteRequest{
				ReasonCode: entity.CreditReasonDevolucion,
				Items:      []dto.CreditNoteItem{{InvoiceItemID: detailID, Quantity: dec("1")}},
			})
			if err != nil {
				return err
			}
			credit[i] = out.Result.Number
			return nil
		})
		g.Go(func() error {
			out, err := f.notes.IssueDebitNote(ctx, companyID, invoiceID, dto.DebitNoteRequest{
				ReasonCode: entity.DebitReasonIntereses,
				Items:      []dto.DebitNoteItem{{Description: "Intereses de mora", Quantity: 1, UnitPrice: dec("100"), TaxRate: dec("19")}},
			})
			if err != nil {
				return err
			}
			debit[i] = out.Result.Number
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(credit)
	sort.Strings(debit)
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf("NC%07d", i+1), credit[i])
		assert.Equal(t, fmt.Sprintf("ND%07d", i+1), debit[i])
	}
	assert.Equal(t, int64(n+1), f.nextNumber(t, entity.DocumentTypeCreditNote))
	assert.Equal(t, int64(n+1), f.nextNumber(t, entity.DocumentTypeDebitNote))
	assert.Equal(t, int64(n+1), f.nextNumber(t, entity.DocumentTypeInvoice))
}
