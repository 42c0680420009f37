package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/queue"
)

type fakeChecker struct {
	calls []string
	res   *dto.StatusResult
	err   error
}

func (f *fakeChecker) CheckStatus(_ context.Context, companyID, id string) (*dto.StatusResult, error) {
	f.calls = append(f.calls, companyID+"/"+id)
	return f.res, f.err
}

func (f *fakeChecker) CheckNoteStatus(_ context.Context, companyID, id string) (*dto.StatusResult, error) {
	f.calls = append(f.calls, "note:"+companyID+"/"+id)
	return f.res, f.err
}

type recorder map[string]int

func (r recorder) StatusCheck(docType entity.DocumentType, outcome string) {
	r[string(docType)+":"+outcome]++
}

func task(t *testing.T, docType entity.DocumentType) *asynq.Task {
	t.Helper()
	tk, err := queue.NewCheckStatusTask(queue.CheckStatusPayload{CompanyID: "company-1", DocumentID: "doc-1", DocumentType: docType})
	require.NoError(t, err)
	return tk
}

func TestNewCheckStatusTask(t *testing.T) {
	tk := task(t, entity.DocumentTypeInvoice)
	assert.Equal(t, queue.TaskCheckStatus, tk.Type())
	assert.JSONEq(t, `{"company_id":"company-1","document_id":"doc-1","document_type":"INVOICE"}`, string(tk.Payload()))

	_, err := queue.NewCheckStatusTask(queue.CheckStatusPayload{CompanyID: "company-1", DocumentID: "doc-1", DocumentType: "RECEIPT"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStatusCheckHandler_Outcomes(t *testing.T) {
	cases := []struct {
		name      string
		res       *dto.StatusResult
		err       error
		retry     bool
		skipRetry bool
	}{
		{name: "aceptada", res: &dto.StatusResult{Status: "ACCEPTED", Outcome: billing.OutcomeAccepted}},
		{name: "rechazada", res: &dto.StatusResult{Status: "REJECTED", Outcome: billing.OutcomeRejected}},
		{name: "pendiente", res: &dto.StatusResult{Status: "SENT", Outcome: billing.OutcomePending}, retry: true},
		{name: "error de servicio", res: &dto.StatusResult{Status: "SENT", Outcome: billing.OutcomeRetryable}, retry: true},
		{name: "fallo de red", err: fmt.Errorf("%w: timeout", domain.ErrGatewayTransport), retry: true},
		{name: "no existe", err: fmt.Errorf("%w: factura doc-1", domain.ErrNotFound), skipRetry: true},
		{name: "borrador", err: fmt.Errorf("%w: la factura no ha sido enviada", domain.ErrPrecondition), skipRetry: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker := &fakeChecker{res: tc.res, err: tc.err}
			h := &queue.StatusCheckHandler{Invoices: checker, Notes: checker, Logger: zerolog.Nop()}

			err := h.ProcessTask(context.Background(), task(t, entity.DocumentTypeInvoice))
			assert.Equal(t, []string{"company-1/doc-1"}, checker.calls)
			switch {
			case tc.skipRetry:
				assert.ErrorIs(t, err, asynq.SkipRetry)
			case tc.retry:
				require.Error(t, err)
				assert.False(t, errors.Is(err, asynq.SkipRetry))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestStatusCheckHandler_RoutesNotes(t *testing.T) {
	invoices := &fakeChecker{}
	notes := &fakeChecker{res: &dto.StatusResult{Status: "ACCEPTED", Outcome: billing.OutcomeAccepted}}
	rec := recorder{}
	h := &queue.StatusCheckHandler{Invoices: invoices, Notes: notes, Recorder: rec, Logger: zerolog.Nop()}

	require.NoError(t, h.ProcessTask(context.Background(), task(t, entity.DocumentTypeCreditNote)))
	require.NoError(t, h.ProcessTask(context.Background(), task(t, entity.DocumentTypeDebitNote)))
	assert.Empty(t, invoices.calls)
	assert.Len(t, notes.calls, 2)
	assert.Equal(t, 1, rec["CREDIT_NOTE:ACCEPTED"])
	assert.Equal(t, 1, rec["DEBIT_NOTE:ACCEPTED"])
}

func TestStatusCheckHandler_BadPayload(t *testing.T) {
	h := &queue.StatusCheckHandler{Logger: zerolog.Nop()}
	err := h.ProcessTask(context.Background(), asynq.NewTask(queue.TaskCheckStatus, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), asynq.NewTask(queue.TaskCheckStatus, []byte(`{"company_id":"c","document_id":"d","document_type":"RECEIPT"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
