package billing_test

import (
	"context"
	"errors"
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

var errNetwork = errors.New("dial tcp: i/o timeout")

func TestSend_AssignsNumberAndMarksSent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)

	res, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSent, res.Outcome)
	assert.Equal(t, string(entity.StatusSent), res.Status)
	assert.Equal(t, "SETP0000001", res.Number)
	assert.Equal(t, "trk-SETP0000001", res.TrackID)
	assert.Equal(t, 1, res.Attempts)

	inv := f.invoice(t, id)
	assert.Equal(t, entity.StatusSent, inv.Status)
	assert.Equal(t, int64(1), inv.SequenceNumber)
	assert.Equal(t, "key-SETP0000001", inv.CUFE)
	assert.Empty(t, inv.LastSendError)
	assert.Equal(t, int64(2), f.nextNumber(t, entity.DocumentTypeInvoice))
	assert.Equal(t, []string{id}, f.poller.ids())

	subs := f.gw.submitted()
	require.Len(t, subs, 1)
	sub := subs[0]
	assert.Equal(t, dian.KindInvoice, sub.Kind)
	assert.Equal(t, "18760000001", sub.Resolution.ResolutionNumber)
	assert.Equal(t, "Distribuciones del Valle", sub.Customer.Name)
	assert.Equal(t, "Comercializadora Andina SAS", sub.Supplier.Name)
	require.Len(t, sub.Lines, 1)
	assert.Equal(t, "SKU-001", sub.Lines[0].Code)
	requireDec(t, "119", sub.Total)
}

func TestSend_NotDraftIsPrecondition(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.sentInvoice(t)

	_, err := f.lifecycle.Send(context.Background(), companyID, id, billing.SendOptions{Force: true})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Len(t, f.gw.submitted(), 1)
}

func TestSend_UnknownInvoice(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	_, err := f.lifecycle.Send(context.Background(), companyID, "missing", billing.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSend_OtherTenantCannotSeeInvoice(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)
	_, err := f.lifecycle.Send(context.Background(), "company-2", id, billing.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSend_MissingConfigurationDoesNotConsumeNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.draftInvoice(t)

	_, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	// Rango configurado pero ambiente de habilitación sin software ni certificado.
	f.configure(t, 5000)
	_, err = f.settings.Patch(ctx, companyID, dto.DianConfigPatchRequest{Environment: dto.Some(entity.DianEnvTest)})
	require.NoError(t, err)
	_, err = f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	require.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "certificado")

	inv := f.invoice(t, id)
	assert.False(t, inv.HasNumber())
	assert.Equal(t, entity.StatusDraft, inv.Status)
	assert.Equal(t, int64(1), f.nextNumber(t, entity.DocumentTypeInvoice))
	assert.Empty(t, f.gw.submitted())
}

func TestSend_TransportFailureRetainsNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)

	f.gw.setSubmit(func(context.Context, *dian.Submission) (*dian.Response, error) { return nil, errNetwork })
	res, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeRetryable, res.Outcome)
	assert.Equal(t, string(entity.StatusDraft), res.Status)
	assert.Equal(t, "SETP0000001", res.Number)

	inv := f.invoice(t, id)
	assert.Equal(t, errNetwork.Error(), inv.LastSendError)
	assert.Empty(t, f.poller.ids())

	// Sin force el reintento se rechaza.
	_, err = f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	f.gw.setSubmit(nil)
	res, err = f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSent, res.Outcome)
	assert.Equal(t, "SETP0000001", res.Number)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, int64(2), f.nextNumber(t, entity.DocumentTypeInvoice))
	assert.Zero(t, f.obs.discardedCount(entity.DocumentTypeInvoice))
	assert.Empty(t, f.invoice(t, id).LastSendError)
}

func TestSend_TransportFailureConsumesNumber(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withPolicy(billing.PolicyConsume))
	f.configure(t, 5000)
	id := f.draftInvoice(t)

	f.gw.setSubmit(func(context.Context, *dian.Submission) (*dian.Response, error) { return nil, errNetwork })
	_, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	require.NoError(t, err)

	f.gw.setSubmit(nil)
	res, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, "SETP0000002", res.Number)
	assert.Equal(t, 1, f.obs.discardedCount(entity.DocumentTypeInvoice))
	assert.Equal(t, int64(3), f.nextNumber(t, entity.DocumentTypeInvoice))
}

func TestSend_ServiceErrorIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)
	f.gw.setSubmit(func(context.Context, *dian.Submission) (*dian.Response, error) {
		return &dian.Response{Outcome: dian.OutcomeError, Reason: "servicio no disponible"}, nil
	})

	res, err := f.lifecycle.Send(context.Background(), companyID, id, billing.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeRetryable, res.Outcome)
	assert.Equal(t, "servicio no disponible", res.Reason)
	assert.Equal(t, "servicio no disponible", f.invoice(t, id).LastSendError)
}

func TestSend_RejectionIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)
	f.gw.setSubmit(func(_ context.Context, sub *dian.Submission) (*dian.Response, error) {
		return &dian.Response{TrackingID: "trk-1", Outcome: dian.OutcomeRejected, Reason: "FAD06: NIT del emisor no coincide"}, nil
	})

	res, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeRejected, res.Outcome)
	assert.Equal(t, string(entity.StatusRejected), res.Status)

	inv := f.invoice(t, id)
	assert.Equal(t, "FAD06: NIT del emisor no coincide", inv.DIANErrors)
	assert.Empty(t, f.poller.ids())

	_, err = f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{Force: true})
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Len(t, f.gw.submitted(), 1)
}

func TestSend_ExhaustedRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 1)
	f.sentInvoice(t)
	id := f.draftInvoice(t)

	_, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrSequenceExhausted)
	inv := f.invoice(t, id)
	assert.False(t, inv.HasNumber())
	assert.Equal(t, entity.StatusDraft, inv.Status)
}

func TestSend_ConcurrentInvoicesGetContiguousNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)

	const n = 12
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.draftInvoice(t)
	}
	numbers := make([]string, n)
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			res, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
			if err != nil {
				return err
			}
			numbers[i] = res.Number
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Strings(numbers)
	for i, got := range numbers {
		assert.Equal(t, fmt.Sprintf("SETP%07d", i+1), got)
	}
	assert.Equal(t, int64(n+1), f.nextNumber(t, entity.DocumentTypeInvoice))
}

func TestSend_InFlightBlocksSecondSend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gw.setSubmit(func(_ context.Context, sub *dian.Submission) (*dian.Response, error) {
		close(entered)
		<-release
		return accepted(sub), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
		done <- err
	}()
	<-entered

	_, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, entity.StatusSent, f.invoice(t, id).Status)
}

func TestSend_CallerCancellationKeepsOutcome(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)

	ctx, cancel := context.WithCancel(context.Background())
	f.gw.setSubmit(func(gctx context.Context, sub *dian.Submission) (*dian.Response, error) {
		cancel()
		if err := gctx.Err(); err != nil {
			return nil, err
		}
		return accepted(sub), nil
	})

	res, err := f.lifecycle.Send(ctx, companyID, id, billing.SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeSent, res.Outcome)
	assert.Equal(t, entity.StatusSent, f.invoice(t, id).Status)
}

func TestCheckStatus_AcceptedRunsAccountingHookOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.sentInvoice(t)

	res, err := f.lifecycle.CheckStatus(ctx, companyID, id)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeAccepted, res.Outcome)
	assert.Equal(t, string(entity.StatusAccepted), res.Status)
	assert.Equal(t, "key-SETP0000001", res.DocumentKey)
	assert.Equal(t, []string{id}, f.hook.invoices)

	// Terminal: no vuelve a consultar a la DIAN.
	res, err = f.lifecycle.CheckStatus(ctx, companyID, id)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeAccepted, res.Outcome)
	assert.Equal(t, 1, f.gw.statusCount())
	assert.Len(t, f.hook.invoices, 1)
}

func TestCheckStatus_HookFailureDoesNotChangeStatus(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	f.hook.err = errors.New("cuenta 130505 inexistente")
	id := f.sentInvoice(t)

	res, err := f.lifecycle.CheckStatus(context.Background(), companyID, id)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeAccepted, res.Outcome)
	assert.Equal(t, entity.StatusAccepted, f.invoice(t, id).Status)
}

func TestCheckStatus_Rejected(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.sentInvoice(t)
	f.gw.setStatus(func(trackID string) (*dian.Response, error) {
		return &dian.Response{TrackingID: trackID, Outcome: dian.OutcomeRejected, Reason: "FAJ43b: nombre del adquiriente"}, nil
	})

	res, err := f.lifecycle.CheckStatus(context.Background(), companyID, id)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeRejected, res.Outcome)
	assert.Equal(t, "FAJ43b: nombre del adquiriente", res.Reason)
	assert.Empty(t, f.hook.invoices)
}

func TestCheckStatus_PendingAndTransportKeepSent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.sentInvoice(t)

	f.gw.setStatus(func(trackID string) (*dian.Response, error) {
		return &dian.Response{TrackingID: trackID, Outcome: dian.OutcomePending}, nil
	})
	res, err := f.lifecycle.CheckStatus(ctx, companyID, id)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomePending, res.Outcome)
	assert.Equal(t, string(entity.StatusSent), res.Status)

	f.gw.setStatus(func(string) (*dian.Response, error) { return nil, errNetwork })
	res, err = f.lifecycle.CheckStatus(ctx, companyID, id)
	require.NoError(t, err)
	assert.Equal(t, billing.OutcomeRetryable, res.Outcome)
	assert.Equal(t, entity.StatusSent, f.invoice(t, id).Status)
}

func TestCheckStatus_DraftIsPrecondition(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5000)
	id := f.draftInvoice(t)
	_, err := f.lifecycle.CheckStatus(context.Background(), companyID, id)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Zero(t, f.gw.statusCount())
}
