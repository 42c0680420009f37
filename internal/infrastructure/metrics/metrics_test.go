package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/metrics"
)

type stubGateway struct {
	resp *dian.Response
	err  error
}

func (s stubGateway) Submit(context.Context, *dian.Submission) (*dian.Response, error) {
	return s.resp, s.err
}

func (s stubGateway) CheckStatus(context.Context, *entity.DianConfig, string) (*dian.Response, error) {
	return s.resp, s.err
}

func TestObserverCountsByFamily(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.NumberAllocated(entity.DocumentTypeInvoice)
	m.NumberAllocated(entity.DocumentTypeInvoice)
	m.NumberAllocated(entity.DocumentTypeCreditNote)
	m.NumberDiscarded(entity.DocumentTypeInvoice)
	m.Transition(entity.DocumentTypeInvoice, entity.StatusAccepted)

	n, err := testutil.GatherAndCount(reg, "stockflow_billing_numbers_allocated_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n) // dos series: INVOICE y CREDIT_NOTE

	metricsText, err := reg.Gather()
	require.NoError(t, err)
	var allocatedInvoices float64
	for _, mf := range metricsText {
		if mf.GetName() != "stockflow_billing_numbers_allocated_total" {
			continue
		}
		for _, s := range mf.GetMetric() {
			if s.GetLabel()[0].GetValue() == string(entity.DocumentTypeInvoice) {
				allocatedInvoices = s.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), allocatedInvoices)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.NumberAllocated(entity.DocumentTypeInvoice)
		m.NumberDiscarded(entity.DocumentTypeInvoice)
		m.Transition(entity.DocumentTypeInvoice, entity.StatusSent)
		m.StatusCheck(entity.DocumentTypeInvoice, "PENDING")
	})
	gw := stubGateway{}
	assert.Equal(t, dian.Gateway(gw), metrics.WrapGateway(gw, nil))
}

func TestInstrumentedGateway(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	accepted := metrics.WrapGateway(stubGateway{resp: &dian.Response{Outcome: dian.OutcomeAccepted}}, m)
	_, err := accepted.Submit(ctx, &dian.Submission{})
	require.NoError(t, err)
	_, err = accepted.CheckStatus(ctx, &entity.DianConfig{}, "track-1")
	require.NoError(t, err)

	broken := metrics.WrapGateway(stubGateway{err: errors.New("connection reset")}, m)
	_, err = broken.Submit(ctx, &dian.Submission{})
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "stockflow_dian_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n) // submit/ACCEPTED, check_status/ACCEPTED, submit/TRANSPORT_ERROR

	n, err = testutil.GatherAndCount(reg, "stockflow_dian_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
