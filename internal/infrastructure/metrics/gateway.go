package metrics

import (
	"context"
	"time"

	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

const outcomeTransport = "TRANSPORT_ERROR"

// InstrumentedGateway decora un dian.Gateway contando resultados y midiendo la duración.
type InstrumentedGateway struct {
	next    dian.Gateway
	metrics *Metrics
}

// WrapGateway devuelve next instrumentado. Con m nil devuelve next sin cambios.
func WrapGateway(next dian.Gateway, m *Metrics) dian.Gateway {
	if m == nil {
		return next
	}
	return &InstrumentedGateway{next: next, metrics: m}
}

func (g *InstrumentedGateway) Submit(ctx context.Context, sub *dian.Submission) (*dian.Response, error) {
	start := time.Now()
	resp, err := g.next.Submit(ctx, sub)
	g.observe("submit", start, resp, err)
	return resp, err
}

func (g *InstrumentedGateway) CheckStatus(ctx context.Context, cfg *entity.DianConfig, trackingID string) (*dian.Response, error) {
	start := time.Now()
	resp, err := g.next.CheckStatus(ctx, cfg, trackingID)
	g.observe("check_status", start, resp, err)
	return resp, err
}

func (g *InstrumentedGateway) observe(op string, start time.Time, resp *dian.Response, err error) {
	outcome := outcomeTransport
	if err == nil && resp != nil {
		outcome = string(resp.Outcome)
	}
	g.metrics.gatewayOps.WithLabelValues(op, outcome).Inc()
	g.metrics.gatewayDur.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

var _ dian.Gateway = (*InstrumentedGateway)(nil)
