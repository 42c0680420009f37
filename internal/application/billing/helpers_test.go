package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/dto"
	"github.com/jhoicas/stockflow-api/internal/domain/dian"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/memory"
)

const companyID = "company-1"

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "esperado %s, recibido %s", want, got.String())
}

// fakeGateway responde ACCEPTED a todo salvo que se configure otra cosa.
type fakeGateway struct {
	mu          sync.Mutex
	submits     []*dian.Submission
	statusCalls int
	submit      func(ctx context.Context, sub *dian.Submission) (*dian.Response, error)
	status      func(trackID string) (*dian.Response, error)
}

func (g *fakeGateway) Submit(ctx context.Context, sub *dian.Submission) (*dian.Response, error) {
	g.mu.Lock()
	g.submits = append(g.submits, sub)
	fn := g.submit
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, sub)
	}
	return accepted(sub), nil
}

func (g *fakeGateway) CheckStatus(_ context.Context, _ *entity.DianConfig, trackID string) (*dian.Response, error) {
	g.mu.Lock()
	g.statusCalls++
	fn := g.status
	g.mu.Unlock()
	if fn != nil {
		return fn(trackID)
	}
	return &dian.Response{TrackingID: trackID, Outcome: dian.OutcomeAccepted}, nil
}

func (g *fakeGateway) setSubmit(fn func(ctx context.Context, sub *dian.Submission) (*dian.Response, error)) {
	g.mu.Lock()
	g.submit = fn
	g.mu.Unlock()
}

func (g *fakeGateway) setStatus(fn func(trackID string) (*dian.Response, error)) {
	g.mu.Lock()
	g.status = fn
	g.mu.Unlock()
}

func (g *fakeGateway) submitted() []*dian.Submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*dian.Submission(nil), g.submits...)
}

func (g *fakeGateway) statusCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statusCalls
}

func accepted(sub *dian.Submission) *dian.Response {
	return &dian.Response{
		TrackingID:  "trk-" + sub.FullNumber(),
		Outcome:     dian.OutcomeAccepted,
		DocumentKey: "key-" + sub.FullNumber(),
		QRData:      "qr-" + sub.FullNumber(),
	}
}

type recordingPoller struct {
	mu        sync.Mutex
	scheduled []string
}

func (p *recordingPoller) ScheduleStatusCheck(_ context.Context, _, documentID string, _ entity.DocumentType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduled = append(p.scheduled, documentID)
	return nil
}

func (p *recordingPoller) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.scheduled...)
}

type recordingHook struct {
	mu       sync.Mutex
	invoices []string
	notes    []string
	err      error
}

func (h *recordingHook) InvoiceAccepted(_ context.Context, inv *entity.Invoice) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invoices = append(h.invoices, inv.ID)
	return h.err
}

func (h *recordingHook) NoteAccepted(_ context.Context, n *entity.Note) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notes = append(h.notes, n.ID)
	return h.err
}

type countingObserver struct {
	mu          sync.Mutex
	allocated   map[entity.DocumentType]int
	discarded   map[entity.DocumentType]int
	transitions []entity.DocumentStatus
}

func newCountingObserver() *countingObserver {
	return &countingObserver{allocated: map[entity.DocumentType]int{}, discarded: map[entity.DocumentType]int{}}
}

func (o *countingObserver) NumberAllocated(t entity.DocumentType) {
	o.mu.Lock()
	o.allocated[t]++
	o.mu.Unlock()
}

func (o *countingObserver) NumberDiscarded(t entity.DocumentType) {
	o.mu.Lock()
	o.discarded[t]++
	o.mu.Unlock()
}

func (o *countingObserver) Transition(_ entity.DocumentType, to entity.DocumentStatus) {
	o.mu.Lock()
	o.transitions = append(o.transitions, to)
	o.mu.Unlock()
}

func (o *countingObserver) discardedCount(t entity.DocumentType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.discarded[t]
}

type fixture struct {
	store     *memory.Store
	gw        *fakeGateway
	poller    *recordingPoller
	hook      *recordingHook
	obs       *countingObserver
	invoices  *billing.InvoiceUseCase
	lifecycle *billing.Lifecycle
	notes     *billing.NoteIssuer
	settings  *billing.DianConfigUseCase
}

func newFixture(t *testing.T, opts ...func(*billing.Dependencies)) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddCompany(&entity.Company{ID: companyID, Name: "Comercializadora Andina SAS", NIT: "900123456-8", Status: "active"},
		entity.ModuleBilling, entity.ModuleAccounting)
	store.AddCustomer(&entity.Customer{ID: "cust-1", CompanyID: companyID, Name: "Distribuciones del Valle", TaxID: "800987654-4", IdentificationType: "31"})
	store.AddProduct(&entity.Product{ID: "prod-1", CompanyID: companyID, SKU: "SKU-001", Name: "Café molido 500g", Price: dec("50"), TaxRate: dec("19"), UnitMeasure: "94"})
	store.AddProduct(&entity.Product{ID: "prod-2", CompanyID: companyID, SKU: "SKU-002", Name: "Arroz 1kg", Price: dec("4000"), TaxRate: dec("0.05")})

	f := &fixture{
		store:  store,
		gw:     &fakeGateway{},
		poller: &recordingPoller{},
		hook:   &recordingHook{},
		obs:    newCountingObserver(),
	}
	deps := billing.Dependencies{
		TxRunner:  memory.NewTxRunner(store),
		Repos:     store.Repos(),
		Companies: store.Companies(),
		Customers: store.Customers(),
		Products:  store.Products(),
		Gateway:   f.gw,
		Poller:    f.poller,
		Hook:      f.hook,
		Observer:  f.obs,
		Logger:    zerolog.Nop(),
		Options:   billing.Options{Policy: billing.PolicyRetain, GatewayTimeout: time.Second},
		Now:       func() time.Time { return fixedNow },
	}
	for _, o := range opts {
		o(&deps)
	}
	f.invoices = billing.NewInvoiceUseCase(deps)
	f.lifecycle = billing.NewLifecycle(deps)
	f.notes = billing.NewNoteIssuer(deps)
	f.settings = billing.NewDianConfigUseCase(deps)
	return f
}

func withPolicy(p billing.FailedSendPolicy) func(*billing.Dependencies) {
	return func(d *billing.Dependencies) { d.Options.Policy = p }
}

// configure deja la empresa lista para enviar: ambiente dev y rangos para las tres familias.
func (f *fixture) configure(t *testing.T, invoiceRangeTo int64) {
	t.Helper()
	_, err := f.settings.Put(context.Background(), companyID, dto.DianConfigRequest{
		Environment:  entity.DianEnvDev,
		TechnicalKey: "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c",
		Resolutions: []dto.ResolutionRequest{
			{DocumentType: "INVOICE", ResolutionNumber: "18760000001", Prefix: "SETP", RangeFrom: 1, RangeTo: invoiceRangeTo, DateFrom: "2024-01-01", DateTo: "2025-12-31"},
			{DocumentType: "CREDIT_NOTE", Prefix: "NC", RangeFrom: 1, DateFrom: "2024-01-01", DateTo: "2025-12-31"},
			{DocumentType: "DEBIT_NOTE", Prefix: "ND", RangeFrom: 1, DateFrom: "2024-01-01", DateTo: "2025-12-31"},
		},
	})
	require.NoError(t, err)
}

// draftInvoice crea una factura de 2 x 50 con IVA 19 %: subtotal 100, IVA 19, total 119.
func (f *fixture) draftInvoice(t *testing.T) string {
	t.Helper()
	inv, err := f.invoices.CreateInvoice(context.Background(), companyID, dto.CreateInvoiceRequest{
		CustomerID: "cust-1",
		Items:      []dto.InvoiceItemRequest{{ProductID: "prod-1", Quantity: dec("2")}},
	})
	require.NoError(t, err)
	return inv.ID
}

// sentInvoice crea y envía una factura.
func (f *fixture) sentInvoice(t *testing.T) string {
	t.Helper()
	id := f.draftInvoice(t)
	res, err := f.lifecycle.Send(context.Background(), companyID, id, billing.SendOptions{})
	require.NoError(t, err)
	require.Equal(t, billing.OutcomeSent, res.Outcome)
	return id
}

func (f *fixture) nextNumber(t *testing.T, docType entity.DocumentType) int64 {
	t.Helper()
	res, err := f.store.Repos().Resolutions.GetActive(context.Background(), companyID, docType)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res.NextNumber
}

func (f *fixture) invoice(t *testing.T, id string) *entity.Invoice {
	t.Helper()
	inv, err := f.store.Repos().Invoices.GetByID(context.Background(), companyID, id)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}
