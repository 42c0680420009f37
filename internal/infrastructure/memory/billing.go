package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var (
	_ repository.InvoiceRepository           = (*InvoiceRepo)(nil)
	_ repository.NoteRepository              = (*NoteRepo)(nil)
	_ repository.BillingResolutionRepository = (*ResolutionRepo)(nil)
	_ repository.DianConfigRepository        = (*DianConfigRepo)(nil)
)

func cloneInvoice(in *entity.Invoice) *entity.Invoice {
	cp := *in
	cp.Details = nil
	return &cp
}

func cloneNote(in *entity.Note) *entity.Note {
	cp := *in
	cp.Lines = make([]*entity.NoteLine, len(in.Lines))
	for i, l := range in.Lines {
		lc := *l
		cp.Lines[i] = &lc
	}
	return &cp
}

// InvoiceRepo facturas en memoria.
type InvoiceRepo struct{ s *Store }

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if _, ok := r.s.data.invoices[inv.ID]; ok {
		return fmt.Errorf("%w: la factura ya existe", domain.ErrDuplicate)
	}
	r.s.data.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *InvoiceRepo) CreateDetail(_ context.Context, d *entity.InvoiceDetail) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	cp := *d
	list := append([]*entity.InvoiceDetail(nil), r.s.data.details[d.InvoiceID]...)
	r.s.data.details[d.InvoiceID] = append(list, &cp)
	return nil
}

func (r *InvoiceRepo) GetByID(_ context.Context, companyID, id string) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.data.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return nil, nil
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, companyID, id)
}

func (r *InvoiceRepo) GetDetails(_ context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.InvoiceDetail, 0, len(r.s.data.details[invoiceID]))
	for _, d := range r.s.data.details[invoiceID] {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

// Update copia solo numeración, estado y campos DIAN, igual que el adaptador SQL.
func (r *InvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.invoices[inv.ID]
	if !ok || cur.CompanyID != inv.CompanyID {
		return domain.ErrNotFound
	}
	if inv.HasNumber() {
		for id, other := range r.s.data.invoices {
			if id != inv.ID && other.CompanyID == inv.CompanyID && other.Prefix == inv.Prefix &&
				other.SequenceNumber == inv.SequenceNumber {
				return fmt.Errorf("%w: consecutivo %s ya usado", domain.ErrDuplicate, inv.FullNumber())
			}
		}
	}
	next := cloneInvoice(cur)
	next.DianTracking = inv.DianTracking
	next.CUFE = inv.CUFE
	next.VoidReason = inv.VoidReason
	next.UpdatedAt = inv.UpdatedAt
	r.s.data.invoices[inv.ID] = next
	return nil
}

func (r *InvoiceRepo) List(_ context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	r.s.mu.Lock()
	var out []*entity.Invoice
	for _, inv := range r.s.data.invoices {
		if inv.CompanyID != f.CompanyID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

// NoteRepo notas en memoria.
type NoteRepo struct{ s *Store }

func (r *NoteRepo) Create(_ context.Context, n *entity.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if _, ok := r.s.data.notes[n.ID]; ok {
		return fmt.Errorf("%w: la nota ya existe", domain.ErrDuplicate)
	}
	if n.HasNumber() && r.numberTaken(n) {
		return fmt.Errorf("%w: consecutivo %s ya usado", domain.ErrDuplicate, n.FullNumber())
	}
	for _, l := range n.Lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.NoteID = n.ID
	}
	r.s.data.notes[n.ID] = cloneNote(n)
	return nil
}

func (r *NoteRepo) numberTaken(n *entity.Note) bool {
	for id, other := range r.s.data.notes {
		if id != n.ID && other.CompanyID == n.CompanyID && other.Kind == n.Kind &&
			other.Prefix == n.Prefix && other.SequenceNumber == n.SequenceNumber {
			return true
		}
	}
	return false
}

func (r *NoteRepo) GetByID(_ context.Context, companyID, id string) (*entity.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.data.notes[id]
	if !ok || n.CompanyID != companyID {
		return nil, nil
	}
	return cloneNote(n), nil
}

func (r *NoteRepo) GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.Note, error) {
	return r.GetByID(ctx, companyID, id)
}

func (r *NoteRepo) Update(_ context.Context, n *entity.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.notes[n.ID]
	if !ok || cur.CompanyID != n.CompanyID {
		return domain.ErrNotFound
	}
	if n.HasNumber() && r.numberTaken(n) {
		return fmt.Errorf("%w: consecutivo %s ya usado", domain.ErrDuplicate, n.FullNumber())
	}
	next := cloneNote(cur)
	next.DianTracking = n.DianTracking
	next.CUDE = n.CUDE
	next.UpdatedAt = n.UpdatedAt
	r.s.data.notes[n.ID] = next
	return nil
}

func (r *NoteRepo) ListByInvoice(_ context.Context, companyID, invoiceID string) ([]*entity.Note, error) {
	r.s.mu.Lock()
	var out []*entity.Note
	for _, n := range r.s.data.notes {
		if n.CompanyID == companyID && n.InvoiceID == invoiceID {
			cp := cloneNote(n)
			cp.Lines = nil
			out = append(out, cp)
		}
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ResolutionRepo rangos de numeración en memoria.
type ResolutionRepo struct{ s *Store }

func (r *ResolutionRepo) GetActive(_ context.Context, companyID string, t entity.DocumentType) (*entity.BillingResolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range r.s.data.resolutions {
		if res.CompanyID == companyID && res.DocumentType == t && res.IsActive {
			cp := *res
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *ResolutionRepo) ListByCompany(_ context.Context, companyID string) ([]*entity.BillingResolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.BillingResolution
	for _, res := range r.s.data.resolutions {
		if res.CompanyID == companyID {
			cp := *res
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentType < out[j].DocumentType })
	return out, nil
}

// NextNumber toma el siguiente consecutivo bajo el mutex del Store.
func (r *ResolutionRepo) NextNumber(_ context.Context, resolutionID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.data.resolutions[resolutionID]
	if !ok || !res.IsActive || (res.RangeTo != 0 && res.NextNumber > res.RangeTo) {
		return 0, fmt.Errorf("%w: resolución %s", domain.ErrSequenceExhausted, resolutionID)
	}
	next := *res
	n := next.NextNumber
	next.NextNumber++
	r.s.data.resolutions[resolutionID] = &next
	return n, nil
}

func (r *ResolutionRepo) Upsert(_ context.Context, res *entity.BillingResolution) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next := *res
	next.IsActive = true
	next.NextNumber = res.RangeFrom
	for id, cur := range r.s.data.resolutions {
		if cur.CompanyID == res.CompanyID && cur.DocumentType == res.DocumentType && cur.IsActive {
			next.ID = id
			next.CreatedAt = cur.CreatedAt
			if cur.Prefix == res.Prefix && cur.NextNumber > res.RangeFrom {
				next.NextNumber = cur.NextNumber
			}
		}
	}
	if next.ID == "" {
		next.ID = uuid.New().String()
	}
	r.s.data.resolutions[next.ID] = &next
	res.ID, res.NextNumber, res.IsActive = next.ID, next.NextNumber, true
	return nil
}

// DianConfigRepo configuración DIAN en memoria.
type DianConfigRepo struct{ s *Store }

func (r *DianConfigRepo) Get(_ context.Context, companyID string) (*entity.DianConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cfg, ok := r.s.data.configs[companyID]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	cp.Resolutions = nil
	return &cp, nil
}

func (r *DianConfigRepo) Save(_ context.Context, cfg *entity.DianConfig) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *cfg
	cp.Resolutions = nil
	r.s.data.configs[cfg.CompanyID] = &cp
	return nil
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset >= len(list) {
		return []T{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}
