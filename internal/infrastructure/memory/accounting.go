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

var _ repository.JournalRepository = (*JournalRepo)(nil)

func cloneEntry(in *entity.JournalEntry) *entity.JournalEntry {
	cp := *in
	cp.Lines = make([]*entity.JournalLine, len(in.Lines))
	for i, l := range in.Lines {
		lc := *l
		cp.Lines[i] = &lc
	}
	return &cp
}

// JournalRepo asientos en memoria.
type JournalRepo struct{ s *Store }

func (r *JournalRepo) Create(_ context.Context, e *entity.JournalEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.SourceID != "" {
		for _, other := range r.s.data.journals {
			if other.CompanyID == e.CompanyID && other.SourceType == e.SourceType &&
				other.SourceID == e.SourceID && other.Status != entity.JournalVoided {
				return fmt.Errorf("%w: ya existe un asiento para %s %s", domain.ErrDuplicate, e.SourceType, e.SourceID)
			}
		}
	}
	for _, l := range e.Lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.EntryID = e.ID
	}
	r.s.data.journals[e.ID] = cloneEntry(e)
	return nil
}

func (r *JournalRepo) GetByID(_ context.Context, companyID, id string) (*entity.JournalEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.journals[id]
	if !ok || e.CompanyID != companyID {
		return nil, nil
	}
	return cloneEntry(e), nil
}

func (r *JournalRepo) GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.JournalEntry, error) {
	return r.GetByID(ctx, companyID, id)
}

// UpdateStatus copia estado, fechas y motivo; las líneas guardadas se conservan.
func (r *JournalRepo) UpdateStatus(_ context.Context, e *entity.JournalEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.journals[e.ID]
	if !ok || cur.CompanyID != e.CompanyID {
		return domain.ErrNotFound
	}
	next := cloneEntry(cur)
	next.Status = e.Status
	next.PostedAt = e.PostedAt
	next.VoidedAt = e.VoidedAt
	next.VoidReason = e.VoidReason
	next.UpdatedAt = e.UpdatedAt
	r.s.data.journals[e.ID] = next
	return nil
}

func (r *JournalRepo) List(_ context.Context, f repository.JournalFilter) ([]*entity.JournalEntry, error) {
	r.s.mu.Lock()
	var out []*entity.JournalEntry
	for _, e := range r.s.data.journals {
		if e.CompanyID != f.CompanyID {
			continue
		}
		if (f.Status != "" && e.Status != f.Status) ||
			(f.SourceType != "" && e.SourceType != f.SourceType) ||
			(f.SourceID != "" && e.SourceID != f.SourceID) {
			continue
		}
		cp := cloneEntry(e)
		cp.Lines = nil
		out = append(out, cp)
	}
	r.s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}
