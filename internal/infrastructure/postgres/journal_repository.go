package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var _ repository.JournalRepository = (*JournalRepo)(nil)

// JournalRepo asientos contables sobre PostgreSQL.
type JournalRepo struct {
	q Querier
}

// NewJournalRepository construye el adaptador.
func NewJournalRepository(q Querier) *JournalRepo {
	return &JournalRepo{q: q}
}

var journalColumns = []string{
	"id", "company_id", "date", "description", "source_type", "COALESCE(source_id::text, '') AS source_id",
	"status", "posted_at", "voided_at", "COALESCE(void_reason, '') AS void_reason", "created_at", "updated_at",
}

type journalRow struct {
	ID          string     `db:"id"`
	CompanyID   string     `db:"company_id"`
	Date        time.Time  `db:"date"`
	Description string     `db:"description"`
	SourceType  string     `db:"source_type"`
	SourceID    string     `db:"source_id"`
	Status      string     `db:"status"`
	PostedAt    *time.Time `db:"posted_at"`
	VoidedAt    *time.Time `db:"voided_at"`
	VoidReason  string     `db:"void_reason"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (r *journalRow) toEntity() *entity.JournalEntry {
	return &entity.JournalEntry{
		ID: r.ID, CompanyID: r.CompanyID, Date: r.Date, Description: r.Description,
		SourceType: r.SourceType, SourceID: r.SourceID, Status: entity.JournalStatus(r.Status),
		PostedAt: r.PostedAt, VoidedAt: r.VoidedAt, VoidReason: r.VoidReason,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// Create inserta el asiento y sus líneas.
func (r *JournalRepo) Create(ctx context.Context, e *entity.JournalEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO journal_entries (id, company_id, date, description, source_type, source_id, status,
		                             posted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.q.Exec(ctx, q,
		e.ID, e.CompanyID, e.Date, e.Description, e.SourceType, nullIfEmpty(e.SourceID),
		string(e.Status), e.PostedAt, e.CreatedAt, e.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ya existe un asiento para %s %s", domain.ErrDuplicate, e.SourceType, e.SourceID)
		}
		return fmt.Errorf("insert journal_entry: %w", err)
	}
	for i, l := range e.Lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.EntryID = e.ID
		const lq = `
			INSERT INTO journal_lines (id, entry_id, line_no, account_code, description, debit, credit)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := r.q.Exec(ctx, lq, l.ID, l.EntryID, i+1, l.AccountCode, l.Description, l.Debit, l.Credit); err != nil {
			return fmt.Errorf("insert journal_line: %w", err)
		}
	}
	return nil
}

// GetByID devuelve el asiento con sus líneas; nil si no existe.
func (r *JournalRepo) GetByID(ctx context.Context, companyID, id string) (*entity.JournalEntry, error) {
	return r.get(ctx, companyID, id, "")
}

// GetByIDForUpdate bloquea la fila del asiento.
func (r *JournalRepo) GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.JournalEntry, error) {
	return r.get(ctx, companyID, id, "FOR UPDATE")
}

func (r *JournalRepo) get(ctx context.Context, companyID, id, suffix string) (*entity.JournalEntry, error) {
	q := psql.Select(journalColumns...).From("journal_entries").Where(squirrel.Eq{"id": id, "company_id": companyID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build journal query: %w", err)
	}
	var row journalRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get journal_entry: %w", err)
	}
	e := row.toEntity()
	const lq = `
		SELECT id, entry_id, account_code, description, debit, credit
		FROM journal_lines WHERE entry_id = $1 ORDER BY line_no`
	if err := pgxscan.Select(ctx, r.q, &e.Lines, lq, e.ID); err != nil {
		return nil, fmt.Errorf("list journal_lines: %w", err)
	}
	return e, nil
}

// UpdateStatus persiste la transición de estado; las líneas no se tocan.
func (r *JournalRepo) UpdateStatus(ctx context.Context, e *entity.JournalEntry) error {
	const q = `
		UPDATE journal_entries
		SET status = $3, posted_at = $4, voided_at = $5, void_reason = $6, updated_at = $7
		WHERE id = $1 AND company_id = $2`
	tag, err := r.q.Exec(ctx, q, e.ID, e.CompanyID, string(e.Status), e.PostedAt, e.VoidedAt,
		nullIfEmpty(e.VoidReason), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update journal_entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List lista asientos (sin líneas) con filtros opcionales.
func (r *JournalRepo) List(ctx context.Context, f repository.JournalFilter) ([]*entity.JournalEntry, error) {
	q := psql.Select(journalColumns...).From("journal_entries").Where(squirrel.Eq{"company_id": f.CompanyID})
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(f.Status)})
	}
	if f.SourceType != "" {
		q = q.Where(squirrel.Eq{"source_type": f.SourceType})
	}
	if f.SourceID != "" {
		q = q.Where(squirrel.Eq{"source_id": f.SourceID})
	}
	sql, args, err := q.OrderBy("date DESC", "created_at DESC").
		Limit(pageLimit(f.Limit)).Offset(pageOffset(f.Offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build journal list: %w", err)
	}
	var rows []journalRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list journal_entries: %w", err)
	}
	out := make([]*entity.JournalEntry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
