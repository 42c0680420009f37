package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var _ repository.NoteRepository = (*NoteRepo)(nil)

// NoteRepo persistencia de notas crédito/débito (usable con pool o tx).
type NoteRepo struct {
	q Querier
}

// NewNoteRepository construye el adaptador.
func NewNoteRepository(q Querier) *NoteRepo {
	return &NoteRepo{q: q}
}

var noteColumns = []string{
	"id", "company_id", "invoice_id", "kind", "COALESCE(scope, '') AS scope", "reason_code",
	"COALESCE(reason, '') AS reason", "COALESCE(description, '') AS description",
	"prefix", "number", "COALESCE(sequence_number, 0) AS sequence_number", "date",
	"subtotal", "tax_total", "total", "status",
	"COALESCE(cude, '') AS cude", "COALESCE(xml_signed, '') AS xml_signed", "COALESCE(qr_data, '') AS qr_data",
	"COALESCE(track_id, '') AS track_id", "COALESCE(dian_errors, '') AS dian_errors",
	"COALESCE(last_send_error, '') AS last_send_error", "send_attempts",
	"created_at", "updated_at",
}

type noteRow struct {
	ID             string          `db:"id"`
	CompanyID      string          `db:"company_id"`
	InvoiceID      string          `db:"invoice_id"`
	Kind           string          `db:"kind"`
	Scope          string          `db:"scope"`
	ReasonCode     int             `db:"reason_code"`
	Reason         string          `db:"reason"`
	Description    string          `db:"description"`
	Prefix         string          `db:"prefix"`
	Number         string          `db:"number"`
	SequenceNumber int64           `db:"sequence_number"`
	Date           time.Time       `db:"date"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	TaxTotal       decimal.Decimal `db:"tax_total"`
	Total          decimal.Decimal `db:"total"`
	Status         string          `db:"status"`
	CUDE           string          `db:"cude"`
	XMLSigned      string          `db:"xml_signed"`
	QRData         string          `db:"qr_data"`
	TrackID        string          `db:"track_id"`
	DIANErrors     string          `db:"dian_errors"`
	LastSendError  string          `db:"last_send_error"`
	SendAttempts   int             `db:"send_attempts"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *noteRow) toEntity() *entity.Note {
	return &entity.Note{
		ID: r.ID, CompanyID: r.CompanyID, InvoiceID: r.InvoiceID,
		Kind: entity.NoteKind(r.Kind), Scope: entity.NoteScope(r.Scope),
		ReasonCode: r.ReasonCode, Reason: r.Reason, Description: r.Description, Date: r.Date,
		DianTracking: entity.DianTracking{
			Prefix: r.Prefix, Number: r.Number, SequenceNumber: r.SequenceNumber,
			Status: entity.DocumentStatus(r.Status), XMLSigned: r.XMLSigned, QRData: r.QRData,
			TrackID: r.TrackID, DIANErrors: r.DIANErrors, LastSendError: r.LastSendError,
			SendAttempts: r.SendAttempts,
		},
		Subtotal: r.Subtotal, TaxTotal: r.TaxTotal, Total: r.Total, CUDE: r.CUDE,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// Create inserta la nota y sus líneas.
func (r *NoteRepo) Create(ctx context.Context, note *entity.Note) error {
	if note.ID == "" {
		note.ID = uuid.New().String()
	}
	query := `
		INSERT INTO notes (id, company_id, invoice_id, kind, scope, reason_code, reason, description,
		                   prefix, number, sequence_number, date, subtotal, tax_total, total, status,
		                   send_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	var seq *int64
	if note.SequenceNumber > 0 {
		seq = &note.SequenceNumber
	}
	_, err := r.q.Exec(ctx, query,
		note.ID, note.CompanyID, note.InvoiceID, string(note.Kind), nullIfEmpty(string(note.Scope)),
		note.ReasonCode, nullIfEmpty(note.Reason), nullIfEmpty(note.Description),
		note.Prefix, note.Number, seq, note.Date, note.Subtotal, note.TaxTotal, note.Total,
		string(note.Status), note.SendAttempts, note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: consecutivo %s ya usado", domain.ErrDuplicate, note.FullNumber())
		}
		return fmt.Errorf("insert note: %w", err)
	}
	for i, l := range note.Lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.NoteID = note.ID
		const lq = `
			INSERT INTO note_lines (id, note_id, line_no, invoice_detail_id, product_id, description,
			                        quantity, unit_price, tax_rate, subtotal, tax_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		if _, err := r.q.Exec(ctx, lq,
			l.ID, l.NoteID, i+1, nullIfEmpty(l.InvoiceDetailID), nullIfEmpty(l.ProductID), l.Description,
			l.Quantity, l.UnitPrice, l.TaxRate, l.Subtotal, l.TaxAmount,
		); err != nil {
			return fmt.Errorf("insert note line: %w", err)
		}
	}
	return nil
}

// Update persiste numeración, estado y campos DIAN.
func (r *NoteRepo) Update(ctx context.Context, note *entity.Note) error {
	query := `
		UPDATE notes
		SET prefix          = $3,
		    number          = $4,
		    sequence_number = $5,
		    status          = $6,
		    cude            = $7,
		    xml_signed      = $8,
		    qr_data         = $9,
		    track_id        = $10,
		    dian_errors     = $11,
		    last_send_error = $12,
		    send_attempts   = $13,
		    updated_at      = $14
		WHERE id = $1 AND company_id = $2`
	var seq *int64
	if note.SequenceNumber > 0 {
		seq = &note.SequenceNumber
	}
	tag, err := r.q.Exec(ctx, query,
		note.ID, note.CompanyID, note.Prefix, note.Number, seq, string(note.Status),
		nullIfEmpty(note.CUDE), nullIfEmpty(note.XMLSigned), nullIfEmpty(note.QRData),
		nullIfEmpty(note.TrackID), nullIfEmpty(note.DIANErrors), nullIfEmpty(note.LastSendError),
		note.SendAttempts, note.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: consecutivo %s ya usado", domain.ErrDuplicate, note.FullNumber())
		}
		return fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID devuelve la nota con sus líneas; nil si no existe.
func (r *NoteRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Note, error) {
	return r.get(ctx, companyID, id, "")
}

// GetByIDForUpdate bloquea la fila de la nota.
func (r *NoteRepo) GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.Note, error) {
	return r.get(ctx, companyID, id, "FOR UPDATE")
}

func (r *NoteRepo) get(ctx context.Context, companyID, id, suffix string) (*entity.Note, error) {
	q := psql.Select(noteColumns...).From("notes").Where(squirrel.Eq{"id": id, "company_id": companyID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note query: %w", err)
	}
	var row noteRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	note := row.toEntity()
	if note.Lines, err = r.lines(ctx, note.ID); err != nil {
		return nil, err
	}
	return note, nil
}

func (r *NoteRepo) lines(ctx context.Context, noteID string) ([]*entity.NoteLine, error) {
	const query = `
		SELECT id, note_id, COALESCE(invoice_detail_id::text, '') AS invoice_detail_id,
		       COALESCE(product_id::text, '') AS product_id, description,
		       quantity, unit_price, tax_rate, subtotal, tax_amount
		FROM note_lines WHERE note_id = $1 ORDER BY line_no`
	var list []*entity.NoteLine
	if err := pgxscan.Select(ctx, r.q, &list, query, noteID); err != nil {
		return nil, fmt.Errorf("list note lines: %w", err)
	}
	return list, nil
}

// ListByInvoice lista las notas de una factura (sin líneas), en orden de emisión.
func (r *NoteRepo) ListByInvoice(ctx context.Context, companyID, invoiceID string) ([]*entity.Note, error) {
	sql, args, err := psql.Select(noteColumns...).From("notes").
		Where(squirrel.Eq{"company_id": companyID, "invoice_id": invoiceID}).
		OrderBy("created_at").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build note list: %w", err)
	}
	var rows []noteRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	out := make([]*entity.Note, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
