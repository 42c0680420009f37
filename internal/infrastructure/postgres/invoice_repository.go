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

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

var invoiceColumns = []string{
	"id", "company_id", "COALESCE(customer_id::text, '') AS customer_id", "prefix", "number",
	"COALESCE(sequence_number, 0) AS sequence_number", "date",
	"subtotal", "discount_total", "tax_total", "grand_total", "status",
	"COALESCE(cufe, '') AS cufe", "COALESCE(xml_signed, '') AS xml_signed", "COALESCE(qr_data, '') AS qr_data",
	"COALESCE(track_id, '') AS track_id", "COALESCE(dian_errors, '') AS dian_errors",
	"COALESCE(last_send_error, '') AS last_send_error", "send_attempts", "COALESCE(void_reason, '') AS void_reason",
	"created_at", "updated_at",
}

type invoiceRow struct {
	ID             string          `db:"id"`
	CompanyID      string          `db:"company_id"`
	CustomerID     string          `db:"customer_id"`
	Prefix         string          `db:"prefix"`
	Number         string          `db:"number"`
	SequenceNumber int64           `db:"sequence_number"`
	Date           time.Time       `db:"date"`
	Subtotal       decimal.Decimal `db:"subtotal"`
	DiscountTotal  decimal.Decimal `db:"discount_total"`
	TaxTotal       decimal.Decimal `db:"tax_total"`
	GrandTotal     decimal.Decimal `db:"grand_total"`
	Status         string          `db:"status"`
	CUFE           string          `db:"cufe"`
	XMLSigned      string          `db:"xml_signed"`
	QRData         string          `db:"qr_data"`
	TrackID        string          `db:"track_id"`
	DIANErrors     string          `db:"dian_errors"`
	LastSendError  string          `db:"last_send_error"`
	SendAttempts   int             `db:"send_attempts"`
	VoidReason     string          `db:"void_reason"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *invoiceRow) toEntity() *entity.Invoice {
	return &entity.Invoice{
		ID: r.ID, CompanyID: r.CompanyID, CustomerID: r.CustomerID, Date: r.Date,
		DianTracking: entity.DianTracking{
			Prefix: r.Prefix, Number: r.Number, SequenceNumber: r.SequenceNumber,
			Status: entity.DocumentStatus(r.Status), XMLSigned: r.XMLSigned, QRData: r.QRData,
			TrackID: r.TrackID, DIANErrors: r.DIANErrors, LastSendError: r.LastSendError,
			SendAttempts: r.SendAttempts,
		},
		Subtotal: r.Subtotal, DiscountTotal: r.DiscountTotal, TaxTotal: r.TaxTotal, GrandTotal: r.GrandTotal,
		CUFE: r.CUFE, VoidReason: r.VoidReason, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// Create persiste la cabecera de la factura (en borrador, sin consecutivo).
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoices (id, company_id, customer_id, prefix, number, date, subtotal, discount_total,
		                      tax_total, grand_total, status, send_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.CompanyID, nullIfEmpty(invoice.CustomerID), invoice.Prefix, invoice.Number,
		invoice.Date, invoice.Subtotal, invoice.DiscountTotal, invoice.TaxTotal, invoice.GrandTotal,
		string(invoice.Status), invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: la factura ya existe", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *InvoiceRepo) CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error {
	if detail.ID == "" {
		detail.ID = uuid.New().String()
	}
	query := `
		INSERT INTO invoice_details (id, invoice_id, product_id, description, quantity, unit_price,
		                             tax_rate, discount, subtotal, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		detail.ID, detail.InvoiceID, nullIfEmpty(detail.ProductID), detail.Description, detail.Quantity,
		detail.UnitPrice, detail.TaxRate, detail.Discount, detail.Subtotal, detail.TaxAmount,
	)
	if err != nil {
		return fmt.Errorf("insert invoice detail: %w", err)
	}
	return nil
}

// Update persiste numeración, estado y campos DIAN. Los montos quedan fijos desde la creación.
func (r *InvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices
		SET prefix          = $3,
		    number          = $4,
		    sequence_number = $5,
		    status          = $6,
		    cufe            = $7,
		    xml_signed      = $8,
		    qr_data         = $9,
		    track_id        = $10,
		    dian_errors     = $11,
		    last_send_error = $12,
		    send_attempts   = $13,
		    void_reason     = $14,
		    updated_at      = $15
		WHERE id = $1 AND company_id = $2`
	var seq *int64
	if invoice.SequenceNumber > 0 {
		seq = &invoice.SequenceNumber
	}
	tag, err := r.q.Exec(ctx, query,
		invoice.ID, invoice.CompanyID, invoice.Prefix, invoice.Number, seq, string(invoice.Status),
		nullIfEmpty(invoice.CUFE), nullIfEmpty(invoice.XMLSigned), nullIfEmpty(invoice.QRData),
		nullIfEmpty(invoice.TrackID), nullIfEmpty(invoice.DIANErrors), nullIfEmpty(invoice.LastSendError),
		invoice.SendAttempts, nullIfEmpty(invoice.VoidReason), invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: consecutivo %s ya usado", domain.ErrDuplicate, invoice.FullNumber())
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la cabecera de una factura de la empresa; nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.get(ctx, companyID, id, "")
}

// GetByIDForUpdate igual que GetByID pero con SELECT ... FOR UPDATE.
func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error) {
	return r.get(ctx, companyID, id, "FOR UPDATE")
}

func (r *InvoiceRepo) get(ctx context.Context, companyID, id, suffix string) (*entity.Invoice, error) {
	q := psql.Select(invoiceColumns...).From("invoices").
		Where(squirrel.Eq{"id": id, "company_id": companyID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build invoice query: %w", err)
	}
	var row invoiceRow
	if err := pgxscan.Get(ctx, r.q, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return row.toEntity(), nil
}

// GetDetails obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetDetails(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	query := `
		SELECT id, invoice_id, COALESCE(product_id::text, '') AS product_id, description, quantity,
		       unit_price, tax_rate, discount, subtotal, tax_amount
		FROM invoice_details WHERE invoice_id = $1 ORDER BY line_no`
	var list []*entity.InvoiceDetail
	if err := pgxscan.Select(ctx, r.q, &list, query, invoiceID); err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	return list, nil
}

// List devuelve facturas de la empresa filtradas por estado o cliente, más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	q := psql.Select(invoiceColumns...).From("invoices").Where(squirrel.Eq{"company_id": f.CompanyID})
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(f.Status)})
	}
	if f.CustomerID != "" {
		q = q.Where(squirrel.Eq{"customer_id": f.CustomerID})
	}
	sql, args, err := q.OrderBy("created_at DESC").Limit(pageLimit(f.Limit)).Offset(pageOffset(f.Offset)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build invoice list: %w", err)
	}
	var rows []invoiceRow
	if err := pgxscan.Select(ctx, r.q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]*entity.Invoice, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toEntity())
	}
	return out, nil
}
