package postgres

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/jhoicas/stockflow-api/internal/domain"
	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var _ repository.BillingResolutionRepository = (*BillingResolutionRepo)(nil)

// BillingResolutionRepo implementa BillingResolutionRepository sobre PostgreSQL.
// La fila activa de cada (empresa, familia) es el contador de consecutivos.
type BillingResolutionRepo struct {
	q Querier
}

// NewBillingResolutionRepository construye el repositorio.
func NewBillingResolutionRepository(q Querier) *BillingResolutionRepo {
	return &BillingResolutionRepo{q: q}
}

const resolutionSelect = `
	SELECT id, company_id, document_type, COALESCE(resolution_number, '') AS resolution_number, prefix,
	       range_from, range_to, next_number, date_from, date_to, is_active, created_at, updated_at
	FROM billing_resolutions`

// GetActive devuelve la resolución activa de la familia; nil, nil si no hay.
func (r *BillingResolutionRepo) GetActive(ctx context.Context, companyID string, docType entity.DocumentType) (*entity.BillingResolution, error) {
	var res entity.BillingResolution
	err := pgxscan.Get(ctx, r.q, &res,
		resolutionSelect+` WHERE company_id = $1 AND document_type = $2 AND is_active = true`,
		companyID, string(docType))
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active billing_resolution: %w", err)
	}
	return &res, nil
}

// ListByCompany lista todas las resoluciones de una empresa (activas e inactivas).
func (r *BillingResolutionRepo) ListByCompany(ctx context.Context, companyID string) ([]*entity.BillingResolution, error) {
	var list []*entity.BillingResolution
	err := pgxscan.Select(ctx, r.q, &list,
		resolutionSelect+` WHERE company_id = $1 ORDER BY document_type, date_from DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list billing_resolutions: %w", err)
	}
	return list, nil
}

// NextNumber incrementa el contador con un UPDATE condicional y devuelve el número tomado.
// Dos transacciones concurrentes quedan serializadas por el bloqueo de fila del UPDATE;
// la segunda relee next_number ya incrementado. Cero filas significa rango agotado o inactivo.
func (r *BillingResolutionRepo) NextNumber(ctx context.Context, resolutionID string) (int64, error) {
	const q = `
		UPDATE billing_resolutions
		   SET next_number = next_number + 1,
		       updated_at  = now()
		 WHERE id = $1
		   AND is_active = true
		   AND (range_to = 0 OR next_number <= range_to)
		RETURNING next_number - 1`
	var n int64
	if err := r.q.QueryRow(ctx, q, resolutionID).Scan(&n); err != nil {
		if isNoRows(err) {
			return 0, fmt.Errorf("%w: resolución %s", domain.ErrSequenceExhausted, resolutionID)
		}
		return 0, fmt.Errorf("allocate number: %w", err)
	}
	return n, nil
}

// Upsert crea o reemplaza el rango activo de la familia.
// Si el prefijo se mantiene, el contador nunca retrocede.
func (r *BillingResolutionRepo) Upsert(ctx context.Context, res *entity.BillingResolution) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO billing_resolutions
			(id, company_id, document_type, resolution_number, prefix, range_from, range_to, next_number,
			 date_from, date_to, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6, $8, $9, true, now(), now())
		ON CONFLICT (company_id, document_type) WHERE is_active
		DO UPDATE SET
			resolution_number = EXCLUDED.resolution_number,
			prefix            = EXCLUDED.prefix,
			range_from        = EXCLUDED.range_from,
			range_to          = EXCLUDED.range_to,
			date_from         = EXCLUDED.date_from,
			date_to           = EXCLUDED.date_to,
			next_number       = CASE WHEN billing_resolutions.prefix = EXCLUDED.prefix
			                         THEN GREATEST(billing_resolutions.next_number, EXCLUDED.range_from)
			                         ELSE EXCLUDED.range_from END,
			updated_at        = now()
		RETURNING id, next_number, created_at, updated_at`
	err := r.q.QueryRow(ctx, q,
		res.ID, res.CompanyID, string(res.DocumentType), nullIfEmpty(res.ResolutionNumber), res.Prefix,
		res.RangeFrom, res.RangeTo, res.DateFrom, res.DateTo,
	).Scan(&res.ID, &res.NextNumber, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert billing_resolution: %w", err)
	}
	res.IsActive = true
	return nil
}
