package postgres

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

var _ repository.DianConfigRepository = (*DianConfigRepo)(nil)

// DianConfigRepo configuración DIAN por empresa.
type DianConfigRepo struct {
	q Querier
}

// NewDianConfigRepository construye el adaptador.
func NewDianConfigRepository(q Querier) *DianConfigRepo {
	return &DianConfigRepo{q: q}
}

// Get devuelve la configuración de la empresa o nil si nunca se configuró.
func (r *DianConfigRepo) Get(ctx context.Context, companyID string) (*entity.DianConfig, error) {
	const q = `
		SELECT company_id, environment, COALESCE(software_id, '') AS software_id,
		       COALESCE(software_pin, '') AS software_pin, COALESCE(technical_key, '') AS technical_key,
		       COALESCE(test_set_id, '') AS test_set_id, COALESCE(certificate_path, '') AS certificate_path,
		       COALESCE(certificate_key_path, '') AS certificate_key_path,
		       COALESCE(certificate_password, '') AS certificate_password, created_at, updated_at
		FROM dian_configs WHERE company_id = $1`
	var cfg entity.DianConfig
	if err := pgxscan.Get(ctx, r.q, &cfg, q, companyID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dian_config: %w", err)
	}
	return &cfg, nil
}

// Save inserta o reemplaza la configuración.
func (r *DianConfigRepo) Save(ctx context.Context, cfg *entity.DianConfig) error {
	const q = `
		INSERT INTO dian_configs (company_id, environment, software_id, software_pin, technical_key, test_set_id,
		                          certificate_path, certificate_key_path, certificate_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (company_id) DO UPDATE SET
			environment          = EXCLUDED.environment,
			software_id          = EXCLUDED.software_id,
			software_pin         = EXCLUDED.software_pin,
			technical_key        = EXCLUDED.technical_key,
			test_set_id          = EXCLUDED.test_set_id,
			certificate_path     = EXCLUDED.certificate_path,
			certificate_key_path = EXCLUDED.certificate_key_path,
			certificate_password = EXCLUDED.certificate_password,
			updated_at           = now()
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, q,
		cfg.CompanyID, cfg.Environment, nullIfEmpty(cfg.SoftwareID), nullIfEmpty(cfg.SoftwarePIN),
		nullIfEmpty(cfg.TechnicalKey), nullIfEmpty(cfg.TestSetID), nullIfEmpty(cfg.CertificatePath),
		nullIfEmpty(cfg.CertificateKeyPath), nullIfEmpty(cfg.CertificatePassword),
	).Scan(&cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save dian_config: %w", err)
	}
	return nil
}
