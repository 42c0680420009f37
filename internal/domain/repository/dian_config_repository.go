package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// DianConfigRepository configuración DIAN por empresa (una fila por tenant).
type DianConfigRepository interface {
	// Get devuelve la configuración sin resoluciones, o nil si no existe.
	Get(ctx context.Context, companyID string) (*entity.DianConfig, error)
	Save(ctx context.Context, cfg *entity.DianConfig) error
}
