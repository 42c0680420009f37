package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// BillingResolutionRepository define el puerto de persistencia para resoluciones DIAN.
// Cada fila es además el contador de su familia de documentos.
type BillingResolutionRepository interface {
	// GetActive devuelve el rango activo de la empresa para la familia, o nil.
	GetActive(ctx context.Context, companyID string, docType entity.DocumentType) (*entity.BillingResolution, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.BillingResolution, error)

	// NextNumber asigna el siguiente consecutivo del rango con una única operación atómica.
	// Devuelve domain.ErrSequenceExhausted si el rango se agotó.
	NextNumber(ctx context.Context, resolutionID string) (int64, error)

	// Upsert crea o reemplaza el rango activo de la familia. Conserva NextNumber si el
	// prefijo no cambia y el contador ya avanzó dentro del nuevo rango.
	Upsert(ctx context.Context, res *entity.BillingResolution) error
}
