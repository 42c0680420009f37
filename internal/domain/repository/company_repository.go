package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// CompanyRepository define el puerto de persistencia para Company (DIP).
// La implementación vive en infrastructure.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
	// HasActiveModule informa si la empresa tiene contratado el módulo SaaS.
	HasActiveModule(ctx context.Context, companyID, moduleName string) (bool, error)
}
