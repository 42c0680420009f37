package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// CustomerRepository define el puerto de lectura de clientes (adquirientes).
type CustomerRepository interface {
	GetByID(ctx context.Context, companyID, id string) (*entity.Customer, error)
}
