package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// ProductRepository define el puerto de lectura de productos facturables.
type ProductRepository interface {
	GetByID(ctx context.Context, companyID, id string) (*entity.Product, error)
}
