package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// UserRepository lectura de usuarios para autenticación. nil, nil si no existe.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
}
