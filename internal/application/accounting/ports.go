package accounting

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción con el repositorio de asientos.
type TxRunner interface {
	RunAccounting(ctx context.Context, fn func(journals repository.JournalRepository) error) error
}
