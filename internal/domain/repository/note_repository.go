package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// NoteRepository persistencia de notas crédito y débito con sus líneas.
type NoteRepository interface {
	// Create inserta la nota y sus líneas.
	Create(ctx context.Context, note *entity.Note) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Note, error)
	GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.Note, error)
	// Update persiste numeración, estado y campos DIAN.
	Update(ctx context.Context, note *entity.Note) error
	ListByInvoice(ctx context.Context, companyID, invoiceID string) ([]*entity.Note, error)
}
