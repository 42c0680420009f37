package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// JournalFilter filtros del listado de asientos.
type JournalFilter struct {
	CompanyID  string
	Status     entity.JournalStatus
	SourceType string
	SourceID   string
	Limit      int
	Offset     int
}

// JournalRepository persistencia de asientos contables.
type JournalRepository interface {
	// Create inserta el asiento con sus líneas.
	Create(ctx context.Context, entry *entity.JournalEntry) error
	GetByID(ctx context.Context, companyID, id string) (*entity.JournalEntry, error)
	GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.JournalEntry, error)
	// UpdateStatus persiste estado, fechas y motivo. Las líneas no se modifican.
	UpdateStatus(ctx context.Context, entry *entity.JournalEntry) error
	List(ctx context.Context, f JournalFilter) ([]*entity.JournalEntry, error)
}
