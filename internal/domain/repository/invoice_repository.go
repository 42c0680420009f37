package repository

import (
	"context"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

// InvoiceFilter filtros del listado de facturas.
type InvoiceFilter struct {
	CompanyID  string
	Status     entity.DocumentStatus // vacío = todos
	CustomerID string
	Limit      int
	Offset     int
}

// InvoiceRepository define el puerto de persistencia para Invoice y detalles.
// Todas las consultas van acotadas por empresa (tenant).
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	// GetByIDForUpdate bloquea la fila de la factura hasta el fin de la transacción.
	GetByIDForUpdate(ctx context.Context, companyID, id string) (*entity.Invoice, error)
	GetDetails(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)
	// Update persiste numeración, estado y campos DIAN. Nunca toca montos ni líneas.
	Update(ctx context.Context, invoice *entity.Invoice) error
	List(ctx context.Context, f InvoiceFilter) ([]*entity.Invoice, error)
}
