package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o servicio facturable de la empresa.
type Product struct {
	ID          string
	CompanyID   string
	SKU         string // código único por empresa
	Name        string
	Price       decimal.Decimal // precio de venta
	TaxRate     decimal.Decimal // IVA Colombia: 0, 5 o 19 (también se acepta 0.19)
	UnitMeasure string          // código DIAN (94 = unidad)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
