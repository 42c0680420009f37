package entity

import "time"

// Customer representa un cliente de la empresa (adquiriente de la factura).
type Customer struct {
	ID                 string
	CompanyID          string
	Name               string
	TaxID              string // NIT o Cédula (Colombia)
	IdentificationType string // 31 = NIT, 13 = CC; vacío se deduce del TaxID
	Email              string
	Phone              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FinalConsumer adquiriente genérico para facturas sin cliente (consumidor final).
func FinalConsumer() *Customer {
	return &Customer{Name: "Consumidor final", TaxID: "222222222222", IdentificationType: "13"}
}
