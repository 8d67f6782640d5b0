package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cliente holds a customer account. DeudaActual is a running balance: it grows
// with cuenta_corriente sales and shrinks with PagoDeuda rows. Only the sale
// and debt-payment coordinators may change it.
type Cliente struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre      string    `gorm:"not null"`
	DNI         *string   `gorm:"column:dni;uniqueIndex"`
	Telefono    *string
	DeudaActual decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt   time.Time
}

func (Cliente) TableName() string { return "clientes" }

// PagoDeuda records a payment against a customer's checking account.
type PagoDeuda struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClienteID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago string          `gorm:"type:varchar(20);not null"`
	Fecha      string          `gorm:"type:varchar(19);not null"`
	UsuarioID  uuid.UUID       `gorm:"type:uuid;not null"`
}

func (PagoDeuda) TableName() string { return "pagos_deuda" }
