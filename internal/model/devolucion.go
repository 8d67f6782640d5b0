package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Devolucion reverses part of a prior sale.
type Devolucion struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Fecha            string          `gorm:"type:varchar(19);not null"`
	TotalReintegro   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Motivo           string          `gorm:"not null;default:''"`
	UsuarioID        uuid.UUID       `gorm:"type:uuid;not null"`
	MovimientoCajaID *uuid.UUID      `gorm:"type:uuid"`

	Items []DevolucionItem `gorm:"foreignKey:DevolucionID"`
}

func (Devolucion) TableName() string { return "devoluciones" }

// DevolucionItem is one returned line. Subtotal = Cantidad × PrecioReintegro.
type DevolucionItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DevolucionID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID      uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad        int             `gorm:"not null"`
	PrecioReintegro decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (DevolucionItem) TableName() string { return "devolucion_items" }
