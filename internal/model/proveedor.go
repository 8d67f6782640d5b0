package model

import (
	"time"

	"github.com/google/uuid"
)

// Proveedor represents a supplier. Products and compra stock movements may
// reference one.
type Proveedor struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	RazonSocial string    `gorm:"not null"`
	CUIT        string    `gorm:"column:cuit;uniqueIndex;not null"`
	Telefono    *string
	Email       *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

func (Proveedor) TableName() string { return "proveedores" }
