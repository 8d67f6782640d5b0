package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unidades de medida admitidas.
const (
	UnidadUnidad  = "unidad"
	UnidadPeso    = "peso"
	UnidadVolumen = "volumen"
)

// Producto represents both plain catalog items and promo bundles.
// EsPromo=true means StockActual is meaningless: the sellable quantity is
// derived from the components linked via PromoComponente and is never written.
type Producto struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CodigoBarras *string         `gorm:"uniqueIndex"`
	Nombre       string          `gorm:"index;not null"`
	Categoria    string          `gorm:"not null;default:''"`
	PrecioCosto  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockActual  int             `gorm:"not null;default:0"`
	StockMinimo  int             `gorm:"not null;default:0"`
	UnidadMedida string          `gorm:"not null;default:'unidad'"`
	EsPromo      bool            `gorm:"not null;default:false"`
	ProveedorID  *uuid.UUID      `gorm:"type:uuid;index"`
	Activo       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Producto) TableName() string { return "productos" }
