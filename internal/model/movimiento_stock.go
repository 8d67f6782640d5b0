package model

import "github.com/google/uuid"

// Tipos de movimiento de stock.
const (
	StockCompra      = "compra"
	StockAjusteSuma  = "ajuste_suma"
	StockAjusteResta = "ajuste_resta"
	StockVenta       = "venta"
	StockPerdida     = "perdida"
	StockDevolucion  = "devolucion"
)

// MovimientoStock is the append-only audit row written for every stock delta.
// Rows are never updated or deleted.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"not null;index"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	UsuarioID     uuid.UUID  `gorm:"type:uuid;not null"`
	ReferenciaID  *uuid.UUID `gorm:"type:uuid;index"` // venta_id, devolucion_id or proveedor_id
	OrigenID      *uuid.UUID `gorm:"type:uuid"`       // product sold or returned; the promo for component rows
	Fecha         string     `gorm:"type:varchar(19);not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
