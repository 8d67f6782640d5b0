package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Métodos de pago. Only MetodoEfectivo counts toward the drawer balance.
const (
	MetodoEfectivo        = "efectivo"
	MetodoTarjeta         = "tarjeta"
	MetodoMixto           = "mixto"
	MetodoMercadoPago     = "mercadopago"
	MetodoCuentaCorriente = "cuenta_corriente"
)

// MetodosPago lists every accepted payment tag.
var MetodosPago = []string{MetodoEfectivo, MetodoTarjeta, MetodoMixto, MetodoMercadoPago, MetodoCuentaCorriente}

// Venta is the immutable header of a sale. Only the invoicing fields may be
// written after creation.
type Venta struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	NumeroTicket int             `gorm:"not null;uniqueIndex"`
	Fecha        string          `gorm:"type:varchar(19);not null;index"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	ClienteID    *uuid.UUID      `gorm:"type:uuid;index"`
	SesionCajaID *uuid.UUID      `gorm:"type:uuid;index"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago   string          `gorm:"type:varchar(20);not null;index"`

	// Invoicing annotation written back by the external invoicing collaborator.
	CAE            *string `gorm:"type:varchar(20);column:cae"`
	CAEVencimiento *string `gorm:"type:varchar(10);column:cae_vencimiento"`
	TipoFactura    *string `gorm:"type:varchar(20)"`
	NumeroFactura  *int64

	Items []VentaItem `gorm:"foreignKey:VentaID"`
}

func (Venta) TableName() string { return "ventas" }

// VentaItem is one sale line. PrecioUnitario is the price snapshot taken at
// scan time and Subtotal = Cantidad × PrecioUnitario.
type VentaItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (VentaItem) TableName() string { return "venta_items" }
