package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estados de sesión de caja.
const (
	EstadoCajaAbierta = "abierta"
	EstadoCajaCerrada = "cerrada"
)

// Tipos de movimiento de caja.
const (
	MovimientoIngreso = "ingreso"
	MovimientoEgreso  = "egreso"
)

// SesionCaja represents one open/close cycle of the register drawer.
// A session is written twice: on open and once on close. It is never reopened.
// The partial unique index ux_sesiones_caja_abierta guarantees a single row
// with ClosedAt = NULL.
type SesionCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null"`
	MontoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado       string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	OpenedAt     string          `gorm:"type:varchar(19);not null;index"`
	ClosedAt     *string         `gorm:"type:varchar(19)"`
	// Filled on close. MontoFinal is the theoretical balance, MontoReal the counted one.
	MontoFinal          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MontoReal           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Diferencia          *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalVentas         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	TotalMovimientos    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ClasificacionDesvio *string          `gorm:"type:varchar(20)"` // normal | advertencia | critico
	Observaciones       *string
	CerradaPor          *uuid.UUID `gorm:"type:uuid"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// Abierta reports whether the session still accepts movements.
func (s *SesionCaja) Abierta() bool { return s.ClosedAt == nil }

// MovimientoCaja is a manual cash entry or withdrawal, independent of sales.
// Movements are append-only: a mistaken one is corrected with an inverse entry.
type MovimientoCaja struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Fecha       string          `gorm:"type:varchar(19);not null;index"`
	Tipo        string          `gorm:"type:varchar(20);not null"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion string          `gorm:"not null"`
	UsuarioID   uuid.UUID       `gorm:"type:uuid;not null"`
	// SesionCajaID records the session open at write time, when there was one.
	SesionCajaID *uuid.UUID `gorm:"type:uuid;index"`
	// ReferenciaID links refunds and debt payments to their origin.
	ReferenciaID *uuid.UUID `gorm:"type:uuid"`
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
