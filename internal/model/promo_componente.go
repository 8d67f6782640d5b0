package model

import "github.com/google/uuid"

// PromoComponente links a promo bundle to one of the plain products it consumes.
// Selling one promo unit consumes CantidadPorPromo units of the component.
type PromoComponente struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	PromoID          uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_promo_componente;not null"`
	ComponenteID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_promo_componente;not null"`
	CantidadPorPromo int       `gorm:"not null"`

	Componente *Producto `gorm:"foreignKey:ComponenteID"`
}

func (PromoComponente) TableName() string { return "promo_componentes" }
