package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles.
const (
	RolCajero        = "cajero"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)

// Usuario stores system users with role-based access.
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	PasswordHash string    `gorm:"not null"`
	Rol          string    `gorm:"type:varchar(20);not null"`
	Activo       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Usuario) TableName() string { return "usuarios" }
