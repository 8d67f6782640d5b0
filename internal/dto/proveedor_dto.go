package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProveedorRequest struct {
	RazonSocial string  `json:"razon_social" validate:"required,min=2"`
	CUIT        string  `json:"cuit"         validate:"required,min=11,max=13"`
	Telefono    *string `json:"telefono"`
	Email       *string `json:"email"        validate:"omitempty,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProveedorResponse struct {
	ID          string  `json:"id"`
	RazonSocial string  `json:"razon_social"`
	CUIT        string  `json:"cuit"`
	Telefono    *string `json:"telefono"`
	Email       *string `json:"email"`
	Activo      bool    `json:"activo"`
}
