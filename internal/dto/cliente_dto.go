package dto

import "github.com/shopspring/decimal"

type CrearClienteRequest struct {
	Nombre   string  `json:"nombre"   validate:"required,min=2,max=120"`
	DNI      *string `json:"dni"      validate:"omitempty,min=6,max=12"`
	Telefono *string `json:"telefono" validate:"omitempty,max=30"`
}

type PagoDeudaRequest struct {
	Monto      decimal.Decimal `json:"monto"`
	MetodoPago string          `json:"metodo_pago" validate:"required,oneof=efectivo tarjeta mercadopago"`
}

type ClienteFilter struct {
	Q     string `form:"q"`
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=20" validate:"min=1,max=100"`
}

type ClienteResponse struct {
	ID          string          `json:"id"`
	Nombre      string          `json:"nombre"`
	DNI         *string         `json:"dni"`
	Telefono    *string         `json:"telefono"`
	DeudaActual decimal.Decimal `json:"deuda_actual"`
}

type ClienteListResponse struct {
	Data  []ClienteResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type PagoDeudaResponse struct {
	ID          string          `json:"id"`
	ClienteID   string          `json:"cliente_id"`
	Monto       decimal.Decimal `json:"monto"`
	MetodoPago  string          `json:"metodo_pago"`
	Fecha       string          `json:"fecha"`
	DeudaActual decimal.Decimal `json:"deuda_actual"`
}
