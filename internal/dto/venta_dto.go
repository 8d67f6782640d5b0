package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Fecha      string `form:"fecha"       validate:"omitempty,datetime=2006-01-02"` // empty = all days
	MetodoPago string `form:"metodo_pago" validate:"omitempty,oneof=efectivo tarjeta mixto mercadopago cuenta_corriente"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ItemVentaRequest carries the price snapshot taken at scan time.
type ItemVentaRequest struct {
	ProductoID     string          `json:"producto_id"     validate:"required,uuid"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
}

// RegistrarVentaRequest does not use validator tags for the business rules
// (empty cart, quantities, credit client) so that the service reports them
// with their own error codes.
type RegistrarVentaRequest struct {
	Items      []ItemVentaRequest `json:"items"`
	MetodoPago string             `json:"metodo_pago" validate:"required"`
	ClienteID  *string            `json:"cliente_id"  validate:"omitempty,uuid"`
}

type AnotarFacturaRequest struct {
	CAE            string `json:"cae"             validate:"required,max=20"`
	CAEVencimiento string `json:"cae_vencimiento" validate:"required,datetime=2006-01-02"`
	TipoFactura    string `json:"tipo_factura"    validate:"required,oneof=factura_a factura_b factura_c"`
	NumeroFactura  int64  `json:"numero_factura"  validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type FacturaResponse struct {
	CAE            string `json:"cae"`
	CAEVencimiento string `json:"cae_vencimiento"`
	TipoFactura    string `json:"tipo_factura"`
	NumeroFactura  int64  `json:"numero_factura"`
}

// AdvertenciaStock flags a product left below zero by a sale.
type AdvertenciaStock struct {
	ProductoID string `json:"producto_id"`
	Nombre     string `json:"nombre"`
	StockNuevo int    `json:"stock_nuevo"`
}

type VentaResponse struct {
	ID           string              `json:"id"`
	NumeroTicket int                 `json:"numero_ticket"`
	Fecha        string              `json:"fecha"`
	UsuarioID    string              `json:"usuario_id"`
	ClienteID    *string             `json:"cliente_id"`
	SesionCajaID *string             `json:"sesion_caja_id"`
	Items        []ItemVentaResponse `json:"items"`
	Total        decimal.Decimal     `json:"total"`
	MetodoPago   string              `json:"metodo_pago"`
	Factura      *FacturaResponse    `json:"factura"`
	Advertencias []AdvertenciaStock  `json:"advertencias,omitempty"`
}
