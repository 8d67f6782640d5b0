package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	CodigoBarras *string         `json:"codigo_barras" validate:"omitempty,min=4,max=18"`
	Nombre       string          `json:"nombre"        validate:"required,min=2,max=120"`
	Categoria    string          `json:"categoria"`
	PrecioCosto  decimal.Decimal `json:"precio_costo"  validate:"min=0"`
	PrecioVenta  decimal.Decimal `json:"precio_venta"  validate:"min=0"`
	StockActual  int             `json:"stock_actual"  validate:"min=0"`
	StockMinimo  int             `json:"stock_minimo"  validate:"min=0"`
	UnidadMedida string          `json:"unidad_medida" validate:"omitempty,oneof=unidad peso volumen"`
	EsPromo      bool            `json:"es_promo"`
	ProveedorID  *string         `json:"proveedor_id"  validate:"omitempty,uuid"`
}

type ActualizarProductoRequest struct {
	CodigoBarras *string          `json:"codigo_barras" validate:"omitempty,min=4,max=18"`
	Nombre       *string          `json:"nombre"        validate:"omitempty,min=2,max=120"`
	Categoria    *string          `json:"categoria"`
	PrecioCosto  *decimal.Decimal `json:"precio_costo"`
	PrecioVenta  *decimal.Decimal `json:"precio_venta"`
	StockMinimo  *int             `json:"stock_minimo"  validate:"omitempty,min=0"`
	UnidadMedida *string          `json:"unidad_medida" validate:"omitempty,oneof=unidad peso volumen"`
	ProveedorID  *string          `json:"proveedor_id"  validate:"omitempty,uuid"`
}

// ComponenteInput is one line of PUT /v1/productos/:id/componentes.
type ComponenteInput struct {
	ComponenteID string `json:"componente_id" validate:"required,uuid"`
	Cantidad     int    `json:"cantidad"      validate:"required,min=1"`
}

type DefinirComponentesRequest struct {
	Componentes []ComponenteInput `json:"componentes" validate:"dive"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Barcode     string `form:"barcode"`
	Nombre      string `form:"nombre"`
	Categoria   string `form:"categoria"`
	ProveedorID string `form:"proveedor_id"`
	Activo      string `form:"activo"` // "" = activos, "false" = inactivos, "all" = todos
	Page        int    `form:"page,default=1"  validate:"min=1"`
	Limit       int    `form:"limit,default=20" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ComponenteResponse struct {
	ComponenteID string `json:"componente_id"`
	Nombre       string `json:"nombre"`
	Cantidad     int    `json:"cantidad"`
	StockActual  int    `json:"stock_actual"`
}

// ProductoResponse always carries the effective stock: for promos it is
// derived from the components, for plain products it is the stored value.
type ProductoResponse struct {
	ID           string               `json:"id"`
	CodigoBarras *string              `json:"codigo_barras"`
	Nombre       string               `json:"nombre"`
	Categoria    string               `json:"categoria"`
	PrecioCosto  decimal.Decimal      `json:"precio_costo"`
	PrecioVenta  decimal.Decimal      `json:"precio_venta"`
	StockActual  int                  `json:"stock_actual"`
	StockMinimo  int                  `json:"stock_minimo"`
	UnidadMedida string               `json:"unidad_medida"`
	EsPromo      bool                 `json:"es_promo"`
	Activo       bool                 `json:"activo"`
	ProveedorID  *string              `json:"proveedor_id"`
	Componentes  []ComponenteResponse `json:"componentes,omitempty"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ConsultaPreciosResponse is returned by the public price check endpoint (no auth required).
type ConsultaPreciosResponse struct {
	Nombre          string          `json:"nombre"`
	PrecioVenta     decimal.Decimal `json:"precio_venta"`
	StockDisponible int             `json:"stock_disponible"`
	EsPromo         bool            `json:"es_promo"`
}
