package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AjusteStockRequest struct {
	ProductoID  string  `json:"producto_id"  validate:"required,uuid"`
	Tipo        string  `json:"tipo"         validate:"required,oneof=compra ajuste_suma ajuste_resta perdida"`
	Cantidad    int     `json:"cantidad"     validate:"required,min=1"`
	Motivo      string  `json:"motivo"       validate:"max=200"`
	ProveedorID *string `json:"proveedor_id" validate:"omitempty,uuid"`
}

type MovimientoStockFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=compra ajuste_suma ajuste_resta venta perdida devolucion"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AlertaStockResponse struct {
	ProductoID  string          `json:"producto_id"`
	Nombre      string          `json:"nombre"`
	StockActual int             `json:"stock_actual"`
	StockMinimo int             `json:"stock_minimo"`
	PrecioVenta decimal.Decimal `json:"precio_venta"`
	EsPromo     bool            `json:"es_promo"`
}

type MovimientoStockResponse struct {
	ID            string  `json:"id"`
	ProductoID    string  `json:"producto_id"`
	Tipo          string  `json:"tipo"`
	Cantidad      int     `json:"cantidad"`
	StockAnterior int     `json:"stock_anterior"`
	StockNuevo    int     `json:"stock_nuevo"`
	Motivo        string  `json:"motivo"`
	UsuarioID     string  `json:"usuario_id"`
	ReferenciaID  *string `json:"referencia_id"`
	Fecha         string  `json:"fecha"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}
