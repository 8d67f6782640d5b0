package dto

import "github.com/shopspring/decimal"

type ItemDevolucionRequest struct {
	ProductoID      string          `json:"producto_id"      validate:"required,uuid"`
	Cantidad        int             `json:"cantidad"`
	PrecioReintegro decimal.Decimal `json:"precio_reintegro"`
}

type DevolucionRequest struct {
	VentaID        string                  `json:"venta_id"        validate:"required,uuid"`
	Items          []ItemDevolucionRequest `json:"items"           validate:"required,min=1,dive"`
	TotalReintegro decimal.Decimal         `json:"total_reintegro"`
	Motivo         string                  `json:"motivo"          validate:"max=200"`
}

type ItemDevolucionResponse struct {
	ProductoID      string          `json:"producto_id"`
	Cantidad        int             `json:"cantidad"`
	PrecioReintegro decimal.Decimal `json:"precio_reintegro"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

type DevolucionResponse struct {
	ID               string                   `json:"id"`
	VentaID          string                   `json:"venta_id"`
	Fecha            string                   `json:"fecha"`
	TotalReintegro   decimal.Decimal          `json:"total_reintegro"`
	Motivo           string                   `json:"motivo"`
	MovimientoCajaID *string                  `json:"movimiento_caja_id"`
	Items            []ItemDevolucionResponse `json:"items"`
}
