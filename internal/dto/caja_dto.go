package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial" validate:"min=0"`
}

type MovimientoCajaRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=ingreso egreso"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion string          `json:"descripcion" validate:"required,min=1,max=200"`
}

// CerrarCajaRequest carries the counted amount. MontoFinal, TotalVentas and
// TotalMovimientos are optional echoes of the figures the UI displayed; when
// present they must match the server-side summary.
type CerrarCajaRequest struct {
	SesionCajaID     string           `json:"sesion_caja_id" validate:"omitempty,uuid"`
	MontoReal        decimal.Decimal  `json:"monto_real"     validate:"min=0"`
	MontoFinal       *decimal.Decimal `json:"monto_final"`
	TotalVentas      *decimal.Decimal `json:"total_ventas"`
	TotalMovimientos *decimal.Decimal `json:"total_movimientos"`
	Observaciones    *string          `json:"observaciones"  validate:"omitempty,max=500"`
}

type HistorialCajaFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID                  string           `json:"id"`
	UsuarioID           string           `json:"usuario_id"`
	Estado              string           `json:"estado"`
	OpenedAt            string           `json:"opened_at"`
	ClosedAt            *string          `json:"closed_at"`
	MontoInicial        decimal.Decimal  `json:"monto_inicial"`
	MontoFinal          *decimal.Decimal `json:"monto_final"`
	MontoReal           *decimal.Decimal `json:"monto_real"`
	Diferencia          *decimal.Decimal `json:"diferencia"`
	TotalVentas         *decimal.Decimal `json:"total_ventas"`
	TotalMovimientos    *decimal.Decimal `json:"total_movimientos"`
	ClasificacionDesvio *string          `json:"clasificacion_desvio"`
	Observaciones       *string          `json:"observaciones"`
}

// ResumenCajaResponse is the theoretical drawer balance:
// SaldoFinal = MontoInicial + TotalVentasEfectivo + TotalIngresos − TotalEgresos.
type ResumenCajaResponse struct {
	SesionCajaID        string          `json:"sesion_caja_id"`
	MontoInicial        decimal.Decimal `json:"monto_inicial"`
	TotalVentasEfectivo decimal.Decimal `json:"total_ventas_efectivo"`
	TotalIngresos       decimal.Decimal `json:"total_ingresos"`
	TotalEgresos        decimal.Decimal `json:"total_egresos"`
	SaldoFinal          decimal.Decimal `json:"saldo_final"`
}

type MovimientoCajaResponse struct {
	ID           string          `json:"id"`
	Fecha        string          `json:"fecha"`
	Tipo         string          `json:"tipo"`
	Monto        decimal.Decimal `json:"monto"`
	Descripcion  string          `json:"descripcion"`
	UsuarioID    string          `json:"usuario_id"`
	SesionCajaID *string         `json:"sesion_caja_id"`
}

type DesvioResponse struct {
	Monto         decimal.Decimal `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

type CierreCajaResponse struct {
	Sesion  SesionCajaResponse  `json:"sesion"`
	Resumen ResumenCajaResponse `json:"resumen"`
	Desvio  DesvioResponse      `json:"desvio"`
}

// ReporteCajaResponse is rebuilt from the persisted session row plus the
// sales and movements inside [opened_at, closed_at). Descuadre is true when
// the recomputed balance differs from the stored monto_final.
type ReporteCajaResponse struct {
	Sesion               SesionCajaResponse         `json:"sesion"`
	Resumen              ResumenCajaResponse        `json:"resumen"`
	VentasPorMetodo      map[string]decimal.Decimal `json:"ventas_por_metodo"`
	Movimientos          []MovimientoCajaResponse   `json:"movimientos"`
	MontoFinalAlmacenado *decimal.Decimal           `json:"monto_final_almacenado"`
	Descuadre            bool                       `json:"descuadre"`
}

type HistorialCajaResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
