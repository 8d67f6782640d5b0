package handler

import (
	"net/http"

	"kioscopos/internal/dto"
	"kioscopos/internal/middleware"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

// Actual godoc
// @Summary Sesion de caja abierta
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/actual [get]
func (h *CajaHandler) Actual(c *gin.Context) {
	resp, err := h.svc.SesionActual(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// Resumen godoc
// @Summary Saldo teorico de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ResumenCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/resumen [get]
func (h *CajaHandler) Resumen(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.Resumen(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o egreso manual en caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoCajaRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion abierta con el monto contado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Cierre"
// @Success 200 {object} dto.CierreCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// Reporte godoc
// @Summary Reporte de conciliacion de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ReporteCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/reporte [get]
func (h *CajaHandler) Reporte(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.Reporte(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// Historial returns a paginated list of cash sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	var filter dto.HistorialCajaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
