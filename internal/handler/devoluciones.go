package handler

import (
	"net/http"

	"kioscopos/internal/dto"
	"kioscopos/internal/middleware"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

type DevolucionesHandler struct{ svc service.DevolucionService }

func NewDevolucionesHandler(svc service.DevolucionService) *DevolucionesHandler {
	return &DevolucionesHandler{svc: svc}
}

// Procesar godoc
// @Summary Devolucion de items de una venta
// @Description Repone stock (acreditando componentes de promos) y registra el reintegro como egreso de caja.
// @Tags devoluciones
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.DevolucionRequest true "Devolucion"
// @Success 201 {object} dto.DevolucionResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/devoluciones [post]
func (h *DevolucionesHandler) Procesar(c *gin.Context) {
	var req dto.DevolucionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ProcesarDevolucion(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

func (h *DevolucionesHandler) ListarPorVenta(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.ListarPorVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
