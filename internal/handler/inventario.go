package handler

import (
	"net/http"

	"kioscopos/internal/dto"
	"kioscopos/internal/middleware"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// AjustarStock godoc
// @Summary Ajuste manual de stock (compra, ajuste, perdida)
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AjusteStockRequest true "Ajuste"
// @Success 201 {object} dto.MovimientoStockResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/inventario/ajustes [post]
func (h *InventarioHandler) AjustarStock(c *gin.Context) {
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarStock(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoStockFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *InventarioHandler) ObtenerAlertas(c *gin.Context) {
	resp, err := h.svc.Alertas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
