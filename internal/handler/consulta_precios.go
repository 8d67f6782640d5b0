package handler

import (
	"net/http"

	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

// ConsultaPreciosHandler serves the public price check endpoint.
// No authentication and no side effects; lookups go through the catalog cache.
type ConsultaPreciosHandler struct{ svc service.ProductoService }

func NewConsultaPreciosHandler(svc service.ProductoService) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{svc: svc}
}

// GetPrecioPorBarcode godoc
// @Summary Consulta de precio por codigo de barras (sin autenticacion)
// @Tags precio
// @Produce json
// @Param barcode path string true "Codigo de barras"
// @Success 200 {object} dto.ConsultaPreciosResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{barcode} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorBarcode(c *gin.Context) {
	resp, err := h.svc.ConsultarPrecio(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
