package handler

import (
	"net/http"

	"kioscopos/internal/dto"
	"kioscopos/internal/middleware"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

type ClientesHandler struct{ svc service.ClienteService }

func NewClientesHandler(svc service.ClienteService) *ClientesHandler {
	return &ClientesHandler{svc: svc}
}

func (h *ClientesHandler) Crear(c *gin.Context) {
	var req dto.CrearClienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

func (h *ClientesHandler) Listar(c *gin.Context) {
	var filter dto.ClienteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *ClientesHandler) Obtener(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// RegistrarPago godoc
// @Summary Pago de deuda de cuenta corriente
// @Tags clientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del cliente"
// @Param body body dto.PagoDeudaRequest true "Pago"
// @Success 201 {object} dto.PagoDeudaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/clientes/{id}/pagos [post]
func (h *ClientesHandler) RegistrarPago(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.PagoDeudaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarPago(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}
