package handler

import (
	"net/http"

	"kioscopos/internal/dto"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductosHandler struct{ svc service.ProductoService }

func NewProductosHandler(svc service.ProductoService) *ProductosHandler {
	return &ProductosHandler{svc: svc}
}

// Crear godoc
// @Summary Alta de producto o promo
// @Tags productos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CrearProductoRequest true "Producto"
// @Success 201 {object} dto.ProductoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/productos [post]
func (h *ProductosHandler) Crear(c *gin.Context) {
	var req dto.CrearProductoRequest
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

// Listar godoc
// @Summary Catalogo paginado con stock efectivo
// @Tags productos
// @Produce json
// @Security BearerAuth
// @Param nombre query string false "Filtro por nombre"
// @Param categoria query string false "Filtro por categoria"
// @Param page query int false "Pagina"
// @Param limit query int false "Registros por pagina"
// @Success 200 {object} dto.ProductoListResponse
// @Router /v1/productos [get]
func (h *ProductosHandler) Listar(c *gin.Context) {
	var filter dto.ProductoFilter
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

func (h *ProductosHandler) Buscar(c *gin.Context) {
	resp, err := h.svc.Buscar(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *ProductosHandler) ObtenerPorBarcode(c *gin.Context) {
	resp, err := h.svc.ObtenerPorBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *ProductosHandler) ObtenerPorID(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *ProductosHandler) Actualizar(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.ActualizarProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

func (h *ProductosHandler) Desactivar(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Desactivar(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DefinirComponentes godoc
// @Summary Reemplaza los componentes de una promo
// @Tags productos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la promo"
// @Param body body dto.DefinirComponentesRequest true "Componentes"
// @Success 200 {object} dto.ProductoResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/productos/{id}/componentes [put]
func (h *ProductosHandler) DefinirComponentes(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.DefinirComponentesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.DefinirComponentes(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
