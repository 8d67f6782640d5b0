package handler

import (
	"net/http"

	"kioscopos/internal/dto"
	"kioscopos/internal/middleware"
	"kioscopos/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Venta atomica: descuenta stock (resolviendo promos), registra movimientos de stock y entrega el ticket a impresion.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarVenta(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusCreated, resp)
}

// ObtenerVenta godoc
// @Summary      Detalle de una venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "UUID de la venta"
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Description  Retorna lista paginada de ventas filtrada por dia y metodo de pago.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        fecha       query string false "Fecha YYYY-MM-DD"
// @Param        metodo_pago query string false "efectivo | tarjeta | mixto | mercadopago | cuenta_corriente"
// @Param        page        query int    false "Pagina (default 1)"
// @Param        limit       query int    false "Registros por pagina (default 50)"
// @Success      200    {object} dto.VentaListResponse
// @Router       /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarVentas(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}

// AnotarFactura godoc
// @Summary      Anota el CAE emitido para una venta
// @Description  Unica escritura permitida sobre una venta confirmada; solo una vez.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                   true "UUID de la venta"
// @Param        body body     dto.AnotarFacturaRequest true "Datos de la factura"
// @Success      200  {object} dto.VentaResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/ventas/{id}/factura [patch]
func (h *VentasHandler) AnotarFactura(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req dto.AnotarFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AnotarFactura(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, resp)
}
