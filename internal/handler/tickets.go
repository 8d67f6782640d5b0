package handler

import (
	"context"
	"net/http"
	"strconv"

	"kioscopos/internal/apierror"
	"kioscopos/internal/worker"

	"github.com/gin-gonic/gin"
)

// TicketQueue is the failed-ticket side of the ticket queue. Only the Redis
// dispatcher keeps failed tickets.
type TicketQueue interface {
	TicketsFallidos(ctx context.Context, limit int64) ([]worker.TicketFallido, error)
	Reimprimir(ctx context.Context) (int, error)
}

type TicketsHandler struct{ queue TicketQueue }

func NewTicketsHandler(queue TicketQueue) *TicketsHandler {
	return &TicketsHandler{queue: queue}
}

func (h *TicketsHandler) ListarFallidos(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit < 1 || limit > 500 {
		respondError(c, errBadQuery.Withf("limit debe estar entre 1 y 500"))
		return
	}
	tickets, err := h.queue.TicketsFallidos(c.Request.Context(), limit)
	if err != nil {
		respondError(c, apierror.Persistence("listar tickets fallidos", err))
		return
	}
	ok(c, http.StatusOK, tickets)
}

func (h *TicketsHandler) Reimprimir(c *gin.Context) {
	n, err := h.queue.Reimprimir(c.Request.Context())
	if err != nil {
		respondError(c, apierror.Persistence("reimprimir tickets", err))
		return
	}
	ok(c, http.StatusOK, gin.H{"reencolados": n})
}
