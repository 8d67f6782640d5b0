package worker

// Failed tickets: receipts the printer could not produce within
// TICKET_MAX_ATTEMPTS wait in dlq:jobs:ticket until an encargado reprints
// them. The original payload is kept untouched so a requeue replays it.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"kioscopos/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// TicketFallido is one entry of the failed-ticket list.
type TicketFallido struct {
	NumeroTicket int             `json:"numero_ticket"`
	VentaID      string          `json:"venta_id"`
	Motivo       string          `json:"motivo"`
	FalloEn      string          `json:"fallo_en"` // RFC 3339, UTC
	Intentos     int             `json:"intentos"`
	Payload      json.RawMessage `json:"payload"`
}

// DLQLength returns the number of entries in a DLQ, reported by /health.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// descartar parks a ticket that will not be retried. ticket is the zero value
// when the payload could not be decoded.
func (d *RedisDispatcher) descartar(ctx context.Context, payload json.RawMessage, ticket dto.TicketJob, motivo string, intentos int) {
	data, err := json.Marshal(TicketFallido{
		NumeroTicket: ticket.NumeroTicket,
		VentaID:      ticket.VentaID,
		Motivo:       motivo,
		FalloEn:      time.Now().UTC().Format(time.RFC3339),
		Intentos:     intentos,
		Payload:      payload,
	})
	if err != nil {
		log.Error().Err(err).Int("numero_ticket", ticket.NumeroTicket).Msg("dlq: failed to marshal entry")
		return
	}
	if err := d.rdb.LPush(ctx, DLQPrefix+QueueTicket, data).Err(); err != nil {
		log.Error().Err(err).Int("numero_ticket", ticket.NumeroTicket).Msg("dlq: push failed, ticket lost")
		return
	}
	log.Warn().
		Int("numero_ticket", ticket.NumeroTicket).
		Str("venta_id", ticket.VentaID).
		Str("motivo", motivo).
		Int("intentos", intentos).
		Msg("dlq: ticket moved to failed list")
}

// TicketsFallidos returns up to limit failed tickets, newest first.
func (d *RedisDispatcher) TicketsFallidos(ctx context.Context, limit int64) ([]TicketFallido, error) {
	if limit <= 0 {
		limit = 50
	}
	raws, err := d.rdb.LRange(ctx, DLQPrefix+QueueTicket, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]TicketFallido, 0, len(raws))
	for _, raw := range raws {
		var tf TicketFallido
		if err := json.Unmarshal([]byte(raw), &tf); err != nil {
			log.Warn().Err(err).Msg("dlq: skipping undecodable entry")
			continue
		}
		out = append(out, tf)
	}
	return out, nil
}

// Reimprimir moves every failed ticket back onto the work queue with a fresh
// attempt count, oldest first, and reports how many it moved. Entries whose
// payload no longer decodes stay out of the queue.
func (d *RedisDispatcher) Reimprimir(ctx context.Context) (int, error) {
	movidos := 0
	for {
		raw, err := d.rdb.RPop(ctx, DLQPrefix+QueueTicket).Result()
		if errors.Is(err, redis.Nil) {
			return movidos, nil
		}
		if err != nil {
			return movidos, err
		}
		var tf TicketFallido
		if err := json.Unmarshal([]byte(raw), &tf); err != nil || len(tf.Payload) == 0 {
			log.Warn().Msg("dlq: dropping undecodable entry on reprint")
			continue
		}
		if err := d.push(ctx, Job{Type: "ticket", Payload: tf.Payload}); err != nil {
			// Put it back so the operator can retry.
			_ = d.rdb.RPush(ctx, DLQPrefix+QueueTicket, raw).Err()
			return movidos, err
		}
		movidos++
	}
}
