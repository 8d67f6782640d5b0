package handler

import (
	"context"
	"net/http"
	"time"

	"kioscopos/internal/infra"
	"kioscopos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response. db is nil in the in-memory
// demo mode and rdb is nil when Redis is not configured; neither counts as a
// failure. An open printer circuit is reported without failing the check.
func Health(db *gorm.DB, rdb *redis.Client, printer *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{}
		healthy := true

		switch {
		case db == nil:
			body["db"] = "memory"
		default:
			body["db"] = "connected"
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				body["db"] = "error"
				healthy = false
			}
		}

		switch {
		case rdb == nil:
			body["redis"] = "disabled"
		case rdb.Ping(ctx).Err() != nil:
			body["redis"] = "error"
			healthy = false
		default:
			body["redis"] = "connected"
			if n, err := worker.DLQLength(ctx, rdb, worker.QueueTicket); err == nil {
				body["tickets_dlq"] = n
			}
		}

		if printer != nil {
			body["printer"] = printer.State().String()
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = healthy
		c.JSON(status, body)
	}
}
