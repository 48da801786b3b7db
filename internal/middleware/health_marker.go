package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"helpmate-backend/internal/application/health"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// HealthMarker records request stats in Redis (skip /, /health*, /metrics, favicon).
// Failed requests are pushed onto a capped error log.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if rdb == nil || path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/metrics") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		lastReq := map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		}
		b, _ := json.Marshal(lastReq)
		ctx := context.Background()
		_ = rdb.Set(ctx, health.KeyLastReq, b, 0).Err()
		_ = rdb.Incr(ctx, health.KeyReqTotal).Err()

		err := c.Next()

		ms := time.Since(start).Milliseconds()
		_ = rdb.Incr(ctx, health.KeyResCount).Err()
		_ = rdb.IncrByFloat(ctx, health.KeyResTime, float64(ms)).Err()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		if status >= fiber.StatusInternalServerError {
			_ = rdb.Incr(ctx, health.KeyReqErrors).Err()
			entry := map[string]interface{}{
				"time":     start,
				"method":   c.Method(),
				"path":     c.OriginalURL(),
				"status":   status,
				"trace_id": GetTraceID(c),
			}
			if err != nil {
				entry["error"] = err.Error()
			}
			eb, _ := json.Marshal(entry)
			_ = rdb.LPush(ctx, health.KeyErrorLog, eb).Err()
			_ = rdb.LTrim(ctx, health.KeyErrorLog, 0, health.ErrorLogSize-1).Err()
		}
		return err
	}
}
