package middleware

import (
	"strconv"
	"time"

	"github.com/ApexGov/inspector/pkg/common"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
)

type metricsMiddleware struct {
	cfg prometheus.MetricsConfig
}

func NewMetricsMiddleware(cfg prometheus.MetricsConfig) Middleware {
	return &metricsMiddleware{cfg: cfg}
}

// Middleware records request counts and latency labelled by route pattern so
// report numbers do not explode label cardinality.
func (m *metricsMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		c.Locals(common.LatencyContextKey, start)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else if status < fiber.StatusBadRequest {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		prometheus.HTTPRequestTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		if m.cfg.EnableLatency {
			prometheus.HTTPRequestLatency.WithLabelValues(c.Method(), route).
				Observe(float64(time.Since(start).Milliseconds()))
		}
		return err
	}
}
