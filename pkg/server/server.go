package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ApexGov/inspector/pkg/config"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/ApexGov/inspector/pkg/server/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	HealthPath      = "/health"
	healthTimeout   = 2 * time.Second
	uploadBodySlack = 1024 * 1024
)

// Server interface defines the common behavior for all servers
type Server interface {
	Run() error
	Shutdown() error
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

type BaseServer struct {
	Config       *config.Config
	Logger       *logrus.Logger
	Router       *fiber.App
	healthChecks map[string]HealthCheck
	metricsApp   *fiber.App
}

func NewBaseServer(config *config.Config, logger *logrus.Logger) *BaseServer {
	r := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReduceMemoryUsage:     true,
		Network:               fiber.NetworkTCP,
		EnablePrintRoutes:     false,
		BodyLimit:             config.Upload.MaxBytes + uploadBodySlack,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          90 * time.Second,
		IdleTimeout:           120 * time.Second,
		ProxyHeader:           proxyHeader(config.Server.TrustProxy),
	})

	r.Server().NoDefaultServerHeader = true

	return &BaseServer{
		Config:       config,
		Logger:       logger,
		Router:       r,
		healthChecks: map[string]HealthCheck{},
	}
}

func proxyHeader(trust bool) string {
	if trust {
		return fiber.HeaderXForwardedFor
	}
	return ""
}

func (s *BaseServer) WithHealthCheck(name string, check HealthCheck) *BaseServer {
	s.healthChecks[name] = check
	return s
}

// setupHealthCheck reports 503 when any registered dependency check fails.
func (s *BaseServer) setupHealthCheck() {
	s.Router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		c, cancel := context.WithTimeout(ctx.UserContext(), healthTimeout)
		defer cancel()

		status := fiber.StatusOK
		checks := fiber.Map{}
		for name, check := range s.healthChecks {
			if err := check(c); err != nil {
				s.Logger.WithError(err).WithField("dependency", name).Warn("health check failed")
				checks[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		state := "healthy"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return ctx.Status(status).JSON(fiber.Map{
			"status": state,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}

func (s *BaseServer) WithRouters(routers ...router.ServerRouter) *BaseServer {
	for _, r := range routers {
		err := r.BuildRoutes(s.Router)
		if err != nil {
			s.Logger.WithError(err).Error("failed to build routes")
		}
	}
	return s
}

func (s *BaseServer) setupMetricsEndpoint() {
	if !s.Config.Metrics.Enabled {
		s.Logger.Info("prometheus metrics are disabled by configuration")
		return
	}
	if s.metricsApp != nil {
		return
	}

	metricsApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	metricsApp.Use(recover.New())

	handler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(prometheus.Gatherer(), promhttp.HandlerOpts{}),
	)
	metricsApp.Get("/metrics", func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	})
	s.metricsApp = metricsApp

	// Start metrics server on a different port
	go func() {
		addr := fmt.Sprintf(":%d", s.Config.Server.MetricsPort)
		if err := metricsApp.Listen(addr); err != nil {
			if !strings.Contains(err.Error(), "address already in use") {
				s.Logger.WithError(err).Error("Failed to start metrics server")
			}
		}
	}()
}

func (s *BaseServer) shutdownMetrics() error {
	if s.metricsApp == nil {
		return nil
	}
	return s.metricsApp.Shutdown()
}
