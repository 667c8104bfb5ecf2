package router

import (
	handlers "github.com/ApexGov/inspector/pkg/handlers/http"
	"github.com/ApexGov/inspector/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

type apiRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
	docsURL             string
}

func NewAPIRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
	docsURL string,
) ServerRouter {
	return &apiRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
		docsURL:             docsURL,
	}
}

func (r *apiRouter) BuildRoutes(router *fiber.App) error {
	h := r.handlerTransport

	router.Static("/swagger.json", "./docs/swagger.json")
	router.Get("/docs/*", swagger.New(swagger.Config{
		URL: r.docsURL,
	}))

	router.Get("/version", h.GetVersionHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		if global := r.middlewareTransport.Global(); len(global) > 0 {
			v1.Use(global...)
		}

		v1.Post("/analyze", h.AnalyzeHandler.Handle)
		v1.Get("/quota", h.GetQuotaHandler.Handle)
		v1.Get("/reports/:report_number", h.GetReportHandler.Handle)
		v1.Get("/regulations", h.ListRegulationsHandler.Handle)

		admin := v1.Group("/admin")
		{
			if r.middlewareTransport.AdminAuthMiddleware != nil {
				admin.Use(r.middlewareTransport.AdminAuthMiddleware.Middleware())
			}
			admin.Post("/quota/reset", h.ResetQuotaHandler.Handle)
		}
	}
	return nil
}
