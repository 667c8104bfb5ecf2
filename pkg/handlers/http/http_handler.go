package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Inspection
	AnalyzeHandler Handler

	// Quota
	GetQuotaHandler   Handler
	ResetQuotaHandler Handler

	// Reports
	GetReportHandler Handler

	// Reference data
	ListRegulationsHandler Handler
	GetVersionHandler      Handler
}
