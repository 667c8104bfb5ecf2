package middleware

import "github.com/gofiber/fiber/v2"

type Middleware interface {
	Middleware() fiber.Handler
}

type Transport struct {
	PanicRecoverMiddleware Middleware
	CORSGlobalMiddleware   Middleware
	MetricsMiddleware      Middleware
	FingerPrintMiddleware  Middleware
	AdminAuthMiddleware    Middleware
}

// Global returns the handlers applied to every route, outermost first.
func (t *Transport) Global() []interface{} {
	var handlers []interface{}
	for _, m := range []Middleware{
		t.PanicRecoverMiddleware,
		t.CORSGlobalMiddleware,
		t.MetricsMiddleware,
		t.FingerPrintMiddleware,
	} {
		if m != nil {
			handlers = append(handlers, m.Middleware())
		}
	}
	return handlers
}
