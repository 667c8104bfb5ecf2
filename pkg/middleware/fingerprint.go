package middleware

import (
	"context"

	"github.com/ApexGov/inspector/pkg/common"
	"github.com/ApexGov/inspector/pkg/infra/fingerprint"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type fingerPrintMiddleware struct {
	logger   *logrus.Logger
	resolver fingerprint.Resolver
}

func NewFingerPrintMiddleware(
	logger *logrus.Logger,
	resolver fingerprint.Resolver,
) Middleware {
	return &fingerPrintMiddleware{
		logger:   logger,
		resolver: resolver,
	}
}

// Middleware stores the client id and a trace id in both the fiber locals and
// the user context, and echoes the client id back to the caller.
func (m *fingerPrintMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		clientID := m.resolver.MakeFingerprint(ctx).ID()
		ctx.Locals(common.FingerprintIdContextKey, clientID)
		ctx.Set(common.ClientIDHeader, clientID)

		traceID := uuid.New().String()
		ctx.Locals(common.TraceIdKey, traceID)

		c := context.WithValue(ctx.UserContext(), common.FingerprintIdContextKey, clientID)
		c = context.WithValue(c, common.TraceIdKey, traceID)
		ctx.SetUserContext(c)
		return ctx.Next()
	}
}

// ClientID returns the id set by the fingerprint middleware.
func ClientID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(common.FingerprintIdContextKey).(string)
	return id
}
