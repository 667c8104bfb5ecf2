package middleware

import (
	"strings"

	"github.com/ApexGov/inspector/pkg/common"
	"github.com/gofiber/fiber/v2"
)

var (
	corsAllowMethods  = []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}
	corsExposeHeaders = []string{
		common.ClientIDHeader,
		common.AnalysisSourceHeader,
		common.RateLimitPrefix + "-Limit",
		common.RateLimitPrefix + "-Remaining",
		common.RateLimitPrefix + "-Reset",
		fiber.HeaderRetryAfter,
	}
)

type corsGlobalMiddleware struct {
	allowOrigins []string
	maxAge       string
}

// NewCORSGlobalMiddleware answers preflights for the browser client and
// exposes the quota and analysis headers. An empty origin list disables CORS.
func NewCORSGlobalMiddleware(allowOrigins []string, maxAge string) Middleware {
	return &corsGlobalMiddleware{
		allowOrigins: allowOrigins,
		maxAge:       maxAge,
	}
}

func (m *corsGlobalMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderXFrameOptions, "DENY")
		c.Set(fiber.HeaderReferrerPolicy, "no-referrer")

		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" || !m.allowed(origin) {
			return c.Next()
		}

		c.Vary(fiber.HeaderOrigin)
		if hasStar(m.allowOrigins) {
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		} else {
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		}
		c.Set(fiber.HeaderAccessControlExposeHeaders, strings.Join(corsExposeHeaders, ", "))

		if c.Method() == fiber.MethodOptions && c.Get(fiber.HeaderAccessControlRequestMethod) != "" {
			c.Set(fiber.HeaderAccessControlAllowMethods, strings.Join(corsAllowMethods, ", "))
			if reqHeaders := c.Get(fiber.HeaderAccessControlRequestHeaders); reqHeaders != "" {
				c.Set(fiber.HeaderAccessControlAllowHeaders, reqHeaders)
			} else {
				c.Set(fiber.HeaderAccessControlAllowHeaders, fiber.HeaderContentType)
			}
			if m.maxAge != "" {
				c.Set(fiber.HeaderAccessControlMaxAge, m.maxAge)
			}
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func (m *corsGlobalMiddleware) allowed(origin string) bool {
	for _, o := range m.allowOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func hasStar(arr []string) bool {
	for _, v := range arr {
		if v == "*" {
			return true
		}
	}
	return false
}
