package fingerprint

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var forwardedHeaders = []string{
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Original-Forwarded-For",
	"True-Client-IP",
	"CF-Connecting-IP",
}

//go:generate mockery --name=Resolver --dir=. --output=./mocks --filename=fingerprint_resolver_mock.go --case=underscore --with-expecter
type Resolver interface {
	MakeFingerprint(ctx *fiber.Ctx) Fingerprint
}

type resolver struct {
	trustProxy bool
}

// NewResolver builds a resolver. Forwarding headers are only honoured when
// trustProxy is set.
func NewResolver(trustProxy bool) Resolver {
	return &resolver{trustProxy: trustProxy}
}

func (r *resolver) MakeFingerprint(ctx *fiber.Ctx) Fingerprint {
	return New(r.clientIP(ctx), ctx.Get(fiber.HeaderUserAgent))
}

func (r *resolver) clientIP(ctx *fiber.Ctx) string {
	if r.trustProxy {
		for _, header := range forwardedHeaders {
			value := ctx.Get(header)
			if value == "" {
				continue
			}
			ip := strings.TrimSpace(strings.Split(value, ",")[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	return strings.TrimSpace(ctx.IP())
}
