package http

import (
	"strconv"
	"time"

	"github.com/ApexGov/inspector/pkg/common"
	"github.com/gofiber/fiber/v2"
)

func setRateLimitHeaders(c *fiber.Ctx, limit, remaining int, resetAt time.Time) {
	c.Set(common.RateLimitPrefix+"-Limit", strconv.Itoa(limit))
	c.Set(common.RateLimitPrefix+"-Remaining", strconv.Itoa(remaining))
	c.Set(common.RateLimitPrefix+"-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// retryAfterSeconds rounds up so clients never retry a moment too early.
func retryAfterSeconds(wait time.Duration) int64 {
	secs := int64(wait / time.Second)
	if wait%time.Second != 0 {
		secs++
	}
	return secs
}
