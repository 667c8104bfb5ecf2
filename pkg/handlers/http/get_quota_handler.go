package http

import (
	"github.com/ApexGov/inspector/pkg/app/quota"
	"github.com/ApexGov/inspector/pkg/handlers/http/response"
	"github.com/ApexGov/inspector/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getQuotaHandler struct {
	logger  *logrus.Logger
	tracker quota.Tracker
}

func NewGetQuotaHandler(logger *logrus.Logger, tracker quota.Tracker) Handler {
	return &getQuotaHandler{
		logger:  logger,
		tracker: tracker,
	}
}

// Handle @Summary Peek the caller's upload quota
// @Description Reports remaining uploads without consuming one
// @Tags Quota
// @Produce json
// @Success 200 {object} response.QuotaOutput
// @Failure 503 {object} map[string]interface{} "Quota storage unavailable"
// @Router /api/v1/quota [get]
func (h *getQuotaHandler) Handle(c *fiber.Ctx) error {
	clientID := middleware.ClientID(c)
	status, err := h.tracker.Peek(c.UserContext(), clientID)
	if err != nil {
		h.logger.WithError(err).WithField("client_id", clientID).Error("quota peek failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": msgQuotaUnavailable})
	}

	limit := h.tracker.Config().Limit
	setRateLimitHeaders(c, limit, status.Remaining, status.ResetAt)
	return c.Status(fiber.StatusOK).JSON(response.QuotaOutput{
		Limit:     limit,
		Remaining: status.Remaining,
		ResetAt:   status.ResetAt,
	})
}
