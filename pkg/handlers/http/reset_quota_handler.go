package http

import (
	"github.com/ApexGov/inspector/pkg/app/quota"
	"github.com/ApexGov/inspector/pkg/handlers/http/request"
	"github.com/ApexGov/inspector/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type resetQuotaHandler struct {
	logger  *logrus.Logger
	tracker quota.Tracker
}

func NewResetQuotaHandler(logger *logrus.Logger, tracker quota.Tracker) Handler {
	return &resetQuotaHandler{
		logger:  logger,
		tracker: tracker,
	}
}

// Handle @Summary Reset a client's upload quota
// @Description Deletes the stored quota window of a client
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer admin token"
// @Param request body request.ResetQuotaRequest true "Client to reset"
// @Success 204 "Quota reset"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 503 {object} map[string]interface{} "Quota storage unavailable"
// @Router /api/v1/admin/quota/reset [post]
func (h *resetQuotaHandler) Handle(c *fiber.Ctx) error {
	var req request.ResetQuotaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := h.tracker.Reset(c.UserContext(), req.ClientID); err != nil {
		h.logger.WithError(err).WithField("client_id", req.ClientID).Error("quota reset failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": msgQuotaUnavailable})
	}

	h.logger.WithFields(logrus.Fields{
		"client_id": req.ClientID,
		"admin":     c.Locals(middleware.AdminSubjectKey),
	}).Info("quota reset by admin")
	return c.SendStatus(fiber.StatusNoContent)
}
