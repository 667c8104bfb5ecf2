package http

import (
	"regexp"
	"strings"

	"github.com/ApexGov/inspector/pkg/app/report"
	domain "github.com/ApexGov/inspector/pkg/domain/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var reportNumberPattern = regexp.MustCompile(`^RPT-[0-9A-Z]+-[0-9A-Z]{7}$`)

type getReportHandler struct {
	logger *logrus.Logger
	finder report.Finder
}

func NewGetReportHandler(logger *logrus.Logger, finder report.Finder) Handler {
	return &getReportHandler{
		logger: logger,
		finder: finder,
	}
}

// Handle @Summary Verify a citation report
// @Description Returns a stored report by its number
// @Tags Reports
// @Produce json
// @Param report_number path string true "Report number"
// @Success 200 {object} report.Report
// @Failure 400 {object} map[string]interface{} "Malformed report number"
// @Failure 404 {object} map[string]interface{} "Report not found"
// @Router /api/v1/reports/{report_number} [get]
func (h *getReportHandler) Handle(c *fiber.Ctx) error {
	number := strings.ToUpper(strings.TrimSpace(c.Params("report_number")))
	if !reportNumberPattern.MatchString(number) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid report_number"})
	}

	found, err := h.finder.Find(c.UserContext(), number)
	if err != nil {
		if domain.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report not found"})
		}
		h.logger.WithError(err).WithField("report_number", number).Error("failed to get report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to get report"})
	}
	return c.Status(fiber.StatusOK).JSON(found)
}
