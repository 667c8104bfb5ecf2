package http

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	appAnalysis "github.com/ApexGov/inspector/pkg/app/analysis"
	"github.com/ApexGov/inspector/pkg/app/quota"
	"github.com/ApexGov/inspector/pkg/app/report"
	"github.com/ApexGov/inspector/pkg/app/upload"
	"github.com/ApexGov/inspector/pkg/common"
	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/geo"
	"github.com/ApexGov/inspector/pkg/handlers/http/response"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/ApexGov/inspector/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	msgFileRequired       = "An image file is required"
	msgInvalidLocation    = "Invalid location coordinates"
	msgQuotaExceeded      = "Upload limit reached. Try again after the reset time"
	msgQuotaUnavailable   = "Quota service unavailable"
	msgAnalysisRejected   = "Analysis reply was rejected"
	msgReportNotPersisted = "Failed to store report"
)

type AnalyzeOptions struct {
	// Guard is the optional OCR text guard.
	Guard upload.Guard
	// Timeout bounds the analysis call. Zero disables it.
	Timeout      time.Duration
	TimeProvider func() time.Time
}

type analyzeHandler struct {
	logger       *logrus.Logger
	validator    upload.Validator
	sanitizer    upload.Sanitizer
	guard        upload.Guard
	tracker      quota.Tracker
	contract     appAnalysis.Contract
	creator      report.Creator
	timeout      time.Duration
	timeProvider func() time.Time
}

func NewAnalyzeHandler(
	logger *logrus.Logger,
	validator upload.Validator,
	sanitizer upload.Sanitizer,
	tracker quota.Tracker,
	contract appAnalysis.Contract,
	creator report.Creator,
	opts AnalyzeOptions,
) Handler {
	h := &analyzeHandler{
		logger:       logger,
		validator:    validator,
		sanitizer:    sanitizer,
		guard:        opts.Guard,
		tracker:      tracker,
		contract:     contract,
		creator:      creator,
		timeout:      opts.Timeout,
		timeProvider: opts.TimeProvider,
	}
	if h.timeProvider == nil {
		h.timeProvider = time.Now
	}
	return h
}

// Handle @Summary Analyze a building photograph
// @Description Validates the upload, consumes one quota slot, runs the violation analysis and stores a citation report
// @Tags Inspection
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Building photograph (JPEG, PNG or WebP)"
// @Param latitude formData number false "Latitude"
// @Param longitude formData number false "Longitude"
// @Param accuracy formData number false "Fix accuracy in meters"
// @Success 200 {object} response.AnalyzeOutput
// @Failure 400 {object} map[string]interface{} "Invalid upload"
// @Failure 429 {object} response.QuotaExceededOutput "Quota exhausted"
// @Failure 502 {object} map[string]interface{} "Analysis reply rejected"
// @Failure 503 {object} map[string]interface{} "Quota storage unavailable"
// @Router /api/v1/analyze [post]
func (h *analyzeHandler) Handle(c *fiber.Ctx) error {
	clientID := middleware.ClientID(c)
	logger := h.logger.WithField("client_id", clientID)

	filename, data, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgFileRequired})
	}

	mimeType, err := h.validator.Validate(filename, data)
	if err != nil {
		return h.rejectUpload(c, logger, err)
	}

	location, err := h.parseLocation(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msgInvalidLocation})
	}

	sanitized, err := h.sanitizer.Sanitize(data)
	if err != nil {
		return h.rejectUpload(c, logger, err)
	}

	if h.guard != nil {
		if err := h.guard.Check(sanitized); err != nil {
			return h.rejectUpload(c, logger, err)
		}
	}

	ctx := c.UserContext()
	limit := h.tracker.Config().Limit
	decision, err := h.tracker.Check(ctx, clientID)
	if err != nil {
		prometheus.QuotaDecisionsTotal.WithLabelValues("error").Inc()
		logger.WithError(err).Error("quota check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": msgQuotaUnavailable})
	}
	setRateLimitHeaders(c, limit, decision.Remaining, decision.ResetAt)
	if !decision.Allowed {
		prometheus.QuotaDecisionsTotal.WithLabelValues("denied").Inc()
		retryAfter := retryAfterSeconds(decision.RetryAfter(h.timeProvider()))
		c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
		logger.WithField("reset_at", decision.ResetAt).Info("upload quota exhausted")
		return c.Status(fiber.StatusTooManyRequests).JSON(response.QuotaExceededOutput{
			Error:      msgQuotaExceeded,
			Remaining:  0,
			ResetAt:    decision.ResetAt,
			RetryAfter: retryAfter,
		})
	}
	prometheus.QuotaDecisionsTotal.WithLabelValues("allowed").Inc()

	result, err := h.submit(ctx, &domainAnalysis.Request{
		Image:    sanitized,
		MIMEType: "image/jpeg",
		Location: location,
	})
	if err != nil {
		var violation *domainAnalysis.SchemaViolationError
		if errors.As(err, &violation) {
			logger.WithFields(logrus.Fields{
				"field":  violation.Field,
				"reason": violation.Reason,
			}).Warn("analysis reply violated schema")
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": msgAnalysisRejected,
				"field": violation.Field,
			})
		}
		logger.WithError(err).Error("analysis failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": msgAnalysisRejected})
	}
	c.Set(common.AnalysisSourceHeader, string(result.Source))

	created, err := h.creator.Create(ctx, report.CreateRequest{
		ClientID: clientID,
		Result:   result,
		Location: location,
		Evidence: sanitized,
	})
	if err != nil {
		logger.WithError(err).Error("failed to create report")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgReportNotPersisted})
	}

	logger.WithFields(logrus.Fields{
		"report_number": created.ReportNumber,
		"source":        result.Source,
		"issues":        len(result.Issues),
		"original_mime": mimeType,
		"filename":      upload.SanitizeFileName(filename),
	}).Info("inspection completed")

	return c.Status(fiber.StatusOK).JSON(response.NewAnalyzeOutput(created, response.QuotaOutput{
		Limit:     limit,
		Remaining: decision.Remaining,
		ResetAt:   decision.ResetAt,
	}))
}

func (h *analyzeHandler) submit(ctx context.Context, req *domainAnalysis.Request) (*domainAnalysis.Result, error) {
	if h.timeout <= 0 {
		return h.contract.Submit(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.contract.Submit(ctx, req)
}

func (h *analyzeHandler) rejectUpload(c *fiber.Ctx, logger *logrus.Entry, err error) error {
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		logger.WithError(err).Info("upload rejected")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Message})
	}
	logger.WithError(err).Error("failed to process upload")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": upload.MsgUndecodable})
}

// parseLocation returns nil when no coordinates were sent.
func (h *analyzeHandler) parseLocation(c *fiber.Ctx) (*geo.Location, error) {
	rawLat, rawLng := c.FormValue("latitude"), c.FormValue("longitude")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, err
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil, err
	}
	var accuracy float64
	if raw := c.FormValue("accuracy"); raw != "" {
		if accuracy, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, err
		}
	}
	return geo.NewLocation(lat, lng, accuracy, h.timeProvider())
}

func readUpload(c *fiber.Ctx) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}
