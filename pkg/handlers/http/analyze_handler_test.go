package http

import (
	"context"
	"errors"
	"testing"
	"time"

	analysisMocks "github.com/ApexGov/inspector/pkg/app/analysis/mocks"
	quotaMocks "github.com/ApexGov/inspector/pkg/app/quota/mocks"
	"github.com/ApexGov/inspector/pkg/app/report"
	reportMocks "github.com/ApexGov/inspector/pkg/app/report/mocks"
	"github.com/ApexGov/inspector/pkg/app/upload"
	uploadMocks "github.com/ApexGov/inspector/pkg/app/upload/mocks"
	"github.com/ApexGov/inspector/pkg/common"
	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	domainQuota "github.com/ApexGov/inspector/pkg/domain/quota"
	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testNow   = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rawImage  = []byte("raw-image")
	cleanJPEG = []byte("clean-jpeg")
)

type analyzeFixture struct {
	validator *uploadMocks.Validator
	sanitizer *uploadMocks.Sanitizer
	guard     *uploadMocks.Guard
	tracker   *quotaMocks.Tracker
	contract  *analysisMocks.Contract
	creator   *reportMocks.Creator
	app       *fiber.App
}

func newAnalyzeFixture(withGuard bool) *analyzeFixture {
	f := &analyzeFixture{
		validator: new(uploadMocks.Validator),
		sanitizer: new(uploadMocks.Sanitizer),
		guard:     new(uploadMocks.Guard),
		tracker:   new(quotaMocks.Tracker),
		contract:  new(analysisMocks.Contract),
		creator:   new(reportMocks.Creator),
		app:       fiber.New(),
	}
	f.tracker.On("Config").Return(domainQuota.Config{Key: common.DefaultQuotaKey, Limit: 3, Window: 24 * time.Hour}).Maybe()

	opts := AnalyzeOptions{TimeProvider: func() time.Time { return testNow }}
	if withGuard {
		opts.Guard = f.guard
	}
	h := NewAnalyzeHandler(quietLogger(), f.validator, f.sanitizer, f.tracker, f.contract, f.creator, opts)
	f.app.Use(func(c *fiber.Ctx) error {
		c.Locals(common.FingerprintIdContextKey, "client-1")
		return c.Next()
	})
	f.app.Post("/api/v1/analyze", h.Handle)
	return f
}

func (f *analyzeFixture) validUpload() {
	f.validator.On("Validate", "site.jpg", rawImage).Return("image/jpeg", nil)
	f.sanitizer.On("Sanitize", rawImage).Return(cleanJPEG, nil)
}

func TestAnalyze_Success(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	resetAt := testNow.Add(24 * time.Hour)
	f.tracker.On("Check", mock.Anything, "client-1").
		Return(domainQuota.Decision{Allowed: true, Remaining: 2, ResetAt: resetAt}, nil)

	fine := 5000.0
	result := &domainAnalysis.Result{
		Issues:              []domainAnalysis.Issue{{Title: "Blocked exit", Severity: "High", FineAmount: &fine}},
		ConfidenceScore:     88,
		SummaryText:         "One violation",
		IsAuthenticEvidence: true,
		Source:              domainAnalysis.SourceRemote,
	}
	f.contract.On("Submit", mock.Anything, mock.MatchedBy(func(req *domainAnalysis.Request) bool {
		return string(req.Image) == string(cleanJPEG) && req.Location != nil && req.Location.FuzzyLatitude == 31.52
	})).Return(result, nil)
	f.creator.On("Create", mock.Anything, mock.MatchedBy(func(req report.CreateRequest) bool {
		return req.ClientID == "client-1" && string(req.Evidence) == string(cleanJPEG)
	})).Return(func() *domainReport.Report {
		r := domainReport.New("RPT-M7K2-ABCDEFG", "client-1", result, nil, testNow)
		lat, lng := 31.52, 74.36
		r.FuzzyLatitude, r.FuzzyLongitude = &lat, &lng
		return r
	}(), nil)

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, map[string]string{
		"latitude":  "31.5204",
		"longitude": "74.3587",
	}))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "remote", resp.Header.Get(common.AnalysisSourceHeader))
	assert.Equal(t, "3", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Remaining"))
	body := decodeBody(t, resp)
	assert.Equal(t, "RPT-M7K2-ABCDEFG", body["report_number"])
	assert.Equal(t, 5000.0, body["total_fine"])
	assert.Equal(t, false, body["compliant"])
	assert.Equal(t, true, body["location"].(map[string]interface{})["in_lahore"])
	assert.Equal(t, 2.0, body["quota"].(map[string]interface{})["remaining"])
	assert.NotContains(t, body["result"], "Source")
}

func TestAnalyze_MissingFile(t *testing.T) {
	f := newAnalyzeFixture(false)

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "", nil, map[string]string{"latitude": "1"}))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	f.tracker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestAnalyze_ValidationFailureDoesNotConsumeQuota(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validator.On("Validate", "site.jpg", rawImage).Return("", upload.NewValidationError(upload.MsgUnsupportedType))

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, upload.MsgUnsupportedType, decodeBody(t, resp)["error"])
	f.tracker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestAnalyze_InvalidLocation(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validator.On("Validate", "site.jpg", rawImage).Return("image/jpeg", nil)

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, map[string]string{
		"latitude":  "200",
		"longitude": "74.3",
	}))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	f.tracker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestAnalyze_TextGuardRejects(t *testing.T) {
	f := newAnalyzeFixture(true)
	f.validUpload()
	f.guard.On("Check", cleanJPEG).Return(upload.NewValidationError(upload.MsgSuspiciousText))

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, upload.MsgSuspiciousText, decodeBody(t, resp)["error"])
	f.tracker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything)
}

func TestAnalyze_QuotaExhausted(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	resetAt := testNow.Add(90*time.Minute + 500*time.Millisecond)
	f.tracker.On("Check", mock.Anything, "client-1").
		Return(domainQuota.Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil)

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "5401", resp.Header.Get("Retry-After"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	body := decodeBody(t, resp)
	assert.Equal(t, 0.0, body["remaining"])
	assert.Equal(t, 5401.0, body["retry_after"])
	f.contract.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestAnalyze_QuotaStorageFailure(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	f.tracker.On("Check", mock.Anything, "client-1").Return(domainQuota.Decision{}, errors.New("redis down"))

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	f.contract.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestAnalyze_SchemaViolation(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	f.tracker.On("Check", mock.Anything, "client-1").
		Return(domainQuota.Decision{Allowed: true, Remaining: 1, ResetAt: testNow.Add(time.Hour)}, nil)
	f.contract.On("Submit", mock.Anything, mock.Anything).
		Return(nil, domainAnalysis.NewSchemaViolation("isAuthenticEvidence", "missing"))

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "isAuthenticEvidence", decodeBody(t, resp)["field"])
	f.creator.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAnalyze_FallbackIsStillAReport(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	f.tracker.On("Check", mock.Anything, "client-1").
		Return(domainQuota.Decision{Allowed: true, Remaining: 0, ResetAt: testNow.Add(time.Hour)}, nil)
	fallback := domainAnalysis.Fallback()
	f.contract.On("Submit", mock.Anything, mock.Anything).Return(fallback, nil)
	f.creator.On("Create", mock.Anything, mock.Anything).
		Return(domainReport.New("RPT-M7K2-0000000", "client-1", fallback, nil, testNow), nil)

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "fallback", resp.Header.Get(common.AnalysisSourceHeader))
	assert.Equal(t, true, decodeBody(t, resp)["compliant"])
}

func TestAnalyze_AppliesTimeout(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	f.tracker.On("Check", mock.Anything, "client-1").
		Return(domainQuota.Decision{Allowed: true, Remaining: 2, ResetAt: testNow.Add(time.Hour)}, nil)
	f.contract.On("Submit", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(domainAnalysis.Fallback(), nil)
	f.creator.On("Create", mock.Anything, mock.Anything).
		Return(domainReport.New("RPT-M7K2-0000001", "client-1", domainAnalysis.Fallback(), nil, testNow), nil)

	h := NewAnalyzeHandler(quietLogger(), f.validator, f.sanitizer, f.tracker, f.contract, f.creator,
		AnalyzeOptions{Timeout: time.Minute})
	app := fiber.New()
	app.Post("/api/v1/analyze", func(c *fiber.Ctx) error {
		c.Locals(common.FingerprintIdContextKey, "client-1")
		return h.Handle(c)
	})

	resp, err := app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	f.contract.AssertExpectations(t)
}

func TestAnalyze_ReportFailure(t *testing.T) {
	f := newAnalyzeFixture(false)
	f.validUpload()
	f.tracker.On("Check", mock.Anything, "client-1").
		Return(domainQuota.Decision{Allowed: true, Remaining: 2, ResetAt: testNow.Add(time.Hour)}, nil)
	f.contract.On("Submit", mock.Anything, mock.Anything).Return(domainAnalysis.Fallback(), nil)
	f.creator.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	resp, err := f.app.Test(multipartRequest(t, "/api/v1/analyze", "site.jpg", rawImage, nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
