package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/ApexGov/inspector/pkg/common"
	"github.com/ApexGov/inspector/pkg/infra/fingerprint"
	"github.com/ApexGov/inspector/pkg/infra/jwt"
	"github.com/ApexGov/inspector/pkg/infra/jwt/mocks"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func ok(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func TestAdminAuth(t *testing.T) {
	manager := new(mocks.Manager)
	manager.On("ValidateToken", "good").Return(&jwt.Claims{Role: jwt.AdminRole}, nil)
	manager.On("ValidateToken", "bad").Return(nil, jwt.ErrInvalidToken)

	app := fiber.New()
	app.Use(NewAdminAuthMiddleware(quietLogger(), manager).Middleware())
	app.Post("/reset", ok)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized},
		{"empty bearer", "Bearer ", fiber.StatusUnauthorized},
		{"invalid", "Bearer bad", fiber.StatusUnauthorized},
		{"valid", "Bearer good", fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/reset", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestFingerprint_SetsClientIDHeaderAndLocals(t *testing.T) {
	app := fiber.New()
	app.Use(NewFingerPrintMiddleware(quietLogger(), fingerprint.NewResolver(true)).Middleware())

	var fromLocals, fromContext string
	app.Get("/", func(c *fiber.Ctx) error {
		fromLocals = ClientID(c)
		fromContext, _ = c.UserContext().Value(common.FingerprintIdContextKey).(string)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Real-IP", "203.0.113.5")
	resp, err := app.Test(req)
	require.NoError(t, err)

	want := fingerprint.New("203.0.113.5", "").ID()
	assert.Equal(t, want, resp.Header.Get(common.ClientIDHeader))
	assert.Equal(t, want, fromLocals)
	assert.Equal(t, want, fromContext)
}

func TestPanicRecover(t *testing.T) {
	app := fiber.New()
	app.Use(NewPanicRecoverMiddleware(quietLogger()).Middleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(body))
}

func TestMetrics_PassesErrorsThrough(t *testing.T) {
	app := fiber.New()
	app.Use(NewMetricsMiddleware(prometheus.DefaultMetricsConfig()).Middleware())
	app.Get("/reports/:report_number", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "nope")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return errors.New("plain")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/reports/RPT-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(NewCORSGlobalMiddleware([]string{"https://apexgov.pk"}, "600").Middleware())
	app.Post("/api/v1/analyze", ok)

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/api/v1/analyze", nil)
		req.Header.Set("Origin", "https://apexgov.pk")
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "https://apexgov.pk", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "600", resp.Header.Get("Access-Control-Max-Age"))
		assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), common.AnalysisSourceHeader)
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/v1/analyze", nil)
		req.Header.Set("Origin", "https://evil.example")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	})
}
