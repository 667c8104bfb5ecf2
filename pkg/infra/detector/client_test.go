package detector_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/regulation"
	"github.com/ApexGov/inspector/pkg/infra/detector"
	"github.com/ApexGov/inspector/pkg/infra/httpx"
	"github.com/ApexGov/inspector/pkg/infra/httpx/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDetect_MapsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/detect", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "scan.jpg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"violations": [
				{"title": "Blocked exit", "severity": "high", "regulationHint": "FIRE-EXT-001", "fineAmount": 50000},
				{"title": "Loose wiring", "fineAmount": -1}
			],
			"confidenceScore": 120
		}`))
	}))
	defer srv.Close()

	client := detector.NewClient(srv.URL+"/", httpx.NewFastHTTPClient(httpx.WithTimeout(5*time.Second)), nil)
	result, err := client.Detect(context.Background(), []byte{0xff, 0xd8, 0xff}, "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, domainAnalysis.SourceLocal, result.Source)
	assert.True(t, result.IsAuthenticEvidence)
	assert.Equal(t, domainAnalysis.LocalReasoning, *result.AuthenticityReasoning)
	assert.Equal(t, domainAnalysis.LocalDefaultSummary, result.SummaryText)
	assert.Equal(t, float64(100), result.ConfidenceScore)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, regulation.SeverityHigh, result.Issues[0].Severity)
	assert.Equal(t, "FIRE-EXT-001", *result.Issues[0].RegulationReference)
	assert.Equal(t, 50000.0, *result.Issues[0].FineAmount)
	assert.Equal(t, regulation.SeverityMedium, result.Issues[1].Severity)
	assert.Nil(t, result.Issues[1].FineAmount)
}

func TestDetect_EmptyReplyDefaults(t *testing.T) {
	httpClient := new(mocks.MockHTTPClient)
	httpClient.On("Do", mock.Anything).Return(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"summary":"ok"}`))}, nil
	}, nil)

	result, err := detector.NewClient("http://detector", httpClient, nil).Detect(context.Background(), []byte{1}, "")

	require.NoError(t, err)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Issues)
	assert.Equal(t, "ok", result.SummaryText)
	assert.Equal(t, float64(0), result.ConfidenceScore)
}

func TestDetect_Failures(t *testing.T) {
	t.Run("non-2xx", func(t *testing.T) {
		httpClient := new(mocks.MockHTTPClient)
		httpClient.On("Do", mock.Anything).Return(&http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("boom")),
		}, nil)
		_, err := detector.NewClient("http://detector", httpClient, nil).Detect(context.Background(), []byte{1}, "image/jpeg")
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("undecodable", func(t *testing.T) {
		httpClient := new(mocks.MockHTTPClient)
		httpClient.On("Do", mock.Anything).Return(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("<html>")),
		}, nil)
		_, err := detector.NewClient("http://detector", httpClient, nil).Detect(context.Background(), []byte{1}, "image/jpeg")
		assert.ErrorContains(t, err, "failed to parse detector reply")
	})

	t.Run("breaker opens", func(t *testing.T) {
		httpClient := new(mocks.MockHTTPClient)
		httpClient.On("Do", mock.Anything).Return(nil, errors.New("connection refused")).Once()
		breaker := httpx.NewCircuitBreaker("detector", time.Minute, 1)
		client := detector.NewClient("http://detector", httpClient, breaker)

		_, err := client.Detect(context.Background(), []byte{1}, "image/jpeg")
		assert.ErrorContains(t, err, "connection refused")

		_, err = client.Detect(context.Background(), []byte{1}, "image/jpeg")
		assert.True(t, httpx.IsOpen(err))
		httpClient.AssertNumberOfCalls(t, "Do", 1)
	})
}

func TestDetect_LooselyTypedReply(t *testing.T) {
	httpClient := new(mocks.MockHTTPClient)
	httpClient.On("Do", mock.Anything).Return(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{
			"violations": [
				{"title": "Cracked column", "severity": "low", "fineAmount": "25000", "location": null, "extra": [1, 2]},
				{"title": "Open shaft", "regulationReference": "STRUCT-002", "fineAmount": null}
			],
			"confidenceScore": "64.5",
			"summary": "Structural risk"
		}`))}, nil
	}, nil)

	result, err := detector.NewClient("http://detector", httpClient, nil).Detect(context.Background(), []byte{1}, "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, 64.5, result.ConfidenceScore)
	assert.Equal(t, "Structural risk", result.SummaryText)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, regulation.SeverityLow, result.Issues[0].Severity)
	assert.Equal(t, 25000.0, *result.Issues[0].FineAmount)
	assert.Nil(t, result.Issues[0].Location)
	assert.Equal(t, "STRUCT-002", *result.Issues[1].RegulationReference)
	assert.Nil(t, result.Issues[1].FineAmount)
}

func TestDetect_RejectsMistypedReply(t *testing.T) {
	for name, body := range map[string]string{
		"array":            `[{"title": "x"}]`,
		"violations field": `{"violations": "none"}`,
		"bad fine":         `{"violations": [{"title": "x", "fineAmount": "lots"}]}`,
		"bad confidence":   `{"confidenceScore": true}`,
	} {
		t.Run(name, func(t *testing.T) {
			httpClient := new(mocks.MockHTTPClient)
			httpClient.On("Do", mock.Anything).Return(&http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
			}, nil)

			_, err := detector.NewClient("http://detector", httpClient, nil).Detect(context.Background(), []byte{1}, "image/jpeg")

			assert.ErrorContains(t, err, "failed to decode detector reply")
		})
	}
}
