package detector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/regulation"
	"github.com/ApexGov/inspector/pkg/infra/httpx"
	"github.com/valyala/fastjson"
)

const (
	detectPath     = "/api/detect"
	uploadField    = "file"
	uploadFileName = "scan.jpg"
)

// Client talks to a self-hosted detector that answers with
// {violations, confidenceScore, summary}.
//
//go:generate mockery --name=Client --dir=. --output=./mocks --filename=detector_client_mock.go --case=underscore --with-expecter
type Client interface {
	Detect(ctx context.Context, image []byte, mimeType string) (*domainAnalysis.Result, error)
}

type client struct {
	baseURL    string
	httpClient httpx.Client
	breaker    httpx.CircuitBreaker
}

func NewClient(baseURL string, httpClient httpx.Client, breaker httpx.CircuitBreaker) Client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
	}
}

var parserPool fastjson.ParserPool

type reply struct {
	Violations      []violation
	ConfidenceScore float64
	Summary         string
}

type violation struct {
	Title               string
	Description         *string
	Severity            string
	RegulationReference *string
	RegulationHint      *string
	FineAmount          *float64
	Location            *string
}

func (c *client) Detect(ctx context.Context, image []byte, mimeType string) (*domainAnalysis.Result, error) {
	var body []byte
	call := func() error {
		var err error
		body, err = c.post(ctx, image, mimeType)
		return err
	}
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}

	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detector reply: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("failed to decode detector reply: got a %s, not an object", v.Type())
	}
	parsed, err := decodeReply(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode detector reply: %w", err)
	}
	return parsed.toResult(), nil
}

func (c *client) post(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	var payload bytes.Buffer
	writer := multipart.NewWriter(&payload)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, uploadFileName))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	header.Set("Content-Type", mimeType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(image); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept-Encoding", "br, gzip, zstd")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read detector reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}
	return body, nil
}

// decodeReply reads the detector's loosely typed JSON. Numbers may arrive
// as strings and unknown fields are ignored.
func decodeReply(v *fastjson.Value) (reply, error) {
	var r reply
	var err error
	if r.ConfidenceScore, err = number(v, "confidenceScore"); err != nil {
		return r, err
	}
	r.Summary = text(v, "summary")

	items := v.Get("violations")
	if items == nil || items.Type() == fastjson.TypeNull {
		return r, nil
	}
	arr, err := items.Array()
	if err != nil {
		return r, fmt.Errorf("violations: %w", err)
	}
	for i, item := range arr {
		if item.Type() != fastjson.TypeObject {
			return r, fmt.Errorf("violation %d is a %s", i, item.Type())
		}
		vi := violation{
			Title:               text(item, "title"),
			Description:         optionalText(item, "description"),
			Severity:            text(item, "severity"),
			RegulationReference: optionalText(item, "regulationReference"),
			RegulationHint:      optionalText(item, "regulationHint"),
			Location:            optionalText(item, "location"),
		}
		if item.Exists("fineAmount") && item.Get("fineAmount").Type() != fastjson.TypeNull {
			fine, err := number(item, "fineAmount")
			if err != nil {
				return r, fmt.Errorf("violation %d: %w", i, err)
			}
			vi.FineAmount = &fine
		}
		r.Violations = append(r.Violations, vi)
	}
	return r, nil
}

func number(v *fastjson.Value, key string) (float64, error) {
	field := v.Get(key)
	if field == nil {
		return 0, nil
	}
	switch field.Type() {
	case fastjson.TypeNumber:
		return field.Float64()
	case fastjson.TypeString:
		f, err := strconv.ParseFloat(string(field.GetStringBytes()), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	case fastjson.TypeNull:
		return 0, nil
	default:
		return 0, fmt.Errorf("%s: expected a number, got %s", key, field.Type())
	}
}

func text(v *fastjson.Value, key string) string {
	if s := optionalText(v, key); s != nil {
		return *s
	}
	return ""
}

func optionalText(v *fastjson.Value, key string) *string {
	field := v.Get(key)
	if field == nil {
		return nil
	}
	var s string
	switch field.Type() {
	case fastjson.TypeString:
		s = string(field.GetStringBytes())
	case fastjson.TypeNumber:
		s = field.String()
	default:
		return nil
	}
	return &s
}

func (r reply) toResult() *domainAnalysis.Result {
	reasoning := domainAnalysis.LocalReasoning
	result := &domainAnalysis.Result{
		Issues:                make([]domainAnalysis.Issue, 0, len(r.Violations)),
		ConfidenceScore:       r.ConfidenceScore,
		SummaryText:           r.Summary,
		IsAuthenticEvidence:   true,
		AuthenticityReasoning: &reasoning,
		Source:                domainAnalysis.SourceLocal,
	}
	if result.SummaryText == "" {
		result.SummaryText = domainAnalysis.LocalDefaultSummary
	}
	switch {
	case result.ConfidenceScore < 0:
		result.ConfidenceScore = 0
	case result.ConfidenceScore > domainAnalysis.MaxConfidenceScore:
		result.ConfidenceScore = domainAnalysis.MaxConfidenceScore
	}
	for _, v := range r.Violations {
		issue := domainAnalysis.Issue{
			Title:               v.Title,
			Description:         v.Description,
			Severity:            regulation.ParseSeverity(v.Severity),
			RegulationReference: v.RegulationReference,
			Location:            v.Location,
		}
		if issue.RegulationReference == nil {
			issue.RegulationReference = v.RegulationHint
		}
		if v.FineAmount != nil && *v.FineAmount >= 0 {
			issue.FineAmount = v.FineAmount
		}
		result.Issues = append(result.Issues, issue)
	}
	return result
}
