package analysis

import (
	"errors"
	"fmt"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/regulation"
	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/valyala/fastjson"
)

// ErrMalformedReply marks a reply that cannot be read as a result at all.
// Callers treat it like a transport failure.
var ErrMalformedReply = errors.New("malformed analysis reply")

var parserPool fastjson.ParserPool

// Normalize validates a raw model reply and applies field defaults.
// isAuthenticEvidence is checked before anything is defaulted.
func Normalize(raw string, corpus *regulation.Corpus) (*domainAnalysis.Result, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(providers.StripCodeFence(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: reply is a %s, not an object", ErrMalformedReply, v.Type())
	}

	authentic, err := authenticity(v)
	if err != nil {
		return nil, err
	}

	result := &domainAnalysis.Result{
		Issues:              []domainAnalysis.Issue{},
		SummaryText:         domainAnalysis.DefaultSummary,
		IsAuthenticEvidence: authentic,
		Source:              domainAnalysis.SourceRemote,
	}

	if score := v.Get("confidenceScore"); present(score) {
		f, err := score.Float64()
		if err != nil {
			return nil, malformedField("confidenceScore", err)
		}
		result.ConfidenceScore = ClampConfidence(f)
	}

	summary, err := firstString(v, "summaryText", "summaryUrdu")
	if err != nil {
		return nil, err
	}
	if summary != nil && *summary != "" {
		result.SummaryText = *summary
	}

	if result.AuthenticityReasoning, err = optionalString(v, "authenticityReasoning"); err != nil {
		return nil, err
	}

	if issues := v.Get("issues"); present(issues) {
		items, err := issues.Array()
		if err != nil {
			return nil, malformedField("issues", err)
		}
		for i, item := range items {
			issue, err := normalizeIssue(item)
			if err != nil {
				return nil, fmt.Errorf("issue %d: %w", i, err)
			}
			result.Issues = append(result.Issues, EnrichIssue(issue, corpus))
		}
	}

	return result, nil
}

func authenticity(v *fastjson.Value) (bool, error) {
	field := v.Get("isAuthenticEvidence")
	if field == nil {
		return false, domainAnalysis.NewSchemaViolation("isAuthenticEvidence", "is required")
	}
	switch field.Type() {
	case fastjson.TypeTrue:
		return true, nil
	case fastjson.TypeFalse:
		return false, nil
	default:
		return false, domainAnalysis.NewSchemaViolation("isAuthenticEvidence", fmt.Sprintf("must be a boolean, got %s", field.Type()))
	}
}

func normalizeIssue(item *fastjson.Value) (domainAnalysis.Issue, error) {
	if item.Type() != fastjson.TypeObject {
		return domainAnalysis.Issue{}, fmt.Errorf("%w: issue is a %s", ErrMalformedReply, item.Type())
	}
	title, err := optionalString(item, "title")
	if err != nil {
		return domainAnalysis.Issue{}, err
	}
	if title == nil {
		return domainAnalysis.Issue{}, fmt.Errorf("%w: issue title is missing", ErrMalformedReply)
	}

	issue := domainAnalysis.Issue{Title: *title, Severity: domainAnalysis.DefaultIssueSeverity}
	if issue.Description, err = optionalString(item, "description"); err != nil {
		return domainAnalysis.Issue{}, err
	}
	severity, err := optionalString(item, "severity")
	if err != nil {
		return domainAnalysis.Issue{}, err
	}
	if severity != nil {
		issue.Severity = regulation.ParseSeverity(*severity)
	}
	if issue.RegulationReference, err = firstString(item, "regulationReference", "regulationHint"); err != nil {
		return domainAnalysis.Issue{}, err
	}
	if fine := item.Get("fineAmount"); present(fine) {
		f, err := fine.Float64()
		if err != nil {
			return domainAnalysis.Issue{}, malformedField("fineAmount", err)
		}
		if f >= 0 {
			issue.FineAmount = &f
		}
	}
	if issue.Location, err = optionalString(item, "location"); err != nil {
		return domainAnalysis.Issue{}, err
	}
	return issue, nil
}

// EnrichIssue fills a missing fine from the cited corpus entry.
func EnrichIssue(issue domainAnalysis.Issue, corpus *regulation.Corpus) domainAnalysis.Issue {
	if corpus == nil || issue.RegulationReference == nil || issue.FineAmount != nil {
		return issue
	}
	if entry, ok := corpus.Find(*issue.RegulationReference); ok {
		fine := entry.FineAmount
		issue.FineAmount = &fine
	}
	return issue
}

func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > domainAnalysis.MaxConfidenceScore:
		return domainAnalysis.MaxConfidenceScore
	default:
		return v
	}
}

func present(v *fastjson.Value) bool {
	return v != nil && v.Type() != fastjson.TypeNull
}

func optionalString(v *fastjson.Value, key string) (*string, error) {
	field := v.Get(key)
	if !present(field) {
		return nil, nil
	}
	b, err := field.StringBytes()
	if err != nil {
		return nil, malformedField(key, err)
	}
	s := string(b)
	return &s, nil
}

func firstString(v *fastjson.Value, keys ...string) (*string, error) {
	for _, key := range keys {
		s, err := optionalString(v, key)
		if err != nil || s != nil {
			return s, err
		}
	}
	return nil, nil
}

func malformedField(field string, err error) error {
	return fmt.Errorf("%w: field %q: %v", ErrMalformedReply, field, err)
}
