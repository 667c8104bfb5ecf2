package response

import (
	"time"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/geo"
	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
)

type AnalyzeOutput struct {
	ReportNumber string                 `json:"report_number"`
	Result       *domainAnalysis.Result `json:"result"`
	TotalFine    float64                `json:"total_fine"`
	Compliant    bool                   `json:"compliant"`
	Location     *LocationOutput        `json:"location,omitempty"`
	EvidenceURL  string                 `json:"evidence_url,omitempty"`
	Quota        QuotaOutput            `json:"quota"`
	CreatedAt    time.Time              `json:"created_at"`
}

type LocationOutput struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
	InLahore  bool    `json:"in_lahore"`
}

func NewAnalyzeOutput(r *domainReport.Report, quota QuotaOutput) AnalyzeOutput {
	out := AnalyzeOutput{
		ReportNumber: r.ReportNumber,
		Result:       &r.Result,
		TotalFine:    r.TotalFine,
		Compliant:    r.Result.Compliant(),
		EvidenceURL:  r.EvidenceURL,
		Quota:        quota,
		CreatedAt:    r.CreatedAt,
	}
	if r.FuzzyLatitude != nil && r.FuzzyLongitude != nil {
		out.Location = &LocationOutput{
			Latitude:  *r.FuzzyLatitude,
			Longitude: *r.FuzzyLongitude,
			Label:     r.LocationLabel,
			InLahore:  geo.InLahore(*r.FuzzyLatitude, *r.FuzzyLongitude),
		}
	}
	return out
}
