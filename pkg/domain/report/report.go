package report

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/geo"
	"github.com/google/uuid"
)

const (
	numberPrefix    = "RPT"
	randomSuffixLen = 7
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Report is a persisted citation. Only fuzzy coordinates are stored.
type Report struct {
	ID             uuid.UUID             `json:"id" gorm:"type:uuid;primaryKey"`
	ReportNumber   string                `json:"report_number" gorm:"uniqueIndex"`
	ClientID       string                `json:"-"`
	Result         domainAnalysis.Result `json:"result" gorm:"type:jsonb;serializer:json"`
	TotalFine      float64               `json:"total_fine"`
	FuzzyLatitude  *float64              `json:"latitude,omitempty"`
	FuzzyLongitude *float64              `json:"longitude,omitempty"`
	LocationLabel  string                `json:"location,omitempty"`
	EvidenceURL    string                `json:"evidence_url,omitempty"`
	Source         string                `json:"-"`
	CreatedAt      time.Time             `json:"created_at"`
}

func (r Report) TableName() string {
	return "reports"
}

// New builds an unsaved report for result. location may be nil.
func New(number, clientID string, result *domainAnalysis.Result, location *geo.Location, now time.Time) *Report {
	r := &Report{
		ID:           uuid.New(),
		ReportNumber: number,
		ClientID:     clientID,
		Result:       *result,
		TotalFine:    result.TotalFine(),
		Source:       string(result.Source),
		CreatedAt:    now.UTC(),
	}
	if location != nil {
		lat, lng := location.FuzzyLatitude, location.FuzzyLongitude
		r.FuzzyLatitude = &lat
		r.FuzzyLongitude = &lng
		r.LocationLabel = location.Format()
	}
	return r
}

// NewNumber renders RPT-<base36 unix ms>-<7 random base36>, upper-cased.
func NewNumber(now time.Time) (string, error) {
	suffix := make([]byte, randomSuffixLen)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = base36Alphabet[n.Int64()]
	}
	number := numberPrefix + "-" + strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(suffix)
	return strings.ToUpper(number), nil
}

// CreatedEvent is published once a report has been stored.
type CreatedEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	Type         string    `json:"type"`
	ReportNumber string    `json:"report_number"`
	ClientID     string    `json:"client_id,omitempty"`
	TotalFine    float64   `json:"total_fine"`
	IssueCount   int       `json:"issue_count"`
	Authentic    bool      `json:"authentic"`
	Source       string    `json:"source"`
	EvidenceURL  string    `json:"evidence_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
