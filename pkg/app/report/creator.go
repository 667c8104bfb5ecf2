package report

import (
	"context"
	"fmt"
	"time"

	"github.com/ApexGov/inspector/pkg/common"
	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/geo"
	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/ApexGov/inspector/pkg/infra/events"
	"github.com/ApexGov/inspector/pkg/infra/evidence"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const evidenceContentType = "image/jpeg"

type CreateRequest struct {
	ClientID string
	Result   *domainAnalysis.Result
	Location *geo.Location
	// Evidence is the sanitized image. It is archived when a store is set.
	Evidence []byte
}

//go:generate mockery --name=Creator --dir=. --output=./mocks --filename=report_creator_mock.go --case=underscore --with-expecter
type Creator interface {
	Create(ctx context.Context, req CreateRequest) (*domainReport.Report, error)
}

type CreatorOptions struct {
	Evidence     evidence.Store
	Publisher    events.Publisher
	TimeProvider func() time.Time
}

type creator struct {
	logger       *logrus.Logger
	repo         domainReport.Repository
	evidence     evidence.Store
	publisher    events.Publisher
	timeProvider func() time.Time
}

func NewCreator(logger *logrus.Logger, repo domainReport.Repository, opts CreatorOptions) Creator {
	c := &creator{
		logger:       logger,
		repo:         repo,
		evidence:     opts.Evidence,
		publisher:    opts.Publisher,
		timeProvider: opts.TimeProvider,
	}
	if c.evidence == nil {
		c.evidence = evidence.NewNoopStore()
	}
	if c.publisher == nil {
		c.publisher = events.NewNoopPublisher()
	}
	if c.timeProvider == nil {
		c.timeProvider = time.Now
	}
	return c
}

// Create persists the report. Archiving and publishing are best effort.
func (c *creator) Create(ctx context.Context, req CreateRequest) (*domainReport.Report, error) {
	now := c.timeProvider()
	number, err := domainReport.NewNumber(now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report number: %w", err)
	}
	entity := domainReport.New(number, req.ClientID, req.Result, req.Location, now)

	if len(req.Evidence) > 0 {
		url, err := c.evidence.Put(ctx, evidence.ObjectName(number, now), req.Evidence, evidenceContentType)
		if err != nil {
			c.logger.WithField("report_number", number).WithError(err).Warn("failed to archive evidence")
		} else {
			entity.EvidenceURL = url
		}
	}

	if err := c.repo.Save(ctx, entity); err != nil {
		return nil, err
	}
	prometheus.ReportsCreatedTotal.Inc()

	event := domainReport.CreatedEvent{
		EventID:      uuid.New(),
		Type:         common.ReportCreatedEvent,
		ReportNumber: entity.ReportNumber,
		ClientID:     entity.ClientID,
		TotalFine:    entity.TotalFine,
		IssueCount:   len(entity.Result.Issues),
		Authentic:    entity.Result.IsAuthenticEvidence,
		Source:       entity.Source,
		EvidenceURL:  entity.EvidenceURL,
		CreatedAt:    entity.CreatedAt,
	}
	if err := c.publisher.Publish(ctx, entity.ReportNumber, event); err != nil {
		c.logger.WithField("report_number", number).WithError(err).Warn("failed to publish report event")
	}

	c.logger.WithFields(logrus.Fields{
		"report_number": entity.ReportNumber,
		"total_fine":    entity.TotalFine,
		"issues":        len(entity.Result.Issues),
		"source":        entity.Source,
	}).Info("report created")
	return entity, nil
}
