package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ApexGov/inspector/pkg/domain/analysis"
	domain "github.com/ApexGov/inspector/pkg/domain/errors"
	"github.com/ApexGov/inspector/pkg/domain/report"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) report.Repository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Save(ctx context.Context, entity *report.Report) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to save report %s: %w", entity.ReportNumber, err)
	}
	return nil
}

func (r *ReportRepository) GetByNumber(ctx context.Context, number string) (*report.Report, error) {
	entity := new(report.Report)
	if err := r.db.WithContext(ctx).Where("report_number = ?", number).First(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("report", number)
		}
		return nil, err
	}
	entity.Result.Source = analysis.Source(entity.Source)
	return entity, nil
}
