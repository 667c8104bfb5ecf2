package repository

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/ApexGov/inspector/pkg/domain/errors"
	"github.com/ApexGov/inspector/pkg/domain/report"
)

type memoryReportRepository struct {
	mu      sync.RWMutex
	reports map[string]report.Report
}

// NewMemoryReportRepository keeps reports for the life of the process.
func NewMemoryReportRepository() report.Repository {
	return &memoryReportRepository{reports: make(map[string]report.Report)}
}

func (r *memoryReportRepository) Save(_ context.Context, entity *report.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reports[entity.ReportNumber]; exists {
		return fmt.Errorf("report %s already exists", entity.ReportNumber)
	}
	r.reports[entity.ReportNumber] = *entity
	return nil
}

func (r *memoryReportRepository) GetByNumber(_ context.Context, number string) (*report.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entity, ok := r.reports[number]
	if !ok {
		return nil, domain.NewNotFoundError("report", number)
	}
	return &entity, nil
}
