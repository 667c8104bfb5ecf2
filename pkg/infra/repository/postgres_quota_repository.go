package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ApexGov/inspector/pkg/domain/quota"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type quotaStateRecord struct {
	Key       string `gorm:"primaryKey"`
	Count     int
	ResetAtMs int64 `gorm:"column:reset_at_ms"`
	UpdatedAt time.Time
}

func (quotaStateRecord) TableName() string {
	return "quota_states"
}

type postgresQuotaRepository struct {
	db *gorm.DB
}

func NewPostgresQuotaRepository(db *gorm.DB) quota.Repository {
	return &postgresQuotaRepository{db: db}
}

func (r *postgresQuotaRepository) Get(ctx context.Context, key string) (*quota.State, error) {
	var record quotaStateRecord
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, quota.ErrStateNotFound
		}
		return nil, err
	}
	return &quota.State{Count: record.Count, ResetAt: record.ResetAtMs}, nil
}

func (r *postgresQuotaRepository) Save(ctx context.Context, key string, state quota.State) error {
	record := &quotaStateRecord{
		Key:       key,
		Count:     state.Count,
		ResetAtMs: state.ResetAt,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"count", "reset_at_ms", "updated_at"}),
	}).Create(record).Error
}

func (r *postgresQuotaRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&quotaStateRecord{}).Error
}

func (r *postgresQuotaRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("reset_at_ms < ?", before.UnixMilli()).
		Delete(&quotaStateRecord{})
	return result.RowsAffected, result.Error
}
