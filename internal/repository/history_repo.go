package repository

import (
	"context"

	"onboarding/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HistoryRepository interface {
	Append(ctx context.Context, entry *model.HistoryRecord) error
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]model.HistoryRecord, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(ctx context.Context, entry *model.HistoryRecord) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

// ListByEmployee returns history oldest first
func (r *historyRepository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]model.HistoryRecord, error) {
	var records []model.HistoryRecord
	err := GetDB(ctx, r.db).
		Where("employee_id = ?", employeeID).
		Order("created_at asc").
		Find(&records).Error
	return records, err
}
