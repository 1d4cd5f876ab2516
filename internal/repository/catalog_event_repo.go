package repository

import (
	"context"

	"onboarding/internal/model"

	"gorm.io/gorm"
)

type CatalogEventRepository interface {
	Append(ctx context.Context, event *model.CatalogEvent) error
	ListSince(ctx context.Context, seq uint64, limit int) ([]model.CatalogEvent, error)
	LatestSeq(ctx context.Context) (uint64, error)
}

type catalogEventRepository struct {
	db *gorm.DB
}

func NewCatalogEventRepository(db *gorm.DB) CatalogEventRepository {
	return &catalogEventRepository{db: db}
}

func (r *catalogEventRepository) Append(ctx context.Context, event *model.CatalogEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

// ListSince returns events with seq strictly greater than seq, oldest first
func (r *catalogEventRepository) ListSince(ctx context.Context, seq uint64, limit int) ([]model.CatalogEvent, error) {
	var events []model.CatalogEvent
	err := GetDB(ctx, r.db).
		Where("seq > ?", seq).
		Order("seq asc").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *catalogEventRepository) LatestSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := GetDB(ctx, r.db).Model(&model.CatalogEvent{}).Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error
	return seq, err
}
