package repository

import (
	"context"

	"onboarding/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository interface {
	Create(ctx context.Context, module *model.Module) error
	Update(ctx context.Context, module *model.Module) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Module, error)
	ListAll(ctx context.Context) ([]model.Module, error)
	Count(ctx context.Context) (int64, error)
	MaxOrder(ctx context.Context) (int, error)
	UpdateOrder(ctx context.Context, id string, order int) error
}

type moduleRepository struct {
	db *gorm.DB
}

func NewModuleRepository(db *gorm.DB) ModuleRepository {
	return &moduleRepository{db: db}
}

func (r *moduleRepository) Create(ctx context.Context, module *model.Module) error {
	return GetDB(ctx, r.db).Create(module).Error
}

func (r *moduleRepository) Update(ctx context.Context, module *model.Module) error {
	return GetDB(ctx, r.db).Save(module).Error
}

func (r *moduleRepository) Delete(ctx context.Context, id string) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Module{}).Error
}

func (r *moduleRepository) FindByID(ctx context.Context, id string) (*model.Module, error) {
	var module model.Module
	if err := GetDB(ctx, r.db).First(&module, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

// ListAll returns the whole catalog ordered by position
func (r *moduleRepository) ListAll(ctx context.Context) ([]model.Module, error) {
	var modules []model.Module
	if err := GetDB(ctx, r.db).Order("sort_order asc, id asc").Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (r *moduleRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Module{}).Count(&total).Error
	return total, err
}

func (r *moduleRepository) MaxOrder(ctx context.Context) (int, error) {
	var max int
	err := GetDB(ctx, r.db).Model(&model.Module{}).Select("COALESCE(MAX(sort_order), 0)").Scan(&max).Error
	return max, err
}

func (r *moduleRepository) UpdateOrder(ctx context.Context, id string, order int) error {
	return GetDB(ctx, r.db).Model(&model.Module{}).Where("id = ?", id).Update("sort_order", order).Error
}
