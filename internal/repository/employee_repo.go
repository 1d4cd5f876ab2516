package repository

import (
	"context"
	"time"

	"onboarding/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeStats counts employees by onboarding status
type EmployeeStats struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	InProgress int64 `json:"in_progress"`
	Blocked    int64 `json:"blocked"`
}

type EmployeeRepository interface {
	Create(ctx context.Context, employee *model.Employee) error
	Update(ctx context.Context, employee *model.Employee) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Employee, error)
	FindByCPF(ctx context.Context, cpf string) (*model.Employee, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Employee, int64, error)
	ListForExport(ctx context.Context, from, to *time.Time) ([]model.Employee, error)
	AddCompletion(ctx context.Context, employeeID uuid.UUID, moduleID string, at time.Time) error
	LatchCompletionDate(ctx context.Context, employeeID uuid.UUID, at time.Time) (bool, error)
	Stats(ctx context.Context) (EmployeeStats, error)
}

type employeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) Create(ctx context.Context, employee *model.Employee) error {
	return GetDB(ctx, r.db).Omit("Completions").Create(employee).Error
}

// Update writes the admin-editable columns only. The completion date belongs to
// LatchCompletionDate and is never written from a possibly stale record.
func (r *employeeRepository) Update(ctx context.Context, employee *model.Employee) error {
	return GetDB(ctx, r.db).Model(employee).
		Select("FullName", "CPF", "JobPosition", "Company", "HiredBy", "IsBlocked", "UpdatedAt").
		Updates(employee).Error
}

// Delete removes the employee with its completions and history
func (r *employeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("employee_id = ?", id).Delete(&model.ModuleCompletion{}).Error; err != nil {
		return err
	}
	if err := db.Where("employee_id = ?", id).Delete(&model.HistoryRecord{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Employee{}).Error
}

func (r *employeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	var employee model.Employee
	if err := GetDB(ctx, r.db).Preload("Completions").First(&employee, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindByCPF(ctx context.Context, cpf string) (*model.Employee, error) {
	var employee model.Employee
	if err := GetDB(ctx, r.db).Preload("Completions").Where("cpf = ?", cpf).First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) List(ctx context.Context, page, limit int, search string) ([]model.Employee, int64, error) {
	var employees []model.Employee
	var total int64

	filter := func(db *gorm.DB) *gorm.DB {
		if search == "" {
			return db
		}
		like := "%" + search + "%"
		return db.Where("LOWER(full_name) LIKE LOWER(?) OR cpf LIKE ?", like, like)
	}

	if err := GetDB(ctx, r.db).Model(&model.Employee{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).Scopes(filter).Preload("Completions").Order("registration_date desc").Offset(offset).Limit(limit).Find(&employees).Error; err != nil {
		return nil, 0, err
	}

	return employees, total, nil
}

// ListForExport returns employees whose completion date falls in [from, to].
// With no range every employee is returned.
func (r *employeeRepository) ListForExport(ctx context.Context, from, to *time.Time) ([]model.Employee, error) {
	var employees []model.Employee

	db := GetDB(ctx, r.db).Preload("Completions")
	if from != nil && to != nil {
		db = db.Where("completion_date IS NOT NULL AND completion_date >= ? AND completion_date <= ?", *from, *to)
	}
	if err := db.Order("full_name asc").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// AddCompletion inserts into the completed set; a duplicate is a no-op
func (r *employeeRepository) AddCompletion(ctx context.Context, employeeID uuid.UUID, moduleID string, at time.Time) error {
	row := &model.ModuleCompletion{EmployeeID: employeeID, ModuleID: moduleID, CompletedAt: at}
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

// LatchCompletionDate sets the completion date only if it is still unset
func (r *employeeRepository) LatchCompletionDate(ctx context.Context, employeeID uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Employee{}).
		Where("id = ? AND completion_date IS NULL", employeeID).
		Update("completion_date", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *employeeRepository) Stats(ctx context.Context) (EmployeeStats, error) {
	var s EmployeeStats
	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Employee{}).Count(&s.Total).Error; err != nil {
		return s, err
	}
	if err := db.Model(&model.Employee{}).Where("completion_date IS NOT NULL").Count(&s.Completed).Error; err != nil {
		return s, err
	}
	if err := db.Model(&model.Employee{}).Where("is_blocked = ?", true).Count(&s.Blocked).Error; err != nil {
		return s, err
	}
	s.InProgress = s.Total - s.Completed
	return s, nil
}
