package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"onboarding/internal/apierr"
	"onboarding/internal/logger"
	"onboarding/internal/model"
	"onboarding/internal/progression"
	"onboarding/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompleteModuleResponse struct {
	ModuleID          string               `json:"module_id"`
	AlreadyCompleted  bool                 `json:"already_completed"`
	CompletionReached bool                 `json:"completion_reached"`
	CompletionDate    *time.Time           `json:"completion_date"`
	Unlocked          []string             `json:"unlocked"`
	Modules           []ModuleViewResponse `json:"modules"`
	// RedirectDelayMs is how long the client shows the completion screen
	RedirectDelayMs int64 `json:"redirect_delay_ms"`
}

type EmployeeProgressResponse struct {
	Employee EmployeeResponse     `json:"employee"`
	Modules  []ModuleViewResponse `json:"modules"`
	Summary  progression.Summary  `json:"summary"`
}

type ProgressService interface {
	Modules(ctx context.Context, employeeID uuid.UUID) ([]ModuleViewResponse, error)
	Overview(ctx context.Context, employeeID uuid.UUID) (*EmployeeProgressResponse, error)

	// completeModule is reached only from a session whose stage controller has
	// completed, so a video or quiz can never be skipped.
	completeModule(ctx context.Context, employeeID uuid.UUID, moduleID string) (*CompleteModuleResponse, error)
}

type progressService struct {
	employeeRepo    repository.EmployeeRepository
	moduleRepo      repository.ModuleRepository
	txManager       repository.TransactionManager
	completionDelay time.Duration
	now             func() time.Time
	log             *logger.Logger
}

func NewProgressService(
	employeeRepo repository.EmployeeRepository,
	moduleRepo repository.ModuleRepository,
	txManager repository.TransactionManager,
	completionDelay time.Duration,
	log *logger.Logger,
) ProgressService {
	if log == nil {
		log = logger.Nop()
	}
	return &progressService{
		employeeRepo:    employeeRepo,
		moduleRepo:      moduleRepo,
		txManager:       txManager,
		completionDelay: completionDelay,
		now:             func() time.Time { return time.Now().UTC() },
		log:             log.With("service", "ProgressService"),
	}
}

func (s *progressService) Modules(ctx context.Context, employeeID uuid.UUID) ([]ModuleViewResponse, error) {
	employee, catalog, err := loadEmployeeAndCatalog(ctx, s.employeeRepo, s.moduleRepo, employeeID)
	if err != nil {
		return nil, err
	}
	return toModuleViews(progression.VisibleModules(progression.FromEmployee(employee), catalog)), nil
}

// completeModule records moduleID in the employee's completed set and latches the
// completion date when every assigned module is done. Repeated calls are no-ops.
func (s *progressService) completeModule(ctx context.Context, employeeID uuid.UUID, moduleID string) (*CompleteModuleResponse, error) {
	var res *CompleteModuleResponse

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		employee, catalog, err := loadEmployeeAndCatalog(txCtx, s.employeeRepo, s.moduleRepo, employeeID)
		if err != nil {
			return err
		}
		if employee.IsBlocked {
			return apierr.New(http.StatusForbidden, apierr.CodeUserBlocked, errors.New("employee is blocked"))
		}

		now := s.now()
		next, result, err := progression.CompleteModule(progression.FromEmployee(employee), moduleID, catalog, now)
		if err != nil {
			return progressionError(err)
		}

		if !result.AlreadyCompleted {
			if err := s.employeeRepo.AddCompletion(txCtx, employee.ID, moduleID, now); err != nil {
				return fmt.Errorf("failed to record completion: %w", err)
			}
		}
		if result.CompletionReached {
			latched, err := s.employeeRepo.LatchCompletionDate(txCtx, employee.ID, *next.CompletionDate)
			if err != nil {
				return fmt.Errorf("failed to set completion date: %w", err)
			}
			if !latched {
				// a concurrent request got there first; keep the stored date
				result.CompletionReached = false
				stored, err := s.employeeRepo.FindByID(txCtx, employee.ID)
				if err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				next.CompletionDate = stored.CompletionDate
			}
		}

		res = &CompleteModuleResponse{
			ModuleID:          moduleID,
			AlreadyCompleted:  result.AlreadyCompleted,
			CompletionReached: result.CompletionReached,
			CompletionDate:    next.CompletionDate,
			Unlocked:          nonNil(result.Unlocked),
			Modules:           toModuleViews(result.Modules),
			RedirectDelayMs:   s.completionDelay.Milliseconds(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.CompletionReached {
		s.log.Info("employee completed onboarding", "employee_id", employeeID)
	}
	return res, nil
}

func (s *progressService) Overview(ctx context.Context, employeeID uuid.UUID) (*EmployeeProgressResponse, error) {
	employee, catalog, err := loadEmployeeAndCatalog(ctx, s.employeeRepo, s.moduleRepo, employeeID)
	if err != nil {
		return nil, err
	}
	p := progression.FromEmployee(employee)
	return &EmployeeProgressResponse{
		Employee: toEmployeeResponse(employee),
		Modules:  toModuleViews(progression.VisibleModules(p, catalog)),
		Summary:  progression.Summarize(p, catalog),
	}, nil
}

func loadEmployeeAndCatalog(
	ctx context.Context,
	employeeRepo repository.EmployeeRepository,
	moduleRepo repository.ModuleRepository,
	employeeID uuid.UUID,
) (*model.Employee, []model.Module, error) {
	employee, err := employeeRepo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierr.NotFound("employee not found")
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}
	catalog, err := moduleRepo.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return employee, catalog, nil
}

func progressionError(err error) error {
	switch {
	case errors.Is(err, progression.ErrModuleNotVisible):
		return apierr.New(http.StatusNotFound, apierr.CodeModuleNotVisible, err)
	case errors.Is(err, progression.ErrModuleLocked):
		return apierr.New(http.StatusConflict, apierr.CodeModuleLocked, err)
	}
	return err
}
