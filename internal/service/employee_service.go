package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"onboarding/internal/apierr"
	"onboarding/internal/logger"
	"onboarding/internal/model"
	"onboarding/internal/repository"
	"onboarding/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DTOs
type RegisterEmployeeRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	CPF         string `json:"cpf" binding:"required"`
	JobPosition string `json:"job_position" binding:"required"`
	Company     string `json:"company" binding:"required"`
	HiredBy     string `json:"hired_by"`
}

// UpdateEmployeeRequest is a partial update; nil fields are left untouched
type UpdateEmployeeRequest struct {
	FullName    *string `json:"full_name"`
	CPF         *string `json:"cpf"`
	JobPosition *string `json:"job_position"`
	Company     *string `json:"company"`
	HiredBy     *string `json:"hired_by"`
}

// EmployeeLoginRequest is the welcome form of the employee portal
type EmployeeLoginRequest struct {
	FullName    string `json:"full_name"`
	CPF         string `json:"cpf" binding:"required"`
	JobPosition string `json:"job_position" binding:"required"`
	Company     string `json:"company" binding:"required"`
}

type EmployeeLoginResponse struct {
	Status   string           `json:"status"`
	Token    *TokenResponse   `json:"token"`
	Employee EmployeeResponse `json:"employee"`
}

type AbsenceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

const LoginSuccess = "SUCCESS"

type EmployeeService interface {
	Register(ctx context.Context, author string, req RegisterEmployeeRequest) (*EmployeeResponse, error)
	Login(ctx context.Context, req EmployeeLoginRequest) (*EmployeeLoginResponse, error)
	List(ctx context.Context, page, limit int, search string) ([]EmployeeResponse, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*EmployeeResponse, error)
	Update(ctx context.Context, author string, id uuid.UUID, req UpdateEmployeeRequest) (*EmployeeResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleBlock(ctx context.Context, author string, id uuid.UUID) (*EmployeeResponse, error)
	RecordAbsence(ctx context.Context, author string, id uuid.UUID, reason string) (*EmployeeResponse, error)
	History(ctx context.Context, id uuid.UUID) ([]model.HistoryRecord, error)
	Stats(ctx context.Context) (repository.EmployeeStats, error)
}

type employeeService struct {
	employeeRepo repository.EmployeeRepository
	historyRepo  repository.HistoryRepository
	txManager    repository.TransactionManager
	issuer       *TokenIssuer
	now          func() time.Time
	log          *logger.Logger
}

func NewEmployeeService(
	employeeRepo repository.EmployeeRepository,
	historyRepo repository.HistoryRepository,
	txManager repository.TransactionManager,
	issuer *TokenIssuer,
	log *logger.Logger,
) EmployeeService {
	if log == nil {
		log = logger.Nop()
	}
	return &employeeService{
		employeeRepo: employeeRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		issuer:       issuer,
		now:          func() time.Time { return time.Now().UTC() },
		log:          log.With("service", "EmployeeService"),
	}
}

// Register creates the employee record with the registration checkpoint already completed
func (s *employeeService) Register(ctx context.Context, author string, req RegisterEmployeeRequest) (*EmployeeResponse, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, apierr.Validation("full name is required")
	}
	cpf, ok := model.NormalizeCPF(req.CPF)
	if !ok {
		return nil, apierr.Validation("cpf must have 11 digits")
	}
	if err := validatePlacement(req.JobPosition, req.Company); err != nil {
		return nil, err
	}

	now := s.now()
	employee := &model.Employee{
		FullName:         fullName,
		CPF:              cpf,
		JobPosition:      req.JobPosition,
		Company:          req.Company,
		HiredBy:          strings.TrimSpace(req.HiredBy),
		RegistrationDate: now,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureCPFFree(txCtx, cpf, uuid.Nil); err != nil {
			return err
		}
		if err := s.employeeRepo.Create(txCtx, employee); err != nil {
			return fmt.Errorf("failed to create employee: %w", err)
		}
		if err := s.employeeRepo.AddCompletion(txCtx, employee.ID, model.RegistrationModuleID, now); err != nil {
			return fmt.Errorf("failed to record registration: %w", err)
		}
		employee.Completions = []model.ModuleCompletion{{EmployeeID: employee.ID, ModuleID: model.RegistrationModuleID, CompletedAt: now}}

		return s.appendHistory(txCtx, employee.ID, model.HistoryCreated, author,
			fmt.Sprintf("Funcionário cadastrado como %s na empresa %s", employee.JobPosition, employee.Company))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("employee registered", "employee_id", employee.ID, "cpf", employee.CPF)
	res := toEmployeeResponse(employee)
	return &res, nil
}

// Login checks the welcome form against the stored record. Mismatches are reported
// with a specific code so the form can tell the employee what to fix.
func (s *employeeService) Login(ctx context.Context, req EmployeeLoginRequest) (*EmployeeLoginResponse, error) {
	cpf, ok := model.NormalizeCPF(req.CPF)
	if !ok {
		return nil, apierr.Validation("cpf must have 11 digits")
	}

	employee, err := s.employeeRepo.FindByCPF(ctx, cpf)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.New(http.StatusNotFound, apierr.CodeCPFNotFound, errors.New("cpf not found"))
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	switch {
	case employee.IsBlocked:
		return nil, apierr.New(http.StatusForbidden, apierr.CodeUserBlocked, errors.New("access blocked"))
	case employee.JobPosition != req.JobPosition:
		return nil, apierr.New(http.StatusUnprocessableEntity, apierr.CodeJobMismatch, errors.New("job position does not match"))
	case employee.Company != req.Company:
		return nil, apierr.New(http.StatusUnprocessableEntity, apierr.CodeCompanyMismatch, errors.New("company does not match"))
	}

	token, err := s.issuer.Issue(employee.ID.String(), RoleEmployee, employee.FullName)
	if err != nil {
		return nil, err
	}
	return &EmployeeLoginResponse{Status: LoginSuccess, Token: token, Employee: toEmployeeResponse(employee)}, nil
}

func (s *employeeService) List(ctx context.Context, page, limit int, search string) ([]EmployeeResponse, int64, error) {
	p := pagination.New(page, limit)
	employees, total, err := s.employeeRepo.List(ctx, p.Page, p.Limit, strings.TrimSpace(search))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list employees: %w", err)
	}

	res := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		res = append(res, toEmployeeResponse(&employees[i]))
	}
	return res, total, nil
}

func (s *employeeService) Get(ctx context.Context, id uuid.UUID) (*EmployeeResponse, error) {
	employee, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	res := toEmployeeResponse(employee)
	return &res, nil
}

func (s *employeeService) Update(ctx context.Context, author string, id uuid.UUID, req UpdateEmployeeRequest) (*EmployeeResponse, error) {
	var employee *model.Employee

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		employee = found

		var changed []string
		if req.FullName != nil {
			name := strings.TrimSpace(*req.FullName)
			if name == "" {
				return apierr.Validation("full name cannot be blank")
			}
			if name != employee.FullName {
				changed = append(changed, fmt.Sprintf("nome: %s -> %s", employee.FullName, name))
				employee.FullName = name
			}
		}
		if req.CPF != nil {
			cpf, ok := model.NormalizeCPF(*req.CPF)
			if !ok {
				return apierr.Validation("cpf must have 11 digits")
			}
			if cpf != employee.CPF {
				if err := s.ensureCPFFree(txCtx, cpf, employee.ID); err != nil {
					return err
				}
				changed = append(changed, fmt.Sprintf("cpf: %s -> %s", employee.CPF, cpf))
				employee.CPF = cpf
			}
		}
		jobPosition, company := employee.JobPosition, employee.Company
		if req.JobPosition != nil {
			jobPosition = *req.JobPosition
		}
		if req.Company != nil {
			company = *req.Company
		}
		if err := validatePlacement(jobPosition, company); err != nil {
			return err
		}
		if jobPosition != employee.JobPosition {
			changed = append(changed, fmt.Sprintf("cargo: %s -> %s", employee.JobPosition, jobPosition))
			employee.JobPosition = jobPosition
		}
		if company != employee.Company {
			changed = append(changed, fmt.Sprintf("empresa: %s -> %s", employee.Company, company))
			employee.Company = company
		}
		if req.HiredBy != nil {
			hiredBy := strings.TrimSpace(*req.HiredBy)
			if hiredBy != employee.HiredBy {
				changed = append(changed, fmt.Sprintf("contratado por: %s -> %s", employee.HiredBy, hiredBy))
				employee.HiredBy = hiredBy
			}
		}

		if len(changed) == 0 {
			return nil
		}
		if err := s.employeeRepo.Update(txCtx, employee); err != nil {
			return fmt.Errorf("failed to update employee: %w", err)
		}
		return s.appendHistory(txCtx, employee.ID, model.HistoryEdited, author, strings.Join(changed, "; "))
	})
	if err != nil {
		return nil, err
	}

	res := toEmployeeResponse(employee)
	return &res, nil
}

func (s *employeeService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.find(txCtx, id); err != nil {
			return err
		}
		if err := s.employeeRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete employee: %w", err)
		}
		return nil
	})
}

func (s *employeeService) ToggleBlock(ctx context.Context, author string, id uuid.UUID) (*EmployeeResponse, error) {
	var employee *model.Employee

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		employee = found
		employee.IsBlocked = !employee.IsBlocked

		if err := s.employeeRepo.Update(txCtx, employee); err != nil {
			return fmt.Errorf("failed to update employee: %w", err)
		}
		if employee.IsBlocked {
			return s.appendHistory(txCtx, employee.ID, model.HistoryBlocked, author, "Acesso bloqueado")
		}
		return s.appendHistory(txCtx, employee.ID, model.HistoryUnblocked, author, "Acesso desbloqueado")
	})
	if err != nil {
		return nil, err
	}

	res := toEmployeeResponse(employee)
	return &res, nil
}

// RecordAbsence stores the justification and blocks the employee
func (s *employeeService) RecordAbsence(ctx context.Context, author string, id uuid.UUID, reason string) (*EmployeeResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apierr.Validation("absence reason is required")
	}

	var employee *model.Employee
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.find(txCtx, id)
		if err != nil {
			return err
		}
		employee = found
		employee.IsBlocked = true

		if err := s.employeeRepo.Update(txCtx, employee); err != nil {
			return fmt.Errorf("failed to update employee: %w", err)
		}
		return s.appendHistory(txCtx, employee.ID, model.HistoryAbsence, author, reason)
	})
	if err != nil {
		return nil, err
	}

	res := toEmployeeResponse(employee)
	return &res, nil
}

func (s *employeeService) History(ctx context.Context, id uuid.UUID) ([]model.HistoryRecord, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.historyRepo.ListByEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

func (s *employeeService) Stats(ctx context.Context) (repository.EmployeeStats, error) {
	stats, err := s.employeeRepo.Stats(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

func (s *employeeService) find(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	employee, err := s.employeeRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("employee not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return employee, nil
}

func (s *employeeService) ensureCPFFree(ctx context.Context, cpf string, self uuid.UUID) error {
	existing, err := s.employeeRepo.FindByCPF(ctx, cpf)
	if err == nil && existing.ID != self {
		return apierr.New(http.StatusConflict, apierr.CodeCPFExists, errors.New("cpf already registered"))
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

func (s *employeeService) appendHistory(ctx context.Context, employeeID uuid.UUID, kind, author, details string) error {
	if author == "" {
		author = "sistema"
	}
	entry := &model.HistoryRecord{EmployeeID: employeeID, Type: kind, Details: details, Author: author}
	if err := s.historyRepo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	return nil
}

func validatePlacement(jobPosition, company string) error {
	if !model.IsJobPosition(jobPosition) {
		return apierr.Validation("unknown job position: " + jobPosition)
	}
	if !model.IsCompany(company) {
		return apierr.Validation("unknown company: " + company)
	}
	return nil
}
