package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"onboarding/internal/apierr"
	"onboarding/internal/model"
	"onboarding/internal/repository"
)

const (
	exportDateLayout = "02/01/2006"
	statusDone       = "Concluído"
	statusInProgress = "Em andamento"
)

var exportHeader = []string{
	"Nome Completo",
	"CPF",
	"Cargo",
	"Empresa",
	"Data de Registro",
	"Data de Conclusão",
	"Módulos Concluídos",
	"Status",
}

// DateRange is an inclusive range of whole days; a nil range exports everyone
type DateRange struct {
	From time.Time
	To   time.Time
}

type ExportService interface {
	ParseRange(from, to string) (*DateRange, error)
	WriteCSV(ctx context.Context, w io.Writer, rng *DateRange) (int, error)
}

type exportService struct {
	employeeRepo repository.EmployeeRepository
	loc          *time.Location
}

// NewExportService formats and interprets dates in loc (time.Local when nil)
func NewExportService(employeeRepo repository.EmployeeRepository, loc *time.Location) ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &exportService{employeeRepo: employeeRepo, loc: loc}
}

// ParseRange reads YYYY-MM-DD bounds. The range applies only when both are given.
func (s *exportService) ParseRange(from, to string) (*DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return nil, nil
	}
	start, err := time.ParseInLocation("2006-01-02", from, s.loc)
	if err != nil {
		return nil, apierr.Validation("from must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation("2006-01-02", to, s.loc)
	if err != nil {
		return nil, apierr.Validation("to must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, apierr.Validation("to must not be before from")
	}
	// include the whole last day
	end = end.AddDate(0, 0, 1).Add(-time.Millisecond)
	return &DateRange{From: start, To: end}, nil
}

// WriteCSV writes the header and one row per employee, returning the row count
func (s *exportService) WriteCSV(ctx context.Context, w io.Writer, rng *DateRange) (int, error) {
	var from, to *time.Time
	if rng != nil {
		f, t := rng.From.UTC(), rng.To.UTC()
		from, to = &f, &t
	}

	employees, err := s.employeeRepo.ListForExport(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load employees: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for i := range employees {
		if err := cw.Write(s.row(&employees[i])); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(employees), nil
}

func (s *exportService) row(e *model.Employee) []string {
	completion, status := statusInProgress, statusInProgress
	if e.CompletionDate != nil {
		completion = e.CompletionDate.In(s.loc).Format(exportDateLayout)
		status = statusDone
	}
	return []string{
		e.FullName,
		e.CPF,
		e.JobPosition,
		e.Company,
		e.RegistrationDate.In(s.loc).Format(exportDateLayout),
		completion,
		strconv.Itoa(len(e.Completions)),
		status,
	}
}
