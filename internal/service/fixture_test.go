package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"onboarding/internal/database"
	"onboarding/internal/model"
	"onboarding/internal/realtime"
	"onboarding/internal/repository"
	"onboarding/internal/stage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// recordingBus keeps every published message for assertions
type recordingBus struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (b *recordingBus) Publish(_ context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) StartForwarder(context.Context, func(realtime.Message)) error { return nil }

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) published() []realtime.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Message(nil), b.msgs...)
}

type fixture struct {
	employeeRepo repository.EmployeeRepository
	moduleRepo   repository.ModuleRepository
	historyRepo  repository.HistoryRepository
	eventRepo    repository.CatalogEventRepository
	bus          *recordingBus
	issuer       *TokenIssuer

	modules   ModuleService
	employees EmployeeService
	progress  ProgressService
	sessions  SessionService
	export    ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenInMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		employeeRepo: repository.NewEmployeeRepository(db),
		moduleRepo:   repository.NewModuleRepository(db),
		historyRepo:  repository.NewHistoryRepository(db),
		eventRepo:    repository.NewCatalogEventRepository(db),
		bus:          &recordingBus{},
		issuer:       NewTokenIssuer("test-secret", time.Hour),
	}
	tm := repository.NewTransactionManager(db)
	f.modules = NewModuleService(f.moduleRepo, f.eventRepo, tm, f.bus, nil)
	f.employees = NewEmployeeService(f.employeeRepo, f.historyRepo, tm, f.issuer, nil)
	f.progress = NewProgressService(f.employeeRepo, f.moduleRepo, tm, 3*time.Second, nil)
	f.sessions = NewSessionService(f.employeeRepo, f.moduleRepo, f.progress, stage.DefaultPolicy(), time.Hour, nil)
	f.export = NewExportService(f.employeeRepo, time.UTC)
	return f
}

// seedCatalog installs modules directly, bypassing the change feed
func (f *fixture) seedCatalog(t *testing.T, modules ...model.Module) {
	t.Helper()
	for i := range modules {
		m := modules[i]
		if m.TargetAreas == nil {
			m.TargetAreas = datatypes.JSONSlice[string]{}
		}
		require.NoError(t, f.moduleRepo.Create(context.Background(), &m))
	}
}

func (f *fixture) register(t *testing.T, name, cpf, job string) *EmployeeResponse {
	t.Helper()
	e, err := f.employees.Register(context.Background(), "admin", RegisterEmployeeRequest{
		FullName:    name,
		CPF:         cpf,
		JobPosition: job,
		Company:     "GPS Facilities",
		HiredBy:     "Maria",
	})
	require.NoError(t, err)
	return e
}

func quiz(correct string) datatypes.JSONSlice[model.QuizQuestion] {
	return datatypes.JSONSlice[model.QuizQuestion]{{
		ID:              "q1",
		Text:            "Pick",
		Options:         []model.QuizOption{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
		CorrectOptionID: correct,
	}}
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
