package repository_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"onboarding/internal/database"
	"onboarding/internal/model"
	"onboarding/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenInMemory(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newEmployee(name, cpf string) *model.Employee {
	return &model.Employee{
		FullName:         name,
		CPF:              cpf,
		JobPosition:      model.PositionAdministrative,
		Company:          "GPS Facilities",
		RegistrationDate: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestModuleRepository_OrderAndMaxOrder(t *testing.T) {
	db := openDB(t)
	repo := repository.NewModuleRepository(db)
	ctx := context.Background()

	max, err := repo.MaxOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &model.Module{ID: id, Title: strings.ToUpper(id), Order: 3 - i}))
	}

	modules, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, modules, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{modules[0].ID, modules[1].ID, modules[2].ID})
	assert.NotNil(t, modules[0].TargetAreas)
	assert.NotNil(t, modules[0].Questions)

	require.NoError(t, repo.UpdateOrder(ctx, "a", 10))
	max, err = repo.MaxOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, max)

	require.NoError(t, repo.Delete(ctx, "b"))
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = repo.FindByID(ctx, "b")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestModuleRepository_QuestionsRoundTrip(t *testing.T) {
	db := openDB(t)
	repo := repository.NewModuleRepository(db)
	ctx := context.Background()

	m := &model.Module{
		ID:          "safety",
		Title:       "Safety",
		Order:       1,
		TargetAreas: datatypes.JSONSlice[string]{model.PositionSecurity},
		Questions: datatypes.JSONSlice[model.QuizQuestion]{{
			ID:              "q1",
			Text:            "Exit?",
			Options:         []model.QuizOption{{ID: "a", Text: "Door"}, {ID: "b", Text: "Window"}},
			CorrectOptionID: "a",
		}},
	}
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.FindByID(ctx, "safety")
	require.NoError(t, err)
	assert.True(t, got.HasQuiz())
	assert.False(t, got.HasVideo())
	assert.Equal(t, "a", got.Questions[0].CorrectOptionID)
	assert.True(t, got.TargetsPosition(model.PositionSecurity))
	assert.False(t, got.TargetsPosition(model.PositionManagement))
}

func TestEmployeeRepository_AddCompletionIsIdempotent(t *testing.T) {
	db := openDB(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	e := newEmployee("Ana", "111.222.333-44")
	require.NoError(t, repo.Create(ctx, e))

	at := time.Now().UTC()
	require.NoError(t, repo.AddCompletion(ctx, e.ID, model.RegistrationModuleID, at))
	require.NoError(t, repo.AddCompletion(ctx, e.ID, model.RegistrationModuleID, at))
	require.NoError(t, repo.AddCompletion(ctx, e.ID, "welcome", at))

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{model.RegistrationModuleID, "welcome"}, got.CompletedModuleIDs())
}

func TestEmployeeRepository_LatchCompletionDate(t *testing.T) {
	db := openDB(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	e := newEmployee("Bruno", "222.333.444-55")
	require.NoError(t, repo.Create(ctx, e))

	first := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	ok, err := repo.LatchCompletionDate(ctx, e.ID, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.LatchCompletionDate(ctx, e.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "second latch must not overwrite")

	got, err := repo.FindByCPF(ctx, "222.333.444-55")
	require.NoError(t, err)
	require.NotNil(t, got.CompletionDate)
	assert.True(t, first.Equal(got.CompletionDate.UTC()))
}

func TestEmployeeRepository_UpdateKeepsLatchedCompletionDate(t *testing.T) {
	db := openDB(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	e := newEmployee("Bruno", "222.333.444-55")
	require.NoError(t, repo.Create(ctx, e))

	stale, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	require.Nil(t, stale.CompletionDate)

	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	ok, err := repo.LatchCompletionDate(ctx, e.ID, at)
	require.NoError(t, err)
	require.True(t, ok)

	// an admin edit built from the record loaded before the latch
	stale.IsBlocked = true
	stale.FullName = "Bruno Costa"
	require.NoError(t, repo.Update(ctx, stale))

	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBlocked)
	assert.Equal(t, "Bruno Costa", got.FullName)
	require.NotNil(t, got.CompletionDate)
	assert.True(t, at.Equal(got.CompletionDate.UTC()))

	got.IsBlocked = false
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, again.IsBlocked)
}

func TestEmployeeRepository_ListForExport(t *testing.T) {
	db := openDB(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	early := newEmployee("Carla", "333.444.555-66")
	late := newEmployee("Diego", "444.555.666-77")
	pending := newEmployee("Elisa", "555.666.777-88")
	for _, e := range []*model.Employee{early, late, pending} {
		require.NoError(t, repo.Create(ctx, e))
	}
	_, err := repo.LatchCompletionDate(ctx, early.ID, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = repo.LatchCompletionDate(ctx, late.ID, time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 23, 59, 59, 0, time.UTC)
	got, err := repo.ListForExport(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Carla", got[0].FullName)

	all, err := repo.ListForExport(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEmployeeRepository_ListSearchAndStats(t *testing.T) {
	db := openDB(t)
	repo := repository.NewEmployeeRepository(db)
	ctx := context.Background()

	a := newEmployee("Fernanda Lima", "666.777.888-99")
	b := newEmployee("Gustavo Reis", "777.888.999-00")
	b.IsBlocked = true
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	_, err := repo.LatchCompletionDate(ctx, a.ID, time.Now().UTC())
	require.NoError(t, err)

	found, total, err := repo.List(ctx, 1, 10, "fernanda")
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, a.ID, found[0].ID)

	_, total, err = repo.List(ctx, 1, 10, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.EmployeeStats{Total: 2, Completed: 1, InProgress: 1, Blocked: 1}, stats)
}

func TestEmployeeRepository_DeleteRemovesChildren(t *testing.T) {
	db := openDB(t)
	repo := repository.NewEmployeeRepository(db)
	history := repository.NewHistoryRepository(db)
	ctx := context.Background()

	e := newEmployee("Helena", "888.999.000-11")
	require.NoError(t, repo.Create(ctx, e))
	require.NoError(t, repo.AddCompletion(ctx, e.ID, model.RegistrationModuleID, time.Now().UTC()))
	require.NoError(t, history.Append(ctx, &model.HistoryRecord{EmployeeID: e.ID, Type: model.HistoryCreated, Author: "admin"}))

	require.NoError(t, repo.Delete(ctx, e.ID))

	_, err := repo.FindByID(ctx, e.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	records, err := history.ListByEmployee(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistoryRepository_OldestFirst(t *testing.T) {
	db := openDB(t)
	employees := repository.NewEmployeeRepository(db)
	repo := repository.NewHistoryRepository(db)
	ctx := context.Background()

	e := newEmployee("Igor", "999.000.111-22")
	require.NoError(t, employees.Create(ctx, e))

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(ctx, &model.HistoryRecord{EmployeeID: e.ID, Type: model.HistoryEdited, Author: "x", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, repo.Append(ctx, &model.HistoryRecord{EmployeeID: e.ID, Type: model.HistoryCreated, Author: "x", CreatedAt: base}))

	records, err := repo.ListByEmployee(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.HistoryCreated, records[0].Type)
	assert.Equal(t, model.HistoryEdited, records[1].Type)
}

func TestCatalogEventRepository_ListSince(t *testing.T) {
	db := openDB(t)
	repo := repository.NewCatalogEventRepository(db)
	ctx := context.Background()

	latest, err := repo.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, latest)

	for _, typ := range []string{model.EventModuleAdd, model.EventModuleUpdate, model.EventModuleDelete} {
		payload, _ := json.Marshal(map[string]string{"module_id": "m"})
		require.NoError(t, repo.Append(ctx, &model.CatalogEvent{Type: typ, Payload: datatypes.JSON(payload)}))
	}

	events, err := repo.ListSince(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.EqualValues(t, 2, events[0].Seq)
	assert.Equal(t, model.EventModuleUpdate, events[0].Type)
	assert.EqualValues(t, 3, events[1].Seq)

	limited, err := repo.ListSince(ctx, 0, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	latest, err = repo.LatestSeq(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, latest)
}

func TestTransactionManager_RollbackAndNesting(t *testing.T) {
	db := openDB(t)
	tm := repository.NewTransactionManager(db)
	repo := repository.NewModuleRepository(db)
	ctx := context.Background()

	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, &model.Module{ID: "x", Title: "X", Order: 1}); err != nil {
			return err
		}
		return tm.RunInTx(txCtx, func(inner context.Context) error {
			return gorm.ErrInvalidData
		})
	})
	assert.ErrorIs(t, err, gorm.ErrInvalidData)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "outer transaction must roll back")

	require.NoError(t, tm.RunInTx(ctx, func(txCtx context.Context) error {
		return repo.Create(txCtx, &model.Module{ID: "y", Title: "Y", Order: 1})
	}))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
