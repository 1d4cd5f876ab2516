package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"onboarding/internal/apierr"
	"onboarding/internal/model"
	"onboarding/internal/stage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func progressCatalog() []model.Module {
	return []model.Module{
		{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		{ID: "hr", Title: "RH", Order: 2},
		{ID: "safety", Title: "Segurança", Order: 3, TargetAreas: datatypes.JSONSlice[string]{model.PositionSecurity}},
		{ID: "benefits", Title: "Benefícios", Order: 4},
	}
}

func TestProgressService_ModulesFilteredAndLocked(t *testing.T) {
	f := newFixture(t)
	f.seedCatalog(t, progressCatalog()...)
	e := f.register(t, "Ana", "123.456.789-01", model.PositionAdministrative)

	views, err := f.progress.Modules(context.Background(), mustUUID(t, e.ID))
	require.NoError(t, err)
	require.Len(t, views, 3, "safety is not assigned to Administrativo")

	assert.Equal(t, model.RegistrationModuleID, views[0].ID)
	assert.True(t, views[0].IsCompleted)
	assert.False(t, views[0].IsLocked)

	assert.Equal(t, "hr", views[1].ID)
	assert.False(t, views[1].IsLocked)
	assert.Equal(t, 1, views[1].Position)

	assert.Equal(t, "benefits", views[2].ID)
	assert.True(t, views[2].IsLocked)
}

func TestProgressService_CompleteFlowLatchesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t, progressCatalog()...)
	e := f.register(t, "Bruno", "111.222.333-44", model.PositionAdministrative)
	id := mustUUID(t, e.ID)

	_, err := f.progress.completeModule(ctx, id, "benefits")
	requireAPIError(t, err, http.StatusConflict, apierr.CodeModuleLocked)

	_, err = f.progress.completeModule(ctx, id, "safety")
	requireAPIError(t, err, http.StatusNotFound, apierr.CodeModuleNotVisible)

	res, err := f.progress.completeModule(ctx, id, "hr")
	require.NoError(t, err)
	assert.False(t, res.CompletionReached)
	assert.Equal(t, []string{"benefits"}, res.Unlocked)
	assert.EqualValues(t, 3000, res.RedirectDelayMs)

	res, err = f.progress.completeModule(ctx, id, "benefits")
	require.NoError(t, err)
	assert.True(t, res.CompletionReached)
	require.NotNil(t, res.CompletionDate)
	first := *res.CompletionDate

	again, err := f.progress.completeModule(ctx, id, "benefits")
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.False(t, again.CompletionReached)

	overview, err := f.progress.Overview(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, overview.Employee.CompletionDate)
	assert.True(t, first.Equal(*overview.Employee.CompletionDate))
	assert.Equal(t, 3, overview.Summary.Assigned)
	assert.Equal(t, 3, overview.Summary.Completed)
	assert.Equal(t, "100", overview.Summary.Percent.String())
}

func TestProgressService_NewModuleDoesNotClearCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "RH", Order: 2},
	)
	e := f.register(t, "Carla", "222.333.444-55", model.PositionOther)
	id := mustUUID(t, e.ID)

	res, err := f.progress.completeModule(ctx, id, "hr")
	require.NoError(t, err)
	require.True(t, res.CompletionReached)

	_, err = f.modules.Create(ctx, "admin", CreateModuleRequest{Title: "Novo"})
	require.NoError(t, err)

	overview, err := f.progress.Overview(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, overview.Employee.CompletionDate)
	assert.Equal(t, 3, overview.Summary.Assigned)
	assert.Equal(t, 2, overview.Summary.Completed)
}

func TestProgressService_BlockedEmployeeCannotComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t, progressCatalog()...)
	e := f.register(t, "Diego", "333.444.555-66", model.PositionOther)
	id := mustUUID(t, e.ID)
	_, err := f.employees.ToggleBlock(ctx, "admin", id)
	require.NoError(t, err)

	_, err = f.progress.completeModule(ctx, id, "hr")
	requireAPIError(t, err, http.StatusForbidden, apierr.CodeUserBlocked)
}

func TestSessionService_QuizFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "RH", Order: 2, VideoURL: "https://video/hr.mp4", Questions: quiz("a")},
	)
	e := f.register(t, "Elisa", "444.555.666-77", model.PositionOther)
	id := mustUUID(t, e.ID)

	sess, err := f.sessions.Start(ctx, id, "hr")
	require.NoError(t, err)
	assert.Equal(t, "video", string(sess.State))
	require.Len(t, sess.Questions, 1)

	_, err = f.sessions.SubmitQuiz(ctx, id, sess.ID, map[string]string{"q1": "a"})
	requireAPIError(t, err, http.StatusConflict, apierr.CodeInvalidState)

	sess, err = f.sessions.FinishVideo(ctx, id, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "quiz", string(sess.State))

	sess, err = f.sessions.SubmitQuiz(ctx, id, sess.ID, map[string]string{"q1": "b"})
	require.NoError(t, err)
	assert.Equal(t, "failed", string(sess.State))
	assert.Equal(t, 1, sess.Attempts)
	require.NotNil(t, sess.LastResult)
	assert.False(t, sess.LastResult.Passed)

	sess, err = f.sessions.Retry(ctx, id, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "quiz", string(sess.State))

	// second strike sends the employee back to the video
	sess, err = f.sessions.SubmitQuiz(ctx, id, sess.ID, map[string]string{"q1": "b"})
	require.NoError(t, err)
	assert.Equal(t, "video", string(sess.State))
	assert.Zero(t, sess.Attempts)

	_, err = f.sessions.FinishVideo(ctx, id, sess.ID)
	require.NoError(t, err)
	sess, err = f.sessions.SubmitQuiz(ctx, id, sess.ID, map[string]string{"q1": "a"})
	require.NoError(t, err)
	assert.Equal(t, "completed", string(sess.State))
	require.NotNil(t, sess.Completion)
	assert.True(t, sess.Completion.CompletionReached)

	got, err := f.employees.Get(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, got.CompletedModules, "hr")
	assert.NotNil(t, got.CompletionDate)
}

func TestSessionService_StartRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "RH", Order: 2},
		model.Module{ID: "benefits", Title: "Benefícios", Order: 3},
	)
	e := f.register(t, "Fabio", "555.666.777-88", model.PositionOther)
	id := mustUUID(t, e.ID)

	_, err := f.sessions.Start(ctx, id, "benefits")
	requireAPIError(t, err, http.StatusConflict, apierr.CodeModuleLocked)

	_, err = f.sessions.Start(ctx, id, "nope")
	requireAPIError(t, err, http.StatusNotFound, apierr.CodeModuleNotVisible)

	// a module with no video and no quiz completes on start
	sess, err := f.sessions.Start(ctx, id, "hr")
	require.NoError(t, err)
	assert.Equal(t, "completed", string(sess.State))
	require.NotNil(t, sess.Completion)
	assert.Equal(t, []string{"benefits"}, sess.Completion.Unlocked)

	other := f.register(t, "Gabi", "666.777.888-99", model.PositionOther)
	_, err = f.sessions.Get(ctx, mustUUID(t, other.ID), sess.ID)
	requireAPIError(t, err, http.StatusNotFound, apierr.CodeNotFound)
}

func TestSessionService_SweepEvictsExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "RH", Order: 2, Questions: quiz("a")},
	)
	e := f.register(t, "Helena", "777.888.999-00", model.PositionOther)
	id := mustUUID(t, e.ID)

	sess, err := f.sessions.Start(ctx, id, "hr")
	require.NoError(t, err)
	assert.Equal(t, "quiz", string(sess.State))

	assert.Zero(t, f.sessions.Sweep(time.Now()))
	assert.Equal(t, 1, f.sessions.Sweep(time.Now().Add(2*time.Hour)))

	_, err = f.sessions.Get(ctx, id, sess.ID)
	requireAPIError(t, err, http.StatusNotFound, apierr.CodeNotFound)
}

func TestSessionService_StagedModuleStaysOpenUntilQuizPassed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "RH", Order: 2, VideoURL: "https://video/hr.mp4", Questions: quiz("a")},
		model.Module{ID: "benefits", Title: "Benefícios", Order: 3},
	)
	e := f.register(t, "Igor", "888.999.000-11", model.PositionOther)
	id := mustUUID(t, e.ID)

	sess, err := f.sessions.Start(ctx, id, "hr")
	require.NoError(t, err)
	assert.Equal(t, "video", string(sess.State))
	assert.Nil(t, sess.Completion)

	got, err := f.employees.Get(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, got.CompletedModules, "hr")
	assert.Nil(t, got.CompletionDate)

	_, err = f.sessions.Start(ctx, id, "benefits")
	requireAPIError(t, err, http.StatusConflict, apierr.CodeModuleLocked)
}

// failingProgress refuses every completion write
type failingProgress struct {
	ProgressService
}

func (failingProgress) completeModule(context.Context, uuid.UUID, string) (*CompleteModuleResponse, error) {
	return nil, errors.New("database is gone")
}

func TestSessionService_StartDropsSessionWhenCompletionFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "RH", Order: 2},
	)
	e := f.register(t, "Julia", "999.000.111-22", model.PositionOther)

	svc := NewSessionService(f.employeeRepo, f.moduleRepo, failingProgress{f.progress}, stage.DefaultPolicy(), time.Hour, nil)
	_, err := svc.Start(ctx, mustUUID(t, e.ID), "hr")
	require.Error(t, err)

	impl := svc.(*sessionService)
	impl.mu.RLock()
	defer impl.mu.RUnlock()
	assert.Empty(t, impl.sessions)
}
