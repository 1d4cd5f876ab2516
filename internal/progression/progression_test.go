package progression

import (
	"testing"
	"time"

	"onboarding/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func mod(id string, order int, areas ...string) model.Module {
	return model.Module{ID: id, Title: id, Order: order, TargetAreas: datatypes.JSONSlice[string](areas)}
}

func ids(views []ModuleView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Module.ID)
	}
	return out
}

func defaultCatalog() []model.Module {
	return []model.Module{
		mod("benefits", 5),
		mod("quality", 3, model.PositionAdministrative, model.PositionManagement, model.PositionTechnician),
		mod("registration", 1),
		mod("safety", 4, model.PositionSecurity, model.PositionGeneralCleaning, model.PositionTechnician),
		mod("hr", 2),
		mod("asset-protection", 6, model.PositionSecurity),
	}
}

func TestVisibleModulesFiltersByJobPosition(t *testing.T) {
	catalog := defaultCatalog()

	tech := VisibleModules(NewProgress(model.PositionTechnician, nil, nil), catalog)
	assert.Equal(t, []string{"registration", "hr", "quality", "safety", "benefits"}, ids(tech))

	sec := VisibleModules(NewProgress(model.PositionSecurity, nil, nil), catalog)
	assert.Equal(t, []string{"registration", "hr", "safety", "benefits", "asset-protection"}, ids(sec))

	for _, v := range sec {
		if len(v.Module.TargetAreas) > 0 {
			assert.True(t, v.Module.TargetsPosition(model.PositionSecurity), v.Module.ID)
		}
	}
}

func TestVisibleModulesLocking(t *testing.T) {
	catalog := defaultCatalog()
	p := NewProgress(model.PositionTechnician, []string{"registration", "hr"}, nil)

	views := VisibleModules(p, catalog)
	require.Len(t, views, 5)

	assert.False(t, views[0].IsLocked, "first module is never locked")
	for i := 1; i < len(views); i++ {
		prevDone := p.IsCompleted(views[i-1].Module.ID)
		assert.Equal(t, !prevDone, views[i].IsLocked, views[i].Module.ID)
	}

	assert.True(t, views[0].IsCompleted)
	assert.True(t, views[1].IsCompleted)
	assert.False(t, views[2].IsCompleted)
	assert.Equal(t, 2, views[2].Position)
}

func TestFirstModuleNeverLockedEvenWithEmptyProgress(t *testing.T) {
	views := VisibleModules(NewProgress(model.PositionOther, nil, nil), []model.Module{mod("b", 9), mod("a", 3)})
	require.Len(t, views, 2)
	assert.Equal(t, "a", views[0].Module.ID)
	assert.False(t, views[0].IsLocked)
	assert.True(t, views[1].IsLocked)
}

func TestVisibleModulesTieBreaksOnID(t *testing.T) {
	views := VisibleModules(NewProgress(model.PositionOther, nil, nil), []model.Module{mod("z", 1), mod("a", 1)})
	assert.Equal(t, []string{"a", "z"}, ids(views))
}

func TestTechnicianUnlocksQualityAfterHR(t *testing.T) {
	catalog := []model.Module{
		mod("registration", 1),
		mod("hr", 2),
		mod("quality", 3, model.PositionTechnician),
	}
	now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	p := NewProgress(model.PositionTechnician, nil, nil)
	p, _, err := CompleteModule(p, "registration", catalog, now)
	require.NoError(t, err)
	p, res, err := CompleteModule(p, "hr", catalog, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"quality"}, res.Unlocked)
	quality, ok := Find(res.Modules, "quality")
	require.True(t, ok)
	assert.False(t, quality.IsLocked)
	assert.Nil(t, p.CompletionDate)
}

func TestCompleteModuleIsIdempotent(t *testing.T) {
	catalog := defaultCatalog()
	now := time.Now()

	once, _, err := CompleteModule(NewProgress(model.PositionOther, []string{"registration"}, nil), "hr", catalog, now)
	require.NoError(t, err)
	twice, res, err := CompleteModule(once, "hr", catalog, now.Add(time.Hour))
	require.NoError(t, err)

	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, once.CompletedIDs(), twice.CompletedIDs())
}

func TestCompleteModuleGuards(t *testing.T) {
	catalog := defaultCatalog()
	p := NewProgress(model.PositionOther, []string{"registration"}, nil)

	_, _, err := CompleteModule(p, "quality", catalog, time.Now())
	assert.ErrorIs(t, err, ErrModuleNotVisible)

	_, _, err = CompleteModule(p, "benefits", catalog, time.Now())
	assert.ErrorIs(t, err, ErrModuleLocked)

	_, _, err = CompleteModule(p, "missing", catalog, time.Now())
	assert.ErrorIs(t, err, ErrModuleNotVisible)

	assert.ErrorIs(t, CanStart(p, catalog, "benefits"), ErrModuleLocked)
	assert.NoError(t, CanStart(p, catalog, "hr"))
}

func TestCompleteModuleDoesNotMutateInput(t *testing.T) {
	catalog := defaultCatalog()
	p := NewProgress(model.PositionOther, []string{"registration"}, nil)

	_, _, err := CompleteModule(p, "hr", catalog, time.Now())
	require.NoError(t, err)
	assert.False(t, p.IsCompleted("hr"))
}

func TestCompletionDateLatch(t *testing.T) {
	catalog := []model.Module{mod("registration", 1), mod("hr", 2), mod("benefits", 3)}
	t1 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	p := NewProgress(model.PositionOther, []string{"registration"}, nil)
	p, res, err := CompleteModule(p, "hr", catalog, t1)
	require.NoError(t, err)
	assert.False(t, res.CompletionReached)
	assert.Nil(t, p.CompletionDate, "not every assigned module is done yet")

	p, res, err = CompleteModule(p, "benefits", catalog, t1)
	require.NoError(t, err)
	assert.True(t, res.CompletionReached)
	require.NotNil(t, p.CompletionDate)
	assert.Equal(t, t1, *p.CompletionDate)

	// a module added later does not clear or move the latch
	catalog = append(catalog, mod("extra", 4))
	p, res, err = CompleteModule(p, "extra", catalog, t2)
	require.NoError(t, err)
	assert.False(t, res.CompletionReached)
	assert.Equal(t, t1, *p.CompletionDate)
}

func TestSummarize(t *testing.T) {
	catalog := []model.Module{mod("registration", 1), mod("hr", 2), mod("benefits", 3)}

	s := Summarize(NewProgress(model.PositionOther, []string{"registration", "unknown"}, nil), catalog)
	assert.Equal(t, 3, s.Assigned)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, "33.3", s.Percent.String())

	empty := Summarize(NewProgress(model.PositionOther, nil, nil), nil)
	assert.True(t, empty.Percent.IsZero())
}
