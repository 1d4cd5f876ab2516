package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"onboarding/internal/apierr"
	"onboarding/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := apierr.From(err)
	require.True(t, ok, "expected *apierr.Error, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
}

func TestModuleService_ReorderRenumbersFromOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: "a", Title: "A", Order: 1},
		model.Module{ID: "b", Title: "B", Order: 2},
		model.Module{ID: "c", Title: "C", Order: 3},
	)

	modules, err := f.modules.Reorder(ctx, "admin", []string{"c", "a", "b"})
	require.NoError(t, err)
	require.Len(t, modules, 3)
	for i, want := range []string{"c", "a", "b"} {
		assert.Equal(t, want, modules[i].ID)
		assert.Equal(t, i+1, modules[i].Order)
	}

	msgs := f.bus.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.EventModuleReorder, msgs[0].Type)

	var payload moduleReorderPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, []moduleOrder{{ID: "c", Order: 1}, {ID: "a", Order: 2}, {ID: "b", Order: 3}}, payload.Modules)
}

func TestModuleService_ReorderRejectsPartialLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: "a", Title: "A", Order: 1},
		model.Module{ID: "b", Title: "B", Order: 2},
	)

	tests := []struct {
		name string
		ids  []string
	}{
		{"missing", []string{"a"}},
		{"unknown", []string{"a", "z"}},
		{"duplicate", []string{"a", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.modules.Reorder(ctx, "admin", tt.ids)
			requireAPIError(t, err, http.StatusBadRequest, apierr.CodeValidation)
		})
	}

	modules, err := f.modules.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", modules[0].ID)
	assert.Empty(t, f.bus.published())
}

func TestModuleService_CreateAppendsAndHidesAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t, model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1})

	created, err := f.modules.Create(ctx, "admin", CreateModuleRequest{
		Title:       "  Fire drill ",
		TargetAreas: []string{model.PositionSecurity},
		Questions: []model.QuizQuestion{{
			Text:            "Exit?",
			Options:         []model.QuizOption{{ID: "a", Text: "Door"}, {ID: "b", Text: "Window"}},
			CorrectOptionID: "a",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Fire drill", created.Title)
	assert.Equal(t, 2, created.Order)
	assert.True(t, created.IsCustom)
	assert.NotEmpty(t, created.ID)
	require.Len(t, created.Questions, 1)
	assert.NotEmpty(t, created.Questions[0].ID)

	msgs := f.bus.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.EventModuleAdd, msgs[0].Type)
	assert.NotContains(t, string(msgs[0].Payload), "correct_option_id")

	events, err := f.modules.EventsSince(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, msgs[0].Seq, events[0].Seq)
}

func TestModuleService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t, model.Module{ID: "taken", Title: "Taken", Order: 1})

	tests := []struct {
		name   string
		req    CreateModuleRequest
		status int
	}{
		{"blank title", CreateModuleRequest{Title: "  "}, http.StatusBadRequest},
		{"bad slug", CreateModuleRequest{ID: "Not A Slug", Title: "X"}, http.StatusBadRequest},
		{"unknown area", CreateModuleRequest{Title: "X", TargetAreas: []string{"Astronauta"}}, http.StatusBadRequest},
		{"single option", CreateModuleRequest{Title: "X", Questions: []model.QuizQuestion{{
			Text: "Q", Options: []model.QuizOption{{ID: "a", Text: "A"}}, CorrectOptionID: "a",
		}}}, http.StatusBadRequest},
		{"duplicate id", CreateModuleRequest{ID: "taken", Title: "X"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.modules.Create(ctx, "admin", tt.req)
			require.Error(t, err)
			apiErr, ok := apierr.From(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestModuleService_UpdatePublishesOnlyChangedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t, model.Module{ID: "hr", Title: "HR", Description: "old", Order: 1})

	title := "Recursos Humanos"
	updated, err := f.modules.Update(ctx, "admin", "hr", UpdateModuleRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "old", updated.Description)

	msgs := f.bus.published()
	require.Len(t, msgs, 1)
	var payload moduleUpdatePayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "hr", payload.ModuleID)
	assert.Equal(t, map[string]interface{}{"title": title}, payload.Updates)

	_, err = f.modules.Update(ctx, "admin", "hr", UpdateModuleRequest{})
	requireAPIError(t, err, http.StatusBadRequest, apierr.CodeValidation)

	_, err = f.modules.Update(ctx, "admin", "missing", UpdateModuleRequest{Title: &title})
	requireAPIError(t, err, http.StatusNotFound, apierr.CodeNotFound)
}

func TestModuleService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCatalog(t,
		model.Module{ID: model.RegistrationModuleID, Title: "Cadastro", Order: 1},
		model.Module{ID: "hr", Title: "HR", Order: 2},
	)

	err := f.modules.Delete(ctx, "admin", model.RegistrationModuleID)
	requireAPIError(t, err, http.StatusBadRequest, apierr.CodeValidation)

	require.NoError(t, f.modules.Delete(ctx, "admin", "hr"))
	_, err = f.modules.Get(ctx, "hr")
	requireAPIError(t, err, http.StatusNotFound, apierr.CodeNotFound)

	msgs := f.bus.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.EventModuleDelete, msgs[0].Type)
	assert.JSONEq(t, `{"module_id":"hr"}`, string(msgs[0].Payload))
}

func TestModuleService_SeedDefaultsOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.modules.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCatalog()), n)

	n, err = f.modules.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	registration, err := f.modules.Get(ctx, model.RegistrationModuleID)
	require.NoError(t, err)
	assert.Equal(t, 1, registration.Order)
}
