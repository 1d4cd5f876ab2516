package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"onboarding/internal/apierr"
	"onboarding/internal/logger"
	"onboarding/internal/model"
	"onboarding/internal/realtime"
	"onboarding/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DTOs
type CreateModuleRequest struct {
	ID          string               `json:"id"` // optional slug; generated when blank
	Title       string               `json:"title" binding:"required"`
	Description string               `json:"description"`
	TargetAreas []string             `json:"target_areas"`
	VideoURL    string               `json:"video_url"`
	Questions   []model.QuizQuestion `json:"questions"`
}

// UpdateModuleRequest is a partial update; nil fields are left untouched
type UpdateModuleRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	TargetAreas *[]string             `json:"target_areas"`
	VideoURL    *string               `json:"video_url"`
	Questions   *[]model.QuizQuestion `json:"questions"`
}

type ReorderModulesRequest struct {
	ModuleIDs []string `json:"module_ids" binding:"required,min=1"`
}

// change feed payloads
type moduleUpdatePayload struct {
	ModuleID string                 `json:"module_id"`
	Updates  map[string]interface{} `json:"updates"`
}

type moduleOrder struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type moduleReorderPayload struct {
	Modules []moduleOrder `json:"modules"`
}

type moduleAddPayload struct {
	Module CatalogModule `json:"module"`
}

type moduleDeletePayload struct {
	ModuleID string `json:"module_id"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

type ModuleService interface {
	List(ctx context.Context) ([]model.Module, error)
	Get(ctx context.Context, id string) (*model.Module, error)
	Create(ctx context.Context, author string, req CreateModuleRequest) (*model.Module, error)
	Update(ctx context.Context, author, id string, req UpdateModuleRequest) (*model.Module, error)
	Delete(ctx context.Context, author, id string) error
	Reorder(ctx context.Context, author string, ids []string) ([]model.Module, error)
	SeedDefaults(ctx context.Context) (int, error)
	EventsSince(ctx context.Context, seq uint64, limit int) ([]realtime.Message, error)
}

type moduleService struct {
	moduleRepo repository.ModuleRepository
	eventRepo  repository.CatalogEventRepository
	txManager  repository.TransactionManager
	bus        realtime.Bus
	log        *logger.Logger
}

func NewModuleService(
	moduleRepo repository.ModuleRepository,
	eventRepo repository.CatalogEventRepository,
	txManager repository.TransactionManager,
	bus realtime.Bus,
	log *logger.Logger,
) ModuleService {
	if log == nil {
		log = logger.Nop()
	}
	return &moduleService{
		moduleRepo: moduleRepo,
		eventRepo:  eventRepo,
		txManager:  txManager,
		bus:        bus,
		log:        log.With("service", "ModuleService"),
	}
}

func (s *moduleService) List(ctx context.Context) ([]model.Module, error) {
	modules, err := s.moduleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

func (s *moduleService) Get(ctx context.Context, id string) (*model.Module, error) {
	module, err := s.moduleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("module not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return module, nil
}

func (s *moduleService) Create(ctx context.Context, author string, req CreateModuleRequest) (*model.Module, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apierr.Validation("title is required")
	}
	id := strings.TrimSpace(req.ID)
	if id != "" && !slugPattern.MatchString(id) {
		return nil, apierr.Validation("id must be a lowercase slug")
	}
	if err := validateTargetAreas(req.TargetAreas); err != nil {
		return nil, err
	}
	questions, err := normalizeQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	module := model.Module{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		TargetAreas: datatypes.JSONSlice[string](nonNil(req.TargetAreas)),
		VideoURL:    strings.TrimSpace(req.VideoURL),
		Questions:   datatypes.JSONSlice[model.QuizQuestion](questions),
		IsCustom:    true,
	}

	var event model.CatalogEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if id != "" {
			if _, err := s.moduleRepo.FindByID(txCtx, id); err == nil {
				return apierr.New(http.StatusConflict, apierr.CodeValidation, errors.New("module id already exists"))
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("database error: %w", err)
			}
		}

		maxOrder, err := s.moduleRepo.MaxOrder(txCtx)
		if err != nil {
			return fmt.Errorf("failed to read catalog order: %w", err)
		}
		module.Order = maxOrder + 1

		if err := s.moduleRepo.Create(txCtx, &module); err != nil {
			return fmt.Errorf("failed to create module: %w", err)
		}
		event, err = s.appendEvent(txCtx, model.EventModuleAdd, author, moduleAddPayload{Module: toCatalogModule(module)})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return &module, nil
}

func (s *moduleService) Update(ctx context.Context, author, id string, req UpdateModuleRequest) (*model.Module, error) {
	var module *model.Module
	var event model.CatalogEvent

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.moduleRepo.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("module not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		module = found

		updates := map[string]interface{}{}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return apierr.Validation("title cannot be blank")
			}
			module.Title = title
			updates["title"] = title
		}
		if req.Description != nil {
			module.Description = strings.TrimSpace(*req.Description)
			updates["description"] = module.Description
		}
		if req.TargetAreas != nil {
			if err := validateTargetAreas(*req.TargetAreas); err != nil {
				return err
			}
			module.TargetAreas = datatypes.JSONSlice[string](nonNil(*req.TargetAreas))
			updates["target_areas"] = nonNil(*req.TargetAreas)
		}
		if req.VideoURL != nil {
			module.VideoURL = strings.TrimSpace(*req.VideoURL)
			updates["video_url"] = module.VideoURL
		}
		if req.Questions != nil {
			questions, err := normalizeQuestions(*req.Questions)
			if err != nil {
				return err
			}
			module.Questions = datatypes.JSONSlice[model.QuizQuestion](questions)
			updates["questions"] = publicQuestions(questions)
		}
		if len(updates) == 0 {
			return apierr.Validation("no fields to update")
		}

		if err := s.moduleRepo.Update(txCtx, module); err != nil {
			return fmt.Errorf("failed to update module: %w", err)
		}
		event, err = s.appendEvent(txCtx, model.EventModuleUpdate, author, moduleUpdatePayload{ModuleID: id, Updates: updates})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return module, nil
}

func (s *moduleService) Delete(ctx context.Context, author, id string) error {
	if id == model.RegistrationModuleID {
		return apierr.Validation("the registration module cannot be deleted")
	}

	var event model.CatalogEvent
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.moduleRepo.FindByID(txCtx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("module not found")
			}
			return fmt.Errorf("database error: %w", err)
		}
		if err := s.moduleRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete module: %w", err)
		}
		var err error
		event, err = s.appendEvent(txCtx, model.EventModuleDelete, author, moduleDeletePayload{ModuleID: id})
		return err
	})
	if err != nil {
		return err
	}

	s.publish(ctx, event)
	return nil
}

// Reorder takes every module id in the new order and renumbers them from 1
func (s *moduleService) Reorder(ctx context.Context, author string, ids []string) ([]model.Module, error) {
	var modules []model.Module
	var event model.CatalogEvent

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.moduleRepo.ListAll(txCtx)
		if err != nil {
			return fmt.Errorf("failed to list modules: %w", err)
		}
		if err := validatePermutation(current, ids); err != nil {
			return err
		}

		payload := moduleReorderPayload{Modules: make([]moduleOrder, 0, len(ids))}
		for i, id := range ids {
			if err := s.moduleRepo.UpdateOrder(txCtx, id, i+1); err != nil {
				return fmt.Errorf("failed to reorder module %s: %w", id, err)
			}
			payload.Modules = append(payload.Modules, moduleOrder{ID: id, Order: i + 1})
		}

		event, err = s.appendEvent(txCtx, model.EventModuleReorder, author, payload)
		if err != nil {
			return err
		}
		modules, err = s.moduleRepo.ListAll(txCtx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return modules, nil
}

// SeedDefaults installs the stock catalog into an empty database
func (s *moduleService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.moduleRepo.Count(txCtx)
		if err != nil {
			return fmt.Errorf("failed to count modules: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, m := range DefaultCatalog() {
			module := m
			if err := s.moduleRepo.Create(txCtx, &module); err != nil {
				return fmt.Errorf("failed to seed module %s: %w", module.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.log.Info("seeded default catalog", "modules", created)
	}
	return created, nil
}

func (s *moduleService) EventsSince(ctx context.Context, seq uint64, limit int) ([]realtime.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	events, err := s.eventRepo.ListSince(ctx, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog events: %w", err)
	}
	return realtime.FromEvents(events), nil
}

func (s *moduleService) appendEvent(ctx context.Context, eventType, author string, payload interface{}) (model.CatalogEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return model.CatalogEvent{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	event := model.CatalogEvent{Type: eventType, Payload: datatypes.JSON(raw), Author: author}
	if err := s.eventRepo.Append(ctx, &event); err != nil {
		return model.CatalogEvent{}, fmt.Errorf("failed to append catalog event: %w", err)
	}
	return event, nil
}

// publish runs after commit; a lost publish is recovered by since-replay
func (s *moduleService) publish(ctx context.Context, event model.CatalogEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, realtime.FromEvent(event)); err != nil {
		s.log.Warn("failed to publish catalog event", "seq", event.Seq, "type", event.Type, "error", err)
	}
}

func validatePermutation(current []model.Module, ids []string) error {
	if len(ids) != len(current) {
		return apierr.Validation(fmt.Sprintf("reorder must list all %d modules", len(current)))
	}
	known := make(map[string]bool, len(current))
	for _, m := range current {
		known[m.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return apierr.Validation("unknown module id: " + id)
		}
		if seen[id] {
			return apierr.Validation("duplicate module id: " + id)
		}
		seen[id] = true
	}
	return nil
}

func validateTargetAreas(areas []string) error {
	for _, a := range areas {
		if !model.IsJobPosition(a) {
			return apierr.Validation("unknown job position: " + a)
		}
	}
	return nil
}

// normalizeQuestions fills missing ids and rejects questions that cannot be graded
func normalizeQuestions(in []model.QuizQuestion) ([]model.QuizQuestion, error) {
	out := make([]model.QuizQuestion, 0, len(in))
	seen := map[string]bool{}
	for i, q := range in {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			return nil, apierr.Validation(fmt.Sprintf("question %d has no text", i+1))
		}
		if len(q.Options) < 2 {
			return nil, apierr.Validation(fmt.Sprintf("question %d needs at least two options", i+1))
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if seen[q.ID] {
			return nil, apierr.Validation("duplicate question id: " + q.ID)
		}
		seen[q.ID] = true

		options := make([]model.QuizOption, 0, len(q.Options))
		hasCorrect := false
		for j, o := range q.Options {
			if o.ID == "" {
				o.ID = fmt.Sprintf("%s-%d", q.ID, j+1)
			}
			if o.ID == q.CorrectOptionID {
				hasCorrect = true
			}
			options = append(options, o)
		}
		if !hasCorrect {
			return nil, apierr.Validation(fmt.Sprintf("question %d has no valid correct option", i+1))
		}
		q.Options = options
		out = append(out, q)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
