package service

import (
	"time"

	"onboarding/internal/model"
	"onboarding/internal/progression"
)

// QuestionView is a quiz question without its answer key
type QuestionView struct {
	ID      string             `json:"id"`
	Text    string             `json:"text"`
	Options []model.QuizOption `json:"options"`
}

func publicQuestions(qs []model.QuizQuestion) []QuestionView {
	out := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		out = append(out, QuestionView{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	return out
}

// CatalogModule is a module as published on the change feed and to employees
type CatalogModule struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Order       int            `json:"order"`
	TargetAreas []string       `json:"target_areas"`
	VideoURL    string         `json:"video_url,omitempty"`
	Questions   []QuestionView `json:"questions"`
	IsCustom    bool           `json:"is_custom"`
}

func toCatalogModule(m model.Module) CatalogModule {
	return CatalogModule{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Order:       m.Order,
		TargetAreas: nonNil(m.TargetAreas),
		VideoURL:    m.VideoURL,
		Questions:   publicQuestions(m.Questions),
		IsCustom:    m.IsCustom,
	}
}

// ModuleViewResponse is one module in an employee's sequence
type ModuleViewResponse struct {
	CatalogModule
	Position    int  `json:"position"`
	HasVideo    bool `json:"has_video"`
	HasQuiz     bool `json:"has_quiz"`
	IsLocked    bool `json:"is_locked"`
	IsCompleted bool `json:"is_completed"`
}

func toModuleViews(views []progression.ModuleView) []ModuleViewResponse {
	out := make([]ModuleViewResponse, 0, len(views))
	for _, v := range views {
		out = append(out, ModuleViewResponse{
			CatalogModule: toCatalogModule(v.Module),
			Position:      v.Position,
			HasVideo:      v.Module.HasVideo(),
			HasQuiz:       v.Module.HasQuiz(),
			IsLocked:      v.IsLocked,
			IsCompleted:   v.IsCompleted,
		})
	}
	return out
}

type EmployeeResponse struct {
	ID               string     `json:"id"`
	FullName         string     `json:"full_name"`
	CPF              string     `json:"cpf"`
	JobPosition      string     `json:"job_position"`
	Company          string     `json:"company"`
	HiredBy          string     `json:"hired_by"`
	RegistrationDate time.Time  `json:"registration_date"`
	CompletionDate   *time.Time `json:"completion_date"`
	IsBlocked        bool       `json:"is_blocked"`
	CompletedModules []string   `json:"completed_modules"`
}

func toEmployeeResponse(e *model.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:               e.ID.String(),
		FullName:         e.FullName,
		CPF:              e.CPF,
		JobPosition:      e.JobPosition,
		Company:          e.Company,
		HiredBy:          e.HiredBy,
		RegistrationDate: e.RegistrationDate,
		CompletionDate:   e.CompletionDate,
		IsBlocked:        e.IsBlocked,
		CompletedModules: progression.FromEmployee(e).CompletedIDs(),
	}
}
