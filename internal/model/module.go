package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RegistrationModuleID is the checkpoint module every employee completes at registration
const RegistrationModuleID = "registration"

// QuizOption is one selectable answer of a quiz question
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuizQuestion is stored inline on the module as JSON
type QuizQuestion struct {
	ID              string       `json:"id"`
	Text            string       `json:"text"`
	Options         []QuizOption `json:"options"`
	CorrectOptionID string       `json:"correct_option_id"`
}

// Module is one unit of onboarding content in the shared catalog.
// Lock and completion state are per employee and are never stored here.
type Module struct {
	ID          string                            `gorm:"type:varchar(64);primaryKey" json:"id"`
	Title       string                            `gorm:"type:varchar(255);not null" json:"title"`
	Description string                            `gorm:"type:text" json:"description"`
	Order       int                               `gorm:"column:sort_order;not null;index" json:"order"`
	TargetAreas datatypes.JSONSlice[string]       `json:"target_areas"`                                 // empty = every job position
	VideoURL    string                            `gorm:"type:varchar(1024)" json:"video_url,omitempty"` // empty = no video stage
	Questions   datatypes.JSONSlice[QuizQuestion] `json:"questions,omitempty"`                           // empty = no quiz stage
	IsCustom    bool                              `gorm:"not null" json:"is_custom"`
	CreatedAt   time.Time                         `json:"created_at"`
	UpdatedAt   time.Time                         `json:"updated_at"`
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// AfterFind normalizes JSON columns that were stored as null
func (m *Module) AfterFind(tx *gorm.DB) error {
	if m.TargetAreas == nil {
		m.TargetAreas = datatypes.JSONSlice[string]{}
	}
	if m.Questions == nil {
		m.Questions = datatypes.JSONSlice[QuizQuestion]{}
	}
	return nil
}

func (m Module) HasVideo() bool { return m.VideoURL != "" }

func (m Module) HasQuiz() bool { return len(m.Questions) > 0 }

// TargetsPosition reports whether an employee with jobPosition is assigned this module
func (m Module) TargetsPosition(jobPosition string) bool {
	if len(m.TargetAreas) == 0 {
		return true
	}
	for _, area := range m.TargetAreas {
		if area == jobPosition {
			return true
		}
	}
	return false
}
