package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History record types
const (
	HistoryCreated   = "CRIAÇÃO"
	HistoryEdited    = "EDIÇÃO"
	HistoryBlocked   = "BLOQUEIO"
	HistoryUnblocked = "DESBLOQUEIO"
	HistoryAbsence   = "AUSÊNCIA"
)

// HistoryRecord is an append-only audit entry attached to an employee
type HistoryRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index" json:"employee_id"`
	Type       string    `gorm:"type:varchar(20);not null;index" json:"type"`
	Details    string    `gorm:"type:text" json:"details"`
	Author     string    `gorm:"type:varchar(255);not null" json:"author"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (HistoryRecord) TableName() string {
	return "employee_histories"
}

func (h *HistoryRecord) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
