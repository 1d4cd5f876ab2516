package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job positions accepted at registration
const (
	PositionSecurity         = "Segurança/Recepção"
	PositionGeneralCleaning  = "Limpeza Geral"
	PositionHospitalCleaning = "Limpeza Hospitalar"
	PositionAdministrative   = "Administrativo"
	PositionManagement       = "Gerência"
	PositionTechnician       = "Técnico"
	PositionOther            = "Outros"
)

var JobPositions = []string{
	PositionSecurity,
	PositionGeneralCleaning,
	PositionHospitalCleaning,
	PositionAdministrative,
	PositionManagement,
	PositionTechnician,
	PositionOther,
}

var Companies = []string{
	"GPS Segurança",
	"GPS Limpeza",
	"GPS Hospitalar",
	"GPS Facilities",
	"GPS Tecnologia",
}

func IsJobPosition(v string) bool { return contains(JobPositions, v) }

func IsCompany(v string) bool { return contains(Companies, v) }

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Employee is the onboarding record of one hired person
type Employee struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	FullName         string             `gorm:"type:varchar(255);not null" json:"full_name"`
	CPF              string             `gorm:"column:cpf;type:varchar(14);uniqueIndex;not null" json:"cpf"`
	JobPosition      string             `gorm:"type:varchar(100);not null;index" json:"job_position"`
	Company          string             `gorm:"type:varchar(100);not null" json:"company"`
	HiredBy          string             `gorm:"type:varchar(255)" json:"hired_by"`
	RegistrationDate time.Time          `gorm:"not null" json:"registration_date"`
	CompletionDate   *time.Time         `gorm:"index" json:"completion_date"` // set once, never cleared
	IsBlocked        bool               `gorm:"not null" json:"is_blocked"`
	Completions      []ModuleCompletion `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// CompletedModuleIDs flattens the loaded completion rows
func (e *Employee) CompletedModuleIDs() []string {
	ids := make([]string, 0, len(e.Completions))
	for _, c := range e.Completions {
		ids = append(ids, c.ModuleID)
	}
	return ids
}

// ModuleCompletion is one member of an employee's completed-module set
type ModuleCompletion struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_employee_module" json:"employee_id"`
	ModuleID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_employee_module" json:"module_id"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
}

// NormalizeCPF strips punctuation and formats the 11 digits as 000.000.000-00
func NormalizeCPF(raw string) (string, bool) {
	digits := make([]byte, 0, 11)
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits = append(digits, ch)
		case ch == '.' || ch == '-' || ch == ' ':
		default:
			return "", false
		}
	}
	if len(digits) != 11 {
		return "", false
	}
	d := string(digits)
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], true
}
