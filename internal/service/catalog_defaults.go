package service

import (
	"onboarding/internal/model"

	"gorm.io/datatypes"
)

// DefaultCatalog is the stock onboarding sequence installed on first start.
// Modules sharing order 6 are role specific and never visible together.
func DefaultCatalog() []model.Module {
	all := []string{}
	return []model.Module{
		{ID: model.RegistrationModuleID, Title: "Cadastro", Description: "Complete seu cadastro", Order: 1, TargetAreas: all},
		{ID: "hr", Title: "Recursos Humanos", Description: "Políticas e procedimentos da empresa", Order: 2, TargetAreas: all},
		{
			ID: "quality", Title: "Garantia de Qualidade", Description: "Padrões e processos de qualidade", Order: 3,
			TargetAreas: datatypes.JSONSlice[string]{model.PositionAdministrative, model.PositionManagement, model.PositionTechnician},
		},
		{
			ID: "safety", Title: "Segurança do Trabalho e Meio Ambiente", Description: "Protocolos de segurança e diretrizes ambientais", Order: 4,
			TargetAreas: datatypes.JSONSlice[string]{model.PositionSecurity, model.PositionGeneralCleaning, model.PositionHospitalCleaning, model.PositionTechnician},
		},
		{ID: "benefits", Title: "Benefícios", Description: "Benefícios e remuneração dos funcionários", Order: 5, TargetAreas: all},
		{
			ID: "asset-protection", Title: "Proteção de Ativos", Description: "Protocolos de segurança e proteção de ativos", Order: 6,
			TargetAreas: datatypes.JSONSlice[string]{model.PositionSecurity},
		},
		{
			ID: "infrastructure", Title: "Serviços de Infraestrutura", Description: "Protocolos de limpeza e manutenção de infraestrutura", Order: 6,
			TargetAreas: datatypes.JSONSlice[string]{model.PositionGeneralCleaning},
		},
		{
			ID: "hospital-care", Title: "Cuidados Hospitalares", Description: "Protocolos de limpeza e higiene hospitalar", Order: 6,
			TargetAreas: datatypes.JSONSlice[string]{model.PositionHospitalCleaning},
		},
	}
}
