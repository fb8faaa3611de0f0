package types

import (
	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/providers"
)

// ProviderOverrides carries the client-side provider preference and keys.
// Server-configured keys take precedence over these.
type ProviderOverrides struct {
	Provider        string `json:"provider,omitempty" validate:"omitempty,oneof=google openrouter"`
	GoogleKey       string `json:"googleKey,omitempty"`
	OpenRouterKey   string `json:"openRouterKey,omitempty"`
	OpenRouterModel string `json:"openRouterModel,omitempty"`
}

// Credentials converts the overrides into a credential bag.
func (p ProviderOverrides) Credentials() providers.CredentialBag {
	return providers.CredentialBag{
		providers.Google:     {APIKey: p.GoogleKey},
		providers.OpenRouter: {APIKey: p.OpenRouterKey, Model: p.OpenRouterModel},
	}
}

// Preferred returns the preferred provider, defaulting to google.
func (p ProviderOverrides) Preferred() providers.Name {
	if n, ok := providers.ParseName(p.Provider); ok {
		return n
	}
	return providers.Google
}

type AnalyzeRequest struct {
	BlueprintURL string `json:"blueprintUrl"`
	ProviderOverrides
}

type ProjectCreateRequest struct {
	Name               string                    `json:"name" validate:"required,max=255"`
	Description        string                    `json:"description"`
	BlueprintURL       string                    `json:"blueprint_url"`
	Location           *models.Location          `json:"location"`
	ExtractedData      *models.BlueprintAnalysis `json:"extracted_data"`
	MaterialSelections models.MaterialSelection  `json:"material_selections"`
}

type ProjectUpdateRequest struct {
	Name               *string                   `json:"name" validate:"omitempty,min=1,max=255"`
	Description        *string                   `json:"description"`
	BlueprintURL       *string                   `json:"blueprint_url"`
	Status             *string                   `json:"status" validate:"omitempty,oneof=draft analyzing ready in_progress completed"`
	Location           *models.Location          `json:"location"`
	ExtractedData      *models.BlueprintAnalysis `json:"extracted_data"`
	MaterialSelections models.MaterialSelection  `json:"material_selections"`
}

type ProjectAnalyzeRequest struct {
	ProviderOverrides
}

type EstimateRequest struct {
	ProviderOverrides
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

type ScheduleRequest struct {
	Phases            []models.PhaseEstimate `json:"phases" validate:"required,min=1,dive"`
	StartDate         string                 `json:"start_date" validate:"required,datetime=2006-01-02"`
	TotalDurationDays int                    `json:"total_duration_days" validate:"gte=0"`
}
