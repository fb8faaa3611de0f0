package types

import (
	"github.com/blueprintpro/estimator/internal/estimate"
	"github.com/blueprintpro/estimator/internal/models"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	Page      int    `json:"page,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	Total     int64  `json:"total,omitempty"`
}

// AnalyzeResponse is the 200 body of POST /api/analyze.
type AnalyzeResponse struct {
	Provider string                    `json:"provider"`
	Result   *models.BlueprintAnalysis `json:"result"`
}

// ProviderFailure is one entry of the 502 details list.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// ErrorBody is the bare error body of the analyze endpoint. Details and
// ProviderOrder are only set for the 502 case.
type ErrorBody struct {
	Error         string            `json:"error"`
	Details       []ProviderFailure `json:"details,omitempty"`
	ProviderOrder []string          `json:"provider_order,omitempty"`
}

// NoProviderBody is the 502 body; details is always present, possibly empty.
type NoProviderBody struct {
	Error         string            `json:"error"`
	Details       []ProviderFailure `json:"details"`
	ProviderOrder []string          `json:"provider_order"`
}

// EstimateResponse is returned by the project estimate route.
type EstimateResponse struct {
	Project  *models.Project  `json:"project"`
	Provider string           `json:"provider"`
	Summary  estimate.Summary `json:"summary"`
}

// EstimateQueued is returned when the estimate was handed to the worker.
type EstimateQueued struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
	Queue     string `json:"queue"`
}

// ProjectDetail is a project together with its cost summary and the wizard
// step it resumes at.
type ProjectDetail struct {
	*models.Project
	ResumeStep string            `json:"resume_step"`
	Summary    *estimate.Summary `json:"summary,omitempty"`
}
