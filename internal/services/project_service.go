package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/estimate"
	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/orchestrator"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/repository"
	"github.com/blueprintpro/estimator/internal/schedule"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
	"github.com/blueprintpro/estimator/pkg/logger"
)

// Service interface and related DTOs
type ProjectService interface {
	// Project CRUD
	CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error)
	ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, int64, error)
	UpdateProject(ctx context.Context, projectID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID) error

	// Wizard actions
	AnalyzeProject(ctx context.Context, projectID uuid.UUID, choice ProviderChoice) (*models.Project, error)
	GenerateEstimate(ctx context.Context, projectID uuid.UUID, input *EstimateInput) (*EstimateOutcome, error)
	EnqueueEstimate(ctx context.Context, projectID uuid.UUID, input *EstimateInput) (*QueuedEstimate, error)
}

type CreateProjectInput struct {
	Name               string
	Description        string
	BlueprintURL       string
	Location           *models.Location
	ExtractedData      *models.BlueprintAnalysis
	MaterialSelections models.MaterialSelection
}

type UpdateProjectInput struct {
	Name               *string
	Description        *string
	BlueprintURL       *string
	Status             *models.ProjectStatus
	Location           *models.Location
	ExtractedData      *models.BlueprintAnalysis
	MaterialSelections models.MaterialSelection
}

// ProviderChoice is the caller's provider preference plus any keys it
// brought along. Server keys win over these.
type ProviderChoice struct {
	Preferred providers.Name
	Client    providers.CredentialBag
}

type EstimateInput struct {
	Provider ProviderChoice
	// StartDate anchors the schedule; zero means today.
	StartDate models.Date
}

type EstimateOutcome struct {
	Project  *models.Project
	Provider providers.Name
	Summary  estimate.Summary
}

type QueuedEstimate struct {
	ProjectID uuid.UUID
	TaskID    string
	Queue     string
}

// Analyzer runs blueprint analysis across providers.
type Analyzer interface {
	Orchestrate(ctx context.Context, imageURL string, preferred providers.Name, creds providers.CredentialBag) (*orchestrator.Result, error)
}

// EstimateGenerator produces a validated estimate with a single model call.
type EstimateGenerator interface {
	Generate(ctx context.Context, in estimate.Input, preferred providers.Name, creds providers.CredentialBag) (*estimate.Result, error)
}

// EstimateJob is the work handed to the background queue.
type EstimateJob struct {
	ProjectID uuid.UUID
	Preferred providers.Name
	StartDate models.Date
}

// Enqueuer hands estimate jobs to the background worker.
type Enqueuer interface {
	EnqueueEstimate(ctx context.Context, job EstimateJob) (taskID, queue string, err error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	analyzer    Analyzer
	generator   EstimateGenerator
	enqueuer    Enqueuer
	serverCreds providers.CredentialBag
	now         func() time.Time
	log         *zap.Logger
}

// ProjectServiceOption customizes a project service.
type ProjectServiceOption func(*projectService)

// WithEnqueuer enables asynchronous estimate generation.
func WithEnqueuer(e Enqueuer) ProjectServiceOption {
	return func(s *projectService) { s.enqueuer = e }
}

// WithClock replaces the clock used for default schedule start dates.
func WithClock(now func() time.Time) ProjectServiceOption {
	return func(s *projectService) { s.now = now }
}

func NewProjectService(projectRepo repository.ProjectRepository, analyzer Analyzer, generator EstimateGenerator, serverCreds providers.CredentialBag, opts ...ProjectServiceOption) ProjectService {
	s := &projectService{
		projectRepo: projectRepo,
		analyzer:    analyzer,
		generator:   generator,
		serverCreds: serverCreds,
		now:         time.Now,
		log:         logger.Named("projects"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

// CreateProject creates a draft project.
func (s *projectService) CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error) {
	s.log.Info("create project called", zap.String("name", input.Name))

	p := &models.Project{
		Name:         input.Name,
		Description:  input.Description,
		BlueprintURL: input.BlueprintURL,
		Status:       models.StatusDraft,
	}
	if err := applyDocuments(p, input.Location, input.ExtractedData, input.MaterialSelections); err != nil {
		return nil, err
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("project created", zap.String("project_id", p.ID.String()))
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *projectService) ListProjects(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, appErr.Invalid("invalid status filter")
	}
	return s.projectRepo.List(ctx, filter)
}

func (s *projectService) UpdateProject(ctx context.Context, projectID uuid.UUID, updates *UpdateProjectInput) (*models.Project, error) {
	s.log.Info("update project", zap.String("project_id", projectID.String()))
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if updates.Name != nil {
		p.Name = *updates.Name
	}
	if updates.Description != nil {
		p.Description = *updates.Description
	}
	if updates.BlueprintURL != nil {
		p.BlueprintURL = *updates.BlueprintURL
	}
	if err := applyDocuments(p, updates.Location, updates.ExtractedData, updates.MaterialSelections); err != nil {
		return nil, err
	}
	if updates.Status != nil {
		if !updates.Status.Valid() {
			return nil, appErr.Invalid("invalid project status")
		}
		p.Status = *updates.Status
	} else {
		p.RefreshStatus(p.HasEstimates())
	}

	if err := s.projectRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("project updated", zap.String("project_id", projectID.String()), zap.String("status", string(p.Status)))
	return p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	s.log.Info("delete project", zap.String("project_id", projectID.String()))
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}
	s.log.Info("project deleted", zap.String("project_id", projectID.String()))
	return nil
}

// AnalyzeProject runs the analysis chain on the project's blueprint and
// stores the result. On failure the previous status is restored and the
// orchestrator error is returned unchanged.
func (s *projectService) AnalyzeProject(ctx context.Context, projectID uuid.UUID, choice ProviderChoice) (*models.Project, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.BlueprintURL == "" {
		return nil, appErr.New(appErr.CodePreconditionFailed, "project has no blueprint_url")
	}

	prev := p.Status
	if err := s.projectRepo.UpdateStatus(ctx, p.ID, models.StatusAnalyzing); err != nil {
		return nil, err
	}

	res, err := s.analyzer.Orchestrate(ctx, p.BlueprintURL, choice.Preferred, providers.Resolve(s.serverCreds, choice.Client))
	if err != nil {
		s.log.Warn("project analysis failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		s.restoreStatus(ctx, p.ID, prev)
		return nil, err
	}

	if err := p.SetAnalysis(*res.Analysis, string(res.Provider)); err != nil {
		s.restoreStatus(ctx, p.ID, prev)
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode analysis failed")
	}
	p.Status = settledStatus(prev, p)
	if err := s.projectRepo.Update(ctx, p); err != nil {
		s.log.Warn("store analysis failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		s.restoreStatus(ctx, p.ID, prev)
		return nil, err
	}

	s.log.Info("project analyzed", zap.String("project_id", p.ID.String()), zap.String("provider", string(res.Provider)))
	return p, nil
}

// restoreStatus puts back the status a failed analysis replaced. It runs
// even when ctx is already cancelled.
func (s *projectService) restoreStatus(ctx context.Context, id uuid.UUID, prev models.ProjectStatus) {
	if err := s.projectRepo.UpdateStatus(context.WithoutCancel(ctx), id, prev); err != nil {
		s.log.Error("restore status failed", zap.String("project_id", id.String()), zap.Error(err))
	}
}

// GenerateEstimate checks the wizard gates, generates an estimate, derives
// its schedule and stores everything in one update.
func (s *projectService) GenerateEstimate(ctx context.Context, projectID uuid.UUID, input *EstimateInput) (*EstimateOutcome, error) {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	in, err := estimateInput(p)
	if err != nil {
		return nil, err
	}

	res, err := s.generator.Generate(ctx, in, input.Provider.Preferred, providers.Resolve(s.serverCreds, input.Provider.Client))
	if err != nil {
		return nil, generationFailure(err)
	}

	start := input.StartDate
	if start.IsZero() {
		start = models.DateOf(s.now())
	}
	sched := schedule.FromEstimate(res.Estimate, start)
	if err := p.ApplyEstimate(res.Estimate, sched); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode estimate failed")
	}
	if err := s.projectRepo.SaveEstimate(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("estimate stored",
		zap.String("project_id", p.ID.String()),
		zap.String("provider", string(res.Provider)),
		zap.Float64("total", p.TotalEstimate),
		zap.Stringer("end_date", sched.EndDate),
	)
	return &EstimateOutcome{Project: p, Provider: res.Provider, Summary: estimate.Summarize(res.Estimate.Phases)}, nil
}

// EnqueueEstimate validates the gates now and defers generation to the
// worker. Queued jobs only use server-side keys, so client keys never reach
// the queue.
func (s *projectService) EnqueueEstimate(ctx context.Context, projectID uuid.UUID, input *EstimateInput) (*QueuedEstimate, error) {
	if s.enqueuer == nil {
		return nil, appErr.New(appErr.CodeUnavailable, "background queue is not configured")
	}
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := CheckEstimateReady(p); err != nil {
		return nil, err
	}
	if !anyConfigured(s.serverCreds) {
		return nil, appErr.New(appErr.CodePreconditionFailed, "queued estimates require server-side provider keys")
	}

	taskID, queue, err := s.enqueuer.EnqueueEstimate(ctx, EstimateJob{
		ProjectID: p.ID,
		Preferred: input.Provider.Preferred,
		StartDate: input.StartDate,
	})
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "enqueue estimate failed")
	}
	s.log.Info("estimate enqueued", zap.String("project_id", p.ID.String()), zap.String("task_id", taskID))
	return &QueuedEstimate{ProjectID: p.ID, TaskID: taskID, Queue: queue}, nil
}

func applyDocuments(p *models.Project, loc *models.Location, analysis *models.BlueprintAnalysis, sel models.MaterialSelection) error {
	if loc != nil {
		if err := p.SetLocation(*loc); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid location")
		}
	}
	if analysis != nil {
		if err := analysis.Validate(); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid extracted_data: "+err.Error())
		}
		if err := p.SetAnalysis(*analysis, p.AnalysisProvider); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid extracted_data")
		}
	}
	if sel != nil {
		if err := sel.Validate(); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid material_selections: "+err.Error())
		}
		if err := p.SetSelections(sel); err != nil {
			return appErr.Wrap(err, appErr.CodeInvalid, "invalid material_selections")
		}
	}
	return nil
}

func estimateInput(p *models.Project) (estimate.Input, error) {
	if err := CheckEstimateReady(p); err != nil {
		return estimate.Input{}, err
	}
	analysis, err := p.GetAnalysis()
	if err != nil {
		return estimate.Input{}, appErr.Wrap(err, appErr.CodeInternal, "decode extracted_data failed")
	}
	sel, err := p.GetSelections()
	if err != nil {
		return estimate.Input{}, appErr.Wrap(err, appErr.CodeInternal, "decode material_selections failed")
	}
	loc, err := p.GetLocation()
	if err != nil {
		return estimate.Input{}, appErr.Wrap(err, appErr.CodeInternal, "decode location failed")
	}
	return estimate.Input{Analysis: analysis, Selections: sel, Location: *loc}, nil
}

// settledStatus is the status after a successful analysis.
func settledStatus(prev models.ProjectStatus, p *models.Project) models.ProjectStatus {
	switch prev {
	case "", models.StatusDraft, models.StatusAnalyzing:
		return SaveStatus(p)
	}
	return prev
}

func generationFailure(err error) error {
	if errors.Is(err, estimate.ErrNoGenerator) {
		return appErr.Wrap(err, appErr.CodePreconditionFailed, "no provider configured for estimate generation")
	}
	var gen *estimate.GenerationError
	if errors.As(err, &gen) {
		e := appErr.Wrap(err, appErr.CodeBadGateway, gen.Error())
		if gen.Provider != "" {
			e.WithMeta("provider", string(gen.Provider))
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return appErr.Wrap(err, appErr.CodeDeadline, "estimate generation timed out")
	}
	return appErr.Wrap(err, appErr.CodeInternal, "estimate generation failed")
}

func anyConfigured(bag providers.CredentialBag) bool {
	for _, c := range bag {
		if c.Configured() {
			return true
		}
	}
	return false
}
