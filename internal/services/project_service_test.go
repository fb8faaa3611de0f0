package services

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blueprintpro/estimator/internal/estimate"
	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/orchestrator"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/repository"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
	"github.com/blueprintpro/estimator/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockProjectRepository struct {
	mock.Mock
}

func (m *mockProjectRepository) Create(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id any, dest *models.Project) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Project)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockProjectRepository) Update(ctx context.Context, obj *models.Project) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockProjectRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProjectRepository) List(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, int64, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]models.Project), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProjectStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockProjectRepository) SaveEstimate(ctx context.Context, p *models.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Orchestrate(ctx context.Context, imageURL string, preferred providers.Name, creds providers.CredentialBag) (*orchestrator.Result, error) {
	args := m.Called(ctx, imageURL, preferred, creds)
	if v := args.Get(0); v != nil {
		return v.(*orchestrator.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, in estimate.Input, preferred providers.Name, creds providers.CredentialBag) (*estimate.Result, error) {
	args := m.Called(ctx, in, preferred, creds)
	if v := args.Get(0); v != nil {
		return v.(*estimate.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueEstimate(ctx context.Context, job EstimateJob) (string, string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.String(1), args.Error(2)
}

func draftProject(t *testing.T) *models.Project {
	t.Helper()
	return &models.Project{
		ID:           uuid.New(),
		Name:         "Lake House",
		Status:       models.StatusDraft,
		BlueprintURL: "https://cdn.example.com/plan.png",
	}
}

func readyForEstimate(t *testing.T) *models.Project {
	t.Helper()
	p := draftProject(t)
	require.NoError(t, p.SetAnalysis(models.BlueprintAnalysis{TotalSqft: 1800, Floors: 1}, "google"))
	require.NoError(t, p.SetSelections(models.MaterialSelection{
		models.CategorySiding:   {ID: "vinyl", Name: "Vinyl Siding", Tier: models.TierBudget, PricePerUnit: 3.5, Unit: "sqft"},
		models.CategoryRoofing:  {ID: "metal", Name: "Metal Roofing", Tier: models.TierMidRange, PricePerUnit: 8.5, Unit: "sqft"},
		models.CategoryFlooring: {ID: "carpet", Name: "Carpet", Tier: models.TierBudget, PricePerUnit: 4, Unit: "sqft"},
	}))
	require.NoError(t, p.SetLocation(models.Location{City: "Denver", State: "CO"}))
	return p
}

func sampleEstimate() models.EstimateResult {
	return models.EstimateResult{
		Phases: []models.PhaseEstimate{
			{ID: models.PhaseFoundation, Name: "Foundation & Footers", MaterialsCost: 10000, LaborCost: 5000, DurationDays: 7, Dependencies: []models.PhaseID{}},
			{ID: models.PhaseFraming, Name: "Framing", MaterialsCost: 20000, LaborCost: 15000, DurationDays: 14, Dependencies: []models.PhaseID{models.PhaseFoundation}},
		},
		TotalMaterialCost: 30000,
		TotalLaborCost:    20000,
		TotalEstimate:     50000,
	}
}

func serverBag() providers.CredentialBag {
	return providers.CredentialBag{providers.Google: {APIKey: "server-key"}}
}

func expectGet(repo *mockProjectRepository, p *models.Project) {
	repo.On("GetByID", mock.Anything, p.ID, mock.AnythingOfType("*models.Project")).Return(nil, p).Once()
}

func TestCreateProject(t *testing.T) {
	repo := &mockProjectRepository{}
	svc := NewProjectService(repo, &mockAnalyzer{}, &mockGenerator{}, nil)

	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		loc, err := p.GetLocation()
		return p.Name == "Cabin" && p.Status == models.StatusDraft && err == nil && loc.Region == models.RegionNortheast
	})).Return(nil).Once()

	p, err := svc.CreateProject(context.Background(), &CreateProjectInput{
		Name:     "Cabin",
		Location: &models.Location{City: "Portland", State: "me"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ME", mustLocation(t, p).State)
	repo.AssertExpectations(t)
}

func TestCreateProjectRejectsBadSelections(t *testing.T) {
	repo := &mockProjectRepository{}
	svc := NewProjectService(repo, &mockAnalyzer{}, &mockGenerator{}, nil)

	_, err := svc.CreateProject(context.Background(), &CreateProjectInput{
		Name:               "Cabin",
		MaterialSelections: models.MaterialSelection{"moat": {ID: "x", Name: "X", Tier: models.TierBudget, Unit: "ft"}},
	})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func mustLocation(t *testing.T, p *models.Project) *models.Location {
	t.Helper()
	loc, err := p.GetLocation()
	require.NoError(t, err)
	require.NotNil(t, loc)
	return loc
}

func TestListProjectsRejectsUnknownStatus(t *testing.T) {
	svc := NewProjectService(&mockProjectRepository{}, &mockAnalyzer{}, &mockGenerator{}, nil)
	_, _, err := svc.ListProjects(context.Background(), repository.ProjectFilter{Status: "archived"})
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestUpdateProjectPromotesWhenEstimatesExist(t *testing.T) {
	repo := &mockProjectRepository{}
	svc := NewProjectService(repo, &mockAnalyzer{}, &mockGenerator{}, nil)

	p := readyForEstimate(t)
	require.NoError(t, p.ApplyEstimate(sampleEstimate(), models.Schedule{}))
	p.Status = models.StatusDraft
	expectGet(repo, p)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Project")).Return(nil).Once()

	name := "Lake House II"
	got, err := svc.UpdateProject(context.Background(), p.ID, &UpdateProjectInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Lake House II", got.Name)
	assert.Equal(t, models.StatusReady, got.Status)
	repo.AssertExpectations(t)
}

func TestAnalyzeProject(t *testing.T) {
	t.Run("stores analysis and settles to draft", func(t *testing.T) {
		repo, analyzer := &mockProjectRepository{}, &mockAnalyzer{}
		svc := NewProjectService(repo, analyzer, &mockGenerator{}, serverBag())
		p := draftProject(t)

		expectGet(repo, p)
		repo.On("UpdateStatus", mock.Anything, p.ID, models.StatusAnalyzing).Return(nil).Once()
		analyzer.On("Orchestrate", mock.Anything, p.BlueprintURL, providers.OpenRouter, mock.MatchedBy(func(bag providers.CredentialBag) bool {
			return bag.Get(providers.Google).APIKey == "server-key" && bag.Get(providers.OpenRouter).APIKey == "client-or"
		})).Return(&orchestrator.Result{
			Analysis: &models.BlueprintAnalysis{TotalSqft: 2400, Floors: 2},
			Provider: providers.Google,
		}, nil).Once()
		repo.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
			return p.Status == models.StatusDraft && p.AnalysisProvider == "google" && p.HasAnalysis()
		})).Return(nil).Once()

		got, err := svc.AnalyzeProject(context.Background(), p.ID, ProviderChoice{
			Preferred: providers.OpenRouter,
			Client: providers.CredentialBag{
				providers.Google:     {APIKey: "client-google"},
				providers.OpenRouter: {APIKey: "client-or"},
			},
		})
		require.NoError(t, err)
		a, err := got.GetAnalysis()
		require.NoError(t, err)
		assert.Equal(t, 2400.0, a.TotalSqft)
		mock.AssertExpectationsForObjects(t, repo, analyzer)
	})

	t.Run("restores status on failure", func(t *testing.T) {
		repo, analyzer := &mockProjectRepository{}, &mockAnalyzer{}
		svc := NewProjectService(repo, analyzer, &mockGenerator{}, serverBag())
		p := draftProject(t)
		p.Status = models.StatusInProgress

		failure := &orchestrator.AllProvidersFailedError{
			Order:    []providers.Name{providers.Google, providers.OpenRouter},
			Attempts: []orchestrator.Attempt{{Provider: providers.Google, Message: "HTTP 500"}},
		}
		expectGet(repo, p)
		repo.On("UpdateStatus", mock.Anything, p.ID, models.StatusAnalyzing).Return(nil).Once()
		analyzer.On("Orchestrate", mock.Anything, p.BlueprintURL, providers.Google, mock.Anything).Return(nil, failure).Once()
		repo.On("UpdateStatus", mock.Anything, p.ID, models.StatusInProgress).Return(nil).Once()

		_, err := svc.AnalyzeProject(context.Background(), p.ID, ProviderChoice{Preferred: providers.Google})
		var all *orchestrator.AllProvidersFailedError
		require.ErrorAs(t, err, &all)
		assert.Len(t, all.Attempts, 1)
		mock.AssertExpectationsForObjects(t, repo, analyzer)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("restores status when storing the analysis fails", func(t *testing.T) {
		repo, analyzer := &mockProjectRepository{}, &mockAnalyzer{}
		svc := NewProjectService(repo, analyzer, &mockGenerator{}, serverBag())
		p := draftProject(t)
		p.Status = models.StatusInProgress

		expectGet(repo, p)
		repo.On("UpdateStatus", mock.Anything, p.ID, models.StatusAnalyzing).Return(nil).Once()
		analyzer.On("Orchestrate", mock.Anything, p.BlueprintURL, providers.Google, mock.Anything).Return(&orchestrator.Result{
			Analysis: &models.BlueprintAnalysis{TotalSqft: 2400, Floors: 2},
			Provider: providers.Google,
		}, nil).Once()
		repo.On("Update", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Once()
		repo.On("UpdateStatus", mock.Anything, p.ID, models.StatusInProgress).Return(nil).Once()

		_, err := svc.AnalyzeProject(context.Background(), p.ID, ProviderChoice{Preferred: providers.Google})
		require.Error(t, err)
		mock.AssertExpectationsForObjects(t, repo, analyzer)
	})

	t.Run("requires a blueprint", func(t *testing.T) {
		repo, analyzer := &mockProjectRepository{}, &mockAnalyzer{}
		svc := NewProjectService(repo, analyzer, &mockGenerator{}, serverBag())
		p := draftProject(t)
		p.BlueprintURL = ""
		expectGet(repo, p)

		_, err := svc.AnalyzeProject(context.Background(), p.ID, ProviderChoice{})
		assert.True(t, appErr.IsCode(err, appErr.CodePreconditionFailed))
		analyzer.AssertNotCalled(t, "Orchestrate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGenerateEstimate(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, time.January, 1, 15, 0, 0, 0, time.UTC) }

	t.Run("stores estimate and schedule", func(t *testing.T) {
		repo, gen := &mockProjectRepository{}, &mockGenerator{}
		svc := NewProjectService(repo, &mockAnalyzer{}, gen, serverBag(), WithClock(clock))
		p := readyForEstimate(t)

		expectGet(repo, p)
		gen.On("Generate", mock.Anything, mock.MatchedBy(func(in estimate.Input) bool {
			return in.Location.Region == models.RegionWest && len(in.Selections) == 3 && in.Analysis.TotalSqft == 1800
		}), providers.Google, mock.Anything).Return(&estimate.Result{Estimate: sampleEstimate(), Provider: providers.Google}, nil).Once()
		repo.On("SaveEstimate", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
			return p.Status == models.StatusReady && p.TotalEstimate == 50000
		})).Return(nil).Once()

		out, err := svc.GenerateEstimate(context.Background(), p.ID, &EstimateInput{Provider: ProviderChoice{Preferred: providers.Google}})
		require.NoError(t, err)
		assert.Equal(t, providers.Google, out.Provider)
		assert.Equal(t, 5000.0, out.Summary.Contingency)
		assert.Equal(t, 55000.0, out.Summary.GrandTotal)

		sched, err := out.Project.GetSchedule()
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", sched.StartDate.String())
		assert.Equal(t, "2024-01-23", sched.EndDate.String())
		assert.Equal(t, 21, sched.TotalDurationDays)
		mock.AssertExpectationsForObjects(t, repo, gen)
	})

	t.Run("gates block generation", func(t *testing.T) {
		repo, gen := &mockProjectRepository{}, &mockGenerator{}
		svc := NewProjectService(repo, &mockAnalyzer{}, gen, serverBag())
		p := draftProject(t)
		expectGet(repo, p)

		_, err := svc.GenerateEstimate(context.Background(), p.ID, &EstimateInput{})
		var ae *appErr.AppError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, appErr.CodePreconditionFailed, ae.Code)
		assert.Equal(t, []string{"extracted_data", "material_selections", "location.state"}, ae.Meta["missing"])
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps generator failures", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			code appErr.Code
		}{
			{"unconfigured", &estimate.GenerationError{Message: "none", Err: estimate.ErrNoGenerator}, appErr.CodePreconditionFailed},
			{"bad output", &estimate.GenerationError{Provider: providers.Google, Message: "estimate contains no phases"}, appErr.CodeBadGateway},
			{"other", errors.New("boom"), appErr.CodeInternal},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo, gen := &mockProjectRepository{}, &mockGenerator{}
				svc := NewProjectService(repo, &mockAnalyzer{}, gen, nil)
				p := readyForEstimate(t)
				expectGet(repo, p)
				gen.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

				_, err := svc.GenerateEstimate(context.Background(), p.ID, &EstimateInput{})
				assert.True(t, appErr.IsCode(err, tt.code), "got %v", err)
				repo.AssertNotCalled(t, "SaveEstimate", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestEnqueueEstimate(t *testing.T) {
	t.Run("without queue", func(t *testing.T) {
		svc := NewProjectService(&mockProjectRepository{}, &mockAnalyzer{}, &mockGenerator{}, serverBag())
		_, err := svc.EnqueueEstimate(context.Background(), uuid.New(), &EstimateInput{})
		assert.True(t, appErr.IsCode(err, appErr.CodeUnavailable))
	})

	t.Run("requires server keys", func(t *testing.T) {
		repo, q := &mockProjectRepository{}, &mockEnqueuer{}
		svc := NewProjectService(repo, &mockAnalyzer{}, &mockGenerator{}, nil, WithEnqueuer(q))
		p := readyForEstimate(t)
		expectGet(repo, p)

		_, err := svc.EnqueueEstimate(context.Background(), p.ID, &EstimateInput{})
		assert.True(t, appErr.IsCode(err, appErr.CodePreconditionFailed))
		q.AssertNotCalled(t, "EnqueueEstimate", mock.Anything, mock.Anything)
	})

	t.Run("enqueues", func(t *testing.T) {
		repo, q := &mockProjectRepository{}, &mockEnqueuer{}
		svc := NewProjectService(repo, &mockAnalyzer{}, &mockGenerator{}, serverBag(), WithEnqueuer(q))
		p := readyForEstimate(t)
		start := models.NewDate(2024, time.March, 4)
		expectGet(repo, p)
		q.On("EnqueueEstimate", mock.Anything, EstimateJob{ProjectID: p.ID, Preferred: providers.OpenRouter, StartDate: start}).
			Return("task-1", "default", nil).Once()

		out, err := svc.EnqueueEstimate(context.Background(), p.ID, &EstimateInput{
			Provider:  ProviderChoice{Preferred: providers.OpenRouter},
			StartDate: start,
		})
		require.NoError(t, err)
		assert.Equal(t, &QueuedEstimate{ProjectID: p.ID, TaskID: "task-1", Queue: "default"}, out)
		mock.AssertExpectationsForObjects(t, repo, q)
	})
}
