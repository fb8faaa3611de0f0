package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/pkg/database"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
)

func TestProjectFilterNormalized(t *testing.T) {
	assert.Equal(t, ProjectFilter{Page: 1, PageSize: DefaultPageSize}, ProjectFilter{}.normalized())
	assert.Equal(t, ProjectFilter{Page: 3, PageSize: MaxPageSize}, ProjectFilter{Page: 3, PageSize: 1000}.normalized())
}

func TestEntityName(t *testing.T) {
	assert.Equal(t, "Project", entityName[models.Project]())
}

func openPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("estimator"),
		tcpostgres.WithUsername("estimator"),
		tcpostgres.WithPassword("estimator"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, database.Options{Driver: "postgres", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Project{}))
	return db
}

func TestProjectRepository(t *testing.T) {
	db := openPostgres(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	first := &models.Project{Name: "Cabin"}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, models.StatusDraft, first.Status)

	time.Sleep(10 * time.Millisecond)
	second := &models.Project{Name: "Garage"}
	require.NoError(t, second.SetLocation(models.Location{City: "Austin", State: "tx"}))
	require.NoError(t, repo.Create(ctx, second))

	t.Run("get", func(t *testing.T) {
		var got models.Project
		require.NoError(t, repo.GetByID(ctx, second.ID, &got))
		loc, err := got.GetLocation()
		require.NoError(t, err)
		assert.Equal(t, models.RegionSouthwest, loc.Region)
		analysis, err := got.GetAnalysis()
		require.NoError(t, err)
		assert.Nil(t, analysis)
	})

	t.Run("list newest first", func(t *testing.T) {
		out, total, err := repo.List(ctx, ProjectFilter{})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, out, 2)
		assert.Equal(t, "Garage", out[0].Name)
	})

	t.Run("status filter and paging", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, first.ID, models.StatusInProgress))
		out, total, err := repo.List(ctx, ProjectFilter{Status: models.StatusInProgress})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, out, 1)
		assert.Equal(t, first.ID, out[0].ID)

		page, total, err := repo.List(ctx, ProjectFilter{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, page, 1)
	})

	t.Run("save estimate", func(t *testing.T) {
		var p models.Project
		require.NoError(t, repo.GetByID(ctx, second.ID, &p))
		est := models.EstimateResult{
			Phases: []models.PhaseEstimate{{
				ID: models.PhaseFoundation, Name: "Foundation & Footers",
				MaterialsCost: 1000, LaborCost: 500, DurationDays: 7, Dependencies: []models.PhaseID{},
			}},
			TotalMaterialCost: 1000, TotalLaborCost: 500, TotalEstimate: 1500,
		}
		start := models.NewDate(2024, time.January, 1)
		sched := models.Schedule{StartDate: start, EndDate: start.AddDays(7), TotalDurationDays: 7}
		require.NoError(t, p.ApplyEstimate(est, sched))
		require.NoError(t, repo.SaveEstimate(ctx, &p))

		var got models.Project
		require.NoError(t, repo.GetByID(ctx, second.ID, &got))
		assert.Equal(t, models.StatusReady, got.Status)
		assert.Equal(t, 1500.0, got.TotalEstimate)
		assert.True(t, got.HasEstimates())
	})

	t.Run("invalid status", func(t *testing.T) {
		err := repo.UpdateStatus(ctx, first.ID, "archived")
		assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, first.ID))
		var got models.Project
		err := repo.GetByID(ctx, first.ID, &got)
		assert.True(t, appErr.IsCode(err, appErr.CodeNotFound))
		assert.True(t, appErr.IsCode(repo.Delete(ctx, first.ID), appErr.CodeNotFound))
	})
}
