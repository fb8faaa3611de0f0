package estimate

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/pkg/metrics"
)

type mockGenerator struct {
	mock.Mock
	name providers.Name
}

func (m *mockGenerator) Name() providers.Name { return m.name }

func (m *mockGenerator) GenerateJSON(ctx context.Context, prompt string, creds providers.Credentials) ([]byte, error) {
	args := m.Called(ctx, prompt, creds)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

const goodEstimate = `{
  "phases": [
    {"id":"foundation","name":"Foundation & Footers","materials":[
      {"name":"Concrete","quantity":40,"unit":"cu yd","unit_price":150,"total_price":6000},
      {"name":"Rebar","quantity":200,"unit":"ft","unit_price":1.5,"total_price":300}
    ],"materials_cost":6400,"labor_cost":5000,"duration_days":10,"dependencies":[]},
    {"id":"framing","name":"Framing","materials":[],"materials_cost":22000,"labor_cost":18000,"duration_days":18.0,"dependencies":["foundation"]}
  ],
  "total_material_cost": 1,
  "total_labor_cost": 2,
  "total_estimate": 3,
  "total_duration_days": 28
}`

func sampleInput() Input {
	return Input{
		Analysis: &models.BlueprintAnalysis{TotalSqft: 1850, Floors: 2, FoundationType: "crawlspace", Windows: 14},
		Selections: models.MaterialSelection{
			models.CategorySiding: {ID: "vinyl", Name: "Vinyl Siding", Tier: models.TierBudget, PricePerUnit: 4.5, Unit: "sq ft"},
		},
		Location: models.Location{City: "Boston", State: "MA"},
	}
}

func TestBuildPrompt(t *testing.T) {
	p, err := BuildPrompt(sampleInput())
	require.NoError(t, err)
	assert.Contains(t, p, "- Total Square Footage: 1850 sqft")
	assert.Contains(t, p, "- Floors: 2")
	assert.Contains(t, p, "- Foundation Type: crawlspace")
	assert.Contains(t, p, "- Roof Type: gable")
	assert.Contains(t, p, "- Windows: 14")
	assert.Contains(t, p, "- Doors: 8")
	assert.Contains(t, p, `"name": "Vinyl Siding"`)
	assert.Contains(t, p, "Location: Boston, MA")
	assert.Contains(t, p, "Region Labor Multiplier: 1.25")
	assert.Contains(t, p, "1. Foundation & Footers (foundation)")
	assert.Contains(t, p, "7. Interior Finishes - paint, flooring, fixtures (interior)")
	assert.Contains(t, p, "11. Landscaping (landscaping)")
}

func TestBuildPromptDefaults(t *testing.T) {
	p, err := BuildPrompt(Input{})
	require.NoError(t, err)
	assert.Contains(t, p, "- Total Square Footage: 2000 sqft")
	assert.Contains(t, p, "- Floors: 1")
	assert.Contains(t, p, "- Foundation Type: slab")
	assert.Contains(t, p, "- Rooms: []")
	assert.Contains(t, p, "- Windows: 10")
	assert.Contains(t, p, "Region Labor Multiplier: 1.00")
}

func TestDecode(t *testing.T) {
	est, err := Decode([]byte(goodEstimate))
	require.NoError(t, err)
	require.Len(t, est.Phases, 2)
	assert.Equal(t, 6300.0, est.Phases[0].MaterialsCost)
	assert.Equal(t, 18, est.Phases[1].DurationDays)
	assert.Equal(t, 28300.0, est.TotalMaterialCost)
	assert.Equal(t, 23000.0, est.TotalLaborCost)
	assert.Equal(t, 51300.0, est.TotalEstimate)
	assert.Equal(t, 28, est.TotalDurationDays)
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"not json":      `phases: none`,
		"no phases":     `{"phases":[]}`,
		"bad order":     `{"phases":[{"id":"roofing","duration_days":3},{"id":"framing","duration_days":3}]}`,
		"forward dep":   `{"phases":[{"id":"foundation","duration_days":3,"dependencies":["roofing"]}]}`,
		"zero duration": `{"phases":[{"id":"foundation","duration_days":0}]}`,
		"unknown phase": `{"phases":[{"id":"pool","duration_days":4}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestGenerateUsesPreferredConfiguredProvider(t *testing.T) {
	google := &mockGenerator{name: providers.Google}
	openrouter := &mockGenerator{name: providers.OpenRouter}
	openrouter.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	}), providers.Credentials{APIKey: "o", Model: "m"}).Return([]byte(goodEstimate), nil).Once()

	m := metrics.New()
	g := New([]providers.Generator{google, openrouter}, Options{Metrics: m})
	res, err := g.Generate(context.Background(), sampleInput(), providers.OpenRouter, providers.CredentialBag{
		providers.Google:     {APIKey: "g"},
		providers.OpenRouter: {APIKey: "o", Model: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenRouter, res.Provider)
	assert.Len(t, res.Estimate.Phases, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EstimatesTotal.WithLabelValues("success")))
	mock.AssertExpectationsForObjects(t, google, openrouter)
}

func TestGenerateFallsToNextConfiguredButCallsOnce(t *testing.T) {
	google := &mockGenerator{name: providers.Google}
	openrouter := &mockGenerator{name: providers.OpenRouter}
	providerErr := &providers.ProviderError{Provider: providers.Google, Kind: providers.KindHTTP, Message: "quota exceeded"}
	google.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything).Return(nil, providerErr).Once()

	g := New([]providers.Generator{google, openrouter}, Options{})
	_, err := g.Generate(context.Background(), sampleInput(), providers.OpenRouter, providers.CredentialBag{
		providers.Google: {APIKey: "g"},
	})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, providers.Google, genErr.Provider)
	assert.Equal(t, "quota exceeded", genErr.Message)
	assert.True(t, errors.Is(err, providers.ErrHTTP))
	openrouter.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything, mock.Anything)
	mock.AssertExpectationsForObjects(t, google)
}

func TestGenerateRejectsNonConforming(t *testing.T) {
	google := &mockGenerator{name: providers.Google}
	google.On("GenerateJSON", mock.Anything, mock.Anything, mock.Anything).Return([]byte(`{"phases":[]}`), nil).Once()

	g := New([]providers.Generator{google}, Options{})
	_, err := g.Generate(context.Background(), sampleInput(), providers.Google, providers.CredentialBag{providers.Google: {APIKey: "g"}})

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, models.ErrNoPhases)
}

func TestGenerateWithoutCredentials(t *testing.T) {
	g := New([]providers.Generator{&mockGenerator{name: providers.Google}}, Options{})
	_, err := g.Generate(context.Background(), sampleInput(), providers.Google, nil)
	assert.ErrorIs(t, err, ErrNoGenerator)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]models.PhaseEstimate{
		{ID: models.PhaseFoundation, Name: "Foundation & Footers", MaterialsCost: 6000, LaborCost: 4000},
		{ID: models.PhaseFraming, Name: "Framing", MaterialsCost: 20000, LaborCost: 10000},
	})
	assert.Equal(t, 26000.0, s.MaterialCost)
	assert.Equal(t, 14000.0, s.LaborCost)
	assert.Equal(t, 40000.0, s.Total)
	assert.Equal(t, 4000.0, s.Contingency)
	assert.Equal(t, 44000.0, s.GrandTotal)
	require.Len(t, s.Phases, 2)
	assert.Equal(t, 25.0, s.Phases[0].Percent)
	assert.Equal(t, 75.0, s.Phases[1].Percent)

	empty := Summarize(nil)
	assert.Zero(t, empty.GrandTotal)
	assert.Empty(t, empty.Phases)
}
