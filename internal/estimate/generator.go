// Package estimate produces phased cost estimates through a model call.
package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/pkg/logger"
	"github.com/blueprintpro/estimator/pkg/metrics"
)

const DefaultTimeout = 45 * time.Second

// Input is everything the generation brief is built from.
type Input struct {
	Analysis   *models.BlueprintAnalysis
	Selections models.MaterialSelection
	Location   models.Location
}

// Result is a validated estimate and the provider that produced it.
type Result struct {
	Estimate models.EstimateResult
	Provider providers.Name
}

type Options struct {
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// Generator makes a single structured generation call per estimate. There
// is no fallback chain: the first configured provider in preference order is
// the only one called.
type Generator struct {
	generators map[providers.Name]providers.Generator
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func New(gens []providers.Generator, opts Options) *Generator {
	g := &Generator{
		generators: make(map[providers.Name]providers.Generator, len(gens)),
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
		log:        logger.Named("estimate"),
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	for _, gen := range gens {
		g.generators[gen.Name()] = gen
	}
	return g
}

// Select returns the provider a generation call would use.
func (g *Generator) Select(preferred providers.Name, creds providers.CredentialBag) (providers.Generator, providers.Credentials, error) {
	for _, name := range providers.Order(preferred) {
		gen, ok := g.generators[name]
		if ok && creds.Get(name).Configured() {
			return gen, creds.Get(name), nil
		}
	}
	return nil, providers.Credentials{}, ErrNoGenerator
}

// Generate builds the brief, calls one provider and validates the answer.
func (g *Generator) Generate(ctx context.Context, in Input, preferred providers.Name, creds providers.CredentialBag) (*Result, error) {
	gen, c, err := g.Select(preferred, creds)
	if err != nil {
		g.metrics.RecordEstimate("unconfigured")
		return nil, &GenerationError{Message: err.Error(), Err: err}
	}

	prompt, err := BuildPrompt(in)
	if err != nil {
		return nil, &GenerationError{Provider: gen.Name(), Message: err.Error(), Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := gen.GenerateJSON(callCtx, prompt, c)
	if err != nil {
		g.metrics.RecordEstimate("failed")
		g.log.Warn("estimate call failed", zap.String("provider", string(gen.Name())), zap.Error(err))
		return nil, &GenerationError{Provider: gen.Name(), Message: messageOf(err), Err: err}
	}

	est, err := Decode(raw)
	if err != nil {
		g.metrics.RecordEstimate("invalid")
		g.log.Warn("estimate rejected", zap.String("provider", string(gen.Name())), zap.Error(err))
		return nil, &GenerationError{Provider: gen.Name(), Message: err.Error(), Err: err}
	}

	g.metrics.RecordEstimate("success")
	g.log.Info("estimate generated",
		zap.String("provider", string(gen.Name())),
		zap.Int("phases", len(est.Phases)),
		zap.Float64("total", est.TotalEstimate),
		zap.Duration("duration", time.Since(start)),
	)
	return &Result{Estimate: *est, Provider: gen.Name()}, nil
}

type wireMaterial struct {
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

type wirePhase struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Materials     []wireMaterial `json:"materials"`
	MaterialsCost float64        `json:"materials_cost"`
	LaborCost     float64        `json:"labor_cost"`
	DurationDays  float64        `json:"duration_days"`
	Dependencies  []string       `json:"dependencies"`
}

type wireEstimate struct {
	Phases            []wirePhase `json:"phases"`
	TotalDurationDays float64     `json:"total_duration_days"`
}

// Decode converts model output into a validated, normalised EstimateResult.
// Totals supplied by the model are recomputed from the phases.
func Decode(raw []byte) (*models.EstimateResult, error) {
	var w wireEstimate
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	out := &models.EstimateResult{
		Phases:            make([]models.PhaseEstimate, 0, len(w.Phases)),
		TotalDurationDays: int(math.Round(w.TotalDurationDays)),
	}
	for _, p := range w.Phases {
		phase := models.PhaseEstimate{
			ID:            models.PhaseID(p.ID),
			Name:          p.Name,
			Materials:     make([]models.MaterialLine, 0, len(p.Materials)),
			MaterialsCost: p.MaterialsCost,
			LaborCost:     p.LaborCost,
			DurationDays:  int(math.Round(p.DurationDays)),
			Dependencies:  make([]models.PhaseID, 0, len(p.Dependencies)),
		}
		for _, m := range p.Materials {
			phase.Materials = append(phase.Materials, models.MaterialLine(m))
		}
		for _, d := range p.Dependencies {
			phase.Dependencies = append(phase.Dependencies, models.PhaseID(d))
		}
		out.Phases = append(out.Phases, phase)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	out.Normalize()
	return out, nil
}

func messageOf(err error) string {
	var pe *providers.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
