package models

import (
	"errors"
	"fmt"
	"math"
)

// PhaseID identifies a construction phase.
type PhaseID string

const (
	PhaseFoundation   PhaseID = "foundation"
	PhaseFraming      PhaseID = "framing"
	PhaseElectrical   PhaseID = "electrical"
	PhasePlumbing     PhaseID = "plumbing"
	PhaseInsulation   PhaseID = "insulation"
	PhaseDrywall      PhaseID = "drywall"
	PhaseInterior     PhaseID = "interior"
	PhaseSiding       PhaseID = "siding"
	PhaseRoofing      PhaseID = "roofing"
	PhaseWindowsDoors PhaseID = "windows_doors"
	PhaseLandscaping  PhaseID = "landscaping"
)

// PhaseInfo is an entry of the canonical phase list.
type PhaseInfo struct {
	ID   PhaseID
	Name string
}

// CanonicalPhases is the fixed construction order used for generation and scheduling.
var CanonicalPhases = []PhaseInfo{
	{PhaseFoundation, "Foundation & Footers"},
	{PhaseFraming, "Framing"},
	{PhaseElectrical, "Electrical Rough-In"},
	{PhasePlumbing, "Plumbing Rough-In"},
	{PhaseInsulation, "Insulation"},
	{PhaseDrywall, "Drywall"},
	{PhaseInterior, "Interior Finishes"},
	{PhaseSiding, "Siding & Exterior"},
	{PhaseRoofing, "Roofing"},
	{PhaseWindowsDoors, "Windows & Doors"},
	{PhaseLandscaping, "Landscaping"},
}

// Index returns the canonical position of the phase, or -1.
func (p PhaseID) Index() int {
	for i, info := range CanonicalPhases {
		if info.ID == p {
			return i
		}
	}
	return -1
}

// MaterialLine is one priced material of a phase.
type MaterialLine struct {
	Name       string  `json:"name" validate:"required"`
	Brand      string  `json:"brand,omitempty"`
	Quantity   float64 `json:"quantity" validate:"gte=0"`
	Unit       string  `json:"unit"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
	TotalPrice float64 `json:"total_price" validate:"gte=0"`
}

// PhaseEstimate is the generated cost and duration of one phase.
type PhaseEstimate struct {
	ID            PhaseID        `json:"id"`
	Name          string         `json:"name"`
	Materials     []MaterialLine `json:"materials" validate:"dive"`
	MaterialsCost float64        `json:"materials_cost" validate:"gte=0"`
	LaborCost     float64        `json:"labor_cost" validate:"gte=0"`
	DurationDays  int            `json:"duration_days" validate:"gt=0"`
	Dependencies  []PhaseID      `json:"dependencies"`
}

// Total is materials plus labor for the phase.
func (p PhaseEstimate) Total() float64 { return p.MaterialsCost + p.LaborCost }

// EstimateResult is the full output of an estimate generation call.
type EstimateResult struct {
	Phases            []PhaseEstimate `json:"phases"`
	TotalMaterialCost float64         `json:"total_material_cost"`
	TotalLaborCost    float64         `json:"total_labor_cost"`
	TotalEstimate     float64         `json:"total_estimate"`
	TotalDurationDays int             `json:"total_duration_days,omitempty"`
}

var ErrNoPhases = errors.New("estimate contains no phases")

// Validate enforces the phase vocabulary, canonical ordering, positive
// durations and backwards-only dependencies.
func (r *EstimateResult) Validate() error {
	if len(r.Phases) == 0 {
		return ErrNoPhases
	}
	prev := -1
	for i := range r.Phases {
		p := &r.Phases[i]
		idx := p.ID.Index()
		if idx < 0 {
			return fmt.Errorf("phase %d: unknown phase id %q", i, p.ID)
		}
		if idx <= prev {
			return fmt.Errorf("phase %q is out of canonical order", p.ID)
		}
		prev = idx
		if err := validate.Struct(p); err != nil {
			return fmt.Errorf("phase %q: %w", p.ID, describeValidation(err))
		}
		for _, dep := range p.Dependencies {
			depIdx := dep.Index()
			if depIdx < 0 {
				return fmt.Errorf("phase %q: unknown dependency %q", p.ID, dep)
			}
			if depIdx >= idx {
				return fmt.Errorf("phase %q: dependency %q does not precede it", p.ID, dep)
			}
		}
	}
	if r.TotalDurationDays < 0 {
		return fmt.Errorf("total_duration_days must not be negative")
	}
	return nil
}

// Normalize fills phase names, makes materials_cost equal the sum of its
// lines when lines are present, de-duplicates dependencies and recomputes the
// project totals from the phases.
func (r *EstimateResult) Normalize() {
	var materials, labor float64
	for i := range r.Phases {
		p := &r.Phases[i]
		if p.Name == "" {
			if idx := p.ID.Index(); idx >= 0 {
				p.Name = CanonicalPhases[idx].Name
			}
		}
		if len(p.Materials) > 0 {
			var sum float64
			for _, m := range p.Materials {
				sum += m.TotalPrice
			}
			p.MaterialsCost = roundCents(sum)
		}
		p.Dependencies = uniquePhaseIDs(p.Dependencies)
		materials += p.MaterialsCost
		labor += p.LaborCost
	}
	r.TotalMaterialCost = roundCents(materials)
	r.TotalLaborCost = roundCents(labor)
	r.TotalEstimate = roundCents(materials + labor)
}

func uniquePhaseIDs(in []PhaseID) []PhaseID {
	if in == nil {
		return []PhaseID{}
	}
	seen := make(map[PhaseID]struct{}, len(in))
	out := make([]PhaseID, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
