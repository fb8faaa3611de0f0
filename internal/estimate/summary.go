package estimate

import (
	"math"

	"github.com/blueprintpro/estimator/internal/models"
)

// ContingencyRate is added on top of the estimate total.
const ContingencyRate = 0.10

// PhaseShare is one phase's portion of the project cost.
type PhaseShare struct {
	ID      models.PhaseID `json:"id"`
	Name    string         `json:"name"`
	Total   float64        `json:"total"`
	Percent float64        `json:"percent"`
}

// Summary is the cost roll-up shown alongside an estimate.
type Summary struct {
	MaterialCost float64      `json:"material_cost"`
	LaborCost    float64      `json:"labor_cost"`
	Total        float64      `json:"total"`
	Contingency  float64      `json:"contingency"`
	GrandTotal   float64      `json:"grand_total"`
	Phases       []PhaseShare `json:"phases"`
}

// Summarize computes totals, contingency and per-phase shares.
func Summarize(phases []models.PhaseEstimate) Summary {
	var s Summary
	for _, p := range phases {
		s.MaterialCost += p.MaterialsCost
		s.LaborCost += p.LaborCost
	}
	s.Total = s.MaterialCost + s.LaborCost
	s.Contingency = round2(s.Total * ContingencyRate)
	s.GrandTotal = round2(s.Total + s.Contingency)

	s.Phases = make([]PhaseShare, 0, len(phases))
	for _, p := range phases {
		share := PhaseShare{ID: p.ID, Name: p.Name, Total: round2(p.Total())}
		if s.Total > 0 {
			share.Percent = math.Round(p.Total()/s.Total*1000) / 10
		}
		s.Phases = append(s.Phases, share)
	}
	s.MaterialCost = round2(s.MaterialCost)
	s.LaborCost = round2(s.LaborCost)
	s.Total = round2(s.Total)
	return s
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
