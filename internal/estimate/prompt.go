package estimate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blueprintpro/estimator/internal/models"
)

// Fallbacks used in the brief when the analysis leaves a field empty.
const (
	defaultSqft       = 2000
	defaultFloors     = 1
	defaultFoundation = "slab"
	defaultRoof       = "gable"
	defaultWindows    = 10
	defaultDoors      = 8
)

var phaseHints = map[models.PhaseID]string{
	models.PhaseInterior: "Interior Finishes - paint, flooring, fixtures",
}

const responseShape = `{
  "phases": [
    {
      "id": "string",
      "name": "string",
      "materials": [
        {"name": "string", "brand": "string", "quantity": 0, "unit": "string", "unit_price": 0, "total_price": 0}
      ],
      "materials_cost": 0,
      "labor_cost": 0,
      "duration_days": 0,
      "dependencies": ["phase id"]
    }
  ],
  "total_material_cost": 0,
  "total_labor_cost": 0,
  "total_estimate": 0,
  "total_duration_days": 0
}`

// BuildPrompt renders the generation brief.
func BuildPrompt(in Input) (string, error) {
	a := models.BlueprintAnalysis{}
	if in.Analysis != nil {
		a = *in.Analysis
	}

	rooms := a.Rooms
	if rooms == nil {
		rooms = []models.Room{}
	}
	roomsJSON, err := json.Marshal(rooms)
	if err != nil {
		return "", fmt.Errorf("encode rooms: %w", err)
	}
	selections := in.Selections
	if selections == nil {
		selections = models.MaterialSelection{}
	}
	selJSON, err := json.MarshalIndent(selections, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode selections: %w", err)
	}

	loc := in.Location
	loc.Normalize()

	var b strings.Builder
	b.WriteString("Generate a detailed construction cost estimate AND timeline schedule based on this data:\n\n")
	b.WriteString("Blueprint Analysis:\n")
	fmt.Fprintf(&b, "- Total Square Footage: %s sqft\n", formatNumber(orFloat(a.TotalSqft, defaultSqft)))
	fmt.Fprintf(&b, "- Floors: %d\n", orInt(a.Floors, defaultFloors))
	fmt.Fprintf(&b, "- Rooms: %s\n", roomsJSON)
	fmt.Fprintf(&b, "- Foundation Type: %s\n", orString(a.FoundationType, defaultFoundation))
	fmt.Fprintf(&b, "- Roof Type: %s\n", orString(a.RoofType, defaultRoof))
	fmt.Fprintf(&b, "- Windows: %d\n", orInt(a.Windows, defaultWindows))
	fmt.Fprintf(&b, "- Doors: %d\n\n", orInt(a.Doors, defaultDoors))

	b.WriteString("Material Selections:\n")
	b.Write(selJSON)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Location: %s, %s\n", loc.City, loc.State)
	fmt.Fprintf(&b, "Region Labor Multiplier: %.2f\n\n", models.LaborMultiplier(loc.Region))

	b.WriteString("Generate estimates for these construction phases in order:\n")
	for i, p := range models.CanonicalPhases {
		name := p.Name
		if hint, ok := phaseHints[p.ID]; ok {
			name = hint
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, name, p.ID)
	}

	b.WriteString(`
For each phase, provide:
- List of materials with quantities, unit prices, and totals
- Labor cost estimate based on regional rates, with the region labor multiplier already applied
- Duration in days based on industry averages (foundation: 7-14 days, framing: 14-21 days, etc.)
- Dependencies (ids of earlier phases that must complete before this one can start)
- Total for the phase

Use realistic current pricing and standard construction timelines.
Respond with a JSON object of exactly this shape, using the phase ids above in the same order:
`)
	b.WriteString(responseShape)
	b.WriteString("\nOutput ONLY raw JSON without markdown formatting.")
	return b.String(), nil
}

func orFloat(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
