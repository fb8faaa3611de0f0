package models

import "strings"

// Region identifies a labor-cost region.
type Region string

const (
	RegionNortheast Region = "northeast"
	RegionSoutheast Region = "southeast"
	RegionMidwest   Region = "midwest"
	RegionSouthwest Region = "southwest"
	RegionWest      Region = "west"
	RegionPacific   Region = "pacific"
)

// RegionInfo describes a region, its labor multiplier and member states.
type RegionInfo struct {
	ID              Region   `json:"id"`
	Name            string   `json:"name"`
	LaborMultiplier float64  `json:"labor_multiplier"`
	States          []string `json:"states"`
}

// Regions is the static labor multiplier table.
var Regions = []RegionInfo{
	{ID: RegionNortheast, Name: "Northeast", LaborMultiplier: 1.25, States: []string{"CT", "ME", "MA", "NH", "NJ", "NY", "PA", "RI", "VT"}},
	{ID: RegionSoutheast, Name: "Southeast", LaborMultiplier: 0.95, States: []string{"AL", "FL", "GA", "KY", "MS", "NC", "SC", "TN", "VA", "WV"}},
	{ID: RegionMidwest, Name: "Midwest", LaborMultiplier: 1.00, States: []string{"IL", "IN", "IA", "KS", "MI", "MN", "MO", "NE", "ND", "OH", "SD", "WI"}},
	{ID: RegionSouthwest, Name: "Southwest", LaborMultiplier: 1.05, States: []string{"AZ", "NM", "OK", "TX"}},
	{ID: RegionWest, Name: "West", LaborMultiplier: 1.35, States: []string{"CA", "CO", "ID", "MT", "NV", "OR", "UT", "WA", "WY"}},
	{ID: RegionPacific, Name: "Pacific (HI, AK)", LaborMultiplier: 1.50, States: []string{"AK", "HI"}},
}

// DefaultLaborMultiplier applies to unknown or missing regions.
const DefaultLaborMultiplier = 1.00

// LaborMultiplier looks up the regional multiplier.
func LaborMultiplier(r Region) float64 {
	for _, info := range Regions {
		if info.ID == r {
			return info.LaborMultiplier
		}
	}
	return DefaultLaborMultiplier
}

// RegionForState returns the region a two-letter state code belongs to.
func RegionForState(state string) (Region, bool) {
	code := strings.ToUpper(strings.TrimSpace(state))
	for _, info := range Regions {
		for _, s := range info.States {
			if s == code {
				return info.ID, true
			}
		}
	}
	return "", false
}

// Location is where the project will be built.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Region  Region `json:"region"`
}

// Normalize fills Region from State when it is missing.
func (l *Location) Normalize() {
	l.State = strings.ToUpper(strings.TrimSpace(l.State))
	if l.Region == "" {
		if r, ok := RegionForState(l.State); ok {
			l.Region = r
		}
	}
}
