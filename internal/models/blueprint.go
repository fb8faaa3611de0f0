package models

// BlueprintAnalysis is the structured data extracted from a blueprint image.
// Counts and areas are never negative; everything else is best effort.
type BlueprintAnalysis struct {
	TotalSqft             float64             `json:"total_sqft" validate:"gte=0"`
	Floors                int                 `json:"floors" validate:"gte=1"`
	FoundationType        string              `json:"foundation_type"`
	RoofType              string              `json:"roof_type"`
	RoofPitch             string              `json:"roof_pitch"`
	Rooms                 []Room              `json:"rooms" validate:"dive"`
	StructuralElements    []StructuralElement `json:"structural_elements" validate:"dive"`
	Windows               int                 `json:"windows" validate:"gte=0"`
	Doors                 int                 `json:"doors" validate:"gte=0"`
	GarageBays            int                 `json:"garage_bays" validate:"gte=0"`
	SpecialFeatures       []string            `json:"special_features"`
	ExteriorWallsLinearFt float64             `json:"exterior_walls_linear_ft" validate:"gte=0"`
	InteriorWallsLinearFt float64             `json:"interior_walls_linear_ft" validate:"gte=0"`
}

// Room is a single room on the plan. Sqft is expected to be close to
// Length*Width but is taken as reported.
type Room struct {
	Name         string  `json:"name"`
	Length       float64 `json:"length" validate:"gt=0"`
	Width        float64 `json:"width" validate:"gt=0"`
	Sqft         float64 `json:"sqft" validate:"gte=0"`
	FlooringType string  `json:"flooring_type,omitempty"`
}

type StructuralElement struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
}

// Validate checks the non-negativity rules and collapses duplicate special features.
func (b *BlueprintAnalysis) Validate() error {
	if err := validate.Struct(b); err != nil {
		return describeValidation(err)
	}
	b.SpecialFeatures = uniqueStrings(b.SpecialFeatures)
	return nil
}

func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
