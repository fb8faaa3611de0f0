package models

import (
	"fmt"
	"sort"
)

// MaterialCategory is a key of a MaterialSelection.
type MaterialCategory string

const (
	CategorySiding     MaterialCategory = "siding"
	CategoryRoofing    MaterialCategory = "roofing"
	CategoryFlooring   MaterialCategory = "flooring"
	CategoryWindows    MaterialCategory = "windows"
	CategoryDoors      MaterialCategory = "doors"
	CategoryInsulation MaterialCategory = "insulation"
	CategoryPaint      MaterialCategory = "paint"
	CategoryFixtures   MaterialCategory = "fixtures"
	CategoryLumber     MaterialCategory = "lumber"
	CategoryConcrete   MaterialCategory = "concrete"
	CategoryElectrical MaterialCategory = "electrical"
	CategoryPlumbing   MaterialCategory = "plumbing"
	CategoryDrywall    MaterialCategory = "drywall"
)

// MaterialCategories lists every valid selection key.
var MaterialCategories = []MaterialCategory{
	CategorySiding, CategoryRoofing, CategoryFlooring, CategoryWindows, CategoryDoors,
	CategoryInsulation, CategoryPaint, CategoryFixtures, CategoryLumber, CategoryConcrete,
	CategoryElectrical, CategoryPlumbing, CategoryDrywall,
}

func (c MaterialCategory) Valid() bool {
	for _, known := range MaterialCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Tier is the quality tier of a material option.
type Tier string

const (
	TierBudget   Tier = "budget"
	TierMidRange Tier = "mid_range"
	TierPremium  Tier = "premium"
	TierLuxury   Tier = "luxury"
)

// MaterialChoice is the option a user picked for one category.
type MaterialChoice struct {
	ID           string  `json:"id" yaml:"id" validate:"required"`
	Name         string  `json:"name" yaml:"name" validate:"required"`
	Tier         Tier    `json:"tier" yaml:"tier" validate:"required,oneof=budget mid_range premium luxury"`
	PricePerUnit float64 `json:"price_per_unit" yaml:"price_per_unit" validate:"gte=0"`
	Unit         string  `json:"unit" yaml:"unit" validate:"required"`
	Brand        string  `json:"brand,omitempty" yaml:"brand,omitempty"`
	Color        string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// MaterialSelection maps a category to the chosen option.
type MaterialSelection map[MaterialCategory]MaterialChoice

// Validate checks every key is a known category and every choice is well formed.
func (s MaterialSelection) Validate() error {
	for _, cat := range s.Categories() {
		if !cat.Valid() {
			return fmt.Errorf("unknown material category %q", cat)
		}
		choice := s[cat]
		if err := validate.Struct(&choice); err != nil {
			return fmt.Errorf("%s: %w", cat, describeValidation(err))
		}
	}
	return nil
}

// Categories returns the selected keys in a stable order.
func (s MaterialSelection) Categories() []MaterialCategory {
	out := make([]MaterialCategory, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
