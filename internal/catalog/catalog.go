// Package catalog holds the built-in material options offered per category.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/blueprintpro/estimator/internal/models"
)

//go:embed catalog.yaml
var builtin []byte

// Option is one purchasable material in a category.
type Option struct {
	ID              string      `json:"id" yaml:"id"`
	Name            string      `json:"name" yaml:"name"`
	Tier            models.Tier `json:"tier" yaml:"tier"`
	Price           float64     `json:"price" yaml:"price"`
	Unit            string      `json:"unit" yaml:"unit"`
	Brands          []string    `json:"brands,omitempty" yaml:"brands"`
	Colors          []string    `json:"colors,omitempty" yaml:"colors"`
	Species         []string    `json:"species,omitempty" yaml:"species"`
	Warranty        string      `json:"warranty,omitempty" yaml:"warranty"`
	EnergyRating    string      `json:"energy_rating,omitempty" yaml:"energy_rating"`
	EnergyEfficient bool        `json:"energy_efficient,omitempty" yaml:"energy_efficient"`
	RValue          string      `json:"r_value,omitempty" yaml:"r_value"`
}

// Choice converts the option into a selection entry, using the first brand
// and color as defaults.
func (o Option) Choice() models.MaterialChoice {
	c := models.MaterialChoice{
		ID:           o.ID,
		Name:         o.Name,
		Tier:         o.Tier,
		PricePerUnit: o.Price,
		Unit:         o.Unit,
	}
	if len(o.Brands) > 0 {
		c.Brand = o.Brands[0]
	}
	if len(o.Colors) > 0 {
		c.Color = o.Colors[0]
	}
	return c
}

type Category struct {
	ID      models.MaterialCategory `json:"id" yaml:"id"`
	Name    string                  `json:"name" yaml:"name"`
	Options []Option                `json:"options" yaml:"options"`
}

type Catalog struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// Parse decodes a catalog document and checks every option converts into a
// valid selection.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, cat := range c.Categories {
		if !cat.ID.Valid() {
			return nil, fmt.Errorf("catalog: unknown category %q", cat.ID)
		}
		seen := map[string]bool{}
		for _, opt := range cat.Options {
			if seen[opt.ID] {
				return nil, fmt.Errorf("catalog: duplicate option %s/%s", cat.ID, opt.ID)
			}
			seen[opt.ID] = true
			sel := models.MaterialSelection{cat.ID: opt.Choice()}
			if err := sel.Validate(); err != nil {
				return nil, fmt.Errorf("catalog: option %s: %w", opt.ID, err)
			}
		}
	}
	return &c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(builtin)
	})
	return defaultCat, defaultErr
}

// Category looks up a category by id.
func (c *Catalog) Category(id models.MaterialCategory) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

// Find looks up one option.
func (c *Catalog) Find(category models.MaterialCategory, optionID string) (Option, bool) {
	cat, ok := c.Category(category)
	if !ok {
		return Option{}, false
	}
	for _, opt := range cat.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return Option{}, false
}
