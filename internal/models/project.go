package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft      ProjectStatus = "draft"
	StatusAnalyzing  ProjectStatus = "analyzing"
	StatusReady      ProjectStatus = "ready"
	StatusInProgress ProjectStatus = "in_progress"
	StatusCompleted  ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusAnalyzing, StatusReady, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Project is the aggregate root persisted for every wizard run. Nested
// documents live in JSON columns and are accessed through the typed helpers
// below.
type Project struct {
	ID                 uuid.UUID      `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name               string         `gorm:"type:varchar(255);not null;index" json:"name" validate:"required"`
	Description        string         `gorm:"type:text" json:"description,omitempty"`
	Status             ProjectStatus  `gorm:"type:varchar(16);not null;index" json:"status"`
	BlueprintURL       string         `gorm:"type:text" json:"blueprint_url,omitempty"`
	Location           datatypes.JSON `json:"location"`
	ExtractedData      datatypes.JSON `json:"extracted_data"`
	MaterialSelections datatypes.JSON `json:"material_selections"`
	PhaseEstimates     datatypes.JSON `json:"phase_estimates"`
	Schedule           datatypes.JSON `json:"schedule"`
	AnalysisProvider   string         `gorm:"type:varchar(32)" json:"analysis_provider,omitempty"`
	TotalMaterialCost  float64        `gorm:"not null;default:0" json:"total_material_cost"`
	TotalLaborCost     float64        `gorm:"not null;default:0" json:"total_labor_cost"`
	TotalEstimate      float64        `gorm:"not null;default:0" json:"total_estimate"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

var jsonNull = datatypes.JSON("null")

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	return nil
}

// BeforeSave keeps JSON columns non-NULL so they always scan back.
func (p *Project) BeforeSave(tx *gorm.DB) error {
	for _, col := range []*datatypes.JSON{&p.Location, &p.ExtractedData, &p.MaterialSelections, &p.PhaseEstimates, &p.Schedule} {
		if len(*col) == 0 {
			*col = jsonNull
		}
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid project status %q", p.Status)
	}
	return nil
}

func decodeColumn[T any](raw datatypes.JSON, dest *T) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func encodeColumn(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// GetLocation returns the stored location, or nil when none was set.
func (p *Project) GetLocation() (*Location, error) {
	var loc Location
	ok, err := decodeColumn(p.Location, &loc)
	if !ok {
		return nil, err
	}
	return &loc, nil
}

func (p *Project) SetLocation(loc Location) error {
	loc.Normalize()
	raw, err := encodeColumn(loc)
	if err != nil {
		return err
	}
	p.Location = raw
	return nil
}

// GetAnalysis returns the extracted blueprint data, or nil.
func (p *Project) GetAnalysis() (*BlueprintAnalysis, error) {
	var a BlueprintAnalysis
	ok, err := decodeColumn(p.ExtractedData, &a)
	if !ok {
		return nil, err
	}
	return &a, nil
}

func (p *Project) SetAnalysis(a BlueprintAnalysis, provider string) error {
	raw, err := encodeColumn(a)
	if err != nil {
		return err
	}
	p.ExtractedData = raw
	p.AnalysisProvider = provider
	return nil
}

func (p *Project) GetSelections() (MaterialSelection, error) {
	sel := MaterialSelection{}
	if _, err := decodeColumn(p.MaterialSelections, &sel); err != nil {
		return nil, err
	}
	return sel, nil
}

func (p *Project) SetSelections(sel MaterialSelection) error {
	raw, err := encodeColumn(sel)
	if err != nil {
		return err
	}
	p.MaterialSelections = raw
	return nil
}

func (p *Project) GetPhases() ([]PhaseEstimate, error) {
	var phases []PhaseEstimate
	if _, err := decodeColumn(p.PhaseEstimates, &phases); err != nil {
		return nil, err
	}
	return phases, nil
}

func (p *Project) GetSchedule() (*Schedule, error) {
	var s Schedule
	ok, err := decodeColumn(p.Schedule, &s)
	if !ok {
		return nil, err
	}
	return &s, nil
}

// ApplyEstimate stores phases, totals and schedule together and promotes a
// draft project to ready.
func (p *Project) ApplyEstimate(est EstimateResult, sched Schedule) error {
	phases, err := encodeColumn(est.Phases)
	if err != nil {
		return err
	}
	schedRaw, err := encodeColumn(sched)
	if err != nil {
		return err
	}
	p.PhaseEstimates = phases
	p.Schedule = schedRaw
	p.TotalMaterialCost = est.TotalMaterialCost
	p.TotalLaborCost = est.TotalLaborCost
	p.TotalEstimate = est.TotalMaterialCost + est.TotalLaborCost
	p.RefreshStatus(len(est.Phases) > 0)
	return nil
}

// HasAnalysis reports whether extracted data is present.
func (p *Project) HasAnalysis() bool {
	return len(p.ExtractedData) > 0 && string(p.ExtractedData) != "null"
}

func (p *Project) HasEstimates() bool {
	phases, err := p.GetPhases()
	return err == nil && len(phases) > 0
}

// RefreshStatus moves draft or analyzing projects to ready once estimates exist.
// Later lifecycle states are only set explicitly.
func (p *Project) RefreshStatus(hasEstimates bool) {
	switch p.Status {
	case "", StatusDraft, StatusAnalyzing:
		if hasEstimates {
			p.Status = StatusReady
		} else if p.Status == "" {
			p.Status = StatusDraft
		}
	}
}
