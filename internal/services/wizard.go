package services

import (
	"strings"

	"github.com/blueprintpro/estimator/internal/models"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
)

// MinSelections is the number of material categories required before an
// estimate can be generated.
const MinSelections = 3

// Step is a stage of the project wizard.
type Step int

const (
	StepUpload Step = iota + 1
	StepAnalyze
	StepMaterials
	StepLocation
	StepReview
)

var stepNames = map[Step]string{
	StepUpload:    "upload",
	StepAnalyze:   "analyze",
	StepMaterials: "materials",
	StepLocation:  "location",
	StepReview:    "review",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "unknown"
}

// CanProceed reports whether the project holds what step needs before the
// wizard may move past it.
func CanProceed(step Step, p *models.Project) bool {
	switch step {
	case StepUpload:
		return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.BlueprintURL) != ""
	case StepAnalyze:
		return p.HasAnalysis()
	case StepMaterials:
		sel, err := p.GetSelections()
		return err == nil && len(sel) >= MinSelections
	case StepLocation:
		loc, err := p.GetLocation()
		return err == nil && loc != nil && loc.State != ""
	case StepReview:
		return true
	}
	return false
}

// ResumeStep picks the step a reopened project continues from.
func ResumeStep(p *models.Project) Step {
	if p.HasEstimates() {
		return StepReview
	}
	if sel, err := p.GetSelections(); err == nil && len(sel) > 0 {
		return StepLocation
	}
	if p.HasAnalysis() {
		return StepMaterials
	}
	return StepUpload
}

// SaveStatus is the status a manual save writes.
func SaveStatus(p *models.Project) models.ProjectStatus {
	if p.HasEstimates() {
		return models.StatusReady
	}
	return models.StatusDraft
}

// CheckEstimateReady verifies the analyze, materials and location gates. The
// returned error lists every unmet gate under the "missing" meta key.
func CheckEstimateReady(p *models.Project) error {
	var missing []string
	if !CanProceed(StepAnalyze, p) {
		missing = append(missing, "extracted_data")
	}
	if !CanProceed(StepMaterials, p) {
		missing = append(missing, "material_selections")
	}
	if !CanProceed(StepLocation, p) {
		missing = append(missing, "location.state")
	}
	if len(missing) == 0 {
		return nil
	}
	return appErr.New(appErr.CodePreconditionFailed,
		"project is not ready for an estimate: requires extracted data, at least 3 material selections and a location state").
		WithMeta("missing", missing)
}
