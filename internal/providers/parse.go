package providers

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/blueprintpro/estimator/internal/models"
)

var fencePattern = regexp.MustCompile("```(?:json)?\\n?|\\n?```")

// StripFences removes markdown code fences a model may wrap its JSON in.
func StripFences(s string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(s, ""))
}

// integerFields are BlueprintAnalysis keys models sometimes answer with as floats.
var integerFields = []string{"floors", "windows", "doors", "garage_bays"}

// decodeAnalysis turns model text into a validated BlueprintAnalysis.
func decodeAnalysis(p Name, text string) (*models.BlueprintAnalysis, error) {
	payload := StripFences(text)
	if payload == "" {
		return nil, emptyError(p, "empty response text")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, malformedError(p, err)
	}
	for _, key := range integerFields {
		if f, ok := raw[key].(float64); ok {
			raw[key] = math.Round(f)
		}
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, malformedError(p, err)
	}

	var out models.BlueprintAnalysis
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, malformedError(p, err)
	}
	if err := out.Validate(); err != nil {
		return nil, malformedError(p, err)
	}
	return &out, nil
}

// decodeJSON strips fences and checks the text is a JSON document.
func decodeJSON(p Name, text string) ([]byte, error) {
	payload := StripFences(text)
	if payload == "" {
		return nil, emptyError(p, "empty response text")
	}
	if !json.Valid([]byte(payload)) {
		return nil, malformedError(p, errors.New("response is not valid JSON"))
	}
	return []byte(payload), nil
}
