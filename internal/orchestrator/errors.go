package orchestrator

import (
	"fmt"
	"strings"

	"github.com/blueprintpro/estimator/internal/providers"
)

// Attempt is the diagnostic entry for one provider that was called and failed.
type Attempt struct {
	Provider providers.Name `json:"provider"`
	Message  string         `json:"message"`
	Err      error          `json:"-"`
}

// AllProvidersFailedError is returned when no candidate produced a result.
// Attempts holds only providers that were actually called, in call order;
// skipped providers never appear in it.
type AllProvidersFailedError struct {
	Order    []providers.Name
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "No provider succeeded: no provider configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("Provider %s failed: %s", a.Provider, a.Message))
	}
	return "No provider succeeded: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual provider errors to errors.Is/As.
func (e *AllProvidersFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			out = append(out, a.Err)
		}
	}
	return out
}
