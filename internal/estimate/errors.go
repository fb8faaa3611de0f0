package estimate

import (
	"errors"
	"fmt"

	"github.com/blueprintpro/estimator/internal/providers"
)

// ErrNoGenerator is returned when no provider has credentials for generation.
var ErrNoGenerator = errors.New("no provider configured for estimate generation")

// GenerationError reports a failed or non-conforming estimate call.
type GenerationError struct {
	Provider providers.Name
	Message  string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("estimate generation failed: %s", e.Message)
	}
	return fmt.Sprintf("estimate generation via %s failed: %s", e.Provider, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }
