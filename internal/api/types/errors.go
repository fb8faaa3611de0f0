package types

import (
	"errors"

	appErr "github.com/blueprintpro/estimator/pkg/errors"
)

// FromAppError converts an error into the envelope error. Only AppError
// messages are exposed; anything else is reported generically.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var e *appErr.AppError
	if errors.As(err, &e) {
		out := &APIError{Code: string(e.Code), Message: e.Message}
		if len(e.Meta) > 0 {
			out.Details = e.Meta
		}
		return out
	}
	return &APIError{Code: string(appErr.CodeInternal), Message: "internal error"}
}
