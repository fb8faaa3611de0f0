package providers

import (
	"errors"
	"fmt"
)

// Kind classifies why a provider could not be used.
type Kind string

const (
	KindTransport Kind = "transport"
	KindHTTP      Kind = "http"
	KindEmpty     Kind = "empty"
	KindMalformed Kind = "malformed"
)

var (
	ErrTransport = errors.New("provider transport error")
	ErrHTTP      = errors.New("provider http error")
	ErrEmpty     = errors.New("provider returned no payload")
	ErrMalformed = errors.New("provider returned malformed payload")

	// ErrNotConfigured is returned when an adapter is called without an API key.
	ErrNotConfigured = errors.New("provider not configured")
)

// ProviderError describes a single failed provider call.
type ProviderError struct {
	Provider   Name
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrHTTP:
		return e.Kind == KindHTTP
	case ErrEmpty:
		return e.Kind == KindEmpty
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

func transportError(p Name, err error) *ProviderError {
	return &ProviderError{Provider: p, Kind: KindTransport, Message: err.Error(), Err: err}
}

func httpError(p Name, status int, msg string) *ProviderError {
	return &ProviderError{Provider: p, Kind: KindHTTP, StatusCode: status, Message: msg}
}

func emptyError(p Name, msg string) *ProviderError {
	return &ProviderError{Provider: p, Kind: KindEmpty, Message: msg}
}

func malformedError(p Name, err error) *ProviderError {
	return &ProviderError{Provider: p, Kind: KindMalformed, Message: err.Error(), Err: err}
}
