// Package providers adapts external vision-language model APIs to a common
// analysis contract.
package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/pkg/config"
)

// Name identifies a provider.
type Name string

const (
	Google     Name = "google"
	OpenRouter Name = "openrouter"
)

// FallbackOrder is the fixed order candidates are tried in after the preferred one.
var FallbackOrder = []Name{Google, OpenRouter}

// ParseName accepts a provider name case-insensitively.
func ParseName(s string) (Name, bool) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range FallbackOrder {
		if n == known {
			return n, true
		}
	}
	return "", false
}

// Order returns the attempt order: the preferred provider first, then the
// remaining providers in fallback order. An unknown preference keeps the
// plain fallback order.
func Order(preferred Name) []Name {
	out := make([]Name, 0, len(FallbackOrder))
	if _, ok := ParseName(string(preferred)); ok {
		out = append(out, preferred)
	}
	for _, n := range FallbackOrder {
		if n != preferred {
			out = append(out, n)
		}
	}
	return out
}

// Credentials configure one provider call. An empty APIKey means the
// provider is not configured.
type Credentials struct {
	APIKey string
	Model  string
}

func (c Credentials) Configured() bool { return strings.TrimSpace(c.APIKey) != "" }

// CredentialBag holds credentials per provider.
type CredentialBag map[Name]Credentials

func (b CredentialBag) Get(n Name) Credentials {
	if b == nil {
		return Credentials{}
	}
	return b[n]
}

// Resolve merges server-side and client-supplied credentials. A server key
// always wins over a client key; a client model wins over a server model.
func Resolve(server, client CredentialBag) CredentialBag {
	out := CredentialBag{}
	for _, n := range FallbackOrder {
		s, c := server.Get(n), client.Get(n)
		creds := Credentials{APIKey: strings.TrimSpace(s.APIKey), Model: strings.TrimSpace(c.Model)}
		if creds.APIKey == "" {
			creds.APIKey = strings.TrimSpace(c.APIKey)
		}
		if creds.Model == "" {
			creds.Model = strings.TrimSpace(s.Model)
		}
		out[n] = creds
	}
	return out
}

// ServerCredentials returns the credentials configured through the environment.
func ServerCredentials(cfg *config.Config) CredentialBag {
	return CredentialBag{
		Google:     {APIKey: cfg.GoogleAPIKey, Model: cfg.GoogleModel},
		OpenRouter: {APIKey: cfg.OpenRouterAPIKey, Model: cfg.OpenRouterModel},
	}
}

// Provider extracts blueprint data from an image.
type Provider interface {
	Name() Name
	Analyze(ctx context.Context, imageURL string, creds Credentials) (*models.BlueprintAnalysis, error)
}

// Generator produces a raw JSON document from a text prompt.
type Generator interface {
	Name() Name
	GenerateJSON(ctx context.Context, prompt string, creds Credentials) ([]byte, error)
}

// Adapter is a provider usable for both analysis and generation.
type Adapter interface {
	Provider
	Generator
}

// Build returns the configured adapters in fallback order.
func Build(cfg *config.Config, client *http.Client) []Adapter {
	return []Adapter{
		NewGemini(GeminiOptions{BaseURL: cfg.GoogleBaseURL, Model: cfg.GoogleModel, HTTPClient: client}),
		NewOpenRouter(OpenRouterOptions{BaseURL: cfg.OpenRouterBaseURL, Model: cfg.OpenRouterModel, HTTPClient: client}),
	}
}
