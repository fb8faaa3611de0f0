// Package client talks to the estimator HTTP API with timeouts, timeout-only
// retries and progress reporting.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blueprintpro/estimator/internal/api/types"
	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/settings"
)

// StatusFunc receives human-readable progress lines.
type StatusFunc func(line string)

// Client is the caller of the estimator API.
type Client struct {
	baseURL  string
	http     *http.Client
	settings settings.Settings
	status   StatusFunc
	retry    RetryConfig
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithStatus(fn StatusFunc) Option { return func(c *Client) { c.status = fn } }

// WithRetry replaces the retry policy; per-call timeouts are still chosen per method.
func WithRetry(cfg RetryConfig) Option { return func(c *Client) { c.retry = cfg } }

// New builds a client from loaded settings.
func New(s settings.Settings, opts ...Option) *Client {
	base := strings.TrimRight(s.ServerURL, "/")
	if base == "" {
		base = settings.DefaultServerURL
	}
	c := &Client{
		baseURL:  base,
		http:     &http.Client{},
		settings: s,
		status:   func(string) {},
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AnalysisFailedError is the decoded 502 from the analyze endpoint.
type AnalysisFailedError struct {
	Details       []types.ProviderFailure
	ProviderOrder []string
}

func (e *AnalysisFailedError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("no provider succeeded (order: %s; none configured)", strings.Join(e.ProviderOrder, ", "))
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("Provider %s failed: %s", d.Provider, d.Message))
	}
	return "no provider succeeded: " + strings.Join(parts, "; ")
}

// APIError is any other non-2xx answer.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (c *Client) overrides() types.ProviderOverrides {
	return types.ProviderOverrides{
		Provider:        string(c.settings.Provider),
		GoogleKey:       c.settings.GoogleKey,
		OpenRouterKey:   c.settings.OpenRouterKey,
		OpenRouterModel: c.settings.OpenRouterModel,
	}
}

type callKind int

const (
	genericCall callKind = iota
	analysisCall
)

func (c *Client) cfg(kind callKind) RetryConfig {
	cfg := c.retry
	if kind == analysisCall {
		cfg.Timeout = DefaultAnalysisTimeout
	} else if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.status(fmt.Sprintf("Attempt %d timed out, retrying in %s", attempt, delay))
	}
	return cfg
}

// Analyze runs blueprint analysis through the server relay.
func (c *Client) Analyze(ctx context.Context, blueprintURL string) (*types.AnalyzeResponse, error) {
	body := types.AnalyzeRequest{BlueprintURL: blueprintURL, ProviderOverrides: c.overrides()}

	c.status("Calling backend analysis")
	out, err := CallWithResilience(ctx, c.cfg(analysisCall), func(ctx context.Context) (*types.AnalyzeResponse, error) {
		resp, raw, err := c.do(ctx, http.MethodPost, "/api/analyze", body)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			var ok types.AnalyzeResponse
			if err := json.Unmarshal(raw, &ok); err != nil {
				return nil, fmt.Errorf("decode analysis: %w", err)
			}
			return &ok, nil
		case resp.StatusCode == http.StatusBadGateway:
			var failed types.NoProviderBody
			if err := json.Unmarshal(raw, &failed); err != nil {
				return nil, &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
			}
			return nil, &AnalysisFailedError{Details: failed.Details, ProviderOrder: failed.ProviderOrder}
		default:
			var eb types.ErrorBody
			msg := strings.TrimSpace(string(raw))
			if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
				msg = eb.Error
			}
			return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
	})
	if err != nil {
		var failed *AnalysisFailedError
		if errors.As(err, &failed) {
			for _, d := range failed.Details {
				c.status(fmt.Sprintf("Provider %s failed: %s", d.Provider, d.Message))
			}
		}
		return nil, err
	}
	c.status("Completed with: " + out.Provider)
	return out, nil
}

// ListProjects returns one page of projects.
func (c *Client) ListProjects(ctx context.Context, status string, page, pageSize int) ([]models.Project, *types.Meta, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprint(pageSize))
	}
	path := "/api/projects"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var projects []models.Project
	meta, err := c.envelope(ctx, c.cfg(genericCall), http.MethodGet, path, nil, &projects)
	if err != nil {
		return nil, nil, err
	}
	return projects, meta, nil
}

// GenerateEstimate asks the server to generate and store an estimate.
func (c *Client) GenerateEstimate(ctx context.Context, projectID, startDate string) (*types.EstimateResponse, error) {
	req := types.EstimateRequest{ProviderOverrides: c.overrides(), StartDate: startDate}

	c.status("Generating estimate")
	var out types.EstimateResponse
	if _, err := c.envelope(ctx, c.cfg(analysisCall), http.MethodPost, "/api/projects/"+url.PathEscape(projectID)+"/estimate", req, &out); err != nil {
		return nil, err
	}
	c.status("Completed with: " + out.Provider)
	return &out, nil
}

func (c *Client) envelope(ctx context.Context, cfg RetryConfig, method, path string, body, dest any) (*types.Meta, error) {
	return CallWithResilience(ctx, cfg, func(ctx context.Context) (*types.Meta, error) {
		resp, raw, err := c.do(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		var env struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
			Error   *types.APIError `json:"error"`
			Meta    *types.Meta     `json:"meta"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		}
		if !env.Success || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
			if env.Error != nil {
				apiErr.Code = env.Error.Code
				apiErr.Message = env.Error.Message
			}
			return nil, apiErr
		}
		if dest != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, dest); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return env.Meta, nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.settings.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.settings.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, raw, nil
}
