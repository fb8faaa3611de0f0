package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueprintpro/estimator/internal/api/types"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/settings"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func recordSleeps(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestCallWithResilienceRetriesTimeouts(t *testing.T) {
	var delays []time.Duration
	calls := 0
	cfg := RetryConfig{Attempts: 3, BaseDelay: 2 * time.Second, Timeout: time.Second, Sleep: recordSleeps(&delays)}

	got, err := CallWithResilience(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", timeoutErr{}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
}

func TestCallWithResilienceNonTimeoutFailsFast(t *testing.T) {
	var delays []time.Duration
	calls := 0
	boom := errors.New("400 bad request")
	cfg := RetryConfig{Attempts: 3, BaseDelay: time.Second, Sleep: recordSleeps(&delays)}

	_, err := CallWithResilience(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, delays)
}

func TestCallWithResilienceReturnsLastError(t *testing.T) {
	var delays []time.Duration
	calls := 0
	cfg := RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, Sleep: recordSleeps(&delays)}

	_, err := CallWithResilience(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("request aborted")
	})
	assert.EqualError(t, err, "request aborted")
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
}

func TestCallWithResilienceAppliesPerCallTimeout(t *testing.T) {
	calls := 0
	cfg := RetryConfig{Attempts: 2, BaseDelay: time.Millisecond, Timeout: 10 * time.Millisecond}
	_, err := CallWithResilience(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, calls)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(timeoutErr{}))
	assert.True(t, IsTimeout(errors.New("net::ERR_ABORTED")))
	assert.True(t, IsTimeout(errors.New("Request Timeout")))
	assert.False(t, IsTimeout(errors.New("connection refused")))
	assert.False(t, IsTimeout(nil))
	assert.False(t, IsTimeout(&APIError{StatusCode: http.StatusGatewayTimeout, Message: "upstream timeout"}))
	assert.False(t, IsTimeout(&AnalysisFailedError{Details: []types.ProviderFailure{{Provider: "google", Message: "context deadline exceeded (Client.Timeout)"}}}))
}

type statusLog struct {
	mu    sync.Mutex
	lines []string
}

func (s *statusLog) add(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze", r.URL.Path)
		var body types.AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn/plan.png", body.BlueprintURL)
		assert.Equal(t, "openrouter", body.Provider)
		assert.Equal(t, "or-key", body.OpenRouterKey)
		_, _ = io.WriteString(w, `{"provider":"openrouter","result":{"total_sqft":1200,"floors":1}}`)
	}))
	defer srv.Close()

	log := &statusLog{}
	s := settings.Settings{Provider: providers.OpenRouter, OpenRouterKey: "or-key", ServerURL: srv.URL}
	c := New(s, WithStatus(log.add))
	res, err := c.Analyze(context.Background(), "https://cdn/plan.png")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", res.Provider)
	assert.Equal(t, 1200.0, res.Result.TotalSqft)
	assert.Equal(t, []string{"Calling backend analysis", "Completed with: openrouter"}, log.lines)
}

func TestAnalyzeAllProvidersFailed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"No provider succeeded","details":[{"provider":"google","message":"API key not valid"}],"provider_order":["google","openrouter"]}`)
	}))
	defer srv.Close()

	log := &statusLog{}
	c := New(settings.Settings{Provider: providers.Google, ServerURL: srv.URL}, WithStatus(log.add))
	_, err := c.Analyze(context.Background(), "https://cdn/plan.png")

	var failed *AnalysisFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, []string{"google", "openrouter"}, failed.ProviderOrder)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, []string{"Calling backend analysis", "Provider google failed: API key not valid"}, log.lines)
}

func TestAnalyzeFailureMentioningTimeoutIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"No provider succeeded","details":[{"provider":"openrouter","message":"Request timed out"}],"provider_order":["openrouter","google"]}`)
	}))
	defer srv.Close()

	var delays []time.Duration
	c := New(settings.Settings{Provider: providers.OpenRouter, ServerURL: srv.URL},
		WithRetry(RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, Timeout: time.Second, Sleep: recordSleeps(&delays)}))
	_, err := c.Analyze(context.Background(), "https://cdn/plan.png")

	var failed *AnalysisFailedError
	require.ErrorAs(t, err, &failed)
	require.Len(t, failed.Details, 1)
	assert.Equal(t, "Request timed out", failed.Details[0].Message)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, delays)
}

func TestEnvelopeGatewayTimeoutIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"UPSTREAM","message":"upstream timeout"}}`)
	}))
	defer srv.Close()

	var delays []time.Duration
	c := New(settings.Settings{ServerURL: srv.URL},
		WithRetry(RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, Timeout: time.Second, Sleep: recordSleeps(&delays)}))
	_, _, err := c.ListProjects(context.Background(), "", 1, 10)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, delays)
}

func TestAnalyzeBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Missing blueprintUrl"}`)
	}))
	defer srv.Close()

	_, err := New(settings.Settings{ServerURL: srv.URL}).Analyze(context.Background(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Missing blueprintUrl", apiErr.Message)
}

func TestListProjectsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ready", r.URL.Query().Get("status"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"6f1c2f43-3f4e-4a43-9a57-7b1c1d7b7f10","name":"Cabin","status":"ready"}],"meta":{"page":1,"page_size":20,"total":1}}`)
	}))
	defer srv.Close()

	c := New(settings.Settings{ServerURL: srv.URL, Token: "tok"})
	projects, meta, err := c.ListProjects(context.Background(), "ready", 1, 20)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Cabin", projects[0].Name)
	assert.EqualValues(t, 1, meta.Total)
}

func TestEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"precondition_failed","message":"at least 3 material selections are required"}}`)
	}))
	defer srv.Close()

	_, err := New(settings.Settings{ServerURL: srv.URL}).GenerateEstimate(context.Background(), "abc", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "precondition_failed", apiErr.Code)
}
