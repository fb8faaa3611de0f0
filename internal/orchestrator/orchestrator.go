// Package orchestrator runs blueprint analysis across providers with
// sequential fallback.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/pkg/logger"
	"github.com/blueprintpro/estimator/pkg/metrics"
)

const DefaultAttemptTimeout = 45 * time.Second

// CandidateState tracks one provider through an orchestration.
type CandidateState int

const (
	NotAttempted CandidateState = iota
	Skipped
	Failed
	Succeeded
)

func (s CandidateState) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Succeeded:
		return "succeeded"
	default:
		return "not_attempted"
	}
}

// Candidate is the per-provider record of an orchestration.
type Candidate struct {
	Provider providers.Name
	State    CandidateState
	Err      error
	Duration time.Duration
}

// Result is a successful orchestration.
type Result struct {
	Analysis   *models.BlueprintAnalysis
	Provider   providers.Name
	Candidates []Candidate
}

// Options tune an Orchestrator.
type Options struct {
	AttemptTimeout time.Duration
	Metrics        *metrics.Metrics
}

// Orchestrator tries providers one at a time until one succeeds.
type Orchestrator struct {
	adapters map[providers.Name]providers.Provider
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(adapters []providers.Provider, opts Options) *Orchestrator {
	o := &Orchestrator{
		adapters: make(map[providers.Name]providers.Provider, len(adapters)),
		timeout:  opts.AttemptTimeout,
		metrics:  opts.Metrics,
		log:      logger.Named("orchestrator"),
	}
	if o.timeout <= 0 {
		o.timeout = DefaultAttemptTimeout
	}
	for _, a := range adapters {
		o.adapters[a.Name()] = a
	}
	return o
}

// Orchestrate analyzes imageURL with the first provider that succeeds.
// Providers without credentials are skipped and never count as attempts.
// Each attempt gets its own timeout; an expired attempt moves on to the next
// candidate. It returns *AllProvidersFailedError when the list is exhausted.
func (o *Orchestrator) Orchestrate(ctx context.Context, imageURL string, preferred providers.Name, creds providers.CredentialBag) (*Result, error) {
	order := providers.Order(preferred)
	candidates := make([]Candidate, len(order))
	for i, name := range order {
		candidates[i] = Candidate{Provider: name, State: NotAttempted}
	}

	var attempts []Attempt
	for i := range candidates {
		c := &candidates[i]
		adapter, ok := o.adapters[c.Provider]
		if !ok || !creds.Get(c.Provider).Configured() {
			c.State = Skipped
			o.metrics.RecordAttempt(string(c.Provider), "skipped")
			o.log.Debug("provider skipped", zap.String("provider", string(c.Provider)))
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		analysis, err := o.attempt(ctx, adapter, imageURL, creds.Get(c.Provider), c)
		if err != nil {
			c.State = Failed
			c.Err = err
			attempts = append(attempts, Attempt{Provider: c.Provider, Message: messageOf(err), Err: err})
			o.log.Warn("provider failed",
				zap.String("provider", string(c.Provider)),
				zap.Duration("duration", c.Duration),
				zap.Error(err),
			)
			continue
		}

		c.State = Succeeded
		o.log.Info("provider succeeded",
			zap.String("provider", string(c.Provider)),
			zap.Duration("duration", c.Duration),
		)
		return &Result{Analysis: analysis, Provider: c.Provider, Candidates: candidates}, nil
	}

	return nil, &AllProvidersFailedError{Order: order, Attempts: attempts}
}

func (o *Orchestrator) attempt(ctx context.Context, adapter providers.Provider, imageURL string, creds providers.Credentials, c *Candidate) (*models.BlueprintAnalysis, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	analysis, err := adapter.Analyze(attemptCtx, imageURL, creds)
	c.Duration = time.Since(start)
	o.metrics.ObserveAnalysis(string(c.Provider), c.Duration.Seconds())

	if err == nil && analysis == nil {
		err = &providers.ProviderError{Provider: c.Provider, Kind: providers.KindEmpty, Message: "no analysis returned"}
	}
	o.metrics.RecordAttempt(string(c.Provider), outcomeOf(err))
	return analysis, err
}

func messageOf(err error) string {
	var pe *providers.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var pe *providers.ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "error"
}
