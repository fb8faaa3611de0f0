package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/blueprintpro/estimator/internal/models"
	"github.com/blueprintpro/estimator/internal/providers"
	"github.com/blueprintpro/estimator/internal/services"
	appErr "github.com/blueprintpro/estimator/pkg/errors"
	"github.com/blueprintpro/estimator/pkg/logger"
)

const (
	TypeEstimateGenerate = "estimate:generate"

	DefaultQueue    = "default"
	estimateTimeout = 2 * time.Minute
	estimateRetries = 3
)

// EstimatePayload is the task payload for estimate generation. It carries
// no credentials; the worker only uses server-side keys.
type EstimatePayload struct {
	ProjectID string `json:"project_id"`
	Provider  string `json:"provider,omitempty"`
	StartDate string `json:"start_date,omitempty"`
}

// NewEstimateTask builds the asynq task for a job.
func NewEstimateTask(job services.EstimateJob) (*asynq.Task, error) {
	p := EstimatePayload{ProjectID: job.ProjectID.String(), Provider: string(job.Preferred)}
	if !job.StartDate.IsZero() {
		p.StartDate = job.StartDate.String()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEstimateGenerate, b, asynq.MaxRetry(estimateRetries), asynq.Timeout(estimateTimeout)), nil
}

// Enqueuer puts estimate jobs on an asynq queue.
type Enqueuer struct {
	client *asynq.Client
	queue  string
}

func NewEnqueuer(client *asynq.Client, queue string) *Enqueuer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Enqueuer{client: client, queue: queue}
}

var _ services.Enqueuer = (*Enqueuer)(nil)

func (e *Enqueuer) EnqueueEstimate(ctx context.Context, job services.EstimateJob) (string, string, error) {
	task, err := NewEstimateTask(job)
	if err != nil {
		return "", "", err
	}
	info, err := e.client.EnqueueContext(ctx, task, asynq.Queue(e.queue))
	if err != nil {
		return "", "", err
	}
	return info.ID, info.Queue, nil
}

// EstimateTaskHandler generates estimates in the background through the
// same project service the API uses.
type EstimateTaskHandler struct {
	projects services.ProjectService
}

func NewEstimateTaskHandler(projects services.ProjectService) *EstimateTaskHandler {
	return &EstimateTaskHandler{projects: projects}
}

func (h *EstimateTaskHandler) HandleEstimate(ctx context.Context, t *asynq.Task) error {
	var p EstimatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid estimate task payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.ProjectID)
	if err != nil {
		logger.L().Error("invalid project id in task", zap.String("project_id", p.ProjectID))
		return fmt.Errorf("parse project id: %v: %w", err, asynq.SkipRetry)
	}

	input := &services.EstimateInput{Provider: services.ProviderChoice{Preferred: providers.Google}}
	if name, ok := providers.ParseName(p.Provider); ok {
		input.Provider.Preferred = name
	}
	if p.StartDate != "" {
		d, err := models.ParseDate(p.StartDate)
		if err != nil {
			return fmt.Errorf("parse start date: %v: %w", err, asynq.SkipRetry)
		}
		input.StartDate = d
	}

	logger.L().Info("handling estimate task", zap.String("project_id", id.String()), zap.String("provider", string(input.Provider.Preferred)))

	out, err := h.projects.GenerateEstimate(ctx, id, input)
	if err != nil {
		logger.L().Error("estimate task failed", zap.String("project_id", id.String()), zap.Error(err))
		if permanent(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.L().Info("estimate task completed",
		zap.String("project_id", id.String()),
		zap.String("provider", string(out.Provider)),
		zap.Float64("total", out.Project.TotalEstimate),
	)
	return nil
}

// permanent reports errors a retry cannot fix.
func permanent(err error) bool {
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Code {
	case appErr.CodeNotFound, appErr.CodeInvalid, appErr.CodePreconditionFailed:
		return true
	}
	return false
}
