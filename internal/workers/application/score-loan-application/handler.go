// internal/workers/application/score-loan-application/handler.go
package scoreloanapplication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "loan-intake/internal/common/errors"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/common/metrics"
	"loan-intake/internal/intake/controller"
	"loan-intake/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-loan-application"
)

// Handler submits the applicationData of a job through a fresh submission
// controller and completes the job with the scoring result.
type Handler struct {
	config     *Config
	scorer     controller.ScoringService
	validator  controller.Validator
	recorder   controller.Recorder
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

// NewHandler builds the handler; v and rec may be nil.
func NewHandler(config *Config, scorer controller.ScoringService, v controller.Validator, rec controller.Recorder, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		scorer:     scorer,
		validator:  v,
		recorder:   rec,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidRequestError("applicationData", err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		h.fail(ctx, client, job, err)
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.Key,
		"approved": output.Approved,
	})
}

// Execute runs one submission. A Failed state is returned as a
// *errors.StandardError carrying the user-facing message.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctrl, err := controller.New(controller.Options{
		Scorer:    h.scorer,
		Validator: h.validator,
		Logger:    h.logger,
		Recorder:  h.recorder,
	})
	if err != nil {
		return nil, err
	}

	final, err := ctrl.Submit(ctx, input.ApplicationData)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("scoring", err)
		}
		return nil, err
	}

	switch st := final.(type) {
	case models.Succeeded:
		return &Output{
			Approved:         st.Result.Approved,
			ScoringResult:    st.Result,
			SubmissionStatus: models.StatusSucceeded,
		}, nil
	case models.Failed:
		return nil, &apperrors.StandardError{
			Code:    apperrors.ErrorCode(st.Code),
			Message: st.Message,
			Details: fmt.Sprintf("application %s", input.ApplicationID),
		}
	default:
		return nil, fmt.Errorf("submission ended in unexpected state %s", final.Status())
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	h.errHandler.HandleJobError(sendCtx, client, job, err)
}
