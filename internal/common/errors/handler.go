package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler turns job errors into BPMN errors thrown back to the engine.
// Submission failures are never retried by the engine; the process decides.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError handles any error in a worker job.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err == nil {
		if cmdWithVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			if _, err := cmdWithVars.Send(ctx); err != nil {
				h.logger.Error("failed to throw error", map[string]interface{}{"jobKey": job.Key, "error": err})
			}
			return
		}
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"field":            stdErr.Field,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
