// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"loan-intake/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// WorkerOptions are the per-task settings from the workers config section.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

// CamundaWorker is one open job worker subscription.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType.
func NewWorker(client zbc.Client, taskType string, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) *CamundaWorker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		Name("loan-intake")
	if opts.MaxJobsActive > 0 {
		step = step.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	w := &CamundaWorker{
		worker:   step.Open(),
		logger:   log,
		taskType: taskType,
	}
	w.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
	})
	return w
}

// Stop closes the subscription and waits for running handlers.
func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.worker.Close()
	w.worker.AwaitClose()
}
