// Package controller drives one form instance from submit to result.
//
// A Controller owns a single SessionState. Submitting validates the raw
// input synchronously; accepted input is sent to the scoring service on a
// background goroutine. While a submission is validating or in flight the
// submit action is disabled. Remote calls are never retried or cancelled
// once started; their timeout is the transport's.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "loan-intake/internal/common/errors"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/common/metrics"
	"loan-intake/internal/intake/validator"
	"loan-intake/internal/models"
	"loan-intake/internal/scoring"
)

// ErrSubmitDisabled is returned when a submission is already validating or in flight.
var ErrSubmitDisabled = apperrors.NewSubmitDisabledError()

// ScoringService scores a wire payload. *scoring.Client implements it.
type ScoringService interface {
	Score(ctx context.Context, payload scoring.Payload) (*models.ScoringResult, error)
}

type Validator interface {
	Validate(raw models.RawInput) (*models.NormalizedApplication, error)
}

// Renderer receives every state the controller enters, in order. It must not
// submit on the same controller.
type Renderer func(models.SessionState)

// Recorder counts submission outcomes. *observability.Observability implements it.
type Recorder interface {
	RecordSubmission(ctx context.Context, outcome string)
}

type Options struct {
	Scorer    ScoringService
	Validator Validator
	Renderer  Renderer
	Logger    logger.Logger
	Recorder  Recorder
}

type Controller struct {
	mu    sync.Mutex
	state models.SessionState

	// renderMu keeps renderer calls in transition order.
	renderMu sync.Mutex

	scorer    ScoringService
	validator Validator
	renderer  Renderer
	logger    logger.Logger
	recorder  Recorder

	inflight sync.WaitGroup
}

// New returns a controller in the Idle state. Only Scorer is required; the
// validator defaults to validator.DefaultBounds.
func New(opts Options) (*Controller, error) {
	if opts.Scorer == nil {
		return nil, errors.New("controller: scoring service is required")
	}
	if opts.Validator == nil {
		opts.Validator = validator.New(validator.DefaultBounds())
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Controller{
		state:     models.Idle{},
		scorer:    opts.Scorer,
		validator: opts.Validator,
		renderer:  opts.Renderer,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "submission-controller"}),
		recorder:  opts.Recorder,
	}, nil
}

// State returns the current state.
func (c *Controller) State() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanSubmit reports whether the submit action is enabled.
func (c *Controller) CanSubmit() bool {
	return !models.IsBusy(c.State())
}

// Submit runs a full submission and waits for its terminal state. If ctx is
// done first, Submit returns the current state and ctx.Err(); the remote call
// keeps running and still completes the session.
func (c *Controller) Submit(ctx context.Context, raw models.RawInput) (models.SessionState, error) {
	_, done, err := c.SubmitAsync(ctx, raw)
	if err != nil {
		return c.State(), err
	}
	select {
	case final := <-done:
		return final, nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

// SubmitAsync validates raw and, if valid, starts the scoring call. It
// returns the state reached synchronously (Failed or Submitting) and a
// channel that yields the terminal state exactly once.
func (c *Controller) SubmitAsync(ctx context.Context, raw models.RawInput) (models.SessionState, <-chan models.SessionState, error) {
	c.mu.Lock()
	if models.IsBusy(c.state) {
		current := c.state
		c.mu.Unlock()
		c.record(ctx, metrics.OutcomeDisabled)
		c.logger.Debug("submit rejected while busy", map[string]interface{}{"status": current.Status()})
		return current, nil, ErrSubmitDisabled
	}
	c.commitLocked(models.Validating{})

	done := make(chan models.SessionState, 1)

	app, err := c.validator.Validate(raw)
	if err != nil {
		stdErr := apperrors.Normalize(err)
		metrics.ValidationFailures.WithLabelValues(string(stdErr.Code), stdErr.Field).Inc()
		c.record(ctx, metrics.OutcomeRejected)
		c.logger.Info("application rejected by validation", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"field":     stdErr.Field,
		})

		failed := failedFrom(stdErr)
		c.transition(failed)
		done <- failed
		return failed, done, nil
	}

	payload := scoring.NewPayload(*app)
	c.transition(models.Submitting{})

	c.inflight.Add(1)
	metrics.SubmissionsInFlight.Inc()
	go c.complete(context.WithoutCancel(ctx), payload, done)

	return models.Submitting{}, done, nil
}

// Wait blocks until every in-flight scoring call has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) complete(ctx context.Context, payload scoring.Payload, done chan<- models.SessionState) {
	defer c.inflight.Done()
	defer metrics.SubmissionsInFlight.Dec()

	result, err := c.score(ctx, payload)
	if err == nil && result == nil {
		err = errors.New("scoring service returned no result")
	}

	var final models.SessionState
	if err != nil {
		stdErr := apperrors.Normalize(err)
		c.logger.Warn("submission failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
			"status":    stdErr.StatusCode,
		})
		c.record(ctx, metrics.OutcomeFailed)
		final = failedFrom(stdErr)
	} else {
		c.logger.Info("submission scored", map[string]interface{}{"approved": result.Approved})
		c.record(ctx, metrics.OutcomeSucceeded)
		final = models.Succeeded{Result: *result}
	}

	c.transition(final)
	done <- final
}

// score calls the scoring service, turning a panic into an error.
func (c *Controller) score(ctx context.Context, payload scoring.Payload) (result *models.ScoringResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring service panicked: %v", r)
		}
	}()
	return c.scorer.Score(ctx, payload)
}

func (c *Controller) transition(s models.SessionState) {
	c.mu.Lock()
	c.commitLocked(s)
}

// commitLocked stores s and publishes it. It must be called with c.mu held
// and returns with c.mu released.
func (c *Controller) commitLocked(s models.SessionState) {
	c.state = s
	c.renderMu.Lock()
	c.mu.Unlock()
	defer c.renderMu.Unlock()

	c.logger.Debug("state transition", map[string]interface{}{"status": s.Status()})
	if c.renderer != nil {
		c.renderer(s)
	}
}

func (c *Controller) record(ctx context.Context, outcome string) {
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	if c.recorder != nil {
		c.recorder.RecordSubmission(ctx, outcome)
	}
}

func failedFrom(stdErr *apperrors.StandardError) models.Failed {
	return models.Failed{
		Message: apperrors.UserMessage(stdErr),
		Code:    string(stdErr.Code),
	}
}
