package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-intake/internal/common/errors"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/models"
	"loan-intake/internal/scoring"
)

// fakeScorer returns canned results and can hold calls until released.
type fakeScorer struct {
	mu       sync.Mutex
	calls    []scoring.Payload
	result   *models.ScoringResult
	err      error
	panicMsg string
	gate     chan struct{}
	started  chan struct{}
}

func (f *fakeScorer) Score(ctx context.Context, payload scoring.Payload) (*models.ScoringResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, payload)
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result, f.err
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// stateLog records rendered states.
type stateLog struct {
	mu     sync.Mutex
	states []models.Status
}

func (l *stateLog) render(s models.SessionState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s.Status())
}

func (l *stateLog) statuses() []models.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Status(nil), l.states...)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) RecordSubmission(_ context.Context, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func validInput() models.RawInput {
	return models.RawInput{
		Age:              "30",
		Income:           "50000",
		HomeOwnership:    "rent",
		EmploymentLength: "5",
		LoanAmount:       "10000",
		DefaultOnFile:    "no",
		LoanIntent:       "personal",
	}
}

func approved() *models.ScoringResult {
	return &models.ScoringResult{
		Approved: true,
		Fields:   map[string]interface{}{"approved": true, "probability": 0.91},
	}
}

func newController(t *testing.T, scorer ScoringService) (*Controller, *stateLog) {
	t.Helper()
	log := &stateLog{}
	c, err := New(Options{
		Scorer:   scorer,
		Renderer: log.render,
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return c, log
}

func TestNew_RequiresScorer(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestController_StartsIdle(t *testing.T) {
	c, _ := newController(t, &fakeScorer{result: approved()})

	assert.Equal(t, models.Idle{}, c.State())
	assert.True(t, c.CanSubmit())
}

func TestController_Submit_Success(t *testing.T) {
	scorer := &fakeScorer{result: approved()}
	rec := &outcomeRecorder{}
	log := &stateLog{}
	c, err := New(Options{Scorer: scorer, Renderer: log.render, Recorder: rec, Logger: logger.NewTestLogger(t)})
	require.NoError(t, err)

	final, err := c.Submit(context.Background(), validInput())
	require.NoError(t, err)

	require.IsType(t, models.Succeeded{}, final)
	assert.Equal(t, *approved(), final.(models.Succeeded).Result)
	assert.Equal(t, final, c.State())
	assert.Equal(t, []models.Status{
		models.StatusValidating,
		models.StatusSubmitting,
		models.StatusSucceeded,
	}, log.statuses())

	require.Equal(t, 1, scorer.callCount())
	assert.Equal(t, scoring.Payload{
		Age:              30,
		Income:           50000,
		HomeOwnership:    "rent",
		EmploymentLength: 5,
		LoanAmount:       10000,
		DefOnFile:        0,
		LoanIntent:       "personal",
	}, scorer.calls[0])
	assert.Equal(t, []string{"succeeded"}, rec.outcomes)
}

func TestController_Submit_ValidationFailureSkipsNetwork(t *testing.T) {
	scorer := &fakeScorer{result: approved()}
	c, log := newController(t, scorer)

	raw := validInput()
	raw.Age = ""

	final, err := c.Submit(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, models.Failed{
		Message: "Please fill all numeric fields with valid numbers.",
		Code:    string(apperrors.ErrCodeIncomplete),
	}, final)
	assert.Equal(t, 0, scorer.callCount())
	assert.Equal(t, []models.Status{models.StatusValidating, models.StatusFailed}, log.statuses())
}

func TestController_Submit_RemoteFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"remote detail", apperrors.NewRemoteError(400, "Invalid input"), "Invalid input"},
		{"transport description", apperrors.NewTransportStatusError(503), "The scoring service responded with status 503."},
		{"no description", apperrors.NewTransportError("", errors.New("connection refused")), "Something went wrong."},
		{"unstructured error", errors.New("boom"), "Something went wrong."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, log := newController(t, &fakeScorer{err: tt.err})

			final, err := c.Submit(context.Background(), validInput())
			require.NoError(t, err)

			failed, ok := final.(models.Failed)
			require.True(t, ok, "expected Failed, got %T", final)
			assert.Equal(t, tt.message, failed.Message)
			assert.Equal(t, []models.Status{
				models.StatusValidating,
				models.StatusSubmitting,
				models.StatusFailed,
			}, log.statuses())
		})
	}
}

func TestController_Submit_ScorerPanicBecomesFailure(t *testing.T) {
	c, _ := newController(t, &fakeScorer{panicMsg: "nil map"})

	final, err := c.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, models.Failed{Message: apperrors.MsgGeneric, Code: string(apperrors.ErrCodeInternal)}, final)
}

func TestController_Submit_NilResultBecomesFailure(t *testing.T) {
	c, _ := newController(t, &fakeScorer{})

	final, err := c.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, apperrors.MsgGeneric, final.(models.Failed).Message)
}

func TestController_SubmitDisabledWhileInFlight(t *testing.T) {
	scorer := &fakeScorer{
		result:  approved(),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, _ := newController(t, scorer)

	state, done, err := c.SubmitAsync(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, models.Submitting{}, state)
	<-scorer.started

	assert.False(t, c.CanSubmit())
	state, second, err := c.SubmitAsync(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrSubmitDisabled)
	assert.Nil(t, second)
	assert.Equal(t, models.Submitting{}, state)
	assert.Equal(t, models.Submitting{}, c.State())

	close(scorer.gate)
	final := <-done
	assert.IsType(t, models.Succeeded{}, final)
	assert.Equal(t, 1, scorer.callCount())
	assert.True(t, c.CanSubmit())
}

func TestController_ResubmitAfterFailure(t *testing.T) {
	scorer := &fakeScorer{result: approved()}
	c, log := newController(t, scorer)

	raw := validInput()
	raw.LoanAmount = "0"
	first, err := c.Submit(context.Background(), raw)
	require.NoError(t, err)
	require.IsType(t, models.Failed{}, first)

	raw.LoanAmount = "10000"
	second, err := c.Submit(context.Background(), raw)
	require.NoError(t, err)
	assert.IsType(t, models.Succeeded{}, second)

	assert.Equal(t, []models.Status{
		models.StatusValidating,
		models.StatusFailed,
		models.StatusValidating,
		models.StatusSubmitting,
		models.StatusSucceeded,
	}, log.statuses())
}

func TestController_ResubmitAfterSuccessStartsOver(t *testing.T) {
	c, _ := newController(t, &fakeScorer{result: approved()})

	_, err := c.Submit(context.Background(), validInput())
	require.NoError(t, err)

	raw := validInput()
	raw.DefaultOnFile = "perhaps"
	final, err := c.Submit(context.Background(), raw)
	require.NoError(t, err)

	failed, ok := final.(models.Failed)
	require.True(t, ok)
	assert.Equal(t, string(apperrors.ErrCodeInvalidEnum), failed.Code)
}

func TestController_CallerCancellationDoesNotAbortCall(t *testing.T) {
	scorer := &fakeScorer{
		result:  approved(),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	c, _ := newController(t, scorer)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-scorer.started
		cancel()
	}()

	state, err := c.Submit(ctx, validInput())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.Submitting{}, state)

	close(scorer.gate)
	c.Wait()
	assert.IsType(t, models.Succeeded{}, c.State())
}

func TestController_DoesNotMutateInput(t *testing.T) {
	c, _ := newController(t, &fakeScorer{result: approved()})

	raw := validInput()
	raw.HomeOwnership = " OWN "
	before := raw

	_, err := c.Submit(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw)
}

// End-to-end scenarios against an HTTP scoring service.
func TestController_WithScoringService(t *testing.T) {
	tests := []struct {
		name    string
		input   func() models.RawInput
		handler http.HandlerFunc
		check   func(t *testing.T, final models.SessionState, calls int)
	}{
		{
			name:  "approved",
			input: validInput,
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"approved": true}`))
			},
			check: func(t *testing.T, final models.SessionState, calls int) {
				succeeded, ok := final.(models.Succeeded)
				require.True(t, ok)
				assert.True(t, succeeded.Result.Approved)
				assert.Equal(t, 1, calls)
			},
		},
		{
			name: "incomplete input",
			input: func() models.RawInput {
				raw := validInput()
				raw.Age = ""
				return raw
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"approved": true}`))
			},
			check: func(t *testing.T, final models.SessionState, calls int) {
				assert.Equal(t, "Please fill all numeric fields with valid numbers.", final.(models.Failed).Message)
				assert.Equal(t, 0, calls)
			},
		},
		{
			name:  "remote detail",
			input: validInput,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"detail": "Invalid input"}`))
			},
			check: func(t *testing.T, final models.SessionState, calls int) {
				assert.Equal(t, "Invalid input", final.(models.Failed).Message)
				assert.Equal(t, 1, calls)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				calls++
				mu.Unlock()
				tt.handler(w, r)
			}))
			defer server.Close()

			client := scoring.NewClient(scoring.Config{BaseURL: server.URL, Timeout: 2 * time.Second}, logger.NewTestLogger(t), nil)
			c, _ := newController(t, client)

			final, err := c.Submit(context.Background(), tt.input())
			require.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			tt.check(t, final, calls)
		})
	}
}

func TestController_UnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := scoring.NewClient(scoring.Config{BaseURL: url, Timeout: time.Second}, logger.NewTestLogger(t), nil)
	c, _ := newController(t, client)

	final, err := c.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "Something went wrong.", final.(models.Failed).Message)
}
