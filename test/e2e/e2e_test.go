// test/e2e/e2e_test.go
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-intake/internal/api"
	"loan-intake/internal/common/config"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/intake/controller"
	"loan-intake/internal/intake/validator"
	"loan-intake/internal/scoring"
)

// fakeScoringService mimics the remote model service: /ready, and /score
// with the cross-field rule and an approval threshold on loan amount.
type fakeScoringService struct {
	mu       sync.Mutex
	requests []map[string]interface{}
}

func (f *fakeScoringService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	mux.HandleFunc("/score", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, body)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if body["employment_length"].(float64) > body["age"].(float64) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"employment_length cannot be greater than age"}`))
			return
		}
		if body["loan_amount"].(float64) > 500000 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		approved := body["loan_amount"].(float64) < 20000 && body["def_on_file"].(float64) == 0
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"approved":    approved,
			"probability": 0.42,
		})
	})
	return mux
}

func (f *fakeScoringService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type stack struct {
	router  *gin.Engine
	store   *api.SessionStore
	scoring *fakeScoringService
}

func newStack(t *testing.T, bounds config.BoundsConfig) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := &fakeScoringService{}
	remote := httptest.NewServer(fake.handler())
	t.Cleanup(remote.Close)

	t.Setenv("SCORING_SERVICE_URL", remote.URL)
	cfg, err := config.LoadFromFile("../../configs/config.yaml")
	require.NoError(t, err)
	require.Equal(t, remote.URL+"/score", cfg.Scoring.URL())

	if bounds.EmploymentWithinAge != nil {
		cfg.Validation.Bounds.EmploymentWithinAge = bounds.EmploymentWithinAge
	}

	log := logger.NewTestLogger(t)
	v := validator.New(validator.BoundsFromConfig(cfg.Validation.Bounds))
	client := scoring.NewClient(scoring.Config{
		BaseURL:   cfg.Scoring.BaseURL,
		Path:      cfg.Scoring.Path,
		ReadyPath: cfg.Scoring.ReadyPath,
		Timeout:   config.GetDuration(cfg.Scoring.Timeout),
	}, log, nil)

	store := api.NewSessionStore(config.GetDuration(cfg.Server.SessionTTL), func() (*controller.Controller, error) {
		return controller.New(controller.Options{Scorer: client, Validator: v, Logger: log})
	}, log)
	t.Cleanup(store.Wait)

	return &stack{
		router:  api.NewRouter(api.NewHandlers(store, v, client, log), log),
		store:   store,
		scoring: fake,
	}
}

func (s *stack) request(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

// submitForm opens a session, types every field and submits, waiting for the result.
func (s *stack) submitForm(t *testing.T, form map[string]string) map[string]interface{} {
	t.Helper()
	code, created := s.request(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	id := created["id"].(string)

	for field, value := range form {
		code, _ := s.request(t, http.MethodPatch, "/api/v1/sessions/"+id+"/fields",
			map[string]string{"field": field, "value": value})
		require.Equal(t, http.StatusOK, code)
	}

	code, resp := s.request(t, http.MethodPost, "/api/v1/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, code)
	return resp["state"].(map[string]interface{})
}

func baseForm() map[string]string {
	return map[string]string{
		"age":              "30",
		"income":           "50000",
		"homeOwnership":    "rent",
		"employmentLength": "5",
		"loanAmount":       "10000",
		"defaultOnFile":    "no",
		"loanIntent":       "personal",
	}
}

func TestE2E_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(map[string]string)
		status   string
		message  string
		approved interface{}
		requests int
	}{
		{
			name:     "approved application",
			status:   "succeeded",
			approved: true,
			requests: 1,
		},
		{
			name:     "denied application is still a success",
			mutate:   func(f map[string]string) { f["defaultOnFile"] = "yes" },
			status:   "succeeded",
			approved: false,
			requests: 1,
		},
		{
			name:     "missing age never reaches the service",
			mutate:   func(f map[string]string) { f["age"] = "" },
			status:   "failed",
			message:  "Please fill all numeric fields with valid numbers.",
			requests: 0,
		},
		{
			name:     "remote detail shown verbatim",
			mutate:   func(f map[string]string) { f["age"] = "20"; f["employmentLength"] = "25" },
			status:   "failed",
			message:  "employment_length cannot be greater than age",
			requests: 1,
		},
		{
			name:     "remote status without detail",
			mutate:   func(f map[string]string) { f["loanAmount"] = "900000" },
			status:   "failed",
			message:  "The scoring service responded with status 500.",
			requests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// local cross-field check off so the remote rule is exercised
			within := false
			s := newStack(t, config.BoundsConfig{EmploymentWithinAge: &within})

			form := baseForm()
			if tt.mutate != nil {
				tt.mutate(form)
			}
			state := s.submitForm(t, form)

			assert.Equal(t, tt.status, state["status"])
			if tt.message != "" {
				assert.Equal(t, tt.message, state["message"])
			}
			if tt.approved != nil {
				assert.Equal(t, tt.approved, state["result"].(map[string]interface{})["approved"])
				assert.Equal(t, 0.42, state["result"].(map[string]interface{})["probability"])
			}
			assert.Equal(t, tt.requests, s.scoring.count())
		})
	}
}

func TestE2E_ResubmitAfterFailure(t *testing.T) {
	s := newStack(t, config.BoundsConfig{})

	code, created := s.request(t, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	id := created["id"].(string)

	for field, value := range baseForm() {
		_, _ = s.request(t, http.MethodPatch, "/api/v1/sessions/"+id+"/fields", map[string]string{"field": field, "value": value})
	}
	_, _ = s.request(t, http.MethodPatch, "/api/v1/sessions/"+id+"/fields", map[string]string{"field": "loanAmount", "value": "-5"})

	code, resp := s.request(t, http.MethodPost, "/api/v1/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, code)
	state := resp["state"].(map[string]interface{})
	assert.Equal(t, "failed", state["status"])
	assert.Equal(t, "Loan amount must be greater than 0.", state["message"])

	_, _ = s.request(t, http.MethodPatch, "/api/v1/sessions/"+id+"/fields", map[string]string{"field": "loanAmount", "value": "15000"})
	code, resp = s.request(t, http.MethodPost, "/api/v1/sessions/"+id+"/submit?wait=true", nil)
	require.Equal(t, http.StatusOK, code)
	state = resp["state"].(map[string]interface{})
	assert.Equal(t, "succeeded", state["status"])
	assert.Nil(t, state["message"])
	assert.Equal(t, 1, s.scoring.count())
}

func TestE2E_ConfiguredCrossFieldRule(t *testing.T) {
	s := newStack(t, config.BoundsConfig{})

	form := baseForm()
	form["age"] = "20"
	form["employmentLength"] = "25"
	state := s.submitForm(t, form)

	assert.Equal(t, "failed", state["status"])
	assert.Equal(t, "Employment length cannot be greater than age.", state["message"])
	assert.Equal(t, 0, s.scoring.count())
}

func TestE2E_ReadinessFollowsScoringService(t *testing.T) {
	s := newStack(t, config.BoundsConfig{})

	code, body := s.request(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
}
