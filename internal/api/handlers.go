package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "loan-intake/internal/common/errors"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/intake/controller"
	"loan-intake/internal/models"
)

const readinessTimeout = 3 * time.Second

// ReadinessChecker reports whether the scoring service can take requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// Handlers contains all HTTP handlers for the form-session API.
type Handlers struct {
	store     *SessionStore
	validator controller.Validator
	readiness ReadinessChecker
	logger    logger.Logger
}

func NewHandlers(store *SessionStore, v controller.Validator, readiness ReadinessChecker, log logger.Logger) *Handlers {
	return &Handlers{
		store:     store,
		validator: v,
		readiness: readiness,
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type sessionResponse struct {
	ID        string           `json:"id"`
	State     models.StateView `json:"state"`
	Input     models.RawInput  `json:"input"`
	CanSubmit bool             `json:"canSubmit"`
}

type fieldUpdate struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Field   string            `json:"field,omitempty"`
	State   *models.StateView `json:"state,omitempty"`
}

func newSessionResponse(sess *Session) sessionResponse {
	state := sess.Controller.State()
	return sessionResponse{
		ID:        sess.ID,
		State:     models.ViewOf(state),
		Input:     sess.Input(),
		CanSubmit: !models.IsBusy(state),
	}
}

func respondError(c *gin.Context, status int, err error) {
	stdErr := apperrors.Normalize(err)
	c.JSON(status, errorResponse{
		Code:    string(stdErr.Code),
		Message: apperrors.UserMessage(stdErr),
		Field:   stdErr.Field,
	})
}

// Live handler for liveness probes.
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 503 while the scoring service is unreachable.
func (h *Handlers) Ready(c *gin.Context) {
	if h.readiness == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := h.readiness.Ready(ctx); err != nil {
		h.logger.Warn("scoring service not ready", map[string]interface{}{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  apperrors.UserMessage(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// CreateSession opens a new form.
func (h *Handlers) CreateSession(c *gin.Context) {
	sess, err := h.store.Create()
	if err != nil {
		h.logger.Error("failed to create session", map[string]interface{}{"error": err})
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(sess))
}

func (h *Handlers) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

func (h *Handlers) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if !h.store.Delete(id) {
		respondError(c, http.StatusNotFound, apperrors.NewSessionNotFoundError(id))
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateField is the input-change callback: one field, one value.
func (h *Handlers) UpdateField(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req fieldUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, apperrors.NewInvalidRequestError("", err.Error()))
		return
	}
	if err := sess.SetField(req.Field, req.Value); err != nil {
		respondError(c, http.StatusBadRequest, apperrors.NewInvalidRequestError(req.Field, err.Error()))
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess))
}

// Submit validates the session's input and starts scoring. With wait=true
// the response carries the terminal state; otherwise it is sent as soon as
// validation has finished.
func (h *Handlers) Submit(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	state, done, err := sess.Controller.SubmitAsync(c.Request.Context(), sess.Input())
	if err != nil {
		if errors.Is(err, controller.ErrSubmitDisabled) {
			view := models.ViewOf(state)
			c.JSON(http.StatusConflict, errorResponse{
				Code:    string(apperrors.ErrCodeSubmitDisabled),
				Message: apperrors.UserMessage(err),
				State:   &view,
			})
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	if c.Query("wait") != "true" {
		c.JSON(http.StatusAccepted, gin.H{"id": sess.ID, "state": models.ViewOf(state)})
		return
	}

	select {
	case final := <-done:
		c.JSON(http.StatusOK, gin.H{"id": sess.ID, "state": models.ViewOf(final)})
	case <-c.Request.Context().Done():
		// client went away; the submission completes in the background
	}
}

// ValidateApplication previews validation without a session or network call.
func (h *Handlers) ValidateApplication(c *gin.Context) {
	raw := models.NewRawInput()
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, http.StatusBadRequest, apperrors.NewInvalidRequestError("", err.Error()))
		return
	}

	app, err := h.validator.Validate(raw)
	if err != nil {
		respondError(c, http.StatusUnprocessableEntity, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "application": app})
}

func (h *Handlers) session(c *gin.Context) (*Session, bool) {
	id := c.Param("id")
	sess, ok := h.store.Get(id)
	if !ok {
		respondError(c, http.StatusNotFound, apperrors.NewSessionNotFoundError(id))
		return nil, false
	}
	return sess, true
}
