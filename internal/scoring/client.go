// Package scoring is the HTTP client of the remote scoring service.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	apperrors "loan-intake/internal/common/errors"
	apphttp "loan-intake/internal/common/http"
	"loan-intake/internal/common/logger"
	"loan-intake/internal/common/metrics"
	"loan-intake/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultPath      = "/score"
	DefaultReadyPath = "/ready"
	DefaultTimeout   = 10 * time.Second

	maxResponseBytes = 1 << 20
	serviceName      = "scoring"
)

// Transport failure descriptions shown to the user.
const (
	MsgTimeout            = "The scoring service did not respond in time."
	MsgUnexpectedResponse = "The scoring service returned an unexpected response."
)

type Config struct {
	BaseURL   string
	Path      string
	ReadyPath string
	Timeout   time.Duration
}

// Recorder receives scoring call durations. *observability.Observability
// satisfies it.
type Recorder interface {
	RecordScoringDuration(ctx context.Context, duration time.Duration, status string)
}

type Client struct {
	http     *apphttp.Client
	scoreURL string
	readyURL string
	logger   logger.Logger
	recorder Recorder
}

// NewClient builds a client; rec may be nil.
func NewClient(cfg Config, log logger.Logger, rec Recorder) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return NewClientWithHTTP(cfg, apphttp.NewClient(cfg.Timeout), log, rec)
}

// NewClientWithHTTP builds a client over an existing HTTP client.
func NewClientWithHTTP(cfg Config, httpClient *apphttp.Client, log logger.Logger, rec Recorder) *Client {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.ReadyPath == "" {
		cfg.ReadyPath = DefaultReadyPath
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:     httpClient,
		scoreURL: base + cfg.Path,
		readyURL: base + cfg.ReadyPath,
		logger:   log.WithFields(map[string]interface{}{"component": "scoring-client"}),
		recorder: rec,
	}
}

// URL returns the scoring endpoint.
func (c *Client) URL() string {
	return c.scoreURL
}

// Score posts payload and returns the decoded result. Errors are always
// *errors.StandardError with code PAYLOAD_INVALID, TRANSPORT_ERROR or
// REMOTE_ERROR.
func (c *Client) Score(ctx context.Context, payload Payload) (*models.ScoringResult, error) {
	if result := payloadValidator.Validate(payload); !result.Valid {
		return nil, apperrors.NewPayloadInvalidError(result.Summary())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewPayloadInvalidError(err.Error())
	}

	requestID := uuid.New().String()
	log := c.logger.WithFields(map[string]interface{}{"requestId": requestID})
	log.Debug("posting application for scoring", map[string]interface{}{"url": c.scoreURL})

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.scoreURL, body, map[string]string{"X-Request-ID": requestID})
	if err != nil {
		c.observe(ctx, start, "error")
		log.Warn("scoring request failed", map[string]interface{}{"error": err})
		if isTimeout(err) {
			return nil, apperrors.NewTransportError(MsgTimeout, err)
		}
		return nil, apperrors.NewTransportError("", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.observe(ctx, start, strconv.Itoa(resp.StatusCode))
	if err != nil {
		log.Warn("failed to read scoring response", map[string]interface{}{"error": err, "status": resp.StatusCode})
		if isTimeout(err) {
			return nil, apperrors.NewTransportError(MsgTimeout, err)
		}
		return nil, apperrors.NewTransportError("", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := extractDetail(respBody)
		log.Warn("scoring service rejected application", map[string]interface{}{
			"status": resp.StatusCode,
			"detail": detail,
		})
		if detail != "" {
			return nil, apperrors.NewRemoteError(resp.StatusCode, detail)
		}
		return nil, apperrors.NewTransportStatusError(resp.StatusCode)
	}

	if check := responseValidator.ValidateBytes(respBody); !check.Valid {
		log.Warn("unexpected scoring response", map[string]interface{}{"errors": check.Summary()})
		return nil, apperrors.NewTransportError(MsgUnexpectedResponse, errors.New(check.Summary()))
	}

	var result models.ScoringResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apperrors.NewTransportError(MsgUnexpectedResponse, err)
	}

	log.Debug("scoring completed", map[string]interface{}{
		"approved":   result.Approved,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return &result, nil
}

// Ready probes the service's readiness route.
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.http.Get(ctx, c.readyURL)
	if err != nil {
		if isTimeout(err) {
			return apperrors.NewTimeoutError(serviceName, err)
		}
		return apperrors.NewExternalServiceError(serviceName, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewExternalServiceError(serviceName, fmt.Errorf("readiness status %d", resp.StatusCode))
	}
	return nil
}

func (c *Client) observe(ctx context.Context, start time.Time, status string) {
	d := time.Since(start)
	metrics.ScoringRequestDuration.WithLabelValues(status).Observe(d.Seconds())
	if c.recorder != nil {
		c.recorder.RecordScoringDuration(ctx, d, status)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// extractDetail reads the "detail" member of an error body. Validation
// failures arrive as a list of objects with a "msg" member; those are joined.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(envelope.Detail, &items); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, item := range items {
		var entry struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(item, &entry); err == nil && strings.TrimSpace(entry.Msg) != "" {
			msgs = append(msgs, strings.TrimSpace(entry.Msg))
			continue
		}
		if err := json.Unmarshal(item, &text); err == nil && strings.TrimSpace(text) != "" {
			msgs = append(msgs, strings.TrimSpace(text))
		}
	}
	return strings.Join(msgs, "; ")
}
