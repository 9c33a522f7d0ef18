package camunda

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loan-intake/internal/common/errors"
)

func TestBackoff(t *testing.T) {
	cfg := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, backoff(cfg, 0))
	assert.Equal(t, 2*time.Second, backoff(cfg, 1))
	assert.Equal(t, 4*time.Second, backoff(cfg, 2))
	assert.Equal(t, 5*time.Second, backoff(cfg, 3))
	assert.Equal(t, 5*time.Second, backoff(cfg, 62))
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"read: connection reset by peer", true},
		{"rpc error: code = PermissionDenied", false},
		{"invalid gateway address", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.err)), tt.err)
	}
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(errors.New("context deadline exceeded"), "connect", 2)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeTimeout, stdErr.Code)
	assert.Contains(t, stdErr.Details, "after 2 attempts")

	err = mapZeebeError(errors.New("connection refused"), "connect", 0)
	stdErr, ok = apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeExternalService, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
