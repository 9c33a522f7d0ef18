// Package errors provides the error taxonomy of the intake workflow and its
// resolution to a single user-facing message.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation errors never reach the network.
const (
	ErrCodeIncomplete  ErrorCode = "INCOMPLETE"
	ErrCodeOutOfRange  ErrorCode = "OUT_OF_RANGE"
	ErrCodeInvalidEnum ErrorCode = "INVALID_ENUM"
)

// Submission errors.
const (
	ErrCodeTransport      ErrorCode = "TRANSPORT_ERROR"
	ErrCodeRemote         ErrorCode = "REMOTE_ERROR"
	ErrCodePayloadInvalid ErrorCode = "PAYLOAD_INVALID"
	ErrCodeSubmitDisabled ErrorCode = "SUBMIT_DISABLED"
)

// API errors.
const (
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
)

// Infrastructure errors.
const (
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// User-facing messages shared by several error kinds.
const (
	MsgIncomplete     = "Please fill all numeric fields with valid numbers."
	MsgGeneric        = "Something went wrong."
	MsgSubmitDisabled = "A submission is already in progress."
)

// StandardError represents a structured application error. Message is the
// text shown to the user; an empty Message resolves to MsgGeneric.
type StandardError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Retryable  bool      `json:"retryable"`
}

func (e *StandardError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job error variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewIncompleteError reports a missing or non-numeric numeric field.
func NewIncompleteError(field string) *StandardError {
	return &StandardError{
		Code:    ErrCodeIncomplete,
		Message: MsgIncomplete,
		Field:   field,
		Details: fmt.Sprintf("field %s is empty or not a number", field),
	}
}

// NewOutOfRangeError reports a numeric field that violates a sign or bound constraint.
func NewOutOfRangeError(field, message string) *StandardError {
	return &StandardError{
		Code:    ErrCodeOutOfRange,
		Message: message,
		Field:   field,
	}
}

// NewInvalidEnumError reports an enum field holding an unrecognized value.
func NewInvalidEnumError(field, label, value string, allowed []string) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidEnum,
		Message: fmt.Sprintf("%s must be one of: %s.", label, strings.Join(allowed, ", ")),
		Field:   field,
		Details: fmt.Sprintf("got %q", value),
	}
}

// NewTransportError reports a failed exchange with no usable remote detail.
// description may be empty, in which case the user sees MsgGeneric.
func NewTransportError(description string, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   description,
		Details:   details,
		Retryable: true,
	}
}

// NewTransportStatusError reports a non-success status without a usable detail.
func NewTransportStatusError(statusCode int) *StandardError {
	err := NewTransportError(
		fmt.Sprintf("The scoring service responded with status %d.", statusCode),
		fmt.Errorf("unexpected status %d", statusCode),
	)
	err.StatusCode = statusCode
	return err
}

// NewRemoteError reports a non-success response carrying a structured detail message.
func NewRemoteError(statusCode int, detail string) *StandardError {
	return &StandardError{
		Code:       ErrCodeRemote,
		Message:    detail,
		Details:    fmt.Sprintf("status %d", statusCode),
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewPayloadInvalidError reports an outbound payload that breaks the wire contract.
func NewPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:    ErrCodePayloadInvalid,
		Details: details,
	}
}

// NewSubmitDisabledError reports a submit attempt while another one is in flight.
func NewSubmitDisabledError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmitDisabled,
		Message:   MsgSubmitDisabled,
		Retryable: true,
	}
}

// NewSessionNotFoundError reports an unknown or expired form session.
func NewSessionNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:    ErrCodeSessionNotFound,
		Message: "Session not found or expired.",
		Details: fmt.Sprintf("session %s", id),
	}
}

// NewInvalidRequestError reports a request body that could not be bound.
func NewInvalidRequestError(field, details string) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidRequest,
		Message: "Invalid request.",
		Field:   field,
		Details: details,
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// The BPMN message is the user-facing message.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}
	if stdErr.Field != "" {
		vars["errorField"] = stdErr.Field
	}
	if stdErr.StatusCode != 0 {
		vars["statusCode"] = stdErr.StatusCode
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        UserMessage(stdErr),
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err to a *StandardError when one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize always returns a StandardError; unknown errors become INTERNAL_ERROR
// with an empty user message.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:    ErrCodeInternal,
		Details: err.Error(),
	}
}

// CodeOf returns the error code of err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code
	}
	return ""
}

// UserMessage resolves any error to the single string shown to the user:
// the structured message when present, otherwise MsgGeneric.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if stdErr, ok := AsStandardError(err); ok {
		if msg := strings.TrimSpace(stdErr.Message); msg != "" {
			return msg
		}
	}
	return MsgGeneric
}

// IsValidationError reports whether err was produced by input validation.
func IsValidationError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeIncomplete, ErrCodeOutOfRange, ErrCodeInvalidEnum:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeIncomplete, ErrCodeOutOfRange, ErrCodeInvalidEnum:
		return "VALIDATION"
	case ErrCodeTransport, ErrCodeTimeout, ErrCodeExternalService:
		return "TRANSPORT"
	case ErrCodeRemote:
		return "REMOTE"
	case ErrCodePayloadInvalid, ErrCodeSubmitDisabled:
		return "SUBMISSION"
	case ErrCodeSessionNotFound, ErrCodeInvalidRequest:
		return "REQUEST"
	default:
		return "OTHER"
	}
}
