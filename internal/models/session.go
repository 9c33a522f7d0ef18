package models

// Status names a SessionState variant.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusValidating Status = "validating"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

// SessionState is the state of one form instance. Exactly one variant holds
// at a time, so "loading with an error" cannot be expressed.
type SessionState interface {
	Status() Status
	sessionState()
}

type Idle struct{}

type Validating struct{}

type Submitting struct{}

type Succeeded struct {
	Result ScoringResult
}

// Failed carries the message shown to the user and the code that produced it.
type Failed struct {
	Message string
	Code    string
}

func (Idle) Status() Status       { return StatusIdle }
func (Validating) Status() Status { return StatusValidating }
func (Submitting) Status() Status { return StatusSubmitting }
func (Succeeded) Status() Status  { return StatusSucceeded }
func (Failed) Status() Status     { return StatusFailed }

func (Idle) sessionState()       {}
func (Validating) sessionState() {}
func (Submitting) sessionState() {}
func (Succeeded) sessionState()  {}
func (Failed) sessionState()     {}

// IsBusy reports whether the submit action is disabled in this state.
func IsBusy(s SessionState) bool {
	switch s.(type) {
	case Validating, Submitting:
		return true
	}
	return false
}

// IsTerminal reports whether a submit attempt has finished.
func IsTerminal(s SessionState) bool {
	switch s.(type) {
	case Succeeded, Failed:
		return true
	}
	return false
}

// StateView is the JSON rendering of a SessionState.
type StateView struct {
	Status  Status         `json:"status"`
	Result  *ScoringResult `json:"result,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// ViewOf renders a state for the presentation layer. A nil state renders as idle.
func ViewOf(s SessionState) StateView {
	switch st := s.(type) {
	case Succeeded:
		result := st.Result
		return StateView{Status: StatusSucceeded, Result: &result}
	case Failed:
		return StateView{Status: StatusFailed, Message: st.Message, Code: st.Code}
	case nil:
		return StateView{Status: StatusIdle}
	default:
		return StateView{Status: s.Status()}
	}
}
