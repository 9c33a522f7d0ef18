// internal/workers/application/score-loan-application/models.go
package scoreloanapplication

import "loan-intake/internal/models"

type Input struct {
	ApplicationID   string          `json:"applicationId,omitempty"`
	ApplicationData models.RawInput `json:"applicationData"`
}

type Output struct {
	Approved         bool                 `json:"approved"`
	ScoringResult    models.ScoringResult `json:"scoringResult"`
	SubmissionStatus models.Status        `json:"submissionStatus"`
}
