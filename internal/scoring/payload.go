package scoring

import (
	"loan-intake/internal/common/validation"
	"loan-intake/internal/models"
)

// Payload is the request body of the scoring endpoint.
type Payload struct {
	Age              float64 `json:"age"`
	Income           float64 `json:"income"`
	HomeOwnership    string  `json:"home_ownership"`
	EmploymentLength float64 `json:"employment_length"`
	LoanAmount       float64 `json:"loan_amount"`
	DefOnFile        int     `json:"def_on_file"`
	LoanIntent       string  `json:"loan_intent"`
}

// NewPayload maps a validated application onto the wire format. This is the
// only place the snake_case field names and the 0/1 default flag appear.
func NewPayload(app models.NormalizedApplication) Payload {
	defOnFile := 0
	if app.DefaultOnFile {
		defOnFile = 1
	}
	return Payload{
		Age:              app.Age,
		Income:           app.Income,
		HomeOwnership:    string(app.HomeOwnership),
		EmploymentLength: app.EmploymentLength,
		LoanAmount:       app.LoanAmount,
		DefOnFile:        defOnFile,
		LoanIntent:       string(app.LoanIntent),
	}
}

const payloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ScoringRequest",
  "type": "object",
  "additionalProperties": false,
  "required": ["age", "income", "home_ownership", "employment_length", "loan_amount", "def_on_file", "loan_intent"],
  "properties": {
    "age": {"type": "number", "minimum": 0},
    "income": {"type": "number", "minimum": 0},
    "home_ownership": {"enum": ["rent", "mortgage", "own", "other"]},
    "employment_length": {"type": "number", "minimum": 0},
    "loan_amount": {"type": "number", "minimum": 0},
    "def_on_file": {"enum": [0, 1]},
    "loan_intent": {"enum": ["debt_consolidation", "personal", "education", "medical", "venture", "home_improvement"]}
  }
}`

const responseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ScoringResponse",
  "type": "object",
  "required": ["approved"],
  "properties": {
    "approved": {"type": "boolean"}
  }
}`

var (
	payloadValidator  = validation.MustSchemaValidator(payloadSchema)
	responseValidator = validation.MustSchemaValidator(responseSchema)
)
