package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Raw input field names, as used by the input-change callback and in
// validation errors.
const (
	FieldAge              = "age"
	FieldIncome           = "income"
	FieldHomeOwnership    = "homeOwnership"
	FieldEmploymentLength = "employmentLength"
	FieldLoanAmount       = "loanAmount"
	FieldDefaultOnFile    = "defaultOnFile"
	FieldLoanIntent       = "loanIntent"
)

// Fields lists every RawInput field in form order.
var Fields = []string{
	FieldAge,
	FieldIncome,
	FieldHomeOwnership,
	FieldEmploymentLength,
	FieldLoanAmount,
	FieldDefaultOnFile,
	FieldLoanIntent,
}

type HomeOwnership string

const (
	HomeOwnershipRent     HomeOwnership = "rent"
	HomeOwnershipMortgage HomeOwnership = "mortgage"
	HomeOwnershipOwn      HomeOwnership = "own"
	HomeOwnershipOther    HomeOwnership = "other"
)

var HomeOwnershipValues = []HomeOwnership{
	HomeOwnershipRent,
	HomeOwnershipMortgage,
	HomeOwnershipOwn,
	HomeOwnershipOther,
}

// ParseHomeOwnership resolves a selection, ignoring case and surrounding space.
func ParseHomeOwnership(s string) (HomeOwnership, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, v := range HomeOwnershipValues {
		if string(v) == key {
			return v, true
		}
	}
	return "", false
}

type LoanIntent string

const (
	LoanIntentDebtConsolidation LoanIntent = "debt_consolidation"
	LoanIntentPersonal          LoanIntent = "personal"
	LoanIntentEducation         LoanIntent = "education"
	LoanIntentMedical           LoanIntent = "medical"
	LoanIntentVenture           LoanIntent = "venture"
	LoanIntentHomeImprovement   LoanIntent = "home_improvement"
)

var LoanIntentValues = []LoanIntent{
	LoanIntentDebtConsolidation,
	LoanIntentPersonal,
	LoanIntentEducation,
	LoanIntentMedical,
	LoanIntentVenture,
	LoanIntentHomeImprovement,
}

// ParseLoanIntent resolves a selection, ignoring case and surrounding space.
func ParseLoanIntent(s string) (LoanIntent, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, v := range LoanIntentValues {
		if string(v) == key {
			return v, true
		}
	}
	return "", false
}

// Yes/no selections for defaultOnFile.
const (
	DefaultOnFileYes = "yes"
	DefaultOnFileNo  = "no"
)

// ParseDefaultOnFile resolves the yes/no selection to a boolean.
func ParseDefaultOnFile(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case DefaultOnFileYes:
		return true, true
	case DefaultOnFileNo:
		return false, true
	}
	return false, false
}

// RawInput is the form as entered: every field is free text or a selection.
type RawInput struct {
	Age              string `json:"age"`
	Income           string `json:"income"`
	HomeOwnership    string `json:"homeOwnership"`
	EmploymentLength string `json:"employmentLength"`
	LoanAmount       string `json:"loanAmount"`
	DefaultOnFile    string `json:"defaultOnFile"`
	LoanIntent       string `json:"loanIntent"`
}

// NewRawInput returns a blank form with the select defaults pre-filled.
func NewRawInput() RawInput {
	return RawInput{
		HomeOwnership: string(HomeOwnershipRent),
		DefaultOnFile: DefaultOnFileNo,
	}
}

// Set updates one field by name.
func (r *RawInput) Set(field, value string) error {
	switch field {
	case FieldAge:
		r.Age = value
	case FieldIncome:
		r.Income = value
	case FieldHomeOwnership:
		r.HomeOwnership = value
	case FieldEmploymentLength:
		r.EmploymentLength = value
	case FieldLoanAmount:
		r.LoanAmount = value
	case FieldDefaultOnFile:
		r.DefaultOnFile = value
	case FieldLoanIntent:
		r.LoanIntent = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// Get returns one field by name.
func (r RawInput) Get(field string) (string, bool) {
	switch field {
	case FieldAge:
		return r.Age, true
	case FieldIncome:
		return r.Income, true
	case FieldHomeOwnership:
		return r.HomeOwnership, true
	case FieldEmploymentLength:
		return r.EmploymentLength, true
	case FieldLoanAmount:
		return r.LoanAmount, true
	case FieldDefaultOnFile:
		return r.DefaultOnFile, true
	case FieldLoanIntent:
		return r.LoanIntent, true
	}
	return "", false
}

// UnmarshalJSON accepts strings, numbers, booleans and null for every field,
// so that workflow variables holding typed values decode into the raw form.
// Numbers keep their literal text; booleans become "yes"/"no".
func (r *RawInput) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out RawInput
	for name, raw := range fields {
		if _, known := out.Get(name); !known {
			continue
		}
		value, err := rawFieldText(raw)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		_ = out.Set(name, value)
	}

	*r = out
	return nil
}

func rawFieldText(raw json.RawMessage) (string, error) {
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return DefaultOnFileYes, nil
		}
		return DefaultOnFileNo, nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(raw))
	}
}

// NormalizedApplication is a fully validated applicant record.
type NormalizedApplication struct {
	Age              float64       `json:"age"`
	Income           float64       `json:"income"`
	HomeOwnership    HomeOwnership `json:"homeOwnership"`
	EmploymentLength float64       `json:"employmentLength"`
	LoanAmount       float64       `json:"loanAmount"`
	DefaultOnFile    bool          `json:"defaultOnFile"`
	LoanIntent       LoanIntent    `json:"loanIntent"`
}

// ScoringResult is the scoring service's verdict. Fields holds the full
// response object; it is passed to the presentation layer unmodified.
type ScoringResult struct {
	Approved bool
	Fields   map[string]interface{}
}

// MarshalJSON re-emits the original response object.
func (r ScoringResult) MarshalJSON() ([]byte, error) {
	if r.Fields == nil {
		return json.Marshal(map[string]interface{}{"approved": r.Approved})
	}
	return json.Marshal(r.Fields)
}

// UnmarshalJSON reads a response object, keeping every field.
func (r *ScoringResult) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	approved, ok := fields["approved"].(bool)
	if !ok {
		return fmt.Errorf("approved must be a boolean")
	}

	r.Approved = approved
	r.Fields = fields
	return nil
}
