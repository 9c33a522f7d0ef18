// Package validator turns raw form input into a NormalizedApplication.
//
// Validation is pure: the same input always yields the same result, nothing
// is logged and the input is never modified. Rules are checked in a fixed
// order and the first violation is returned:
//
//  1. age, income, employmentLength and loanAmount are present and numeric
//  2. numeric values respect their sign and upper bounds
//  3. employmentLength is not greater than age, unless
//     Bounds.EmploymentWithinAge is off
//  4. homeOwnership, loanIntent and defaultOnFile are recognized values
//
// Step 3 is the only rule that looks at more than one field; the scoring
// service applies the same rule.
package validator

import (
	"math"
	"strconv"
	"strings"

	apperrors "loan-intake/internal/common/errors"
	"loan-intake/internal/models"
)

// Bounds holds the upper limits for numeric fields. A zero limit means the
// field has no ceiling.
type Bounds struct {
	AgeMax              float64
	IncomeMax           float64
	EmploymentLengthMax float64
	LoanAmountMax       float64
	// EmploymentWithinAge rejects an employment length greater than the age.
	EmploymentWithinAge bool
}

// DefaultBounds matches the limits enforced by the scoring service.
func DefaultBounds() Bounds {
	return Bounds{
		AgeMax:              120,
		IncomeMax:           100_000_000,
		EmploymentLengthMax: 110,
		LoanAmountMax:       1_000_000_000,
		EmploymentWithinAge: true,
	}
}

type Validator struct {
	bounds Bounds
}

func New(bounds Bounds) *Validator {
	return &Validator{bounds: bounds}
}

var defaultValidator = New(DefaultBounds())

// Validate checks raw with DefaultBounds.
func Validate(raw models.RawInput) (*models.NormalizedApplication, error) {
	return defaultValidator.Validate(raw)
}

// Bounds returns the limits this validator enforces.
func (v *Validator) Bounds() Bounds {
	return v.bounds
}

// Validate returns the normalized application or a *errors.StandardError with
// code INCOMPLETE, OUT_OF_RANGE or INVALID_ENUM.
func (v *Validator) Validate(raw models.RawInput) (*models.NormalizedApplication, error) {
	age, err := parseNumber(models.FieldAge, raw.Age)
	if err != nil {
		return nil, err
	}
	income, err := parseNumber(models.FieldIncome, raw.Income)
	if err != nil {
		return nil, err
	}
	employmentLength, err := parseNumber(models.FieldEmploymentLength, raw.EmploymentLength)
	if err != nil {
		return nil, err
	}
	loanAmount, err := parseNumber(models.FieldLoanAmount, raw.LoanAmount)
	if err != nil {
		return nil, err
	}

	checks := []rangeCheck{
		{field: models.FieldAge, label: "Age", value: age, max: v.bounds.AgeMax, strict: true},
		{field: models.FieldIncome, label: "Income", value: income, max: v.bounds.IncomeMax},
		{field: models.FieldEmploymentLength, label: "Employment length", value: employmentLength, max: v.bounds.EmploymentLengthMax},
		{field: models.FieldLoanAmount, label: "Loan amount", value: loanAmount, max: v.bounds.LoanAmountMax, strict: true},
	}
	for _, c := range checks {
		if err := c.check(); err != nil {
			return nil, err
		}
	}
	if v.bounds.EmploymentWithinAge && employmentLength > age {
		return nil, apperrors.NewOutOfRangeError(models.FieldEmploymentLength,
			"Employment length cannot be greater than age.")
	}

	homeOwnership, ok := models.ParseHomeOwnership(raw.HomeOwnership)
	if !ok {
		return nil, apperrors.NewInvalidEnumError(models.FieldHomeOwnership, "Home ownership",
			raw.HomeOwnership, homeOwnershipNames())
	}
	loanIntent, ok := models.ParseLoanIntent(raw.LoanIntent)
	if !ok {
		return nil, apperrors.NewInvalidEnumError(models.FieldLoanIntent, "Loan intent",
			raw.LoanIntent, loanIntentNames())
	}
	defaultOnFile, ok := models.ParseDefaultOnFile(raw.DefaultOnFile)
	if !ok {
		return nil, apperrors.NewInvalidEnumError(models.FieldDefaultOnFile, "Default on file",
			raw.DefaultOnFile, []string{models.DefaultOnFileYes, models.DefaultOnFileNo})
	}

	return &models.NormalizedApplication{
		Age:              age,
		Income:           income,
		HomeOwnership:    homeOwnership,
		EmploymentLength: employmentLength,
		LoanAmount:       loanAmount,
		DefaultOnFile:    defaultOnFile,
		LoanIntent:       loanIntent,
	}, nil
}

// parseNumber accepts a finite decimal number with optional surrounding space.
func parseNumber(field, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, apperrors.NewIncompleteError(field)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperrors.NewIncompleteError(field)
	}
	if f == 0 {
		// -0
		f = 0
	}
	return f, nil
}

type rangeCheck struct {
	field  string
	label  string
	value  float64
	max    float64
	strict bool // value must be > 0 rather than >= 0
}

func (c rangeCheck) check() error {
	if c.strict && c.value <= 0 {
		return apperrors.NewOutOfRangeError(c.field, c.label+" must be greater than 0.")
	}
	if !c.strict && c.value < 0 {
		return apperrors.NewOutOfRangeError(c.field, c.label+" must be 0 or greater.")
	}
	if c.max > 0 && c.value > c.max {
		return apperrors.NewOutOfRangeError(c.field,
			c.label+" must be at most "+strconv.FormatFloat(c.max, 'f', -1, 64)+".")
	}
	return nil
}

func homeOwnershipNames() []string {
	names := make([]string, len(models.HomeOwnershipValues))
	for i, v := range models.HomeOwnershipValues {
		names[i] = string(v)
	}
	return names
}

func loanIntentNames() []string {
	names := make([]string, len(models.LoanIntentValues))
	for i, v := range models.LoanIntentValues {
		names[i] = string(v)
	}
	return names
}
