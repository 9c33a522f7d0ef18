package validator

import "loan-intake/internal/common/config"

// BoundsFromConfig converts validation.bounds. Unset ceilings fall back to
// DefaultBounds; an explicit zero leaves the field without a ceiling.
func BoundsFromConfig(c config.BoundsConfig) Bounds {
	b := DefaultBounds()
	if c.AgeMax != nil {
		b.AgeMax = *c.AgeMax
	}
	if c.IncomeMax != nil {
		b.IncomeMax = *c.IncomeMax
	}
	if c.EmploymentLengthMax != nil {
		b.EmploymentLengthMax = *c.EmploymentLengthMax
	}
	if c.LoanAmountMax != nil {
		b.LoanAmountMax = *c.LoanAmountMax
	}
	if c.EmploymentWithinAge != nil {
		b.EmploymentWithinAge = *c.EmploymentWithinAge
	}
	return b
}
