package importer

import (
	"fmt"
)

// MaxValueLength is the widest stored record value.
const MaxValueLength = 30

// Rules are the value-domain checks of a mode. MaxMarks is only enforced in marks mode, when > 0.
type Rules struct {
	Mode     Mode
	MaxMarks float64
}

// CheckValue returns the problem with a non-empty value, or "" when the value is acceptable.
func (rules Rules) CheckValue(v Value) string {
	switch {
	case v.Empty():
		return ""
	case v.Num == nil:
		return fmt.Sprintf("value %q is not a number", v.Raw)
	case *v.Num < 0:
		return fmt.Sprintf("value %s is negative", FormatNumber(*v.Num))
	case rules.Mode == ModeMarks && rules.MaxMarks > 0 && *v.Num > rules.MaxMarks:
		return fmt.Sprintf("value %s exceeds the maximum of %s", FormatNumber(*v.Num), FormatNumber(rules.MaxMarks))
	case len(v.String()) > MaxValueLength:
		return fmt.Sprintf("value %s is longer than %d characters", v.Raw, MaxValueLength)
	}
	return ""
}

// Validate checks every extracted row on its own and returns the warnings found.
// It fails with a *ValidationError carrying all errors and warnings if any row is invalid.
func Validate(ex Extraction, rules Rules) ([]string, error) {
	warnings := make([]string, 0)
	var errs []string

	for _, row := range ex.Skipped {
		warnings = append(warnings, fmt.Sprintf("row %d: roll number is missing, row skipped", row))
	}
	for _, row := range ex.Rows {
		if row.Value.Empty() {
			warnings = append(warnings, fmt.Sprintf("row %d (roll %s): value is missing", row.Row, row.RollNumber))
			continue
		}
		if problem := rules.CheckValue(row.Value); problem != "" {
			errs = append(errs, fmt.Sprintf("row %d (roll %s): %s", row.Row, row.RollNumber, problem))
		}
	}

	if len(errs) > 0 {
		return warnings, &ValidationError{Errors: errs, Warnings: warnings}
	}
	return warnings, nil
}
