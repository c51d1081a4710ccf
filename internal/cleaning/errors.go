package cleaning

import (
	"errors"
	"fmt"
)

// Kind classifies a rule failure.
type Kind string

const (
	// KindStructural marks a missing column, wrong row count, or ambiguous identity.
	KindStructural Kind = "structural"
	// KindPattern marks a value that does not match the format a rule expects.
	KindPattern Kind = "pattern"
)

// RuleError is returned by every rule that cannot establish its post-condition.
type RuleError struct {
	Rule string
	Row  string
	Kind Kind
	Err  error
}

func (e *RuleError) Error() string {
	if e.Row != "" {
		return fmt.Sprintf("rule %s: %s error at row %s: %v", e.Rule, e.Kind, e.Row, e.Err)
	}
	return fmt.Sprintf("rule %s: %s error: %v", e.Rule, e.Kind, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

func structural(rule, row string, format string, args ...any) *RuleError {
	return &RuleError{Rule: rule, Row: row, Kind: KindStructural, Err: fmt.Errorf(format, args...)}
}

func pattern(rule, row string, format string, args ...any) *RuleError {
	return &RuleError{Rule: rule, Row: row, Kind: KindPattern, Err: fmt.Errorf(format, args...)}
}

// IsStructural reports whether err carries a structural RuleError.
func IsStructural(err error) bool {
	var re *RuleError
	return errors.As(err, &re) && re.Kind == KindStructural
}

// IsPattern reports whether err carries a pattern RuleError.
func IsPattern(err error) bool {
	var re *RuleError
	return errors.As(err, &re) && re.Kind == KindPattern
}

// rowLabel names a row by identity when it has one, else by position.
func rowLabel(row int, given, surname string) string {
	name := given
	if surname != "" {
		if name != "" {
			name += " "
		}
		name += surname
	}
	if name == "" {
		return fmt.Sprintf("#%d", row)
	}
	if row > 0 {
		return fmt.Sprintf("#%d (%s)", row, name)
	}
	return name
}
