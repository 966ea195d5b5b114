package recurrence

import (
	"errors"
	"fmt"
)

// Error types
type ErrorType string

const (
	// ErrParse covers malformed rule text, phrases that do not recur, and
	// canonical lines the expansion engine rejects.
	ErrParse ErrorType = "parse"
	// ErrGranularity means the rule repeats more often than daily while the caller forbade it.
	ErrGranularity ErrorType = "granularity"
	// ErrConsistency means the first occurrence precedes the requested start.
	// It signals a defect, not bad input, and must not be ignored.
	ErrConsistency ErrorType = "consistency"
)

// Error represents a recurrence-related error
type Error struct {
	Type    ErrorType
	Message string
	Input   string // offending input, echoed back to the caller
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Input != "" {
		msg += fmt.Sprintf(" (input %q)", e.Input)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func parseError(message, input string, err error) *Error {
	return &Error{Type: ErrParse, Message: message, Input: input, Err: err}
}

// IsParseError reports whether err carries an ErrParse *Error.
func IsParseError(err error) bool { return hasType(err, ErrParse) }

// IsGranularityError reports whether err carries an ErrGranularity *Error.
func IsGranularityError(err error) bool { return hasType(err, ErrGranularity) }

// IsConsistencyError reports whether err carries an ErrConsistency *Error.
func IsConsistencyError(err error) bool { return hasType(err, ErrConsistency) }

func hasType(err error, t ErrorType) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.Type == t
}
