package fluent

import (
	"fmt"
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// Severity
///////////////////////////////////////////////////////////////////////////////

// Severity classifies how serious a ValidationFailure is.
//
// Components produce SeverityError unless configured otherwise with
// WithSeverity(). Severity never affects execution flow; it is carried
// through to the failure collection for the host to interpret.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

///////////////////////////////////////////////////////////////////////////////
// ValidationFailure
///////////////////////////////////////////////////////////////////////////////

// ValidationFailure describes a single failed component evaluation.
//
// PropertyName carries the resolved display name of the rule's member, with
// an ordinal suffix (e.g. "Items[2]") when produced by a CollectionRule.
// A failure is immutable once constructed; ownership passes to the
// ValidationContext's failure collection.
type ValidationFailure struct {
	PropertyName   string
	Message        string
	AttemptedValue any
	Severity       Severity
	ErrorCode      string
	CustomState    any
}

// Failures is an ordered collection of validation failures.
//
// It implements the error interface so a non-empty collection can be
// returned directly from host code that wants a plain error.
type Failures []ValidationFailure

// Error implements the error interface.
func (fs Failures) Error() string {
	if len(fs) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		parts = append(parts, fmt.Sprintf("%s: %s", f.PropertyName, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsEmpty reports whether the collection holds no failures.
func (fs Failures) IsEmpty() bool {
	return len(fs) == 0
}

// Has reports whether any failure references the given property name.
func (fs Failures) Has(property string) bool {
	for _, f := range fs {
		if f.PropertyName == property {
			return true
		}
	}
	return false
}

// Messages returns the messages of every failure referencing property,
// in collection order.
func (fs Failures) Messages(property string) []string {
	var messages []string
	for _, f := range fs {
		if f.PropertyName == property {
			messages = append(messages, f.Message)
		}
	}
	return messages
}

// Properties returns the distinct property names in first-seen order.
func (fs Failures) Properties() []string {
	var props []string
	seen := make(map[string]bool)
	for _, f := range fs {
		if !seen[f.PropertyName] {
			props = append(props, f.PropertyName)
			seen[f.PropertyName] = true
		}
	}
	return props
}
