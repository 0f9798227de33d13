package fluent

// Rule-set selector constants.
const (
	// DefaultRuleSet names the implicit set every untagged rule belongs to.
	// Selecting it alongside named sets runs untagged rules too.
	DefaultRuleSet = "default"

	// RuleSetAll selects every rule regardless of tagging.
	RuleSetAll = "*"
)

// CascadeMode controls whether a failing component stops the remaining
// components of the same rule.
type CascadeMode int

const (
	// Continue runs every component regardless of earlier failures.
	Continue CascadeMode = iota

	// Stop halts the rule's remaining components at the first failure.
	// Dependent rules are unaffected by within-rule cascade; they are
	// gated only on whether the rule produced any failure at all.
	Stop
)

func (m CascadeMode) String() string {
	switch m {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	default:
		return "cascade(?)"
	}
}

// ConditionScope states which components a rule-level condition gates.
type ConditionScope int

const (
	// ApplyToAllComponents skips the entire component chain when the rule
	// condition is false.
	ApplyToAllComponents ConditionScope = iota

	// ApplyToFirstComponent gates only component #0; later components in
	// the chain still run (subject to their own conditions). This lets a
	// chain share one guard without re-guarding every chained validator.
	ApplyToFirstComponent
)

func (s ConditionScope) String() string {
	switch s {
	case ApplyToAllComponents:
		return "all-components"
	case ApplyToFirstComponent:
		return "first-component"
	default:
		return "scope(?)"
	}
}
