package fluent

import (
	"sync"

	"github.com/google/uuid"
)

// stateBag holds the ambient key/value state of one run. Conditions and
// predicates may call Set from parallel branches when the host uses
// RunConcurrent or element-level concurrency, so access is mutex-guarded.
type stateBag struct {
	mu sync.RWMutex
	m  map[string]any
}

func newStateBag() *stateBag {
	return &stateBag{m: make(map[string]any)}
}

func (b *stateBag) set(key string, value any) {
	b.mu.Lock()
	b.m[key] = value
	b.mu.Unlock()
}

func (b *stateBag) get(key string) (any, bool) {
	b.mu.RLock()
	value, ok := b.m[key]
	b.mu.RUnlock()
	return value, ok
}

///////////////////////////////////////////////////////////////////////////////
// ValidationContext
///////////////////////////////////////////////////////////////////////////////

// ValidationContext carries the state of a single validation run: the root
// value under validation, the accumulated failure collection, ambient
// key/value state shared between conditions and components, and the active
// rule-set selector.
//
// A context is created once per top-level validate call and threaded through
// every rule and component invocation in that call. It is not safe for use
// across concurrent runs; RunConcurrent forks a private context per branch
// and merges the failure buffers back in declaration order.
type ValidationContext struct {
	// RunID uniquely identifies this validation run. It is attached to
	// trace records and exposed to failure hooks for correlation.
	RunID uuid.UUID

	// Root is the value under validation. Member accessors receive it
	// unmodified; no rule or component may mutate it.
	Root any

	ruleSets []string
	failures Failures
	state    *stateBag
}

type ContextOption func(*ValidationContext)

// WithRuleSets selects the named rule sets for this run. Rules not tagged
// for any selected set are skipped entirely, including their dependents.
func WithRuleSets(names ...string) ContextOption {
	return func(vctx *ValidationContext) {
		vctx.ruleSets = append(vctx.ruleSets, names...)
	}
}

// WithState seeds an ambient state entry before the run starts.
func WithState(key string, value any) ContextOption {
	return func(vctx *ValidationContext) {
		vctx.state.set(key, value)
	}
}

func NewValidationContext(root any, opts ...ContextOption) *ValidationContext {
	vctx := &ValidationContext{
		RunID: uuid.New(),
		Root:  root,
		state: newStateBag(),
	}

	for _, opt := range opts {
		opt(vctx)
	}

	return vctx
}

// AddFailure appends a failure to the run's collection. The collection is
// append-only for the duration of the run.
func (vctx *ValidationContext) AddFailure(f ValidationFailure) {
	vctx.failures = append(vctx.failures, f)
}

// Failures returns the failures accumulated so far, in production order.
func (vctx *ValidationContext) Failures() Failures {
	return vctx.failures
}

// Set stores an ambient state entry, visible to every condition, predicate,
// and factory invoked during this run. Safe to call from parallel branches.
func (vctx *ValidationContext) Set(key string, value any) {
	vctx.state.set(key, value)
}

// Get retrieves an ambient state entry.
func (vctx *ValidationContext) Get(key string) (any, bool) {
	return vctx.state.get(key)
}

// SelectedRuleSets returns the rule sets requested for this run. An empty
// selection means the default (unnamed) set.
func (vctx *ValidationContext) SelectedRuleSets() []string {
	return vctx.ruleSets
}

// selects reports whether a rule carrying the given tags should run under
// this context's rule-set selection:
//
//   - empty selection runs only untagged rules
//   - RuleSetAll runs every rule
//   - DefaultRuleSet includes untagged rules alongside any named selection
//   - otherwise a rule runs iff its tag set intersects the selection
func (vctx *ValidationContext) selects(tags []string) bool {
	if len(vctx.ruleSets) == 0 {
		return len(tags) == 0
	}

	for _, want := range vctx.ruleSets {
		if want == RuleSetAll {
			return true
		}
		if want == DefaultRuleSet && len(tags) == 0 {
			return true
		}
		for _, tag := range tags {
			if tag == want {
				return true
			}
		}
	}

	return false
}

// fork creates a private branch of this context for concurrent execution.
// The branch shares the root, the guarded ambient state, and the rule-set
// selection, but writes failures into its own buffer so the parent can
// merge buffers in declaration order.
func (vctx *ValidationContext) fork() *ValidationContext {
	return &ValidationContext{
		RunID:    vctx.RunID,
		Root:     vctx.Root,
		ruleSets: vctx.ruleSets,
		state:    vctx.state,
	}
}
