package fluent

import (
	"context"
	"fmt"
	"sync/atomic"
)

///////////////////////////////////////////////////////////////////////////////
// Rule contract
///////////////////////////////////////////////////////////////////////////////

// Rule is the execution contract shared by ValidationRule and
// CollectionRule. A rule appends zero or more failures into the context and
// reports whether it passed (zero failures) so the executor can gate its
// dependent rules.
type Rule interface {
	// Validate runs the rule synchronously. The returned error is reserved
	// for configuration mismatches (async-only pieces on the sync path);
	// validation failures go into the context, not the error.
	Validate(vctx *ValidationContext) (bool, error)

	// ValidateAsync runs the rule with suspension points at async
	// conditions and predicates. Predicate faults and cancellation
	// propagate as the returned error.
	ValidateAsync(ctx context.Context, vctx *ValidationContext) (bool, error)

	// RuleSets returns the rule-set tags this rule is registered under.
	// Untagged rules belong to the default (unnamed) set.
	RuleSets() []string

	// Dependents returns the rules that run only if this rule passed.
	Dependents() []Rule
}

///////////////////////////////////////////////////////////////////////////////
// ValidationRule
///////////////////////////////////////////////////////////////////////////////

// ValidationRule is an ordered sequence of RuleComponents bound to one
// logical property of the root value.
//
// A rule is configured mutably through its builder methods and seals itself
// at first execution; configuration after seal panics. Dependent rules are
// the one exception: they may be attached at any time, since dependent-rule
// resolution happens at execution time.
type ValidationRule struct {
	member             MemberDescriptor
	components         []*RuleComponent
	cascade            CascadeMode
	ruleSets           []string
	displayName        string
	displayNameFactory func(*ValidationContext) string
	condition          Condition
	asyncCondition     AsyncCondition
	conditionScope     ConditionScope
	sharedCondition    Condition
	dependents         []Rule
	onFailure          func(*ValidationContext, Failures)
	sealed             atomic.Bool
}

// NewRule creates a rule bound to the given member. A rule with zero
// components is legal and trivially passes.
func NewRule(member MemberDescriptor) *ValidationRule {
	return &ValidationRule{member: member}
}

func (r *ValidationRule) mustMutable(op string) {
	if r.sealed.Load() {
		panic(fmt.Sprintf("fluent: rule %q: %s after seal", r.member.Name, op))
	}
}

// Add appends a component to the rule's chain. Insertion order is execution
// order.
func (r *ValidationRule) Add(c *RuleComponent) *ValidationRule {
	r.mustMutable("Add")
	r.components = append(r.components, c)
	return r
}

// Cascade sets the rule's cascade mode. The default is Continue.
func (r *ValidationRule) Cascade(mode CascadeMode) *ValidationRule {
	r.mustMutable("Cascade")
	r.cascade = mode
	return r
}

// InRuleSets tags the rule for the named rule sets.
func (r *ValidationRule) InRuleSets(names ...string) *ValidationRule {
	r.mustMutable("InRuleSets")
	r.ruleSets = append(r.ruleSets, names...)
	return r
}

// WithName sets a static display name overriding the member name.
func (r *ValidationRule) WithName(name string) *ValidationRule {
	r.mustMutable("WithName")
	r.displayName = name
	return r
}

// WithNameFactory sets a context-dependent display-name resolver. It takes
// precedence over both the static name and the member name.
func (r *ValidationRule) WithNameFactory(f func(*ValidationContext) string) *ValidationRule {
	r.mustMutable("WithNameFactory")
	r.displayNameFactory = f
	return r
}

// When attaches a rule-level condition with the given scope. With
// ApplyToAllComponents a false condition skips the whole chain; with
// ApplyToFirstComponent it gates only component #0.
func (r *ValidationRule) When(cond Condition, scope ConditionScope) *ValidationRule {
	r.mustMutable("When")
	r.condition = cond
	r.conditionScope = scope
	return r
}

// WhenAsync attaches an async rule-level condition. Rules carrying one can
// only run on the async path.
func (r *ValidationRule) WhenAsync(cond AsyncCondition, scope ConditionScope) *ValidationRule {
	r.mustMutable("WhenAsync")
	r.asyncCondition = cond
	r.conditionScope = scope
	return r
}

// WhenShared attaches a condition evaluated exactly once per rule
// invocation, gating the whole rule regardless of scope.
func (r *ValidationRule) WhenShared(cond Condition) *ValidationRule {
	r.mustMutable("WhenShared")
	r.sharedCondition = cond
	return r
}

// OnFailure registers a hook invoked with the full set of failures this
// rule produced, after all components have run.
func (r *ValidationRule) OnFailure(hook func(*ValidationContext, Failures)) *ValidationRule {
	r.mustMutable("OnFailure")
	r.onFailure = hook
	return r
}

// DependsOn attaches dependent rules: they execute only if this rule
// produced zero failures. Unlike the other builder methods, dependents may
// be attached after seal.
func (r *ValidationRule) DependsOn(rules ...Rule) *ValidationRule {
	r.dependents = append(r.dependents, rules...)
	return r
}

// Member returns the member descriptor this rule is bound to.
func (r *ValidationRule) Member() MemberDescriptor {
	return r.member
}

// Components returns the rule's component chain in execution order.
func (r *ValidationRule) Components() []*RuleComponent {
	return r.components
}

// RuleSets implements Rule.
func (r *ValidationRule) RuleSets() []string {
	return r.ruleSets
}

// Dependents implements Rule.
func (r *ValidationRule) Dependents() []Rule {
	return r.dependents
}

///////////////////////////////////////////////////////////////////////////////
// Execution
///////////////////////////////////////////////////////////////////////////////

// applicability is the outcome of resolving a rule's conditions for one
// invocation.
type applicability struct {
	skipAll   bool // skip every component, rule counts as passed
	gateFirst bool // skip component #0 only
}

func (r *ValidationRule) resolveApplicability(vctx *ValidationContext) (applicability, error) {
	if r.asyncCondition != nil {
		return applicability{}, fmt.Errorf("%w: rule %q", ErrAsyncConditionInSyncPath, r.member.Name)
	}

	if r.sharedCondition != nil && !r.sharedCondition(vctx) {
		return applicability{skipAll: true}, nil
	}

	if r.condition != nil && !r.condition(vctx) {
		if r.conditionScope == ApplyToFirstComponent {
			return applicability{gateFirst: true}, nil
		}
		return applicability{skipAll: true}, nil
	}

	return applicability{}, nil
}

func (r *ValidationRule) resolveApplicabilityAsync(ctx context.Context, vctx *ValidationContext) (applicability, error) {
	if r.sharedCondition != nil && !r.sharedCondition(vctx) {
		return applicability{skipAll: true}, nil
	}

	applies := true
	if r.asyncCondition != nil {
		ok, err := r.asyncCondition(ctx, vctx)
		if err != nil {
			return applicability{}, err
		}
		applies = ok
	}
	if applies && r.condition != nil {
		applies = r.condition(vctx)
	}

	if !applies {
		if r.conditionScope == ApplyToFirstComponent {
			return applicability{gateFirst: true}, nil
		}
		return applicability{skipAll: true}, nil
	}

	return applicability{}, nil
}

// resolveDisplayName picks the name used in failures: the context-dependent
// factory, then the static name, then the member's declared name.
func (r *ValidationRule) resolveDisplayName(vctx *ValidationContext) string {
	if r.displayNameFactory != nil {
		return r.displayNameFactory(vctx)
	}
	if r.displayName != "" {
		return r.displayName
	}
	return r.member.Name
}

// propertyValue extracts the value fed to the component chain.
func (r *ValidationRule) propertyValue(vctx *ValidationContext) any {
	if r.member.Get == nil {
		return vctx.Root
	}
	return r.member.Get(vctx.Root)
}

// runComponents walks the chain in insertion order against a single value,
// honoring the cascade mode. gateFirst skips component #0, which counts as
// passed for cascade purposes.
func (r *ValidationRule) runComponents(vctx *ValidationContext, displayName string, value any, gateFirst bool) (Failures, error) {
	var produced Failures

	for i, c := range r.components {
		if gateFirst && i == 0 {
			continue
		}

		failure, err := c.evaluate(vctx, displayName, value)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.member.Name, err)
		}

		if failure != nil {
			produced = append(produced, *failure)
			if r.cascade == Stop {
				break
			}
		}
	}

	return produced, nil
}

// runComponentsAsync is the suspending counterpart of runComponents.
// Components of the same rule never run concurrently: the cascade decision
// requires strict ordering, so each suspension point is awaited before the
// next component starts.
func (r *ValidationRule) runComponentsAsync(ctx context.Context, vctx *ValidationContext, displayName string, value any, gateFirst bool) (Failures, error) {
	var produced Failures

	for i, c := range r.components {
		if gateFirst && i == 0 {
			continue
		}

		failure, err := c.evaluateAsync(ctx, vctx, displayName, value)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.member.Name, err)
		}

		if failure != nil {
			produced = append(produced, *failure)
			if r.cascade == Stop {
				break
			}
		}
	}

	return produced, nil
}

// finish appends the rule's failures to the context and fires the failure
// hook.
func (r *ValidationRule) finish(vctx *ValidationContext, produced Failures) {
	for _, f := range produced {
		vctx.AddFailure(f)
	}
	if r.onFailure != nil && !produced.IsEmpty() {
		r.onFailure(vctx, produced)
	}
}

// Validate implements Rule.
func (r *ValidationRule) Validate(vctx *ValidationContext) (bool, error) {
	r.sealed.Store(true)

	app, err := r.resolveApplicability(vctx)
	if err != nil {
		return false, err
	}
	if app.skipAll {
		return true, nil
	}

	displayName := r.resolveDisplayName(vctx)
	value := r.propertyValue(vctx)

	produced, err := r.runComponents(vctx, displayName, value, app.gateFirst)
	if err != nil {
		return false, err
	}

	r.finish(vctx, produced)
	return produced.IsEmpty(), nil
}

// ValidateAsync implements Rule.
func (r *ValidationRule) ValidateAsync(ctx context.Context, vctx *ValidationContext) (bool, error) {
	r.sealed.Store(true)

	if err := ctx.Err(); err != nil {
		return false, err
	}

	app, err := r.resolveApplicabilityAsync(ctx, vctx)
	if err != nil {
		return false, err
	}
	if app.skipAll {
		return true, nil
	}

	displayName := r.resolveDisplayName(vctx)
	value := r.propertyValue(vctx)

	produced, err := r.runComponentsAsync(ctx, vctx, displayName, value, app.gateFirst)
	if err != nil {
		return false, err
	}

	r.finish(vctx, produced)
	return produced.IsEmpty(), nil
}
