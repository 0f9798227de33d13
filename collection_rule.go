package fluent

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// Errors
///////////////////////////////////////////////////////////////////////////////

var (
	// ErrNotEnumerable is returned when a CollectionRule's member accessor
	// yields a value that is neither a slice, an array, nor nil.
	ErrNotEnumerable = errors.New("collection rule member is not enumerable")
)

///////////////////////////////////////////////////////////////////////////////
// CollectionRule
///////////////////////////////////////////////////////////////////////////////

// Enumerable lazily produces the collection a CollectionRule iterates.
// A member accessor may return one instead of a materialized slice; it is
// invoked once per rule invocation, after the rule's conditions have been
// resolved.
type Enumerable func() []any

// ElementFilter decides whether a collection element takes part in
// validation. Filtered-out elements never generate failures, but they still
// consume their ordinal position: index names always reflect the element's
// position in the original sequence.
type ElementFilter func(element any) bool

// IndexNameBuilder produces the property-name suffix-bearing display name
// for one element. The default yields "name[ordinal]".
type IndexNameBuilder func(root any, collection any, element any, ordinal int) string

// CollectionRule applies a ValidationRule's component chain to every
// retained element of an enumerable member. The rule as a whole passes only
// if every retained element produced zero failures; dependent rules are
// gated at the rule level, not per element.
type CollectionRule struct {
	*ValidationRule
	filter      ElementFilter
	indexName   IndexNameBuilder
	concurrency int
}

// NewCollectionRule creates a collection rule bound to an enumerable member.
func NewCollectionRule(member MemberDescriptor) *CollectionRule {
	return &CollectionRule{ValidationRule: NewRule(member)}
}

// Filter sets the element filter. The default accepts every element.
func (r *CollectionRule) Filter(f ElementFilter) *CollectionRule {
	r.mustMutable("Filter")
	r.filter = f
	return r
}

// IndexedBy replaces the default "[ordinal]" index-name builder.
func (r *CollectionRule) IndexedBy(f IndexNameBuilder) *CollectionRule {
	r.mustMutable("IndexedBy")
	r.indexName = f
	return r
}

// WithElementConcurrency lets the async path validate up to n elements
// concurrently. Failure ordering stays deterministic: per-element results
// land in ordinal-indexed slots and are flattened in order, never appended
// as goroutines finish. n <= 1 keeps elements sequential.
func (r *CollectionRule) WithElementConcurrency(n int) *CollectionRule {
	r.mustMutable("WithElementConcurrency")
	r.concurrency = n
	return r
}

// The common ValidationRule builders are shadowed below so configuration
// chains keep the collection type, e.g.
// NewCollectionRule(m).Filter(f).Add(c).Cascade(Stop).

// Add appends a component to the rule's chain.
func (r *CollectionRule) Add(c *RuleComponent) *CollectionRule {
	r.ValidationRule.Add(c)
	return r
}

// Cascade sets the rule's cascade mode.
func (r *CollectionRule) Cascade(mode CascadeMode) *CollectionRule {
	r.ValidationRule.Cascade(mode)
	return r
}

// InRuleSets tags the rule for the named rule sets.
func (r *CollectionRule) InRuleSets(names ...string) *CollectionRule {
	r.ValidationRule.InRuleSets(names...)
	return r
}

// WithName sets a static display name overriding the member name.
func (r *CollectionRule) WithName(name string) *CollectionRule {
	r.ValidationRule.WithName(name)
	return r
}

// WithNameFactory sets a context-dependent display-name resolver.
func (r *CollectionRule) WithNameFactory(f func(*ValidationContext) string) *CollectionRule {
	r.ValidationRule.WithNameFactory(f)
	return r
}

// When attaches a rule-level condition with the given scope.
func (r *CollectionRule) When(cond Condition, scope ConditionScope) *CollectionRule {
	r.ValidationRule.When(cond, scope)
	return r
}

// WhenAsync attaches an async rule-level condition.
func (r *CollectionRule) WhenAsync(cond AsyncCondition, scope ConditionScope) *CollectionRule {
	r.ValidationRule.WhenAsync(cond, scope)
	return r
}

// WhenShared attaches a condition evaluated once per rule invocation.
func (r *CollectionRule) WhenShared(cond Condition) *CollectionRule {
	r.ValidationRule.WhenShared(cond)
	return r
}

// OnFailure registers the rule's failure hook.
func (r *CollectionRule) OnFailure(hook func(*ValidationContext, Failures)) *CollectionRule {
	r.ValidationRule.OnFailure(hook)
	return r
}

// DependsOn attaches dependent rules.
func (r *CollectionRule) DependsOn(rules ...Rule) *CollectionRule {
	r.ValidationRule.DependsOn(rules...)
	return r
}

func (r *CollectionRule) elementName(vctx *ValidationContext, displayName string, collection, element any, ordinal int) string {
	if r.indexName != nil {
		return r.indexName(vctx.Root, collection, element, ordinal)
	}
	return fmt.Sprintf("%s[%d]", displayName, ordinal)
}

// enumerate resolves the member value into an indexable reflect.Value,
// invoking an Enumerable source first where the accessor returned one.
// A nil collection short-circuits to zero elements.
func (r *CollectionRule) enumerate(value any) (reflect.Value, error) {
	if e, ok := value.(Enumerable); ok {
		if e == nil {
			return reflect.Value{}, nil
		}
		value = e()
	}

	if value == nil {
		return reflect.Value{}, nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		return v, nil
	case reflect.Array:
		return v, nil
	default:
		return reflect.Value{}, fmt.Errorf("%w: rule %q got %s", ErrNotEnumerable, r.member.Name, v.Kind())
	}
}

// Validate implements Rule.
func (r *CollectionRule) Validate(vctx *ValidationContext) (bool, error) {
	r.sealed.Store(true)

	app, err := r.resolveApplicability(vctx)
	if err != nil {
		return false, err
	}
	if app.skipAll {
		return true, nil
	}

	displayName := r.resolveDisplayName(vctx)
	collection := r.propertyValue(vctx)

	items, err := r.enumerate(collection)
	if err != nil {
		return false, err
	}
	if !items.IsValid() {
		return true, nil
	}

	var produced Failures
	for i := 0; i < items.Len(); i++ {
		element := items.Index(i).Interface()
		if r.filter != nil && !r.filter(element) {
			continue
		}

		name := r.elementName(vctx, displayName, collection, element, i)
		failures, err := r.runComponents(vctx, name, element, app.gateFirst)
		if err != nil {
			return false, err
		}
		produced = append(produced, failures...)
	}

	r.finish(vctx, produced)
	return produced.IsEmpty(), nil
}

// ValidateAsync implements Rule.
func (r *CollectionRule) ValidateAsync(ctx context.Context, vctx *ValidationContext) (bool, error) {
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
	collection := r.propertyValue(vctx)

	items, err := r.enumerate(collection)
	if err != nil {
		return false, err
	}
	if !items.IsValid() {
		return true, nil
	}

	var produced Failures
	if r.concurrency > 1 {
		produced, err = r.runElementsConcurrent(ctx, vctx, displayName, collection, items, app.gateFirst)
	} else {
		produced, err = r.runElementsSequential(ctx, vctx, displayName, collection, items, app.gateFirst)
	}
	if err != nil {
		return false, err
	}

	r.finish(vctx, produced)
	return produced.IsEmpty(), nil
}

func (r *CollectionRule) runElementsSequential(ctx context.Context, vctx *ValidationContext, displayName string, collection any, items reflect.Value, gateFirst bool) (Failures, error) {
	var produced Failures

	for i := 0; i < items.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		element := items.Index(i).Interface()
		if r.filter != nil && !r.filter(element) {
			continue
		}

		name := r.elementName(vctx, displayName, collection, element, i)
		failures, err := r.runComponentsAsync(ctx, vctx, name, element, gateFirst)
		if err != nil {
			return nil, err
		}
		produced = append(produced, failures...)
	}

	return produced, nil
}

// runElementsConcurrent fans retained elements out over an errgroup bounded
// by the configured concurrency. Results are collected into ordinal-indexed
// slots so the flattened failure order matches a sequential run exactly.
func (r *CollectionRule) runElementsConcurrent(ctx context.Context, vctx *ValidationContext, displayName string, collection any, items reflect.Value, gateFirst bool) (Failures, error) {
	slots := make([]Failures, items.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := 0; i < items.Len(); i++ {
		element := items.Index(i).Interface()
		if r.filter != nil && !r.filter(element) {
			continue
		}

		ordinal := i
		name := r.elementName(vctx, displayName, collection, element, ordinal)
		g.Go(func() error {
			failures, err := r.runComponentsAsync(gctx, vctx, name, element, gateFirst)
			if err != nil {
				return err
			}
			slots[ordinal] = failures
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var produced Failures
	for _, failures := range slots {
		produced = append(produced, failures...)
	}
	return produced, nil
}
