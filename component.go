package fluent

import (
	"context"
	"errors"
	"fmt"
)

///////////////////////////////////////////////////////////////////////////////
// Errors
///////////////////////////////////////////////////////////////////////////////

var (
	// ErrAsyncComponentInSyncPath is returned when a component built with
	// only an async predicate is invoked from a synchronous execution path.
	// Wrap the predicate with BlockingPredicate to opt in to blocking.
	ErrAsyncComponentInSyncPath = errors.New("async-only component invoked from the sync path")

	// ErrAsyncConditionInSyncPath is returned when an async condition is
	// attached to a component or rule invoked from a synchronous execution
	// path.
	ErrAsyncConditionInSyncPath = errors.New("async condition invoked from the sync path")

	// ErrNilPredicate is returned when a component is constructed without
	// any predicate at all.
	ErrNilPredicate = errors.New("component requires a predicate")
)

///////////////////////////////////////////////////////////////////////////////
// Callable contracts
///////////////////////////////////////////////////////////////////////////////

// Predicate is a synchronous validator predicate. It reports whether the
// property value is acceptable. Predicates must not mutate the value under
// validation; panics raised inside a predicate propagate to the caller of
// the run unmodified.
type Predicate func(vctx *ValidationContext, value any) bool

// AsyncPredicate is the suspending counterpart of Predicate. A returned
// error is treated as a predicate fault: the run is abandoned and the error
// propagates to the caller.
type AsyncPredicate func(ctx context.Context, vctx *ValidationContext, value any) (bool, error)

// Condition guards whether a component or rule executes.
type Condition func(vctx *ValidationContext) bool

// AsyncCondition is the suspending counterpart of Condition. It can only be
// awaited on the async path; attaching one to a rule executed synchronously
// is a configuration error.
type AsyncCondition func(ctx context.Context, vctx *ValidationContext) (bool, error)

// MessageFactory produces a custom failure message. It is invoked only when
// the component's predicate reports failure.
type MessageFactory func(vctx *ValidationContext) string

// StateFactory produces the custom state attached to a failure. It is
// invoked only when the component's predicate reports failure.
type StateFactory func(vctx *ValidationContext) any

// BlockingPredicate adapts an async predicate for the synchronous path by
// running it against context.Background(). An error from the adapted
// predicate has no error channel on the sync contract, so it surfaces as a
// panic, matching how any other predicate fault escapes the sync path.
func BlockingPredicate(p AsyncPredicate) Predicate {
	return func(vctx *ValidationContext, value any) bool {
		ok, err := p(context.Background(), vctx, value)
		if err != nil {
			panic(fmt.Sprintf("fluent: blocking predicate fault: %v", err))
		}
		return ok
	}
}

// BlockingCondition adapts an async condition for the synchronous path.
// Faults surface as panics, see BlockingPredicate.
func BlockingCondition(c AsyncCondition) Condition {
	return func(vctx *ValidationContext) bool {
		ok, err := c(context.Background(), vctx)
		if err != nil {
			panic(fmt.Sprintf("fluent: blocking condition fault: %v", err))
		}
		return ok
	}
}

///////////////////////////////////////////////////////////////////////////////
// RuleComponent
///////////////////////////////////////////////////////////////////////////////

// RuleComponent is the smallest execution unit: one validator predicate plus
// its own guarding conditions and failure factories. Components are owned
// exclusively by their parent ValidationRule and become immutable once the
// rule is sealed for execution.
type RuleComponent struct {
	name           string
	predicate      Predicate
	asyncPredicate AsyncPredicate
	condition      Condition
	asyncCondition AsyncCondition
	messageFactory MessageFactory
	stateFactory   StateFactory
	errorCode      string
	severity       Severity
}

// NewComponent creates a component around a synchronous predicate. The name
// identifies the validator in default failure messages (e.g. "not-empty").
func NewComponent(name string, p Predicate) *RuleComponent {
	return &RuleComponent{
		name:      name,
		predicate: p,
		severity:  SeverityError,
	}
}

// NewAsyncComponent creates a component around an async predicate. The
// component can only run on the async path unless the predicate is wrapped
// with BlockingPredicate instead.
func NewAsyncComponent(name string, p AsyncPredicate) *RuleComponent {
	return &RuleComponent{
		name:           name,
		asyncPredicate: p,
		severity:       SeverityError,
	}
}

// Name returns the validator name given at construction.
func (c *RuleComponent) Name() string {
	return c.name
}

// When attaches a synchronous condition gating this component.
func (c *RuleComponent) When(cond Condition) *RuleComponent {
	c.condition = cond
	return c
}

// WhenAsync attaches an async condition gating this component.
func (c *RuleComponent) WhenAsync(cond AsyncCondition) *RuleComponent {
	c.asyncCondition = cond
	return c
}

// WithMessage sets a static custom failure message.
func (c *RuleComponent) WithMessage(message string) *RuleComponent {
	c.messageFactory = func(*ValidationContext) string { return message }
	return c
}

// WithMessageFactory sets a context-dependent failure message factory.
func (c *RuleComponent) WithMessageFactory(f MessageFactory) *RuleComponent {
	c.messageFactory = f
	return c
}

// WithState sets the custom-state factory attached to failures.
func (c *RuleComponent) WithState(f StateFactory) *RuleComponent {
	c.stateFactory = f
	return c
}

// WithErrorCode sets the error code attached to failures.
func (c *RuleComponent) WithErrorCode(code string) *RuleComponent {
	c.errorCode = code
	return c
}

// WithSeverity sets the severity attached to failures.
func (c *RuleComponent) WithSeverity(s Severity) *RuleComponent {
	c.severity = s
	return c
}

///////////////////////////////////////////////////////////////////////////////
// Evaluation
///////////////////////////////////////////////////////////////////////////////

// evaluate runs the component synchronously against the property value and
// returns at most one failure. A skipped condition counts as passed for
// cascade purposes. Configuration mismatches (async-only pieces on the sync
// path) fail fast.
func (c *RuleComponent) evaluate(vctx *ValidationContext, displayName string, value any) (*ValidationFailure, error) {
	if c.asyncCondition != nil {
		return nil, fmt.Errorf("%w: component %q", ErrAsyncConditionInSyncPath, c.name)
	}

	if c.condition != nil && !c.condition(vctx) {
		return nil, nil
	}

	if c.predicate == nil {
		if c.asyncPredicate != nil {
			return nil, fmt.Errorf("%w: component %q", ErrAsyncComponentInSyncPath, c.name)
		}
		return nil, fmt.Errorf("%w: component %q", ErrNilPredicate, c.name)
	}

	if c.predicate(vctx, value) {
		return nil, nil
	}

	return c.newFailure(vctx, displayName, value), nil
}

// evaluateAsync runs the component on the async path, awaiting the async
// condition and predicate where attached. Sync pieces still run inline.
func (c *RuleComponent) evaluateAsync(ctx context.Context, vctx *ValidationContext, displayName string, value any) (*ValidationFailure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.asyncCondition != nil {
		ok, err := c.asyncCondition(ctx, vctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}

	if c.condition != nil && !c.condition(vctx) {
		return nil, nil
	}

	var (
		ok  bool
		err error
	)
	switch {
	case c.asyncPredicate != nil:
		ok, err = c.asyncPredicate(ctx, vctx, value)
	case c.predicate != nil:
		ok = c.predicate(vctx, value)
	default:
		return nil, fmt.Errorf("%w: component %q", ErrNilPredicate, c.name)
	}
	if err != nil {
		return nil, err
	}

	if ok {
		return nil, nil
	}

	return c.newFailure(vctx, displayName, value), nil
}

func (c *RuleComponent) newFailure(vctx *ValidationContext, displayName string, value any) *ValidationFailure {
	message := fmt.Sprintf("'%s' failed %s validation", displayName, c.name)
	if c.messageFactory != nil {
		message = c.messageFactory(vctx)
	}

	var state any
	if c.stateFactory != nil {
		state = c.stateFactory(vctx)
	}

	return &ValidationFailure{
		PropertyName:   displayName,
		Message:        message,
		AttemptedValue: value,
		Severity:       c.severity,
		ErrorCode:      c.errorCode,
		CustomState:    state,
	}
}
