package fluent

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

///////////////////////////////////////////////////////////////////////////////
// Result
///////////////////////////////////////////////////////////////////////////////

// Result is the public outcome of one validation run.
type Result struct {
	RunID    uuid.UUID
	Failures Failures
}

// Valid reports whether the run produced zero failures.
func (r *Result) Valid() bool {
	return r.Failures.IsEmpty()
}

// Err returns the failure collection as an error, or nil when valid.
func (r *Result) Err() error {
	if r.Valid() {
		return nil
	}
	return r.Failures
}

///////////////////////////////////////////////////////////////////////////////
// Validator
///////////////////////////////////////////////////////////////////////////////

// Validator owns the ordered rule list for one logical type and exposes the
// public validate entry points. It constructs a fresh ValidationContext per
// call and delegates to a RuleExecutor, so a single Validator instance can
// serve many concurrent validation calls as long as its rules are not
// mutated once in use.
type Validator struct {
	rules []Rule
	exec  *RuleExecutor
}

type ValidatorOpts struct {
	Rules    []Rule
	Executor *RuleExecutor
}

func NewValidator(opts ValidatorOpts) *Validator {
	exec := opts.Executor
	if exec == nil {
		exec = NewExecutor()
	}

	return &Validator{
		rules: opts.Rules,
		exec:  exec,
	}
}

// AddRule appends rules in declaration order.
func (v *Validator) AddRule(rules ...Rule) *Validator {
	v.rules = append(v.rules, rules...)
	return v
}

// Rules returns the validator's top-level rules in declaration order.
func (v *Validator) Rules() []Rule {
	return v.rules
}

// Validate runs the rule list synchronously against value and returns the
// accumulated failures. A non-nil error means the run was abandoned by a
// configuration mismatch or predicate fault, not that validation failed;
// check Result.Valid for that.
func (v *Validator) Validate(value any, opts ...ContextOption) (*Result, error) {
	vctx := NewValidationContext(value, opts...)

	if err := v.exec.Run(v.rules, vctx); err != nil {
		return nil, err
	}

	return &Result{RunID: vctx.RunID, Failures: vctx.Failures()}, nil
}

// ValidateAsync runs the rule list with suspension points at async
// conditions and predicates. On cancellation the partial result accumulated
// so far is returned alongside the context error; any other fault abandons
// the run.
func (v *Validator) ValidateAsync(ctx context.Context, value any, opts ...ContextOption) (*Result, error) {
	vctx := NewValidationContext(value, opts...)

	err := v.exec.RunAsync(ctx, v.rules, vctx)
	return v.resolve(vctx, err)
}

// ValidateConcurrent runs independent top-level rules in parallel while
// keeping the failure collection in declaration order.
func (v *Validator) ValidateConcurrent(ctx context.Context, value any, opts ...ContextOption) (*Result, error) {
	vctx := NewValidationContext(value, opts...)

	err := v.exec.RunConcurrent(ctx, v.rules, vctx)
	return v.resolve(vctx, err)
}

func (v *Validator) resolve(vctx *ValidationContext, err error) (*Result, error) {
	result := &Result{RunID: vctx.RunID, Failures: vctx.Failures()}

	if err == nil {
		return result, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return result, err
	}
	return nil, err
}
