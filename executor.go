package fluent

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

///////////////////////////////////////////////////////////////////////////////
// RuleExecutor
///////////////////////////////////////////////////////////////////////////////

// RuleExecutor walks a set of rules against a validation context, applying
// rule-set filtering, cascade short-circuiting, and dependent-rule gating,
// and accumulating failures into the context.
//
// An executor holds no per-run state and is safe to share across concurrent
// validation calls, provided the rules themselves are treated as read-only
// once execution has started (mutating rule definitions concurrently with an
// in-flight run is undefined behavior and is the caller's responsibility).
type RuleExecutor struct {
	logger      *zap.Logger
	concurrency int
}

type ExecutorOption func(*RuleExecutor)

// WithLogger attaches a trace logger. The executor emits Debug records for
// rule-set skips, rule outcomes, and dependent gating, tagged with the
// context run ID. The default is a nop logger.
func WithLogger(l *zap.Logger) ExecutorOption {
	return func(e *RuleExecutor) {
		e.logger = l
	}
}

// WithConcurrency bounds how many independent top-level rules RunConcurrent
// executes in parallel. The default is unbounded.
func WithConcurrency(n int) ExecutorOption {
	return func(e *RuleExecutor) {
		e.concurrency = n
	}
}

func NewExecutor(opts ...ExecutorOption) *RuleExecutor {
	e := &RuleExecutor{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

///////////////////////////////////////////////////////////////////////////////
// Sync path
///////////////////////////////////////////////////////////////////////////////

// Run executes the rules synchronously in declaration order. A rule not
// tagged for the context's requested rule sets is skipped entirely,
// including its dependents; an unknown rule-set name simply selects zero
// rules. The returned error is a configuration mismatch or a predicate
// fault; plain validation failures land in the context.
func (e *RuleExecutor) Run(rules []Rule, vctx *ValidationContext) error {
	for _, rule := range rules {
		if !vctx.selects(rule.RuleSets()) {
			e.logger.Debug("rule skipped by rule-set selection",
				zap.String("run_id", vctx.RunID.String()),
				zap.Strings("rule_sets", rule.RuleSets()))
			continue
		}

		if err := e.runRule(rule, vctx); err != nil {
			return err
		}
	}

	return nil
}

// runRule executes one rule and, if it passed, its dependent rules
// depth-first. Dependents of a failed rule are skipped without their
// conditions ever being evaluated.
func (e *RuleExecutor) runRule(rule Rule, vctx *ValidationContext) error {
	passed, err := rule.Validate(vctx)
	if err != nil {
		return err
	}

	if !passed {
		e.logger.Debug("rule failed, dependents skipped",
			zap.String("run_id", vctx.RunID.String()),
			zap.Int("dependents", len(rule.Dependents())))
		return nil
	}

	for _, dep := range rule.Dependents() {
		if err := e.runRule(dep, vctx); err != nil {
			return err
		}
	}

	return nil
}

///////////////////////////////////////////////////////////////////////////////
// Async path
///////////////////////////////////////////////////////////////////////////////

// RunAsync executes the rules with suspension points at async conditions and
// predicates. Cancellation is checked between rule and component boundaries;
// a cancellation observed mid-run returns the context error while the
// failures accumulated so far remain in the validation context.
func (e *RuleExecutor) RunAsync(ctx context.Context, rules []Rule, vctx *ValidationContext) error {
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !vctx.selects(rule.RuleSets()) {
			e.logger.Debug("rule skipped by rule-set selection",
				zap.String("run_id", vctx.RunID.String()),
				zap.Strings("rule_sets", rule.RuleSets()))
			continue
		}

		if err := e.runRuleAsync(ctx, rule, vctx); err != nil {
			return err
		}
	}

	return nil
}

func (e *RuleExecutor) runRuleAsync(ctx context.Context, rule Rule, vctx *ValidationContext) error {
	passed, err := rule.ValidateAsync(ctx, vctx)
	if err != nil {
		return err
	}

	if !passed {
		e.logger.Debug("rule failed, dependents skipped",
			zap.String("run_id", vctx.RunID.String()),
			zap.Int("dependents", len(rule.Dependents())))
		return nil
	}

	for _, dep := range rule.Dependents() {
		if err := e.runRuleAsync(ctx, dep, vctx); err != nil {
			return err
		}
	}

	return nil
}

///////////////////////////////////////////////////////////////////////////////
// Concurrent path
///////////////////////////////////////////////////////////////////////////////

// RunConcurrent executes independent top-level rules in parallel. Each rule
// (together with its dependent subtree, which stays sequential relative to
// its parent) runs against a private fork of the context; the private
// failure buffers are merged back in declaration order once every branch has
// finished, so the final failure collection is byte-identical to a
// sequential run.
func (e *RuleExecutor) RunConcurrent(ctx context.Context, rules []Rule, vctx *ValidationContext) error {
	selected := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if vctx.selects(rule.RuleSets()) {
			selected = append(selected, rule)
			continue
		}
		e.logger.Debug("rule skipped by rule-set selection",
			zap.String("run_id", vctx.RunID.String()),
			zap.Strings("rule_sets", rule.RuleSets()))
	}

	branches := make([]*ValidationContext, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}

	for i, rule := range selected {
		rule := rule
		branch := vctx.fork()
		branches[i] = branch

		g.Go(func() error {
			return e.runRuleAsync(gctx, rule, branch)
		})
	}

	err := g.Wait()

	// Merge in declaration order regardless of completion order. On a
	// fault or cancellation the finished branches still merge, so the
	// context holds whatever was accumulated, same as the other paths.
	for _, branch := range branches {
		for _, f := range branch.Failures() {
			vctx.AddFailure(f)
		}
	}

	return err
}
