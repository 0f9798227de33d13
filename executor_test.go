package fluent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRuleExecutor_DependentGating(t *testing.T) {
	t.Run("DependentsSkippedWhenParentFails", func(t *testing.T) {
		conditionCalls := 0
		depSpy := &spyPredicate{result: true}

		dep := NewRule(Member("B", nil)).
			When(func(vctx *ValidationContext) bool {
				conditionCalls++
				return true
			}, ApplyToAllComponents).
			Add(NewComponent("b-check", depSpy.fn))

		parent := NewRule(Member("A", nil)).
			Add(NewComponent("a-check", failAlways)).
			DependsOn(dep)

		vctx := NewValidationContext(nil)
		err := NewExecutor().Run([]Rule{parent}, vctx)
		require.NoError(t, err)

		assert.Len(t, vctx.Failures(), 1)
		assert.Zero(t, conditionCalls, "a gated dependent must not even evaluate its conditions")
		assert.Zero(t, depSpy.calls)
	})

	t.Run("DependentsRunWhenParentPasses", func(t *testing.T) {
		dep := NewRule(Member("B", nil)).
			Add(NewComponent("b-check", failAlways))

		parent := NewRule(Member("A", nil)).
			Add(NewComponent("a-check", passAlways)).
			DependsOn(dep)

		vctx := NewValidationContext(nil)
		err := NewExecutor().Run([]Rule{parent}, vctx)
		require.NoError(t, err)

		require.Len(t, vctx.Failures(), 1)
		assert.Equal(t, "B", vctx.Failures()[0].PropertyName)
	})

	t.Run("DependentsRunDepthFirst", func(t *testing.T) {
		grandchild := NewRule(Member("C", nil)).Add(NewComponent("fail", failAlways))
		child := NewRule(Member("B", nil)).
			Add(NewComponent("fail", failAlways)).
			DependsOn(grandchild)

		// B fails, so C must be skipped even though B ran.
		parent := NewRule(Member("A", nil)).
			Add(NewComponent("pass", passAlways)).
			DependsOn(child)

		next := NewRule(Member("D", nil)).Add(NewComponent("fail", failAlways))

		vctx := NewValidationContext(nil)
		err := NewExecutor().Run([]Rule{parent, next}, vctx)
		require.NoError(t, err)

		var names []string
		for _, f := range vctx.Failures() {
			names = append(names, f.PropertyName)
		}
		assert.Equal(t, []string{"B", "D"}, names)
	})
}

func TestRuleExecutor_RuleSetFiltering(t *testing.T) {
	newRules := func() (rules []Rule, spies map[string]*spyPredicate) {
		spies = map[string]*spyPredicate{
			"names":     {result: true},
			"addresses": {result: true},
			"untagged":  {result: true},
		}
		rules = []Rule{
			NewRule(Member("Name", nil)).InRuleSets("Names").Add(NewComponent("check", spies["names"].fn)),
			NewRule(Member("Street", nil)).InRuleSets("Addresses").Add(NewComponent("check", spies["addresses"].fn)),
			NewRule(Member("Id", nil)).Add(NewComponent("check", spies["untagged"].fn)),
		}
		return rules, spies
	}

	cases := []struct {
		name     string
		selector []string
		ran      []string
	}{
		{"NoSelectorRunsUntaggedOnly", nil, []string{"untagged"}},
		{"NamedSetRunsTaggedOnly", []string{"Names"}, []string{"names"}},
		{"UnknownSetSelectsNothing", []string{"Bogus"}, nil},
		{"AllSelectorRunsEverything", []string{RuleSetAll}, []string{"names", "addresses", "untagged"}},
		{"DefaultAlongsideNamed", []string{"Names", DefaultRuleSet}, []string{"names", "untagged"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules, spies := newRules()

			vctx := NewValidationContext(nil, WithRuleSets(tc.selector...))
			err := NewExecutor().Run(rules, vctx)
			require.NoError(t, err)

			ran := make(map[string]bool)
			for _, name := range tc.ran {
				ran[name] = true
			}
			for name, spy := range spies {
				if ran[name] {
					assert.Equal(t, 1, spy.calls, "%s should have run", name)
				} else {
					assert.Zero(t, spy.calls, "%s should have been skipped", name)
				}
			}
		})
	}

	t.Run("SkippedRuleDependentsSkippedToo", func(t *testing.T) {
		depSpy := &spyPredicate{result: true}
		dep := NewRule(Member("B", nil)).Add(NewComponent("check", depSpy.fn))

		parent := NewRule(Member("A", nil)).
			InRuleSets("Names").
			Add(NewComponent("check", passAlways)).
			DependsOn(dep)

		vctx := NewValidationContext(nil) // default selection, "Names" not requested
		err := NewExecutor().Run([]Rule{parent}, vctx)
		require.NoError(t, err)
		assert.Zero(t, depSpy.calls)
	})
}

func TestRuleExecutor_Async(t *testing.T) {
	t.Run("CancellationPreservesAccumulatedFailures", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		first := NewRule(Member("First", nil)).
			Add(NewAsyncComponent("fail-then-cancel", func(ctx context.Context, vctx *ValidationContext, value any) (bool, error) {
				cancel()
				return false, nil
			}))
		secondSpy := &spyPredicate{result: true}
		second := NewRule(Member("Second", nil)).
			Add(NewComponent("check", secondSpy.fn))

		vctx := NewValidationContext(nil)
		err := NewExecutor().RunAsync(ctx, []Rule{first, second}, vctx)
		assert.ErrorIs(t, err, context.Canceled)

		require.Len(t, vctx.Failures(), 1, "failures accumulated before cancellation remain available")
		assert.Equal(t, "First", vctx.Failures()[0].PropertyName)
		assert.Zero(t, secondSpy.calls)
	})

	t.Run("PredicateFaultAbandonsRun", func(t *testing.T) {
		first := NewRule(Member("First", nil)).
			Add(NewAsyncComponent("broken", func(ctx context.Context, vctx *ValidationContext, value any) (bool, error) {
				return false, assert.AnError
			}))
		second := NewRule(Member("Second", nil)).
			Add(NewComponent("check", failAlways))

		vctx := NewValidationContext(nil)
		err := NewExecutor().RunAsync(context.Background(), []Rule{first, second}, vctx)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, vctx.Failures())
	})
}

func TestRuleExecutor_Concurrent(t *testing.T) {
	newRules := func() []Rule {
		var rules []Rule
		for _, name := range []string{"A", "B", "C", "D", "E"} {
			rules = append(rules,
				NewRule(Member(name, nil)).
					Cascade(Continue).
					Add(NewComponent("first", failAlways)).
					Add(NewComponent("second", failAlways)))
		}
		return rules
	}

	t.Run("DeterministicOrderMatchesSequential", func(t *testing.T) {
		seqCtx := NewValidationContext(nil)
		err := NewExecutor().RunAsync(context.Background(), newRules(), seqCtx)
		require.NoError(t, err)

		conCtx := NewValidationContext(nil)
		err = NewExecutor(WithConcurrency(3)).RunConcurrent(context.Background(), newRules(), conCtx)
		require.NoError(t, err)

		require.Len(t, seqCtx.Failures(), 10)
		assert.Equal(t, seqCtx.Failures(), conCtx.Failures(),
			"parallel branches must merge in declaration order")
	})

	t.Run("SharedStateWritesAcrossBranches", func(t *testing.T) {
		names := []string{"A", "B", "C", "D", "E", "F"}
		var rules []Rule
		for _, name := range names {
			key := name
			rules = append(rules, NewRule(Member(key, nil)).
				Add(NewComponent("stamp", func(vctx *ValidationContext, value any) bool {
					vctx.Set(key, true)
					return true
				})))
		}

		vctx := NewValidationContext(nil)
		err := NewExecutor().RunConcurrent(context.Background(), rules, vctx)
		require.NoError(t, err)

		for _, name := range names {
			_, ok := vctx.Get(name)
			assert.True(t, ok, "branch %s must see its state write", name)
		}
	})

	t.Run("DependentsStaySequentialWithinBranch", func(t *testing.T) {
		dep := NewRule(Member("A-dep", nil)).Add(NewComponent("fail", failAlways))
		parent := NewRule(Member("A", nil)).
			Add(NewComponent("pass", passAlways)).
			DependsOn(dep)

		vctx := NewValidationContext(nil)
		err := NewExecutor().RunConcurrent(context.Background(), []Rule{parent}, vctx)
		require.NoError(t, err)

		require.Len(t, vctx.Failures(), 1)
		assert.Equal(t, "A-dep", vctx.Failures()[0].PropertyName)
	})
}

func TestRuleExecutor_Tracing(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	rule := NewRule(Member("Name", nil)).
		InRuleSets("Names").
		Add(NewComponent("check", passAlways))

	vctx := NewValidationContext(nil) // "Names" not selected
	err := NewExecutor(WithLogger(zap.New(core))).Run([]Rule{rule}, vctx)
	require.NoError(t, err)

	entries := logs.FilterMessage("rule skipped by rule-set selection").All()
	require.Len(t, entries, 1)
	assert.Equal(t, vctx.RunID.String(), entries[0].ContextMap()["run_id"])
}
