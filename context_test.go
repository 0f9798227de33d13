package fluent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationContext_State(t *testing.T) {
	vctx := NewValidationContext("root", WithState("tenant", "acme"))

	v, ok := vctx.Get("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	_, ok = vctx.Get("missing")
	assert.False(t, ok)

	vctx.Set("stage", 2)
	v, ok = vctx.Get("stage")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestValidationContext_RunID(t *testing.T) {
	a := NewValidationContext(nil)
	b := NewValidationContext(nil)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestValidationContext_Selects(t *testing.T) {
	cases := []struct {
		name     string
		selector []string
		tags     []string
		want     bool
	}{
		{"UntaggedUnderEmptySelection", nil, nil, true},
		{"TaggedUnderEmptySelection", nil, []string{"Names"}, false},
		{"TagMatch", []string{"Names"}, []string{"Names"}, true},
		{"TagMismatch", []string{"Names"}, []string{"Addresses"}, false},
		{"UntaggedUnderNamedSelection", []string{"Names"}, nil, false},
		{"UntaggedUnderDefaultSelection", []string{DefaultRuleSet}, nil, true},
		{"AllSelectorMatchesTagged", []string{RuleSetAll}, []string{"Names"}, true},
		{"AllSelectorMatchesUntagged", []string{RuleSetAll}, nil, true},
		{"OneOfManyTags", []string{"Audit"}, []string{"Names", "Audit"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vctx := NewValidationContext(nil, WithRuleSets(tc.selector...))
			assert.Equal(t, tc.want, vctx.selects(tc.tags))
		})
	}
}

func TestValidationContext_Fork(t *testing.T) {
	vctx := NewValidationContext("root", WithState("k", "v"), WithRuleSets("Names"))
	vctx.AddFailure(ValidationFailure{PropertyName: "parent"})

	branch := vctx.fork()

	assert.Equal(t, vctx.RunID, branch.RunID)
	assert.Equal(t, "root", branch.Root)
	assert.Equal(t, []string{"Names"}, branch.SelectedRuleSets())
	assert.Empty(t, branch.Failures(), "a fork starts with a private, empty failure buffer")

	v, ok := branch.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	branch.AddFailure(ValidationFailure{PropertyName: "child"})
	assert.Len(t, vctx.Failures(), 1, "branch failures stay private until merged")
}

func TestFailures(t *testing.T) {
	fs := Failures{
		{PropertyName: "Name", Message: "required"},
		{PropertyName: "Email", Message: "invalid"},
		{PropertyName: "Name", Message: "too short"},
	}

	assert.True(t, fs.Has("Name"))
	assert.False(t, fs.Has("Phone"))
	assert.Equal(t, []string{"required", "too short"}, fs.Messages("Name"))
	assert.Equal(t, []string{"Name", "Email"}, fs.Properties())
	assert.False(t, fs.IsEmpty())
	assert.Contains(t, fs.Error(), "Name: required")

	assert.Equal(t, "validation failed", Failures{}.Error())
}
