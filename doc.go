// Package fluent provides a rule-based validation execution engine: given a
// value, it evaluates declaratively composed rules against properties of
// that value and produces an ordered collection of validation failures.
//
// The engine is built from four pieces:
//   - RuleComponent: one validator predicate plus its own guarding
//     conditions and failure factories
//   - ValidationRule: an ordered component chain bound to one logical
//     property, with a cascade mode, rule-level conditions, and dependent
//     rules that run only when the rule passed
//   - CollectionRule: a rule that expands an enumerable property
//     element-by-element with position-aware failure names ("Items[2]")
//   - RuleExecutor: walks a rule list against a ValidationContext, applying
//     rule-set filtering, cascade short-circuiting, and dependent gating
//
// Rules are configured through builder methods and seal themselves at first
// execution; after that the rule graph is read-only and safe to share
// across concurrent validation runs.
//
// Every rule graph runs on three interchangeable paths:
//   - Run: fully synchronous; async-only components fail fast
//   - RunAsync: cooperative suspension at async conditions and predicates,
//     with cancellation checked at rule and component boundaries
//   - RunConcurrent: independent top-level rules in parallel, with failure
//     ordering kept deterministic by merging per-branch buffers in
//     declaration order
//
// Predicates are opaque callables; the engine never interprets them and
// never sandboxes them. A predicate fault (error on the async path, panic on
// the sync path) abandons the run and propagates unmodified.
//
// Member access is equally opaque: rules are bound through a
// MemberDescriptor holding a name and an accessor function. Helpers exist
// for explicit accessors (Member, MemberOf), reflective struct fields
// (FieldMember), whole-value rules (Root), and gjson paths over raw JSON
// documents (JSONMember).
//
// For hosts that want an entry point per type, Validator groups the rule
// list for one logical type behind Validate/ValidateAsync, and Registry
// maps value types to validators, with package-level functions delegating
// to a global registry.
package fluent
