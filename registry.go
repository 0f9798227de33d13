package fluent

import (
	"context"
	"errors"
	"reflect"
	"sync"
)

///////////////////////////////////////////////////////////////////////////////
// Errors
///////////////////////////////////////////////////////////////////////////////

var (
	ErrValidatorAlreadyRegistered = errors.New("a validator for this type is already registered")
	ErrNoValidatorRegistered      = errors.New("no validator registered for this type")
)

///////////////////////////////////////////////////////////////////////////////
// Registry
///////////////////////////////////////////////////////////////////////////////

// Registry maps value types to their Validator so hosts can register the
// rule set for each type once and validate values without holding on to
// individual validators.
//
// The Registry is thread-safe and can be used concurrently across multiple
// goroutines.
type Registry struct {
	mu         sync.RWMutex
	validators map[reflect.Type]*Validator
}

func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[reflect.Type]*Validator),
	}
}

// Register binds a validator to prototype's dynamic type.
func (reg *Registry) Register(prototype any, v *Validator) error {
	t := reflect.TypeOf(prototype)

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.validators[t]; exists {
		return ErrValidatorAlreadyRegistered
	}

	reg.validators[t] = v
	return nil
}

// ValidatorFor retrieves the validator registered for value's dynamic type.
func (reg *Registry) ValidatorFor(value any) (*Validator, error) {
	t := reflect.TypeOf(value)

	reg.mu.RLock()
	v, exists := reg.validators[t]
	reg.mu.RUnlock()

	if !exists {
		return nil, ErrNoValidatorRegistered
	}
	return v, nil
}

// Validate looks up the validator for value's type and runs it.
func (reg *Registry) Validate(value any, opts ...ContextOption) (*Result, error) {
	v, err := reg.ValidatorFor(value)
	if err != nil {
		return nil, err
	}
	return v.Validate(value, opts...)
}

// ValidateAsync looks up the validator for value's type and runs it on the
// async path.
func (reg *Registry) ValidateAsync(ctx context.Context, value any, opts ...ContextOption) (*Result, error) {
	v, err := reg.ValidatorFor(value)
	if err != nil {
		return nil, err
	}
	return v.ValidateAsync(ctx, value, opts...)
}

///////////////////////////////////////////////////////////////////////////////
// Global Singleton and Package Functions
///////////////////////////////////////////////////////////////////////////////

var _globalRegistry = NewRegistry()

// Package-level functions that delegate to the global registry

// Register binds a validator to prototype's dynamic type on the global
// registry.
func Register(prototype any, v *Validator) error {
	return _globalRegistry.Register(prototype, v)
}

// ValidatorFor retrieves a validator from the global registry.
func ValidatorFor(value any) (*Validator, error) {
	return _globalRegistry.ValidatorFor(value)
}

// Validate validates value using the global registry.
func Validate(value any, opts ...ContextOption) (*Result, error) {
	return _globalRegistry.Validate(value, opts...)
}

// ValidateAsync validates value asynchronously using the global registry.
func ValidateAsync(ctx context.Context, value any, opts ...ContextOption) (*Result, error) {
	return _globalRegistry.ValidateAsync(ctx, value, opts...)
}
