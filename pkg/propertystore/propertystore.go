// Package propertystore implements the PropertyStore & Derived Accessors of
// spec.md section 4.2: objects register typed properties by name, either
// bound directly to a field or computed through a getter/setter pair, and
// the bus boundary dispatches a single untyped variant to the correctly
// typed setter. It is grounded on the teacher's pkg/model.Attribute, which
// carries the same "registered typed slot with type-checked write" idea,
// reworked here with generics so each property keeps its own concrete Go
// type instead of a runtime DataType tag.
package propertystore

import (
	"fmt"
	"sync"

	"github.com/shillgo/shillgo/pkg/shillerr"
)

// accessor is the type-erased form every registered property is reduced to.
type accessor struct {
	get func() any
	// set is nil for a read-only (no-setter) derived property.
	set func(any) error
}

// Store is a named registry of typed properties.
type Store struct {
	mu    sync.RWMutex
	props map[string]accessor
	order []string
}

// New creates an empty Store.
func New() *Store {
	return &Store{props: make(map[string]accessor)}
}

// Register binds name directly to the memory pointed to by ptr: Get reads
// through the pointer, Set writes through it after a type check.
func Register[T any](s *Store, name string, ptr *T) {
	register(s, name, accessor{
		get: func() any { return *ptr },
		set: func(v any) error {
			tv, err := assertType[T](name, v)
			if err != nil {
				return err
			}
			*ptr = tv
			return nil
		},
	})
}

// RegisterDerived binds name to getter/setter closures. A nil setter makes
// the property read-only: DispatchOnType on it yields InvalidArguments.
func RegisterDerived[T any](s *Store, name string, getter func() T, setter func(T) error) {
	var set func(any) error
	if setter != nil {
		set = func(v any) error {
			tv, err := assertType[T](name, v)
			if err != nil {
				return err
			}
			return setter(tv)
		}
	}
	register(s, name, accessor{
		get: func() any { return getter() },
		set: set,
	})
}

func register(s *Store, name string, a accessor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.props[name]; !exists {
		s.order = append(s.order, name)
	}
	s.props[name] = a
}

func assertType[T any](name string, v any) (T, error) {
	tv, ok := v.(T)
	if !ok {
		var zero T
		return zero, shillerr.New(shillerr.InvalidArguments, fmt.Sprintf("property %q: value type mismatch", name))
	}
	return tv, nil
}

// DispatchOnType routes a bus-supplied variant to the setter registered for
// name, type-checking it against the property's concrete Go type. Unknown
// properties yield InvalidProperty; read-only properties and type
// mismatches yield InvalidArguments.
func (s *Store) DispatchOnType(name string, variant any) error {
	s.mu.RLock()
	a, ok := s.props[name]
	s.mu.RUnlock()

	if !ok {
		return shillerr.New(shillerr.InvalidProperty, fmt.Sprintf("no such property %q", name))
	}
	if a.set == nil {
		return shillerr.New(shillerr.InvalidArguments, fmt.Sprintf("property %q is read-only", name))
	}
	return a.set(variant)
}

// Get returns the current value of name and whether it is registered.
func (s *Store) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.props[name]
	if !ok {
		return nil, false
	}
	return a.get(), true
}

// GetProperties enumerates every registered property in registration order
// and serialises it to the variant space (any).
func (s *Store) GetProperties() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.props))
	for _, name := range s.order {
		out[name] = s.props[name].get()
	}
	return out
}

// Names returns the registered property names in registration order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}
