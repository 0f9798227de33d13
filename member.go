package fluent

import (
	"reflect"
)

///////////////////////////////////////////////////////////////////////////////
// MemberDescriptor
///////////////////////////////////////////////////////////////////////////////

// Accessor extracts a property value from the root value under validation.
type Accessor func(root any) any

// MemberDescriptor binds a rule to one logical property of the root value:
// a name (used for default display names), the declared type where known,
// and an opaque accessor. The engine never inspects how the accessor was
// built; it only invokes it.
type MemberDescriptor struct {
	Name string
	Type reflect.Type
	Get  Accessor
}

// Member builds a descriptor from an explicit accessor.
func Member(name string, get Accessor) MemberDescriptor {
	return MemberDescriptor{Name: name, Get: get}
}

// MemberOf builds a typed descriptor. The declared member type is captured
// from V, and roots that are not a T (or *T) yield a nil property value
// rather than a panic.
func MemberOf[T any, V any](name string, get func(root T) V) MemberDescriptor {
	return MemberDescriptor{
		Name: name,
		Type: reflect.TypeOf((*V)(nil)).Elem(),
		Get: func(root any) any {
			switch r := root.(type) {
			case T:
				return get(r)
			case *T:
				if r == nil {
					return nil
				}
				return get(*r)
			default:
				return nil
			}
		},
	}
}

// Root builds a descriptor for rules that validate the whole root value
// rather than one of its properties.
func Root(name string) MemberDescriptor {
	return MemberDescriptor{
		Name: name,
		Get:  func(root any) any { return root },
	}
}

// FieldMember builds a descriptor that reads the named exported struct field
// reflectively, dereferencing a pointer root first. A missing field, nil
// root, or non-struct root yields a nil property value.
func FieldMember(name string) MemberDescriptor {
	return MemberDescriptor{
		Name: name,
		Get: func(root any) any {
			value := reflect.ValueOf(root)
			if value.Kind() == reflect.Ptr {
				if value.IsNil() {
					return nil
				}
				value = value.Elem()
			}
			if value.Kind() != reflect.Struct {
				return nil
			}

			field := value.FieldByName(name)
			if !field.IsValid() || !field.CanInterface() {
				return nil
			}
			return field.Interface()
		},
	}
}
