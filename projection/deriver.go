package projection

import (
	"fmt"
	"reflect"
	"strings"
)

const structTagKey = "db"

// Member is a column together with the accessor that reads its cell from an
// element of the result sequence.
type Member struct {
	Column
	Get func(elem reflect.Value) (any, error)
}

// Deriver discovers the columns of an element type.
type Deriver interface {
	Derive(t reflect.Type) ([]Member, error)
}

// Reflect derives columns through reflection. Scalar types get a single
// unnamed column; struct types get one column per exported field whose
// storage type matches, in declaration order, with embedded structs
// flattened in place.
type Reflect struct{}

// Derive implements Deriver.
func (Reflect) Derive(t reflect.Type) ([]Member, error) {
	if IsScalar(t) {
		storage, nullable := StorageType(t)
		if t.Kind() == reflect.Interface {
			storage, nullable = t, true
		}
		return []Member{{
			Column: Column{Type: storage, Nullable: nullable},
			Get: func(elem reflect.Value) (any, error) {
				return unwrapValue(elem), nil
			},
		}}, nil
	}

	structType, _ := StorageType(t)
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	var members []Member
	collectFields(structType, nil, &members)
	return members, nil
}

func collectFields(t reflect.Type, path []int, members *[]Member) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fieldPath := append(append([]int(nil), path...), i)

		// Embedded structs are flattened whether exported or not, the same
		// way pgx resolves struct fields by name.
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			collectFields(sf.Type, fieldPath, members)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		name := sf.Name
		if tag, ok := sf.Tag.Lookup(structTagKey); ok {
			tag, _, _ = strings.Cut(tag, ",")
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}

		storage, nullable := StorageType(sf.Type)
		if !Matches(storage) {
			continue
		}

		*members = append(*members, Member{
			Column: Column{Name: name, Type: storage, Nullable: nullable},
			Get:    fieldGetter(fieldPath),
		})
	}
}

func fieldGetter(path []int) func(reflect.Value) (any, error) {
	return func(elem reflect.Value) (any, error) {
		for elem.Kind() == reflect.Pointer || elem.Kind() == reflect.Interface {
			if elem.IsNil() {
				return nil, ErrNullElement
			}
			elem = elem.Elem()
		}
		return unwrapValue(elem.FieldByIndex(path)), nil
	}
}
