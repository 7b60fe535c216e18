package projection

import (
	"database/sql/driver"
	"math/big"
	"reflect"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Types that are stored directly in a column even though their kind alone
// would not qualify them.
var matchingTypes = map[reflect.Type]bool{
	reflect.TypeFor[time.Time]():          true,
	reflect.TypeFor[time.Duration]():      true,
	reflect.TypeFor[uuid.UUID]():          true,
	reflect.TypeFor[*big.Int]():           true,
	reflect.TypeFor[*big.Float]():         true,
	reflect.TypeFor[*big.Rat]():           true,
	reflect.TypeFor[pgtype.Numeric]():     true,
	reflect.TypeFor[pgtype.UUID]():        true,
	reflect.TypeFor[pgtype.Timestamp]():   true,
	reflect.TypeFor[pgtype.Timestamptz](): true,
	reflect.TypeFor[pgtype.Date]():        true,
	reflect.TypeFor[pgtype.Interval]():    true,
}

var valuerType = reflect.TypeFor[driver.Valuer]()

// Matches reports whether values of t can be stored in a column as they are.
// Defined types with a basic kind (type Status int) count as enumerated
// values.
func Matches(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if matchingTypes[t] {
		return true
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}

// Unwrap returns the type wrapped by a nullable type. Pointers unwrap to
// their element; sql.Null*-style structs (a driver.Valuer holding a Valid
// bool and one value field) unwrap to the value field's type.
func Unwrap(t reflect.Type) (reflect.Type, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		return t.Elem(), true
	}
	if f, ok := nullValueField(t); ok {
		return t.Field(f).Type, true
	}
	return nil, false
}

// StorageType returns the type a column of t stores and whether t was a
// nullable wrapper around it.
func StorageType(t reflect.Type) (reflect.Type, bool) {
	if Matches(t) {
		return t, false
	}
	if inner, ok := Unwrap(t); ok {
		return inner, true
	}
	return t, false
}

// IsScalar reports whether t projects to a single unnamed column.
func IsScalar(t reflect.Type) bool {
	if t != nil && t.Kind() == reflect.Interface {
		return true
	}
	storage, _ := StorageType(t)
	return Matches(storage)
}

// nullValueField returns the index of the value field of a sql.Null*-style
// struct.
func nullValueField(t reflect.Type) (int, bool) {
	if t.Kind() != reflect.Struct || t.NumField() != 2 {
		return 0, false
	}
	if !t.Implements(valuerType) && !reflect.PointerTo(t).Implements(valuerType) {
		return 0, false
	}

	valid, value := -1, -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			return 0, false
		}
		if f.Name == "Valid" && f.Type.Kind() == reflect.Bool {
			valid = i
		} else {
			value = i
		}
	}
	if valid == -1 || value == -1 {
		return 0, false
	}
	return value, true
}

// unwrapValue returns the value held by v, nil when v is a nil pointer or an
// invalid null struct.
func unwrapValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	t := v.Type()
	if Matches(t) {
		if t.Kind() == reflect.Pointer && v.IsNil() {
			return nil
		}
		return v.Interface()
	}

	switch {
	case t.Kind() == reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return v.Elem().Interface()
	case t.Kind() == reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return unwrapValue(v.Elem())
	}

	if f, ok := nullValueField(t); ok {
		if !v.FieldByName("Valid").Bool() {
			return nil
		}
		return v.Field(f).Interface()
	}
	return v.Interface()
}
