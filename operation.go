package dbmock

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/cornjacket/dbmock/mapper"
)

// Operation identifies the mapper call a setup emulates.
type Operation int

// Operations offered by the mapper package.
const (
	OpQuery Operation = iota + 1
	OpQueryFirst
	OpQueryFirstOrDefault
	OpQuerySingle
	OpQuerySingleOrDefault
	OpExecute
	OpExecuteScalar
)

var operationNames = map[Operation]string{
	OpQuery:                "Query",
	OpQueryFirst:           "QueryFirst",
	OpQueryFirstOrDefault:  "QueryFirstOrDefault",
	OpQuerySingle:          "QuerySingle",
	OpQuerySingleOrDefault: "QuerySingleOrDefault",
	OpExecute:              "Execute",
	OpExecuteScalar:        "ExecuteScalar",
}

// String returns the mapper function name of the operation.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ParseOperation returns the operation for a mapper function name.
func ParseOperation(name string) (Operation, error) {
	for op, n := range operationNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedOperation, name)
}

// readsRows reports whether the operation reads its result through a cursor.
func (o Operation) readsRows() bool {
	switch o {
	case OpQuery, OpQueryFirst, OpQueryFirstOrDefault, OpQuerySingle, OpQuerySingleOrDefault:
		return true
	}
	return false
}

// singleValue reports whether the operation produces exactly one value.
func (o Operation) singleValue() bool {
	return o == OpExecute || o == OpExecuteScalar
}

var mapperPackage = reflect.TypeFor[mapper.Querier]().PkgPath()

// operationOf recovers the operation from a mapper function value such as
// mapper.Query[Device] and checks that its result type fits T.
func operationOf[T any](call any) (Operation, error) {
	v := reflect.ValueOf(call)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return 0, fmt.Errorf("%w: %T is not a function", ErrMalformedCall, call)
	}

	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return 0, fmt.Errorf("%w: cannot resolve function symbol", ErrMalformedCall)
	}

	pkg, name := splitSymbol(fn.Name())
	if strings.Contains(name, ".") {
		return 0, fmt.Errorf("%w: %s is not a direct mapper function", ErrMalformedCall, fn.Name())
	}
	if pkg != mapperPackage {
		return 0, fmt.Errorf("%w: %s is not a mapper function", ErrUnsupportedOperation, fn.Name())
	}

	op, err := ParseOperation(name)
	if err != nil {
		return 0, err
	}

	ft := v.Type()
	want := reflect.TypeFor[T]()
	if op == OpQuery {
		want = reflect.TypeFor[[]T]()
	}
	if ft.NumOut() != 2 || ft.Out(0) != want {
		return 0, fmt.Errorf("%w: %s does not return %s", ErrUnsupportedOperation, fn.Name(), want)
	}

	return op, nil
}

// splitSymbol splits a runtime function symbol into its package path and
// the remaining name, dropping generic type arguments.
func splitSymbol(symbol string) (pkg, name string) {
	var b strings.Builder
	depth := 0
	for _, r := range symbol {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	clean := b.String()

	slash := strings.LastIndex(clean, "/")
	dot := strings.Index(clean[slash+1:], ".")
	if dot < 0 {
		return clean, ""
	}
	return clean[:slash+1+dot], clean[slash+1+dot+1:]
}
