// Package projection turns a sequence of typed values into a generic table
// of rows and columns.
//
// Scalar element types (booleans, numbers, strings, times, GUIDs, byte
// slices, enumerated values and nullable wrappers around them) project to a
// single unnamed column. Struct element types project to one column per
// exported field whose type is eligible; other fields are left out.
//
//	table, err := projection.Project([]int{7, 77, 777})
//	// one column "", three rows
//
//	r := table.Reader()
//	for r.Next() {
//		v := r.Value(0)
//	}
package projection

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNullElement is returned when a struct-typed sequence holds a nil element.
	ErrNullElement = errors.New("null element in composite result sequence")

	// ErrUnsupportedType is returned for element types that have no columns.
	ErrUnsupportedType = errors.New("unsupported element type")
)

// Column describes one column of a Table.
type Column struct {
	// Name is the member name; empty for scalar projections.
	Name string
	// Type is the storage type of the column's values.
	Type reflect.Type
	// Nullable is set when the member was a nullable wrapper.
	Nullable bool
}

// Table is the projected result set. Every row has one cell per column.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Reader returns a forward-only cursor over the table's rows.
func (t *Table) Reader() *Reader {
	return &Reader{table: t, pos: -1}
}

// Single returns a one-column table holding v as its only row.
func Single(t reflect.Type, v any) *Table {
	storage, nullable := StorageType(t)
	return &Table{
		Columns: []Column{{Type: storage, Nullable: nullable}},
		Rows:    [][]any{{unwrapValue(reflect.ValueOf(v))}},
	}
}

// Projector projects result sequences using a Deriver.
type Projector struct {
	deriver Deriver
}

// Option configures a Projector.
type Option func(*Projector)

// WithDeriver replaces the reflection-based column discovery.
func WithDeriver(d Deriver) Option {
	return func(p *Projector) {
		p.deriver = d
	}
}

// New creates a Projector.
func New(opts ...Option) *Projector {
	p := &Projector{deriver: Reflect{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultProjector = New()

// Project projects values using the reflection deriver.
func Project[T any](values []T) (*Table, error) {
	return ProjectWith(defaultProjector, values)
}

// ProjectWith projects values using p.
func ProjectWith[T any](p *Projector, values []T) (*Table, error) {
	return p.Project(reflect.TypeFor[T](), reflect.ValueOf(values))
}

// Project projects the slice values, whose elements are of elemType.
func (p *Projector) Project(elemType reflect.Type, values reflect.Value) (*Table, error) {
	members, err := p.deriver.Derive(elemType)
	if err != nil {
		return nil, fmt.Errorf("failed to derive columns of %s: %w", elemType, err)
	}

	table := &Table{Columns: make([]Column, len(members))}
	for i, m := range members {
		table.Columns[i] = m.Column
	}

	if !values.IsValid() || values.Kind() == reflect.Slice && values.IsNil() {
		return table, nil
	}
	if values.Kind() != reflect.Slice && values.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: result sequence is %s, not a slice", ErrUnsupportedType, values.Type())
	}

	table.Rows = make([][]any, 0, values.Len())
	for i := 0; i < values.Len(); i++ {
		elem := values.Index(i)
		row := make([]any, len(members))
		for j, m := range members {
			v, err := m.Get(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to project element %d: %w", i, err)
			}
			row[j] = v
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
