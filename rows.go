package dbmock

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cornjacket/dbmock/projection"
)

var _ pgx.Rows = (*Rows)(nil)

// Rows is a pgx.Rows cursor over a projected table. Values are handed to
// Scan as projected, without a wire encoding round trip.
type Rows struct {
	reader *projection.Reader
	fields []pgconn.FieldDescription
	err    error
	closed bool
}

func newRows(table *projection.Table) *Rows {
	return &Rows{
		reader: table.Reader(),
		fields: fieldDescriptions(table.Columns),
	}
}

// Close closes the rows. It is safe to call more than once.
func (r *Rows) Close() {
	r.closed = true
	r.reader.Close()
}

// Err returns the error that stopped iteration, if any.
func (r *Rows) Err() error {
	return r.err
}

// CommandTag reports the rows read so far as a SELECT tag.
func (r *Rows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag("SELECT " + strconv.Itoa(r.reader.Count()))
}

// FieldDescriptions describes the projected columns.
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription {
	return r.fields
}

// Next advances to the next row and closes the rows when none are left.
func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	if !r.reader.Next() {
		r.Close()
		return false
	}
	return true
}

// Scan copies the current row into dest. A single pgx.RowScanner
// destination scans the row itself; nil destinations are skipped.
func (r *Rows) Scan(dest ...any) error {
	values := r.reader.Values()
	if values == nil {
		err := errors.New("no current row")
		r.fatal(err)
		return err
	}

	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			err := rs.ScanRow(r)
			if err != nil {
				r.fatal(err)
			}
			return err
		}
	}

	if len(r.fields) != len(dest) {
		err := fmt.Errorf("number of field descriptions must equal number of destinations, got %d and %d", len(r.fields), len(dest))
		r.fatal(err)
		return err
	}

	for i, dst := range dest {
		if dst == nil {
			continue
		}
		if err := assign(dst, values[i]); err != nil {
			err = fmt.Errorf("can't scan into dest[%d] (col: %s): %w", i, r.fields[i].Name, err)
			r.fatal(err)
			return err
		}
	}
	return nil
}

// Values returns a copy of the current row.
func (r *Rows) Values() ([]any, error) {
	values := r.reader.Values()
	if values == nil {
		return nil, errors.New("no current row")
	}
	return append([]any(nil), values...), nil
}

// RawValues returns the text form of each cell of the current row; NULL
// cells are nil.
func (r *Rows) RawValues() [][]byte {
	values := r.reader.Values()
	if values == nil {
		return nil
	}
	raw := make([][]byte, len(values))
	for i, v := range values {
		if v != nil {
			raw[i] = fmt.Append(nil, v)
		}
	}
	return raw
}

// Conn returns nil; there is no underlying connection.
func (r *Rows) Conn() *pgx.Conn {
	return nil
}

func (r *Rows) fatal(err error) {
	if r.err != nil {
		return
	}
	r.err = err
	r.Close()
}

// firstRow is the pgx.Row of QueryRow on a query setup.
type firstRow struct {
	rows *Rows
}

func (r *firstRow) Scan(dest ...any) error {
	defer r.rows.Close()

	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return pgx.ErrNoRows
	}

	if err := r.rows.Scan(dest...); err != nil {
		return err
	}

	r.rows.Close()
	return r.rows.Err()
}

// scalarRow is the pgx.Row of QueryRow on a scalar setup. A null value scans
// as the zero value of the destination.
type scalarRow struct {
	value any
}

func (r scalarRow) Scan(dest ...any) error {
	if len(dest) != 1 {
		return fmt.Errorf("number of field descriptions must equal number of destinations, got 1 and %d", len(dest))
	}
	if dest[0] == nil {
		return nil
	}

	if isNull(r.value) {
		if _, ok := dest[0].(sql.Scanner); !ok {
			dv := reflect.ValueOf(dest[0])
			if dv.Kind() != reflect.Pointer || dv.IsNil() {
				return fmt.Errorf("%w: destination %T is not a non-nil pointer", ErrTypeMismatch, dest[0])
			}
			dv.Elem().SetZero()
			return nil
		}
	}
	return assign(dest[0], r.value)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}

// isNull reports whether v is nil or a nil pointer.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// assign stores src in the value dest points to.
func assign(dest, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("%w: destination %T is not a non-nil pointer", ErrTypeMismatch, dest)
	}
	return assignValue(dv.Elem(), src)
}

func assignValue(dv reflect.Value, src any) error {
	if src != nil {
		sv := reflect.ValueOf(src)
		if sv.Type().AssignableTo(dv.Type()) {
			if isBytes(sv.Type()) {
				sv = reflect.ValueOf(bytes.Clone(sv.Bytes())).Convert(sv.Type())
			}
			dv.Set(sv)
			return nil
		}
	}

	if dv.CanAddr() {
		if s, ok := dv.Addr().Interface().(sql.Scanner); ok {
			return s.Scan(driverValue(src))
		}
	}

	if isNull(src) {
		switch dv.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
			dv.SetZero()
			return nil
		}
		return fmt.Errorf("%w: cannot scan NULL into %s", ErrTypeMismatch, dv.Type())
	}

	sv := reflect.ValueOf(src)
	if sv.Kind() == reflect.Pointer {
		return assignValue(dv, sv.Elem().Interface())
	}

	if dv.Kind() == reflect.Pointer {
		nv := reflect.New(dv.Type().Elem())
		if err := assignValue(nv.Elem(), src); err != nil {
			return err
		}
		dv.Set(nv)
		return nil
	}

	return convert(dv, sv)
}

// driverValue converts v to a database/sql driver value for sql.Scanner
// destinations. Values without a driver form are passed through.
func driverValue(v any) any {
	if v == nil {
		return nil
	}
	if dv, err := driver.DefaultParameterConverter.ConvertValue(v); err == nil {
		return dv
	}
	return v
}

// convert copies sv into dv across types of the same family: integers and
// floats with range checks, strings and byte slices, booleans.
func convert(dv, sv reflect.Value) error {
	mismatch := func() error {
		return fmt.Errorf("%w: cannot scan %s into %s", ErrTypeMismatch, sv.Type(), dv.Type())
	}
	overflow := func() error {
		return fmt.Errorf("%w: %v overflows %s", ErrTypeMismatch, sv.Interface(), dv.Type())
	}

	switch dv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch {
		case isInt(sv.Kind()):
			n = sv.Int()
		case isUint(sv.Kind()):
			u := sv.Uint()
			if u > math.MaxInt64 {
				return overflow()
			}
			n = int64(u)
		case isFloat(sv.Kind()):
			f := sv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return overflow()
			}
			n = int64(f)
		default:
			return mismatch()
		}
		if dv.OverflowInt(n) {
			return overflow()
		}
		dv.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		switch {
		case isInt(sv.Kind()):
			n := sv.Int()
			if n < 0 {
				return overflow()
			}
			u = uint64(n)
		case isUint(sv.Kind()):
			u = sv.Uint()
		case isFloat(sv.Kind()):
			f := sv.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return overflow()
			}
			u = uint64(f)
		default:
			return mismatch()
		}
		if dv.OverflowUint(u) {
			return overflow()
		}
		dv.SetUint(u)

	case reflect.Float32, reflect.Float64:
		var f float64
		switch {
		case isInt(sv.Kind()):
			f = float64(sv.Int())
		case isUint(sv.Kind()):
			f = float64(sv.Uint())
		case isFloat(sv.Kind()):
			f = sv.Float()
		default:
			return mismatch()
		}
		if dv.OverflowFloat(f) {
			return overflow()
		}
		dv.SetFloat(f)

	case reflect.String:
		switch {
		case sv.Kind() == reflect.String:
			dv.SetString(sv.String())
		case isBytes(sv.Type()):
			dv.SetString(string(sv.Bytes()))
		default:
			return mismatch()
		}

	case reflect.Bool:
		if sv.Kind() != reflect.Bool {
			return mismatch()
		}
		dv.SetBool(sv.Bool())

	case reflect.Slice:
		if !isBytes(dv.Type()) {
			return mismatch()
		}
		var b []byte
		switch {
		case sv.Kind() == reflect.String:
			b = []byte(sv.String())
		case isBytes(sv.Type()):
			b = bytes.Clone(sv.Bytes())
		default:
			return mismatch()
		}
		dv.Set(reflect.ValueOf(b).Convert(dv.Type()))

	default:
		return mismatch()
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}
