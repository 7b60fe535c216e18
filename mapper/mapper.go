// Package mapper provides typed query and execute helpers over a pgx-style
// connection.
//
// Scalar element types are read from the first column of each row. Struct
// and pointer-to-struct element types are matched to columns by name
// (case-insensitive, underscores ignored, "db" struct tag honored); struct
// fields without a column keep their zero value.
//
//	ids, err := mapper.Query[int64](ctx, pool, `SELECT id FROM devices`)
//	dev, err := mapper.QuerySingle[Device](ctx, pool, `SELECT * FROM devices WHERE id = $1`, id)
//	n, err := mapper.Execute(ctx, pool, `DELETE FROM devices WHERE stale`)
package mapper

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cornjacket/dbmock/projection"
)

// ErrUnsupportedType is returned for element types that cannot be mapped from a row.
var ErrUnsupportedType = errors.New("unsupported element type")

// Querier is the connection surface the helpers run on.
// *pgxpool.Pool, *pgx.Conn, pgx.Tx and *dbmock.Conn satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Query returns every row mapped to T.
func Query[T any](ctx context.Context, q Querier, sql string, args ...any) ([]T, error) {
	rowTo, err := rowFunc[T]()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return pgx.CollectRows(rows, rowTo)
}

// QueryFirst returns the first row mapped to T, or pgx.ErrNoRows.
func QueryFirst[T any](ctx context.Context, q Querier, sql string, args ...any) (T, error) {
	var zero T
	rowTo, err := rowFunc[T]()
	if err != nil {
		return zero, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, fmt.Errorf("failed to query: %w", err)
	}
	return pgx.CollectOneRow(rows, rowTo)
}

// QueryFirstOrDefault returns the first row mapped to T, or the zero T when
// there are no rows.
func QueryFirstOrDefault[T any](ctx context.Context, q Querier, sql string, args ...any) (T, error) {
	value, err := QueryFirst[T](ctx, q, sql, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, nil
	}
	return value, err
}

// QuerySingle returns the only row mapped to T. It fails with pgx.ErrNoRows
// or pgx.ErrTooManyRows unless exactly one row is returned.
func QuerySingle[T any](ctx context.Context, q Querier, sql string, args ...any) (T, error) {
	var zero T
	rowTo, err := rowFunc[T]()
	if err != nil {
		return zero, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, fmt.Errorf("failed to query: %w", err)
	}
	return pgx.CollectExactlyOneRow(rows, rowTo)
}

// QuerySingleOrDefault is QuerySingle returning the zero T when there are no rows.
func QuerySingleOrDefault[T any](ctx context.Context, q Querier, sql string, args ...any) (T, error) {
	value, err := QuerySingle[T](ctx, q, sql, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, nil
	}
	return value, err
}

// Execute runs a statement and returns the number of rows it affected.
func Execute(ctx context.Context, q Querier, sql string, args ...any) (int64, error) {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExecuteScalar returns the first column of the first row.
func ExecuteScalar[T any](ctx context.Context, q Querier, sql string, args ...any) (T, error) {
	var value T
	if err := q.QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func rowFunc[T any]() (pgx.RowToFunc[T], error) {
	t := reflect.TypeFor[T]()
	switch {
	case projection.IsScalar(t):
		return pgx.RowTo[T], nil
	case t.Kind() == reflect.Struct:
		return pgx.RowToStructByNameLax[T], nil
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return rowToAddrOfStruct[T], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// rowToAddrOfStruct is pgx.RowToAddrOfStructByNameLax for a T that is itself
// a struct pointer, which pgx's generics cannot express.
func rowToAddrOfStruct[T any](row pgx.CollectableRow) (T, error) {
	var zero T
	ptr := reflect.New(reflect.TypeFor[T]().Elem())

	targets, err := structTargets(ptr.Elem(), row.FieldDescriptions())
	if err != nil {
		return zero, err
	}
	if err := row.Scan(targets...); err != nil {
		return zero, err
	}
	return ptr.Interface().(T), nil
}

// structTargets returns, per column, the address of the field of v it maps
// to. Columns are matched the way pgx matches them for RowToStructByNameLax.
func structTargets(v reflect.Value, fields []pgconn.FieldDescription) ([]any, error) {
	targets := make([]any, len(fields))
	collectTargets(v, fields, targets)
	for i, target := range targets {
		if target == nil {
			return nil, fmt.Errorf("struct doesn't have corresponding row field %s", fields[i].Name)
		}
	}
	return targets, nil
}

func collectTargets(v reflect.Value, fields []pgconn.FieldDescription, targets []any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			collectTargets(v.Field(i), fields, targets)
			continue
		}

		tag, tagged := sf.Tag.Lookup("db")
		tag, _, _ = strings.Cut(tag, ",")
		if tag == "-" {
			continue
		}
		name := sf.Name
		if tagged {
			name = tag
		}

		if pos := columnPos(fields, name, !tagged); pos >= 0 {
			targets[pos] = v.Field(i).Addr().Interface()
		}
	}
}

func columnPos(fields []pgconn.FieldDescription, name string, normalize bool) int {
	if normalize {
		name = strings.ReplaceAll(name, "_", "")
	}
	for i, fd := range fields {
		if normalize {
			if strings.EqualFold(strings.ReplaceAll(fd.Name, "_", ""), name) {
				return i
			}
		} else if fd.Name == name {
			return i
		}
	}
	return -1
}
