package dbmock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"

	"github.com/cornjacket/dbmock/projection"
)

// DB returns a database/sql handle served by c's setups, for code written
// against *sql.DB instead of a pgx connection. Prepared statements and
// transactions are not supported.
func (c *Conn) DB() *sql.DB {
	return sql.OpenDB(connector{conn: c})
}

type connector struct {
	conn *Conn
}

func (k connector) Connect(context.Context) (driver.Conn, error) {
	return &driverConn{conn: k.conn}, nil
}

func (k connector) Driver() driver.Driver {
	return sqlDriver{connector: k}
}

type sqlDriver struct {
	connector connector
}

func (d sqlDriver) Open(string) (driver.Conn, error) {
	return d.connector.Connect(context.Background())
}

var (
	_ driver.QueryerContext = (*driverConn)(nil)
	_ driver.ExecerContext  = (*driverConn)(nil)
)

type driverConn struct {
	conn *Conn
}

func (dc *driverConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("%w: prepared statements", ErrUnsupportedOperation)
}

func (dc *driverConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("%w: transactions", ErrUnsupportedOperation)
}

func (dc *driverConn) Close() error {
	return nil
}

func (dc *driverConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cmd, op, err := dc.conn.command(ctx, query, namedArgs(args))
	if err != nil {
		return nil, err
	}

	switch {
	case op.readsRows():
		rows, err := cmd.ExecuteReader(ctx)
		if err != nil {
			return nil, err
		}
		return &driverRows{reader: rows.reader}, nil
	case op == OpExecuteScalar:
		value, err := cmd.ExecuteScalar(ctx)
		if err != nil {
			return nil, err
		}
		return &driverRows{reader: projection.Single(cmd.resultType, value).Reader()}, nil
	}

	return nil, fmt.Errorf("%w: query on a connection set up for %s", ErrOperationMismatch, op)
}

func (dc *driverConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cmd, op, err := dc.conn.command(ctx, query, namedArgs(args))
	if err != nil {
		return nil, err
	}
	if op != OpExecute {
		return nil, fmt.Errorf("%w: exec on a connection set up for %s", ErrOperationMismatch, op)
	}

	n, err := cmd.ExecuteNonQuery(ctx)
	if err != nil {
		return nil, err
	}
	return driver.RowsAffected(n), nil
}

func namedArgs(args []driver.NamedValue) []any {
	values := make([]any, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	return values
}

var (
	_ driver.RowsColumnTypeScanType         = (*driverRows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*driverRows)(nil)
	_ driver.RowsColumnTypeNullable         = (*driverRows)(nil)
)

type driverRows struct {
	reader *projection.Reader
}

func (r *driverRows) Columns() []string {
	columns := r.reader.Columns()
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func (r *driverRows) Close() error {
	r.reader.Close()
	return nil
}

func (r *driverRows) Next(dest []driver.Value) error {
	if !r.reader.Next() {
		return io.EOF
	}
	for i, v := range r.reader.Values() {
		dest[i] = driverValue(v)
	}
	return nil
}

var anyType = reflect.TypeFor[any]()

func (r *driverRows) ColumnTypeScanType(index int) reflect.Type {
	t := r.reader.Columns()[index].Type
	if t == nil || t.Kind() == reflect.Interface {
		return anyType
	}
	return t
}

func (r *driverRows) ColumnTypeDatabaseTypeName(index int) string {
	return databaseTypeName(r.reader.Columns()[index].Type)
}

func (r *driverRows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.reader.Columns()[index].Nullable, true
}
