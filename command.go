package dbmock

import (
	"context"
	"fmt"
	"reflect"

	"github.com/stretchr/testify/mock"
)

// Command is the per-call command object a Conn creates. Its execution
// hooks are testify expectations installed by Setup, so every invocation is
// recorded and can be asserted:
//
//	exp.Command().AssertNumberOfCalls(t, "ExecuteReader", 2)
type Command struct {
	mock.Mock

	// Text is the SQL of the most recent call.
	Text string
	// Args is the parameter collection of the most recent call.
	Args []any

	// resultType is the declared result type of scalar setups.
	resultType reflect.Type
}

type (
	readerFunc   func(context.Context) (*Rows, error)
	scalarFunc   func(context.Context) (any, error)
	nonQueryFunc func(context.Context) (int64, error)
)

func newCommand() *Command {
	return &Command{Args: []any{}}
}

// bind sets the command properties for one call.
func (c *Command) bind(sql string, args []any) {
	c.Text = sql
	c.Args = append(c.Args[:0], args...)
}

// ExecuteReader runs the reader hook and returns a cursor over its rows.
func (c *Command) ExecuteReader(ctx context.Context) (*Rows, error) {
	ret := c.Called(ctx)
	fn, ok := ret.Get(0).(readerFunc)
	if !ok {
		return nil, fmt.Errorf("%w: command has no reader hook", ErrOperationMismatch)
	}
	return fn(ctx)
}

// ExecuteScalar runs the scalar hook and returns its value.
func (c *Command) ExecuteScalar(ctx context.Context) (any, error) {
	ret := c.Called(ctx)
	fn, ok := ret.Get(0).(scalarFunc)
	if !ok {
		return nil, fmt.Errorf("%w: command has no scalar hook", ErrOperationMismatch)
	}
	return fn(ctx)
}

// ExecuteNonQuery runs the row-count hook and returns the affected row count.
func (c *Command) ExecuteNonQuery(ctx context.Context) (int64, error) {
	ret := c.Called(ctx)
	fn, ok := ret.Get(0).(nonQueryFunc)
	if !ok {
		return 0, fmt.Errorf("%w: command has no row-count hook", ErrOperationMismatch)
	}
	return fn(ctx)
}
