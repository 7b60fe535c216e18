package dbmock

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/cornjacket/dbmock/projection"
)

// Expectation configures the result of a setup. The result can be set once;
// its callback runs again on every call, so a Conn never caches results.
type Expectation[T any] struct {
	op   Operation
	cmd  *Command
	cell *resultCell[T]
}

// Returns sets a fixed result. Execute and ExecuteScalar setups take exactly
// one value.
func (e *Expectation[T]) Returns(values ...T) error {
	if e.op.singleValue() && len(values) != 1 {
		return fmt.Errorf("%w: %s returns exactly one value, got %d", ErrInvalidResult, e.op, len(values))
	}
	fixed := slices.Clone(values)
	return e.cell.store(func() []T { return fixed })
}

// ReturnsFunc sets a callback producing the result sequence.
func (e *Expectation[T]) ReturnsFunc(fn func() []T) error {
	if fn == nil {
		return fmt.Errorf("%w: nil result callback", ErrInvalidResult)
	}
	return e.cell.store(fn)
}

// ReturnsValueFunc sets a callback producing a single value.
func (e *Expectation[T]) ReturnsValueFunc(fn func() T) error {
	if fn == nil {
		return fmt.Errorf("%w: nil result callback", ErrInvalidResult)
	}
	return e.cell.store(func() []T { return []T{fn()} })
}

// Operation returns the operation the setup emulates.
func (e *Expectation[T]) Operation() Operation {
	return e.op
}

// Command returns the mocked command, for asserting on its calls.
func (e *Expectation[T]) Command() *Command {
	return e.cmd
}

// Setup installs op on c for element type T, replacing any previous setup.
// Execute setups need T to be int64 or int.
func Setup[T any](c *Conn, op Operation) (*Expectation[T], error) {
	c.ensureDefaults()
	e := &Expectation[T]{op: op, cmd: newCommand(), cell: &resultCell[T]{}}

	switch {
	case op.readsRows():
		queryCommand(c.projector, e)
	case op == OpExecute:
		if err := executeCommand(e); err != nil {
			return nil, err
		}
	case op == OpExecuteScalar:
		scalarCommand(e)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, op)
	}

	c.install(op, e.cmd)
	return e, nil
}

// SetupCall installs the operation of a mapper function on c:
//
//	exp, err := dbmock.SetupCall[Device](conn, mapper.QuerySingle[Device])
//
// call must be the mapper function itself instantiated with T.
func SetupCall[T any](c *Conn, call any) (*Expectation[T], error) {
	op, err := operationOf[T](call)
	if err != nil {
		return nil, err
	}
	return Setup[T](c, op)
}

func queryCommand[T any](p *projection.Projector, e *Expectation[T]) {
	e.cmd.On("ExecuteReader", mock.Anything).Return(readerFunc(func(context.Context) (*Rows, error) {
		values, err := e.cell.load()
		if err != nil {
			return nil, err
		}
		table, err := projection.ProjectWith(p, values)
		if err != nil {
			return nil, err
		}
		return newRows(table), nil
	}))
}

var (
	int64Type = reflect.TypeFor[int64]()
	intType   = reflect.TypeFor[int]()
)

func executeCommand[T any](e *Expectation[T]) error {
	if t := reflect.TypeFor[T](); t != int64Type && t != intType {
		return fmt.Errorf("%w: %s needs an int64 or int result, not %s", ErrUnsupportedOperation, e.op, t)
	}

	e.cmd.On("ExecuteNonQuery", mock.Anything).Return(nonQueryFunc(func(context.Context) (int64, error) {
		value, err := e.cell.single(e.op)
		if err != nil {
			return 0, err
		}
		return reflect.ValueOf(value).Int(), nil
	}))
	return nil
}

func scalarCommand[T any](e *Expectation[T]) {
	e.cmd.resultType = reflect.TypeFor[T]()
	e.cmd.On("ExecuteScalar", mock.Anything).Return(scalarFunc(func(context.Context) (any, error) {
		value, err := e.cell.single(e.op)
		if err != nil {
			return nil, err
		}
		return value, nil
	}))
}

// resultCell holds the result callback of one setup. It is written once.
type resultCell[T any] struct {
	mu sync.Mutex
	fn func() []T
}

var errNoValues = errors.New("result callback returned no values")

func (c *resultCell[T]) store(fn func() []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fn != nil {
		return ErrResultAlreadySet
	}
	c.fn = fn
	return nil
}

func (c *resultCell[T]) load() ([]T, error) {
	c.mu.Lock()
	fn := c.fn
	c.mu.Unlock()

	if fn == nil {
		return nil, ErrNoResult
	}
	return fn(), nil
}

func (c *resultCell[T]) single(op Operation) (T, error) {
	var zero T
	values, err := c.load()
	if err != nil {
		return zero, err
	}
	switch len(values) {
	case 1:
		return values[0], nil
	case 0:
		return zero, fmt.Errorf("%w: %s: %w", ErrInvalidResult, op, errNoValues)
	}
	return zero, fmt.Errorf("%w: %s returns exactly one value, got %d", ErrInvalidResult, op, len(values))
}
