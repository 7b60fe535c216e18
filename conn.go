package dbmock

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/cornjacket/dbmock/internal/config"
	"github.com/cornjacket/dbmock/mapper"
	"github.com/cornjacket/dbmock/projection"
)

var _ mapper.Querier = (*Conn)(nil)

// Conn is a mock database connection. It satisfies mapper.Querier, so code
// written against *pgxpool.Pool through the mapper helpers can be handed a
// Conn in tests. Results come from the most recent Setup.
//
// A zero Conn is ready to use with the defaults New applies.
type Conn struct {
	mock.Mock

	once      sync.Once
	logger    *slog.Logger
	projector *projection.Projector
	logSQL    bool

	mu     sync.Mutex
	op     Operation
	create *mock.Call
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for setup and command records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithProjector sets the projector query setups use to build result rows.
func WithProjector(p *projection.Projector) Option {
	return func(c *Conn) {
		c.projector = p
	}
}

// New creates a Conn with no setup. Logging defaults come from the
// DBMOCK_LOG_* environment variables.
func New(opts ...Option) *Conn {
	c := &Conn{}
	for _, opt := range opts {
		opt(c)
	}
	c.ensureDefaults()
	return c
}

// ensureDefaults fills in the logger and projector not set by options.
func (c *Conn) ensureDefaults() {
	c.once.Do(func() {
		logger, cfg := config.Logger()
		c.logSQL = cfg.LogSQL
		if c.logger == nil {
			c.logger = logger
		}
		c.logger = c.logger.With("component", "dbmock")
		if c.projector == nil {
			c.projector = projection.New()
		}
	})
}

// CreateCommand returns the command installed by the current setup.
func (c *Conn) CreateCommand() *Command {
	ret := c.Called()
	cmd, _ := ret.Get(0).(*Command)
	return cmd
}

// install makes cmd the command every subsequent call is served by,
// replacing the previous setup.
func (c *Conn) install(op Operation, cmd *Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.create != nil {
		c.create.Unset()
	}
	c.op = op
	c.create = c.On("CreateCommand").Return(cmd)

	c.logger.Debug("setup installed", "operation", op.String())
}

// command creates the command for one intercepted call and binds its text
// and arguments.
func (c *Conn) command(ctx context.Context, sql string, args []any) (*Command, Operation, error) {
	c.ensureDefaults()

	c.mu.Lock()
	op := c.op
	c.mu.Unlock()

	if op == 0 {
		return nil, 0, ErrNotConfigured
	}

	cmd := c.CreateCommand()
	cmd.bind(sql, args)

	attrs := []any{"operation", op.String(), "args", len(args)}
	if c.logSQL {
		attrs = append(attrs, "sql", sql)
	}
	c.logger.DebugContext(ctx, "command intercepted", attrs...)

	return cmd, op, nil
}

// Query returns the rows of a query setup.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	cmd, op, err := c.command(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	if !op.readsRows() {
		return nil, fmt.Errorf("%w: query on a connection set up for %s", ErrOperationMismatch, op)
	}

	rows, err := cmd.ExecuteReader(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow returns the value of a scalar setup, or the first row of a query
// setup.
func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	cmd, op, err := c.command(ctx, sql, args)
	if err != nil {
		return errRow{err: err}
	}

	switch {
	case op == OpExecuteScalar:
		value, err := cmd.ExecuteScalar(ctx)
		if err != nil {
			return errRow{err: err}
		}
		return scalarRow{value: value}
	case op.readsRows():
		rows, err := cmd.ExecuteReader(ctx)
		if err != nil {
			return errRow{err: err}
		}
		return &firstRow{rows: rows}
	}

	return errRow{err: fmt.Errorf("%w: query row on a connection set up for %s", ErrOperationMismatch, op)}
}

// Exec returns a command tag carrying the row count of an execute setup.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	cmd, op, err := c.command(ctx, sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if op != OpExecute {
		return pgconn.CommandTag{}, fmt.Errorf("%w: exec on a connection set up for %s", ErrOperationMismatch, op)
	}

	n, err := cmd.ExecuteNonQuery(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if n < 0 {
		return pgconn.CommandTag{}, fmt.Errorf("%w: command tags cannot carry negative row count %d", ErrInvalidResult, n)
	}
	return commandTag(sql, n), nil
}

// commandTag builds the tag Postgres would send for sql affecting n rows.
func commandTag(sql string, n int64) pgconn.CommandTag {
	verb := "EXECUTE"
	if fields := strings.Fields(sql); len(fields) > 0 {
		verb = strings.ToUpper(fields[0])
	}

	count := strconv.FormatInt(n, 10)
	if verb == "INSERT" {
		return pgconn.NewCommandTag("INSERT 0 " + count)
	}
	return pgconn.NewCommandTag(verb + " " + count)
}
