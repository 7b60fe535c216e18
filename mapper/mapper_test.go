package mapper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/dbmock"
	"github.com/cornjacket/dbmock/internal/testutil"
	"github.com/cornjacket/dbmock/mapper"
	"github.com/cornjacket/dbmock/projection"
)

func setup[T any](t *testing.T, op dbmock.Operation, values ...T) *dbmock.Conn {
	t.Helper()

	conn := dbmock.New()
	exp, err := dbmock.Setup[T](conn, op)
	require.NoError(t, err)
	require.NoError(t, exp.Returns(values...))
	return conn
}

func TestQuery_Scalars(t *testing.T) {
	conn := setup(t, dbmock.OpQuery, 7, 77, 777)

	got, err := mapper.Query[int](context.Background(), conn, "SELECT n FROM numbers")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 77, 777}, got)
}

func TestQuery_Records(t *testing.T) {
	records := testutil.Records()
	conn := setup(t, dbmock.OpQuery, records...)

	got, err := mapper.Query[testutil.Record](context.Background(), conn, "SELECT * FROM records")
	require.NoError(t, err)
	require.Len(t, got, len(records))

	for i := range records {
		want := records[i]
		want.Nested = testutil.Nested{} // not projected
		assert.Equal(t, want, got[i])
	}
	assert.Nil(t, got[2].ExpiresAt)
	assert.Nil(t, got[2].Retries)
}

func TestQuery_RecordPointers(t *testing.T) {
	records := testutil.Records()
	conn := setup(t, dbmock.OpQuery, &records[0], &records[2])

	got, err := mapper.Query[*testutil.Record](context.Background(), conn, "SELECT * FROM records")
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, want := range []testutil.Record{records[0], records[2]} {
		want.Nested = testutil.Nested{}
		require.NotNil(t, got[i])
		assert.Equal(t, want, *got[i])
	}
}

func TestQuery_NullRecordPointer(t *testing.T) {
	records := testutil.Records()
	conn := setup(t, dbmock.OpQuery, &records[0], nil)

	_, err := mapper.Query[*testutil.Record](context.Background(), conn, "SELECT * FROM records")
	assert.ErrorIs(t, err, projection.ErrNullElement)
}

type audit struct {
	CreatedBy string `db:"created_by"`
}

type account struct {
	audit
	ID          int64 `db:"id"`
	DisplayName string
	Secret      string `db:"-"`
}

func TestQuery_PointerTagsAndEmbedding(t *testing.T) {
	want := &account{audit: audit{CreatedBy: "ops"}, ID: 3, DisplayName: "Ada"}
	conn := setup(t, dbmock.OpQuery, want, &account{ID: 4})

	got, err := mapper.Query[*account](context.Background(), conn, "SELECT * FROM accounts")
	require.NoError(t, err)
	assert.Equal(t, []*account{want, {ID: 4}}, got)
}

func TestQuery_PointerMissingField(t *testing.T) {
	type narrow struct {
		ID int64 `db:"id"`
	}
	conn := setup(t, dbmock.OpQuery, account{ID: 1})

	_, err := mapper.Query[*narrow](context.Background(), conn, "SELECT * FROM accounts")
	assert.ErrorContains(t, err, "struct doesn't have corresponding row field created_by")
}

func TestQuery_Empty(t *testing.T) {
	conn := setup[testutil.Record](t, dbmock.OpQuery)

	got, err := mapper.Query[testutil.Record](context.Background(), conn, "SELECT * FROM records")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_UnsupportedType(t *testing.T) {
	conn := dbmock.New()

	_, err := mapper.Query[map[string]int](context.Background(), conn, "SELECT 1")
	assert.ErrorIs(t, err, mapper.ErrUnsupportedType)
}

func TestQueryFirst(t *testing.T) {
	conn := setup(t, dbmock.OpQueryFirst, "a", "b")

	got, err := mapper.QueryFirst[string](context.Background(), conn, "SELECT name FROM t")
	require.NoError(t, err)
	assert.Equal(t, "a", got)
}

func TestQueryFirst_NoRows(t *testing.T) {
	conn := setup[string](t, dbmock.OpQueryFirst)

	_, err := mapper.QueryFirst[string](context.Background(), conn, "SELECT name FROM t")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestQueryFirstOrDefault_NoRows(t *testing.T) {
	conn := setup[testutil.Record](t, dbmock.OpQueryFirstOrDefault)

	got, err := mapper.QueryFirstOrDefault[testutil.Record](context.Background(), conn, "SELECT * FROM records")
	require.NoError(t, err)
	assert.Equal(t, testutil.Record{}, got)
}

func TestQuerySingleOrDefault_RecordPointer(t *testing.T) {
	conn := setup[*testutil.Record](t, dbmock.OpQuerySingleOrDefault)

	got, err := mapper.QuerySingleOrDefault[*testutil.Record](context.Background(), conn, "SELECT * FROM records WHERE id = $1", 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	records := testutil.Records()
	conn = setup(t, dbmock.OpQuerySingleOrDefault, &records[1])
	got, err = mapper.QuerySingleOrDefault[*testutil.Record](context.Background(), conn, "SELECT * FROM records WHERE id = $1", 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, records[1].ID, got.ID)
}

func TestQuerySingle(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	conn := setup(t, dbmock.OpQuerySingle, id)

	got, err := mapper.QuerySingle[uuid.UUID](context.Background(), conn, "SELECT id FROM t")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestQuerySingle_TooManyRows(t *testing.T) {
	conn := setup(t, dbmock.OpQuerySingle, 1, 2)

	_, err := mapper.QuerySingle[int](context.Background(), conn, "SELECT id FROM t")
	assert.ErrorIs(t, err, pgx.ErrTooManyRows)
}

func TestQuerySingleOrDefault(t *testing.T) {
	conn := setup[int](t, dbmock.OpQuerySingleOrDefault)

	got, err := mapper.QuerySingleOrDefault[int](context.Background(), conn, "SELECT id FROM t")
	require.NoError(t, err)
	assert.Zero(t, got)

	conn = setup(t, dbmock.OpQuerySingleOrDefault, 1, 2)
	_, err = mapper.QuerySingleOrDefault[int](context.Background(), conn, "SELECT id FROM t")
	assert.ErrorIs(t, err, pgx.ErrTooManyRows)
}

func TestExecute(t *testing.T) {
	conn := setup(t, dbmock.OpExecute, int64(3))

	n, err := mapper.Execute(context.Background(), conn, "DELETE FROM t WHERE stale")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestExecute_Error(t *testing.T) {
	conn := dbmock.New()

	_, err := mapper.Execute(context.Background(), conn, "DELETE FROM t")
	assert.ErrorIs(t, err, dbmock.ErrNotConfigured)
	assert.Contains(t, err.Error(), "failed to execute")
}

func TestExecuteScalar(t *testing.T) {
	at := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	conn := setup(t, dbmock.OpExecuteScalar, at)

	got, err := mapper.ExecuteScalar[time.Time](context.Background(), conn, "SELECT max(created_at) FROM t")
	require.NoError(t, err)
	assert.Equal(t, at, got)
}

func TestExecuteScalar_Error(t *testing.T) {
	conn := setup(t, dbmock.OpQuery, 1)

	_, err := mapper.ExecuteScalar[string](context.Background(), conn, "SELECT name FROM t")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbmock.ErrTypeMismatch))
}
