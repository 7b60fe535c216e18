package projection

import (
	"database/sql"
	"encoding/json"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/dbmock/internal/testutil"
)

func columnNames(table *Table) []string {
	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	return names
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want bool
	}{
		{"bool", reflect.TypeFor[bool](), true},
		{"int", reflect.TypeFor[int](), true},
		{"int8", reflect.TypeFor[int8](), true},
		{"uint64", reflect.TypeFor[uint64](), true},
		{"float32", reflect.TypeFor[float32](), true},
		{"string", reflect.TypeFor[string](), true},
		{"bytes", reflect.TypeFor[[]byte](), true},
		{"raw json", reflect.TypeFor[json.RawMessage](), true},
		{"time", reflect.TypeFor[time.Time](), true},
		{"duration", reflect.TypeFor[time.Duration](), true},
		{"uuid", reflect.TypeFor[uuid.UUID](), true},
		{"big int", reflect.TypeFor[*big.Int](), true},
		{"big float", reflect.TypeFor[*big.Float](), true},
		{"numeric", reflect.TypeFor[pgtype.Numeric](), true},
		{"enum", reflect.TypeFor[testutil.Status](), true},
		{"uintptr", reflect.TypeFor[uintptr](), false},
		{"pointer", reflect.TypeFor[*int](), false},
		{"struct", reflect.TypeFor[testutil.Nested](), false},
		{"map", reflect.TypeFor[map[string]int](), false},
		{"int slice", reflect.TypeFor[[]int](), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.typ))
		})
	}
}

func TestStorageType(t *testing.T) {
	tests := []struct {
		name         string
		typ          reflect.Type
		wantType     reflect.Type
		wantNullable bool
	}{
		{"plain", reflect.TypeFor[int](), reflect.TypeFor[int](), false},
		{"pointer", reflect.TypeFor[*int](), reflect.TypeFor[int](), true},
		{"pointer to time", reflect.TypeFor[*time.Time](), reflect.TypeFor[time.Time](), true},
		{"big int stays", reflect.TypeFor[*big.Int](), reflect.TypeFor[*big.Int](), false},
		{"null string", reflect.TypeFor[sql.NullString](), reflect.TypeFor[string](), true},
		{"generic null", reflect.TypeFor[sql.Null[int64]](), reflect.TypeFor[int64](), true},
		{"pgtype int8", reflect.TypeFor[pgtype.Int8](), reflect.TypeFor[int64](), true},
		{"null uuid", reflect.TypeFor[uuid.NullUUID](), reflect.TypeFor[uuid.UUID](), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, nullable := StorageType(tt.typ)
			assert.Equal(t, tt.wantType, got)
			assert.Equal(t, tt.wantNullable, nullable)
		})
	}
}

func TestProject_Scalars(t *testing.T) {
	table, err := Project([]int{7, 77, 777})
	require.NoError(t, err)

	require.Len(t, table.Columns, 1)
	assert.Equal(t, "", table.Columns[0].Name)
	assert.Equal(t, reflect.TypeFor[int](), table.Columns[0].Type)
	assert.False(t, table.Columns[0].Nullable)
	assert.Equal(t, [][]any{{7}, {77}, {777}}, table.Rows)
}

func TestProject_NullableScalars(t *testing.T) {
	seven := 7
	table, err := Project([]*int{&seven, nil})
	require.NoError(t, err)

	require.Len(t, table.Columns, 1)
	assert.Equal(t, reflect.TypeFor[int](), table.Columns[0].Type)
	assert.True(t, table.Columns[0].Nullable)
	assert.Equal(t, [][]any{{7}, {nil}}, table.Rows)
}

func TestProject_NullStructScalars(t *testing.T) {
	table, err := Project([]sql.NullString{{String: "a", Valid: true}, {String: "ignored"}})
	require.NoError(t, err)

	assert.Equal(t, reflect.TypeFor[string](), table.Columns[0].Type)
	assert.Equal(t, [][]any{{"a"}, {nil}}, table.Rows)
}

func TestProject_Records(t *testing.T) {
	records := testutil.Records()

	table, err := Project(records)
	require.NoError(t, err)

	assert.Equal(t, testutil.RecordColumns, columnNames(table))
	require.Len(t, table.Rows, len(records))

	for i, r := range records {
		row := table.Rows[i]
		require.Len(t, row, len(table.Columns))
		assert.Equal(t, r.Name, row[0])
		assert.Equal(t, r.Count, row[1])
		assert.Equal(t, r.Total, row[2])
		assert.Equal(t, r.Big, row[3])
		assert.Equal(t, r.ID, row[4])
		assert.Equal(t, r.CreatedAt, row[5])
		assert.Equal(t, r.Payload, row[8])
		assert.Equal(t, r.Status, row[9])
	}

	assert.Equal(t, *records[0].ExpiresAt, table.Rows[0][6])
	assert.Equal(t, 9, table.Rows[0][7])
	assert.Nil(t, table.Rows[2][6])
	assert.Nil(t, table.Rows[2][7])
}

func TestProject_RecordColumnTypes(t *testing.T) {
	table, err := Project(testutil.Records())
	require.NoError(t, err)

	byName := map[string]Column{}
	for _, c := range table.Columns {
		byName[c.Name] = c
	}

	assert.Equal(t, reflect.TypeFor[time.Time](), byName["ExpiresAt"].Type)
	assert.True(t, byName["ExpiresAt"].Nullable)
	assert.Equal(t, reflect.TypeFor[int](), byName["Retries"].Type)
	assert.True(t, byName["Retries"].Nullable)
	assert.Equal(t, reflect.TypeFor[*big.Int](), byName["Big"].Type)
	assert.False(t, byName["Big"].Nullable)
	assert.Equal(t, reflect.TypeFor[testutil.Status](), byName["Status"].Type)
}

func TestProject_PointerElements(t *testing.T) {
	records := testutil.Records()

	table, err := Project([]*testutil.Record{&records[0], &records[1]})
	require.NoError(t, err)

	assert.Equal(t, testutil.RecordColumns, columnNames(table))
	assert.Equal(t, "String2", table.Rows[1][0])
}

func TestProject_NullElement(t *testing.T) {
	records := testutil.Records()

	_, err := Project([]*testutil.Record{&records[0], nil})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNullElement)
	assert.Contains(t, err.Error(), "element 1")
}

func TestProject_EmptyAndNil(t *testing.T) {
	table, err := Project([]testutil.Record{})
	require.NoError(t, err)
	assert.Equal(t, testutil.RecordColumns, columnNames(table))
	assert.Empty(t, table.Rows)

	table, err = Project[int](nil)
	require.NoError(t, err)
	assert.Len(t, table.Columns, 1)
	assert.Empty(t, table.Rows)
}

type tagged struct {
	ReadingID  uuid.UUID       `db:"reading_id"`
	DeviceID   string          `db:"device_id"`
	Note       *string         `db:"note"`
	State      json.RawMessage `db:"state"`
	RecordedAt time.Time       `db:"recorded_at"`
}

func TestProject_DBTags(t *testing.T) {
	table, err := Project([]tagged{{DeviceID: "device-001"}, {DeviceID: "device-002"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"reading_id", "device_id", "note", "state", "recorded_at"}, columnNames(table))
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, "device-002", table.Rows[1][1])
	assert.Nil(t, table.Rows[1][2])
}

type base struct {
	ID int
}

type Audit struct {
	CreatedBy string
}

type withEmbedded struct {
	base
	Audit
	Name    string
	Skipped string `db:"-"`
	Renamed string `db:"other_name,omitempty"`
	hidden  string
	Tags    map[string]string
}

func TestProject_EmbeddedAndTags(t *testing.T) {
	values := []withEmbedded{{
		base:    base{ID: 1},
		Audit:   Audit{CreatedBy: "me"},
		Name:    "n",
		Skipped: "s",
		Renamed: "r",
		hidden:  "h",
	}}

	table, err := Project(values)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "CreatedBy", "Name", "other_name"}, columnNames(table))
	assert.Equal(t, [][]any{{1, "me", "n", "r"}}, table.Rows)
}

type withNulls struct {
	Label sql.NullString
	Score sql.Null[float64]
	Count pgtype.Int8
}

func TestProject_NullStructFields(t *testing.T) {
	table, err := Project([]withNulls{
		{Label: sql.NullString{String: "x", Valid: true}, Score: sql.Null[float64]{V: 1.5, Valid: true}, Count: pgtype.Int8{Int64: 3, Valid: true}},
		{},
	})
	require.NoError(t, err)

	for _, c := range table.Columns {
		assert.True(t, c.Nullable, c.Name)
	}
	assert.Equal(t, []any{"x", 1.5, int64(3)}, table.Rows[0])
	assert.Equal(t, []any{nil, nil, nil}, table.Rows[1])
}

func TestProject_InterfaceElements(t *testing.T) {
	table, err := Project([]any{1, "two", nil})
	require.NoError(t, err)

	require.Len(t, table.Columns, 1)
	assert.True(t, table.Columns[0].Nullable)
	assert.Equal(t, [][]any{{1}, {"two"}, {nil}}, table.Rows)
}

func TestProject_UnsupportedType(t *testing.T) {
	_, err := Project([]map[string]int{{"a": 1}})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Project([][]int{{1}})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

// exclaimDeriver projects strings into a single column named "value".
type exclaimDeriver struct{}

func (exclaimDeriver) Derive(t reflect.Type) ([]Member, error) {
	return []Member{{
		Column: Column{Name: "value", Type: t},
		Get: func(elem reflect.Value) (any, error) {
			return elem.String() + "!", nil
		},
	}}, nil
}

func TestProjectWith_CustomDeriver(t *testing.T) {
	p := New(WithDeriver(exclaimDeriver{}))

	table, err := ProjectWith(p, []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"value"}, columnNames(table))
	assert.Equal(t, [][]any{{"a!"}, {"b!"}}, table.Rows)
}

func TestSingle(t *testing.T) {
	table := Single(reflect.TypeFor[*int64](), (*int64)(nil))

	require.Len(t, table.Columns, 1)
	assert.Equal(t, reflect.TypeFor[int64](), table.Columns[0].Type)
	assert.True(t, table.Columns[0].Nullable)
	assert.Equal(t, [][]any{{nil}}, table.Rows)

	table = Single(reflect.TypeFor[string](), "x")
	assert.Equal(t, [][]any{{"x"}}, table.Rows)
}

func TestProject_Deterministic(t *testing.T) {
	first, err := Project(testutil.Records())
	require.NoError(t, err)
	second, err := Project(testutil.Records())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
