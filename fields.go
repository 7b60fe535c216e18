package dbmock

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cornjacket/dbmock/projection"
)

var typeOIDs = map[reflect.Type]uint32{
	reflect.TypeFor[time.Time]():          pgtype.TimestamptzOID,
	reflect.TypeFor[time.Duration]():      pgtype.IntervalOID,
	reflect.TypeFor[uuid.UUID]():          pgtype.UUIDOID,
	reflect.TypeFor[json.RawMessage]():    pgtype.JSONOID,
	reflect.TypeFor[*big.Int]():           pgtype.NumericOID,
	reflect.TypeFor[*big.Float]():         pgtype.NumericOID,
	reflect.TypeFor[*big.Rat]():           pgtype.NumericOID,
	reflect.TypeFor[pgtype.Numeric]():     pgtype.NumericOID,
	reflect.TypeFor[pgtype.UUID]():        pgtype.UUIDOID,
	reflect.TypeFor[pgtype.Timestamp]():   pgtype.TimestampOID,
	reflect.TypeFor[pgtype.Timestamptz](): pgtype.TimestamptzOID,
	reflect.TypeFor[pgtype.Date]():        pgtype.DateOID,
	reflect.TypeFor[pgtype.Interval]():    pgtype.IntervalOID,
}

// oidFor returns the Postgres type a column of storage type t reports.
func oidFor(t reflect.Type) uint32 {
	if t == nil {
		return pgtype.UnknownOID
	}
	if oid, ok := typeOIDs[t]; ok {
		return oid
	}

	switch t.Kind() {
	case reflect.Bool:
		return pgtype.BoolOID
	case reflect.String:
		return pgtype.TextOID
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return pgtype.Int2OID
	case reflect.Int32, reflect.Uint16:
		return pgtype.Int4OID
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return pgtype.Int8OID
	case reflect.Float32:
		return pgtype.Float4OID
	case reflect.Float64:
		return pgtype.Float8OID
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return pgtype.ByteaOID
		}
	}
	return pgtype.UnknownOID
}

var typeMap = pgtype.NewMap()

// databaseTypeName returns the upper-case Postgres name of a column type,
// e.g. "INT8" or "TIMESTAMPTZ".
func databaseTypeName(t reflect.Type) string {
	if typ, ok := typeMap.TypeForOID(oidFor(t)); ok {
		return strings.ToUpper(typ.Name)
	}
	return "UNKNOWN"
}

func fieldDescriptions(columns []projection.Column) []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(columns))
	for i, c := range columns {
		fields[i] = pgconn.FieldDescription{
			Name:         c.Name,
			DataTypeOID:  oidFor(c.Type),
			DataTypeSize: -1,
			TypeModifier: -1,
			Format:       pgx.TextFormatCode,
		}
	}
	return fields
}
