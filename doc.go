// Package dbmock provides mock database connections that answer the mapper
// helpers with canned results.
//
// A Conn stands in for a *pgxpool.Pool wherever code takes a
// mapper.Querier. Each Setup tells the connection which mapper operation it
// is emulating and what element type the result carries; the values handed
// to Returns are projected into rows and columns and scanned back by the
// mapper exactly as rows from Postgres would be.
//
//	conn := dbmock.New()
//
//	exp, err := dbmock.Setup[Device](conn, dbmock.OpQuery)
//	require.NoError(t, err)
//	require.NoError(t, exp.Returns(devices...))
//
//	got, err := mapper.Query[Device](ctx, conn, `SELECT * FROM devices`)
//
// The operation can also be taken from the mapper function itself:
//
//	exp, err := dbmock.SetupCall[int64](conn, mapper.ExecuteScalar[int64])
//
// Result callbacks run again on every call. A later Setup replaces the
// earlier one. Calls are recorded through testify's mock package, so
// conn.AssertCalled(t, "CreateCommand") and
// exp.Command().AssertNumberOfCalls(t, "ExecuteReader", n) work as usual.
//
// Code written against database/sql can use conn.DB().
package dbmock
