package readings_test

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/dbmock"
	"github.com/cornjacket/dbmock/internal/readings"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newReading returns a reading with random contents.
func newReading(r *rand.Rand, deviceID string, sequence int64) readings.Reading {
	reading := readings.Reading{
		ReadingID:  uuid.Must(uuid.NewV7()),
		DeviceID:   deviceID,
		Value:      float64(r.IntN(10000)) / 100,
		Sequence:   sequence,
		Valid:      r.IntN(2) == 1,
		State:      json.RawMessage(`{"temperature": 22.5}`),
		RecordedAt: time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC).Add(time.Duration(sequence) * time.Minute),
	}
	if r.IntN(2) == 1 {
		note := "checked"
		reading.Note = &note
	}
	return reading
}

// newReadings returns n readings for the device from a seeded source, with
// sequences 1..n.
func newReadings(seed uint64, deviceID string, n int) []readings.Reading {
	r := rand.New(rand.NewPCG(seed, seed))
	out := make([]readings.Reading, n)
	for i := range out {
		out[i] = newReading(r, deviceID, int64(i+1))
	}
	return out
}

// mockStore returns a store over a mock connection set up for op.
func mockStore[T any](t *testing.T, op dbmock.Operation, values ...T) (*readings.PostgresStore, *dbmock.Expectation[T]) {
	t.Helper()

	conn := dbmock.New()
	exp, err := dbmock.Setup[T](conn, op)
	require.NoError(t, err)
	require.NoError(t, exp.Returns(values...))
	return readings.NewPostgresStore(conn, testLogger()), exp
}
