// Package readings stores device readings in PostgreSQL through the mapper
// helpers.
package readings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Reading is one measurement reported by a device.
type Reading struct {
	ReadingID  uuid.UUID       `db:"reading_id" json:"reading_id"`
	DeviceID   string          `db:"device_id" json:"device_id"`
	Value      float64         `db:"value" json:"value"`
	Sequence   int64           `db:"sequence" json:"sequence"`
	Valid      bool            `db:"valid" json:"valid"`
	Note       *string         `db:"note" json:"note,omitempty"`
	State      json.RawMessage `db:"state" json:"state"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}

// Page is a reading together with the number of readings matching the list
// query it was returned by.
type Page struct {
	Reading
	TotalCount int64 `db:"total_count"`
}

// Store provides read and write operations for readings.
type Store interface {
	// WriteReading inserts or updates a reading, only if its sequence is newer.
	// It reports whether the row was written.
	WriteReading(ctx context.Context, r *Reading) (bool, error)

	// GetReading retrieves a single reading by ID.
	GetReading(ctx context.Context, readingID uuid.UUID) (*Reading, error)

	// FindBySequence retrieves a device's reading with the given sequence, or nil.
	FindBySequence(ctx context.Context, deviceID string, sequence int64) (*Reading, error)

	// LatestReading retrieves the device's newest reading, or nil.
	LatestReading(ctx context.Context, deviceID string) (*Reading, error)

	// FirstRecordedAt returns when the device's oldest reading was recorded.
	FirstRecordedAt(ctx context.Context, deviceID string) (time.Time, error)

	// ListReadings retrieves a device's readings with pagination.
	// Returns the readings, total count, and any error.
	ListReadings(ctx context.Context, deviceID string, limit, offset int) ([]Reading, int64, error)

	// CountReadings returns the number of readings stored for the device.
	CountReadings(ctx context.Context, deviceID string) (int64, error)

	// DeviceIDs returns the distinct device IDs with readings, in order.
	DeviceIDs(ctx context.Context) ([]string, error)

	// DeleteBefore removes a device's readings recorded before the cutoff and
	// returns how many were removed.
	DeleteBefore(ctx context.Context, deviceID string, cutoff time.Time) (int64, error)

	// Prune removes a device's readings older than retention.
	Prune(ctx context.Context, deviceID string, retention time.Duration) (int64, error)
}
