package readings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/dbmock/internal/clock"
	"github.com/cornjacket/dbmock/mapper"
)

const columns = `reading_id, device_id, value, sequence, valid, note, state, recorded_at`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     mapper.Querier
	logger *slog.Logger
}

// NewPostgresStore creates a new PostgresStore. db is usually a
// *pgxpool.Pool.
func NewPostgresStore(db mapper.Querier, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.With("store", "readings"),
	}
}

// WriteReading inserts or updates a reading, only if its sequence is newer.
// A reading without RecordedAt is stamped with the current time.
func (s *PostgresStore) WriteReading(ctx context.Context, r *Reading) (bool, error) {
	if r.RecordedAt.IsZero() {
		r.RecordedAt = clock.Now()
	}

	query := `
		INSERT INTO readings (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (reading_id) DO UPDATE
		SET value = EXCLUDED.value,
		    sequence = EXCLUDED.sequence,
		    valid = EXCLUDED.valid,
		    note = EXCLUDED.note,
		    state = EXCLUDED.state,
		    recorded_at = EXCLUDED.recorded_at
		WHERE readings.sequence < EXCLUDED.sequence
	`

	n, err := mapper.Execute(ctx, s.db, query,
		r.ReadingID,
		r.DeviceID,
		r.Value,
		r.Sequence,
		r.Valid,
		r.Note,
		string(r.State),
		r.RecordedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to write reading: %w", err)
	}

	if n == 0 {
		s.logger.Debug("reading not updated (sequence not newer)",
			"reading_id", r.ReadingID,
			"device_id", r.DeviceID,
			"sequence", r.Sequence,
		)
		return false, nil
	}

	return true, nil
}

// GetReading retrieves a single reading by ID.
func (s *PostgresStore) GetReading(ctx context.Context, readingID uuid.UUID) (*Reading, error) {
	query := `SELECT ` + columns + ` FROM readings WHERE reading_id = $1`

	r, err := mapper.QuerySingle[Reading](ctx, s.db, query, readingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}
	return &r, nil
}

// FindBySequence retrieves a device's reading with the given sequence, or nil.
func (s *PostgresStore) FindBySequence(ctx context.Context, deviceID string, sequence int64) (*Reading, error) {
	query := `SELECT ` + columns + ` FROM readings WHERE device_id = $1 AND sequence = $2`

	r, err := mapper.QuerySingleOrDefault[Reading](ctx, s.db, query, deviceID, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to find reading: %w", err)
	}
	if r.ReadingID == uuid.Nil {
		return nil, nil
	}
	return &r, nil
}

// LatestReading retrieves the device's newest reading, or nil.
func (s *PostgresStore) LatestReading(ctx context.Context, deviceID string) (*Reading, error) {
	query := `
		SELECT ` + columns + `
		FROM readings
		WHERE device_id = $1
		ORDER BY sequence DESC
	`

	r, err := mapper.QueryFirstOrDefault[Reading](ctx, s.db, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest reading: %w", err)
	}
	if r.ReadingID == uuid.Nil {
		return nil, nil
	}
	return &r, nil
}

// FirstRecordedAt returns when the device's oldest reading was recorded.
func (s *PostgresStore) FirstRecordedAt(ctx context.Context, deviceID string) (time.Time, error) {
	query := `SELECT recorded_at FROM readings WHERE device_id = $1 ORDER BY recorded_at`

	at, err := mapper.QueryFirst[time.Time](ctx, s.db, query, deviceID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get first reading time: %w", err)
	}
	return at, nil
}

// ListReadings retrieves a device's readings with pagination. The total is
// taken from the page itself, so it is 0 when offset is past the end.
func (s *PostgresStore) ListReadings(ctx context.Context, deviceID string, limit, offset int) ([]Reading, int64, error) {
	query := `
		SELECT ` + columns + `, COUNT(*) OVER () AS total_count
		FROM readings
		WHERE device_id = $1
		ORDER BY sequence DESC
		LIMIT $2 OFFSET $3
	`

	page, err := mapper.Query[Page](ctx, s.db, query, deviceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list readings: %w", err)
	}

	// Return empty slice instead of nil if no results
	readings := make([]Reading, 0, len(page))
	var total int64
	for _, p := range page {
		readings = append(readings, p.Reading)
		total = p.TotalCount
	}

	return readings, total, nil
}

// CountReadings returns the number of readings stored for the device.
func (s *PostgresStore) CountReadings(ctx context.Context, deviceID string) (int64, error) {
	query := `SELECT COUNT(*) FROM readings WHERE device_id = $1`

	n, err := mapper.ExecuteScalar[int64](ctx, s.db, query, deviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return n, nil
}

// DeviceIDs returns the distinct device IDs with readings, in order.
func (s *PostgresStore) DeviceIDs(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT device_id FROM readings ORDER BY device_id`

	ids, err := mapper.Query[string](ctx, s.db, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return ids, nil
}

// DeleteBefore removes a device's readings recorded before the cutoff.
func (s *PostgresStore) DeleteBefore(ctx context.Context, deviceID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM readings WHERE device_id = $1 AND recorded_at < $2`

	n, err := mapper.Execute(ctx, s.db, query, deviceID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete readings: %w", err)
	}

	s.logger.Info("readings deleted", "device_id", deviceID, "cutoff", cutoff, "count", n)
	return n, nil
}

// Prune removes a device's readings older than retention.
func (s *PostgresStore) Prune(ctx context.Context, deviceID string, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive: got %s", retention)
	}
	return s.DeleteBefore(ctx, deviceID, clock.Now().Add(-retention))
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
