package testutil

import (
	"math/big"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Status is an enumerated record field.
type Status int

// Status values used by the fixtures.
const (
	StatusFirst Status = iota + 1
	StatusSecond
	StatusThird
)

// Nested is a member type outside the matching type set.
type Nested struct {
	Label string
}

// Record is a composite row with one field per matching-type family, plus a
// nested field that projection leaves out.
type Record struct {
	Name      string
	Count     int
	Total     int64
	Big       *big.Int
	ID        uuid.UUID
	CreatedAt time.Time
	ExpiresAt *time.Time
	Retries   *int
	Payload   []byte
	Status    Status
	Nested    Nested
}

// RecordColumns lists the columns a Record projects to, in order.
var RecordColumns = []string{
	"Name", "Count", "Total", "Big", "ID", "CreatedAt", "ExpiresAt", "Retries", "Payload", "Status",
}

// Records returns three fixed records. The last one has nil nullable fields.
func Records() []Record {
	expires1 := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	expires2 := time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC)
	retries1, retries2 := 9, 99

	return []Record{
		{
			Name:      "String1",
			Count:     7,
			Total:     70,
			Big:       big.NewInt(700),
			ID:        uuid.Must(uuid.FromString("cf01f32d-a55b-4c4a-9b33-aac1c20a85bb")),
			CreatedAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			ExpiresAt: &expires1,
			Retries:   &retries1,
			Payload:   []byte{7},
			Status:    StatusFirst,
			Nested:    Nested{Label: "one"},
		},
		{
			Name:      "String2",
			Count:     77,
			Total:     770,
			Big:       big.NewInt(7700),
			ID:        uuid.Must(uuid.FromString("fbece122-6e2e-4791-b781-c30843dfe343")),
			CreatedAt: time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC),
			ExpiresAt: &expires2,
			Retries:   &retries2,
			Payload:   []byte{7, 7},
			Status:    StatusSecond,
			Nested:    Nested{Label: "two"},
		},
		{
			Name:      "String3",
			Count:     777,
			Total:     7770,
			Big:       big.NewInt(77700),
			ID:        uuid.Must(uuid.FromString("712b6da1-71d8-4d60-8fef-3f4800a6b04f")),
			CreatedAt: time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC),
			Payload:   []byte{7, 7, 7},
			Status:    StatusThird,
			Nested:    Nested{Label: "three"},
		},
	}
}
