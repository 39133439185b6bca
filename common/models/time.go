package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// timestampStorageFormat is the canonical string form timestamps take in the
// database. Both supported drivers can round-trip this layout losslessly.
const timestampStorageFormat = "2006-01-02 15:04:05.999999-07:00"

// Time is a time.Time that round-trips through the database at microsecond
// precision regardless of driver.
type Time struct {
	time.Time
}

// NewTime normalizes t to UTC and rounds to the microsecond. Postgres stores
// at most microsecond precision, so rounding up front keeps a value equal to
// itself after a store-and-read cycle.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC().Round(time.Microsecond)}
}

func NewTimePtr(t time.Time) *Time {
	newTime := NewTime(t)
	return &newTime
}

// Scan accepts either a time.Time (postgres) or a formatted string (sqlite).
func (t *Time) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		*t = NewTime(v)
	case string:
		parsed, err := time.Parse(timestampStorageFormat, v)
		if err != nil {
			return errors.Wrap(err, "error parsing time")
		}
		*t = Time{Time: parsed.UTC()}
	default:
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	return nil
}

// Value renders the timestamp in the storage layout so comparisons in WHERE
// clauses match what was written.
func (t Time) Value() (driver.Value, error) {
	return t.Format(timestampStorageFormat), nil
}
