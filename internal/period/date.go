package period

import (
	"database/sql/driver"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"pocketbook/internal/clock"
)

// Date is a calendar date with no time-of-day and no zone. It is persisted
// and serialized as YYYY-MM-DD.
type Date civil.Date

// NewDate returns the date for the given components. Out-of-range values
// are normalized the way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	return Date(civil.DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC)))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return Date(d), nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t as read in t's own location.
func DateOf(t time.Time) Date {
	return Date(civil.DateOf(t))
}

// Today returns the current calendar date according to c.
func Today(c clock.Clock) Date {
	return DateOf(c.Now())
}

func (d Date) String() string {
	return civil.Date(d).String()
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date(civil.Date(d).AddDays(n))
}

// DaysSince returns the number of days from s to d.
func (d Date) DaysSince(s Date) int {
	return civil.Date(d).DaysSince(civil.Date(s))
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return civil.Date(d).Before(civil.Date(o))
}

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool {
	return civil.Date(d).After(civil.Date(o))
}

// LastOfMonth returns the last calendar day of d's month.
func (d Date) LastOfMonth() Date {
	return NewDate(d.Year, d.Month+1, 0)
}

// Time returns midnight of d in UTC.
func (d Date) Time() time.Time {
	return civil.Date(d).In(time.UTC)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner. Drivers hand DATE columns back either as text
// or as a time.Time at midnight; both are reduced to their date components.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into period.Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > 10 {
		s = s[:10]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return civil.Date(d).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(data []byte) error {
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
