// Package period computes budget period boundaries and rollovers. Every
// function here is pure: callers supply "today" explicitly.
package period

import (
	"errors"
	"fmt"
)

// Type is the length of a budget period.
type Type string

const (
	Weekly   Type = "weekly"
	Biweekly Type = "biweekly"
	Monthly  Type = "monthly"
)

// Types lists every supported period type.
var Types = []Type{Weekly, Biweekly, Monthly}

// ErrInvalidPeriodType is returned for any period type outside Types.
var ErrInvalidPeriodType = errors.New("invalid period type")

// Valid reports whether t is a supported period type.
func (t Type) Valid() bool {
	switch t {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// ParseType converts s into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodType, s)
	}
	return t, nil
}

// Window is an inclusive [Start, End] range of calendar dates.
type Window struct {
	Start Date `json:"start_date"`
	End   Date `json:"end_date"`
}

// Contains reports whether d falls inside w.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days returns the number of calendar days covered by w.
func (w Window) Days() int {
	return w.End.DaysSince(w.Start) + 1
}

// EndDateOf returns the last day of the period of type t that starts on start.
func EndDateOf(start Date, t Type) (Date, error) {
	switch t {
	case Weekly:
		return start.AddDays(6), nil
	case Biweekly:
		return start.AddDays(13), nil
	case Monthly:
		return start.LastOfMonth(), nil
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidPeriodType, t)
	}
}

// WindowOf returns the full period of type t starting on start.
func WindowOf(start Date, t Type) (Window, error) {
	end, err := EndDateOf(start, t)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

// NextPeriodAfterExpiry returns the period that immediately follows one
// ending on oldEnd.
func NextPeriodAfterExpiry(oldEnd Date, t Type) (Window, error) {
	return WindowOf(oldEnd.AddDays(1), t)
}

// Rollover describes the window a budget must be moved to.
type Rollover struct {
	Window
	// Steps is the number of periods advanced; more than one means the
	// budget was left unread across several periods.
	Steps int `json:"steps"`
}

// CheckAndRollover decides whether current has elapsed as of today. It
// returns nil when current.End is today or later. Otherwise it chains
// contiguous periods forward from current.End until the returned window
// ends on or after today.
func CheckAndRollover(current Window, t Type, today Date) (*Rollover, error) {
	if !current.End.Before(today) {
		return nil, nil
	}

	next := current
	steps := 0
	for next.End.Before(today) {
		w, err := NextPeriodAfterExpiry(next.End, t)
		if err != nil {
			return nil, err
		}
		next = w
		steps++
	}

	return &Rollover{Window: next, Steps: steps}, nil
}
