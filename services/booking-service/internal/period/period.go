package period

import (
	"errors"
	"fmt"
	"time"
)

const (
	// TimestampLayout is the wall-clock format used by the reservation backend.
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

var ErrInvalidPeriod = errors.New("period start must be before end")

// Period is one fixed bookable sub-interval of every day.
type Period struct {
	ID    int       `json:"period_id"`
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

func (p Period) Validate() error {
	if p.Start >= p.End {
		return fmt.Errorf("%w: period %d %s-%s", ErrInvalidPeriod, p.ID, p.Start, p.End)
	}
	return nil
}

// On places the period on the calendar day of date.
func (p Period) On(date time.Time) Slot {
	return Slot{Start: p.Start.On(date), End: p.End.On(date)}
}

func (p Period) Seconds() int { return p.End.Sub(p.Start) }

// IsContinuousWith reports whether next starts exactly where p ends.
func IsContinuousWith(p, next Period) bool {
	return p.End == next.Start
}

// Slot is a concrete time range on a specific date, such as an occurrence
// or the span of an existing reservation.
type Slot struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

func (s Slot) Valid() bool { return s.End.After(s.Start) }

// Overlaps uses half-open ranges: slots that only touch do not overlap.
func (s Slot) Overlaps(o Slot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Within reports whether s lies fully inside outer.
func (s Slot) Within(outer Slot) bool {
	return !s.Start.Before(outer.Start) && !s.End.After(outer.End)
}

func (s Slot) Duration() time.Duration { return s.End.Sub(s.Start) }

// In expresses both ends in loc. A nil loc leaves the slot unchanged.
func (s Slot) In(loc *time.Location) Slot {
	if loc == nil {
		return s
	}
	return Slot{Start: s.Start.In(loc), End: s.End.In(loc)}
}

// Shift moves both ends by whole calendar days, keeping wall-clock times.
func (s Slot) Shift(days int) Slot {
	return Slot{Start: s.Start.AddDate(0, 0, days), End: s.End.AddDate(0, 0, days)}
}

// Dates lists every calendar day the slot touches, start to end inclusive.
func (s Slot) Dates() []time.Time {
	first := StartOfDay(s.Start)
	last := StartOfDay(s.End)
	var out []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (s Slot) String() string {
	return s.Start.Format(TimestampLayout) + " - " + s.End.Format(TimestampLayout)
}

// Interval is an existing reservation's occupied range.
type Interval struct {
	Slot
	Status Status `json:"status"`
}

func (i Interval) Blocks() bool { return i.Status.Blocks() }

// StrictlyBetween reports lo < t < hi.
func StrictlyBetween(t, lo, hi time.Time) bool {
	return t.After(lo) && t.Before(hi)
}

// DiffSeconds returns a-b in whole seconds.
func DiffSeconds(a, b time.Time) int64 {
	return int64(a.Sub(b) / time.Second)
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, raw, loc)
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, loc)
}
