package availability

import (
	"errors"
	"sort"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
)

var ErrInvalidSelection = errors.New("selection is not a contiguous run within the duration limit")

// Constraints bound what can be selected on a day. A nil Window leaves the
// day unbounded.
type Constraints struct {
	MaxDuration time.Duration
	Window      *period.Slot
}

// Option is one entry of a start or end picker. Index refers to the
// position in Options.Periods.
type Option struct {
	Index    int              `json:"index"`
	PeriodID int              `json:"period_id"`
	Time     period.TimeOfDay `json:"time"`
	Disabled bool             `json:"disabled"`
}

// Options is the bookable state of one room on one date.
type Options struct {
	Date        time.Time       `json:"date"`
	Periods     []period.Period `json:"periods"`
	Start       []Option        `json:"start_options"`
	End         []Option        `json:"end_options"`
	MaxDuration time.Duration   `json:"-"`
}

// Compute drops periods that are malformed, collide with a blocking
// reservation, or fall partly outside the window, then lists one start and
// one end option per surviving period.
func Compute(date time.Time, periods []period.Period, reservations []period.Interval, c Constraints) Options {
	day := period.StartOfDay(date)
	ordered := make([]period.Period, 0, len(periods))
	for _, p := range periods {
		if p.Validate() != nil {
			continue
		}
		ordered = append(ordered, p)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	available := make([]period.Period, 0, len(ordered))
	for _, p := range ordered {
		slot := p.On(day)
		if c.Window != nil && !slot.Within(*c.Window) {
			continue
		}
		if blocked(slot, reservations) {
			continue
		}
		available = append(available, p)
	}

	opts := Options{
		Date:        day,
		Periods:     available,
		Start:       make([]Option, 0, len(available)),
		End:         make([]Option, 0, len(available)),
		MaxDuration: c.MaxDuration,
	}
	for i, p := range available {
		opts.Start = append(opts.Start, Option{Index: i, PeriodID: p.ID, Time: p.Start})
		opts.End = append(opts.End, Option{Index: i, PeriodID: p.ID, Time: p.End})
	}
	return opts
}

func blocked(slot period.Slot, reservations []period.Interval) bool {
	for _, r := range reservations {
		if r.Blocks() && r.Overlaps(slot) {
			return true
		}
	}
	return false
}

func (o Options) Empty() bool { return len(o.Periods) == 0 }

// forwardRun returns the last index j such that periods[i..j] are pairwise
// contiguous and periods[j].End-periods[i].Start fits the duration limit,
// or i-1 when even periods[i] alone is too long.
func (o Options) forwardRun(i int) int {
	start := o.Periods[i].Start
	if o.MaxDuration <= 0 {
		return i
	}
	last := i - 1
	for j := i; j < len(o.Periods); j++ {
		if j > i && !period.IsContinuousWith(o.Periods[j-1], o.Periods[j]) {
			break
		}
		if time.Duration(o.Periods[j].End.Sub(start))*time.Second > o.MaxDuration {
			break
		}
		last = j
	}
	return last
}

// backwardRun mirrors forwardRun from an end index.
func (o Options) backwardRun(j int) int {
	end := o.Periods[j].End
	if o.MaxDuration <= 0 {
		return j
	}
	first := j + 1
	for i := j; i >= 0; i-- {
		if i < j && !period.IsContinuousWith(o.Periods[i], o.Periods[i+1]) {
			break
		}
		if time.Duration(end.Sub(o.Periods[i].Start))*time.Second > o.MaxDuration {
			break
		}
		first = i
	}
	return first
}

func (o Options) inRange(i int) bool { return i >= 0 && i < len(o.Periods) }

// Commit turns a chosen start and end option into a concrete slot.
func (o Options) Commit(start, end int) (period.Slot, error) {
	if !o.inRange(start) || !o.inRange(end) || end < start {
		return period.Slot{}, ErrInvalidSelection
	}
	if end > o.forwardRun(start) {
		return period.Slot{}, ErrInvalidSelection
	}
	return period.Slot{
		Start: o.Periods[start].Start.On(o.Date),
		End:   o.Periods[end].End.On(o.Date),
	}, nil
}

// Locate maps a concrete slot back onto start and end option indices.
func (o Options) Locate(slot period.Slot) (start, end int, err error) {
	loc := o.Date.Location()
	slot = period.Slot{Start: slot.Start.In(loc), End: slot.End.In(loc)}
	if !o.Date.Equal(period.StartOfDay(slot.Start)) {
		return 0, 0, ErrInvalidSelection
	}
	start, end = -1, -1
	for i, p := range o.Periods {
		if p.Start.On(o.Date).Equal(slot.Start) {
			start = i
		}
		if p.End.On(o.Date).Equal(slot.End) {
			end = i
		}
	}
	if start < 0 || end < 0 {
		return 0, 0, ErrInvalidSelection
	}
	if _, err := o.Commit(start, end); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
