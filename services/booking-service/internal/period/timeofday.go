package period

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrMalformedTime = errors.New("malformed time of day")

// TimeOfDay is a wall-clock offset from midnight with second precision.
// Hours are unbounded so settings such as "168:00:00" can be represented.
type TimeOfDay int

var timeOfDayPattern = regexp.MustCompile(`^(\d+):([0-5]\d)(?::([0-5]\d))?$`)

func NewTimeOfDay(h, m, s int) (TimeOfDay, error) {
	if h < 0 || m < 0 || m >= 60 || s < 0 || s >= 60 {
		return 0, fmt.Errorf("%w: %d:%d:%d", ErrMalformedTime, h, m, s)
	}
	return TimeOfDay(h*3600 + m*60 + s), nil
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	match := timeOfDayPattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, raw)
	}
	h, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, raw)
	}
	m, _ := strconv.Atoi(match[2])
	s := 0
	if match[3] != "" {
		s, _ = strconv.Atoi(match[3])
	}
	return NewTimeOfDay(h, m, s)
}

// Of returns the wall-clock time of ts in its own location.
func Of(ts time.Time) TimeOfDay {
	h, m, s := ts.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Second)
}

// Sub returns t-u in seconds.
func (t TimeOfDay) Sub(u TimeOfDay) int {
	return int(t) - int(u)
}

func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// On anchors t to the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDuration reads an "HH:MM:SS" settings value as a duration.
func ParseDuration(raw string) (time.Duration, error) {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		return 0, err
	}
	return t.Duration(), nil
}
