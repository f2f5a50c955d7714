package period

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		raw  string
		want TimeOfDay
	}{
		{"08:00", 8 * 3600},
		{"09:40:30", 9*3600 + 40*60 + 30},
		{"168:00:00", 168 * 3600},
		{"0:05", 5 * 60},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.raw)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) failed: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTimeOfDay(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}

	for _, raw := range []string{"", "8", "08:60", "08:00:61", "ab:cd", "08:00 ", "-1:00"} {
		if _, err := ParseTimeOfDay(raw); !errors.Is(err, ErrMalformedTime) {
			t.Fatalf("expected ErrMalformedTime for %q, got %v", raw, err)
		}
	}
}

func TestTimeOfDayArithmetic(t *testing.T) {
	start, _ := ParseTimeOfDay("08:00")
	end := start.Add(100 * time.Minute)
	if end.String() != "09:40:00" {
		t.Fatalf("expected 09:40:00, got %s", end)
	}
	if end.Sub(start) != 6000 {
		t.Fatalf("expected 6000 seconds, got %d", end.Sub(start))
	}
	if got := end.On(at(0, 0)); !got.Equal(at(9, 40)) {
		t.Fatalf("expected 09:40 on date, got %s", got)
	}
	if Of(at(13, 5)).String() != "13:05:00" {
		t.Fatalf("unexpected Of: %s", Of(at(13, 5)))
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	var p Period
	if err := json.Unmarshal([]byte(`{"period_id":3,"start_time":"10:30","end_time":"11:30:00"}`), &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if p.ID != 3 || p.Start.String() != "10:30:00" || p.End.String() != "11:30:00" {
		t.Fatalf("unexpected period: %+v", p)
	}
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"period_id":3,"start_time":"10:30:00","end_time":"11:30:00"}` {
		t.Fatalf("unexpected json: %s", out)
	}
	if err := json.Unmarshal([]byte(`{"start_time":"25h"}`), &p); err == nil {
		t.Fatal("expected malformed time to fail")
	}
}

func TestSlotOverlapsTouchingIsAllowed(t *testing.T) {
	a := Slot{Start: at(9, 0), End: at(10, 0)}
	cases := []struct {
		name string
		b    Slot
		want bool
	}{
		{"inside", Slot{Start: at(9, 30), End: at(9, 45)}, true},
		{"touch after", Slot{Start: at(10, 0), End: at(11, 0)}, false},
		{"touch before", Slot{Start: at(8, 0), End: at(9, 0)}, false},
		{"straddle", Slot{Start: at(8, 30), End: at(9, 1)}, true},
		{"cover", Slot{Start: at(8, 0), End: at(11, 0)}, true},
		{"disjoint", Slot{Start: at(12, 0), End: at(13, 0)}, false},
	}
	for _, tc := range cases {
		if got := a.Overlaps(tc.b); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		if got := tc.b.Overlaps(a); got != tc.want {
			t.Fatalf("%s (reversed): expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !StrictlyBetween(at(9, 30), at(9, 0), at(10, 0)) {
		t.Fatal("expected 09:30 strictly between")
	}
	if StrictlyBetween(at(9, 0), at(9, 0), at(10, 0)) {
		t.Fatal("endpoints are not strictly between")
	}

	p1 := Period{ID: 1, Start: 8 * 3600, End: 9 * 3600}
	p2 := Period{ID: 2, Start: 9 * 3600, End: 10 * 3600}
	p3 := Period{ID: 3, Start: 10*3600 + 1800, End: 11*3600 + 1800}
	if !IsContinuousWith(p1, p2) || IsContinuousWith(p2, p3) {
		t.Fatal("unexpected continuity")
	}
	if DiffSeconds(at(10, 0), at(9, 0)) != 3600 {
		t.Fatalf("unexpected diff %d", DiffSeconds(at(10, 0), at(9, 0)))
	}
	if err := (Period{ID: 9, Start: 10 * 3600, End: 10 * 3600}).Validate(); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestSlotDatesSpansMidnight(t *testing.T) {
	s := Slot{Start: at(23, 0), End: at(23, 0).Add(2 * time.Hour)}
	dates := s.Dates()
	if len(dates) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(dates))
	}
	if dates[1].Format(DateLayout) != "2026-03-03" {
		t.Fatalf("unexpected second date %s", dates[1].Format(DateLayout))
	}
	if len((Slot{Start: at(9, 0), End: at(10, 0)}).Dates()) != 1 {
		t.Fatal("expected single date for same-day slot")
	}
}

func TestStatusBlocks(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed} {
		if !s.Blocks() {
			t.Fatalf("%s should block", s)
		}
	}
	for _, s := range []Status{StatusCancelled, StatusRejected} {
		if s.Blocks() {
			t.Fatalf("%s should not block", s)
		}
	}
}

func TestTimestampLayout(t *testing.T) {
	loc := time.FixedZone("UTC+6", 6*3600)
	ts, err := ParseTimestamp("2026-03-02 09:40:00", loc)
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if ts.Location() != loc || FormatTimestamp(ts) != "2026-03-02 09:40:00" {
		t.Fatalf("unexpected timestamp %s", ts)
	}
}
