package availability

import (
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
)

func TestRefine_StartStopsAtBreak(t *testing.T) {
	opts := Compute(day, morning(t), nil, Constraints{MaxDuration: 2 * time.Hour})

	refined := opts.Refine(Selection{Start: intp(1)})
	if got := times(refined.EnabledEnd()); !reflect.DeepEqual(got, []string{"10:00:00"}) {
		t.Fatalf("expected only 10:00 after choosing 09:00, got %v", got)
	}
	if len(refined.End) != len(opts.End) {
		t.Fatalf("options must be disabled, not removed: %d vs %d", len(refined.End), len(opts.End))
	}
	if !refined.End[0].Disabled || !refined.End[2].Disabled {
		t.Fatalf("expected earlier and post-break ends disabled: %+v", refined.End)
	}
	if len(refined.EnabledStart()) != 3 {
		t.Fatal("start picker must stay complete when only a start is chosen")
	}
}

func TestRefine_MaxDurationBound(t *testing.T) {
	opts := Compute(day, morning(t), nil, Constraints{MaxDuration: time.Hour})
	refined := opts.Refine(Selection{Start: intp(0)})
	if got := times(refined.EnabledEnd()); !reflect.DeepEqual(got, []string{"09:00:00"}) {
		t.Fatalf("expected only 09:00 within one hour, got %v", got)
	}

	opts = Compute(day, morning(t), nil, Constraints{MaxDuration: 2 * time.Hour})
	for _, s := range opts.Start {
		for _, e := range opts.Refine(Selection{Start: intp(s.Index)}).EnabledEnd() {
			if secs := e.Time.Sub(s.Time); time.Duration(secs)*time.Second > opts.MaxDuration {
				t.Fatalf("pair %s-%s exceeds max duration", s.Time, e.Time)
			}
			for k := s.Index; k < e.Index; k++ {
				if !period.IsContinuousWith(opts.Periods[k], opts.Periods[k+1]) {
					t.Fatalf("pair %s-%s crosses a break", s.Time, e.Time)
				}
			}
		}
	}
}

func TestRefine_EndWalksBackward(t *testing.T) {
	opts := Compute(day, morning(t), nil, Constraints{MaxDuration: 2 * time.Hour})
	refined := opts.Refine(Selection{End: intp(1)})
	if got := times(refined.EnabledStart()); !reflect.DeepEqual(got, []string{"08:00:00", "09:00:00"}) {
		t.Fatalf("unexpected starts for end 10:00: %v", got)
	}

	refined = opts.Refine(Selection{End: intp(2)})
	if got := times(refined.EnabledStart()); !reflect.DeepEqual(got, []string{"10:30:00"}) {
		t.Fatalf("unexpected starts for end 11:30: %v", got)
	}
}

func TestRefine_ClearResetsOptions(t *testing.T) {
	opts := Compute(day, morning(t), nil, Constraints{MaxDuration: 2 * time.Hour})
	narrowed := opts.Refine(Selection{Start: intp(2)})
	if len(narrowed.EnabledEnd()) != 1 {
		t.Fatalf("expected narrowed end list, got %v", times(narrowed.EnabledEnd()))
	}
	cleared := narrowed.Refine(Selection{})
	if !reflect.DeepEqual(cleared.End, opts.End) {
		t.Fatalf("clearing must restore the full list: %+v", cleared.End)
	}
	if opts.End[0].Disabled {
		t.Fatal("Refine must not mutate its receiver")
	}
}

func TestRefine_NonPositiveMaxDurationAllowsSinglePeriod(t *testing.T) {
	opts := Compute(day, morning(t), nil, Constraints{})
	refined := opts.Refine(Selection{Start: intp(0)})
	if got := times(refined.EnabledEnd()); !reflect.DeepEqual(got, []string{"09:00:00"}) {
		t.Fatalf("expected single-period booking, got %v", got)
	}
	refined = opts.Refine(Selection{End: intp(1)})
	if got := times(refined.EnabledStart()); !reflect.DeepEqual(got, []string{"09:00:00"}) {
		t.Fatalf("expected single-period booking, got %v", got)
	}
}

func TestRefine_OutOfRangeDisablesAll(t *testing.T) {
	opts := Compute(day, morning(t), nil, Constraints{MaxDuration: time.Hour})
	if got := opts.Refine(Selection{Start: intp(7)}).EnabledEnd(); len(got) != 0 {
		t.Fatalf("expected no enabled ends, got %v", times(got))
	}
}
