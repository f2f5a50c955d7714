package availability

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
)

func TestCheckLocalConflict(t *testing.T) {
	batch := []period.Slot{{Start: tod(t, "09:00").On(day), End: tod(t, "10:00").On(day)}}

	c, conflict, err := CheckLocalConflict(batch, period.Slot{Start: tod(t, "09:30").On(day), End: tod(t, "09:45").On(day)})
	if err != nil || !conflict {
		t.Fatalf("expected conflict, got conflict=%v err=%v", conflict, err)
	}
	if c.Index != 0 || c.Position() != 1 || c.Error() != "overlaps with slot 1" {
		t.Fatalf("unexpected conflict %+v (%s)", c, c.Error())
	}

	_, conflict, err = CheckLocalConflict(batch, period.Slot{Start: tod(t, "10:00").On(day), End: tod(t, "11:00").On(day)})
	if err != nil || conflict {
		t.Fatalf("touching slots must be accepted, got conflict=%v err=%v", conflict, err)
	}
}

func TestCheckLocalConflict_ReportsFirstCollision(t *testing.T) {
	batch := []period.Slot{
		{Start: tod(t, "08:00").On(day), End: tod(t, "09:00").On(day)},
		{Start: tod(t, "10:00").On(day), End: tod(t, "11:00").On(day)},
		{Start: tod(t, "11:00").On(day), End: tod(t, "12:00").On(day)},
	}
	c, conflict, _ := CheckLocalConflict(batch, period.Slot{Start: tod(t, "10:30").On(day), End: tod(t, "11:30").On(day)})
	if !conflict || c.Index != 1 {
		t.Fatalf("expected conflict with index 1, got %+v", c)
	}
}

func TestCheckLocalConflict_InvalidSlot(t *testing.T) {
	s := period.Slot{Start: tod(t, "10:00").On(day), End: tod(t, "10:00").On(day)}
	if _, _, err := CheckLocalConflict(nil, s); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestAcceptedBatchHasNoOverlaps(t *testing.T) {
	proposals := []period.Slot{
		{Start: tod(t, "08:00").On(day), End: tod(t, "09:00").On(day)},
		{Start: tod(t, "08:30").On(day), End: tod(t, "09:30").On(day)},
		{Start: tod(t, "09:00").On(day), End: tod(t, "10:00").On(day)},
		{Start: tod(t, "07:00").On(day), End: tod(t, "12:00").On(day)},
		{Start: tod(t, "10:00").On(day), End: tod(t, "10:30").On(day)},
	}
	var batch []period.Slot
	for _, p := range proposals {
		if _, conflict, err := CheckLocalConflict(batch, p); err == nil && !conflict {
			batch = append(batch, p)
		}
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 accepted slots, got %d", len(batch))
	}
	for i := range batch {
		for j := range batch {
			if i != j && batch[i].Overlaps(batch[j]) {
				t.Fatalf("slots %d and %d overlap", i, j)
			}
		}
	}
}
