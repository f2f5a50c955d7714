package availability

import (
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
)

var ErrInvalidSlot = errors.New("slot end must be after start")

// Conflict identifies the batch entry a proposed slot collides with.
type Conflict struct {
	Index int         `json:"conflict_index"`
	Slot  period.Slot `json:"slot"`
}

// Position is the 1-based slot number shown to users.
func (c Conflict) Position() int { return c.Index + 1 }

func (c Conflict) Error() string {
	return fmt.Sprintf("overlaps with slot %d", c.Position())
}

// CheckLocalConflict tests proposed against every accepted slot of the batch.
// Back-to-back slots that only touch are accepted.
func CheckLocalConflict(batch []period.Slot, proposed period.Slot) (Conflict, bool, error) {
	if !proposed.Valid() {
		return Conflict{}, false, ErrInvalidSlot
	}
	for i, existing := range batch {
		if existing.End.After(proposed.Start) && existing.Start.Before(proposed.End) {
			return Conflict{Index: i, Slot: existing}, true, nil
		}
	}
	return Conflict{}, false, nil
}
