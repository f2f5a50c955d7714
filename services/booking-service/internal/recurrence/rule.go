package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
)

type Type string

const (
	TypeNone   Type = "none"
	TypeWeekly Type = "weekly"
)

// MaxOccurrences caps the expansion of a single base slot.
const MaxOccurrences = 260

var ErrUnknownType = errors.New("unknown recurrence type")

func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case "", TypeNone:
		return TypeNone, nil
	case TypeWeekly:
		return TypeWeekly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, raw)
	}
}

// Rule governs how base slots repeat. Until is exclusive.
type Rule struct {
	Type  Type       `json:"type"`
	Until *time.Time `json:"until,omitempty"`
}

// Occurrence is one dated instance of a base slot; Seq 0 is the base itself.
type Occurrence struct {
	Base int `json:"base"`
	Seq  int `json:"seq"`
	period.Slot
}

// Expand lists the base slots followed by their weekly repeats whose start is
// strictly before rule.Until. A weekly rule without Until yields the base only.
// Base slots are moved into loc first so repeats keep loc's wall clock across
// DST changes, whatever offset the slots arrived with.
func Expand(base []period.Slot, rule Rule, loc *time.Location) []Occurrence {
	out := make([]Occurrence, 0, len(base))
	for i, slot := range base {
		slot = slot.In(loc)
		out = append(out, Occurrence{Base: i, Slot: slot})
		if rule.Type != TypeWeekly || rule.Until == nil {
			continue
		}
		for seq := 1; seq < MaxOccurrences; seq++ {
			next := slot.Shift(7 * seq)
			if !next.Start.Before(*rule.Until) {
				break
			}
			out = append(out, Occurrence{Base: i, Seq: seq, Slot: next})
		}
	}
	return out
}

// Slots drops the occurrence bookkeeping.
func Slots(occurrences []Occurrence) []period.Slot {
	out := make([]period.Slot, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, o.Slot)
	}
	return out
}
