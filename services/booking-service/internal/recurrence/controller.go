package recurrence

import (
	"errors"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
)

type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateValidating  State = "validating"
	StateValidated   State = "validated"
)

var (
	ErrNotWeekly    = errors.New("recurrence is not weekly")
	ErrNoBaseSlots  = errors.New("no base slots to repeat")
	ErrInvalidUntil = errors.New("until must be after the first base slot starts")
)

// Controller is the recurrence state of one booking draft. It is a plain
// value so it can be stored and restored; Generation increases on every
// change that makes in-flight validation stale.
type Controller struct {
	State      State         `json:"state"`
	Rule       Rule          `json:"rule"`
	Base       []period.Slot `json:"base_slots"`
	Result     Result        `json:"result"`
	Generation uint64        `json:"generation"`
}

// Ticket is the input snapshot handed to a validation job.
type Ticket struct {
	Generation uint64        `json:"generation"`
	Rule       Rule          `json:"rule"`
	Base       []period.Slot `json:"base_slots"`
}

// Occurrences expands the ticket in loc. Tickets that went through JSON carry
// fixed offsets, so loc must be the configured zone, not the slots' own.
func (t Ticket) Occurrences(loc *time.Location) []Occurrence {
	return Expand(t.Base, t.Rule, loc)
}

func NewController() Controller {
	return Controller{
		State:  StateIdle,
		Rule:   Rule{Type: TypeNone},
		Result: Result{Valid: []period.Slot{}, Conflicting: []Conflict{}},
	}
}

// SetBase replaces the base slots. Without recurrence the valid set follows
// the base; with a weekly rule any previous or in-flight result is dropped.
func (c *Controller) SetBase(base []period.Slot) {
	c.Base = append([]period.Slot(nil), base...)
	c.Generation++
	switch c.State {
	case StateIdle:
		c.Result = Result{Valid: append([]period.Slot{}, c.Base...), Conflicting: []Conflict{}}
	case StateValidating, StateValidated:
		c.State = StateConfiguring
		c.Result = Result{Valid: []period.Slot{}, Conflicting: []Conflict{}}
	}
}

// SelectType switches between no recurrence and weekly. Re-selecting weekly
// keeps the current weekly state.
func (c *Controller) SelectType(t Type) error {
	switch t {
	case TypeNone:
		c.State = StateIdle
		c.Rule = Rule{Type: TypeNone}
		c.Result = Result{Valid: append([]period.Slot{}, c.Base...), Conflicting: []Conflict{}}
		c.Generation++
		return nil
	case TypeWeekly:
		if c.Rule.Type == TypeWeekly {
			return nil
		}
		c.State = StateConfiguring
		c.Rule = Rule{Type: TypeWeekly}
		c.Result = Result{Valid: []period.Slot{}, Conflicting: []Conflict{}}
		c.Generation++
		return nil
	default:
		return ErrUnknownType
	}
}

// SubmitUntil moves a weekly rule into Validating and returns the ticket the
// validation job must present to Apply.
func (c *Controller) SubmitUntil(until time.Time) (Ticket, error) {
	if c.Rule.Type != TypeWeekly {
		return Ticket{}, ErrNotWeekly
	}
	if len(c.Base) == 0 {
		return Ticket{}, ErrNoBaseSlots
	}
	first := c.Base[0].Start
	for _, s := range c.Base[1:] {
		if s.Start.Before(first) {
			first = s.Start
		}
	}
	if !until.After(first) {
		return Ticket{}, ErrInvalidUntil
	}

	c.Rule.Until = &until
	c.State = StateValidating
	c.Result = Result{Valid: []period.Slot{}, Conflicting: []Conflict{}}
	c.Generation++
	return c.Ticket(), nil
}

// Ticket snapshots the current inputs.
func (c *Controller) Ticket() Ticket {
	return Ticket{
		Generation: c.Generation,
		Rule:       c.Rule,
		Base:       append([]period.Slot(nil), c.Base...),
	}
}

// Apply stores a validation result unless the ticket is stale.
func (c *Controller) Apply(t Ticket, res Result) bool {
	if c.State != StateValidating || t.Generation != c.Generation {
		return false
	}
	c.State = StateValidated
	c.Result = res
	return true
}

// Abort returns a validation that could not run to Configuring so the user
// can resubmit. Stale tickets are ignored.
func (c *Controller) Abort(t Ticket) bool {
	if c.State != StateValidating || t.Generation != c.Generation {
		return false
	}
	c.State = StateConfiguring
	c.Generation++
	return true
}

// Ready reports whether the valid set is final and may be submitted.
func (c *Controller) Ready() bool {
	return c.State == StateIdle || c.State == StateValidated
}

func (c *Controller) Valid() []period.Slot {
	return c.Result.Valid
}
