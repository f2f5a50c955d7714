package drafts

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/planner"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
)

var (
	ErrNotFound        = errors.New("draft not found")
	ErrExists          = errors.New("draft already exists")
	ErrContention      = errors.New("draft is being modified concurrently")
	ErrSlotIndex       = errors.New("slot index out of range")
	ErrSlotUnavailable = errors.New("slot is not available")
	ErrNotReady        = errors.New("draft is not ready for submission")
	ErrNothingToSubmit = errors.New("draft has no valid slots")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidRoom     = errors.New("room id must be positive")
	ErrOwnerRequired   = errors.New("owner is required")
	errStaleValidation = errors.New("stale validation result")
)

// Owner is the user a draft belongs to, taken from the gateway's identity
// headers.
type Owner struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Draft is a server-held batch of slots for one room, plus its recurrence
// state, built up by one user before submission.
type Draft struct {
	ID         string                `json:"id"`
	RoomID     int                   `json:"room_id"`
	Owner      Owner                 `json:"owner"`
	Recurrence recurrence.Controller `json:"recurrence"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func (d Draft) Slots() []period.Slot { return d.Recurrence.Base }

func (d Draft) OwnedBy(o Owner) bool { return o.UserID != "" && d.Owner.UserID == o.UserID }

// ConflictError reports the batch slot a proposed slot overlaps.
type ConflictError struct {
	Index    int         `json:"conflict_index"`
	Position int         `json:"position"`
	Slot     period.Slot `json:"slot"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("overlaps with slot %d", e.Position)
}

// UnavailableError means live availability could not be computed.
type UnavailableError struct {
	Reason planner.Degradation
}

func (e *UnavailableError) Error() string {
	return "availability unavailable: " + string(e.Reason)
}

type EventKind string

const (
	EventUpdated   EventKind = "updated"
	EventDeleted   EventKind = "deleted"
	EventSubmitted EventKind = "submitted"
)

// Event is pushed to watchers of a draft.
type Event struct {
	Kind       EventKind         `json:"kind"`
	Draft      Draft             `json:"draft"`
	Submission *model.Submission `json:"submission,omitempty"`
}
