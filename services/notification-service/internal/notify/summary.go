package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const EventReservationSubmitted = "booking.reservation.submitted.v1"

type Slot struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

type Conflict struct {
	Slot
	Reason string `json:"reason"`
}

// SubmittedEvent mirrors the payload booking-service publishes after a
// reservation was created in the backend.
type SubmittedEvent struct {
	SubmissionID  string     `json:"submission_id"`
	ReservationID string     `json:"reservation_id"`
	RoomID        int        `json:"room_id"`
	UserID        string     `json:"user_id"`
	UserEmail     string     `json:"user_email,omitempty"`
	Title         string     `json:"title"`
	Slots         []Slot     `json:"slots"`
	Conflicts     []Conflict `json:"conflicts"`
	SubmittedAt   time.Time  `json:"submitted_at"`
}

func (e SubmittedEvent) validate() error {
	switch {
	case e.SubmissionID == "":
		return errors.New("missing submission_id")
	case e.UserID == "":
		return errors.New("missing user_id")
	case len(e.Slots) == 0:
		return errors.New("no slots")
	}
	return nil
}

var reasonText = map[string]string{
	"occupied":      "already reserved",
	"lookup_failed": "availability could not be checked",
}

// Summary renders the confirmation mail. Times are shown in loc.
func Summary(evt SubmittedEvent, loc *time.Location) (subject, body string) {
	if loc == nil {
		loc = time.UTC
	}
	subject = fmt.Sprintf("Reservation submitted: %s", evt.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Your reservation %q for room %d was submitted.\n", evt.Title, evt.RoomID)
	if evt.ReservationID != "" {
		fmt.Fprintf(&b, "Reservation: %s\n", evt.ReservationID)
	}
	fmt.Fprintf(&b, "\nBooked (%d):\n", len(evt.Slots))
	for _, s := range evt.Slots {
		fmt.Fprintf(&b, "  %s\n", formatSlot(s, loc))
	}
	if len(evt.Conflicts) > 0 {
		fmt.Fprintf(&b, "\nNot booked (%d):\n", len(evt.Conflicts))
		for _, c := range evt.Conflicts {
			reason, ok := reasonText[c.Reason]
			if !ok {
				reason = c.Reason
			}
			fmt.Fprintf(&b, "  %s (%s)\n", formatSlot(c.Slot, loc), reason)
		}
	}
	return subject, b.String()
}

func formatSlot(s Slot, loc *time.Location) string {
	start, end := s.Start.In(loc), s.End.In(loc)
	if start.Format(time.DateOnly) == end.Format(time.DateOnly) {
		return fmt.Sprintf("%s %s-%s", start.Format("Mon 02 Jan 2006"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s %s - %s %s", start.Format("Mon 02 Jan 2006"), start.Format("15:04"), end.Format("Mon 02 Jan 2006"), end.Format("15:04"))
}
