package model

import (
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
)

const EventReservationSubmitted = "booking.reservation.submitted.v1"

// Submission is a draft that was turned into a backend reservation.
type Submission struct {
	ID            string                `json:"id"`
	DraftID       string                `json:"draft_id"`
	RoomID        int                   `json:"room_id"`
	UserID        string                `json:"user_id"`
	UserEmail     string                `json:"user_email,omitempty"`
	Title         string                `json:"title"`
	Note          string                `json:"note,omitempty"`
	ReservationID string                `json:"reservation_id"`
	Slots         []period.Slot         `json:"slots"`
	Conflicts     []recurrence.Conflict `json:"conflicts"`
	CreatedAt     time.Time             `json:"created_at"`
}

// SubmittedEvent is the payload of EventReservationSubmitted.
type SubmittedEvent struct {
	SubmissionID  string                `json:"submission_id"`
	ReservationID string                `json:"reservation_id"`
	RoomID        int                   `json:"room_id"`
	UserID        string                `json:"user_id"`
	UserEmail     string                `json:"user_email,omitempty"`
	Title         string                `json:"title"`
	Slots         []period.Slot         `json:"slots"`
	Conflicts     []recurrence.Conflict `json:"conflicts"`
	SubmittedAt   time.Time             `json:"submitted_at"`
}

func (s Submission) Event() SubmittedEvent {
	return SubmittedEvent{
		SubmissionID:  s.ID,
		ReservationID: s.ReservationID,
		RoomID:        s.RoomID,
		UserID:        s.UserID,
		UserEmail:     s.UserEmail,
		Title:         s.Title,
		Slots:         s.Slots,
		Conflicts:     s.Conflicts,
		SubmittedAt:   s.CreatedAt,
	}
}
