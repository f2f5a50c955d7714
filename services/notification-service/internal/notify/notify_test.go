package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func at(day, hour int) time.Time {
	return time.Date(2026, time.February, day, hour, 0, 0, 0, time.UTC)
}

func sampleEvent() SubmittedEvent {
	return SubmittedEvent{
		SubmissionID:  "sub-1",
		ReservationID: "r-77",
		RoomID:        7,
		UserID:        "user-1",
		UserEmail:     "ada@example.com",
		Title:         "Team sync",
		Slots: []Slot{
			{Start: at(4, 8), End: at(4, 9)},
			{Start: at(11, 8), End: at(11, 9)},
		},
		Conflicts: []Conflict{
			{Slot: Slot{Start: at(18, 8), End: at(18, 9)}, Reason: "occupied"},
			{Slot: Slot{Start: at(25, 8), End: at(25, 9)}, Reason: "lookup_failed"},
		},
	}
}

func TestSummary(t *testing.T) {
	subject, body := Summary(sampleEvent(), time.UTC)
	if subject != "Reservation submitted: Team sync" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{
		`Your reservation "Team sync" for room 7 was submitted.`,
		"Reservation: r-77",
		"Booked (2):",
		"  Wed 04 Feb 2026 08:00-09:00",
		"  Wed 11 Feb 2026 08:00-09:00",
		"Not booked (2):",
		"  Wed 18 Feb 2026 08:00-09:00 (already reserved)",
		"  Wed 25 Feb 2026 08:00-09:00 (availability could not be checked)",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSummaryUsesLocationAndOmitsEmptyConflicts(t *testing.T) {
	evt := sampleEvent()
	evt.Conflicts = nil
	loc := time.FixedZone("UTC+2", 2*60*60)
	_, body := Summary(evt, loc)
	if !strings.Contains(body, "Wed 04 Feb 2026 10:00-11:00") {
		t.Fatalf("expected local times:\n%s", body)
	}
	if strings.Contains(body, "Not booked") {
		t.Fatalf("unexpected conflict section:\n%s", body)
	}
}

func TestSummarySpansMidnight(t *testing.T) {
	evt := sampleEvent()
	evt.Slots = []Slot{{Start: at(4, 23), End: at(5, 1)}}
	_, body := Summary(evt, time.UTC)
	if !strings.Contains(body, "Wed 04 Feb 2026 23:00 - Thu 05 Feb 2026 01:00") {
		t.Fatalf("unexpected overnight formatting:\n%s", body)
	}
}

type fakeSender struct {
	err  error
	sent []string
}

func (s *fakeSender) ProviderID() string { return "fake" }

func (s *fakeSender) Send(_ context.Context, to, subject, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to+"|"+subject)
	return nil
}

type fakeStore struct {
	err  error
	rows []storage.Notification
}

func (s *fakeStore) Insert(_ context.Context, n storage.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, n)
	return nil
}

func eventMessage(t *testing.T, evt SubmittedEvent) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Topic: EventReservationSubmitted, Value: raw}
}

func TestHandlerSendsAndRecords(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{}
	h := NewHandler(sender, store, time.UTC, zap.NewNop())

	if err := h.Handle(context.Background(), eventMessage(t, sampleEvent())); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "ada@example.com|Reservation submitted: Team sync" {
		t.Fatalf("unexpected sends %v", sender.sent)
	}
	if len(store.rows) != 1 || store.rows[0].Status != storage.StatusSent || store.rows[0].ProviderID != "fake" {
		t.Fatalf("unexpected rows %+v", store.rows)
	}
}

func TestHandlerRecordsSendFailure(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(&fakeSender{err: errors.New("relay down")}, store, time.UTC, zap.NewNop())

	if err := h.Handle(context.Background(), eventMessage(t, sampleEvent())); err != nil {
		t.Fatalf("send failure should not be retried: %v", err)
	}
	if len(store.rows) != 1 || store.rows[0].Status != storage.StatusFailed || store.rows[0].ErrorReason != "relay down" {
		t.Fatalf("unexpected rows %+v", store.rows)
	}
}

func TestHandlerSkipsWithoutRecipient(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{}
	evt := sampleEvent()
	evt.UserEmail = ""
	if err := NewHandler(sender, store, nil, zap.NewNop()).Handle(context.Background(), eventMessage(t, evt)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(sender.sent) != 0 || len(store.rows) != 1 || store.rows[0].Status != storage.StatusSkipped {
		t.Fatalf("expected a skipped row and no mail, sent=%v rows=%+v", sender.sent, store.rows)
	}
}

func TestHandlerDropsMalformedEvents(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(&fakeSender{}, store, time.UTC, zap.NewNop())

	if err := h.Handle(context.Background(), kafka.Message{Value: []byte("{")}); err != nil {
		t.Fatalf("malformed json should be dropped: %v", err)
	}
	evt := sampleEvent()
	evt.Slots = nil
	if err := h.Handle(context.Background(), eventMessage(t, evt)); err != nil {
		t.Fatalf("incomplete event should be dropped: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected nothing stored, got %+v", store.rows)
	}
}

func TestHandlerReturnsStoreError(t *testing.T) {
	h := NewHandler(&fakeSender{}, &fakeStore{err: errors.New("db down")}, time.UTC, zap.NewNop())
	if err := h.Handle(context.Background(), eventMessage(t, sampleEvent())); err == nil {
		t.Fatal("expected store error to be returned")
	}
}
