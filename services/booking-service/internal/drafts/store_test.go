package drafts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
)

func TestMemoryStore_UpdateIsAtomic(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	ctx := context.Background()
	d := Draft{ID: "d1", RoomID: 1, Owner: alice, Recurrence: recurrence.NewController()}
	if err := s.Create(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, d); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	boom := errors.New("boom")
	_, err := s.Update(ctx, "d1", func(d *Draft) error {
		d.Recurrence.SetBase([]period.Slot{slot(8, 0, 9, 0)})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.Get(ctx, "d1")
	if len(got.Slots()) != 0 {
		t.Fatalf("failed update must not persist: %+v", got.Slots())
	}

	got.Recurrence.Base = append(got.Recurrence.Base, slot(8, 0, 9, 0))
	again, _ := s.Get(ctx, "d1")
	if len(again.Slots()) != 0 {
		t.Fatalf("caller mutation leaked into the store")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()
	_ = s.Create(ctx, Draft{ID: "d1"})

	now = now.Add(59 * time.Second)
	if _, err := s.Update(ctx, "d1", func(*Draft) error { return nil }); err != nil {
		t.Fatalf("update: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := s.Get(ctx, "d1"); err != nil {
		t.Fatalf("update should extend the ttl: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if err := s.Delete(ctx, "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHub_SubscribeCancel(t *testing.T) {
	h := NewHub()
	ctx := context.Background()
	ch, cancel, _ := h.Subscribe(ctx, "d1")
	_ = h.Publish(ctx, "d1", Event{Kind: EventUpdated})
	_ = h.Publish(ctx, "d2", Event{Kind: EventDeleted})

	if evt := <-ch; evt.Kind != EventUpdated {
		t.Fatalf("unexpected event %s", evt.Kind)
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	_ = h.Publish(ctx, "d1", Event{Kind: EventUpdated})
}
