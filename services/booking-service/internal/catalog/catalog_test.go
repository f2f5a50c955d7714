package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"go.uber.org/zap"
)

type countingSource struct {
	periods  atomic.Int32
	settings atomic.Int32
	fail     bool
}

func (s *countingSource) ListPeriods(context.Context) ([]period.Period, error) {
	s.periods.Add(1)
	if s.fail {
		return nil, errors.New("backend down")
	}
	return []period.Period{{ID: 1, Start: 8 * 3600, End: 9 * 3600}}, nil
}

func (s *countingSource) GetSetting(_ context.Context, id int) (string, error) {
	s.settings.Add(1)
	if id != 1 {
		return "", ErrUnknownSetting
	}
	return "04:00:00", nil
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("redis: connection refused")
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis: connection refused")
}
func (brokenStore) DeletePrefix(context.Context, string) error { return nil }

func TestCatalog_CachesUntilInvalidated(t *testing.T) {
	src := &countingSource{}
	c := New(src, NewMemoryStore(), time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		periods, err := c.Periods(ctx)
		if err != nil {
			t.Fatalf("periods: %v", err)
		}
		if len(periods) != 1 || periods[0].End.String() != "09:00:00" {
			t.Fatalf("unexpected periods: %+v", periods)
		}
	}
	if got := src.periods.Load(); got != 1 {
		t.Fatalf("expected one source call, got %d", got)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := c.Periods(ctx); err != nil {
		t.Fatalf("periods: %v", err)
	}
	if got := src.periods.Load(); got != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", got)
	}
}

func TestCatalog_Setting(t *testing.T) {
	src := &countingSource{}
	c := New(src, nil, time.Minute, zap.NewNop())

	d, err := c.Setting(context.Background(), 1)
	if err != nil || d != 4*time.Hour {
		t.Fatalf("expected 4h, got %v err=%v", d, err)
	}
	if _, err := c.Setting(context.Background(), 9); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestCatalog_BrokenStoreFallsThrough(t *testing.T) {
	src := &countingSource{}
	c := New(src, brokenStore{}, time.Minute, zap.NewNop())

	if _, err := c.Periods(context.Background()); err != nil {
		t.Fatalf("periods: %v", err)
	}
	if _, err := c.Periods(context.Background()); err != nil {
		t.Fatalf("periods: %v", err)
	}
	if got := src.periods.Load(); got != 2 {
		t.Fatalf("expected source hit on every read, got %d", got)
	}
}

func TestCatalog_SourceErrorNotCached(t *testing.T) {
	src := &countingSource{fail: true}
	c := New(src, NewMemoryStore(), time.Minute, zap.NewNop())

	if _, err := c.Periods(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	src.fail = false
	if _, err := c.Periods(context.Background()); err != nil {
		t.Fatalf("periods: %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), time.Second)
	if v, err := s.Get(ctx, "k"); err != nil || string(v) != "v" {
		t.Fatalf("expected hit, got %q err=%v", v, err)
	}
	now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	src, err := ParseFile([]byte(`
periods:
  - period_id: 1
    start_time: "08:00"
    end_time: "09:40"
  - period_id: 2
    start_time: "09:40"
    end_time: "11:20:30"
settings:
  1: "168:00:00"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	periods, _ := src.ListPeriods(context.Background())
	if len(periods) != 2 || !period.IsContinuousWith(periods[0], periods[1]) {
		t.Fatalf("unexpected periods: %+v", periods)
	}
	if v, err := src.GetSetting(context.Background(), 1); err != nil || v != "168:00:00" {
		t.Fatalf("unexpected setting %q err=%v", v, err)
	}
	if _, err := src.GetSetting(context.Background(), 2); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestParseFile_RejectsBadPeriod(t *testing.T) {
	_, err := ParseFile([]byte(`
periods:
  - period_id: 1
    start_time: "10:00"
    end_time: "09:00"
`))
	if !errors.Is(err, period.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}
