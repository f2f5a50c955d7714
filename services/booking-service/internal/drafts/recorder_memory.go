package drafts

import (
	"context"
	"sync"
	"time"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
)

// MemoryRecorder keeps submissions in process, for deployments without
// Postgres. Record holds a lock across the backend call so duplicate keys
// cannot race.
type MemoryRecorder struct {
	mu    sync.Mutex
	byKey map[string]model.Submission
	all   []model.Submission
	now   func() time.Time
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{byKey: make(map[string]model.Submission), now: time.Now}
}

func (r *MemoryRecorder) Replay(_ context.Context, userID, key string) (model.Submission, bool, error) {
	if key == "" {
		return model.Submission{}, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byKey[userID+"\x00"+key]
	return sub, ok, nil
}

func (r *MemoryRecorder) Record(ctx context.Context, sub model.Submission, key string, create func(context.Context) (string, error)) (model.Submission, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key != "" {
		if prior, ok := r.byKey[sub.UserID+"\x00"+key]; ok {
			return prior, true, nil
		}
	}
	id, err := create(ctx)
	if err != nil {
		return model.Submission{}, false, err
	}
	sub.ReservationID = id
	sub.CreatedAt = r.now().UTC()
	r.all = append(r.all, sub)
	if key != "" {
		r.byKey[sub.UserID+"\x00"+key] = sub
	}
	return sub, false, nil
}

func (r *MemoryRecorder) List(_ context.Context, userID string, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Submission
	for i := len(r.all) - 1; i >= 0 && len(out) < limit; i-- {
		if r.all[i].UserID == userID {
			out = append(out, r.all[i])
		}
	}
	return out, nil
}
