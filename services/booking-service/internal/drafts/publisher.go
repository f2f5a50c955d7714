package drafts

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Publisher fans draft events out to watchers. Subscribe returns a channel
// that is closed after cancel is called.
type Publisher interface {
	Publish(ctx context.Context, draftID string, evt Event) error
	Subscribe(ctx context.Context, draftID string) (<-chan Event, func(), error)
}

// Hub is an in-process Publisher. Slow watchers miss events rather than
// block publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *Hub) Publish(_ context.Context, draftID string, evt Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[draftID] {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(_ context.Context, draftID string) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	if h.subs[draftID] == nil {
		h.subs[draftID] = make(map[chan Event]struct{})
	}
	h.subs[draftID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[draftID], ch)
			if len(h.subs[draftID]) == 0 {
				delete(h.subs, draftID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
