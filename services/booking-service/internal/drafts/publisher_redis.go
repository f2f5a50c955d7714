package drafts

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher relays draft events over Redis pub/sub so a watcher
// connected to any replica sees changes made on another.
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix, logger: logger}
}

func (p *RedisPublisher) channel(draftID string) string { return p.prefix + draftID }

func (p *RedisPublisher) Publish(ctx context.Context, draftID string, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel(draftID), payload).Err()
}

func (p *RedisPublisher) Subscribe(ctx context.Context, draftID string) (<-chan Event, func(), error) {
	ps := p.rdb.Subscribe(ctx, p.channel(draftID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					p.logger.Warn("dropping undecodable draft event", zap.String("draft_id", draftID), zap.Error(err))
					continue
				}
				select {
				case out <- evt:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}
	return out, cancel, nil
}
