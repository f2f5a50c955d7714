package kafkax

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	headerEventID     = "event_id"
	headerEventType   = "event_type"
	headerAggregateID = "aggregate_id"
	headerOccurredAt  = "occurred_at"
)

// EventMeta is the canonical metadata carried on Kafka messages across services.
type EventMeta struct {
	EventID     string
	EventType   string
	AggregateID string
	// OccurredAt is when the producing transaction wrote the event, not when
	// it reached Kafka.
	OccurredAt time.Time
}

// Headers renders the metadata as message headers. Empty fields are omitted.
func (m EventMeta) Headers() []kafka.Header {
	headers := []kafka.Header{
		{Key: headerEventID, Value: []byte(m.EventID)},
		{Key: headerEventType, Value: []byte(m.EventType)},
	}
	if m.AggregateID != "" {
		headers = append(headers, kafka.Header{Key: headerAggregateID, Value: []byte(m.AggregateID)})
	}
	if !m.OccurredAt.IsZero() {
		headers = append(headers, kafka.Header{Key: headerOccurredAt, Value: []byte(m.OccurredAt.UTC().Format(time.RFC3339Nano))})
	}
	return headers
}

// ExtractEventMeta falls back to the message key, topic and broker timestamp
// when headers are missing.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:     HeaderValue(msg.Headers, headerEventID),
		EventType:   HeaderValue(msg.Headers, headerEventType),
		AggregateID: HeaderValue(msg.Headers, headerAggregateID),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	if meta.AggregateID == "" {
		meta.AggregateID = string(msg.Key)
	}
	if t, err := time.Parse(time.RFC3339Nano, HeaderValue(msg.Headers, headerOccurredAt)); err == nil {
		meta.OccurredAt = t
	} else {
		meta.OccurredAt = msg.Time
	}
	return meta
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
