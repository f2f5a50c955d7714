package kafkax

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMetaFallsBack(t *testing.T) {
	msg := kafka.Message{Topic: "booking.reservation.submitted.v1", Key: []byte("sub-1")}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "sub-1" || meta.EventType != msg.Topic {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	if meta.AggregateID != "sub-1" || !meta.OccurredAt.IsZero() {
		t.Fatalf("unexpected fallback aggregate/time: %+v", meta)
	}

	at := time.Date(2026, time.February, 4, 8, 0, 0, 0, time.UTC)
	msg.Headers = EventMeta{EventID: "evt-9", EventType: "custom", AggregateID: "sub-2", OccurredAt: at}.Headers()
	meta = ExtractEventMeta(msg)
	if meta.EventID != "evt-9" || meta.EventType != "custom" || meta.AggregateID != "sub-2" || !meta.OccurredAt.Equal(at) {
		t.Fatalf("headers should win: %+v", meta)
	}
	if len(EventMeta{EventID: "e"}.Headers()) != 2 {
		t.Fatal("empty optional fields should not become headers")
	}
}

func TestHeaderCarrierSetAppends(t *testing.T) {
	c := &headerCarrier{}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	if len(c.headers) != 1 || c.Get("traceparent") != "b" {
		t.Fatalf("expected single overwritten header, got %+v", c.headers)
	}
	if got := InjectTraceHeaders(context.Background(), nil); len(got) != 0 {
		t.Fatalf("no active span should add no headers, got %+v", got)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka2:9092 ")
	if len(got) != 2 || got[0] != "kafka:9092" || got[1] != "kafka2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if ReadyCheck("") != nil {
		t.Fatal("expected nil ready check without brokers")
	}
}
