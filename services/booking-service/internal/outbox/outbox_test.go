package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestRecordMessage(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	rec := Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "sub-1",
		EventType:   "booking.reservation.submitted.v1",
		Payload:     []byte(`{"room_id":1}`),
		CreatedAt:   time.Date(2026, time.February, 4, 8, 0, 0, 0, time.UTC),
		Trace: otelx.TraceContext{
			Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		},
	}

	msg := rec.Message(context.Background())
	if msg.Topic != rec.EventType || string(msg.Key) != "sub-1" {
		t.Fatalf("unexpected message routing: topic=%s key=%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != rec.EventType || meta.AggregateID != "sub-1" || !meta.OccurredAt.Equal(rec.CreatedAt) {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != rec.Trace.Traceparent {
		t.Fatalf("trace context not propagated, got %q", got)
	}
}
