package consumer

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox deduplicates deliveries by event id.
type Inbox interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *zap.Logger
	inbox   Inbox
	handler Handler
	retries int
	backoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
	// Retries is how many extra attempts a failing handler gets.
	Retries int
	Backoff time.Duration
}

func New(logger *zap.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, inbox, reader, cfg, handler)
}

func NewWithReader(logger *zap.Logger, inbox Inbox, reader MessageReader, cfg Config, handler Handler) *Consumer {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer func() { _ = c.reader.Close() }()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", zap.Error(err))
			if !sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		if !c.process(ctx, msg) {
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

// process returns false only when ctx ends before the message was handled.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	span.SetAttributes(
		attribute.String("messaging.message.id", meta.EventID),
		attribute.String("event.aggregate_id", meta.AggregateID),
	)
	if !meta.OccurredAt.IsZero() {
		c.logger.Debug("event received", zap.String("event_id", meta.EventID), zap.Duration("lag", time.Since(meta.OccurredAt)))
	}
	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", zap.Error(err), zap.String("event_id", meta.EventID))
		span.RecordError(err)
		return ctx.Err() == nil
	}
	if !ok {
		c.logger.Info("duplicate event ignored", zap.String("event_id", meta.EventID), zap.String("event_type", meta.EventType))
		return true
	}

	for attempt := 0; ; attempt++ {
		err = c.handler(ctxSpan, msg)
		if err == nil {
			return true
		}
		span.RecordError(err)
		if attempt >= c.retries {
			break
		}
		c.logger.Warn("handler failed; retrying", zap.Error(err), zap.String("event_id", meta.EventID), zap.Int("attempt", attempt+1))
		if !sleep(ctx, c.backoff) {
			return false
		}
	}

	span.SetStatus(codes.Error, "handler failed")
	c.logger.Error("handler error; event dropped", zap.Error(err), zap.String("event_id", meta.EventID))
	if ferr := c.inbox.Forget(context.WithoutCancel(ctx), meta.EventID); ferr != nil {
		c.logger.Error("inbox forget failed", zap.Error(ferr), zap.String("event_id", meta.EventID))
	}
	return ctx.Err() == nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
