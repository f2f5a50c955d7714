package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Store interface {
	Insert(ctx context.Context, n storage.Notification) error
}

// Handler mails a summary to the user who submitted a reservation.
type Handler struct {
	sender email.Sender
	store  Store
	loc    *time.Location
	logger *zap.Logger
}

func NewHandler(sender email.Sender, store Store, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{sender: sender, store: store, loc: loc, logger: logger}
}

// Handle returns an error only when the outcome could not be stored, so the
// consumer retries. Malformed events are logged and dropped.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var evt SubmittedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.logger.Error("invalid submission payload", zap.Error(err), zap.String("topic", msg.Topic))
		return nil
	}
	if err := evt.validate(); err != nil {
		h.logger.Error("incomplete submission event", zap.Error(err), zap.String("submission_id", evt.SubmissionID))
		return nil
	}

	n := storage.Notification{
		SubmissionID: evt.SubmissionID,
		UserID:       evt.UserID,
		Channel:      "email",
		Recipient:    evt.UserEmail,
		Payload:      evt,
	}
	if evt.UserEmail == "" {
		n.Status = storage.StatusSkipped
		n.ErrorReason = "no email address"
		h.logger.Info("submission has no recipient", zap.String("submission_id", evt.SubmissionID))
		return h.store.Insert(ctx, n)
	}

	subject, body := Summary(evt, h.loc)
	if err := h.sender.Send(ctx, evt.UserEmail, subject, body); err != nil {
		n.Status = storage.StatusFailed
		n.ErrorReason = err.Error()
		h.logger.Error("email send failed", zap.Error(err), zap.String("submission_id", evt.SubmissionID))
	} else {
		n.Status = storage.StatusSent
		n.ProviderID = h.sender.ProviderID()
	}
	if err := h.store.Insert(ctx, n); err != nil {
		h.logger.Error("failed to persist notification", zap.Error(err), zap.String("submission_id", evt.SubmissionID))
		return err
	}

	h.logger.Info("submission processed",
		zap.String("submission_id", evt.SubmissionID),
		zap.Int("slots", len(evt.Slots)),
		zap.Int("conflicts", len(evt.Conflicts)),
		zap.String("status", n.Status),
	)
	return nil
}
