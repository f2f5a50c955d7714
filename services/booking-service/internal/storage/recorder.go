package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/outbox"
)

// Recorder persists submissions together with their outbox event, and
// replays the stored result for a repeated idempotency key.
type Recorder struct {
	repo   *SubmissionRepository
	outbox *outbox.Repository
}

func NewRecorder(repo *SubmissionRepository, outboxRepo *outbox.Repository) *Recorder {
	return &Recorder{repo: repo, outbox: outboxRepo}
}

// Replay returns the submission already recorded under key, if any.
func (r *Recorder) Replay(ctx context.Context, userID, key string) (model.Submission, bool, error) {
	if key == "" {
		return model.Submission{}, false, nil
	}
	rec, err := r.repo.FindIdempotency(ctx, userID, key)
	if IsNotFound(err) {
		return model.Submission{}, false, nil
	}
	if err != nil {
		return model.Submission{}, false, err
	}
	if !rec.Completed() {
		return model.Submission{}, false, nil
	}
	sub, err := r.repo.Get(ctx, nil, userID, rec.SubmissionID)
	if err != nil {
		return model.Submission{}, false, err
	}
	return sub, true, nil
}

// Record calls create to obtain the backend reservation id and stores the
// submission. The idempotency key row stays locked for the whole call, so a
// concurrent duplicate waits and then replays instead of creating twice.
// If create fails nothing is stored.
func (r *Recorder) Record(ctx context.Context, sub model.Submission, key string, create func(context.Context) (string, error)) (model.Submission, bool, error) {
	tx, err := r.repo.Begin(ctx)
	if err != nil {
		return model.Submission{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if key != "" {
		rec, _, err := r.repo.LockIdempotencyKey(ctx, tx, sub.UserID, key)
		if err != nil {
			return model.Submission{}, false, err
		}
		if rec.Completed() {
			prior, err := r.repo.Get(ctx, tx, sub.UserID, rec.SubmissionID)
			if err != nil {
				return model.Submission{}, false, err
			}
			return prior, true, tx.Commit(ctx)
		}
	}

	reservationID, err := create(ctx)
	if err != nil {
		return model.Submission{}, false, err
	}
	sub.ReservationID = reservationID

	if err := r.repo.Insert(ctx, tx, &sub); err != nil {
		return model.Submission{}, false, err
	}
	payload, err := json.Marshal(sub.Event())
	if err != nil {
		return model.Submission{}, false, err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "submission",
		AggregateID:   sub.ID,
		EventType:     model.EventReservationSubmitted,
		Payload:       payload,
	}); err != nil {
		return model.Submission{}, false, err
	}
	if key != "" {
		if err := r.repo.FinalizeIdempotency(ctx, tx, sub.UserID, key, sub.ID); err != nil {
			return model.Submission{}, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Submission{}, false, errors.Join(ErrUnrecorded, err)
	}
	return sub, false, nil
}

func (r *Recorder) List(ctx context.Context, userID string, limit int) ([]model.Submission, error) {
	return r.repo.ListByUser(ctx, userID, limit)
}
