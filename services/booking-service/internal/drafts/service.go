package drafts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/planner"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
	"go.uber.org/zap"
)

type Planner interface {
	Plan(ctx context.Context, roomID int, date time.Time) (planner.Plan, error)
	Location() *time.Location
}

type Validator interface {
	Validate(ctx context.Context, roomID int, occurrences []recurrence.Occurrence) (recurrence.Result, error)
}

type Backend interface {
	CreateReservation(ctx context.Context, roomID int, title, note string, slots []period.Slot) (string, error)
}

// Recorder stores submissions and replays them for repeated idempotency
// keys.
type Recorder interface {
	Replay(ctx context.Context, userID, key string) (model.Submission, bool, error)
	Record(ctx context.Context, sub model.Submission, key string, create func(context.Context) (string, error)) (model.Submission, bool, error)
}

type Config struct {
	ValidationTimeout time.Duration
	Now               func() time.Time
}

type Deps struct {
	Store     Store
	Publisher Publisher
	Planner   Planner
	Validator Validator
	Backend   Backend
	Recorder  Recorder
	// Dispatcher is optional; without one validation runs in a goroutine.
	Dispatcher Dispatcher
}

type Service struct {
	Deps
	cfg    Config
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewService(deps Deps, cfg Config, logger *zap.Logger) *Service {
	if cfg.ValidationTimeout <= 0 {
		cfg.ValidationTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{Deps: deps, cfg: cfg, logger: logger}
}

func (s *Service) Create(ctx context.Context, owner Owner, roomID int) (Draft, error) {
	if owner.UserID == "" {
		return Draft{}, ErrOwnerRequired
	}
	if roomID <= 0 {
		return Draft{}, ErrInvalidRoom
	}
	now := s.cfg.Now().UTC()
	d := Draft{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		Owner:      owner,
		Recurrence: recurrence.NewController(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.Create(ctx, d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Get hides drafts of other users behind ErrNotFound.
func (s *Service) Get(ctx context.Context, owner Owner, id string) (Draft, error) {
	d, err := s.Store.Get(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if !d.OwnedBy(owner) {
		return Draft{}, ErrNotFound
	}
	return d, nil
}

func (s *Service) Discard(ctx context.Context, owner Owner, id string) error {
	d, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, Event{Kind: EventDeleted, Draft: d})
	return nil
}

// AddSlot accepts slot only if it is a selectable run of the room's live
// availability and does not overlap a slot already in the batch.
func (s *Service) AddSlot(ctx context.Context, owner Owner, id string, slot period.Slot) (Draft, error) {
	if !slot.Valid() {
		return Draft{}, availability.ErrInvalidSlot
	}
	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return Draft{}, err
	}

	loc := s.Planner.Location()
	slot = period.Slot{Start: slot.Start.In(loc), End: slot.End.In(loc)}
	plan, err := s.Planner.Plan(ctx, current.RoomID, slot.Start)
	if err != nil {
		return Draft{}, err
	}
	if plan.Degraded != "" {
		return Draft{}, &UnavailableError{Reason: plan.Degraded}
	}
	if _, _, err := plan.Locate(slot); err != nil {
		return Draft{}, ErrSlotUnavailable
	}

	return s.update(ctx, owner, id, func(d *Draft) error {
		conflict, found, err := availability.CheckLocalConflict(d.Recurrence.Base, slot)
		if err != nil {
			return err
		}
		if found {
			return &ConflictError{Index: conflict.Index, Position: conflict.Position(), Slot: conflict.Slot}
		}
		d.Recurrence.SetBase(append(d.Slots(), slot))
		return nil
	})
}

func (s *Service) RemoveSlot(ctx context.Context, owner Owner, id string, index int) (Draft, error) {
	return s.update(ctx, owner, id, func(d *Draft) error {
		base := d.Slots()
		if index < 0 || index >= len(base) {
			return ErrSlotIndex
		}
		next := append(append([]period.Slot{}, base[:index]...), base[index+1:]...)
		d.Recurrence.SetBase(next)
		return nil
	})
}

// SetRecurrence selects the rule type and, for a weekly rule with an end
// date, starts validation of the expanded occurrences.
func (s *Service) SetRecurrence(ctx context.Context, owner Owner, id string, rule recurrence.Rule) (Draft, error) {
	var ticket *recurrence.Ticket
	d, err := s.update(ctx, owner, id, func(d *Draft) error {
		ticket = nil
		if err := d.Recurrence.SelectType(rule.Type); err != nil {
			return err
		}
		if rule.Type != recurrence.TypeWeekly || rule.Until == nil {
			return nil
		}
		t, err := d.Recurrence.SubmitUntil(*rule.Until)
		if err != nil {
			return err
		}
		ticket = &t
		return nil
	})
	if err != nil || ticket == nil {
		return d, err
	}

	job := Job{DraftID: d.ID, RoomID: d.RoomID, Ticket: *ticket, Trace: otelx.Capture(ctx)}
	if err := s.dispatch(ctx, job); err != nil {
		s.logger.Error("validation dispatch failed", zap.String("draft_id", d.ID), zap.Error(err))
		if aborted, abortErr := s.abort(ctx, job); abortErr == nil {
			return aborted, err
		}
		return Draft{}, err
	}
	return d, nil
}

func (s *Service) dispatch(ctx context.Context, job Job) error {
	if s.Dispatcher != nil {
		return s.Dispatcher.Dispatch(ctx, job)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ValidationTimeout)
		defer cancel()
		_ = s.RunValidation(jobCtx, job)
	}()
	return nil
}

// Wait blocks until in-process validation goroutines finish.
func (s *Service) Wait() { s.wg.Wait() }

// RunValidation validates the ticket's occurrences and stores the result if
// the draft has not changed since the ticket was issued.
func (s *Service) RunValidation(ctx context.Context, job Job) error {
	ctx = job.Trace.Restore(ctx)
	log := s.logger.With(zap.String("draft_id", job.DraftID), zap.Uint64("generation", job.Ticket.Generation))

	res, err := s.Validator.Validate(ctx, job.RoomID, job.Ticket.Occurrences(s.Planner.Location()))
	if err != nil {
		log.Warn("validation aborted", zap.Error(err))
		if _, abortErr := s.abort(context.WithoutCancel(ctx), job); abortErr != nil && !errors.Is(abortErr, errStaleValidation) {
			log.Error("could not reset draft after aborted validation", zap.Error(abortErr))
		}
		return err
	}

	d, err := s.Store.Update(ctx, job.DraftID, func(d *Draft) error {
		if !d.Recurrence.Apply(job.Ticket, res) {
			return errStaleValidation
		}
		d.UpdatedAt = s.cfg.Now().UTC()
		return nil
	})
	switch {
	case errors.Is(err, errStaleValidation):
		log.Debug("discarding stale validation result")
		return nil
	case errors.Is(err, ErrNotFound):
		log.Debug("draft gone before validation finished")
		return nil
	case err != nil:
		return err
	}
	log.Info("validation applied", zap.Int("valid", len(res.Valid)), zap.Int("conflicting", len(res.Conflicting)))
	s.publish(ctx, Event{Kind: EventUpdated, Draft: d})
	return nil
}

func (s *Service) abort(ctx context.Context, job Job) (Draft, error) {
	d, err := s.Store.Update(ctx, job.DraftID, func(d *Draft) error {
		if !d.Recurrence.Abort(job.Ticket) {
			return errStaleValidation
		}
		d.UpdatedAt = s.cfg.Now().UTC()
		return nil
	})
	if err != nil {
		return Draft{}, err
	}
	s.publish(ctx, Event{Kind: EventUpdated, Draft: d})
	return d, nil
}

type SubmitRequest struct {
	Title          string
	Note           string
	IdempotencyKey string
}

// Submit sends the draft's valid slots to the backend as one reservation and
// removes the draft. replayed is true when the idempotency key was already
// used.
func (s *Service) Submit(ctx context.Context, owner Owner, id string, req SubmitRequest) (sub model.Submission, replayed bool, err error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return model.Submission{}, false, ErrTitleRequired
	}
	if req.IdempotencyKey != "" {
		prior, ok, err := s.Recorder.Replay(ctx, owner.UserID, req.IdempotencyKey)
		if err != nil {
			return model.Submission{}, false, err
		}
		if ok {
			return prior, true, nil
		}
	}

	d, err := s.Get(ctx, owner, id)
	if err != nil {
		return model.Submission{}, false, err
	}
	if !d.Recurrence.Ready() {
		return model.Submission{}, false, ErrNotReady
	}
	valid := d.Recurrence.Valid()
	if len(valid) == 0 {
		return model.Submission{}, false, ErrNothingToSubmit
	}

	pending := model.Submission{
		ID:        uuid.NewString(),
		DraftID:   d.ID,
		RoomID:    d.RoomID,
		UserID:    owner.UserID,
		UserEmail: owner.Email,
		Title:     req.Title,
		Note:      req.Note,
		Slots:     valid,
		Conflicts: append([]recurrence.Conflict{}, d.Recurrence.Result.Conflicting...),
	}
	sub, replayed, err = s.Recorder.Record(ctx, pending, req.IdempotencyKey, func(ctx context.Context) (string, error) {
		return s.Backend.CreateReservation(ctx, d.RoomID, req.Title, req.Note, valid)
	})
	if err != nil {
		return model.Submission{}, false, err
	}

	if err := s.Store.Delete(ctx, d.ID); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("submitted draft not deleted", zap.String("draft_id", d.ID), zap.Error(err))
	}
	s.publish(ctx, Event{Kind: EventSubmitted, Draft: d, Submission: &sub})
	s.logger.Info("draft submitted",
		zap.String("draft_id", d.ID),
		zap.String("submission_id", sub.ID),
		zap.String("reservation_id", sub.ReservationID),
		zap.Int("slots", len(sub.Slots)),
		zap.Bool("replayed", replayed),
	)
	return sub, replayed, nil
}

// Watch streams events for a draft the owner can see.
func (s *Service) Watch(ctx context.Context, owner Owner, id string) (Draft, <-chan Event, func(), error) {
	d, err := s.Get(ctx, owner, id)
	if err != nil {
		return Draft{}, nil, nil, err
	}
	ch, cancel, err := s.Publisher.Subscribe(ctx, id)
	if err != nil {
		return Draft{}, nil, nil, err
	}
	return d, ch, cancel, nil
}

func (s *Service) update(ctx context.Context, owner Owner, id string, fn func(*Draft) error) (Draft, error) {
	d, err := s.Store.Update(ctx, id, func(d *Draft) error {
		if !d.OwnedBy(owner) {
			return ErrNotFound
		}
		if err := fn(d); err != nil {
			return err
		}
		d.UpdatedAt = s.cfg.Now().UTC()
		return nil
	})
	if err != nil {
		return Draft{}, err
	}
	s.publish(ctx, Event{Kind: EventUpdated, Draft: d})
	return d, nil
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, evt.Draft.ID, evt); err != nil {
		s.logger.Warn("draft event not published", zap.String("draft_id", evt.Draft.ID), zap.Error(err))
	}
}
