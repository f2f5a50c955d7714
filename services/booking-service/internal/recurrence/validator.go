package recurrence

import (
	"context"
	"sync"
	"time"

	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ReservationSource returns the reservations of one room on one date.
type ReservationSource interface {
	ListReservations(ctx context.Context, roomID int, date time.Time) ([]period.Interval, error)
}

type Reason string

const (
	ReasonOccupied     Reason = "occupied"
	ReasonLookupFailed Reason = "lookup_failed"
)

type Conflict struct {
	period.Slot
	Reason Reason `json:"reason"`
}

// Result partitions occurrences; Valid and Conflicting never share a slot.
type Result struct {
	Valid       []period.Slot `json:"valid"`
	Conflicting []Conflict    `json:"conflicting"`
}

// Validator checks occurrences against a source whose dates are calendar
// days in loc.
type Validator struct {
	source      ReservationSource
	loc         *time.Location
	logger      *zap.Logger
	concurrency int
}

func NewValidator(source ReservationSource, loc *time.Location, logger *zap.Logger, concurrency int) *Validator {
	if concurrency <= 0 {
		concurrency = 4
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{source: source, loc: loc, logger: logger, concurrency: concurrency}
}

type dayLookup struct {
	intervals []period.Interval
	err       error
}

// Validate queries every calendar date in loc touched by the occurrences once,
// waits for all lookups, then classifies each occurrence. A failed lookup
// makes every occurrence on that date conflicting. The error is non-nil only
// when ctx ends before the lookups settle.
func (v *Validator) Validate(ctx context.Context, roomID int, occurrences []Occurrence) (Result, error) {
	ctx, span := otelx.Tracer("recurrence").Start(ctx, "recurrence.validate",
		trace.WithAttributes(
			attribute.Int("room.id", roomID),
			attribute.Int("occurrences", len(occurrences)),
		),
	)
	defer span.End()

	local := make([]Occurrence, len(occurrences))
	for i, occ := range occurrences {
		occ.Slot = occ.Slot.In(v.loc)
		local[i] = occ
	}
	occurrences = local

	dates := map[string]time.Time{}
	for _, occ := range occurrences {
		for _, d := range occ.Dates() {
			dates[d.Format(period.DateLayout)] = d
		}
	}
	span.SetAttributes(attribute.Int("dates", len(dates)))

	var (
		mu      sync.Mutex
		lookups = make(map[string]dayLookup, len(dates))
		g       errgroup.Group
	)
	g.SetLimit(v.concurrency)
	for key, date := range dates {
		key, date := key, date
		g.Go(func() error {
			intervals, err := v.source.ListReservations(ctx, roomID, date)
			mu.Lock()
			lookups[key] = dayLookup{intervals: intervals, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	res := Result{Valid: []period.Slot{}, Conflicting: []Conflict{}}
	for _, occ := range occurrences {
		reason, conflict := v.classify(roomID, occ, lookups)
		if conflict {
			res.Conflicting = append(res.Conflicting, Conflict{Slot: occ.Slot, Reason: reason})
			continue
		}
		res.Valid = append(res.Valid, occ.Slot)
	}
	span.SetAttributes(
		attribute.Int("valid", len(res.Valid)),
		attribute.Int("conflicting", len(res.Conflicting)),
	)
	return res, nil
}

func (v *Validator) classify(roomID int, occ Occurrence, lookups map[string]dayLookup) (Reason, bool) {
	failed := false
	for _, d := range occ.Dates() {
		key := d.Format(period.DateLayout)
		day := lookups[key]
		if day.err != nil {
			v.logger.Warn("reservation lookup failed; treating occurrence as conflicting",
				zap.Int("room_id", roomID),
				zap.String("date", key),
				zap.Stringer("occurrence", occ.Slot),
				zap.Error(day.err),
			)
			failed = true
			continue
		}
		for _, r := range day.intervals {
			if r.Blocks() && r.Overlaps(occ.Slot) {
				return ReasonOccupied, true
			}
		}
	}
	if failed {
		return ReasonLookupFailed, true
	}
	return "", false
}
