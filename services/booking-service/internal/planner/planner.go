package planner

import (
	"context"
	"time"

	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Degradation names the dependency that kept a plan from being computed.
type Degradation string

const (
	PeriodsUnavailable      Degradation = "periods_unavailable"
	SettingsUnavailable     Degradation = "settings_unavailable"
	ReservationsUnavailable Degradation = "reservations_unavailable"
)

type Catalog interface {
	Periods(ctx context.Context) ([]period.Period, error)
	Setting(ctx context.Context, id int) (time.Duration, error)
}

type Config struct {
	MaxDurationSettingID int
	TimeWindowSettingID  int
	Location             *time.Location
	Now                  func() time.Time
}

// Plan is the availability of one room on one date. A degraded plan has
// nothing selectable.
type Plan struct {
	availability.Options
	RoomID             int         `json:"room_id"`
	MaxDurationSeconds int64       `json:"max_duration_seconds"`
	Degraded           Degradation `json:"degraded,omitempty"`
}

type Planner struct {
	catalog      Catalog
	reservations recurrence.ReservationSource
	cfg          Config
	logger       *zap.Logger
}

func New(catalog Catalog, reservations recurrence.ReservationSource, cfg Config, logger *zap.Logger) *Planner {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Planner{catalog: catalog, reservations: reservations, cfg: cfg, logger: logger}
}

func (p *Planner) Location() *time.Location { return p.cfg.Location }

// Constraints derives the duration limit and the bookable window from the
// configured settings. The window starts now; without a horizon setting it
// has no upper bound.
func (p *Planner) Constraints(ctx context.Context) (availability.Constraints, error) {
	maxDuration, err := p.catalog.Setting(ctx, p.cfg.MaxDurationSettingID)
	if err != nil {
		return availability.Constraints{}, err
	}
	now := p.cfg.Now().In(p.cfg.Location)
	window := period.Slot{Start: now, End: time.Date(9999, 12, 31, 0, 0, 0, 0, p.cfg.Location)}
	if p.cfg.TimeWindowSettingID > 0 {
		horizon, err := p.catalog.Setting(ctx, p.cfg.TimeWindowSettingID)
		if err != nil {
			return availability.Constraints{}, err
		}
		window.End = now.Add(horizon)
	}
	return availability.Constraints{MaxDuration: maxDuration, Window: &window}, nil
}

// Plan computes the start and end options for roomID on date. Failures of
// the catalog or the reservation lookup degrade the plan instead of
// failing it; only a cancelled ctx is returned as an error.
func (p *Planner) Plan(ctx context.Context, roomID int, date time.Time) (Plan, error) {
	ctx, span := otelx.Tracer("planner").Start(ctx, "planner.Plan")
	defer span.End()

	day := period.StartOfDay(date.In(p.cfg.Location))
	span.SetAttributes(attribute.Int("room.id", roomID), attribute.String("date", day.Format(period.DateLayout)))
	plan := Plan{RoomID: roomID, Options: availability.Options{Date: day}}

	degrade := func(reason Degradation, err error) (Plan, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Plan{}, ctxErr
		}
		p.logger.Warn("availability degraded",
			zap.Int("room_id", roomID),
			zap.String("date", day.Format(period.DateLayout)),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		span.SetAttributes(attribute.String("degraded", string(reason)))
		plan.Degraded = reason
		return plan, nil
	}

	periods, err := p.catalog.Periods(ctx)
	if err != nil {
		return degrade(PeriodsUnavailable, err)
	}
	constraints, err := p.Constraints(ctx)
	if err != nil {
		return degrade(SettingsUnavailable, err)
	}
	reservations, err := p.reservations.ListReservations(ctx, roomID, day)
	if err != nil {
		return degrade(ReservationsUnavailable, err)
	}

	plan.Options = availability.Compute(day, periods, reservations, constraints)
	plan.MaxDurationSeconds = int64(constraints.MaxDuration / time.Second)
	return plan, nil
}
