package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
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

// EngineHandler exposes the availability and recurrence computations.
type EngineHandler struct {
	planner   Planner
	validator Validator
	logger    *zap.Logger
}

func NewEngineHandler(p Planner, v Validator, logger *zap.Logger) *EngineHandler {
	return &EngineHandler{planner: p, validator: v, logger: logger}
}

type availabilityResponse struct {
	planner.Plan
	Selected *period.Slot `json:"selected,omitempty"`
}

// Availability serves the live options of a room on a date, refined by the
// optional start and end indices.
func (h *EngineHandler) Availability(c *gin.Context) {
	roomID, err := strconv.Atoi(c.Param("room_id"))
	if err != nil || roomID <= 0 {
		abortWithError(c, http.StatusBadRequest, "invalid room_id")
		return
	}
	date, err := period.ParseDate(strings.TrimSpace(c.Query("date")), h.planner.Location())
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	sel, err := selectionFromQuery(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.planner.Plan(c.Request.Context(), roomID, date)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := availabilityResponse{Plan: plan}
	resp.Options = plan.Refine(sel)
	resp.Selected = commitSelection(plan.Options, sel)
	c.JSON(http.StatusOK, resp)
}

func selectionFromQuery(c *gin.Context) (availability.Selection, error) {
	var sel availability.Selection
	for _, f := range []struct {
		name string
		dst  **int
	}{{"start", &sel.Start}, {"end", &sel.End}} {
		raw := strings.TrimSpace(c.Query(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sel, &queryError{param: f.name}
		}
		*f.dst = &n
	}
	return sel, nil
}

type queryError struct{ param string }

func (e *queryError) Error() string { return "invalid " + e.param }

func commitSelection(opts availability.Options, sel availability.Selection) *period.Slot {
	if sel.Start == nil || sel.End == nil {
		return nil
	}
	slot, err := opts.Commit(*sel.Start, *sel.End)
	if err != nil {
		return nil
	}
	return &slot
}

type computeRequest struct {
	Date         string                 `json:"date"`
	Periods      []periodRequest        `json:"periods"`
	Reservations []period.Interval      `json:"reservations"`
	MaxDuration  string                 `json:"max_duration"`
	Window       *period.Slot           `json:"window"`
	Selection    availability.Selection `json:"selection"`
}

type periodRequest struct {
	ID    int    `json:"period_id"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

func (row periodRequest) toPeriod() (period.Period, error) {
	start, err := period.ParseTimeOfDay(strings.TrimSpace(row.Start))
	if err != nil {
		return period.Period{}, err
	}
	end, err := period.ParseTimeOfDay(strings.TrimSpace(row.End))
	if err != nil {
		return period.Period{}, err
	}
	p := period.Period{ID: row.ID, Start: start, End: end}
	return p, p.Validate()
}

// validPeriods drops rows that do not parse; they match nothing.
func validPeriods(rows []periodRequest, logger *zap.Logger) []period.Period {
	out := make([]period.Period, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPeriod()
		if err != nil {
			logger.Debug("skipping malformed period", zap.Int("period_id", row.ID), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out
}

type computeResponse struct {
	availability.Options
	Selected *period.Slot `json:"selected,omitempty"`
}

// Compute runs the availability computation on caller-supplied data.
func (h *EngineHandler) Compute(c *gin.Context) {
	var req computeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	date, err := period.ParseDate(strings.TrimSpace(req.Date), h.planner.Location())
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	var maxDuration time.Duration
	if strings.TrimSpace(req.MaxDuration) != "" {
		maxDuration, err = period.ParseDuration(strings.TrimSpace(req.MaxDuration))
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid max_duration, expected HH:MM:SS")
			return
		}
	}
	if req.Window != nil && !req.Window.Valid() {
		abortWithError(c, http.StatusBadRequest, "window end must be after start")
		return
	}

	opts := availability.Compute(date, validPeriods(req.Periods, h.logger), req.Reservations, availability.Constraints{
		MaxDuration: maxDuration,
		Window:      req.Window,
	})
	c.JSON(http.StatusOK, computeResponse{
		Options:  opts.Refine(req.Selection),
		Selected: commitSelection(opts, req.Selection),
	})
}

type checkSlotRequest struct {
	Batch    []period.Slot `json:"batch"`
	Proposed period.Slot   `json:"proposed"`
}

type checkSlotResponse struct {
	Conflict      bool         `json:"conflict"`
	ConflictIndex *int         `json:"conflict_index,omitempty"`
	Position      *int         `json:"position,omitempty"`
	Message       string       `json:"message,omitempty"`
	Slot          *period.Slot `json:"slot,omitempty"`
}

// CheckSlot tests a proposed slot against a caller-held batch.
func (h *EngineHandler) CheckSlot(c *gin.Context) {
	var req checkSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	conflict, found, err := availability.CheckLocalConflict(req.Batch, req.Proposed)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, checkSlotResponse{})
		return
	}
	pos := conflict.Position()
	c.JSON(http.StatusOK, checkSlotResponse{
		Conflict:      true,
		ConflictIndex: &conflict.Index,
		Position:      &pos,
		Message:       conflict.Error(),
		Slot:          &conflict.Slot,
	})
}

type ruleRequest struct {
	Type  string     `json:"type"`
	Until *time.Time `json:"until"`
}

func (r ruleRequest) rule() (recurrence.Rule, error) {
	t, err := recurrence.ParseType(strings.TrimSpace(r.Type))
	if err != nil {
		return recurrence.Rule{}, err
	}
	return recurrence.Rule{Type: t, Until: r.Until}, nil
}

type expandRequest struct {
	Base []period.Slot `json:"base_slots"`
	Rule ruleRequest   `json:"rule"`
}

func (req expandRequest) occurrences(loc *time.Location) ([]recurrence.Occurrence, error) {
	rule, err := req.Rule.rule()
	if err != nil {
		return nil, err
	}
	for _, s := range req.Base {
		if !s.Valid() {
			return nil, availability.ErrInvalidSlot
		}
	}
	return recurrence.Expand(req.Base, rule, loc), nil
}

func (h *EngineHandler) Expand(c *gin.Context) {
	var req expandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	occ, err := req.occurrences(h.planner.Location())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occurrences": occ})
}

type validateRequest struct {
	RoomID int `json:"room_id"`
	expandRequest
}

// Validate expands the rule and checks every occurrence against the room's
// reservations synchronously.
func (h *EngineHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.RoomID <= 0 {
		abortWithError(c, http.StatusBadRequest, "invalid room_id")
		return
	}
	occ, err := req.occurrences(h.planner.Location())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	res, err := h.validator.Validate(c.Request.Context(), req.RoomID, occ)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
