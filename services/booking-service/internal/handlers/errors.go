package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/drafts"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/reservationapi"
	"go.uber.org/zap"
)

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// writeError maps domain errors to responses. Unknown errors are logged and
// reported as 500 without detail.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var conflict *drafts.ConflictError
	var unavailable *drafts.UnavailableError
	var backend *reservationapi.StatusError

	switch {
	case errors.As(err, &conflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":          conflict.Error(),
			"conflict_index": conflict.Index,
			"position":       conflict.Position,
			"slot":           conflict.Slot,
		})
	case errors.As(err, &unavailable):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":    "availability could not be computed",
			"degraded": unavailable.Reason,
		})
	case errors.Is(err, drafts.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "draft not found")
	case errors.Is(err, drafts.ErrOwnerRequired):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, drafts.ErrNotReady),
		errors.Is(err, drafts.ErrContention):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, drafts.ErrSlotUnavailable),
		errors.Is(err, drafts.ErrNothingToSubmit):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, drafts.ErrInvalidRoom),
		errors.Is(err, drafts.ErrTitleRequired),
		errors.Is(err, drafts.ErrSlotIndex),
		errors.Is(err, availability.ErrInvalidSlot),
		errors.Is(err, availability.ErrInvalidSelection),
		errors.Is(err, recurrence.ErrUnknownType),
		errors.Is(err, recurrence.ErrInvalidUntil),
		errors.Is(err, recurrence.ErrNoBaseSlots),
		errors.Is(err, recurrence.ErrNotWeekly):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &backend),
		errors.Is(err, reservationapi.ErrMalformedResponse):
		logger.Warn("backend call failed", zap.Error(err))
		abortWithError(c, http.StatusBadGateway, "reservation backend error")
	case errors.Is(err, context.DeadlineExceeded):
		abortWithError(c, http.StatusGatewayTimeout, "request timed out")
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "internal error")
	}
}
