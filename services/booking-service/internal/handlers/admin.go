package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"go.uber.org/zap"
)

type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type AdminHandler struct {
	catalog CatalogInvalidator
	logger  *zap.Logger
}

func NewAdminHandler(catalog CatalogInvalidator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, logger: logger}
}

// InvalidateCatalog forces periods and settings to be reloaded on next use.
func (h *AdminHandler) InvalidateCatalog(c *gin.Context) {
	if err := h.catalog.Invalidate(c.Request.Context()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.logger.Info("catalog invalidated", zap.String("by", c.GetHeader(HeaderUserID)))
	c.Status(http.StatusNoContent)
}

type SubmissionLister interface {
	List(ctx context.Context, userID string, limit int) ([]model.Submission, error)
}

type SubmissionHandler struct {
	lister SubmissionLister
	logger *zap.Logger
}

func NewSubmissionHandler(lister SubmissionLister, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{lister: lister, logger: logger}
}

func (h *SubmissionHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			abortWithError(c, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	subs, err := h.lister.List(c.Request.Context(), ownerFrom(c).UserID, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"items": subs})
}
