package handlers

import (
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Engine      *EngineHandler
	Drafts      *DraftHandler
	Admin       *AdminHandler
	Submissions *SubmissionHandler
}

// NewRouter mounts the booking API under /api/v1. Engine endpoints are
// public; everything else requires gateway identity headers.
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	v1 := r.Group("/api/v1")

	v1.GET("/rooms/:room_id/availability", h.Engine.Availability)
	v1.POST("/availability/compute", h.Engine.Compute)
	v1.POST("/slots/check", h.Engine.CheckSlot)
	v1.POST("/recurrence/expand", h.Engine.Expand)
	v1.POST("/recurrence/validate", h.Engine.Validate)

	authed := v1.Group("", requireUser())
	d := authed.Group("/drafts")
	d.POST("", h.Drafts.Create)
	d.GET("/:id", h.Drafts.Get)
	d.DELETE("/:id", h.Drafts.Discard)
	d.POST("/:id/slots", h.Drafts.AddSlot)
	d.DELETE("/:id/slots/:index", h.Drafts.RemoveSlot)
	d.PUT("/:id/recurrence", h.Drafts.SetRecurrence)
	d.POST("/:id/submit", h.Drafts.Submit)
	d.GET("/:id/watch", h.Drafts.Watch)

	if h.Submissions != nil {
		authed.GET("/submissions", h.Submissions.List)
	}

	admin := authed.Group("/admin", requireRole("admin"))
	admin.POST("/catalog/invalidate", h.Admin.InvalidateCatalog)

	return r
}
