package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/drafts"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/period"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

type DraftService interface {
	Create(ctx context.Context, owner drafts.Owner, roomID int) (drafts.Draft, error)
	Get(ctx context.Context, owner drafts.Owner, id string) (drafts.Draft, error)
	Discard(ctx context.Context, owner drafts.Owner, id string) error
	AddSlot(ctx context.Context, owner drafts.Owner, id string, slot period.Slot) (drafts.Draft, error)
	RemoveSlot(ctx context.Context, owner drafts.Owner, id string, index int) (drafts.Draft, error)
	SetRecurrence(ctx context.Context, owner drafts.Owner, id string, rule recurrence.Rule) (drafts.Draft, error)
	Submit(ctx context.Context, owner drafts.Owner, id string, req drafts.SubmitRequest) (model.Submission, bool, error)
	Watch(ctx context.Context, owner drafts.Owner, id string) (drafts.Draft, <-chan drafts.Event, func(), error)
}

type DraftHandler struct {
	svc      DraftService
	logger   *zap.Logger
	upgrader *websocket.Upgrader
}

func NewDraftHandler(svc DraftService, allowedOrigins []string, logger *zap.Logger) *DraftHandler {
	return &DraftHandler{svc: svc, logger: logger, upgrader: newUpgrader(allowedOrigins)}
}

type createDraftRequest struct {
	RoomID int `json:"room_id"`
}

func (h *DraftHandler) Create(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	d, err := h.svc.Create(c.Request.Context(), ownerFrom(c), req.RoomID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *DraftHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), ownerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DraftHandler) Discard(c *gin.Context) {
	if err := h.svc.Discard(c.Request.Context(), ownerFrom(c), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DraftHandler) AddSlot(c *gin.Context) {
	var slot period.Slot
	if err := c.ShouldBindJSON(&slot); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body, expected start_time and end_time in RFC3339")
		return
	}
	d, err := h.svc.AddSlot(c.Request.Context(), ownerFrom(c), c.Param("id"), slot)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *DraftHandler) RemoveSlot(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid slot index")
		return
	}
	d, err := h.svc.RemoveSlot(c.Request.Context(), ownerFrom(c), c.Param("id"), index)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// SetRecurrence answers 202 while the occurrences are being validated.
func (h *DraftHandler) SetRecurrence(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	rule, err := req.rule()
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	d, err := h.svc.SetRecurrence(c.Request.Context(), ownerFrom(c), c.Param("id"), rule)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if d.Recurrence.State == recurrence.StateValidating {
		status = http.StatusAccepted
	}
	c.JSON(status, d)
}

type submitRequest struct {
	Title string `json:"title"`
	Note  string `json:"note"`
}

func (h *DraftHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	sub, replayed, err := h.svc.Submit(c.Request.Context(), ownerFrom(c), c.Param("id"), drafts.SubmitRequest{
		Title:          req.Title,
		Note:           strings.TrimSpace(req.Note),
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if replayed {
		c.Header("Idempotent-Replayed", "true")
		c.JSON(http.StatusOK, sub)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

const (
	watchWriteWait  = 10 * time.Second
	watchPingPeriod = 30 * time.Second
	watchPongWait   = 2 * watchPingPeriod
)

type watchMessage struct {
	Kind  string       `json:"kind"`
	Draft drafts.Draft `json:"draft"`
}

// Watch upgrades to a websocket that first sends the current draft, then
// every change until the draft is submitted or discarded.
func (h *DraftHandler) Watch(c *gin.Context) {
	ctx := c.Request.Context()
	d, events, cancel, err := h.svc.Watch(ctx, ownerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(watchPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
	if err := conn.WriteJSON(watchMessage{Kind: "snapshot", Draft: d}); err != nil {
		return
	}

	ticker := time.NewTicker(watchPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Kind == drafts.EventDeleted || evt.Kind == drafts.EventSubmitted {
				closeWebsocket(conn, "draft "+string(evt.Kind))
				return
			}
		case <-ticker.C:
			if err := pingWebsocket(conn, watchWriteWait); err != nil {
				return
			}
		}
	}
}
