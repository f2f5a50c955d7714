package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/drafts"
)

// Identity headers are set by the gateway after verifying the caller's
// token. Clients cannot set them directly because the gateway overwrites
// them.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderRole      = "X-Role"

	ownerKey = "roombook.owner"
)

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			abortWithError(c, http.StatusUnauthorized, "missing user identity")
			return
		}
		c.Set(ownerKey, drafts.Owner{
			UserID: userID,
			Email:  strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
		})
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(strings.TrimSpace(c.GetHeader(HeaderRole)), role) {
			abortWithError(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func ownerFrom(c *gin.Context) drafts.Owner {
	v, _ := c.Get(ownerKey)
	owner, _ := v.(drafts.Owner)
	return owner
}
