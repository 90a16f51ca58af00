// Package sse streams a family's quest transitions to browsers as
// server-sent events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/hearthquest/config"
	"github.com/kasuganosora/hearthquest/game/quest"
	mw "github.com/kasuganosora/hearthquest/middleware"
)

// Source delivers decoded quest events for one family.
type Source interface {
	Subscribe(ctx context.Context, familyID int64) (<-chan quest.Event, func(), error)
}

// Handler handles the SSE endpoint.
type Handler struct {
	src       Source
	sec       config.SecurityConfig
	keepAlive time.Duration
	logger    *zap.Logger
}

// NewHandler creates a new SSE Handler. keepAlive <= 0 means 30s.
func NewHandler(src Source, sec config.SecurityConfig, keepAlive time.Duration, logger *zap.Logger) *Handler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &Handler{src: src, sec: sec, keepAlive: keepAlive, logger: logger}
}

// ServeSSE handles GET /api/events?token=<jwt>. EventSource cannot send
// headers, so the token may come from the query string as well as the
// Authorization header.
func (h *Handler) ServeSSE(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		if hdr := c.GetHeader("Authorization"); len(hdr) > 7 && hdr[:7] == "Bearer " {
			tokenStr = hdr[7:]
		}
	}
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	actor := claims.Actor()

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	events, unsub, err := h.src.Subscribe(subCtx, actor.FamilyID)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Int64("family_id", actor.FamilyID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"family_id\":%d}\n\n", actor.FamilyID)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("sse encode failed", zap.String("quest_id", ev.QuestID), zap.Error(err))
				continue
			}
			fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", ev.QuestID, ev.Type, data)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
