package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/hearthquest/game/quest"
	"github.com/kasuganosora/hearthquest/scheduler"
)

// AdminHandler handles operator endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	quests *quest.Service
	sched  *scheduler.Scheduler
	logger *zap.Logger
	now    func() time.Time
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(quests *quest.Service, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{quests: quests, sched: sched, logger: logger, now: time.Now}
}

// ExpireOverdue runs the overdue sweep immediately.
// POST /api/admin/quests/expire
func (h *AdminHandler) ExpireOverdue(c *gin.Context) {
	res, err := h.quests.ExpireOverdue(c.Request.Context(), h.now())
	if err != nil {
		// A partial sweep still reports what it did.
		h.logger.Error("admin expire sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep incomplete", "result": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

// ListSchedulerTasks returns every ticker task with its run history.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Statuses()})
}

// RunSchedulerTask runs a ticker task now.
// POST /api/admin/scheduler/:name/run
func (h *AdminHandler) RunSchedulerTask(c *gin.Context) {
	name := c.Param("name")
	if err := h.sched.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownTask) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("admin ran scheduler task", zap.String("task", name))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// If adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
