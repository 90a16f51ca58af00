package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/errs"
	"github.com/kasuganosora/hearthquest/game/streak"
	mw "github.com/kasuganosora/hearthquest/middleware"
	"github.com/kasuganosora/hearthquest/store"
)

// StreakHandler reads streak records.
type StreakHandler struct {
	uow     store.UnitOfWork
	tracker *streak.Tracker
}

// NewStreakHandler creates a StreakHandler.
func NewStreakHandler(uow store.UnitOfWork, rules streak.Rules) *StreakHandler {
	return &StreakHandler{uow: uow, tracker: streak.NewTracker(uow.Streaks(), rules)}
}

// Get handles GET /api/streaks/:character_id/:template_id.
// The character must belong to the caller's family.
func (h *StreakHandler) Get(c *gin.Context) {
	actor, ok := mw.GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	charID, err := strconv.ParseInt(c.Param("character_id"), 10, 64)
	if err != nil {
		fail(c, errs.InvalidInput("character_id", "must be an integer"))
		return
	}
	templateID, err := strconv.ParseInt(c.Param("template_id"), 10, 64)
	if err != nil {
		fail(c, errs.InvalidInput("template_id", "must be an integer"))
		return
	}

	ctx := c.Request.Context()
	char, err := h.uow.Characters().Get(ctx, charID)
	if err != nil {
		fail(c, err)
		return
	}
	owner, err := h.uow.Families().Member(ctx, char.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	if owner.FamilyID != actor.FamilyID {
		fail(c, errs.Unauthorized("view streak", actor.UserID))
		return
	}

	rec, err := h.tracker.Lookup(ctx, charID, templateID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"streak": rec,
		"bonus":  h.tracker.Bonus(rec.CurrentStreak),
	})
}
