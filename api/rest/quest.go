package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/game/quest"
	mw "github.com/kasuganosora/hearthquest/middleware"
	"github.com/kasuganosora/hearthquest/model"
)

// QuestHandler exposes the quest lifecycle.
type QuestHandler struct {
	svc *quest.Service
}

// NewQuestHandler creates a QuestHandler.
func NewQuestHandler(svc *quest.Service) *QuestHandler {
	return &QuestHandler{svc: svc}
}

type questOp func(ctx context.Context, actor quest.Actor, questID string) (*model.Quest, error)

func (h *QuestHandler) run(op questOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mw.GetActor(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		q, err := op(c.Request.Context(), actor, c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"quest": q})
	}
}

// Get handles GET /api/quests/:id.
func (h *QuestHandler) Get(c *gin.Context) { h.run(h.svc.Get)(c) }

// Claim handles POST /api/quests/:id/claim.
func (h *QuestHandler) Claim(c *gin.Context) { h.run(h.svc.Claim)(c) }

// Start handles POST /api/quests/:id/start.
func (h *QuestHandler) Start(c *gin.Context) { h.run(h.svc.Start)(c) }

// Complete handles POST /api/quests/:id/complete.
func (h *QuestHandler) Complete(c *gin.Context) { h.run(h.svc.Complete)(c) }

// Reject handles POST /api/quests/:id/reject.
func (h *QuestHandler) Reject(c *gin.Context) { h.run(h.svc.Reject)(c) }

// Approve handles POST /api/quests/:id/approve. The response carries the
// reward paid, the level change and the streak outcome.
func (h *QuestHandler) Approve(c *gin.Context) {
	actor, ok := mw.GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	res, err := h.svc.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
