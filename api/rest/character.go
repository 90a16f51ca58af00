package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/game/progression"
	mw "github.com/kasuganosora/hearthquest/middleware"
	"github.com/kasuganosora/hearthquest/store"
)

// CharacterHandler serves the caller's progression record.
type CharacterHandler struct {
	uow   store.UnitOfWork
	curve progression.Curve
}

// NewCharacterHandler creates a CharacterHandler.
func NewCharacterHandler(uow store.UnitOfWork, levels *progression.Evaluator) *CharacterHandler {
	return &CharacterHandler{uow: uow, curve: levels.Curve()}
}

// Me handles GET /api/characters/me.
func (h *CharacterHandler) Me(c *gin.Context) {
	actor, ok := mw.GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	char, err := h.uow.Characters().GetByUser(c.Request.Context(), actor.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	resp := gin.H{
		"character": char,
		"max_level": h.curve.MaxLevel(),
	}
	if need, ok := h.curve.XPToNext(char.Level, char.Exp); ok {
		resp["xp_to_next"] = need
	}
	c.JSON(http.StatusOK, resp)
}
