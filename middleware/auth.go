package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kasuganosora/hearthquest/config"
	"github.com/kasuganosora/hearthquest/game/quest"
)

const ActorKey = "actor"

// Auth validates the Bearer JWT token and stores the caller as a quest.Actor.
func Auth(sec config.SecurityConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "), sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ctx.Set(ActorKey, claims.Actor())
		ctx.Next()
	}
}

// GetActor retrieves the authenticated caller from the Gin context.
func GetActor(c *gin.Context) (quest.Actor, bool) {
	if v, exists := c.Get(ActorKey); exists {
		a, ok := v.(quest.Actor)
		return a, ok
	}
	return quest.Actor{}, false
}
