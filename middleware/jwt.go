package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kasuganosora/hearthquest/game/quest"
	"github.com/kasuganosora/hearthquest/model"
)

// Claims is the JWT payload. The identity it carries is trusted as-is.
type Claims struct {
	UserID   int64      `json:"user_id"`
	FamilyID int64      `json:"family_id"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the caller identity used by the engine.
func (c *Claims) Actor() quest.Actor {
	return quest.Actor{UserID: c.UserID, FamilyID: c.FamilyID, Role: c.Role}
}

// GenerateToken signs a JWT for the given actor with the given secret and TTL.
func GenerateToken(actor quest.Actor, secret string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID:   actor.UserID,
		FamilyID: actor.FamilyID,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID <= 0 || claims.FamilyID <= 0 {
		return nil, errors.New("token lacks user or family")
	}
	if claims.Role != model.RoleGuardian && claims.Role != model.RoleMember {
		return nil, errors.New("token has unknown role")
	}
	return claims, nil
}
