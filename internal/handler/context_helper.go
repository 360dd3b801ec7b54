package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/FezAmir/projectfinal-api/internal/middleware"
	"github.com/FezAmir/projectfinal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves the Actor bound by the JWT middleware. The zero
// Actor fails every role check downstream, so missing claims degrade safely.
func actorFromContext(c *gin.Context) models.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}
	}
	return claims.Actor()
}
