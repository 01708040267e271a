package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"edition-publisher/config"
	"edition-publisher/helper"
	"edition-publisher/models"
)

const actorKey = "actor"

type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func AuthMiddleware(h *helper.HTTPHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			h.SendUnauthorizedError(c, "Authorization header required", h.EmptyJsonMap())
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			h.SendUnauthorizedError(c, "Bearer token required", h.EmptyJsonMap())
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return config.JWTSecret, nil
		})
		if err != nil {
			h.SendUnauthorizedError(c, "Invalid token: "+err.Error(), h.EmptyJsonMap())
			c.Abort()
			return
		}
		if !token.Valid {
			h.SendUnauthorizedError(c, "Token is not valid", h.EmptyJsonMap())
			c.Abort()
			return
		}

		role := models.UserRole(claims.Role)
		if !role.Valid() {
			h.SendUnauthorizedError(c, "Token carries an unknown role", h.EmptyJsonMap())
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Set(actorKey, models.Actor{ID: claims.UserID, Name: claims.Username, Role: role})

		c.Next()
	}
}

// ActorFrom returns the authenticated actor. ok is false outside AuthMiddleware.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// RequireRole lets through actors ranked at least min.
func RequireRole(h *helper.HTTPHelper, min models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			h.SendUnauthorizedError(c, "User role not found", h.EmptyJsonMap())
			c.Abort()
			return
		}

		if !actor.Role.AtLeast(min) {
			h.SendForbiddenError(c, "Insufficient permissions", h.EmptyJsonMap())
			c.Abort()
			return
		}
		c.Next()
	}
}
