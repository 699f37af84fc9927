package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/models"
	"github.com/formlite/formlite-server/utils"
)

// CtxUser is the context key under which the authenticated user is stored.
const CtxUser = "user"

// AuthJWT checks Authorization: Bearer <token>, validates the JWT, loads
// the user and injects it into the context.
func AuthJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := userFromBearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing or invalid token"})
			return
		}
		c.Set(CtxUser, user)
		c.Next()
	}
}

// OptionalAuth injects the user when a valid bearer token is present but
// never rejects the request. Anonymous submissions go through here.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := userFromBearer(c); ok {
			c.Set(CtxUser, user)
		}
		c.Next()
	}
}

// RequireAdmin guards admin-only routes. Must run after AuthJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxUser)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		u := v.(models.User)
		if !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}
		c.Next()
	}
}

func userFromBearer(c *gin.Context) (models.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return models.User{}, false
	}
	rawToken := strings.TrimSpace(authHeader[7:])

	claims, err := utils.VerifyToken(rawToken)
	if err != nil {
		return models.User{}, false
	}

	uid, err := strconv.ParseUint(claims.UserID, 10, 64)
	if err != nil {
		return models.User{}, false
	}

	var user models.User
	if err := config.DB.First(&user, uid).Error; err != nil {
		return models.User{}, false
	}
	return user, true
}
