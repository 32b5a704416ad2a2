package middlewares

import (
	"net/http"
	"strings"

	"flavornet/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
	RoleKey   = "role"

	// TokenCookie is the cookie the SPA sends the token in.
	TokenCookie = "Bearer"
)

// bearerToken reads the Authorization header first (API clients), then the
// cookie (browser).
func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Request.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func JWT(tokens *utils.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := utils.Authorize(c.GetString(RoleKey), roles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User unauthorized"})
			return
		}
		c.Next()
	}
}
