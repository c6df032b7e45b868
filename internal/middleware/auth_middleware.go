package middleware

import (
	"net/http"
	"strings"

	"restaurant_order_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const callerSlugKey = "callerSlug"

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authorization header required", ""))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid authorization header format. Use Bearer <token>", ""))
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired token", err.Error()))
			return
		}

		c.Set(callerSlugKey, claims.Slug)
		c.Next()
	}
}

// CallerSlug returns the user slug set by AuthMiddleware.
func CallerSlug(c *gin.Context) (string, bool) {
	v, exists := c.Get(callerSlugKey)
	if !exists {
		return "", false
	}
	slug, ok := v.(string)
	return slug, ok && slug != ""
}
