package middleware

import (
	"net/http"
	"strings"

	"comandero_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// TenantIDKey is the gin context key holding the active business id.
const TenantIDKey = "tenantID"

// AuthMiddleware creates a Gin middleware for JWT authentication. The token's
// business_id claim becomes the tenant scope of every downstream operation.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format. Use Bearer <token>"})
			c.Abort()
			return
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token: " + err.Error()})
			c.Abort()
			return
		}
		if claims.BusinessID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token carries no active business"})
			c.Abort()
			return
		}

		// Set user information in the context for downstream handlers
		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)
		c.Set(TenantIDKey, claims.BusinessID)

		c.Next()
	}
}

// TenantID extracts the active business id set by AuthMiddleware.
func TenantID(c *gin.Context) string {
	if v, ok := c.Get(TenantIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
