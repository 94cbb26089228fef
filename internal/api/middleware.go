package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anbuselvan/assetsync/internal/models"
	"github.com/anbuselvan/assetsync/internal/service"
)

// Context keys set by the middleware chain.
const (
	ContextUsername  = "username"
	ContextRole      = "role"
	ContextRequestID = "requestId"
)

// RequestID returns a Gin middleware that tags every request with an ID,
// honoring an X-Request-ID header sent by the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextRequestID, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// AuthMiddleware returns a Gin middleware for authentication. The token is
// validated against the credential store, so a stale role claim or a
// disabled account is rejected even before expiry.
func AuthMiddleware(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authentication required")
			return
		}

		// Check if the Authorization header starts with "Bearer "
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "Invalid token format")
			return
		}

		user, err := svc.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}

		c.Set(ContextUsername, user.Username)
		c.Set(ContextRole, user.Role)
		c.Next()
	}
}

// RequireAdmin returns a Gin middleware gating admin-only routes. It must
// run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Status:  "error",
				Code:    "FORBIDDEN",
				Message: "Admin privileges required",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
	c.Abort()
}
