package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meetrix/internal/core/domain"
	"meetrix/internal/core/services"
	"meetrix/pkg/logger"
)

// AuthMiddleware validates the bearer session token against the
// meeting named in the route and stores the caller's identity on the
// context for handlers downstream.
func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		meetingID := domain.MeetingID(c.Param("id"))
		claims, err := authService.ValidateForMeeting(parts[1], meetingID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set("participant_id", claims.ParticipantID)
		c.Set("display_name", claims.DisplayName)
		c.Set("role", claims.Role)

		// Downstream log lines pick these up through the context logger.
		ctx := context.WithValue(c.Request.Context(), logger.ParticipantIDKey, string(claims.ParticipantID))
		ctx = context.WithValue(ctx, logger.MeetingIDKey, string(meetingID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireHost rejects callers whose session token does not carry the
// host role. It must run after AuthMiddleware.
func RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok || role.(domain.Role) != domain.RoleHost {
			c.JSON(http.StatusForbidden, gin.H{"error": "host role required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
