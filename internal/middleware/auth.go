package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vaddi6894/commerce/internal/domain"
	"github.com/vaddi6894/commerce/internal/usecase"
)

const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "userRole"
	ContextTokenKey  = "sessionToken"
)

// Authenticate extracts the bearer token, resolves it to a live session and
// stores the caller's id and role in the request context.
func Authenticate(userUC usecase.UserUseCase, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Middleware: Authorization header is missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warnf("Middleware: Invalid Authorization header format: %s", authHeader)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Invalid Authorization header format"})
			return
		}

		rawToken := parts[1]
		if rawToken == "" {
			log.Warn("Middleware: Bearer token is empty")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Invalid token"})
			return
		}

		session, err := userUC.Authorize(rawToken)
		if err != nil {
			log.Warnf("Middleware: Token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Invalid or expired token"})
			return
		}

		log.Debugf("Middleware: Authenticated user %d (role: %s)", session.UserID, session.Role)

		c.Set(ContextUserIDKey, session.UserID)
		c.Set(ContextRoleKey, session.Role)
		c.Set(ContextTokenKey, rawToken)
		c.Next()
	}
}

// AdminOnly rejects callers whose session role is not admin. It must run
// after Authenticate.
func AdminOnly(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		if role != domain.RoleAdmin {
			log.Warnf("Middleware: User %d with role '%s' attempted an admin operation", c.GetInt64(ContextUserIDKey), role)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "fail", "message": "Admin access required"})
			return
		}
		c.Next()
	}
}

func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"remote_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})
		entry.Info("Incoming request")

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		completedEntry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  latency.Milliseconds(),
		})

		if len(c.Errors) > 0 {
			completedEntry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		} else {
			if statusCode >= 500 {
				completedEntry.Error("Request completed with server error")
			} else if statusCode >= 400 {
				completedEntry.Warn("Request completed with client error")
			} else {
				completedEntry.Info("Request completed successfully")
			}
		}
	}
}
