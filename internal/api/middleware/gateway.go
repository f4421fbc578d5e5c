package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email, X-User-Role).
// The upstream gateway handles token validation and billing.
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used behind a gateway with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"message": "Missing X-User-ID header from gateway",
			})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Set(userEmailKey, c.GetHeader("X-User-Email"))
		c.Set(userRoleKey, c.GetHeader("X-User-Role"))

		c.Next()
	}
}

// GetUserEmail retrieves the user email set by the auth middleware
func GetUserEmail(c *gin.Context) (string, bool) {
	email := c.GetString(userEmailKey)
	return email, email != ""
}

// GetUserRole retrieves the user role set by the auth middleware
func GetUserRole(c *gin.Context) (string, bool) {
	role := c.GetString(userRoleKey)
	return role, role != ""
}
