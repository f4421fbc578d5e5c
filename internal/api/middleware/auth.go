package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Conceptual-Machines/musicability-api/internal/config"
)

const (
	bearerPrefix = "Bearer"

	userIDKey    = "user_id"
	userEmailKey = "user_email"
	userRoleKey  = "user_role"

	anonymousUser = "anonymous"
)

// Claims carried by access tokens. The user id is the subject; tokens minted
// by the account service may carry it as user_id instead.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth returns the middleware selected by AUTH_MODE
func Auth(cfg *config.Config) gin.HandlerFunc {
	switch {
	case cfg.IsJWTMode():
		return JWTAuth(cfg.JWTSecret)
	case cfg.IsGatewayMode():
		return GatewayAuth()
	default:
		return NoAuth()
	}
}

// NoAuth lets every request through as the anonymous user (AUTH_MODE=none)
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userIDKey, anonymousUser)
		c.Next()
	}
}

// JWTAuth validates HMAC-signed access tokens from the Authorization header
// or the access_token cookie
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Token authentication is not configured"})
			c.Abort()
			return
		}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString, _ = c.Cookie("access_token")
		}
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID := claims.Subject
		if userID == "" {
			userID = claims.UserID
		}
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has no subject"})
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Set(userEmailKey, claims.Email)
		c.Set(userRoleKey, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], bearerPrefix) {
		return parts[1]
	}
	return ""
}

// GetUserID retrieves the authenticated user id from context
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(userIDKey)
	return id, id != ""
}
