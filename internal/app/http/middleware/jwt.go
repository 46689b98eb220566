package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mypalette/config"
	"mypalette/internal/domain/access"
	"mypalette/internal/domain/users"
	"mypalette/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionKey = "session"

var errInvalidClaims = errors.New("invalid token claims")

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(config.JWT_SECRET) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			c.Abort()
			return
		}

		sess, email, err := parseToken(tokenString)
		if err != nil {
			logger.FromGin(c).Debug("rejected token", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}
		if email != "" {
			c.Set("email", email)
		}
		SetSession(c, sess)
		c.Next()
	}
}

// OptionalAuth attaches a session when a valid bearer token is present and
// otherwise leaves the request anonymous.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString != "" && len(config.JWT_SECRET) > 0 {
			if sess, email, err := parseToken(tokenString); err == nil {
				if email != "" {
					c.Set("email", email)
				}
				SetSession(c, sess)
			}
		}
		c.Next()
	}
}

func parseToken(tokenString string) (access.ClaimsSession, string, error) {
	jwtKey := []byte(config.JWT_SECRET)
	token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil {
		return access.ClaimsSession{}, "", err
	}
	if !token.Valid {
		return access.ClaimsSession{}, "", errInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return access.ClaimsSession{}, "", errInvalidClaims
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return access.ClaimsSession{}, "", errInvalidClaims
	}
	sess := access.ClaimsSession{UserID: uint(userIDFloat)}
	if role, ok := claims["role"].(string); ok {
		sess.UserRole = users.ParseRole(role)
	}
	email, _ := claims["email"].(string)
	return sess, email, nil
}

// Session returns the caller's session, or access.Anonymous on public routes.
func Session(c *gin.Context) access.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(access.Session); ok {
			return s
		}
	}
	return access.Anonymous
}

// SetSession is used by tests and by routes that authenticate another way.
func SetSession(c *gin.Context, s access.Session) {
	c.Set(sessionKey, s)
	if uid, ok := s.CurrentUserID(); ok {
		c.Set("user_id", uid)
	}
	c.Set("role", string(s.Role()))
}

func RequireRole(role users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Role not found in token"})
			c.Abort()
			return
		}

		if value != string(role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
