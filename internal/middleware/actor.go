package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/photofeed/backend/internal/likes"
	"github.com/photofeed/backend/internal/logger"
)

const actorContextKey = "actor"

// ActorMiddleware resolves who is making the request for the like engine.
// An authenticated request (Bearer JWT, subject = user ID) resolves to a
// principal actor; otherwise an X-Session-ID header resolves to an
// anonymous session actor. The engine treats both as opaque set members —
// only the tag prefix differs.
//
// Requests carrying neither proceed without an actor; endpoints that need
// one use RequireActor.
func ActorMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			userID, err := parseSubject(tokenStr, jwtSecret)
			if err != nil {
				logger.WarnWithFields("Rejecting invalid bearer token", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				c.Abort()
				return
			}
			c.Set(actorContextKey, likes.Principal(userID))
			c.Next()
			return
		}

		if sessionID := c.GetHeader("X-Session-ID"); sessionID != "" {
			c.Set(actorContextKey, likes.Session(sessionID))
		}

		c.Next()
	}
}

// RequireActor aborts with 401 unless ActorMiddleware resolved an actor.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetActor(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session id required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetActor extracts the resolved actor from the Gin context.
func GetActor(c *gin.Context) (likes.ActorID, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return likes.ActorID{}, false
	}
	actor, ok := v.(likes.ActorID)
	if !ok || !actor.Valid() {
		return likes.ActorID{}, false
	}
	return actor, true
}

func parseSubject(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
