package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"yamdb/internal/http-api/policy"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (policy.Actor, error)
}

// AuthMiddleware resolves the request's actor. Requests without an
// Authorization header continue as anonymous; a malformed header or an
// invalid token is rejected with 401.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(actorKey, policy.Anonymous())
			c.Next()
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), parts[1])
		if errors.Is(err, service.ErrUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if err != nil {
			// store failure, not a bad credential
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the actor set by AuthMiddleware, or the anonymous actor.
func ActorFrom(c *gin.Context) policy.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Anonymous()
}

// Authorize applies the route-level decision of p. Object-level checks on the
// author happen in the services once the object is loaded.
func Authorize(p policy.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := p.Allow(ActorFrom(c), actionFor(c.Request.Method))
		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, policy.ErrUnauthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission to perform this action"})
		}
	}
}

func actionFor(method string) policy.Action {
	switch method {
	case http.MethodPost:
		return policy.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return policy.ActionUpdate
	case http.MethodDelete:
		return policy.ActionDelete
	default:
		return policy.ActionRead
	}
}
