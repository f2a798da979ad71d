package middleware

import (
	"context"
	"fmt"
	"strings"

	"ctchen222/minimax-tic-tac-toe/internal/api/response"
	"ctchen222/minimax-tic-tac-toe/internal/auth"

	"github.com/gin-gonic/gin"
)

const sessionIDKey = "session_id"

// Authenticator resolves a bearer token to a session id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// RequireSession rejects requests without a valid session token. The token is
// read from the Authorization header, or from the token query parameter for
// websocket upgrades that cannot set headers.
func RequireSession(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			response.FromError(c, fmt.Errorf("%w: missing token", auth.ErrInvalidToken))
			c.Abort()
			return
		}

		id, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Set(sessionIDKey, id)
		c.Next()
	}
}

// TokenFromRequest extracts the session token from the request.
func TokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return c.Query("token")
}

// SessionID returns the id stored by RequireSession.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
