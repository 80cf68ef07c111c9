package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/httpx"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
)

var errNoToken = errors.New("invalid or no token")

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. present reports whether any Authorization header was sent.
func bearerToken(c *gin.Context) (token string, present bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", true
	}
	return strings.TrimSpace(parts[1]), true
}

func authenticate(c *gin.Context, tokens *TokenService, required bool) {
	token, present := bearerToken(c)
	if !present {
		if required {
			httpx.WriteError(c, errx.E("auth.RequireAuth", errx.Unauthorized, errNoToken))
			return
		}
		c.Next()
		return
	}
	if token == "" {
		httpx.WriteError(c, errx.E("auth.authenticate", errx.Unauthorized, errNoToken))
		return
	}

	claims, err := tokens.Validate(token)
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUsername, claims.Username)
	c.Next()
}

// OptionalAuth lets anonymous requests through. A credential that is sent
// must be valid; a bad one is rejected, never treated as anonymous.
func OptionalAuth(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens, false)
	}
}

// RequireAuth validates JWT tokens and sets user info in context
func RequireAuth(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, tokens, true)
	}
}

// GetIdentity returns the authenticated caller, if any.
func GetIdentity(c *gin.Context) (Identity, bool) {
	userID := c.GetUint(ContextKeyUserID)
	if userID == 0 {
		return Identity{}, false
	}
	return Identity{UserID: userID, Username: c.GetString(ContextKeyUsername)}, true
}

// GetOwner returns the owner for the request: the caller, or anonymous.
func GetOwner(c *gin.Context) Owner {
	if id, ok := GetIdentity(c); ok {
		return id.Owner()
	}
	return AnonymousOwner()
}
