package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/homerental/internal/apperrors"
	"github.com/farellandr/homerental/internal/auth"
	"github.com/farellandr/homerental/internal/helpers"
)

const principalKey = "principal"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	// Browsers cannot set headers on a websocket handshake.
	return c.Query("token")
}

// authenticate resolves the token to a principal, reloading the user so
// deleted or re-roled accounts take effect immediately.
func authenticate(c *gin.Context, secret string) (auth.Principal, error) {
	token := bearerToken(c)
	if token == "" {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	userID, err := auth.ParseToken(secret, token)
	if err != nil {
		return auth.Principal{}, err
	}
	svc := GetServices(c)
	if svc == nil {
		return auth.Principal{}, errors.New("services not found in context")
	}
	user, err := svc.Users.Get(c.Request.Context(), userID)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.FromUser(user), nil
}

func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := authenticate(c, secret)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, apperrors.ErrNotFound) {
				helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			} else {
				helpers.RespondWithAppError(c, err)
			}
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Set("user_id", principal.ID)
		c.Next()
	}
}

// OptionalAuth sets the principal when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) != "" {
			if principal, err := authenticate(c, secret); err == nil {
				c.Set(principalKey, principal)
				c.Set("user_id", principal.ID)
			}
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	principal, exists := c.Get(principalKey)
	if !exists {
		return auth.Principal{}, false
	}
	return principal.(auth.Principal), true
}

// Viewer is the principal for visibility checks, nil when anonymous.
func Viewer(c *gin.Context) *auth.Principal {
	principal, ok := GetPrincipal(c)
	if !ok {
		return nil
	}
	return &principal
}
